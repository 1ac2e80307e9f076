package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/store"
	"foodyar/backend/internal/xid"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate creates missing tables and indexes. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const ingredientColumns = `id, name, unit, current_stock, cost_per_unit, min_threshold, supplier_id, purchase_history`

func scanIngredient(row rowScanner) (domain.Ingredient, error) {
	var ing domain.Ingredient
	var supplierID sql.NullString
	var history []byte
	if err := row.Scan(&ing.ID, &ing.Name, &ing.Unit, &ing.CurrentStock, &ing.CostPerUnit, &ing.MinThreshold, &supplierID, &history); err != nil {
		return domain.Ingredient{}, err
	}
	ing.SupplierID = supplierID.String
	if err := json.Unmarshal(history, &ing.PurchaseHistory); err != nil {
		return domain.Ingredient{}, err
	}
	return ing, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Ingredient, 0, 32)
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ing)
	}
	return result, rows.Err()
}

func (s *Store) GetIngredient(ctx context.Context, id string) (*domain.Ingredient, error) {
	ing, err := scanIngredient(s.db.QueryRowContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &ing, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.Name == "" || ingredient.CurrentStock < 0 || ingredient.CostPerUnit < 0 {
		return nil, store.ErrInvalidInput
	}
	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	if err := insertIngredient(ctx, s.db, ingredient); err != nil {
		return nil, err
	}
	created := ingredient
	return &created, nil
}

func insertIngredient(ctx context.Context, db execer, ing domain.Ingredient) error {
	history, err := marshalList(ing.PurchaseHistory)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO ingredients (`+ingredientColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, ing.ID, ing.Name, ing.Unit, ing.CurrentStock, ing.CostPerUnit, ing.MinThreshold, nullIfEmpty(ing.SupplierID), history)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.Name == "" || ingredient.CurrentStock < 0 || ingredient.CostPerUnit < 0 {
		return nil, store.ErrInvalidInput
	}
	if err := updateIngredient(ctx, s.db, ingredient); err != nil {
		return nil, err
	}
	updated := ingredient
	return &updated, nil
}

func updateIngredient(ctx context.Context, db execer, ing domain.Ingredient) error {
	history, err := marshalList(ing.PurchaseHistory)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE ingredients
		SET name = $2, unit = $3, current_stock = $4, cost_per_unit = $5,
			min_threshold = $6, supplier_id = $7, purchase_history = $8
		WHERE id = $1
	`, ing.ID, ing.Name, ing.Unit, ing.CurrentStock, ing.CostPerUnit, ing.MinThreshold, nullIfEmpty(ing.SupplierID), history)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) DeleteIngredient(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
}

const prepColumns = `id, item, station, par_level, on_hand, unit, recipe, batch_size, cost_per_unit`

func scanPrepTask(row rowScanner) (domain.PrepTask, error) {
	var task domain.PrepTask
	var recipe []byte
	if err := row.Scan(&task.ID, &task.Item, &task.Station, &task.ParLevel, &task.OnHand, &task.Unit, &recipe, &task.BatchSize, &task.CostPerUnit); err != nil {
		return domain.PrepTask{}, err
	}
	if err := json.Unmarshal(recipe, &task.Recipe); err != nil {
		return domain.PrepTask{}, err
	}
	return task, nil
}

func (s *Store) ListPrepTasks(ctx context.Context) ([]domain.PrepTask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+prepColumns+` FROM prep_tasks ORDER BY station, item`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.PrepTask, 0, 16)
	for rows.Next() {
		task, err := scanPrepTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (s *Store) GetPrepTask(ctx context.Context, id string) (*domain.PrepTask, error) {
	task, err := scanPrepTask(s.db.QueryRowContext(ctx, `SELECT `+prepColumns+` FROM prep_tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (s *Store) CreatePrepTask(ctx context.Context, task domain.PrepTask) (*domain.PrepTask, error) {
	if task.Item == "" || task.OnHand < 0 || task.ParLevel < 0 {
		return nil, store.ErrInvalidInput
	}
	if task.ID == "" {
		task.ID = xid.New("prep")
	}
	recipe, err := marshalList(task.Recipe)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO prep_tasks (`+prepColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, task.ID, task.Item, task.Station, task.ParLevel, task.OnHand, task.Unit, recipe, task.BatchSize, task.CostPerUnit)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := task
	return &created, nil
}

func (s *Store) UpdatePrepTask(ctx context.Context, task domain.PrepTask) (*domain.PrepTask, error) {
	if task.Item == "" || task.OnHand < 0 || task.ParLevel < 0 {
		return nil, store.ErrInvalidInput
	}
	recipe, err := marshalList(task.Recipe)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE prep_tasks
		SET item = $2, station = $3, par_level = $4, on_hand = $5, unit = $6,
			recipe = $7, batch_size = $8, cost_per_unit = $9
		WHERE id = $1
	`, task.ID, task.Item, task.Station, task.ParLevel, task.OnHand, task.Unit, recipe, task.BatchSize, task.CostPerUnit)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	updated := task
	return &updated, nil
}

func (s *Store) DeletePrepTask(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM prep_tasks WHERE id = $1`, id)
}

const menuColumns = `id, name, category, price, recipe, image_url`

func scanMenuItem(row rowScanner) (domain.MenuItem, error) {
	var item domain.MenuItem
	var recipe []byte
	if err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Price, &recipe, &item.ImageURL); err != nil {
		return domain.MenuItem{}, err
	}
	if err := json.Unmarshal(recipe, &item.Recipe); err != nil {
		return domain.MenuItem{}, err
	}
	if item.Recipe == nil {
		item.Recipe = []domain.RecipeIngredient{}
	}
	return item, nil
}

func (s *Store) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY category, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.MenuItem, 0, 32)
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := scanMenuItem(s.db.QueryRowContext(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if item.Name == "" || item.Price < 0 {
		return nil, store.ErrInvalidInput
	}
	if item.ID == "" {
		item.ID = xid.New("menu")
	}
	if err := insertMenuItem(ctx, s.db, item); err != nil {
		return nil, err
	}
	created := item
	return &created, nil
}

func insertMenuItem(ctx context.Context, db execer, item domain.MenuItem) error {
	recipe, err := marshalList(item.Recipe)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO menu_items (`+menuColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, item.ID, item.Name, item.Category, item.Price, recipe, item.ImageURL)
	if err != nil && isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if item.Name == "" || item.Price < 0 {
		return nil, store.ErrInvalidInput
	}
	recipe, err := marshalList(item.Recipe)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE menu_items
		SET name = $2, category = $3, price = $4, recipe = $5, image_url = $6
		WHERE id = $1
	`, item.ID, item.Name, item.Category, item.Price, recipe, item.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	updated := item
	return &updated, nil
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category, phone_number FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Category, &sup.PhoneNumber); err != nil {
			return nil, err
		}
		result = append(result, sup)
	}
	return result, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, category, phone_number)
		VALUES ($1,$2,$3,$4)
	`, supplier.ID, supplier.Name, supplier.Category, supplier.PhoneNumber)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := supplier
	return &created, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if supplier.Name == "" {
		return nil, store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE suppliers SET name = $2, category = $3, phone_number = $4 WHERE id = $1
	`, supplier.ID, supplier.Name, supplier.Category, supplier.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if err := expectAffected(res); err != nil {
		return nil, err
	}
	updated := supplier
	return &updated, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, amount, category, spent_at, description
		FROM expenses
		WHERE ($1::timestamptz IS NULL OR spent_at >= $1)
			AND ($2::timestamptz IS NULL OR spent_at < $2)
		ORDER BY spent_at DESC, id DESC
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Expense, 0, 16)
	for rows.Next() {
		var exp domain.Expense
		if err := rows.Scan(&exp.ID, &exp.Title, &exp.Amount, &exp.Category, &exp.Date, &exp.Description); err != nil {
			return nil, err
		}
		exp.Date = exp.Date.UTC()
		result = append(result, exp)
	}
	return result, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.Title == "" || expense.Amount <= 0 {
		return nil, store.ErrInvalidInput
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, title, amount, category, spent_at, description)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, expense.ID, expense.Title, expense.Amount, expense.Category, expense.Date, expense.Description)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM expenses WHERE id = $1`, id)
}

func (s *Store) deleteByID(ctx context.Context, query string, id string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// marshalList encodes a slice column. Nil slices are stored as [] so reads
// never see JSON null.
func marshalList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}

func nullTimePtr(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

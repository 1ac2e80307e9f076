package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/store"
	"foodyar/backend/internal/xid"
)

const saleColumns = `id, ts, items, total_amount, total_cost, tax, discount, payment_method, shift_id, table_number, status`

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var items []byte
	var shiftID sql.NullString
	if err := row.Scan(&sale.ID, &sale.Timestamp, &items, &sale.TotalAmount, &sale.TotalCost, &sale.Tax, &sale.Discount,
		&sale.PaymentMethod, &shiftID, &sale.TableNumber, &sale.Status); err != nil {
		return domain.Sale{}, err
	}
	sale.Timestamp = sale.Timestamp.UTC()
	sale.ShiftID = shiftID.String
	if err := json.Unmarshal(items, &sale.Items); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	return querySales(ctx, s.db, filter)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func querySales(ctx context.Context, db querier, filter store.SaleFilter) ([]domain.Sale, error) {
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE ($1::timestamptz IS NULL OR ts >= $1)
			AND ($2::timestamptz IS NULL OR ts < $2)
			AND ($3::text IS NULL OR shift_id = $3)
		ORDER BY ts DESC, id DESC
		LIMIT $4
	`, nullTime(filter.From), nullTime(filter.To), nullIfEmpty(filter.ShiftID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sale)
	}
	return result, rows.Err()
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) CommitSale(ctx context.Context, commit domain.SaleCommit) (*domain.Sale, error) {
	sale := commit.Sale
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range commit.NewMenuItems {
		if item.ID == "" || item.Name == "" {
			return nil, store.ErrInvalidInput
		}
		if err := insertMenuItem(ctx, tx, item); err != nil {
			return nil, err
		}
	}

	if sale.ShiftID == "" {
		var openID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM shifts WHERE status = 'open' LIMIT 1`).Scan(&openID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		sale.ShiftID = openID
	}

	items, err := marshalList(sale.Items)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, sale.ID, sale.Timestamp, items, sale.TotalAmount, sale.TotalCost, sale.Tax, sale.Discount,
		sale.PaymentMethod, nullIfEmpty(sale.ShiftID), sale.TableNumber, sale.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	if err := deductIngredients(ctx, tx, commit.InventoryDeductions); err != nil {
		return nil, err
	}
	for id, amount := range commit.PrepDeductions {
		if _, err := tx.ExecContext(ctx, `
			UPDATE prep_tasks SET on_hand = GREATEST(0, on_hand - $2) WHERE id = $1
		`, id, amount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &sale, nil
}

// deductIngredients clamps at zero. Ids without a row are skipped.
func deductIngredients(ctx context.Context, tx *sql.Tx, deductions map[string]float64) error {
	for id, amount := range deductions {
		if _, err := tx.ExecContext(ctx, `
			UPDATE ingredients SET current_stock = GREATEST(0, current_stock - $2) WHERE id = $1
		`, id, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpdateSaleStatus(ctx context.Context, id string, status domain.SaleStatus) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := scanSale(tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if !costing.CanTransition(sale.Status, status) {
		return nil, store.ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sales SET status = $2 WHERE id = $1`, id, status); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	sale.Status = status
	return &sale, nil
}

func (s *Store) CommitProduction(ctx context.Context, prepTaskID string, deductions map[string]float64, onHandDelta float64) (*domain.PrepTask, error) {
	if onHandDelta <= 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	task, err := scanPrepTask(tx.QueryRowContext(ctx, `SELECT `+prepColumns+` FROM prep_tasks WHERE id = $1 FOR UPDATE`, prepTaskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := deductIngredients(ctx, tx, deductions); err != nil {
		return nil, err
	}
	task.OnHand += onHandDelta
	if _, err := tx.ExecContext(ctx, `UPDATE prep_tasks SET on_hand = $2 WHERE id = $1`, task.ID, task.OnHand); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Store) CommitWaste(ctx context.Context, record domain.WasteRecord) (*domain.WasteRecord, error) {
	if record.Amount <= 0 {
		return nil, store.ErrInvalidInput
	}
	if record.ID == "" {
		record.ID = xid.New("waste")
	}
	if record.Date.IsZero() {
		record.Date = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if record.ItemSource == domain.SourcePrep {
		var onHand float64
		err := tx.QueryRowContext(ctx, `SELECT on_hand FROM prep_tasks WHERE id = $1 FOR UPDATE`, record.ItemID).Scan(&onHand)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		if record.Amount > onHand {
			return nil, store.ErrInvalidInput
		}
		if _, err := tx.ExecContext(ctx, `UPDATE prep_tasks SET on_hand = GREATEST(0, on_hand - $2) WHERE id = $1`, record.ItemID, record.Amount); err != nil {
			return nil, err
		}
	} else {
		res, err := tx.ExecContext(ctx, `UPDATE ingredients SET current_stock = GREATEST(0, current_stock - $2) WHERE id = $1`, record.ItemID, record.Amount)
		if err != nil {
			return nil, err
		}
		if err := expectAffected(res); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO waste_records (id, item_id, item_name, item_source, amount, unit, cost_loss, reason, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, record.ID, record.ItemID, record.ItemName, record.ItemSource, record.Amount, record.Unit, record.CostLoss, record.Reason, record.Date)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Store) ListWaste(ctx context.Context, from time.Time, to time.Time) ([]domain.WasteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, item_name, item_source, amount, unit, cost_loss, reason, recorded_at
		FROM waste_records
		WHERE ($1::timestamptz IS NULL OR recorded_at >= $1)
			AND ($2::timestamptz IS NULL OR recorded_at < $2)
		ORDER BY recorded_at DESC, id DESC
	`, nullTime(from), nullTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.WasteRecord, 0, 16)
	for rows.Next() {
		var rec domain.WasteRecord
		if err := rows.Scan(&rec.ID, &rec.ItemID, &rec.ItemName, &rec.ItemSource, &rec.Amount, &rec.Unit, &rec.CostLoss, &rec.Reason, &rec.Date); err != nil {
			return nil, err
		}
		rec.Date = rec.Date.UTC()
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) ReceiveStock(ctx context.Context, invoice *domain.PurchaseInvoice, receipts []domain.StockReceipt) ([]domain.Ingredient, error) {
	if len(receipts) == 0 {
		return nil, store.ErrInvalidInput
	}
	if invoice != nil && len(invoice.Items) != len(receipts) {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	staged := make(map[string]domain.Ingredient, len(receipts))
	created := make(map[string]bool)
	order := make([]string, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.Quantity <= 0 || receipt.CostPerUnit < 0 {
			return nil, store.ErrInvalidInput
		}
		var current domain.Ingredient
		switch {
		case receipt.IngredientID != "":
			ing, ok := staged[receipt.IngredientID]
			if !ok {
				ing, err = scanIngredient(tx.QueryRowContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1 FOR UPDATE`, receipt.IngredientID))
				if err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						return nil, fmt.Errorf("%w: ingredient %s", store.ErrNotFound, receipt.IngredientID)
					}
					return nil, err
				}
			}
			current = ing
		case receipt.Template != nil && receipt.Template.Name != "":
			current = *receipt.Template
			current.ID = xid.New("ing")
			current.CurrentStock = 0
			current.CostPerUnit = 0
			current.PurchaseHistory = nil
			created[current.ID] = true
		default:
			return nil, store.ErrInvalidInput
		}

		date := receipt.Date
		if date.IsZero() {
			date = time.Now().UTC()
		}
		updated := costing.ApplyPurchase(current, receipt.Quantity, receipt.CostPerUnit, date)
		staged[updated.ID] = updated
		order = append(order, updated.ID)
	}

	for id, ing := range staged {
		if created[id] {
			err = insertIngredient(ctx, tx, ing)
		} else {
			err = updateIngredient(ctx, tx, ing)
		}
		if err != nil {
			return nil, err
		}
	}

	if invoice != nil {
		stored := *invoice
		stored.Items = append([]domain.InvoiceLine(nil), invoice.Items...)
		if stored.ID == "" {
			stored.ID = xid.New("inv")
		}
		for i := range stored.Items {
			stored.Items[i].IngredientID = order[i]
		}
		items, err := marshalList(stored.Items)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_invoices (id, supplier_id, invoice_number, invoice_date, total_amount, status, items)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, stored.ID, nullIfEmpty(stored.SupplierID), stored.InvoiceNumber, stored.InvoiceDate, stored.TotalAmount, stored.Status, items)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrConflict
			}
			return nil, err
		}
		*invoice = stored
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	result := make([]domain.Ingredient, len(order))
	for i, id := range order {
		result[i] = staged[id]
	}
	return result, nil
}

const invoiceColumns = `id, supplier_id, invoice_number, invoice_date, total_amount, status, items`

func scanInvoice(row rowScanner) (domain.PurchaseInvoice, error) {
	var inv domain.PurchaseInvoice
	var supplierID sql.NullString
	var items []byte
	if err := row.Scan(&inv.ID, &supplierID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.TotalAmount, &inv.Status, &items); err != nil {
		return domain.PurchaseInvoice{}, err
	}
	inv.SupplierID = supplierID.String
	inv.InvoiceDate = inv.InvoiceDate.UTC()
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return domain.PurchaseInvoice{}, err
	}
	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, limit int) ([]domain.PurchaseInvoice, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+` FROM purchase_invoices ORDER BY invoice_date DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.PurchaseInvoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id string, status domain.InvoiceStatus) (*domain.PurchaseInvoice, error) {
	if status != domain.InvoicePaid && status != domain.InvoiceUnpaid {
		return nil, store.ErrInvalidInput
	}
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `
		UPDATE purchase_invoices SET status = $2 WHERE id = $1
		RETURNING `+invoiceColumns, id, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

const shiftColumns = `id, start_time, end_time, starting_cash, expected_cash_sales, actual_cash_sales,
	cash_sales, card_sales, online_sales, bank_deposit, discrepancy, status, operator_name`

func scanShift(row rowScanner) (domain.Shift, error) {
	var shift domain.Shift
	var endTime sql.NullTime
	if err := row.Scan(&shift.ID, &shift.StartTime, &endTime, &shift.StartingCash, &shift.ExpectedCashSales, &shift.ActualCashSales,
		&shift.CashSales, &shift.CardSales, &shift.OnlineSales, &shift.BankDeposit, &shift.Discrepancy, &shift.Status, &shift.OperatorName); err != nil {
		return domain.Shift{}, err
	}
	shift.StartTime = shift.StartTime.UTC()
	if endTime.Valid {
		at := endTime.Time.UTC()
		shift.EndTime = &at
	}
	return shift, nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.StartingCash < 0 {
		return nil, store.ErrInvalidInput
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.EndTime = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, shift.ID, shift.StartTime, nullTimePtr(shift.EndTime), shift.StartingCash, shift.ExpectedCashSales, shift.ActualCashSales,
		shift.CashSales, shift.CardSales, shift.OnlineSales, shift.BankDeposit, shift.Discrepancy, shift.Status, shift.OperatorName)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := shift
	return &saved, nil
}

func (s *Store) GetOpenShift(ctx context.Context) (*domain.Shift, error) {
	shift, err := scanShift(s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts WHERE status = 'open' ORDER BY start_time DESC LIMIT 1
	`))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) CloseShift(ctx context.Context, id string, actualCash float64, bankDeposit float64, at time.Time) (*domain.Shift, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	shift, err := scanShift(tx.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sales, err := querySales(ctx, tx, store.SaleFilter{ShiftID: id})
	if err != nil {
		return nil, err
	}
	closed, err := costing.CloseShift(shift, sales, actualCash, bankDeposit, at)
	if err != nil {
		return nil, store.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE shifts
		SET end_time = $2, expected_cash_sales = $3, actual_cash_sales = $4, cash_sales = $5,
			card_sales = $6, online_sales = $7, bank_deposit = $8, discrepancy = $9, status = $10
		WHERE id = $1
	`, closed.ID, nullTimePtr(closed.EndTime), closed.ExpectedCashSales, closed.ActualCashSales, closed.CashSales,
		closed.CardSales, closed.OnlineSales, closed.BankDeposit, closed.Discrepancy, closed.Status)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &closed, nil
}

func (s *Store) ListShifts(ctx context.Context, limit int) ([]domain.Shift, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+shiftColumns+` FROM shifts ORDER BY start_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Shift, 0, limit)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, shift)
	}
	return result, rows.Err()
}

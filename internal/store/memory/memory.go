package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/store"
	"foodyar/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	ingredients     map[string]domain.Ingredient
	prepTasks       map[string]domain.PrepTask
	menuItems       map[string]domain.MenuItem
	suppliers       map[string]domain.Supplier
	expenses        map[string]domain.Expense
	sales           []domain.Sale
	waste           []domain.WasteRecord
	invoices        []domain.PurchaseInvoice
	shifts          []domain.Shift
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		ingredients:     make(map[string]domain.Ingredient),
		prepTasks:       make(map[string]domain.PrepTask),
		menuItems:       make(map[string]domain.MenuItem),
		suppliers:       make(map[string]domain.Supplier),
		expenses:        make(map[string]domain.Expense),
		sales:           make([]domain.Sale, 0, 64),
		waste:           make([]domain.WasteRecord, 0, 16),
		invoices:        make([]domain.PurchaseInvoice, 0, 16),
		shifts:          make([]domain.Shift, 0, 16),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func (s *Store) ListIngredients(_ context.Context) ([]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		result = append(result, cloneIngredient(ing))
	}
	slices.SortFunc(result, func(a, b domain.Ingredient) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) GetIngredient(_ context.Context, id string) (*domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ing, ok := s.ingredients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	dup := cloneIngredient(ing)
	return &dup, nil
}

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if strings.TrimSpace(ingredient.Name) == "" || ingredient.CurrentStock < 0 || ingredient.CostPerUnit < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	if _, exists := s.ingredients[ingredient.ID]; exists {
		return nil, store.ErrConflict
	}
	s.ingredients[ingredient.ID] = cloneIngredient(ingredient)
	created := cloneIngredient(ingredient)
	return &created, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if strings.TrimSpace(ingredient.Name) == "" || ingredient.CurrentStock < 0 || ingredient.CostPerUnit < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredients[ingredient.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.ingredients[ingredient.ID] = cloneIngredient(ingredient)
	updated := cloneIngredient(ingredient)
	return &updated, nil
}

func (s *Store) DeleteIngredient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredients[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ingredients, id)
	return nil
}

func (s *Store) ListPrepTasks(_ context.Context) ([]domain.PrepTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PrepTask, 0, len(s.prepTasks))
	for _, task := range s.prepTasks {
		result = append(result, clonePrepTask(task))
	}
	slices.SortFunc(result, func(a, b domain.PrepTask) int {
		if a.Station == b.Station {
			return strings.Compare(a.Item, b.Item)
		}
		return strings.Compare(a.Station, b.Station)
	})
	return result, nil
}

func (s *Store) GetPrepTask(_ context.Context, id string) (*domain.PrepTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.prepTasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	dup := clonePrepTask(task)
	return &dup, nil
}

func (s *Store) CreatePrepTask(_ context.Context, task domain.PrepTask) (*domain.PrepTask, error) {
	if strings.TrimSpace(task.Item) == "" || task.OnHand < 0 || task.ParLevel < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = xid.New("prep")
	}
	if _, exists := s.prepTasks[task.ID]; exists {
		return nil, store.ErrConflict
	}
	s.prepTasks[task.ID] = clonePrepTask(task)
	created := clonePrepTask(task)
	return &created, nil
}

func (s *Store) UpdatePrepTask(_ context.Context, task domain.PrepTask) (*domain.PrepTask, error) {
	if strings.TrimSpace(task.Item) == "" || task.OnHand < 0 || task.ParLevel < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.prepTasks[task.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.prepTasks[task.ID] = clonePrepTask(task)
	updated := clonePrepTask(task)
	return &updated, nil
}

func (s *Store) DeletePrepTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.prepTasks[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.prepTasks, id)
	return nil
}

func (s *Store) ListMenuItems(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MenuItem, 0, len(s.menuItems))
	for _, item := range s.menuItems {
		result = append(result, cloneMenuItem(item))
	}
	slices.SortFunc(result, func(a, b domain.MenuItem) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return result, nil
}

func (s *Store) GetMenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.menuItems[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	dup := cloneMenuItem(item)
	return &dup, nil
}

func (s *Store) CreateMenuItem(_ context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if strings.TrimSpace(item.Name) == "" || item.Price < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = xid.New("menu")
	}
	if _, exists := s.menuItems[item.ID]; exists {
		return nil, store.ErrConflict
	}
	s.menuItems[item.ID] = cloneMenuItem(item)
	created := cloneMenuItem(item)
	return &created, nil
}

func (s *Store) UpdateMenuItem(_ context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if strings.TrimSpace(item.Name) == "" || item.Price < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.menuItems[item.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.menuItems[item.ID] = cloneMenuItem(item)
	updated := cloneMenuItem(item)
	return &updated, nil
}

func (s *Store) DeleteMenuItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.menuItems[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.menuItems, id)
	return nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := slices.Collect(maps.Values(s.suppliers))
	slices.SortFunc(result, func(a, b domain.Supplier) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if _, exists := s.suppliers[supplier.ID]; exists {
		return nil, store.ErrConflict
	}
	s.suppliers[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.suppliers[supplier.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.suppliers[supplier.ID] = supplier
	updated := supplier
	return &updated, nil
}

func (s *Store) DeleteSupplier(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.suppliers[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.suppliers, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		if !within(expense.Date, from, to) {
			continue
		}
		result = append(result, expense)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		return newestFirst(a.Date, b.Date, a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	if strings.TrimSpace(expense.Title) == "" || expense.Amount <= 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	s.expenses[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListSales(_ context.Context, filter store.SaleFilter) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if filter.ShiftID != "" && sale.ShiftID != filter.ShiftID {
			continue
		}
		if !within(sale.Timestamp, filter.From, filter.To) {
			continue
		}
		result = append(result, cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		return newestFirst(a.Timestamp, b.Timestamp, a.ID, b.ID)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.saleIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	dup := cloneSale(s.sales[idx])
	return &dup, nil
}

func (s *Store) CommitSale(_ context.Context, commit domain.SaleCommit) (*domain.Sale, error) {
	sale := commit.Sale
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range commit.NewMenuItems {
		if strings.TrimSpace(item.ID) == "" || strings.TrimSpace(item.Name) == "" {
			return nil, store.ErrInvalidInput
		}
		if _, exists := s.menuItems[item.ID]; exists {
			return nil, store.ErrConflict
		}
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if s.saleIndex(sale.ID) >= 0 {
		return nil, store.ErrConflict
	}
	if sale.Timestamp.IsZero() {
		sale.Timestamp = time.Now().UTC()
	}
	if sale.ShiftID == "" {
		if open := s.openShiftIndex(); open >= 0 {
			sale.ShiftID = s.shifts[open].ID
		}
	}

	// everything is validated, nothing below can fail
	for _, item := range commit.NewMenuItems {
		s.menuItems[item.ID] = cloneMenuItem(item)
	}
	for id, amount := range commit.InventoryDeductions {
		ing, ok := s.ingredients[id]
		if !ok {
			continue
		}
		ing.CurrentStock = costing.Deduct(ing.CurrentStock, amount)
		s.ingredients[id] = ing
	}
	for id, amount := range commit.PrepDeductions {
		task, ok := s.prepTasks[id]
		if !ok {
			continue
		}
		task.OnHand = costing.Deduct(task.OnHand, amount)
		s.prepTasks[id] = task
	}
	s.sales = append(s.sales, cloneSale(sale))
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) UpdateSaleStatus(_ context.Context, id string, status domain.SaleStatus) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.saleIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if !costing.CanTransition(s.sales[idx].Status, status) {
		return nil, store.ErrConflict
	}
	s.sales[idx].Status = status
	updated := cloneSale(s.sales[idx])
	return &updated, nil
}

func (s *Store) CommitProduction(_ context.Context, prepTaskID string, deductions map[string]float64, onHandDelta float64) (*domain.PrepTask, error) {
	if onHandDelta <= 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.prepTasks[prepTaskID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, amount := range deductions {
		ing, ok := s.ingredients[id]
		if !ok {
			continue
		}
		ing.CurrentStock = costing.Deduct(ing.CurrentStock, amount)
		s.ingredients[id] = ing
	}
	task.OnHand += onHandDelta
	s.prepTasks[prepTaskID] = task
	updated := clonePrepTask(task)
	return &updated, nil
}

func (s *Store) CommitWaste(_ context.Context, record domain.WasteRecord) (*domain.WasteRecord, error) {
	if record.Amount <= 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch record.ItemSource {
	case domain.SourcePrep:
		task, ok := s.prepTasks[record.ItemID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if record.Amount > task.OnHand {
			return nil, store.ErrInvalidInput
		}
		task.OnHand = costing.Deduct(task.OnHand, record.Amount)
		s.prepTasks[task.ID] = task
	default:
		ing, ok := s.ingredients[record.ItemID]
		if !ok {
			return nil, store.ErrNotFound
		}
		ing.CurrentStock = costing.Deduct(ing.CurrentStock, record.Amount)
		s.ingredients[ing.ID] = ing
	}

	if record.ID == "" {
		record.ID = xid.New("waste")
	}
	if record.Date.IsZero() {
		record.Date = time.Now().UTC()
	}
	s.waste = append(s.waste, record)
	created := record
	return &created, nil
}

func (s *Store) ListWaste(_ context.Context, from time.Time, to time.Time) ([]domain.WasteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.WasteRecord, 0, len(s.waste))
	for _, record := range s.waste {
		if within(record.Date, from, to) {
			result = append(result, record)
		}
	}
	slices.SortFunc(result, func(a, b domain.WasteRecord) int {
		return newestFirst(a.Date, b.Date, a.ID, b.ID)
	})
	return result, nil
}

func (s *Store) ReceiveStock(_ context.Context, invoice *domain.PurchaseInvoice, receipts []domain.StockReceipt) ([]domain.Ingredient, error) {
	if len(receipts) == 0 {
		return nil, store.ErrInvalidInput
	}
	if invoice != nil && len(invoice.Items) != len(receipts) {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// work on a staging copy so a bad receipt leaves inventory untouched
	staged := make(map[string]domain.Ingredient, len(receipts))
	result := make([]domain.Ingredient, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.Quantity <= 0 || receipt.CostPerUnit < 0 {
			return nil, store.ErrInvalidInput
		}
		var current domain.Ingredient
		switch {
		case receipt.IngredientID != "":
			ing, ok := staged[receipt.IngredientID]
			if !ok {
				ing, ok = s.ingredients[receipt.IngredientID]
			}
			if !ok {
				return nil, fmt.Errorf("%w: ingredient %s", store.ErrNotFound, receipt.IngredientID)
			}
			current = cloneIngredient(ing)
		case receipt.Template != nil && strings.TrimSpace(receipt.Template.Name) != "":
			current = cloneIngredient(*receipt.Template)
			current.ID = xid.New("ing")
			current.CurrentStock = 0
			current.CostPerUnit = 0
			current.PurchaseHistory = nil
		default:
			return nil, store.ErrInvalidInput
		}

		date := receipt.Date
		if date.IsZero() {
			date = time.Now().UTC()
		}
		updated := costing.ApplyPurchase(current, receipt.Quantity, receipt.CostPerUnit, date)
		staged[updated.ID] = updated
		result = append(result, updated)
	}

	var stored domain.PurchaseInvoice
	if invoice != nil {
		stored = cloneInvoice(*invoice)
		if stored.ID == "" {
			stored.ID = xid.New("inv")
		}
		if s.invoiceIndex(stored.ID) >= 0 {
			return nil, store.ErrConflict
		}
		for i := range stored.Items {
			stored.Items[i].IngredientID = result[i].ID
		}
	}

	for id, ing := range staged {
		s.ingredients[id] = ing
	}
	if invoice != nil {
		s.invoices = append(s.invoices, stored)
		*invoice = cloneInvoice(stored)
	}
	out := make([]domain.Ingredient, len(result))
	for i, ing := range result {
		out[i] = cloneIngredient(staged[ing.ID])
	}
	return out, nil
}

func (s *Store) ListInvoices(_ context.Context, limit int) ([]domain.PurchaseInvoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PurchaseInvoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		result = append(result, cloneInvoice(inv))
	}
	slices.SortFunc(result, func(a, b domain.PurchaseInvoice) int {
		return newestFirst(a.InvoiceDate, b.InvoiceDate, a.ID, b.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) UpdateInvoiceStatus(_ context.Context, id string, status domain.InvoiceStatus) (*domain.PurchaseInvoice, error) {
	if status != domain.InvoicePaid && status != domain.InvoiceUnpaid {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.invoiceIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	s.invoices[idx].Status = status
	updated := cloneInvoice(s.invoices[idx])
	return &updated, nil
}

func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.StartingCash < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openShiftIndex() >= 0 {
		return nil, store.ErrConflict
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.EndTime = nil

	s.shifts = append(s.shifts, shift)
	created := cloneShift(shift)
	return &created, nil
}

func (s *Store) GetOpenShift(_ context.Context) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.openShiftIndex()
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	open := cloneShift(s.shifts[idx])
	return &open, nil
}

func (s *Store) CloseShift(_ context.Context, id string, actualCash float64, bankDeposit float64, at time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.shifts {
		if s.shifts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	closed, err := costing.CloseShift(s.shifts[idx], s.sales, actualCash, bankDeposit, at)
	if err != nil {
		return nil, store.ErrConflict
	}
	s.shifts[idx] = closed
	result := cloneShift(closed)
	return &result, nil
}

func (s *Store) ListShifts(_ context.Context, limit int) ([]domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Shift, 0, len(s.shifts))
	for _, shift := range s.shifts {
		result = append(result, cloneShift(shift))
	}
	slices.SortFunc(result, func(a, b domain.Shift) int {
		return newestFirst(a.StartTime, b.StartTime, a.ID, b.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.PIN) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.Name == "" {
		user.Name = username
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := slices.Collect(maps.Values(s.usersByUsername))
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPIN(_ context.Context, username string, pinHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(pinHash) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.PIN = pinHash
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) SetUserActive(_ context.Context, username string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Active = active
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if within(entry.Timestamp, from, to) {
			result = append(result, entry)
		}
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		return newestFirst(a.Timestamp, b.Timestamp, a.ID, b.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) saleIndex(id string) int {
	for i := range s.sales {
		if s.sales[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) invoiceIndex(id string) int {
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) openShiftIndex() int {
	for i := range s.shifts {
		if s.shifts[i].Status == domain.ShiftStatusOpen {
			return i
		}
	}
	return -1
}

// within reports whether at falls in [from, to). Zero bounds are open.
func within(at time.Time, from time.Time, to time.Time) bool {
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && !at.Before(to) {
		return false
	}
	return true
}

func newestFirst(a time.Time, b time.Time, aID string, bID string) int {
	if a.Equal(b) {
		return strings.Compare(bID, aID)
	}
	if a.After(b) {
		return -1
	}
	return 1
}

func cloneIngredient(src domain.Ingredient) domain.Ingredient {
	dup := src
	dup.PurchaseHistory = slices.Clone(src.PurchaseHistory)
	return dup
}

func clonePrepTask(src domain.PrepTask) domain.PrepTask {
	dup := src
	dup.Recipe = slices.Clone(src.Recipe)
	return dup
}

func cloneMenuItem(src domain.MenuItem) domain.MenuItem {
	dup := src
	dup.Recipe = slices.Clone(src.Recipe)
	if dup.Recipe == nil {
		dup.Recipe = []domain.RecipeIngredient{}
	}
	return dup
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	dup.Items = slices.Clone(src.Items)
	return dup
}

func cloneInvoice(src domain.PurchaseInvoice) domain.PurchaseInvoice {
	dup := src
	dup.Items = slices.Clone(src.Items)
	return dup
}

func cloneShift(src domain.Shift) domain.Shift {
	dup := src
	if src.EndTime != nil {
		end := *src.EndTime
		dup.EndTime = &end
	}
	return dup
}

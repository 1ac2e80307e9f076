package store

import (
	"context"
	"errors"
	"time"

	"foodyar/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// SaleFilter bounds a sales listing. Zero times are open ends and a zero
// Limit means no limit.
type SaleFilter struct {
	From    time.Time
	To      time.Time
	ShiftID string
	Limit   int
}

type Repository interface {
	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	GetIngredient(ctx context.Context, id string) (*domain.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	DeleteIngredient(ctx context.Context, id string) error

	ListPrepTasks(ctx context.Context) ([]domain.PrepTask, error)
	GetPrepTask(ctx context.Context, id string) (*domain.PrepTask, error)
	CreatePrepTask(ctx context.Context, task domain.PrepTask) (*domain.PrepTask, error)
	UpdatePrepTask(ctx context.Context, task domain.PrepTask) (*domain.PrepTask, error)
	DeletePrepTask(ctx context.Context, id string) error

	ListMenuItems(ctx context.Context) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	ListExpenses(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error

	ListSales(ctx context.Context, filter SaleFilter) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	// CommitSale stores the sale, any menu items created alongside it and
	// applies both deduction maps. The sale is tagged with the open shift
	// when it carries no shift id and one is open. Nothing is written when
	// any step fails.
	CommitSale(ctx context.Context, commit domain.SaleCommit) (*domain.Sale, error)
	UpdateSaleStatus(ctx context.Context, id string, status domain.SaleStatus) (*domain.Sale, error)

	CommitProduction(ctx context.Context, prepTaskID string, deductions map[string]float64, onHandDelta float64) (*domain.PrepTask, error)
	CommitWaste(ctx context.Context, record domain.WasteRecord) (*domain.WasteRecord, error)
	ListWaste(ctx context.Context, from time.Time, to time.Time) ([]domain.WasteRecord, error)

	// ReceiveStock applies every receipt as a weighted-average purchase. When
	// invoice is not nil it is stored in the same transaction and must have
	// one item per receipt; item ingredient ids are filled from the receipts.
	ReceiveStock(ctx context.Context, invoice *domain.PurchaseInvoice, receipts []domain.StockReceipt) ([]domain.Ingredient, error)
	ListInvoices(ctx context.Context, limit int) ([]domain.PurchaseInvoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, status domain.InvoiceStatus) (*domain.PurchaseInvoice, error)

	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetOpenShift(ctx context.Context) (*domain.Shift, error)
	// CloseShift settles the open shift against the sales tagged with it.
	CloseShift(ctx context.Context, id string, actualCash float64, bankDeposit float64, at time.Time) (*domain.Shift, error)
	ListShifts(ctx context.Context, limit int) ([]domain.Shift, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPIN(ctx context.Context, username string, pinHash string) error
	SetUserActive(ctx context.Context, username string, active bool) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/store"
)

func TestSeededStoreHasDemoRestaurant(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	ingredients, _ := s.ListIngredients(ctx)
	menu, _ := s.ListMenuItems(ctx)
	users, _ := s.ListUsers(ctx)
	if len(ingredients) != 7 || len(menu) != 3 || len(users) != 3 {
		t.Fatalf("unexpected seed sizes: %d ingredients, %d menu items, %d users", len(ingredients), len(menu), len(users))
	}
	if _, err := s.GetOpenShift(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no open shift in seed, got %v", err)
	}
	shifts, _ := s.ListShifts(ctx, 0)
	if len(shifts) != 1 || shifts[0].Status != domain.ShiftStatusClosed {
		t.Fatalf("expected one closed seed shift, got %+v", shifts)
	}
}

func TestCommitSaleRejectsConflictWithoutPartialWrites(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	before, _ := s.GetIngredient(ctx, "ing1")
	_, err := s.CommitSale(ctx, domain.SaleCommit{
		Sale:                domain.Sale{Items: []domain.SaleItem{{MenuItemID: "menu1", Quantity: 1}}},
		NewMenuItems:        []domain.MenuItem{{ID: "menu1", Name: "Duplicate"}},
		InventoryDeductions: map[string]float64{"ing1": 1},
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	after, _ := s.GetIngredient(ctx, "ing1")
	if after.CurrentStock != before.CurrentStock {
		t.Fatalf("expected stock untouched, got %v -> %v", before.CurrentStock, after.CurrentStock)
	}
	sales, _ := s.ListSales(ctx, store.SaleFilter{})
	if len(sales) != 2 {
		t.Fatalf("expected only the seed sales, got %d", len(sales))
	}
}

func TestCommitSaleTagsOpenShift(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	shift, err := s.CreateShift(ctx, domain.Shift{StartingCash: 500000})
	if err != nil {
		t.Fatalf("create shift: %v", err)
	}
	sale, err := s.CommitSale(ctx, domain.SaleCommit{
		Sale: domain.Sale{Items: []domain.SaleItem{{MenuItemID: "menu2", Quantity: 1}}, TotalAmount: 75000, PaymentMethod: domain.PaymentCash},
	})
	if err != nil {
		t.Fatalf("commit sale: %v", err)
	}
	if sale.ShiftID != shift.ID {
		t.Fatalf("expected sale tagged with %s, got %q", shift.ID, sale.ShiftID)
	}

	closed, err := s.CloseShift(ctx, shift.ID, 575000, 0, time.Now().UTC())
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if closed.CashSales != 75000 || closed.Discrepancy != 0 {
		t.Fatalf("unexpected z-report: %+v", closed)
	}
}

func TestReceiveStockFailsAtomically(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	before, _ := s.GetIngredient(ctx, "ing7")
	_, err := s.ReceiveStock(ctx, nil, []domain.StockReceipt{
		{IngredientID: "ing7", Quantity: 10, CostPerUnit: 30000},
		{IngredientID: "missing", Quantity: 1, CostPerUnit: 1},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	after, _ := s.GetIngredient(ctx, "ing7")
	if after.CurrentStock != before.CurrentStock || after.CostPerUnit != before.CostPerUnit {
		t.Fatalf("expected milk untouched, got %+v", after)
	}
}

func TestReceiveStockCreatesIngredientAndFillsInvoice(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	invoice := &domain.PurchaseInvoice{
		InvoiceDate: time.Now().UTC(),
		Status:      domain.InvoiceUnpaid,
		Items:       []domain.InvoiceLine{{Name: "Saffron", Quantity: 0.1, Unit: domain.UnitGram, CostPerUnit: 900000}},
		TotalAmount: 90000,
	}
	updated, err := s.ReceiveStock(ctx, invoice, []domain.StockReceipt{{
		Template:    &domain.Ingredient{Name: "Saffron", Unit: domain.UnitGram},
		Quantity:    0.1,
		CostPerUnit: 900000,
	}})
	if err != nil {
		t.Fatalf("receive stock: %v", err)
	}
	if updated[0].ID == "" || invoice.Items[0].IngredientID != updated[0].ID {
		t.Fatalf("expected invoice line linked to new ingredient, got %+v / %+v", invoice.Items[0], updated[0])
	}
	if updated[0].CostPerUnit != 900000 {
		t.Fatalf("expected incoming cost on empty stock, got %v", updated[0].CostPerUnit)
	}
	invoices, _ := s.ListInvoices(ctx, 0)
	if len(invoices) != 1 {
		t.Fatalf("expected stored invoice, got %d", len(invoices))
	}
}

func TestCommitWastePrepCannotExceedOnHand(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CommitWaste(ctx, domain.WasteRecord{ItemID: "prep1", ItemSource: domain.SourcePrep, Amount: 2})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	task, _ := s.GetPrepTask(ctx, "prep1")
	if task.OnHand != 1.5 {
		t.Fatalf("expected on hand untouched, got %v", task.OnHand)
	}
}

func TestUpdateSaleStatusIsForwardOnly(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.UpdateSaleStatus(ctx, "sale1", domain.SaleStatusPending); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict moving delivered back to pending, got %v", err)
	}
	if _, err := s.UpdateSaleStatus(ctx, "missing", domain.SaleStatusReady); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"foodyar/backend/internal/advisor"
	"foodyar/backend/internal/cache"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/realtime"
	"foodyar/backend/internal/store"
	"foodyar/backend/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []realtime.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.EventType, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

func (p *recordingPublisher) has(eventType realtime.EventType) bool {
	for _, t := range p.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

type stubOracle struct {
	advisor.Unavailable
	adviceCalls int
	extraction  advisor.InvoiceExtraction
	sales       domain.ProcessedSales
	lastCSV     string
}

func (o *stubOracle) Advice(_ context.Context, question string, _ advisor.BusinessContext) (string, error) {
	o.adviceCalls++
	return "answer to " + question, nil
}

func (o *stubOracle) ExtractInvoice(context.Context, []byte, string) (advisor.InvoiceExtraction, error) {
	return o.extraction, nil
}

func (o *stubOracle) ProcessSales(_ context.Context, csv string, _ []domain.MenuItem) (domain.ProcessedSales, error) {
	o.lastCSV = csv
	return o.sales, nil
}

type fixture struct {
	svc    *Service
	repo   *memory.Store
	events *recordingPublisher
	oracle *stubOracle
}

func newTestService() fixture {
	repo := memory.NewSeeded()
	events := &recordingPublisher{}
	oracle := &stubOracle{}
	svc := New(repo, nil, Options{
		Oracle: oracle,
		Cache:  cache.NewMemory(),
		Events: events,
	})
	return fixture{svc: svc, repo: repo, events: events, oracle: oracle}
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "manager", Role: domain.RoleManager})
}

func near(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func stockOf(t *testing.T, f fixture, id string) float64 {
	t.Helper()
	ing, err := f.repo.GetIngredient(context.Background(), id)
	if err != nil {
		t.Fatalf("get ingredient %s: %v", id, err)
	}
	return ing.CurrentStock
}

func TestCheckoutCommitsSaleAndDeductsStock(t *testing.T) {
	f := newTestService()
	ctx := managerCtx()

	resp, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		CartItems:     []domain.CartItem{{MenuItemID: "menu1", Quantity: 2}},
		IncludeTax:    true,
		PaymentMethod: domain.PaymentCash,
		TableNumber:   " 4 ",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Subtotal != 360000 || resp.Sale.Tax != 32400 || resp.Sale.TotalAmount != 392400 {
		t.Fatalf("unexpected totals %+v", resp)
	}
	if resp.Sale.TotalCost != 176500 || resp.Profit != 183500 {
		t.Fatalf("unexpected cost or profit: cost=%v profit=%v", resp.Sale.TotalCost, resp.Profit)
	}
	if resp.Sale.Status != domain.SaleStatusPending || resp.Sale.TableNumber != "4" {
		t.Fatalf("unexpected sale %+v", resp.Sale)
	}
	if got := stockOf(t, f, "ing1"); !near(got, 24.7) {
		t.Fatalf("expected beef 24.7 kg, got %v", got)
	}
	if got := stockOf(t, f, "ing2"); !near(got, 98) {
		t.Fatalf("expected 98 buns, got %v", got)
	}
	if !f.events.has(realtime.EventSaleCreated) {
		t.Fatalf("expected sale.created event, got %v", f.events.types())
	}

	logs, err := f.svc.ListAuditLogs(ctx, time.Time{}, time.Time{}, 10)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) == 0 || logs[0].Action != domain.AuditSale || logs[0].Username != "manager" {
		t.Fatalf("expected SALE audit entry, got %+v", logs)
	}
}

func TestCheckoutUsesConfiguredTaxRate(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(repo, nil, Options{TaxRatePercent: 10})

	resp, err := svc.Checkout(context.Background(), domain.CheckoutRequest{
		CartItems:  []domain.CartItem{{MenuItemID: "menu3", Quantity: 1}},
		IncludeTax: true,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.Sale.Tax != 8500 || resp.Sale.PaymentMethod != domain.PaymentCash {
		t.Fatalf("expected 10%% tax on cash sale, got %+v", resp.Sale)
	}
}

func TestCheckoutRejectsBadCartWithoutSideEffects(t *testing.T) {
	f := newTestService()
	ctx := context.Background()
	before, _ := f.repo.ListSales(ctx, store.SaleFilter{})

	_, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		CartItems: []domain.CartItem{{MenuItemID: "menu1", Quantity: 1}, {MenuItemID: "ghost", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = f.svc.Checkout(ctx, domain.CheckoutRequest{
		CartItems: []domain.CartItem{{MenuItemID: "menu1", Quantity: 0}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	_, err = f.svc.Checkout(ctx, domain.CheckoutRequest{
		CartItems:     []domain.CartItem{{MenuItemID: "menu1", Quantity: 1}},
		PaymentMethod: "barter",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for payment method, got %v", err)
	}

	after, _ := f.repo.ListSales(ctx, store.SaleFilter{})
	if len(after) != len(before) {
		t.Fatalf("expected no new sales, had %d now %d", len(before), len(after))
	}
	if got := stockOf(t, f, "ing1"); got != 25 {
		t.Fatalf("expected beef untouched, got %v", got)
	}
}

func TestCheckoutAnnouncesLowStock(t *testing.T) {
	f := newTestService()

	_, err := f.svc.Checkout(context.Background(), domain.CheckoutRequest{
		CartItems: []domain.CartItem{{MenuItemID: "menu3", Quantity: 26}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !f.events.has(realtime.EventStockLow) {
		t.Fatalf("expected stock.low once milk drops under threshold, got %v", f.events.types())
	}
}

func TestShiftLifecycleBalancesCash(t *testing.T) {
	f := newTestService()
	ctx := managerCtx()

	opened, err := f.svc.OpenShift(ctx, domain.ShiftOpenRequest{StartingCash: 1000000})
	if err != nil {
		t.Fatalf("open shift: %v", err)
	}
	if opened.Shift.OperatorName != "manager" {
		t.Fatalf("expected operator from actor, got %q", opened.Shift.OperatorName)
	}
	if _, err := f.svc.OpenShift(ctx, domain.ShiftOpenRequest{}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for second shift, got %v", err)
	}

	cash, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		CartItems:  []domain.CartItem{{MenuItemID: "menu3", Quantity: 1}},
		IncludeTax: true,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if cash.Sale.ShiftID != opened.Shift.ID {
		t.Fatalf("expected sale tagged with %s, got %q", opened.Shift.ID, cash.Sale.ShiftID)
	}
	if _, err := f.svc.Checkout(ctx, domain.CheckoutRequest{
		CartItems:     []domain.CartItem{{MenuItemID: "menu2", Quantity: 1}},
		PaymentMethod: domain.PaymentCard,
	}); err != nil {
		t.Fatalf("card checkout: %v", err)
	}

	current, err := f.svc.CurrentShift(ctx)
	if err != nil {
		t.Fatalf("current shift: %v", err)
	}
	if current.Shift.CashSales != 92650 || current.Shift.CardSales != 75000 {
		t.Fatalf("unexpected running totals %+v", current.Shift)
	}

	closed, err := f.svc.CloseShift(ctx, domain.ShiftCloseRequest{ActualCash: 1092650, BankDeposit: 500000})
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if closed.Shift.Status != domain.ShiftStatusClosed || closed.Shift.Discrepancy != 0 || closed.Shift.ExpectedCashSales != 1092650 {
		t.Fatalf("unexpected z-report %+v", closed.Shift)
	}
	if !f.events.has(realtime.EventShiftClosed) {
		t.Fatalf("expected shift.closed event")
	}
	if _, err := f.svc.CloseShift(ctx, domain.ShiftCloseRequest{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no open shift, got %v", err)
	}
}

func TestSaleStatusMovesForwardOnly(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	resp, err := f.svc.Checkout(ctx, domain.CheckoutRequest{CartItems: []domain.CartItem{{MenuItemID: "menu2", Quantity: 1}}})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := f.svc.UpdateSaleStatus(ctx, resp.Sale.ID, domain.SaleStatusRequest{Status: domain.SaleStatusReady}); err != nil {
		t.Fatalf("advance status: %v", err)
	}
	if _, err := f.svc.UpdateSaleStatus(ctx, resp.Sale.ID, domain.SaleStatusRequest{Status: domain.SaleStatusPreparing}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict moving backwards, got %v", err)
	}
	if _, err := f.svc.UpdateSaleStatus(ctx, resp.Sale.ID, domain.SaleStatusRequest{Status: "lost"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
	if !f.events.has(realtime.EventSaleStatus) {
		t.Fatalf("expected sale.status event")
	}
}

func TestRestockAveragesCost(t *testing.T) {
	f := newTestService()

	ing, err := f.svc.Restock(context.Background(), "ing1", domain.RestockRequest{Quantity: 25, CostPerUnit: 550000})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if ing.CurrentStock != 50 || ing.CostPerUnit != 500000 {
		t.Fatalf("expected 50 kg at 500000, got %v at %v", ing.CurrentStock, ing.CostPerUnit)
	}
	if len(ing.PurchaseHistory) != 2 {
		t.Fatalf("expected two purchase lots, got %d", len(ing.PurchaseHistory))
	}
	if _, err := f.svc.Restock(context.Background(), "ing1", domain.RestockRequest{Quantity: 0, CostPerUnit: 1}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateIngredientBooksOpeningStock(t *testing.T) {
	f := newTestService()

	ing, err := f.svc.CreateIngredient(context.Background(), domain.IngredientCreateRequest{
		Name: "Saffron", Unit: domain.UnitGram, CurrentStock: 10, CostPerUnit: 90000, MinThreshold: 2,
	})
	if err != nil {
		t.Fatalf("create ingredient: %v", err)
	}
	if ing.ID == "" || ing.CurrentStock != 10 || ing.CostPerUnit != 90000 || len(ing.PurchaseHistory) != 1 {
		t.Fatalf("unexpected ingredient %+v", ing)
	}
	if _, err := f.svc.CreateIngredient(context.Background(), domain.IngredientCreateRequest{Name: "Salt", Unit: "bucket"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown unit, got %v", err)
	}
}

func TestPrepRecipeAndProduction(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	task, err := f.svc.SavePrepRecipe(ctx, "prep1", domain.PrepRecipeRequest{
		Recipe:    []domain.RecipeIngredient{{IngredientID: "ing4", Amount: 1000, Unit: domain.UnitGram}},
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("save recipe: %v", err)
	}
	if task.CostPerUnit != 12500 || task.Recipe[0].Source != domain.SourceInventory {
		t.Fatalf("unexpected prep task %+v", task)
	}

	resp, err := f.svc.Produce(ctx, "prep1", domain.ProduceRequest{Batches: 1})
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if resp.PrepTask.OnHand != 3.5 || resp.OnHandDelta != 2 {
		t.Fatalf("expected on hand 3.5, got %+v", resp)
	}
	if got := stockOf(t, f, "ing4"); !near(got, 14) {
		t.Fatalf("expected tomato 14 kg, got %v", got)
	}
	if !f.events.has(realtime.EventPrepProduced) {
		t.Fatalf("expected prep.produced event")
	}

	if _, err := f.svc.Produce(ctx, "prep1", domain.ProduceRequest{Batches: 0}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero batches, got %v", err)
	}
	if _, err := f.svc.SavePrepRecipe(ctx, "prep1", domain.PrepRecipeRequest{
		Recipe:    []domain.RecipeIngredient{{IngredientID: "prep2", Amount: 1, Unit: domain.UnitLiter, Source: domain.SourcePrep}},
		BatchSize: 1,
	}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected prep-in-prep recipe to be rejected, got %v", err)
	}
}

func TestRecordWaste(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	record, err := f.svc.RecordWaste(ctx, domain.WasteRequest{ItemID: "ing4", Amount: 2, Reason: "bruised"})
	if err != nil {
		t.Fatalf("record waste: %v", err)
	}
	if record.CostLoss != 50000 || record.ItemSource != domain.SourceInventory || record.ItemName != "Tomato" {
		t.Fatalf("unexpected waste record %+v", record)
	}
	if got := stockOf(t, f, "ing4"); got != 13 {
		t.Fatalf("expected tomato 13 kg, got %v", got)
	}

	_, err = f.svc.RecordWaste(ctx, domain.WasteRequest{ItemID: "prep2", ItemSource: domain.SourcePrep, Amount: 10})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput wasting more prep than on hand, got %v", err)
	}
	prep, err := f.svc.RecordWaste(ctx, domain.WasteRequest{ItemID: "prep2", ItemSource: domain.SourcePrep, Amount: 1})
	if err != nil {
		t.Fatalf("record prep waste: %v", err)
	}
	if prep.CostLoss != 50000 {
		t.Fatalf("expected prep loss 50000, got %v", prep.CostLoss)
	}
}

func TestCreateInvoiceReceivesStock(t *testing.T) {
	f := newTestService()
	ctx := context.Background()
	before, _ := f.repo.ListIngredients(ctx)

	invoice, err := f.svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
		SupplierID:    "sup2",
		InvoiceNumber: "F-1001",
		Items: []domain.InvoiceLine{
			{IngredientID: "ing5", Quantity: 50, CostPerUnit: 22000},
			{Name: "Red Onion", Quantity: 10, Unit: "kilo", CostPerUnit: 30000},
		},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if invoice.TotalAmount != 1400000 || invoice.Status != domain.InvoiceUnpaid {
		t.Fatalf("unexpected invoice %+v", invoice)
	}
	if invoice.Items[0].Name != "Potato" || invoice.Items[1].IngredientID == "" || invoice.Items[1].Unit != domain.UnitKilogram {
		t.Fatalf("expected lines linked to ingredients, got %+v", invoice.Items)
	}

	after, _ := f.repo.ListIngredients(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("expected one new ingredient, had %d now %d", len(before), len(after))
	}
	potato, _ := f.repo.GetIngredient(ctx, "ing5")
	if potato.CurrentStock != 100 || potato.CostPerUnit != 20000 {
		t.Fatalf("expected potato 100 kg at 20000, got %v at %v", potato.CurrentStock, potato.CostPerUnit)
	}

	paid, err := f.svc.MarkInvoicePaid(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.InvoicePaid {
		t.Fatalf("expected paid invoice, got %s", paid.Status)
	}
}

func TestCreateInvoiceRejectsBadLineAtomically(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	_, err := f.svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
		Items: []domain.InvoiceLine{
			{IngredientID: "ing5", Quantity: 50, CostPerUnit: 22000},
			{Name: "Mystery", Quantity: 1, Unit: "crate", CostPerUnit: 1},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := stockOf(t, f, "ing5"); got != 50 {
		t.Fatalf("expected potato untouched, got %v", got)
	}
}

func TestExtractInvoiceMatchesInventory(t *testing.T) {
	f := newTestService()
	f.oracle.extraction = advisor.InvoiceExtraction{
		InvoiceDate: "2026-03-01",
		Items: []advisor.ExtractedLine{
			{Name: "tomato", Quantity: 5, Unit: "kg", CostPerUnit: 26000},
			{Name: "Basil", Quantity: 200, Unit: "g", CostPerUnit: 300},
		},
	}

	draft, err := f.svc.ExtractInvoice(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if draft.InvoiceDate == nil || draft.InvoiceDate.Day() != 1 {
		t.Fatalf("expected parsed invoice date, got %v", draft.InvoiceDate)
	}
	if draft.Items[0].IsNew || draft.Items[0].MatchedID != "ing4" || !draft.Items[1].IsNew {
		t.Fatalf("unexpected matching %+v", draft.Items)
	}
	if _, err := f.svc.ExtractInvoice(context.Background(), []byte("x"), "text/plain"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for text upload, got %v", err)
	}
}

func TestImportSalesCreatesItemsAndConvertsCurrency(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	resp, err := f.svc.ImportSales(ctx, domain.SalesImportRequest{
		Currency: "rial",
		Data: domain.ProcessedSales{
			ProcessedSales: []domain.ImportedSaleLine{
				{ItemName: "latte", Quantity: 2, PricePerItem: 850000},
				{ItemName: "Saffron Tea", Quantity: 1, PricePerItem: 500000},
			},
			NewItemsFound: []domain.ImportedMenuItem{{Name: "Saffron Tea", Price: 500000, Category: "drinks"}},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if resp.Sale == nil || resp.Sale.TotalAmount != 220000 || resp.Sale.Status != domain.SaleStatusDelivered || resp.Sale.PaymentMethod != domain.PaymentCard {
		t.Fatalf("unexpected imported sale %+v", resp.Sale)
	}
	if len(resp.NewMenuItems) != 1 || resp.NewMenuItems[0].Price != 50000 || resp.NewMenuItems[0].Category != "drinks" {
		t.Fatalf("unexpected new items %+v", resp.NewMenuItems)
	}
	menu, _ := f.repo.ListMenuItems(ctx)
	if len(menu) != 4 {
		t.Fatalf("expected 4 menu items, got %d", len(menu))
	}
	if got := stockOf(t, f, "ing7"); !near(got, 9.6) {
		t.Fatalf("expected milk 9.6 l, got %v", got)
	}

	_, err = f.svc.ImportSales(ctx, domain.SalesImportRequest{Data: domain.ProcessedSales{
		ProcessedSales: []domain.ImportedSaleLine{{ItemName: "Latte", Quantity: 0, PricePerItem: 1}},
	}})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero quantity, got %v", err)
	}
}

func TestPreviewSalesImportSendsCSV(t *testing.T) {
	f := newTestService()
	f.oracle.sales = domain.ProcessedSales{ProcessedSales: []domain.ImportedSaleLine{{ItemName: "Latte", Quantity: 1, PricePerItem: 85000}}}

	got, err := f.svc.PreviewSalesImport(context.Background(), "day.csv", strings.NewReader("item,qty\nLatte,1\n"))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(got.ProcessedSales) != 1 || !strings.Contains(f.oracle.lastCSV, "Latte,1") {
		t.Fatalf("unexpected preview %+v csv=%q", got, f.oracle.lastCSV)
	}
	if _, err := f.svc.PreviewSalesImport(context.Background(), "day.docx", strings.NewReader("x")); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for docx, got %v", err)
	}
}

func TestAskCachesAnswers(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, domain.AdviceRequest{Question: "How do I cut waste?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	second, err := f.svc.Ask(ctx, domain.AdviceRequest{Question: "How do I cut waste?"})
	if err != nil {
		t.Fatalf("ask again: %v", err)
	}
	if first.Cached || !second.Cached || second.Answer != first.Answer || f.oracle.adviceCalls != 1 {
		t.Fatalf("expected second answer from cache, got %+v %+v calls=%d", first, second, f.oracle.adviceCalls)
	}
	if _, err := f.svc.Ask(ctx, domain.AdviceRequest{Question: "  "}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAdviceCacheKeyDependsOnSnapshot(t *testing.T) {
	calm, err := adviceCacheKey("How do I cut waste?", advisor.BusinessContext{Revenue: 100})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	busy, err := adviceCacheKey("how do i cut waste?", advisor.BusinessContext{Revenue: 900})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if calm == busy {
		t.Fatalf("expected different snapshots to produce different keys")
	}
	if _, err := adviceCacheKey("How do I cut waste?", advisor.BusinessContext{Revenue: math.NaN()}); err == nil {
		t.Fatalf("expected an error for a snapshot that cannot be encoded")
	}
}

func TestAdvisorUnavailableWithoutOracle(t *testing.T) {
	svc := New(memory.NewSeeded(), nil, Options{})
	if _, err := svc.DailySpecial(context.Background()); !errors.Is(err, advisor.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
}

func TestExpensesRequireManager(t *testing.T) {
	f := newTestService()

	_, err := f.svc.CreateExpense(context.Background(), domain.Expense{Title: "Gas bill", Amount: 1200000, Category: domain.ExpenseUtilities})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	chef := WithActor(context.Background(), domain.Actor{Username: "chef", Role: domain.RoleChef})
	if _, err := f.svc.CreateExpense(chef, domain.Expense{Title: "Gas bill", Amount: 1}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for chef, got %v", err)
	}

	created, err := f.svc.CreateExpense(managerCtx(), domain.Expense{Title: "Gas bill", Amount: 1200000, Category: domain.ExpenseUtilities})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if created.ID == "" || created.Date.IsZero() {
		t.Fatalf("expected id and date, got %+v", created)
	}
	if _, err := f.svc.CreateExpense(managerCtx(), domain.Expense{Title: "Party", Amount: 1, Category: "fun"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for category, got %v", err)
	}
}

func TestProfitAndLossCoversSeedMonth(t *testing.T) {
	f := newTestService()
	now := time.Now().UTC()

	report, err := f.svc.ProfitAndLoss(context.Background(), now.AddDate(0, -2, 0), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("p&l: %v", err)
	}
	if report.SalesCount != 2 || report.Revenue <= 0 || report.COGS <= 0 {
		t.Fatalf("unexpected sales figures %+v", report)
	}
	if report.OperatingExpenses != 35000000 || report.WasteLoss != 12500 {
		t.Fatalf("unexpected expenses or waste %+v", report)
	}
	want := report.GrossProfit - report.WasteLoss - report.OperatingExpenses
	if !near(report.NetProfit, want) {
		t.Fatalf("net profit %v, want %v", report.NetProfit, want)
	}
	if _, err := f.svc.ProfitAndLoss(context.Background(), now, now.Add(-time.Hour)); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted range, got %v", err)
	}
}

func TestDashboardCountsToday(t *testing.T) {
	f := newTestService()
	ctx := context.Background()
	if _, err := f.svc.Checkout(ctx, domain.CheckoutRequest{CartItems: []domain.CartItem{{MenuItemID: "menu2", Quantity: 2}}}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	summary, err := f.svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.SalesCount != 1 || summary.Revenue != 150000 {
		t.Fatalf("unexpected dashboard %+v", summary)
	}
	if summary.PrepShortfall != 2 || summary.OpenShiftID != "" {
		t.Fatalf("unexpected prep or shift figures %+v", summary)
	}
}

func TestMenuCostReportsIssues(t *testing.T) {
	f := newTestService()
	ctx := context.Background()

	created, err := f.svc.CreateMenuItem(ctx, domain.MenuItemRequest{
		Name:  "Onion Burger",
		Price: 210000,
		Recipe: []domain.RecipeIngredient{
			{IngredientID: "ing1", Amount: 150, Unit: domain.UnitGram},
			{IngredientID: "prep2", Amount: 50, Unit: domain.UnitMilliliter, Source: domain.SourcePrep},
			{IngredientID: "ing-gone", Amount: 1, Unit: domain.UnitNumber},
		},
	})
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	if created.Cost != 70000 {
		t.Fatalf("expected cost 70000, got %v", created.Cost)
	}

	report, err := f.svc.MenuCost(ctx, created.ID)
	if err != nil {
		t.Fatalf("menu cost: %v", err)
	}
	if len(report.Breakdown.Lines) != 3 || len(report.Issues) != 1 || report.Issues[0].IngredientID != "ing-gone" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestStaffManagement(t *testing.T) {
	f := newTestService()
	ctx := managerCtx()

	created, err := f.svc.CreateStaff(ctx, domain.StaffCreateRequest{Username: " Sara ", Name: "Sara", PIN: "4821", Role: domain.RoleChef})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if created.Username != "sara" || !created.Active {
		t.Fatalf("unexpected staff %+v", created)
	}
	if _, err := f.svc.CreateStaff(ctx, domain.StaffCreateRequest{Username: "sara", PIN: "4821", Role: domain.RoleChef}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate, got %v", err)
	}
	if _, err := f.svc.CreateStaff(ctx, domain.StaffCreateRequest{Username: "omid", PIN: "12ab", Role: domain.RoleCashier}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for pin, got %v", err)
	}
	if _, err := f.svc.CreateStaff(ctx, domain.StaffCreateRequest{Username: "omid", PIN: "1234", Role: "owner"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for role, got %v", err)
	}
	if err := f.svc.SetStaffActive(ctx, "manager", false); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected self deactivation to fail, got %v", err)
	}
	if err := f.svc.SetStaffActive(ctx, "sara", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	staff, err := f.svc.ListStaff(ctx)
	if err != nil {
		t.Fatalf("list staff: %v", err)
	}
	if len(staff) != 4 {
		t.Fatalf("expected 4 staff, got %d", len(staff))
	}
	for _, user := range staff {
		if user.Username == "sara" && user.Active {
			t.Fatalf("expected sara inactive")
		}
	}
	if _, err := f.svc.ListStaff(context.Background()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden without actor, got %v", err)
	}
}

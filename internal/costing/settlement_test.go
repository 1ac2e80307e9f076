package costing

import (
	"errors"
	"testing"
	"time"

	"foodyar/backend/internal/domain"
)

func plainItem(id string, price float64) domain.MenuItem {
	return domain.MenuItem{ID: id, Name: id, Price: price}
}

func TestSettleAmountDiscountWithoutTax(t *testing.T) {
	settlement, err := Settle([]CartLine{{Item: plainItem("burger", 180000), Quantity: 2}}, SettleOptions{
		Discount:     10,
		DiscountType: domain.DiscountAmount,
	}, sampleCatalog())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settlement.Subtotal != 360000 || settlement.DiscountAmount != 10 || settlement.Total != 359990 {
		t.Fatalf("unexpected totals %+v", settlement)
	}
	if settlement.Tax != 0 || settlement.Sale.TotalAmount != 359990 {
		t.Fatalf("unexpected sale totals %+v", settlement.Sale)
	}
}

func TestSettleClampsPercentDiscount(t *testing.T) {
	settlement, err := Settle([]CartLine{{Item: plainItem("latte", 85000), Quantity: 1}}, SettleOptions{
		Discount:     150,
		DiscountType: domain.DiscountPercent,
		IncludeTax:   true,
	}, sampleCatalog())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settlement.DiscountAmount != settlement.Subtotal {
		t.Fatalf("expected discount to equal subtotal, got %v vs %v", settlement.DiscountAmount, settlement.Subtotal)
	}
	if settlement.Total != 0 || settlement.Tax != 0 {
		t.Fatalf("expected zero total and tax, got %v / %v", settlement.Total, settlement.Tax)
	}
}

func TestSettleAmountDiscountCannotExceedSubtotal(t *testing.T) {
	settlement, err := Settle([]CartLine{{Item: plainItem("fries", 75000), Quantity: 1}}, SettleOptions{
		Discount: 90000,
	}, sampleCatalog())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settlement.DiscountAmount != 75000 || settlement.AfterDiscount != 0 {
		t.Fatalf("expected discount capped at subtotal, got %+v", settlement)
	}
}

func TestSettleRoundsPercentDiscount(t *testing.T) {
	settlement, err := Settle([]CartLine{{Item: plainItem("tea", 12345), Quantity: 1}}, SettleOptions{
		Discount:     10,
		DiscountType: domain.DiscountPercent,
	}, sampleCatalog())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settlement.DiscountAmount != 1235 {
		t.Fatalf("expected rounded discount 1235, got %v", settlement.DiscountAmount)
	}
}

func TestSettleAddsNinePercentTax(t *testing.T) {
	settlement, err := Settle([]CartLine{{Item: plainItem("set", 100000), Quantity: 1}}, SettleOptions{
		IncludeTax: true,
	}, sampleCatalog())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settlement.AfterDiscount != 100000 || settlement.Tax != 9000 || settlement.Total != 109000 {
		t.Fatalf("unexpected tax totals %+v", settlement)
	}
}

func TestSettleCustomTaxRate(t *testing.T) {
	settlement, err := Settle([]CartLine{{Item: plainItem("set", 100000), Quantity: 1}}, SettleOptions{
		IncludeTax:     true,
		TaxRatePercent: 10,
	}, sampleCatalog())
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settlement.Tax != 10000 {
		t.Fatalf("expected tax 10000, got %v", settlement.Tax)
	}
}

func TestSettleRejectsEmptyCart(t *testing.T) {
	if _, err := Settle(nil, SettleOptions{}, sampleCatalog()); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if _, err := Settle([]CartLine{{Item: plainItem("x", 1000), Quantity: 0}}, SettleOptions{}, sampleCatalog()); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart for zero quantity, got %v", err)
	}
}

func TestSettleFreezesCostAndSumsDeductions(t *testing.T) {
	catalog := sampleCatalog()
	latte := domain.MenuItem{
		ID:    "latte",
		Price: 85000,
		Recipe: []domain.RecipeIngredient{
			{IngredientID: "milk", Amount: 200, Unit: domain.UnitMilliliter},
			{IngredientID: "sauce", Amount: 10, Unit: domain.UnitMilliliter, Source: domain.SourcePrep},
		},
	}
	settlement, err := Settle([]CartLine{
		{Item: burger(), Quantity: 2},
		{Item: latte, Quantity: 3},
	}, SettleOptions{}, catalog)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	if len(settlement.Sale.Items) != 2 {
		t.Fatalf("expected 2 sale items, got %d", len(settlement.Sale.Items))
	}
	first := settlement.Sale.Items[0]
	if first.PriceAtSale != 180000 || !approx(first.CostAtSale, 77250) || first.Quantity != 2 {
		t.Fatalf("unexpected frozen line %+v", first)
	}
	// 2*77250 + 3*(5600 + 500)
	if settlement.TotalCost != 172800 {
		t.Fatalf("expected total cost 172800, got %v", settlement.TotalCost)
	}
	if !approx(settlement.InventoryDeductions["beef"], 0.3) {
		t.Fatalf("expected 0.3 kg beef, got %v", settlement.InventoryDeductions["beef"])
	}
	if !approx(settlement.InventoryDeductions["milk"], 0.6) {
		t.Fatalf("expected 0.6 liter milk, got %v", settlement.InventoryDeductions["milk"])
	}
	// 2*20ml + 3*10ml of sauce, in liters
	if !approx(settlement.PrepDeductions["sauce"], 0.07) {
		t.Fatalf("expected 0.07 liter sauce, got %v", settlement.PrepDeductions["sauce"])
	}
	if settlement.Sale.Status != domain.SaleStatusPending {
		t.Fatalf("expected pending status, got %s", settlement.Sale.Status)
	}
}

func TestCloseShiftComputesDiscrepancy(t *testing.T) {
	shift := domain.Shift{ID: "s1", StartingCash: 500000, Status: domain.ShiftStatusOpen}
	sales := []domain.Sale{
		{ShiftID: "s1", PaymentMethod: domain.PaymentCash, TotalAmount: 500000},
		{ShiftID: "s1", PaymentMethod: domain.PaymentCash, TotalAmount: 250000},
		{ShiftID: "s1", PaymentMethod: domain.PaymentCard, TotalAmount: 340000},
		{ShiftID: "s1", PaymentMethod: domain.PaymentOnline, TotalAmount: 85000},
		{ShiftID: "s1", PaymentMethod: domain.PaymentVoid, TotalAmount: 60000},
		{ShiftID: "other", PaymentMethod: domain.PaymentCash, TotalAmount: 999999},
	}
	at := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	closed, err := CloseShift(shift, sales, 1245000, 1200000, at)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.CashSales != 750000 || closed.ExpectedCashSales != 1250000 {
		t.Fatalf("unexpected cash figures %+v", closed)
	}
	if closed.Discrepancy != -5000 {
		t.Fatalf("expected discrepancy -5000, got %v", closed.Discrepancy)
	}
	if closed.CardSales != 340000 || closed.OnlineSales != 85000 || closed.BankDeposit != 1200000 {
		t.Fatalf("unexpected subtotals %+v", closed)
	}
	if closed.Status != domain.ShiftStatusClosed || closed.EndTime == nil || !closed.EndTime.Equal(at) {
		t.Fatalf("expected closed shift with end time, got %+v", closed)
	}
	if shift.Status != domain.ShiftStatusOpen {
		t.Fatalf("input shift was mutated")
	}

	if _, err := CloseShift(closed, sales, 0, 0, at); !errors.Is(err, ErrShiftClosed) {
		t.Fatalf("expected ErrShiftClosed, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	if !CanTransition(domain.SaleStatusPending, domain.SaleStatusPreparing) {
		t.Fatalf("pending -> preparing should be allowed")
	}
	if !CanTransition(domain.SaleStatusPending, domain.SaleStatusDelivered) {
		t.Fatalf("forward skip should be allowed")
	}
	if CanTransition(domain.SaleStatusDelivered, domain.SaleStatusReady) {
		t.Fatalf("delivered must be terminal")
	}
	if CanTransition(domain.SaleStatusReady, domain.SaleStatusReady) {
		t.Fatalf("self transition should not be allowed")
	}
	if CanTransition("cancelled", domain.SaleStatusReady) {
		t.Fatalf("unknown status should not transition")
	}
}

func TestProfitAndLoss(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	sales := []domain.Sale{
		{Timestamp: from.Add(time.Hour), TotalAmount: 360000, TotalCost: 180000, PaymentMethod: domain.PaymentCard, Tax: 0},
		{Timestamp: from.Add(2 * time.Hour), TotalAmount: 255000, TotalCost: 96000, PaymentMethod: domain.PaymentCash},
		{Timestamp: from.Add(3 * time.Hour), TotalAmount: 85000, TotalCost: 20000, PaymentMethod: domain.PaymentVoid},
		{Timestamp: to, TotalAmount: 1, TotalCost: 1, PaymentMethod: domain.PaymentCash},
	}
	waste := []domain.WasteRecord{{Date: from.Add(time.Hour), CostLoss: 25000}}
	expenses := []domain.Expense{
		{Date: from.Add(time.Minute), Amount: 100000, Category: domain.ExpenseUtilities},
		{Date: from.AddDate(0, 0, -3), Amount: 20000000, Category: domain.ExpenseRent},
	}

	report := ProfitAndLoss(sales, waste, expenses, from, to)
	if report.Revenue != 615000 || report.COGS != 276000 || report.GrossProfit != 339000 {
		t.Fatalf("unexpected revenue figures %+v", report)
	}
	if report.WasteLoss != 25000 || report.OperatingExpenses != 100000 {
		t.Fatalf("unexpected loss figures %+v", report)
	}
	if report.NetProfit != 214000 {
		t.Fatalf("expected net profit 214000, got %v", report.NetProfit)
	}
	if report.SalesCount != 2 || report.VoidCount != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if report.ByPayment[domain.PaymentCash] != 255000 || report.ExpensesByType[domain.ExpenseUtilities] != 100000 {
		t.Fatalf("unexpected breakdowns %+v", report)
	}
	if report.NetMarginPercent != 34.8 {
		t.Fatalf("expected margin 34.8, got %v", report.NetMarginPercent)
	}
}

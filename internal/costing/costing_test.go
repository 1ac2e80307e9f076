package costing

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"foodyar/backend/internal/domain"
)

func approx(a float64, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func sampleCatalog() Catalog {
	return NewCatalog(
		[]domain.Ingredient{
			{ID: "beef", Name: "Ground beef", Unit: domain.UnitKilogram, CurrentStock: 25, CostPerUnit: 450000},
			{ID: "bun", Name: "Bun", Unit: domain.UnitNumber, CurrentStock: 100, CostPerUnit: 8000},
			{ID: "tomato", Name: "Tomato", Unit: domain.UnitKilogram, CurrentStock: 15, CostPerUnit: 25000},
			{ID: "milk", Name: "Milk", Unit: domain.UnitLiter, CurrentStock: 10, CostPerUnit: 28000},
		},
		[]domain.PrepTask{
			{ID: "sauce", Item: "House sauce", Unit: domain.UnitLiter, OnHand: 4, CostPerUnit: 50000},
			{ID: "onion", Item: "Caramelized onion", Unit: domain.UnitKilogram, OnHand: 1.5},
		},
	)
}

func burger() domain.MenuItem {
	return domain.MenuItem{
		ID:    "burger",
		Name:  "Classic burger",
		Price: 180000,
		Recipe: []domain.RecipeIngredient{
			{IngredientID: "beef", Amount: 150, Unit: domain.UnitGram, Source: domain.SourceInventory},
			{IngredientID: "bun", Amount: 1, Unit: domain.UnitNumber},
			{IngredientID: "tomato", Amount: 30, Unit: domain.UnitGram},
			{IngredientID: "sauce", Amount: 20, Unit: domain.UnitMilliliter, Source: domain.SourcePrep},
		},
	}
}

func TestRecipeCostConvertsUnits(t *testing.T) {
	// 67500 beef + 8000 bun + 750 tomato + 1000 sauce
	got := RecipeCost(burger().Recipe, sampleCatalog())
	if !approx(got, 77250) {
		t.Fatalf("expected 77250, got %v", got)
	}
}

func TestRecipeCostIsLinearInAmounts(t *testing.T) {
	catalog := sampleCatalog()
	lines := burger().Recipe
	doubled := make([]domain.RecipeIngredient, len(lines))
	for i, line := range lines {
		line.Amount *= 2
		doubled[i] = line
	}
	base := RecipeCost(lines, catalog)
	if got := RecipeCost(doubled, catalog); got != 2*base {
		t.Fatalf("expected doubled cost %v, got %v", 2*base, got)
	}
}

func TestRecipeCostDanglingReferenceContributesZero(t *testing.T) {
	catalog := sampleCatalog()
	lines := []domain.RecipeIngredient{
		{IngredientID: "deleted-ingredient", Amount: 500, Unit: domain.UnitGram},
		{IngredientID: "deleted-prep", Amount: 1, Unit: domain.UnitLiter, Source: domain.SourcePrep},
		{IngredientID: "onion", Amount: 1, Unit: domain.UnitKilogram, Source: domain.SourcePrep},
	}
	if got := RecipeCost(lines, catalog); got != 0 {
		t.Fatalf("expected dangling and uncosted lines to contribute 0, got %v", got)
	}
	issues := CheckRecipe(lines, catalog)
	if len(issues) != 2 || issues[0].Problem != "missing reference" {
		t.Fatalf("expected two missing-reference issues, got %+v", issues)
	}
}

func TestRecipeCostIsIdempotentAndDoesNotMutate(t *testing.T) {
	catalog := sampleCatalog()
	lines := burger().Recipe
	snapshot := append([]domain.RecipeIngredient(nil), lines...)
	beef := catalog.Ingredients["beef"]

	first := RecipeCost(lines, catalog)
	second := RecipeCost(lines, catalog)
	if first != second {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
	if !reflect.DeepEqual(lines, snapshot) {
		t.Fatalf("recipe lines were mutated")
	}
	if !reflect.DeepEqual(catalog.Ingredients["beef"], beef) {
		t.Fatalf("catalog was mutated")
	}
}

func TestCheckRecipeFlagsUnregisteredConversion(t *testing.T) {
	issues := CheckRecipe([]domain.RecipeIngredient{
		{IngredientID: "bun", Amount: 100, Unit: domain.UnitGram},
	}, sampleCatalog())
	if len(issues) != 1 || issues[0].IngredientID != "bun" {
		t.Fatalf("expected conversion issue for bun, got %+v", issues)
	}
}

func TestBreakdownMarksMissingLines(t *testing.T) {
	item := burger()
	item.Recipe = append(item.Recipe, domain.RecipeIngredient{IngredientID: "ghost", Amount: 1, Unit: domain.UnitKilogram})
	breakdown := Breakdown(item.ID, item.Recipe, sampleCatalog())
	if len(breakdown.Lines) != 5 || !breakdown.Lines[4].Missing {
		t.Fatalf("expected last line marked missing, got %+v", breakdown.Lines)
	}
	if !approx(breakdown.Total, 77250) {
		t.Fatalf("expected total 77250, got %v", breakdown.Total)
	}
}

func TestViewComputesLiveMargin(t *testing.T) {
	view := View(burger(), sampleCatalog())
	if view.Cost != 77250 || view.Margin != 102750 {
		t.Fatalf("unexpected cost/margin %v/%v", view.Cost, view.Margin)
	}
	if view.MarginPercent != 57.08 {
		t.Fatalf("expected margin percent 57.08, got %v", view.MarginPercent)
	}
}

func TestApplyPurchaseWeightedAverage(t *testing.T) {
	ing := domain.Ingredient{ID: "x", CurrentStock: 10, CostPerUnit: 100}
	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	updated := ApplyPurchase(ing, 10, 200, at)
	if updated.CurrentStock != 20 {
		t.Fatalf("expected stock 20, got %v", updated.CurrentStock)
	}
	if updated.CostPerUnit != 150 {
		t.Fatalf("expected cost 150, got %v", updated.CostPerUnit)
	}
	if len(updated.PurchaseHistory) != 1 || updated.PurchaseHistory[0].CostPerUnit != 200 || !updated.PurchaseHistory[0].Date.Equal(at) {
		t.Fatalf("unexpected history %+v", updated.PurchaseHistory)
	}
	if len(ing.PurchaseHistory) != 0 || ing.CostPerUnit != 100 {
		t.Fatalf("input ingredient was mutated")
	}
}

func TestApplyPurchaseRoundsToCurrencyUnit(t *testing.T) {
	ing := domain.Ingredient{CurrentStock: 3, CostPerUnit: 100}
	updated := ApplyPurchase(ing, 1, 101, time.Now())
	// (300 + 101) / 4 = 100.25
	if updated.CostPerUnit != 100 {
		t.Fatalf("expected rounded cost 100, got %v", updated.CostPerUnit)
	}
	updated = ApplyPurchase(domain.Ingredient{CurrentStock: 1, CostPerUnit: 100}, 1, 101, time.Now())
	if updated.CostPerUnit != 101 {
		t.Fatalf("expected half rounded up to 101, got %v", updated.CostPerUnit)
	}
}

func TestApplyPurchaseStaysWithinInputRange(t *testing.T) {
	cases := []struct {
		stock, cost, qty, incoming float64
	}{
		{10, 100, 10, 200},
		{1, 450000, 24, 430000},
		{0.5, 28000, 7, 31000},
		{200, 8000, 1, 9500},
		{3, 900000, 0.25, 1},
	}
	for _, tc := range cases {
		updated := ApplyPurchase(domain.Ingredient{CurrentStock: tc.stock, CostPerUnit: tc.cost}, tc.qty, tc.incoming, time.Now())
		lo, hi := math.Min(tc.cost, tc.incoming), math.Max(tc.cost, tc.incoming)
		if updated.CostPerUnit < lo || updated.CostPerUnit > hi {
			t.Fatalf("cost %v outside [%v, %v] for %+v", updated.CostPerUnit, lo, hi, tc)
		}
	}
}

func TestApplyPurchaseOnEmptyStockUsesIncomingCost(t *testing.T) {
	updated := ApplyPurchase(domain.Ingredient{}, 5, 300, time.Now())
	if updated.CostPerUnit != 300 || updated.CurrentStock != 5 {
		t.Fatalf("expected 5 @ 300, got %v @ %v", updated.CurrentStock, updated.CostPerUnit)
	}
	updated = ApplyPurchase(domain.Ingredient{}, 0, 300, time.Now())
	if updated.CostPerUnit != 300 {
		t.Fatalf("expected incoming cost when new stock is zero, got %v", updated.CostPerUnit)
	}
}

func TestProduceConvertsAndScalesByBatches(t *testing.T) {
	ingredients := map[string]domain.Ingredient{
		"x": {ID: "x", Unit: domain.UnitKilogram, CurrentStock: 5},
	}
	task := domain.PrepTask{
		ID:        "p",
		BatchSize: 1,
		Recipe:    []domain.RecipeIngredient{{IngredientID: "x", Amount: 100, Unit: domain.UnitGram}},
	}
	production, err := Produce(task, 3, ingredients)
	if err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	if !approx(production.InventoryDeductions["x"], 0.3) {
		t.Fatalf("expected 0.3 kg consumed, got %v", production.InventoryDeductions["x"])
	}
	if production.OnHandDelta != 3 {
		t.Fatalf("expected on-hand delta 3, got %v", production.OnHandDelta)
	}
}

func TestProduceSumsRepeatedIngredientAndSkipsMissing(t *testing.T) {
	ingredients := map[string]domain.Ingredient{
		"tomato": {ID: "tomato", Unit: domain.UnitGram},
	}
	task := domain.PrepTask{
		BatchSize: 2.5,
		Recipe: []domain.RecipeIngredient{
			{IngredientID: "tomato", Amount: 100, Unit: domain.UnitGram},
			{IngredientID: "tomato", Amount: 0.2, Unit: domain.UnitKilogram},
			{IngredientID: "gone", Amount: 1, Unit: domain.UnitKilogram},
		},
	}
	production, err := Produce(task, 2, ingredients)
	if err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	if len(production.InventoryDeductions) != 1 || !approx(production.InventoryDeductions["tomato"], 600) {
		t.Fatalf("expected 600 gram tomato, got %+v", production.InventoryDeductions)
	}
	if production.OnHandDelta != 5 {
		t.Fatalf("expected delta 5, got %v", production.OnHandDelta)
	}
}

func TestProduceRejectsNonPositiveBatches(t *testing.T) {
	for _, batches := range []float64{0, -1} {
		if _, err := Produce(domain.PrepTask{}, batches, nil); !errors.Is(err, ErrInvalidBatches) {
			t.Fatalf("expected ErrInvalidBatches for %v, got %v", batches, err)
		}
	}
}

func TestPrepUnitCost(t *testing.T) {
	catalog := sampleCatalog()
	recipe := []domain.RecipeIngredient{{IngredientID: "tomato", Amount: 300, Unit: domain.UnitGram}}
	if got := PrepUnitCost(recipe, 2, catalog); got != 3750 {
		t.Fatalf("expected 3750, got %v", got)
	}
	if got := PrepUnitCost(recipe, 0, catalog); got != 0 {
		t.Fatalf("expected 0 for zero batch size, got %v", got)
	}
}

func TestDeductNeverGoesNegative(t *testing.T) {
	if got := Deduct(5, 3); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
	if got := Deduct(2, 3); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
	if got := Deduct(0, 0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

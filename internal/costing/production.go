package costing

import (
	"errors"

	"foodyar/backend/internal/domain"
)

var ErrInvalidBatches = errors.New("batches must be positive")

type Production struct {
	InventoryDeductions map[string]float64
	OnHandDelta         float64
}

// Produce resolves the raw material consumed by producing batches of a prep
// task. Lines pointing at unknown ingredients are skipped. Amounts for the
// same ingredient are summed.
func Produce(task domain.PrepTask, batches float64, ingredients map[string]domain.Ingredient) (Production, error) {
	if batches <= 0 {
		return Production{}, ErrInvalidBatches
	}

	deductions := make(map[string]float64, len(task.Recipe))
	for _, line := range task.Recipe {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			continue
		}
		deductions[ing.ID] += line.Amount * Factor(line.Unit, ing.Unit) * batches
	}

	return Production{
		InventoryDeductions: deductions,
		OnHandDelta:         batchSize(task) * batches,
	}, nil
}

// PrepUnitCost is the rounded cost of one unit of a prep task output.
func PrepUnitCost(recipe []domain.RecipeIngredient, size float64, catalog Catalog) float64 {
	if size <= 0 {
		return 0
	}
	return Round(RecipeCost(recipe, catalog) / size)
}

// Deduct removes amount from stock without going below zero.
func Deduct(stock float64, amount float64) float64 {
	return max(0, stock-amount)
}

func batchSize(task domain.PrepTask) float64 {
	if task.BatchSize > 0 {
		return task.BatchSize
	}
	return 1
}

package costing

import (
	"time"

	"github.com/shopspring/decimal"

	"foodyar/backend/internal/domain"
)

// ApplyPurchase books an incoming lot and returns the updated ingredient. The
// cost per unit becomes the stock-weighted average of the existing stock and
// the lot, rounded to the currency unit. The input is not modified.
func ApplyPurchase(ing domain.Ingredient, quantity float64, costPerUnit float64, date time.Time) domain.Ingredient {
	stock := decimal.NewFromFloat(ing.CurrentStock)
	incomingQty := decimal.NewFromFloat(quantity)

	currentValue := stock.Mul(decimal.NewFromFloat(ing.CostPerUnit))
	incomingValue := incomingQty.Mul(decimal.NewFromFloat(costPerUnit))
	newStock := stock.Add(incomingQty)

	updated := ing
	updated.CurrentStock = newStock.InexactFloat64()
	if newStock.IsPositive() {
		updated.CostPerUnit = currentValue.Add(incomingValue).Div(newStock).Round(0).InexactFloat64()
	} else {
		updated.CostPerUnit = costPerUnit
	}

	history := make([]domain.PurchaseLot, len(ing.PurchaseHistory), len(ing.PurchaseHistory)+1)
	copy(history, ing.PurchaseHistory)
	updated.PurchaseHistory = append(history, domain.PurchaseLot{
		Date:        date,
		Quantity:    quantity,
		CostPerUnit: costPerUnit,
	})
	return updated
}

package costing

import (
	"errors"

	"foodyar/backend/internal/domain"
)

const DefaultTaxRatePercent = 9

var ErrEmptyCart = errors.New("cart is empty")

type CartLine struct {
	Item     domain.MenuItem
	Quantity int
}

type SettleOptions struct {
	Discount       float64
	DiscountType   domain.DiscountType
	IncludeTax     bool
	TaxRatePercent float64
}

type Settlement struct {
	Sale                domain.Sale
	Subtotal            float64
	DiscountAmount      float64
	AfterDiscount       float64
	Tax                 float64
	Total               float64
	TotalCost           float64
	InventoryDeductions map[string]float64
	PrepDeductions      map[string]float64
}

// Settle prices a cart. Each line freezes the menu price and the recipe cost
// at the time of sale, and the stock consumed by every line is summed into one
// deduction map per source.
func Settle(cart []CartLine, opts SettleOptions, catalog Catalog) (Settlement, error) {
	out := Settlement{
		InventoryDeductions: make(map[string]float64),
		PrepDeductions:      make(map[string]float64),
	}
	items := make([]domain.SaleItem, 0, len(cart))
	totalCost := 0.0

	for _, line := range cart {
		if line.Quantity <= 0 {
			continue
		}
		qty := float64(line.Quantity)
		lineCost := RecipeCost(line.Item.Recipe, catalog)
		totalCost += lineCost * qty
		out.Subtotal += line.Item.Price * qty

		items = append(items, domain.SaleItem{
			MenuItemID:  line.Item.ID,
			Name:        line.Item.Name,
			Quantity:    line.Quantity,
			PriceAtSale: line.Item.Price,
			CostAtSale:  lineCost,
		})
		catalog.accumulate(line.Item.Recipe, qty, out.InventoryDeductions, out.PrepDeductions)
	}
	if len(items) == 0 {
		return Settlement{}, ErrEmptyCart
	}

	out.DiscountAmount = discountAmount(out.Subtotal, opts.Discount, opts.DiscountType)
	out.AfterDiscount = max(0, out.Subtotal-out.DiscountAmount)
	if opts.IncludeTax {
		rate := opts.TaxRatePercent
		if rate <= 0 {
			rate = DefaultTaxRatePercent
		}
		out.Tax = percentOf(out.AfterDiscount, rate)
	}
	out.Total = out.AfterDiscount + out.Tax
	out.TotalCost = Round(totalCost)

	out.Sale = domain.Sale{
		Items:       items,
		TotalAmount: out.Total,
		TotalCost:   out.TotalCost,
		Tax:         out.Tax,
		Discount:    out.DiscountAmount,
		Status:      domain.SaleStatusPending,
	}
	return out, nil
}

func discountAmount(subtotal float64, discount float64, kind domain.DiscountType) float64 {
	if kind == domain.DiscountPercent {
		return percentOf(subtotal, clamp(discount, 0, 100))
	}
	return clamp(discount, 0, subtotal)
}

// accumulate adds the stock consumed by qty portions of a recipe. Lines with
// dangling references have nothing to deduct from and are skipped.
func (c Catalog) accumulate(lines []domain.RecipeIngredient, qty float64, inventory map[string]float64, prep map[string]float64) {
	for _, line := range lines {
		if line.FromPrep() {
			task, ok := c.PrepTasks[line.IngredientID]
			if !ok {
				continue
			}
			prep[task.ID] += line.Amount * Factor(line.Unit, task.Unit) * qty
			continue
		}
		ing, ok := c.Ingredients[line.IngredientID]
		if !ok {
			continue
		}
		inventory[ing.ID] += line.Amount * Factor(line.Unit, ing.Unit) * qty
	}
}

// Consumption returns the stock drawn by qty portions of a recipe, keyed by
// ingredient and prep task id.
func (c Catalog) Consumption(lines []domain.RecipeIngredient, qty float64) (map[string]float64, map[string]float64) {
	inventory := make(map[string]float64)
	prep := make(map[string]float64)
	c.accumulate(lines, qty, inventory, prep)
	return inventory, prep
}

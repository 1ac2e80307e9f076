package costing

import (
	"fmt"

	"foodyar/backend/internal/domain"
)

// Catalog is a read-only snapshot of the items a recipe line can reference.
type Catalog struct {
	Ingredients map[string]domain.Ingredient
	PrepTasks   map[string]domain.PrepTask
}

func NewCatalog(ingredients []domain.Ingredient, prepTasks []domain.PrepTask) Catalog {
	catalog := Catalog{
		Ingredients: make(map[string]domain.Ingredient, len(ingredients)),
		PrepTasks:   make(map[string]domain.PrepTask, len(prepTasks)),
	}
	for _, ing := range ingredients {
		catalog.Ingredients[ing.ID] = ing
	}
	for _, task := range prepTasks {
		catalog.PrepTasks[task.ID] = task
	}
	return catalog
}

// LineCost is the cost contribution of a single recipe line. Dangling
// references and prep tasks without a unit cost contribute 0.
func (c Catalog) LineCost(line domain.RecipeIngredient) float64 {
	if line.FromPrep() {
		task, ok := c.PrepTasks[line.IngredientID]
		if !ok || task.CostPerUnit == 0 {
			return 0
		}
		return task.CostPerUnit * line.Amount * Factor(line.Unit, task.Unit)
	}
	ing, ok := c.Ingredients[line.IngredientID]
	if !ok {
		return 0
	}
	return ing.CostPerUnit * line.Amount * Factor(line.Unit, ing.Unit)
}

// RecipeCost sums the line costs without rounding.
func RecipeCost(lines []domain.RecipeIngredient, catalog Catalog) float64 {
	total := 0.0
	for _, line := range lines {
		total += catalog.LineCost(line)
	}
	return total
}

func Breakdown(menuItemID string, lines []domain.RecipeIngredient, catalog Catalog) domain.CostBreakdown {
	out := domain.CostBreakdown{
		MenuItemID: menuItemID,
		Lines:      make([]domain.CostLine, 0, len(lines)),
	}
	for _, line := range lines {
		source := line.Source
		if source == "" {
			source = domain.SourceInventory
		}
		entry := domain.CostLine{
			IngredientID: line.IngredientID,
			Source:       source,
			Amount:       line.Amount,
			Unit:         line.Unit,
			Cost:         catalog.LineCost(line),
		}
		if name, ok := catalog.name(line); ok {
			entry.Name = name
		} else {
			entry.Missing = true
		}
		out.Total += entry.Cost
		out.Lines = append(out.Lines, entry)
	}
	return out
}

func (c Catalog) name(line domain.RecipeIngredient) (string, bool) {
	if line.FromPrep() {
		task, ok := c.PrepTasks[line.IngredientID]
		return task.Item, ok
	}
	ing, ok := c.Ingredients[line.IngredientID]
	return ing.Name, ok
}

func (c Catalog) unitOf(line domain.RecipeIngredient) (domain.Unit, bool) {
	if line.FromPrep() {
		task, ok := c.PrepTasks[line.IngredientID]
		return task.Unit, ok
	}
	ing, ok := c.Ingredients[line.IngredientID]
	return ing.Unit, ok
}

// RecipeIssue describes a line that still costs but probably not correctly.
type RecipeIssue struct {
	Index        int    `json:"index"`
	IngredientID string `json:"ingredient_id"`
	Problem      string `json:"problem"`
}

// CheckRecipe reports dangling references and unit pairs that silently fall
// back to a factor of 1.
func CheckRecipe(lines []domain.RecipeIngredient, catalog Catalog) []RecipeIssue {
	var issues []RecipeIssue
	for i, line := range lines {
		unit, ok := catalog.unitOf(line)
		if !ok {
			issues = append(issues, RecipeIssue{Index: i, IngredientID: line.IngredientID, Problem: "missing reference"})
			continue
		}
		if _, registered := ResolveConversionFactor(line.Unit, unit); !registered {
			issues = append(issues, RecipeIssue{
				Index:        i,
				IngredientID: line.IngredientID,
				Problem:      fmt.Sprintf("no conversion from %s to %s", line.Unit, unit),
			})
		}
	}
	return issues
}

// View prices a menu item against the current catalog.
func View(item domain.MenuItem, catalog Catalog) domain.MenuItemView {
	cost := RecipeCost(item.Recipe, catalog)
	view := domain.MenuItemView{
		MenuItem: item,
		Cost:     Round(cost),
		Margin:   Round(item.Price - cost),
	}
	if item.Price > 0 {
		view.MarginPercent = round2((item.Price - cost) / item.Price * 100)
	}
	return view
}

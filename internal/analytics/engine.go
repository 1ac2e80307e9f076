package analytics

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"foodyar/backend/internal/cache"
	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
)

// popularityFactor is the share of the even menu mix an item must reach to
// count as popular.
const popularityFactor = 0.7

type Engine struct {
	cache    cache.Store
	cacheTTL time.Duration
	now      func() time.Time
}

func NewEngine(cacheStore cache.Store, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// MenuEngineering classifies every menu item on popularity and contribution
// margin. Margins use the live recipe cost, quantities come from non-void
// sales.
func (e *Engine) MenuEngineering(ctx context.Context, menu []domain.MenuItem, sales []domain.Sale, catalog costing.Catalog) domain.MenuAnalysis {
	margins := make(map[string]float64, len(menu))
	for _, item := range menu {
		margins[item.ID] = item.Price - costing.RecipeCost(item.Recipe, catalog)
	}

	cacheKey := buildCacheKey("menu", menuDigest(menu, margins), salesDigest(sales))
	var cached domain.MenuAnalysis
	if ok, err := e.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
		return cached
	}

	sold := quantitiesSold(sales)
	totalQty := 0
	for _, item := range menu {
		totalQty += sold[item.ID]
	}

	marginThreshold := 0.0
	if totalQty > 0 {
		weighted := 0.0
		for _, item := range menu {
			weighted += margins[item.ID] * float64(sold[item.ID])
		}
		marginThreshold = weighted / float64(totalQty)
	} else if len(menu) > 0 {
		for _, item := range menu {
			marginThreshold += margins[item.ID]
		}
		marginThreshold /= float64(len(menu))
	}

	popularityThreshold := 0.0
	if len(menu) > 0 {
		popularityThreshold = 100 / float64(len(menu)) * popularityFactor
	}

	analysis := domain.MenuAnalysis{
		AnalysisDate:        e.now().UTC(),
		PopularityThreshold: round2(popularityThreshold),
		MarginThreshold:     costing.Round(marginThreshold),
		Items:               make([]domain.MenuAnalysisItem, 0, len(menu)),
	}
	for _, item := range menu {
		qty := sold[item.ID]
		mix := 0.0
		if totalQty > 0 {
			mix = float64(qty) / float64(totalQty) * 100
		}
		class := classify(qty > 0 && mix >= popularityThreshold, qty > 0 && margins[item.ID] >= marginThreshold, qty)
		analysis.Items = append(analysis.Items, domain.MenuAnalysisItem{
			MenuItemID:   item.ID,
			Name:         item.Name,
			Class:        class,
			QuantitySold: qty,
			MixPercent:   round2(mix),
			UnitMargin:   costing.Round(margins[item.ID]),
			Suggestion:   suggestion(class),
		})
	}
	sort.Slice(analysis.Items, func(i, j int) bool {
		if analysis.Items[i].QuantitySold == analysis.Items[j].QuantitySold {
			return analysis.Items[i].Name < analysis.Items[j].Name
		}
		return analysis.Items[i].QuantitySold > analysis.Items[j].QuantitySold
	})

	_ = e.cache.Set(ctx, cacheKey, analysis, e.cacheTTL)
	return analysis
}

func classify(popular bool, profitable bool, qty int) domain.MenuClass {
	switch {
	case qty == 0:
		return domain.MenuClassDog
	case popular && profitable:
		return domain.MenuClassStar
	case popular:
		return domain.MenuClassPlowhorse
	case profitable:
		return domain.MenuClassPuzzle
	default:
		return domain.MenuClassDog
	}
}

func suggestion(class domain.MenuClass) string {
	switch class {
	case domain.MenuClassStar:
		return "keep quality and placement, test a small price increase"
	case domain.MenuClassPlowhorse:
		return "reduce portion cost or raise the price slightly"
	case domain.MenuClassPuzzle:
		return "promote it: better menu placement or staff recommendation"
	default:
		return "consider replacing or reworking the recipe"
	}
}

// ProcurementForecast projects ingredient usage from the sales window and
// suggests order quantities covering coverDays plus the minimum threshold.
// Prep consumption is expanded into the raw ingredients of its recipe.
func (e *Engine) ProcurementForecast(
	ctx context.Context,
	ingredients []domain.Ingredient,
	prepTasks []domain.PrepTask,
	suppliers []domain.Supplier,
	menu []domain.MenuItem,
	sales []domain.Sale,
	windowDays int,
	coverDays int,
) domain.ProcurementForecast {
	windowDays = max(1, windowDays)
	coverDays = max(1, coverDays)

	cacheKey := buildCacheKey(
		"procurement",
		ingredientDigest(ingredients),
		recipeDigest(menu, prepTasks),
		supplierDigest(suppliers),
		salesDigest(sales),
		fmt.Sprintf("w:%d:c:%d", windowDays, coverDays),
	)
	var cached domain.ProcurementForecast
	if ok, err := e.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
		return cached
	}

	catalog := costing.NewCatalog(ingredients, prepTasks)
	inventoryUse, prepUse := usage(menu, sales, catalog)
	for prepID, amount := range prepUse {
		task, ok := catalog.PrepTasks[prepID]
		if !ok || len(task.Recipe) == 0 {
			continue
		}
		production, err := costing.Produce(task, amount/batchSize(task), catalog.Ingredients)
		if err != nil {
			continue
		}
		for id, qty := range production.InventoryDeductions {
			inventoryUse[id] += qty
		}
	}

	supplierNames := make(map[string]string, len(suppliers))
	for _, sup := range suppliers {
		supplierNames[sup.ID] = sup.Name
	}

	forecast := domain.ProcurementForecast{
		ForecastDate:    e.now().UTC(),
		CoverDays:       coverDays,
		Orders:          []domain.SupplierOrder{},
		NoSupplierItems: []domain.ForecastItem{},
	}
	bySupplier := map[string]*domain.SupplierOrder{}
	for _, ing := range ingredients {
		daily := inventoryUse[ing.ID] / float64(windowDays)
		target := daily*float64(coverDays) + ing.MinThreshold
		if ing.CurrentStock >= target {
			continue
		}
		item := domain.ForecastItem{
			ItemID:          ing.ID,
			ItemName:        ing.Name,
			Unit:            ing.Unit,
			CurrentStock:    ing.CurrentStock,
			DailyUsage:      round2(daily),
			QuantityToOrder: ceil2(target - ing.CurrentStock),
		}
		if daily > 0 {
			item.DaysOfCover = round2(ing.CurrentStock / daily)
		}

		name, known := supplierNames[ing.SupplierID]
		if ing.SupplierID == "" || !known {
			forecast.NoSupplierItems = append(forecast.NoSupplierItems, item)
			continue
		}
		order, ok := bySupplier[ing.SupplierID]
		if !ok {
			order = &domain.SupplierOrder{SupplierID: ing.SupplierID, SupplierName: name}
			bySupplier[ing.SupplierID] = order
		}
		order.Items = append(order.Items, item)
	}
	for _, order := range bySupplier {
		forecast.Orders = append(forecast.Orders, *order)
	}
	sort.Slice(forecast.Orders, func(i, j int) bool { return forecast.Orders[i].SupplierName < forecast.Orders[j].SupplierName })

	_ = e.cache.Set(ctx, cacheKey, forecast, e.cacheTTL)
	return forecast
}

// PrepPlan lists the prep tasks to run today. The target of a task is the
// larger of its par level and the average daily usage in the sales window.
func (e *Engine) PrepPlan(prepTasks []domain.PrepTask, menu []domain.MenuItem, sales []domain.Sale, windowDays int) domain.PrepPlan {
	windowDays = max(1, windowDays)
	catalog := costing.NewCatalog(nil, prepTasks)
	_, prepUse := usage(menu, sales, catalog)

	plan := domain.PrepPlan{ForecastDate: e.now().UTC(), Tasks: []domain.PrepPriorityItem{}}
	for _, task := range prepTasks {
		target := max(task.ParLevel, prepUse[task.ID]/float64(windowDays))
		need := target - task.OnHand
		if need <= 0 {
			continue
		}
		priority := domain.PrepPriorityMedium
		if task.OnHand <= target/2 {
			priority = domain.PrepPriorityHigh
		} else if need < target*0.2 {
			priority = domain.PrepPriorityLow
		}
		plan.Tasks = append(plan.Tasks, domain.PrepPriorityItem{
			PrepTaskID:     task.ID,
			PrepTaskName:   task.Item,
			QuantityToPrep: round2(need),
			BatchesToPrep:  math.Ceil(need / batchSize(task)),
			Priority:       priority,
		})
	}
	rank := map[domain.PrepPriority]int{domain.PrepPriorityHigh: 0, domain.PrepPriorityMedium: 1, domain.PrepPriorityLow: 2}
	sort.SliceStable(plan.Tasks, func(i, j int) bool {
		return rank[plan.Tasks[i].Priority] < rank[plan.Tasks[j].Priority]
	})
	return plan
}

func usage(menu []domain.MenuItem, sales []domain.Sale, catalog costing.Catalog) (map[string]float64, map[string]float64) {
	recipes := make(map[string][]domain.RecipeIngredient, len(menu))
	for _, item := range menu {
		recipes[item.ID] = item.Recipe
	}

	inventory := make(map[string]float64)
	prep := make(map[string]float64)
	for menuID, qty := range quantitiesSold(sales) {
		inv, pr := catalog.Consumption(recipes[menuID], float64(qty))
		for id, amount := range inv {
			inventory[id] += amount
		}
		for id, amount := range pr {
			prep[id] += amount
		}
	}
	return inventory, prep
}

func quantitiesSold(sales []domain.Sale) map[string]int {
	sold := make(map[string]int)
	for _, sale := range sales {
		if sale.PaymentMethod == domain.PaymentVoid {
			continue
		}
		for _, item := range sale.Items {
			if item.Quantity > 0 {
				sold[item.MenuItemID] += item.Quantity
			}
		}
	}
	return sold
}

func batchSize(task domain.PrepTask) float64 {
	if task.BatchSize > 0 {
		return task.BatchSize
	}
	return 1
}

func menuDigest(menu []domain.MenuItem, margins map[string]float64) string {
	parts := make([]string, 0, len(menu))
	for _, item := range menu {
		parts = append(parts, fmt.Sprintf("%s:%q:%.2f", item.ID, item.Name, margins[item.ID]))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func ingredientDigest(ingredients []domain.Ingredient) string {
	parts := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		parts = append(parts, fmt.Sprintf("%s:%q:%s:%.3f:%.3f:%s", ing.ID, ing.Name, ing.Unit, ing.CurrentStock, ing.MinThreshold, ing.SupplierID))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// recipeDigest covers every recipe line that feeds usage, so an edited
// recipe or batch size never reuses an older forecast.
func recipeDigest(menu []domain.MenuItem, prepTasks []domain.PrepTask) string {
	parts := make([]string, 0, len(menu)+len(prepTasks))
	for _, item := range menu {
		parts = append(parts, "m:"+item.ID+"="+linesDigest(item.Recipe))
	}
	for _, task := range prepTasks {
		parts = append(parts, fmt.Sprintf("p:%s:%.3f=%s", task.ID, task.BatchSize, linesDigest(task.Recipe)))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func linesDigest(lines []domain.RecipeIngredient) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s:%s:%.4f:%s", line.IngredientID, line.Source, line.Amount, line.Unit))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func supplierDigest(suppliers []domain.Supplier) string {
	parts := make([]string, 0, len(suppliers))
	for _, sup := range suppliers {
		parts = append(parts, fmt.Sprintf("%s:%q", sup.ID, sup.Name))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func salesDigest(sales []domain.Sale) string {
	parts := make([]string, 0, len(sales))
	for _, sale := range sales {
		parts = append(parts, sale.ID+":"+string(sale.PaymentMethod))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func buildCacheKey(kind string, parts ...string) string {
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "analytics:" + kind + ":" + hex.EncodeToString(hash[:])
}

// ceil2 rounds up to two decimals, ignoring float noise below 1e-9.
func ceil2(val float64) float64 {
	return math.Ceil(val*100-1e-9) / 100
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}

package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"foodyar/backend/internal/advisor"
	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/store"
)

const (
	defaultWindowDays = 30
	defaultCoverDays  = 7
	maxQuestionLength = 1000
)

func (s *Service) recentSales(ctx context.Context, windowDays int) ([]domain.Sale, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return s.repo.ListSales(ctx, store.SaleFilter{From: s.now().AddDate(0, 0, -windowDays)})
}

func (s *Service) MenuEngineering(ctx context.Context, windowDays int) (domain.MenuAnalysis, error) {
	sales, err := s.recentSales(ctx, windowDays)
	if err != nil {
		return domain.MenuAnalysis{}, err
	}
	menu, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return domain.MenuAnalysis{}, err
	}
	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return domain.MenuAnalysis{}, err
	}
	return s.analytics.MenuEngineering(ctx, menu, sales, catalog), nil
}

func (s *Service) ProcurementForecast(ctx context.Context, windowDays int, coverDays int) (domain.ProcurementForecast, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	if coverDays <= 0 {
		coverDays = defaultCoverDays
	}
	sales, err := s.recentSales(ctx, windowDays)
	if err != nil {
		return domain.ProcurementForecast{}, err
	}
	menu, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return domain.ProcurementForecast{}, err
	}
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return domain.ProcurementForecast{}, err
	}
	_, ingredients, prepTasks, err := s.catalog(ctx)
	if err != nil {
		return domain.ProcurementForecast{}, err
	}
	return s.analytics.ProcurementForecast(ctx, ingredients, prepTasks, suppliers, menu, sales, windowDays, coverDays), nil
}

func (s *Service) PrepPlan(ctx context.Context, windowDays int) (domain.PrepPlan, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	sales, err := s.recentSales(ctx, windowDays)
	if err != nil {
		return domain.PrepPlan{}, err
	}
	menu, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return domain.PrepPlan{}, err
	}
	prepTasks, err := s.repo.ListPrepTasks(ctx)
	if err != nil {
		return domain.PrepPlan{}, err
	}
	return s.analytics.PrepPlan(prepTasks, menu, sales, windowDays), nil
}

func (s *Service) businessContext(ctx context.Context) (advisor.BusinessContext, error) {
	menu, err := s.ListMenu(ctx)
	if err != nil {
		return advisor.BusinessContext{}, err
	}
	low, err := s.LowStock(ctx)
	if err != nil {
		return advisor.BusinessContext{}, err
	}
	short, err := s.PrepShortfall(ctx)
	if err != nil {
		return advisor.BusinessContext{}, err
	}
	report, err := s.ProfitAndLoss(ctx, s.now().AddDate(0, 0, -defaultWindowDays), s.now())
	if err != nil {
		return advisor.BusinessContext{}, err
	}
	return advisor.BusinessContext{
		Menu:          menu,
		LowStock:      low,
		Revenue:       report.Revenue,
		GrossProfit:   report.GrossProfit,
		WasteLoss:     report.WasteLoss,
		PeriodDays:    defaultWindowDays,
		PrepShortfall: short,
	}, nil
}

// Ask answers a free-text question about the business. Answers are cached
// per question and business snapshot.
func (s *Service) Ask(ctx context.Context, req domain.AdviceRequest) (domain.AdviceResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.AdviceResponse{}, invalidf("question is required")
	}
	if len(question) > maxQuestionLength {
		return domain.AdviceResponse{}, invalidf("question is longer than %d characters", maxQuestionLength)
	}
	bc, err := s.businessContext(ctx)
	if err != nil {
		return domain.AdviceResponse{}, err
	}

	key, err := adviceCacheKey(question, bc)
	if err != nil {
		log.Printf("[service] WARN: advice asked without cache: %v", err)
		answer, err := s.oracle.Advice(ctx, question, bc)
		if err != nil {
			return domain.AdviceResponse{}, err
		}
		return domain.AdviceResponse{Answer: answer}, nil
	}

	var cached string
	if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
		return domain.AdviceResponse{Answer: cached, Cached: true}, nil
	} else if err != nil {
		log.Printf("[service] WARN: advice cache read failed: %v", err)
	}

	answer, err := s.oracle.Advice(ctx, question, bc)
	if err != nil {
		return domain.AdviceResponse{}, err
	}
	if err := s.cache.Set(ctx, key, answer, s.adviceTTL); err != nil {
		log.Printf("[service] WARN: advice cache write failed: %v", err)
	}
	return domain.AdviceResponse{Answer: answer}, nil
}

// adviceCacheKey hashes the question with the business snapshot. A snapshot
// that cannot be encoded has no safe key.
func adviceCacheKey(question string, bc advisor.BusinessContext) (string, error) {
	snapshot, err := json.Marshal(bc)
	if err != nil {
		return "", fmt.Errorf("encode business context: %w", err)
	}
	sum := sha1.New()
	sum.Write([]byte(strings.ToLower(question)))
	sum.Write([]byte{0})
	sum.Write(snapshot)
	return "advice:" + hex.EncodeToString(sum.Sum(nil)), nil
}

// DailySpecial proposes a dish from the ingredients currently in stock.
func (s *Service) DailySpecial(ctx context.Context) (domain.GeneratedRecipe, error) {
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return domain.GeneratedRecipe{}, err
	}
	inStock := make([]domain.Ingredient, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing.CurrentStock > 0 {
			inStock = append(inStock, ing)
		}
	}
	if len(inStock) == 0 {
		return domain.GeneratedRecipe{}, invalidf("no ingredients in stock")
	}
	recipe, err := s.oracle.DailySpecial(ctx, inStock)
	if err != nil {
		return domain.GeneratedRecipe{}, err
	}
	// link suggested ingredients back to inventory where the names agree
	for i, gen := range recipe.Ingredients {
		for _, ing := range inStock {
			if strings.EqualFold(strings.TrimSpace(gen.Name), strings.TrimSpace(ing.Name)) {
				recipe.Ingredients[i].IngredientID = ing.ID
				break
			}
		}
	}
	return recipe, nil
}

func (s *Service) AnalyzeRecipe(ctx context.Context, menuItemID string) (string, error) {
	item, err := s.repo.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return "", err
	}
	catalog, ingredients, _, err := s.catalog(ctx)
	if err != nil {
		return "", err
	}
	view := costing.View(*item, catalog)
	used := make([]domain.Ingredient, 0, len(item.Recipe))
	for _, line := range item.Recipe {
		if ing, ok := catalog.Ingredients[line.IngredientID]; ok && !line.FromPrep() {
			used = append(used, ing)
		}
	}
	if len(used) == 0 {
		used = ingredients
	}
	return s.oracle.AnalyzeRecipe(ctx, view, used)
}

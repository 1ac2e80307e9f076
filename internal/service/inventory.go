package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/realtime"
	"foodyar/backend/internal/store"
)

func (s *Service) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.repo.ListIngredients(ctx)
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Ingredient, error) {
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Ingredient, 0)
	for _, ing := range ingredients {
		if ing.LowStock() {
			low = append(low, ing)
		}
	}
	return low, nil
}

// CreateIngredient books any opening stock as the first purchase lot so the
// history and the average cost agree from the start.
func (s *Service) CreateIngredient(ctx context.Context, req domain.IngredientCreateRequest) (domain.Ingredient, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Ingredient{}, invalidf("name is required")
	}
	if !costing.IsKnownUnit(req.Unit) {
		return domain.Ingredient{}, invalidf("unknown unit %q", req.Unit)
	}
	if req.CurrentStock < 0 || req.CostPerUnit < 0 || req.MinThreshold < 0 {
		return domain.Ingredient{}, invalidf("stock, cost and threshold must not be negative")
	}

	ing := domain.Ingredient{
		Name:         req.Name,
		Unit:         req.Unit,
		CostPerUnit:  req.CostPerUnit,
		MinThreshold: req.MinThreshold,
		SupplierID:   strings.TrimSpace(req.SupplierID),
	}
	if req.CurrentStock > 0 {
		ing = costing.ApplyPurchase(ing, req.CurrentStock, req.CostPerUnit, s.now())
	}

	created, err := s.repo.CreateIngredient(ctx, ing)
	if err != nil {
		return domain.Ingredient{}, err
	}
	s.logAudit(ctx, domain.AuditCreate, domain.EntityInventory, created.ID, fmt.Sprintf("name=%s,stock=%g %s", created.Name, created.CurrentStock, created.Unit))
	return *created, nil
}

// UpdateIngredient edits metadata only. Stock and cost move through
// purchases, sales, production and waste.
func (s *Service) UpdateIngredient(ctx context.Context, id string, req domain.IngredientUpdateRequest) (domain.Ingredient, error) {
	existing, err := s.repo.GetIngredient(ctx, id)
	if err != nil {
		return domain.Ingredient{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Ingredient{}, invalidf("name is required")
		}
		updated.Name = name
	}
	if req.Unit != nil {
		if !costing.IsKnownUnit(*req.Unit) {
			return domain.Ingredient{}, invalidf("unknown unit %q", *req.Unit)
		}
		updated.Unit = *req.Unit
	}
	if req.MinThreshold != nil {
		if *req.MinThreshold < 0 {
			return domain.Ingredient{}, invalidf("threshold must not be negative")
		}
		updated.MinThreshold = *req.MinThreshold
	}
	if req.SupplierID != nil {
		updated.SupplierID = strings.TrimSpace(*req.SupplierID)
	}

	saved, err := s.repo.UpdateIngredient(ctx, updated)
	if err != nil {
		return domain.Ingredient{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityInventory, saved.ID, "name="+saved.Name)
	return *saved, nil
}

func (s *Service) DeleteIngredient(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleManager, domain.RoleChef); err != nil {
		return err
	}
	if err := s.repo.DeleteIngredient(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.AuditDelete, domain.EntityInventory, id, "")
	return nil
}

// Restock books a manual purchase without an invoice.
func (s *Service) Restock(ctx context.Context, id string, req domain.RestockRequest) (domain.Ingredient, error) {
	if req.Quantity <= 0 {
		return domain.Ingredient{}, invalidf("quantity must be positive")
	}
	if req.CostPerUnit < 0 {
		return domain.Ingredient{}, invalidf("cost must not be negative")
	}

	updated, err := s.repo.ReceiveStock(ctx, nil, []domain.StockReceipt{{
		IngredientID: id,
		Quantity:     req.Quantity,
		CostPerUnit:  req.CostPerUnit,
		Date:         s.now(),
	}})
	if err != nil {
		return domain.Ingredient{}, err
	}
	if len(updated) != 1 {
		return domain.Ingredient{}, fmt.Errorf("restock returned %d ingredients", len(updated))
	}
	ing := updated[0]
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityInventory, ing.ID, fmt.Sprintf("restock=%g@%g,avg=%g", req.Quantity, req.CostPerUnit, ing.CostPerUnit))
	return ing, nil
}

func (s *Service) ListPrepTasks(ctx context.Context) ([]domain.PrepTask, error) {
	return s.repo.ListPrepTasks(ctx)
}

// PrepShortfall lists the prep tasks below par, largest gap first.
func (s *Service) PrepShortfall(ctx context.Context) ([]domain.PrepTask, error) {
	tasks, err := s.repo.ListPrepTasks(ctx)
	if err != nil {
		return nil, err
	}
	short := make([]domain.PrepTask, 0)
	for _, task := range tasks {
		if task.Shortfall() > 0 {
			short = append(short, task)
		}
	}
	sort.SliceStable(short, func(i, j int) bool {
		return short[i].Shortfall() > short[j].Shortfall()
	})
	return short, nil
}

func validatePrepTask(req domain.PrepTaskRequest) (domain.PrepTaskRequest, error) {
	req.Item = strings.TrimSpace(req.Item)
	req.Station = strings.TrimSpace(req.Station)
	if req.Item == "" {
		return req, invalidf("item is required")
	}
	if !costing.IsKnownUnit(req.Unit) {
		return req, invalidf("unknown unit %q", req.Unit)
	}
	if req.ParLevel < 0 || req.OnHand < 0 {
		return req, invalidf("par level and on hand must not be negative")
	}
	return req, nil
}

func (s *Service) CreatePrepTask(ctx context.Context, req domain.PrepTaskRequest) (domain.PrepTask, error) {
	req, err := validatePrepTask(req)
	if err != nil {
		return domain.PrepTask{}, err
	}
	created, err := s.repo.CreatePrepTask(ctx, domain.PrepTask{
		Item:     req.Item,
		Station:  req.Station,
		ParLevel: req.ParLevel,
		OnHand:   req.OnHand,
		Unit:     req.Unit,
	})
	if err != nil {
		return domain.PrepTask{}, err
	}
	s.logAudit(ctx, domain.AuditCreate, domain.EntityPrep, created.ID, "item="+created.Item)
	return *created, nil
}

func (s *Service) UpdatePrepTask(ctx context.Context, id string, req domain.PrepTaskRequest) (domain.PrepTask, error) {
	req, err := validatePrepTask(req)
	if err != nil {
		return domain.PrepTask{}, err
	}
	existing, err := s.repo.GetPrepTask(ctx, id)
	if err != nil {
		return domain.PrepTask{}, err
	}
	updated := *existing
	updated.Item = req.Item
	updated.Station = req.Station
	updated.ParLevel = req.ParLevel
	updated.OnHand = req.OnHand
	updated.Unit = req.Unit

	saved, err := s.repo.UpdatePrepTask(ctx, updated)
	if err != nil {
		return domain.PrepTask{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityPrep, saved.ID, "item="+saved.Item)
	return *saved, nil
}

func (s *Service) DeletePrepTask(ctx context.Context, id string) error {
	if err := s.repo.DeletePrepTask(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.AuditDelete, domain.EntityPrep, id, "")
	return nil
}

// SavePrepRecipe replaces the recipe of a prep task and reprices one unit of
// its output from the current ingredient costs.
func (s *Service) SavePrepRecipe(ctx context.Context, id string, req domain.PrepRecipeRequest) (domain.PrepTask, error) {
	if len(req.Recipe) == 0 {
		return domain.PrepTask{}, invalidf("recipe is empty")
	}
	if err := validateRecipe(req.Recipe, false); err != nil {
		return domain.PrepTask{}, err
	}
	if req.BatchSize <= 0 {
		return domain.PrepTask{}, invalidf("batch size must be positive")
	}

	existing, err := s.repo.GetPrepTask(ctx, id)
	if err != nil {
		return domain.PrepTask{}, err
	}
	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return domain.PrepTask{}, err
	}

	updated := *existing
	updated.Recipe = normalizeRecipe(req.Recipe)
	updated.BatchSize = req.BatchSize
	updated.CostPerUnit = costing.PrepUnitCost(updated.Recipe, updated.BatchSize, catalog)

	saved, err := s.repo.UpdatePrepTask(ctx, updated)
	if err != nil {
		return domain.PrepTask{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityPrep, saved.ID, fmt.Sprintf("recipe_lines=%d,batch=%g,unit_cost=%g", len(saved.Recipe), saved.BatchSize, saved.CostPerUnit))
	return *saved, nil
}

func (s *Service) AdjustOnHand(ctx context.Context, id string, req domain.AdjustOnHandRequest) (domain.PrepTask, error) {
	if req.OnHand < 0 {
		return domain.PrepTask{}, invalidf("on hand must not be negative")
	}
	existing, err := s.repo.GetPrepTask(ctx, id)
	if err != nil {
		return domain.PrepTask{}, err
	}
	updated := *existing
	updated.OnHand = req.OnHand
	saved, err := s.repo.UpdatePrepTask(ctx, updated)
	if err != nil {
		return domain.PrepTask{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityPrep, saved.ID, fmt.Sprintf("on_hand=%g->%g", existing.OnHand, saved.OnHand))
	return *saved, nil
}

// Produce consumes the raw ingredients of the given number of batches and
// adds the output to the task's on-hand quantity in one unit of work.
func (s *Service) Produce(ctx context.Context, id string, req domain.ProduceRequest) (domain.ProduceResponse, error) {
	task, err := s.repo.GetPrepTask(ctx, id)
	if err != nil {
		return domain.ProduceResponse{}, err
	}
	if len(task.Recipe) == 0 {
		return domain.ProduceResponse{}, invalidf("prep task %s has no recipe", task.Item)
	}
	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return domain.ProduceResponse{}, err
	}

	production, err := costing.Produce(*task, req.Batches, catalog.Ingredients)
	if err != nil {
		return domain.ProduceResponse{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	saved, err := s.repo.CommitProduction(ctx, task.ID, production.InventoryDeductions, production.OnHandDelta)
	if err != nil {
		return domain.ProduceResponse{}, err
	}

	s.logAudit(ctx, domain.AuditProduce, domain.EntityPrep, saved.ID, fmt.Sprintf("batches=%g,output=%g %s", req.Batches, production.OnHandDelta, saved.Unit))
	s.publish(realtime.EventPrepProduced, map[string]any{"prep_task": saved, "batches": req.Batches})
	s.announceLowStock(ctx, production.InventoryDeductions)

	return domain.ProduceResponse{
		PrepTask:    *saved,
		Consumed:    production.InventoryDeductions,
		OnHandDelta: production.OnHandDelta,
	}, nil
}

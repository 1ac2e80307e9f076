package service

import (
	"context"
	"fmt"
	"strings"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
)

// MenuCost is a cost breakdown together with the recipe lines that price
// suspiciously.
type MenuCost struct {
	View      domain.MenuItemView   `json:"item"`
	Breakdown domain.CostBreakdown  `json:"breakdown"`
	Issues    []costing.RecipeIssue `json:"issues,omitempty"`
}

func (s *Service) ListMenu(ctx context.Context) ([]domain.MenuItemView, error) {
	menu, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.MenuItemView, 0, len(menu))
	for _, item := range menu {
		views = append(views, costing.View(item, catalog))
	}
	return views, nil
}

func (s *Service) MenuCost(ctx context.Context, id string) (MenuCost, error) {
	item, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return MenuCost{}, err
	}
	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return MenuCost{}, err
	}
	return MenuCost{
		View:      costing.View(*item, catalog),
		Breakdown: costing.Breakdown(item.ID, item.Recipe, catalog),
		Issues:    costing.CheckRecipe(item.Recipe, catalog),
	}, nil
}

func validateMenuItem(req domain.MenuItemRequest) (domain.MenuItemRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		return req, invalidf("name is required")
	}
	if req.Price < 0 {
		return req, invalidf("price must not be negative")
	}
	if err := validateRecipe(req.Recipe, true); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Service) CreateMenuItem(ctx context.Context, req domain.MenuItemRequest) (domain.MenuItemView, error) {
	req, err := validateMenuItem(req)
	if err != nil {
		return domain.MenuItemView{}, err
	}
	created, err := s.repo.CreateMenuItem(ctx, domain.MenuItem{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Recipe:   normalizeRecipe(req.Recipe),
		ImageURL: strings.TrimSpace(req.ImageURL),
	})
	if err != nil {
		return domain.MenuItemView{}, err
	}
	s.logAudit(ctx, domain.AuditCreate, domain.EntityMenu, created.ID, fmt.Sprintf("name=%s,price=%g", created.Name, created.Price))
	return s.view(ctx, *created)
}

func (s *Service) UpdateMenuItem(ctx context.Context, id string, req domain.MenuItemRequest) (domain.MenuItemView, error) {
	req, err := validateMenuItem(req)
	if err != nil {
		return domain.MenuItemView{}, err
	}
	existing, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return domain.MenuItemView{}, err
	}
	updated := *existing
	updated.Name = req.Name
	updated.Category = req.Category
	updated.Price = req.Price
	updated.Recipe = normalizeRecipe(req.Recipe)
	updated.ImageURL = strings.TrimSpace(req.ImageURL)

	saved, err := s.repo.UpdateMenuItem(ctx, updated)
	if err != nil {
		return domain.MenuItemView{}, err
	}
	s.logAudit(ctx, domain.AuditUpdate, domain.EntityMenu, saved.ID, fmt.Sprintf("price=%g->%g", existing.Price, saved.Price))
	return s.view(ctx, *saved)
}

func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleManager, domain.RoleChef); err != nil {
		return err
	}
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, domain.AuditDelete, domain.EntityMenu, id, "")
	return nil
}

func (s *Service) view(ctx context.Context, item domain.MenuItem) (domain.MenuItemView, error) {
	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return domain.MenuItemView{}, err
	}
	return costing.View(item, catalog), nil
}

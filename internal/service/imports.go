package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"foodyar/backend/internal/advisor"
	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/importer"
	"foodyar/backend/internal/realtime"
	"foodyar/backend/internal/xid"
)

const importedCategory = "imported"

// PreviewSalesImport turns an exported sales spreadsheet into structured
// lines. Nothing is stored until ImportSales confirms the result.
func (s *Service) PreviewSalesImport(ctx context.Context, filename string, r io.Reader) (domain.ProcessedSales, error) {
	csv, err := importer.ToCSV(filename, r)
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			return domain.ProcessedSales{}, invalidf("%v", err)
		}
		return domain.ProcessedSales{}, invalidf("read spreadsheet: %v", err)
	}
	menu, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return domain.ProcessedSales{}, err
	}
	return s.oracle.ProcessSales(ctx, csv, menu)
}

// ImportSales books confirmed import data as a single delivered card sale.
// Names unknown to the menu become new menu items with empty recipes, so
// they sell at zero cost until a recipe is entered. Prices are converted to
// the base currency first.
func (s *Service) ImportSales(ctx context.Context, req domain.SalesImportRequest) (domain.SalesImportResponse, error) {
	if err := advisor.ValidateProcessedSales(req.Data); err != nil {
		return domain.SalesImportResponse{}, invalidf("%v", err)
	}
	if len(req.Data.ProcessedSales) == 0 {
		return domain.SalesImportResponse{}, invalidf("import has no sale lines")
	}
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	factor := importer.CurrencyFactor(currency)

	menu, err := s.repo.ListMenuItems(ctx)
	if err != nil {
		return domain.SalesImportResponse{}, err
	}
	catalog, _, _, err := s.catalog(ctx)
	if err != nil {
		return domain.SalesImportResponse{}, err
	}
	byName := make(map[string]domain.MenuItem, len(menu))
	for _, item := range menu {
		byName[nameKey(item.Name)] = item
	}

	resp := domain.SalesImportResponse{NewMenuItems: []domain.MenuItem{}}
	addItem := func(name string, price float64, category string) domain.MenuItem {
		if strings.TrimSpace(category) == "" {
			category = importedCategory
		}
		item := domain.MenuItem{
			ID:       xid.New("menu"),
			Name:     strings.TrimSpace(name),
			Category: strings.TrimSpace(category),
			Price:    importer.ApplyCurrency(price, factor),
			Recipe:   []domain.RecipeIngredient{},
		}
		byName[nameKey(item.Name)] = item
		resp.NewMenuItems = append(resp.NewMenuItems, item)
		return item
	}
	for _, found := range req.Data.NewItemsFound {
		if _, exists := byName[nameKey(found.Name)]; exists {
			resp.Skipped = append(resp.Skipped, found.Name)
			continue
		}
		addItem(found.Name, found.Price, found.Category)
	}

	sale := domain.Sale{
		ID:            xid.New("sale"),
		Timestamp:     s.now(),
		PaymentMethod: domain.PaymentCard,
		Status:        domain.SaleStatusDelivered,
	}
	inventory := make(map[string]float64)
	prep := make(map[string]float64)
	totalCost := 0.0
	for _, line := range req.Data.ProcessedSales {
		item, ok := byName[nameKey(line.ItemName)]
		if !ok {
			item = addItem(line.ItemName, line.PricePerItem, importedCategory)
		}
		price := importer.ApplyCurrency(line.PricePerItem, factor)
		unitCost := costing.RecipeCost(item.Recipe, catalog)
		sale.Items = append(sale.Items, domain.SaleItem{
			MenuItemID:  item.ID,
			Name:        item.Name,
			Quantity:    line.Quantity,
			PriceAtSale: price,
			CostAtSale:  unitCost,
		})
		sale.TotalAmount += price * float64(line.Quantity)
		totalCost += unitCost * float64(line.Quantity)

		usedInventory, usedPrep := catalog.Consumption(item.Recipe, float64(line.Quantity))
		for id, amount := range usedInventory {
			inventory[id] += amount
		}
		for id, amount := range usedPrep {
			prep[id] += amount
		}
	}
	sale.TotalAmount = costing.Round(sale.TotalAmount)
	sale.TotalCost = costing.Round(totalCost)

	saved, err := s.repo.CommitSale(ctx, domain.SaleCommit{
		Sale:                sale,
		NewMenuItems:        resp.NewMenuItems,
		InventoryDeductions: inventory,
		PrepDeductions:      prep,
	})
	if err != nil {
		return domain.SalesImportResponse{}, err
	}
	resp.Sale = saved

	s.logAudit(ctx, domain.AuditImport, domain.EntitySale, saved.ID, fmt.Sprintf("lines=%d,new_items=%d,total=%g,currency=%s", len(saved.Items), len(resp.NewMenuItems), saved.TotalAmount, currency))
	s.publish(realtime.EventSaleCreated, saved)
	s.announceLowStock(ctx, inventory)
	return resp, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

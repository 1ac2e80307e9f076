package advisor

import (
	"context"
	"errors"
	"strings"

	"foodyar/backend/internal/domain"
)

var (
	ErrOracleUnavailable = errors.New("advisor unavailable")
	ErrOracleAuth        = errors.New("advisor rejected the api key")
	ErrMalformedResponse = errors.New("malformed advisor response")
)

// BusinessContext is the snapshot handed to free-text advice.
type BusinessContext struct {
	Menu          []domain.MenuItemView `json:"menu"`
	LowStock      []domain.Ingredient   `json:"low_stock"`
	Revenue       float64               `json:"revenue"`
	GrossProfit   float64               `json:"gross_profit"`
	WasteLoss     float64               `json:"waste_loss"`
	PeriodDays    int                   `json:"period_days"`
	PrepShortfall []domain.PrepTask     `json:"prep_shortfall,omitempty"`
}

type ExtractedLine struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	CostPerUnit float64 `json:"cost_per_unit"`
}

type InvoiceExtraction struct {
	InvoiceDate string          `json:"invoice_date,omitempty"`
	Items       []ExtractedLine `json:"items"`
}

// Oracle is the generative model behind the advisor endpoints. Every call
// returns either validated data or one of the package errors.
type Oracle interface {
	Advice(ctx context.Context, question string, bc BusinessContext) (string, error)
	DailySpecial(ctx context.Context, ingredients []domain.Ingredient) (domain.GeneratedRecipe, error)
	ExtractInvoice(ctx context.Context, image []byte, mimeType string) (InvoiceExtraction, error)
	ProcessSales(ctx context.Context, csv string, menu []domain.MenuItem) (domain.ProcessedSales, error)
	AnalyzeRecipe(ctx context.Context, item domain.MenuItemView, ingredients []domain.Ingredient) (string, error)
}

// Unavailable is the oracle used when no api key is configured.
type Unavailable struct{}

func (Unavailable) Advice(context.Context, string, BusinessContext) (string, error) {
	return "", ErrOracleUnavailable
}

func (Unavailable) DailySpecial(context.Context, []domain.Ingredient) (domain.GeneratedRecipe, error) {
	return domain.GeneratedRecipe{}, ErrOracleUnavailable
}

func (Unavailable) ExtractInvoice(context.Context, []byte, string) (InvoiceExtraction, error) {
	return InvoiceExtraction{}, ErrOracleUnavailable
}

func (Unavailable) ProcessSales(context.Context, string, []domain.MenuItem) (domain.ProcessedSales, error) {
	return domain.ProcessedSales{}, ErrOracleUnavailable
}

func (Unavailable) AnalyzeRecipe(context.Context, domain.MenuItemView, []domain.Ingredient) (string, error) {
	return "", ErrOracleUnavailable
}

// MatchInventory links extracted invoice lines to existing ingredients. A
// line matches when either name contains the other, ignoring case. Lines
// without a match are flagged as new.
func MatchInventory(lines []ExtractedLine, inventory []domain.Ingredient) []domain.ProcessedInvoiceItem {
	result := make([]domain.ProcessedInvoiceItem, 0, len(lines))
	for _, line := range lines {
		unit, _ := ParseLineUnit(line.Unit)
		item := domain.ProcessedInvoiceItem{
			Name:        strings.TrimSpace(line.Name),
			Quantity:    line.Quantity,
			Unit:        unit,
			CostPerUnit: line.CostPerUnit,
			IsNew:       true,
		}
		needle := strings.ToLower(item.Name)
		for _, ing := range inventory {
			name := strings.ToLower(strings.TrimSpace(ing.Name))
			if name == "" || needle == "" {
				continue
			}
			if strings.Contains(name, needle) || strings.Contains(needle, name) {
				item.IsNew = false
				item.MatchedID = ing.ID
				item.Unit = ing.Unit
				break
			}
		}
		result = append(result, item)
	}
	return result
}

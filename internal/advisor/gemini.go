package advisor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"foodyar/backend/internal/domain"
)

const systemPrompt = "You are the operations advisor of a restaurant. Amounts are in the restaurant's local currency. " +
	"Answer in the language of the question. When JSON is requested reply with the JSON document only."

// Gemini is the Oracle backed by the Generative Language API.
type Gemini struct {
	svc   *generativelanguage.Service
	model string
}

func NewGemini(ctx context.Context, apiKey string, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrOracleUnavailable
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	svc, err := generativelanguage.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return &Gemini{svc: svc, model: model}, nil
}

func (g *Gemini) Advice(ctx context.Context, question string, bc BusinessContext) (string, error) {
	snapshot, err := json.Marshal(bc)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Business snapshot (JSON):\n%s\n\nQuestion: %s", snapshot, question)
	return g.generate(ctx, []*generativelanguage.Part{{Text: prompt}}, false)
}

func (g *Gemini) DailySpecial(ctx context.Context, ingredients []domain.Ingredient) (domain.GeneratedRecipe, error) {
	var b strings.Builder
	b.WriteString("Suggest one daily special that uses ingredients we have in stock, preferring the ones with the most stock. ")
	b.WriteString(`Reply as JSON: {"name","description","category","suggested_price","ingredients":[{"ingredient_id","name","amount","unit"}],"reasoning"}. `)
	b.WriteString("Units must be one of kg, gram, liter, ml, cc, number, pack, can, portion.\nStock:\n")
	for _, ing := range ingredients {
		fmt.Fprintf(&b, "- %s (id %s): %.2f %s at %.0f per %s\n", ing.Name, ing.ID, ing.CurrentStock, ing.Unit, ing.CostPerUnit, ing.Unit)
	}

	raw, err := g.generate(ctx, []*generativelanguage.Part{{Text: b.String()}}, true)
	if err != nil {
		return domain.GeneratedRecipe{}, err
	}
	return decodeRecipe(raw)
}

func (g *Gemini) ExtractInvoice(ctx context.Context, image []byte, mimeType string) (InvoiceExtraction, error) {
	prompt := `Read this supplier invoice. Reply as JSON: {"invoice_date":"YYYY-MM-DD","items":[{"name","quantity","unit","cost_per_unit"}]}. ` +
		"cost_per_unit is the price of one unit, not the line total."
	parts := []*generativelanguage.Part{
		{Text: prompt},
		{InlineData: &generativelanguage.Blob{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
	}
	raw, err := g.generate(ctx, parts, true)
	if err != nil {
		return InvoiceExtraction{}, err
	}
	return decodeInvoice(raw)
}

func (g *Gemini) ProcessSales(ctx context.Context, csv string, menu []domain.MenuItem) (domain.ProcessedSales, error) {
	names := make([]string, 0, len(menu))
	for _, item := range menu {
		names = append(names, item.Name)
	}
	prompt := "Aggregate this sales export into items sold. Map item names to the existing menu when they refer to the same dish. " +
		"Items that are not on the menu go to new_items_found. " +
		`Reply as JSON: {"processed_sales":[{"item_name","quantity","price_per_item"}],"new_items_found":[{"name","price","category"}]}.` +
		"\nExisting menu: " + strings.Join(names, ", ") + "\nCSV:\n" + csv

	raw, err := g.generate(ctx, []*generativelanguage.Part{{Text: prompt}}, true)
	if err != nil {
		return domain.ProcessedSales{}, err
	}
	return decodeSales(raw)
}

func (g *Gemini) AnalyzeRecipe(ctx context.Context, item domain.MenuItemView, ingredients []domain.Ingredient) (string, error) {
	names := make(map[string]string, len(ingredients))
	for _, ing := range ingredients {
		names[ing.ID] = ing.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Review the costing of %q. Price %.0f, cost %.0f, margin %.2f%%.\nRecipe:\n", item.Name, item.Price, item.Cost, item.MarginPercent)
	for _, line := range item.Recipe {
		name := names[line.IngredientID]
		if name == "" {
			name = line.IngredientID
		}
		fmt.Fprintf(&b, "- %s: %.2f %s\n", name, line.Amount, line.Unit)
	}
	b.WriteString("Suggest concrete ways to improve the margin without hurting quality.")
	return g.generate(ctx, []*generativelanguage.Part{{Text: b.String()}}, false)
}

func (g *Gemini) generate(ctx context.Context, parts []*generativelanguage.Part, jsonReply bool) (string, error) {
	req := &generativelanguage.GenerateContentRequest{
		Contents:          []*generativelanguage.Content{{Role: "user", Parts: parts}},
		SystemInstruction: &generativelanguage.Content{Parts: []*generativelanguage.Part{{Text: systemPrompt}}},
		GenerationConfig:  &generativelanguage.GenerationConfig{Temperature: 0.4},
	}
	if jsonReply {
		req.GenerationConfig.ResponseMimeType = "application/json"
		req.GenerationConfig.Temperature = 0.2
	}

	resp, err := g.svc.Models.GenerateContent("models/"+g.model, req).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}

	var out strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				out.WriteString(part.Text)
			}
		}
		if out.Len() > 0 {
			break
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: empty candidate list", ErrMalformedResponse)
	}
	return out.String(), nil
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrOracleAuth, apiErr.Message)
		case http.StatusBadRequest:
			if strings.Contains(strings.ToLower(apiErr.Message), "api key") {
				return fmt.Errorf("%w: %s", ErrOracleAuth, apiErr.Message)
			}
		}
	}
	log.Printf("[advisor] WARN: generate content failed: %v", err)
	return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
}

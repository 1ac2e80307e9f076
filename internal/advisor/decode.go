package advisor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
)

// decodeStrict parses one JSON document from a model reply. Markdown code
// fences around the document are tolerated, anything after it is not.
// Unknown fields are ignored; the per-shape checks validate what is used.
func decodeStrict(raw string, dest any) error {
	body := stripFences(raw)
	if body == "" {
		return fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON document", ErrMalformedResponse)
	}
	return nil
}

func stripFences(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the language tag line
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

// ParseLineUnit accepts the unit spellings models tend to produce. Unknown
// units fall back to number.
func ParseLineUnit(raw string) (domain.Unit, bool) {
	if unit, ok := costing.ParseUnit(raw); ok {
		return unit, true
	}
	return domain.UnitNumber, false
}

func decodeRecipe(raw string) (domain.GeneratedRecipe, error) {
	var recipe domain.GeneratedRecipe
	if err := decodeStrict(raw, &recipe); err != nil {
		return domain.GeneratedRecipe{}, err
	}
	if strings.TrimSpace(recipe.Name) == "" {
		return domain.GeneratedRecipe{}, fmt.Errorf("%w: recipe name missing", ErrMalformedResponse)
	}
	if recipe.SuggestedPrice < 0 {
		return domain.GeneratedRecipe{}, fmt.Errorf("%w: negative suggested price", ErrMalformedResponse)
	}
	if len(recipe.Ingredients) == 0 {
		return domain.GeneratedRecipe{}, fmt.Errorf("%w: recipe has no ingredients", ErrMalformedResponse)
	}
	for i, ing := range recipe.Ingredients {
		if strings.TrimSpace(ing.Name) == "" || ing.Amount <= 0 {
			return domain.GeneratedRecipe{}, fmt.Errorf("%w: ingredient %d needs a name and a positive amount", ErrMalformedResponse, i)
		}
		unit, ok := costing.ParseUnit(string(ing.Unit))
		if !ok {
			return domain.GeneratedRecipe{}, fmt.Errorf("%w: ingredient %d has unknown unit %q", ErrMalformedResponse, i, ing.Unit)
		}
		recipe.Ingredients[i].Unit = unit
	}
	return recipe, nil
}

func decodeInvoice(raw string) (InvoiceExtraction, error) {
	var extraction InvoiceExtraction
	if err := decodeStrict(raw, &extraction); err != nil {
		return InvoiceExtraction{}, err
	}
	if len(extraction.Items) == 0 {
		return InvoiceExtraction{}, fmt.Errorf("%w: no invoice lines", ErrMalformedResponse)
	}
	for i, line := range extraction.Items {
		if strings.TrimSpace(line.Name) == "" {
			return InvoiceExtraction{}, fmt.Errorf("%w: line %d has no name", ErrMalformedResponse, i)
		}
		if line.Quantity <= 0 || line.CostPerUnit < 0 {
			return InvoiceExtraction{}, fmt.Errorf("%w: line %d has invalid quantity or cost", ErrMalformedResponse, i)
		}
	}
	return extraction, nil
}

func decodeSales(raw string) (domain.ProcessedSales, error) {
	var sales domain.ProcessedSales
	if err := decodeStrict(raw, &sales); err != nil {
		return domain.ProcessedSales{}, err
	}
	if err := ValidateProcessedSales(sales); err != nil {
		return domain.ProcessedSales{}, err
	}
	return sales, nil
}

// ValidateProcessedSales checks an import payload, whether it came from the
// model or straight from a client.
func ValidateProcessedSales(sales domain.ProcessedSales) error {
	for i, line := range sales.ProcessedSales {
		if strings.TrimSpace(line.ItemName) == "" || line.Quantity <= 0 || line.PricePerItem < 0 {
			return fmt.Errorf("%w: sale line %d is invalid", ErrMalformedResponse, i)
		}
	}
	for i, item := range sales.NewItemsFound {
		if strings.TrimSpace(item.Name) == "" || item.Price < 0 {
			return fmt.Errorf("%w: new item %d is invalid", ErrMalformedResponse, i)
		}
	}
	return nil
}

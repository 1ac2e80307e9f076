package costing

import (
	"errors"
	"fmt"
	"strings"

	"foodyar/backend/internal/domain"
)

var ErrUnsupportedConversion = errors.New("unsupported unit conversion")

// conversions holds the multiplicative factor from one unit to another.
// Pairs that are not listed fall back to 1 in lenient lookups.
var conversions = map[domain.Unit]map[domain.Unit]float64{
	domain.UnitKilogram:   {domain.UnitGram: 1000},
	domain.UnitGram:       {domain.UnitKilogram: 0.001},
	domain.UnitLiter:      {domain.UnitMilliliter: 1000, domain.UnitCC: 1000},
	domain.UnitMilliliter: {domain.UnitLiter: 0.001, domain.UnitCC: 1},
	domain.UnitCC:         {domain.UnitLiter: 0.001, domain.UnitMilliliter: 1},
}

var knownUnits = map[domain.Unit]struct{}{
	domain.UnitKilogram:   {},
	domain.UnitGram:       {},
	domain.UnitLiter:      {},
	domain.UnitMilliliter: {},
	domain.UnitCC:         {},
	domain.UnitNumber:     {},
	domain.UnitPack:       {},
	domain.UnitCan:        {},
	domain.UnitPortion:    {},
}

var unitAliases = map[string]domain.Unit{
	"g":          domain.UnitGram,
	"gr":         domain.UnitGram,
	"grams":      domain.UnitGram,
	"kilo":       domain.UnitKilogram,
	"kilogram":   domain.UnitKilogram,
	"kilograms":  domain.UnitKilogram,
	"l":          domain.UnitLiter,
	"lit":        domain.UnitLiter,
	"litre":      domain.UnitLiter,
	"milliliter": domain.UnitMilliliter,
	"pcs":        domain.UnitNumber,
	"piece":      domain.UnitNumber,
}

// Factor returns the multiplier that converts an amount in from into to.
// Unknown pairs return 1.
func Factor(from, to domain.Unit) float64 {
	factor, _ := ResolveConversionFactor(from, to)
	return factor
}

// ResolveConversionFactor is the lenient lookup. The boolean reports whether
// the pair is actually registered; an unregistered pair still yields 1.
func ResolveConversionFactor(from, to domain.Unit) (float64, bool) {
	if from == to {
		return 1, true
	}
	if factor, ok := conversions[from][to]; ok {
		return factor, true
	}
	return 1, false
}

// ConversionFactor is the strict lookup.
func ConversionFactor(from, to domain.Unit) (float64, error) {
	factor, ok := ResolveConversionFactor(from, to)
	if !ok {
		return 0, fmt.Errorf("%w: %s -> %s", ErrUnsupportedConversion, from, to)
	}
	return factor, nil
}

func IsKnownUnit(unit domain.Unit) bool {
	_, ok := knownUnits[unit]
	return ok
}

func ParseUnit(raw string) (domain.Unit, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", false
	}
	if alias, ok := unitAliases[normalized]; ok {
		return alias, true
	}
	unit := domain.Unit(normalized)
	if !IsKnownUnit(unit) {
		return unit, false
	}
	return unit, true
}

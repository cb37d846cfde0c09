package service

import (
	"math"

	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
)

// Calculate computes the scope subtotals and embedded intensity for one
// production batch. It has no side effects.
//
// Validation runs before any arithmetic: the production quantity guard is what
// makes the final division safe.
func Calculate(input emissiondomain.CalculationInput, factors emissiondomain.FactorTable) (emissiondomain.CalculationResult, error) {
	if !Validate(input.CNCode).Valid {
		return emissiondomain.CalculationResult{}, emissiondomain.ErrInvalidCNCode
	}
	if math.IsNaN(input.ProductionQty) || input.ProductionQty <= 0 {
		return emissiondomain.CalculationResult{}, emissiondomain.ErrInvalidProductionQty
	}
	if isNegative(input.Electricity) || isNegative(input.Diesel) || isNegative(input.Coal) {
		return emissiondomain.CalculationResult{}, emissiondomain.ErrNegativeQuantity
	}

	scope1 := (input.Diesel/1000)*factors.DieselFactor + (input.Coal/1000)*factors.CoalFactor
	scope2 := (input.Electricity / 1000) * factors.GridFactor

	var scope3 float64
	for _, row := range input.Precursors {
		if !(row.Qty > 0) {
			continue
		}
		factor, ok := factors.PrecursorFactor(row.Type)
		if !ok {
			continue
		}
		scope3 += row.Qty * factor
	}

	total := scope1 + scope2 + scope3
	return emissiondomain.CalculationResult{
		Scope1:        scope1,
		Scope2:        scope2,
		Scope3:        scope3,
		Total:         total,
		Intensity:     total / input.ProductionQty,
		CNCode:        input.CNCode,
		ProductionQty: input.ProductionQty,
	}, nil
}

func isNegative(v float64) bool {
	return v < 0 || math.IsNaN(v)
}

package domain

import "context"

// Service runs calculations against the live factor table.
type Service interface {
	Validate(code string) Classification
	Calculate(ctx context.Context, input CalculationInput) (CalculationResult, error)
	Factors() FactorTable
}

package domain

import (
	"context"

	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
)

type Service interface {
	SaveReport(ctx context.Context, req SaveRequest) (*Report, error)
	ListReports(ctx context.Context, ownerID string) ([]Report, error)
}

type SaveRequest struct {
	OwnerID string
	Input   emissiondomain.CalculationInput
	Result  emissiondomain.CalculationResult
}

package service

import (
	"context"
	"errors"

	"github.com/smallbiznis/cbam/internal/config"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	obsmetrics "github.com/smallbiznis/cbam/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Factors *config.FactorsHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	factors *config.FactorsHolder
	metrics *obsmetrics.Metrics
}

func New(p Params) emissiondomain.Service {
	return &Service{
		log:     p.Log.Named("emission.service"),
		factors: p.Factors,
		metrics: p.Metrics,
	}
}

func (s *Service) Validate(code string) emissiondomain.Classification {
	return Validate(code)
}

func (s *Service) Factors() emissiondomain.FactorTable {
	return s.factors.Get()
}

func (s *Service) Calculate(ctx context.Context, input emissiondomain.CalculationInput) (emissiondomain.CalculationResult, error) {
	result, err := Calculate(input, s.factors.Get())
	if err != nil {
		s.metrics.RecordCalculation(outcome(err))
		s.log.Debug("calculation rejected",
			zap.String("cn_code", input.CNCode),
			zap.Error(err),
		)
		return emissiondomain.CalculationResult{}, err
	}

	s.metrics.RecordCalculation(obsmetrics.OutcomeOK)
	s.log.Debug("calculation completed",
		zap.String("cn_code", result.CNCode),
		zap.Float64("total", result.Total),
		zap.Float64("intensity", result.Intensity),
	)
	return result, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, emissiondomain.ErrInvalidCNCode):
		return "invalid_cn_code"
	case errors.Is(err, emissiondomain.ErrInvalidProductionQty):
		return "invalid_production_qty"
	case errors.Is(err, emissiondomain.ErrNegativeQuantity):
		return "invalid_quantity"
	default:
		return "error"
	}
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/cbam/internal/clock"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
	obsmetrics "github.com/smallbiznis/cbam/internal/observability/metrics"
	"github.com/smallbiznis/cbam/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock         `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		log:     p.Log.Named("report.service"),
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
	}
}

func (s *Service) SaveReport(ctx context.Context, req domain.SaveRequest) (*domain.Report, error) {
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return nil, domain.ErrUnauthenticated
	}

	productType := emissionservice.ProductType(req.Result.CNCode)
	report := &domain.Report{
		UserID:        owner,
		CNCode:        req.Result.CNCode,
		ProductType:   productType,
		ProductionQty: req.Result.ProductionQty,
		InputData: datatypes.NewJSONType(domain.InputSnapshot{
			Electricity: req.Input.Electricity,
			Diesel:      req.Input.Diesel,
			Coal:        req.Input.Coal,
			Precursors:  persistedPrecursors(req.Input.Precursors),
		}),
		TotalEmissions: req.Result.Total,
		Intensity:      req.Result.Intensity,
		CreatedAt:      s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, report); err != nil {
		s.log.Error("failed to save report", zap.String("user_id", owner), zap.Error(err))
		return nil, err
	}
	if report.ID == uuid.Nil {
		return nil, domain.ErrMissingReportID
	}

	s.metrics.RecordReportSaved(productType)
	s.log.Info("report saved",
		zap.String("report_id", report.ID.String()),
		zap.String("user_id", owner),
		zap.String("product_type", productType),
	)
	return report, nil
}

func (s *Service) ListReports(ctx context.Context, ownerID string) ([]domain.Report, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, owner)
}

// persistedPrecursors keeps rows with a material and a positive quantity.
func persistedPrecursors(rows []emissiondomain.PrecursorInput) []emissiondomain.PrecursorInput {
	out := make([]emissiondomain.PrecursorInput, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Type) == "" || !(row.Qty > 0) {
			continue
		}
		out = append(out, row)
	}
	return out
}

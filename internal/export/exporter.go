// Package export renders calculation results as downloadable documents.
package export

import (
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	obsmetrics "github.com/smallbiznis/cbam/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("export",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Exporter wraps the document renderers with logging and metrics.
type Exporter struct {
	log     *zap.Logger
	metrics *obsmetrics.Metrics
}

func New(p Params) *Exporter {
	return &Exporter{
		log:     p.Log.Named("export"),
		metrics: p.Metrics,
	}
}

func (e *Exporter) PDF(result emissiondomain.CalculationResult, reportID string) ([]byte, error) {
	doc, err := PDF(result, reportID)
	e.record(KindPDF, doc, err)
	return doc, err
}

func (e *Exporter) XML(result emissiondomain.CalculationResult) ([]byte, error) {
	doc, err := XML(result)
	e.record(KindXML, doc, err)
	return doc, err
}

func (e *Exporter) record(kind string, doc []byte, err error) {
	e.metrics.RecordExport(kind, len(doc), err)
	if err != nil {
		e.log.Error("export failed", zap.String("format", kind), zap.Error(err))
		return
	}
	e.log.Debug("export rendered", zap.String("format", kind), zap.Int("bytes", len(doc)))
}

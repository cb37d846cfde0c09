package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"github.com/smallbiznis/cbam/internal/export"
	obslogger "github.com/smallbiznis/cbam/internal/observability/logger"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	"github.com/smallbiznis/cbam/internal/workbench"
	"go.uber.org/zap"
)

type reportView struct {
	ID             string                     `json:"id"`
	CNCode         string                     `json:"cn_code"`
	ProductType    string                     `json:"product_type"`
	ProductionQty  float64                    `json:"production_qty"`
	InputData      reportdomain.InputSnapshot `json:"input_data"`
	TotalEmissions float64                    `json:"total_emissions"`
	Intensity      float64                    `json:"intensity"`
	Impact         string                     `json:"impact"`
	CreatedAt      time.Time                  `json:"created_at"`
}

type kpiView struct {
	Count            int      `json:"count"`
	AverageIntensity *float64 `json:"average_intensity"`
	AverageDisplay   string   `json:"average_intensity_display"`
}

type dashboardView struct {
	Profile authdomain.Profile `json:"profile"`
	KPIs    kpiView            `json:"kpis"`
	Reports []reportView       `json:"reports"`
}

func toReportViews(reports []reportdomain.Report) []reportView {
	out := make([]reportView, 0, len(reports))
	for _, r := range reports {
		out = append(out, reportView{
			ID:             r.ID.String(),
			CNCode:         r.CNCode,
			ProductType:    r.ProductType,
			ProductionQty:  r.ProductionQty,
			InputData:      r.InputData.Data(),
			TotalEmissions: r.TotalEmissions,
			Intensity:      r.Intensity,
			Impact:         reportdomain.ImpactOf(r.Intensity),
			CreatedAt:      r.CreatedAt,
		})
	}
	return out
}

// ExportReport calculates, saves the report and returns it as a PDF. Concurrent
// exports of one user are rejected while the first is running.
func (s *Server) ExportReport(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	input, ok := bindInput(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	result, err := s.emissionSvc.Calculate(ctx, input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := identity.User.ID.String()
	lockKey := keyExportLock + userID
	token, acquired, err := s.locker.TryLock(ctx, lockKey, exportLockTTL)
	if err != nil {
		obslogger.FromContext(ctx).Warn("export lock failed", zap.Error(err))
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	if !acquired {
		AbortWithError(c, workbench.ErrExportInProgress)
		return
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey, token); err != nil {
			obslogger.FromContext(ctx).Warn("export lock release failed", zap.Error(err))
		}
	}()

	report, err := s.reportSvc.SaveReport(ctx, reportdomain.SaveRequest{
		OwnerID: userID,
		Input:   input,
		Result:  result,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reportID := report.ID.String()
	doc, err := s.exporter.PDF(result, reportID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("X-Report-Id", reportID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(export.KindPDF, result.CNCode, reportID)))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (s *Server) ExportXML(c *gin.Context) {
	result, ok := s.calculateFromBody(c)
	if !ok {
		return
	}
	doc, err := s.exporter.XML(result)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(export.KindXML, result.CNCode, "")))
	c.Data(http.StatusOK, "application/xml", doc)
}

func (s *Server) ListReports(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	reports, err := s.reportSvc.ListReports(c.Request.Context(), identity.User.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toReportViews(reports)})
}

func (s *Server) Dashboard(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	reports, err := s.reportSvc.ListReports(c.Request.Context(), identity.User.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary := reportdomain.Summarize(reports)
	c.JSON(http.StatusOK, gin.H{"data": dashboardView{
		Profile: identity.User.Profile(),
		KPIs: kpiView{
			Count:            summary.Count,
			AverageIntensity: summary.AverageIntensity,
			AverageDisplay:   summary.FormatAverage(),
		},
		Reports: toReportViews(reports),
	}})
}

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/cbam/internal/auth"
	"github.com/smallbiznis/cbam/internal/auth/cookie"
	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"github.com/smallbiznis/cbam/internal/config"
	"github.com/smallbiznis/cbam/internal/draft"
	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	"github.com/smallbiznis/cbam/internal/emission"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	"github.com/smallbiznis/cbam/internal/export"
	"github.com/smallbiznis/cbam/internal/observability"
	obslogger "github.com/smallbiznis/cbam/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/cbam/internal/observability/metrics"
	obstracing "github.com/smallbiznis/cbam/internal/observability/tracing"
	"github.com/smallbiznis/cbam/internal/ratelimit"
	"github.com/smallbiznis/cbam/internal/report"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	auth.Module,
	emission.Module,
	draft.Module,
	report.Module,
	export.Module,
	ratelimit.Module,
	fx.Provide(cookie.NewManager),
	fx.Provide(NewServer),
	fx.Provide(NewEngine),
	fx.Invoke(run),
)

const (
	exportLockTTL = 30 * time.Second
	keyExportLock = "cbam:export:"
)

type Params struct {
	fx.In

	Cfg         config.Config
	ObsCfg      observability.Config
	Log         *zap.Logger
	Metrics     *obsmetrics.Metrics `optional:"true"`
	Gatherer    prometheus.Gatherer `optional:"true"`
	Cookies     *cookie.Manager
	AuthSvc     authdomain.Service
	EmissionSvc emissiondomain.Service
	DraftSvc    draftdomain.Service
	ReportSvc   reportdomain.Service
	Exporter    *export.Exporter
	AuthLimiter *ratelimit.AuthLimiter `optional:"true"`
	Locker      ratelimit.Locker
}

type Server struct {
	cfg         config.Config
	debug       bool
	log         *zap.Logger
	metrics     *obsmetrics.Metrics
	gatherer    prometheus.Gatherer
	cookies     *cookie.Manager
	authsvc     authdomain.Service
	emissionSvc emissiondomain.Service
	draftSvc    draftdomain.Service
	reportSvc   reportdomain.Service
	exporter    *export.Exporter
	authLimiter *ratelimit.AuthLimiter
	locker      ratelimit.Locker
}

func NewServer(p Params) *Server {
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:         p.Cfg,
		debug:       p.ObsCfg.Debug(),
		log:         p.Log.Named("http.server"),
		metrics:     p.Metrics,
		gatherer:    gatherer,
		cookies:     p.Cookies,
		authsvc:     p.AuthSvc,
		emissionSvc: p.EmissionSvc,
		draftSvc:    p.DraftSvc,
		reportSvc:   p.ReportSvc,
		exporter:    p.Exporter,
		authLimiter: p.AuthLimiter,
		locker:      p.Locker,
	}
}

// NewEngine builds the gin engine with middlewares and every route.
func NewEngine(s *Server) *gin.Engine {
	r := gin.New()
	// ClientIP keys the auth rate limit, so forwarding headers only count
	// from configured proxies.
	if err := r.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		s.log.Warn("invalid trusted proxies, using the socket peer", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(s.log, obslogger.MiddlewareConfig{
		Debug:           s.debug,
		ErrorClassifier: classifyErrorForLog,
		Observe:         s.metrics.ObserveHTTP,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.RateLimitAuth("signup"), s.SignUp)
	authGroup.POST("/login", s.RateLimitAuth("login"), s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.POST("/refresh", s.Refresh)
	authGroup.GET("/session", s.CurrentSession)
	authGroup.PATCH("/profile", s.AuthRequired(), s.UpdateProfile)

	api.GET("/factors", s.Factors)
	api.POST("/cn-codes/validate", s.ValidateCNCode)
	api.POST("/calculations", s.Calculate)

	api.GET("/drafts", s.GetDraft)
	api.PUT("/drafts", s.SaveDraft)
	api.DELETE("/drafts", s.ClearDraft)

	api.POST("/reports/export", s.AuthRequired(), s.ExportReport)
	api.GET("/reports", s.AuthRequired(), s.ListReports)
	api.GET("/dashboard", s.AuthRequired(), s.Dashboard)

	api.POST("/exports/xml", s.ExportXML)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

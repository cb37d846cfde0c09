// Package cli implements the cbam command line: the HTTP server plus local
// commands that drive the calculator against CBAM_HOME storage.
package cli

import (
	"context"
	"path/filepath"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cbam/internal/auth/repository"
	authservice "github.com/smallbiznis/cbam/internal/auth/service"
	"github.com/smallbiznis/cbam/internal/clock"
	"github.com/smallbiznis/cbam/internal/config"
	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	draftservice "github.com/smallbiznis/cbam/internal/draft/service"
	"github.com/smallbiznis/cbam/internal/draft/store"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
	"github.com/smallbiznis/cbam/internal/export"
	"github.com/smallbiznis/cbam/internal/migration"
	"github.com/smallbiznis/cbam/internal/observability/logger"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	reportrepo "github.com/smallbiznis/cbam/internal/report/repository"
	reportservice "github.com/smallbiznis/cbam/internal/report/service"
	"github.com/smallbiznis/cbam/internal/session"
	"github.com/smallbiznis/cbam/internal/workbench"
	"github.com/smallbiznis/cbam/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	draftsDir   = "drafts"
	sessionFile = "session.json"
)

// OpenDB opens the report and account database for local commands.
type OpenDB func(cfg config.Config, log *zap.Logger) (*gorm.DB, error)

// Options customise the root command; zero values use the real environment.
type Options struct {
	LoadConfig func() config.Config
	OpenDB     OpenDB
	Clock      clock.Clock
}

// app holds the lazily built services shared by the local commands.
type app struct {
	opts    Options
	verbose bool
	home    string

	cfg  config.Config
	log  *zap.Logger
	conn *gorm.DB

	emission emissiondomain.Service
	drafts   draftdomain.Service
}

// NewRootCmd creates the root command with the serve and local subcommands.
func NewRootCmd(version string) *cobra.Command {
	return NewRootCmdWithOptions(version, Options{})
}

func NewRootCmdWithOptions(version string, opts Options) *cobra.Command {
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.OpenDB == nil {
		opts.OpenDB = openDB
	}
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	a := &app{opts: opts}

	cmd := &cobra.Command{
		Use:           "cbam",
		Short:         "CBAM embedded emissions calculator",
		Long:          "Calculate Scope 1, 2 and 3 embedded emissions for CBAM goods and export declarations.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			a.cfg = a.opts.LoadConfig()
			if a.home != "" {
				a.cfg.Home = a.home
			}
			a.log = logger.NewCLI(a.verbose)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable info logging")
	cmd.PersistentFlags().StringVar(&a.home, "home", "", "local storage directory (default: CBAM_HOME)")

	cmd.AddCommand(
		newServeCmd(),
		newCalcCmd(a),
		newDraftCmd(a),
		newAuthCmd(a),
		newExportCmd(a),
		newReportsCmd(a),
	)
	return cmd
}

func openDB(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := db.ConfigFrom(cfg)
	dbCfg.Instrument = false
	conn, err := db.Open(dbCfg, log)
	if err != nil {
		return nil, err
	}
	if err := migration.Apply(conn, dbCfg.Type); err != nil {
		return nil, err
	}
	return conn, nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.conn == nil {
		return nil
	}
	sqlDB, err := a.conn.DB()
	if err != nil {
		return err
	}
	a.conn = nil
	return sqlDB.Close()
}

func (a *app) emissionService() (emissiondomain.Service, error) {
	if a.emission != nil {
		return a.emission, nil
	}
	factors, err := config.NewFactorsHolder(a.log)
	if err != nil {
		return nil, err
	}
	a.emission = emissionservice.New(emissionservice.Params{Log: a.log, Factors: factors})
	return a.emission, nil
}

func (a *app) draftService() draftdomain.Service {
	if a.drafts == nil {
		a.drafts = draftservice.New(draftservice.Params{
			Log:   a.log,
			Store: store.NewFile(filepath.Join(a.cfg.Home, draftsDir)),
		})
	}
	return a.drafts
}

func (a *app) database() (*gorm.DB, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := a.opts.OpenDB(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.conn = conn
	return conn, nil
}

func (a *app) reportService() (reportdomain.Service, error) {
	conn, err := a.database()
	if err != nil {
		return nil, err
	}
	return reportservice.New(reportservice.Params{
		Log:   a.log,
		Repo:  reportrepo.New(conn),
		Clock: a.opts.Clock,
	}), nil
}

// provider builds the local identity provider with the token kept under home.
func (a *app) provider() (*session.AuthProvider, error) {
	conn, err := a.database()
	if err != nil {
		return nil, err
	}
	node, err := snowflake.NewNode(a.cfg.NodeID)
	if err != nil {
		return nil, err
	}
	repo, sessionRepo := repository.New(conn)
	auth := authservice.New(authservice.Params{
		Log:         a.log,
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       a.opts.Clock,
	})
	tokens := session.NewFileTokenStore(filepath.Join(a.cfg.Home, sessionFile))
	return session.NewAuthProvider(auth, tokens, a.opts.Clock, a.log), nil
}

// sessions starts a session manager over the local provider. The caller
// stops it.
func (a *app) sessions(ctx context.Context) (*session.Manager, *session.AuthProvider, error) {
	p, err := a.provider()
	if err != nil {
		return nil, nil, err
	}
	m := session.NewManager(p, a.log)
	if err := m.Start(ctx); err != nil {
		m.Stop()
		return nil, nil, err
	}
	return m, p, nil
}

// workbench opens a controller on the saved draft. Sessions and reports are
// wired only when withAccount is set.
func (a *app) workbench(ctx context.Context, withAccount bool) (*workbench.Controller, func(), error) {
	emission, err := a.emissionService()
	if err != nil {
		return nil, nil, err
	}
	cfg := workbench.Config{
		Log:       a.log,
		Drafts:    a.draftService(),
		Emission:  emission,
		Documents: export.New(export.Params{Log: a.log}),
	}
	stop := func() {}
	if withAccount {
		manager, _, err := a.sessions(ctx)
		if err != nil {
			return nil, nil, err
		}
		reports, err := a.reportService()
		if err != nil {
			manager.Stop()
			return nil, nil, err
		}
		cfg.Sessions = manager
		cfg.Reports = reports
		stop = manager.Stop
	}

	c := workbench.New(cfg)
	if _, err := c.Open(ctx); err != nil {
		c.Stop()
		stop()
		return nil, nil, err
	}
	return c, func() {
		c.Close()
		c.Stop()
		stop()
	}, nil
}

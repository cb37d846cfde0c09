package cli

import (
	"github.com/smallbiznis/cbam/internal/clock"
	"github.com/smallbiznis/cbam/internal/config"
	"github.com/smallbiznis/cbam/internal/migration"
	"github.com/smallbiznis/cbam/internal/observability"
	"github.com/smallbiznis/cbam/internal/scheduler"
	"github.com/smallbiznis/cbam/internal/server"
	"github.com/smallbiznis/cbam/pkg/db"
	"github.com/smallbiznis/cbam/pkg/redisclient"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Runs the calculator API on HTTP_ADDR.

Accounts and reports are stored in the DATABASE_* database. Drafts, rate limits
and export locks use redis when REDIS_ADDR is set and process memory otherwise.
Expired and revoked sessions are purged every SESSION_SWEEP_INTERVAL.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fxApp := fx.New(
				config.Module,
				observability.Module,
				clock.Module,
				db.Module,
				redisclient.Module,
				migration.Module,
				server.Module,
				scheduler.Module,
			)
			fxApp.Run()
			return fxApp.Err()
		},
	}
}

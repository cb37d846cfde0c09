package migration

import (
	"github.com/smallbiznis/cbam/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg db.Config, log *zap.Logger) error {
		if err := Apply(conn, cfg.Type); err != nil {
			return err
		}
		log.Named("migrations").Info("schema up to date", zap.String("dialect", cfg.Type))
		return nil
	}),
)

package remotewrite

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Register starts the push worker when an exporter is configured.
// Configuration errors are logged and never block startup.
func Register(lc fx.Lifecycle, cfg Config, gatherer prometheus.Gatherer, log *zap.Logger) {
	pusher, err := NewPusher(cfg)
	if err != nil {
		log.Warn("metrics push disabled", zap.Error(err))
		return
	}
	if pusher == nil {
		return
	}

	worker := NewWorker(pusher, gatherer, cfg.Interval, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: worker.Stop,
	})
}

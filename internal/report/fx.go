package report

import (
	"github.com/smallbiznis/cbam/internal/report/repository"
	"github.com/smallbiznis/cbam/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)

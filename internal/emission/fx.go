package emission

import (
	"github.com/smallbiznis/cbam/internal/emission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("emission.service",
	fx.Provide(service.New),
)

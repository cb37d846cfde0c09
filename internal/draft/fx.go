package draft

import (
	"github.com/smallbiznis/cbam/internal/draft/service"
	"github.com/smallbiznis/cbam/internal/draft/store"
	"go.uber.org/fx"
)

var Module = fx.Module("draft.service",
	fx.Provide(store.New),
	fx.Provide(service.New),
)

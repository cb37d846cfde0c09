package auth

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cbam/internal/auth/repository"
	"github.com/smallbiznis/cbam/internal/auth/service"
	"github.com/smallbiznis/cbam/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(newNode),
	fx.Provide(repository.New),
	fx.Provide(service.New),
)

func newNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

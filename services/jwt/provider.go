package jwt

import (
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/fx"
)

func NewJWTService(cfg *config.Config, clk clock.Clock, logger *logging.Service) *Service {
	return NewService(cfg, clk, logger)
}

var Options = fx.Options(
	fx.Provide(NewJWTService),
)

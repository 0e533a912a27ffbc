package ratelimit

import (
	"context"

	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/fx"
)

func ProvideLimiter(lc fx.Lifecycle, cfg *config.Config, clk clock.Clock, logger *logging.Service) *Limiter {
	limiter := NewLimiter(clk, cfg.RateLimit.CleanupInterval, logger)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			limiter.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			limiter.Stop()
			return nil
		},
	})

	return limiter
}

var Module = fx.Options(
	fx.Provide(ProvideLimiter),
)

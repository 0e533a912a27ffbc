package refreshtoken

import (
	"context"

	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideRefreshTokenService(lc fx.Lifecycle, db *gorm.DB, cfg *config.Config, clk clock.Clock, logger *logging.Service) *Service {
	service := NewService(db, cfg, clk, logger)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			service.StartCleanupWorker(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})

	return service
}

var Options = fx.Options(
	fx.Provide(ProvideRefreshTokenService),
)

package server

import (
	"context"

	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewProvider() fx.Option {
	return fx.Options(
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, srv *Server, logger *logging.Service, shutdowner fx.Shutdowner) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := srv.Listen(); err != nil {
						return err
					}
					go func() {
						if err := srv.Serve(); err != nil {
							logger.Error("server stopped unexpectedly", zap.Error(err))
							_ = shutdowner.Shutdown(fx.ExitCode(1))
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}

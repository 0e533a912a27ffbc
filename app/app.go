// Package app assembles the auth API from its fx modules.
package app

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/server"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the application and blocks until SIGINT, SIGTERM or an internal
// shutdown request, then stops within the configured shutdown timeout.
func (a *App) Run() error {
	startCtx, cancel := context.WithTimeout(context.Background(), a.fx.StartTimeout())
	defer cancel()

	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	sig := <-a.fx.Wait()
	a.logger.Info("received shutdown signal, stopping gracefully",
		zap.Any("signal", sig.Signal),
		zap.Int("exit_code", sig.ExitCode),
	)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancelStop()

	if err := a.Stop(stopCtx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
		return err
	}

	if sig.ExitCode != 0 {
		return fmt.Errorf("application exited with code %d", sig.ExitCode)
	}
	return nil
}

func (a *App) Server() *server.Server {
	return a.server
}

func (a *App) Echo() *echo.Echo {
	if a.server == nil {
		return nil
	}
	return a.server.Echo()
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}

package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/authapi/api"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/database"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/server"
	"github.com/tech-arch1tect/authapi/services/auth"
	"github.com/tech-arch1tect/authapi/services/jwt"
	"github.com/tech-arch1tect/authapi/services/logging"
	"github.com/tech-arch1tect/authapi/services/password"
	"github.com/tech-arch1tect/authapi/services/ratelimit"
	"github.com/tech-arch1tect/authapi/services/refreshtoken"
	"github.com/tech-arch1tect/authapi/services/user"
	"go.uber.org/fx"
)

type AppBuilder struct {
	config    *config.Config
	clock     clock.Clock
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithClock replaces the wall clock used for every expiry decision.
func (b *AppBuilder) WithClock(clk clock.Clock) *AppBuilder {
	if clk == nil {
		b.addError("clock cannot be nil")
		return b
	}
	b.clock = clk
	return b
}

// WithModels migrates additional models next to the user and refresh token tables.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{config: b.config}

	options := b.buildFxOptions()
	options = append(options, fx.Populate(&app.logger, &app.db, &app.server))

	fxApp := fx.New(options...)
	if err := fxApp.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	app.fx = fxApp

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}
	return nil
}

func (b *AppBuilder) buildFxOptions() []fx.Option {
	clk := b.clock
	if clk == nil {
		clk = clock.Real{}
	}

	models := append(user.Models(), b.models...)

	options := []fx.Option{
		fx.NopLogger,
		config.NewProvider(b.config),
		fx.Provide(func() clock.Clock { return clk }),
		fx.Supply(database.WithModels(models...)),

		logging.Module,
		database.Module,
		server.NewProvider(),

		password.Module,
		jwt.Options,
		ratelimit.Module,
		refreshtoken.Options,
		user.Options,
		auth.Module,
		api.Module,
	}

	return append(options, b.fxOptions...)
}

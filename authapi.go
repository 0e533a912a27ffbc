// Package authapi builds the phone number auth API as a single fx application.
package authapi

import (
	"github.com/tech-arch1tect/authapi/app"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/internal/options"
	"go.uber.org/fx"
)

type App = app.App

// New builds the application. Without WithConfig the configuration is read
// from the environment and an optional .env file.
func New(opts ...options.Option) (*App, error) {
	o := options.Apply(opts...)

	b := app.NewApp()
	if o.Config != nil {
		b.WithConfig(o.Config)
	}
	if o.Clock != nil {
		b.WithClock(o.Clock)
	}

	return b.WithModels(o.Models...).WithFxOptions(o.ExtraFxOptions...).Build()
}

func WithConfig(cfg *config.Config) options.Option {
	return options.WithConfig(cfg)
}

func WithClock(clk clock.Clock) options.Option {
	return options.WithClock(clk)
}

func WithModels(models ...any) options.Option {
	return options.WithModels(models...)
}

func WithFxOptions(fxOpts ...fx.Option) options.Option {
	return options.WithFxOptions(fxOpts...)
}

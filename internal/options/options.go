package options

import (
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"go.uber.org/fx"
)

type Options struct {
	Config         *config.Config
	Clock          clock.Clock
	Models         []any
	ExtraFxOptions []fx.Option
}

type Option func(*Options)

func Apply(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

func WithClock(clk clock.Clock) Option {
	return func(opts *Options) {
		opts.Clock = clk
	}
}

func WithModels(models ...any) Option {
	return func(opts *Options) {
		opts.Models = append(opts.Models, models...)
	}
}

func WithFxOptions(fxOpts ...fx.Option) Option {
	return func(opts *Options) {
		opts.ExtraFxOptions = append(opts.ExtraFxOptions, fxOpts...)
	}
}

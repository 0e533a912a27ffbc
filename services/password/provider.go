package password

import (
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/fx"
)

func ProvideHasher(cfg *config.Config, logger *logging.Service) (*Hasher, error) {
	return NewHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency, logger)
}

func ProvidePolicy(cfg *config.Config) Policy {
	return Policy{
		MinLength:     cfg.Auth.MinLength,
		RequireUpper:  cfg.Auth.RequireUpper,
		RequireNumber: cfg.Auth.RequireNumber,
	}
}

var Module = fx.Options(
	fx.Provide(ProvideHasher, ProvidePolicy),
)

package auth

import (
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	"github.com/tech-arch1tect/authapi/services/jwt"
	"github.com/tech-arch1tect/authapi/services/logging"
	"github.com/tech-arch1tect/authapi/services/password"
	"github.com/tech-arch1tect/authapi/services/ratelimit"
	"github.com/tech-arch1tect/authapi/services/refreshtoken"
	"github.com/tech-arch1tect/authapi/services/user"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config        *config.Config
	Users         *user.Repository
	RefreshTokens *refreshtoken.Service
	Hasher        *password.Hasher
	Policy        password.Policy
	Signer        *jwt.Service
	Limiter       *ratelimit.Limiter
	Clock         clock.Clock
	Logger        *logging.Service `optional:"true"`
}

func ProvideAuthService(p Params) *Service {
	return NewService(Deps{
		Config:        p.Config,
		Users:         p.Users,
		RefreshTokens: p.RefreshTokens,
		Hasher:        p.Hasher,
		Policy:        p.Policy,
		Signer:        p.Signer,
		Limiter:       p.Limiter,
		Clock:         p.Clock,
		Logger:        p.Logger,
	})
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
)

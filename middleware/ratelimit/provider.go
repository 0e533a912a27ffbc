package ratelimit

import (
	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/internal/clock"
	ratelimitsvc "github.com/tech-arch1tect/authapi/services/ratelimit"
)

// APIMiddleware is the general per-IP throttle applied to authenticated routes.
type APIMiddleware echo.MiddlewareFunc

func ProvideAPIMiddleware(cfg *config.Config, limiter *ratelimitsvc.Limiter, clk clock.Clock) APIMiddleware {
	return APIMiddleware(Middleware(&Config{
		Limiter: limiter,
		Prefix:  "api",
		Rate:    cfg.RateLimit.APILimit,
		Period:  cfg.RateLimit.APIWindow,
		Now:     clk.Now,
	}))
}

package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	ratelimitsvc "github.com/tech-arch1tect/authapi/services/ratelimit"
)

type Config struct {
	Limiter        *ratelimitsvc.Limiter
	Prefix         string
	Rate           int
	Period         time.Duration
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context, retryAfter time.Duration) error
	// Now is used for the Retry-After computation. Defaults to time.Now.
	Now func() time.Time
}

// Middleware counts every request through cfg.Limiter. Denied requests never
// reach the handler.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Limiter == nil {
		panic("ratelimit: middleware requires a limiter")
	}

	if cfg.Prefix == "" {
		cfg.Prefix = "api"
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	if cfg.KeyGenerator == nil {
		prefix := cfg.Prefix
		cfg.KeyGenerator = func(c echo.Context) string {
			return DefaultKeyGenerator(prefix, c)
		}
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := cfg.Limiter.Check(cfg.KeyGenerator(c), cfg.Rate, cfg.Period)
			SetHeaders(c, decision)

			if !decision.Allowed {
				retryAfter := decision.RetryAfter(cfg.Now())
				c.Response().Header().Set("Retry-After", RetryAfterSeconds(retryAfter))
				return cfg.OnLimitReached(c, retryAfter)
			}

			return next(c)
		}
	}
}

func SetHeaders(c echo.Context, decision ratelimitsvc.Decision) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
}

// RetryAfterSeconds renders d as a whole number of seconds, rounded up and at least 1.
func RetryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

// DefaultKeyGenerator keys by "<prefix>:<client ip>".
func DefaultKeyGenerator(prefix string, c echo.Context) string {
	realIP := c.RealIP()
	if realIP == "" {
		realIP = "unknown"
	}

	return prefix + ":" + realIP
}

func DefaultOnLimitReached(c echo.Context, _ time.Duration) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Please try again later.")
}

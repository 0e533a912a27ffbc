package api

import (
	ratelimitmw "github.com/tech-arch1tect/authapi/middleware/ratelimit"
	"github.com/tech-arch1tect/authapi/server"
	"github.com/tech-arch1tect/authapi/services/auth"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewHandler, ratelimitmw.ProvideAPIMiddleware),
	fx.Invoke(func(srv *server.Server, h *Handler, authService *auth.Service, apiLimit ratelimitmw.APIMiddleware) {
		RegisterRoutes(srv, h, authService, apiLimit)
	}),
)

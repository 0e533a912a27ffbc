package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/authapi/config"
	"github.com/tech-arch1tect/authapi/services/logging"
	"go.uber.org/zap"
)

type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	logger   *logging.Service
	listener net.Listener
}

// ErrorResponse is the body of every error the server renders itself.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if cfg.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	s := &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}

	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(logging.RequestLogger(logger, "/health"))

	return s
}

// handleError renders echo errors in the same envelope the handlers use.
// Anything that is not an *echo.HTTPError becomes an opaque 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else if s.logger != nil {
		s.logger.Error("unhandled error",
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Success: false, Message: message})
	}
	if err != nil && s.logger != nil {
		s.logger.Error("failed to write error response", zap.Error(err))
	}
}

func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
}

// Listen binds the configured address. It is separate from Serve so bind
// errors surface while the application is still starting.
func (s *Server) Listen() error {
	l, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = l
	s.echo.Listener = l
	return nil
}

// Serve blocks until the server is shut down. A graceful shutdown is not an error.
func (s *Server) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("starting server", zap.String("addr", s.Addr()))
	}

	if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("shutting down server")
	}
	return s.echo.Shutdown(ctx)
}

func (s *Server) Get(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.GET(path, handler, m...)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

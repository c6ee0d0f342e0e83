package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"todoapi/internal/adapter/http/middleware"
	"todoapi/internal/adapter/http/routes"
	"todoapi/internal/adapter/logger"
	"todoapi/internal/config"
	"todoapi/internal/core/telemetry"
)

type Server struct {
	srv             *http.Server
	logger          *logger.LokiLogger
	shutdownTimeout time.Duration
}

func NewServer(cfg *config.Config, container *Container, metrics *telemetry.AppMetrics, lokiLogger *logger.LokiLogger) *Server {
	routerConfig := routes.RouterConfig{
		ServiceName:  cfg.App.Name,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		EnforceHTTPS: cfg.HTTP.EnforceHTTPS,
	}

	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = &middleware.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		}
	}

	router := routes.SetupRouter(routes.HandlersConfig{
		TodoHandler: container.TodoHandler,
	}, metrics, lokiLogger, routerConfig)

	return &Server{
		srv: &http.Server{
			Addr:         ":" + cfg.HTTP.Port,
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
		logger:          lokiLogger,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "Server starting", zap.String("addr", s.srv.Addr))

		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "Server shutting down", zap.Duration("timeout", s.shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}

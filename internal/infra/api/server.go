package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"clm-paralegal/internal/config"
	"clm-paralegal/internal/infra/api/apiv1"
	red "clm-paralegal/internal/infra/redis"
)

// Server owns the HTTP listener for the contract-analysis API.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

// NewRouter builds the chi router with middleware, health and metrics endpoints.
// limiter may be nil, which disables rate limiting.
func NewRouter(cfg config.HTTPConfig, v1 *apiv1.Server, limiter Limiter, logger *zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(logger), Recover(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Timeout(cfg.RequestTimeout))
		if limiter != nil && cfg.RateLimitPerMinute > 0 {
			r.Use(RateLimit(limiter, cfg.RateLimitPerMinute, logger, red.ClientRouteKey))
		}
		apiv1.RegisterAPIV1(r, v1)
	})
	return r
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// leave room for the handler timeout to answer first
			WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		},
		log: logger,
	}
}

// Start blocks until the listener stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Package deliveryservice wires the HTTP control surface into a runnable
// service.
package deliveryservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/deliveryservice/config"
	"github.com/Raul302/Push-notifications-brazof/internal/api"
	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// Wrapper runs the HTTP API server for the delivery service.
type Wrapper struct {
	server *http.Server
	logger zerolog.Logger
}

// New creates and wires up the API service.
func New(
	cfg *config.AppConfig,
	deliverer api.Deliverer,
	tokens delivery.TokenStore,
	logger zerolog.Logger,
) (*Wrapper, error) {
	if deliverer == nil {
		return nil, fmt.Errorf("deliverer cannot be nil")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token store cannot be nil")
	}

	apiHandler := api.NewAPI(deliverer, tokens, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Cors.AllowedOrigins))
	apiHandler.Routes(r)

	return &Wrapper{
		server: &http.Server{
			Addr:    ":" + cfg.APIPort,
			Handler: r,
		},
		logger: logger.With().Str("component", "ApiService").Logger(),
	}, nil
}

// Start runs the HTTP server until it is shut down.
func (w *Wrapper) Start(_ context.Context) error {
	w.logger.Info().Str("addr", w.server.Addr).Msg("API server starting...")
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info().Msg("Shutting down API service...")
	return w.server.Shutdown(ctx)
}

// corsMiddleware reflects the permissive CORS policy of the legacy service:
// an empty or "*" origin list allows everything, otherwise only the listed
// origins.
func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				_, ok := set[origin]
				if allowAll || ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

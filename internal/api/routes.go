package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/ratelimit"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/metrics"
			}),
		))
	}
}

// WithRateLimiter gates the recommend endpoint behind the admission
// limiter. Health and history reads stay unthrottled.
func WithRateLimiter(limiter ratelimit.Limiter, observers ...ratelimit.Observer) RouteOption {
	return func(r *mux.Router) {
		gate := ratelimit.Middleware(limiter, observers...)
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if req.Method == http.MethodPost && req.URL.Path == "/api/v1/recommend" {
					gate(next).ServeHTTP(w, req)
					return
				}
				next.ServeHTTP(w, req)
			})
		})
	}
}

// SetupRoutes configures the HTTP routes for the API.
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/recommend", handlers.Recommend).Methods("POST")
	api.HandleFunc("/history", handlers.ListHistory).Methods("GET")
	api.HandleFunc("/history/{id}", handlers.GetHistoryRecord).Methods("GET")
	api.HandleFunc("/history/{id}", handlers.DeleteHistoryRecord).Methods("DELETE")

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	// Preflight OPTIONS per registered route; a prefix catch-all would make
	// every unknown /api/v1 path match and turn 404s into 405s.
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
	api.HandleFunc("/recommend", preflight).Methods("OPTIONS")
	api.HandleFunc("/history", preflight).Methods("OPTIONS")
	api.HandleFunc("/history/{id}", preflight).Methods("OPTIONS")

	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
	}

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		errorResp := models.NewErrorResponse("Method not allowed", models.ErrorTypeValidation)
		json.NewEncoder(w).Encode(errorResp)
	})

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		errorResp := models.NewErrorResponse("Not found", models.ErrorTypeNotFound)
		json.NewEncoder(w).Encode(errorResp)
	})

	return router
}

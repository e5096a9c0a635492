package rest

import (
	"context"
	"net/http"
	"time"

	"nodes-backend/interfaces/http/rest/handlers"
	"nodes-backend/interfaces/http/rest/middleware"
	"nodes-backend/pkg/auth"
	apperrors "nodes-backend/pkg/errors"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// APIVersion is reported on every response
const APIVersion = "v1"

// RouterConfig selects the optional pieces of the HTTP stack
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string

	// Validator enables bearer authentication on /api routes when set
	Validator middleware.TokenValidator
	Limiter   auth.RateLimiter

	// TraceSegmentName wraps the router in an X-Ray segment when set
	TraceSegmentName string

	// Ready backs /ready; nil means always ready
	Ready func(ctx context.Context) error
}

// Router creates and configures the HTTP router
type Router struct {
	nodes  *handlers.NodeHandler
	errors *apperrors.ErrorHandler
	config RouterConfig
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	nodes *handlers.NodeHandler,
	errorHandler *apperrors.ErrorHandler,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		nodes:  nodes,
		errors: errorHandler,
		config: config,
		logger: logger,
	}
}

// Setup returns the HTTP handler for the API, traced when configured
func (rt *Router) Setup() http.Handler {
	router := rt.Mux()
	if rt.config.TraceSegmentName != "" {
		return xray.Handler(xray.NewFixedSegmentNamer(rt.config.TraceSegmentName), router)
	}
	return router
}

// Mux configures all routes and middleware
func (rt *Router) Mux() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errors.Middleware)
	router.Use(versionMiddleware)

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/"+APIVersion, func(r chi.Router) {
		if rt.config.Validator != nil {
			r.Use(middleware.Authenticate(rt.config.Validator, rt.config.Limiter, rt.errors, rt.logger))
		}

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", rt.nodes.CreateNode)
			r.Get("/{nodeID}", rt.nodes.GetNode)
			r.Put("/{nodeID}", rt.nodes.UpdateNode)
			r.Delete("/{nodeID}", rt.nodes.DeleteNode)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if rt.config.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.config.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", APIVersion)
		next.ServeHTTP(w, r)
	})
}

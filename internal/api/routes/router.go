package routes

import (
	"net/http"

	"github.com/zatekoja/sheetfeedback/internal/api/handlers"
	"github.com/zatekoja/sheetfeedback/internal/api/middleware"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	feedbackHandler *handlers.FeedbackHandler
	sseHandler      *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
	health          func() error
}

// NewRouter creates a new router. sseHandler and cacheMiddleware may be nil.
func NewRouter(
	feedbackHandler *handlers.FeedbackHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		feedbackHandler: feedbackHandler,
		sseHandler:      sseHandler,
		cacheMiddleware: cacheMiddleware,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetHealthCheck makes GET /health report 503 while check fails.
func (r *Router) SetHealthCheck(check func() error) {
	r.health = check
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		if r.health != nil {
			if err := r.health(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Feedback endpoints
	r.mux.HandleFunc("GET /api/feedback", r.feedbackHandler.ListFeedback)
	r.mux.HandleFunc("POST /api/feedback", r.feedbackHandler.SubmitFeedback)
	r.mux.HandleFunc("GET /api/feedback/session", r.feedbackHandler.GetSession)
	r.mux.HandleFunc("POST /api/feedback/session/clear", r.feedbackHandler.ClearSession)
	r.mux.HandleFunc("GET /api/feedback/search", r.feedbackHandler.SearchFeedback)

	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/feedback", r.sseHandler.StreamFeedbackUpdates)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

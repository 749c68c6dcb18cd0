package httptransport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	agentHandler "flightagent/internal/agent/handler"
	"flightagent/internal/platform/metrics"
	"flightagent/internal/platform/middleware"
	rateLimitMW "flightagent/internal/ratelimit/middleware"
	dErrors "flightagent/pkg/domain-errors"
	"flightagent/pkg/platform/httputil"
	"flightagent/pkg/platform/middleware/metadata"
	"flightagent/pkg/platform/middleware/requesttime"
)

// Deps are the collaborators the public router needs.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	RateLimit *rateLimitMW.Middleware
	Agent     *agentHandler.Handler
}

// NewRouter wires the public surface. CORS wraps every response and OPTIONS
// requests are answered before rate limiting or routing.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(baseMiddleware(deps)...)

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	deps.Agent.Register(r)

	return corsHeaders(newCORS().Handler(r))
}

// baseMiddleware is the chain in front of every route, outermost first.
// AccessLog wraps Recoverer so recovered panics are logged and counted.
func baseMiddleware(deps Deps) chi.Middlewares {
	mws := chi.Middlewares{
		preflight,
		middleware.RequestID,
		requesttime.Middleware,
		metadata.ClientMetadata,
		middleware.AccessLog(deps.Logger, deps.Metrics),
		middleware.Recoverer(deps.Logger, deps.Metrics),
	}
	if deps.RateLimit != nil {
		mws = append(mws, deps.RateLimit.RateLimit)
	}
	return mws
}

var (
	allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	exposedHeaders = []string{
		agentHandler.HeaderCache,
		middleware.HeaderRequestID,
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
		"Retry-After",
	}
)

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: allowedMethods,
		AllowedHeaders: []string{"*"},
		ExposedHeaders: exposedHeaders,
		MaxAge:         600,
	})
}

// corsHeaders sets the permissive CORS headers on every response. rs/cors only
// writes them when the request carries an Origin, and overwrites them when it does.
func corsHeaders(next http.Handler) http.Handler {
	methods := strings.Join(allowedMethods, ", ")
	exposed := strings.Join(exposedHeaders, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Expose-Headers", exposed)
		next.ServeHTTP(w, r)
	})
}

// preflight answers any OPTIONS request the CORS handler let through, such as
// one without Access-Control-Request-Method.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Not found").
		WithDetails(map[string]any{"path": r.URL.Path}))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, "Method not allowed").
		WithDetails(map[string]any{"method": r.Method, "path": r.URL.Path}))
}

// Package requesttime captures one "now" per HTTP request so every component
// handling that request (rate limiter, cache, logs) agrees on the timestamp.
package requesttime

import (
	"net/http"
	"time"

	"flightagent/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package testutil

import (
	"net/http"

	"flightagent/pkg/requestcontext"
)

// WithClient adds the client identifier and User-Agent to the request context.
// This simulates what the metadata middleware would do.
func WithClient(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}

// WithRequestID adds a correlation ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

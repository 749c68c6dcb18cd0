package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"flightagent/pkg/requestcontext"
)

// UnknownClient is the identifier used when no forwarded-IP header is present.
const UnknownClient = "unknown"

// Forwarded-IP headers, in precedence order. The edge proxy sets the first;
// generic proxies set the second.
const (
	HeaderConnectingIP = "CF-Connecting-IP"
	HeaderForwardedFor = "X-Forwarded-For"
)

// ClientMetadata extracts the client identifier and User-Agent from the request
// and adds them to the context. Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest resolves the client identifier from forwarded-IP headers.
// X-Forwarded-For may carry a proxy chain; the first hop is the client.
func ClientIPFromRequest(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(HeaderConnectingIP)); ip != "" {
		return ip
	}
	if xff := r.Header.Get(HeaderForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return UnknownClient
}

// DescribeUserAgent returns a short "browser/version" label for logs, "bot"
// for crawlers and "" when the header is empty.
func DescribeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	if name == "" {
		return "other"
	}
	if major, _, ok := strings.Cut(version, "."); ok {
		version = major
	}
	if version == "" {
		return name
	}
	return name + "/" + version
}

package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/santerec/dep-backend/internal"
)

// Origin resolves the client address and stores it in the request
// context for the audit trail. When the service sits behind a proxy the
// first X-Forwarded-For hop takes precedence over RemoteAddr.
func Origin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := clientAddress(r)
		ctx := internal.ContextWithOrigin(r.Context(), origin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

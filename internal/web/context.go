package web

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/junkai/internal/core"
)

// requestInfo attaches the client address, user agent and request id to the
// request context so service logs can name the caller. RemoteAddr has
// already been rewritten by TrustedRealIP.
func requestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := core.ContextWithRequestInfo(r.Context(), core.RequestInfo{
			IPAddress: ip,
			UserAgent: r.UserAgent(),
			RequestID: middleware.GetReqID(r.Context()),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package core

import "context"

type contextKey struct{}

// RequestInfo describes the client behind a request, for service logs.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// ContextWithRequestInfo attaches info to ctx.
func ContextWithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// RequestInfoFromContext returns the info attached to ctx, if any.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(contextKey{}).(RequestInfo)
	return info, ok
}

// logAttrs returns slog key/value pairs for the request behind ctx.
func (i RequestInfo) logAttrs() []any {
	var attrs []any
	if i.RequestID != "" {
		attrs = append(attrs, "request_id", i.RequestID)
	}
	if i.IPAddress != "" {
		attrs = append(attrs, "client_ip", i.IPAddress)
	}
	if i.UserAgent != "" {
		attrs = append(attrs, "user_agent", i.UserAgent)
	}
	return attrs
}

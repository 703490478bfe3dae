package utils

import "context"

type contextKey string

// Request scoped context keys set by the HTTP layer
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	AdminIDKey   contextKey = "admin_id"
)

// RequestID returns the request id stored in ctx, or an empty string
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

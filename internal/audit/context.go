package audit

import "context"

// clientIPKey is an unexported context key for passing client IP through internal layers.
//
// HTTP handlers (Gin) resolve the client IP and attach it with WithClientIP
// so services deeper in the stack can audit it without seeing the request.
type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	v := ctx.Value(clientIPKey{})
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

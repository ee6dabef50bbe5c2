package helpers

import "context"

type contextKey string

const (
	ctxClientIPKey  contextKey = "clientIP"
	ctxRequestIDKey contextKey = "requestID"
)

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey, ip)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ctxClientIPKey).(string)
	return ip
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestIDKey).(string)
	return id
}

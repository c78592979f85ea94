package context

import (
	"context"
	"time"
)

const (
	ContextKeyCorrelationID ContextKey = "Correlation-Id"
	ContextKeyCaller        ContextKey = "Caller-Account"
	DefaultHttpTimeout                 = 30 * time.Second
)

type ContextKey string

func NewContextWithTimeOut(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func NewContext(correlationID string) context.Context {
	return context.WithValue(context.Background(), ContextKeyCorrelationID, correlationID)
}

func SetContextWithValue(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func GetContextValue(ctx context.Context, key ContextKey) string {
	v := ctx.Value(key)
	if v != nil {
		if ret, ok := v.(string); ok {
			return ret
		}
	}
	return ""
}

// WithCaller stores the authenticated account id for the request.
func WithCaller(ctx context.Context, accountID string) context.Context {
	return SetContextWithValue(ctx, ContextKeyCaller, accountID)
}

// Caller returns the authenticated account id, or "" when the request is anonymous.
func Caller(ctx context.Context) string {
	return GetContextValue(ctx, ContextKeyCaller)
}

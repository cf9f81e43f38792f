// Package context carries request-scoped values through fern.
package context

import "context"

type ContextKey string

var (
	RequestIDKey    = ContextKey("X-Request-Id")
	MethodKey       = ContextKey("X-Method")
	RouteKey        = ContextKey("X-Route")
	RemoteIPKey     = ContextKey("X-Remote-Ip")
	UserIDKey       = ContextKey("X-User-Id")
	ResolutionIDKey = ContextKey("X-Resolution-Id")
)

func setValue(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func getValue(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return setValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return getValue(ctx, RequestIDKey)
}

func SetMethod(ctx context.Context, method string) context.Context {
	return setValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	return getValue(ctx, MethodKey)
}

func SetRoute(ctx context.Context, route string) context.Context {
	return setValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	return getValue(ctx, RouteKey)
}

func SetRemoteIP(ctx context.Context, remoteIP string) context.Context {
	return setValue(ctx, RemoteIPKey, remoteIP)
}

func GetRemoteIP(ctx context.Context) string {
	return getValue(ctx, RemoteIPKey)
}

// SetUserID records who is driving the request. fern has a single contact
// book, so the value is only used for logs and event metadata.
func SetUserID(ctx context.Context, userID string) context.Context {
	return setValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return getValue(ctx, UserIDKey)
}

// SetResolutionID tags the context with the resolution session being driven.
func SetResolutionID(ctx context.Context, resolutionID string) context.Context {
	return setValue(ctx, ResolutionIDKey, resolutionID)
}

func GetResolutionID(ctx context.Context) string {
	return getValue(ctx, ResolutionIDKey)
}

// LogFields returns the request-scoped values worth attaching to a log line.
func LogFields(ctx context.Context) map[string]any {
	fields := map[string]any{}
	for _, key := range []ContextKey{RequestIDKey, UserIDKey, ResolutionIDKey} {
		if value := getValue(ctx, key); value != "" {
			fields[string(key)] = value
		}
	}
	return fields
}

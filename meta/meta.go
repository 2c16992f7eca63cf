// Package meta carries request-scoped metadata through the context.
//
// The data-access layers (datafilter, pg, repo) read scope values such as
// the tenant id, the requesting user and their department from here, so any
// transport (HTTP, gRPC, job runner) only has to inject the values once at
// the edge.
package meta

import "context"

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID represents a unique identifier for tracing requests across services.
	TraceID ContextKey = "trace_id"

	// TenantID identifies the tenant the request is scoped to.
	TenantID ContextKey = "tenant_id"

	// UserID identifies the user making the request.
	UserID ContextKey = "user_id"

	// UserRole indicates the current role of the user making the request.
	UserRole ContextKey = "user_role"

	// DeptID identifies the department of the user making the request.
	DeptID ContextKey = "dept_id"

	// IPAddress contains the client's IP address.
	IPAddress ContextKey = "ip_address"

	// UserAgent contains the user agent string from the request.
	UserAgent ContextKey = "user_agent"
)

// allKeys lists every key Extract looks up. Keep in sync with the constants above.
var allKeys = []ContextKey{ //nolint:gochecknoglobals // static key registry
	TraceID,
	TenantID,
	UserID,
	UserRole,
	DeptID,
	IPAddress,
	UserAgent,
}

// Inject adds metadata from the provided map to the context.
// Empty values are skipped. A new context with the added values is returned.
func Inject(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // finite number of keys
		}
	}
	return ctx
}

// Set stores a single metadata value in the context.
func Set(ctx context.Context, key ContextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

// Get retrieves a single metadata value from the context.
// It returns an empty string when the key is absent.
func Get(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// Extract returns all known metadata present in the context.
// Only non-empty string values are included in the returned map.
func Extract(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range allKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}

package flight

import (
	"context"

	"google.golang.org/grpc/metadata"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const (
	metaKey contextKey = iota
)

// Metadata header keys for session routing and observability.
const (
	// HeaderSession is the gRPC metadata header selecting the host session.
	HeaderSession = "framebind-session"
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "framebind-trace-id"
)

// ContextMeta holds the request metadata a handler needs.
type ContextMeta struct {
	SessionID string
	TraceID   string
}

// WithContextMeta returns a context carrying meta.
func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, metaKey, &meta)
}

// MetaFromContext returns the request metadata, or nil if the context was
// never enriched.
func MetaFromContext(ctx context.Context) *ContextMeta {
	meta, _ := ctx.Value(metaKey).(*ContextMeta)
	return meta
}

// SessionIDFromContext returns the session ID from context, or empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return ""
	}
	return meta.SessionID
}

// TraceIDFromContext returns the trace ID from context, or empty string if not set.
func TraceIDFromContext(ctx context.Context) string {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return ""
	}
	return meta.TraceID
}

// EnrichContextMetadata extracts metadata from gRPC context and
// returns a new context with the metadata stored.
// If the context is already enriched, it is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return WithContextMeta(ctx, ContextMeta{})
	}

	var meta ContextMeta
	if values := md.Get(HeaderSession); len(values) > 0 {
		meta.SessionID = values[0]
	}
	if values := md.Get(HeaderTraceID); len(values) > 0 {
		meta.TraceID = values[0]
	}

	return WithContextMeta(ctx, meta)
}

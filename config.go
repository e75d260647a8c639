package framebind

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hugr-lab/framebind/auth"
	"github.com/hugr-lab/framebind/engine"
)

// ServerConfig contains configuration for the framebind Flight server.
type ServerConfig struct {
	// Engine runs every operation.
	// OPTIONAL: If nil, NewServer opens one from DSN and closes it on Close.
	Engine *engine.Engine

	// DSN is the DuckDB data source name used when Engine is nil.
	// OPTIONAL: Empty opens a private in-memory database.
	DSN string

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int

	// IntBits is the signed integer width of the hosts served. Integers
	// outside it are rejected rather than wrapped.
	// OPTIONAL: If 0, uses 64. Use 63 for hosts with tagged integers.
	IntBits int

	// CompressThreshold is the result size in bytes above which action
	// results are zstd-compressed.
	// OPTIONAL: If 0, uses 4KiB. Negative disables compression.
	CompressThreshold int

	// Registerer receives Prometheus metrics.
	// OPTIONAL: If nil, metrics are collected but not registered.
	Registerer prometheus.Registerer
}

// Standard errors returned by framebind package.
var (
	// ErrUnauthorized indicates authentication failed.
	// Return this from Authenticator.Authenticate() for invalid tokens.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidConfig indicates ServerConfig validation failed.
	ErrInvalidConfig = errors.New("invalid server config")
)

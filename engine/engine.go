// Package engine is the native side of the binding: a thin facade over DuckDB
// (SQL planning and execution) and Apache Arrow (types, Parquet metadata,
// columnar results).
//
// Nothing here plans or optimizes queries. Lazy frames carry SQL text and
// the inputs it depends on; DuckDB does the work when a frame is described or
// collected.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	// DuckDB database/sql driver.
	_ "github.com/duckdb/duckdb-go/v2"
)

// Standard errors returned by the engine package.
var (
	// ErrOverflow indicates an arithmetic result outside int64.
	ErrOverflow = errors.New("integer overflow")

	// ErrUnsupportedType indicates a column type the binding cannot carry.
	ErrUnsupportedType = errors.New("unsupported data type")

	// ErrUnknownType indicates an unrecognized data type name.
	ErrUnknownType = errors.New("unknown data type")

	// ErrInvalidStrategy indicates a malformed fill-null strategy.
	ErrInvalidStrategy = errors.New("invalid fill-null strategy")

	// ErrGlobPath indicates a scan path containing glob metacharacters.
	ErrGlobPath = errors.New("glob patterns are not supported")
)

// Config configures an Engine.
type Config struct {
	// DSN is the DuckDB data source name.
	// OPTIONAL: empty opens a private in-memory database.
	DSN string

	// Allocator for Arrow memory used by Collect.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Engine owns the DuckDB database every lazy frame and SQL context runs on.
// Engine is safe for concurrent use.
type Engine struct {
	db        *sql.DB
	allocator memory.Allocator
	logger    *slog.Logger
}

// Open opens the DuckDB database described by cfg.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	db, err := sql.Open("duckdb", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	allocator := cfg.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		db:        db,
		allocator: allocator,
		logger:    logger,
	}, nil
}

// Close closes the underlying database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Double returns 2n, or ErrOverflow when the product leaves int64.
func Double(n int64) (int64, error) {
	r := n * 2
	if r/2 != n {
		return 0, fmt.Errorf("%w: 2 * %d", ErrOverflow, n)
	}
	return r, nil
}

// Package binding is the entry-point dispatch layer between a host and the
// engine.
//
// Every entry point takes a list of transfer values, runs exactly one engine
// operation and returns exactly one transfer value. Expected failures stay
// inside the value: an invalid input yields None and a failed operation
// yields an Err result carrying the native error text. Only three things
// escape Invoke as Go errors: an unknown entry name, an argument the entry
// cannot decode (*ArgumentError) and a panic captured at the call frame
// (*Fault). A fault ends the current call only; the session and its other
// handles stay usable.
package binding

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hugr-lab/framebind/engine"
	"github.com/hugr-lab/framebind/internal/metrics"
	"github.com/hugr-lab/framebind/value"
)

// Standard errors returned by the binding package.
var (
	// ErrUnknownEntry is returned by Invoke for names not in the entry table.
	ErrUnknownEntry = errors.New("unknown entry point")

	// ErrArity indicates a call with the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")

	// ErrSessionClosed is returned by Invoke on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// ArgumentError reports an argument the entry point could not decode or
// resolve. Index is -1 for arity errors.
type ArgumentError struct {
	Entry string
	Index int
	Err   error
}

func (e *ArgumentError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("%s: argument %d: %v", e.Entry, e.Index, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Fault is an abrupt failure of a single call: a panic raised by the engine
// or by the fault_inject entry point.
type Fault struct {
	Entry   string
	Message string
	Stack   []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: fault: %s", f.Entry, f.Message)
}

// Config configures a Binding.
type Config struct {
	// Engine runs every operation.
	// REQUIRED: Must not be nil.
	Engine *engine.Engine

	// Logger for call logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger

	// IntBits is the host's signed integer width. Integers outside it are
	// rejected in both directions.
	// OPTIONAL: Defaults to 64.
	IntBits int

	// Registerer receives the binding's Prometheus metrics.
	// OPTIONAL: Metrics are kept but not registered if nil.
	Registerer prometheus.Registerer
}

// EntryInfo describes one entry point.
type EntryInfo struct {
	Name        string
	Description string
	Arity       int
	// Stateful entries need exclusive access to a shared SQL context.
	Stateful bool
}

// Binding holds the entry table and the engine it dispatches to. Binding is
// safe for concurrent use; per-host state lives in sessions.
type Binding struct {
	engine  *engine.Engine
	logger  *slog.Logger
	policy  value.IntPolicy
	metrics *metrics.Metrics
	entries map[string]*entry
}

// New creates a binding.
func New(cfg Config) (*Binding, error) {
	if cfg.Engine == nil {
		return nil, errors.New("binding: Engine is required")
	}
	if cfg.IntBits < 0 || cfg.IntBits > 64 || cfg.IntBits == 1 {
		return nil, fmt.Errorf("binding: IntBits must be between 2 and 64, got %d", cfg.IntBits)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Binding{
		engine:  cfg.Engine,
		logger:  logger,
		policy:  value.IntPolicy{Bits: cfg.IntBits},
		metrics: metrics.New("framebind", cfg.Registerer),
		entries: make(map[string]*entry),
	}
	b.register(builtinEntries())

	return b, nil
}

// Entries lists the entry points in name order.
func (b *Binding) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, EntryInfo{
			Name:        e.name,
			Description: e.description,
			Arity:       e.arity,
			Stateful:    e.stateful,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Engine returns the engine the binding dispatches to.
func (b *Binding) Engine() *engine.Engine {
	return b.engine
}

func (b *Binding) register(entries []*entry) {
	for _, e := range entries {
		if _, dup := b.entries[e.name]; dup {
			panic("binding: duplicate entry point " + e.name)
		}
		b.entries[e.name] = e
	}
}

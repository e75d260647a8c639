package binding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hugr-lab/framebind/engine"
	"github.com/hugr-lab/framebind/handle"
	"github.com/hugr-lab/framebind/internal/metrics"
	"github.com/hugr-lab/framebind/internal/recovery"
	"github.com/hugr-lab/framebind/value"
)

// Session is one host's view of the binding: the handles it holds and the
// tokens that name them. Tokens from one session mean nothing in another.
// Session is safe for concurrent use.
type Session struct {
	binding *Binding
	handles *handle.Table
	closed  atomic.Bool
}

// NewSession opens a session with an empty handle table.
func (b *Binding) NewSession() *Session {
	s := &Session{
		binding: b,
		handles: handle.NewTable(),
	}
	s.handles.Subscribe(func(e handle.Event) {
		switch e.Type {
		case handle.EventInserted:
			b.metrics.HandleInserted(e.Kind)
		case handle.EventDropped:
			b.metrics.HandleDropped(e.Kind)
		}
	})
	b.metrics.SessionOpened()
	return s
}

// Invoke runs the named entry point with args.
func (s *Session) Invoke(ctx context.Context, name string, args []value.Value) (value.Value, error) {
	b := s.binding
	start := time.Now()

	e, ok := b.entries[name]
	if !ok {
		b.metrics.RecordCall(name, metrics.OutcomeUnknown, time.Since(start))
		return value.Value{}, fmt.Errorf("%w: %q", ErrUnknownEntry, name)
	}
	if s.closed.Load() {
		return value.Value{}, ErrSessionClosed
	}
	if len(args) != e.arity {
		b.metrics.RecordCall(name, metrics.OutcomeArgument, time.Since(start))
		return value.Value{}, &ArgumentError{
			Entry: name,
			Index: -1,
			Err:   fmt.Errorf("%w: want %d, got %d", ErrArity, e.arity, len(args)),
		}
	}

	call := &Call{
		ctx:     ctx,
		session: s,
		entry:   name,
		args:    args,
	}

	result, err := recovery.RecoverToValue(b.logger, name, func() (value.Value, error) {
		return e.fn(call)
	})

	outcome := metrics.OutcomeOK
	var p *recovery.Panic
	var argErr *ArgumentError
	switch {
	case errors.As(err, &p):
		err = &Fault{Entry: name, Message: fmt.Sprint(p.Value), Stack: p.Stack}
		outcome = metrics.OutcomeFault
	case errors.As(err, &argErr):
		outcome = metrics.OutcomeArgument
	case errors.Is(err, handle.ErrTableClosed):
		err = ErrSessionClosed
		outcome = metrics.OutcomeArgument
	}

	duration := time.Since(start)
	b.metrics.RecordCall(name, outcome, duration)
	b.logger.Debug("Entry point called",
		"entry", name,
		"stateful", e.stateful,
		"outcome", outcome,
		"duration", duration,
	)

	if err != nil {
		return value.Value{}, err
	}
	return result, nil
}

// LazyFrame resolves a lazy-frame token issued by this session.
func (s *Session) LazyFrame(id uint64) (*engine.LazyFrame, error) {
	h, err := handle.Lookup[*engine.LazyFrame](s.handles, id, kindLazy)
	if err != nil {
		return nil, err
	}
	return h.Value(), nil
}

// Len returns the number of live handles in the session.
func (s *Session) Len() int {
	return s.handles.Len()
}

// Close releases every handle the session holds. Later calls fail with
// ErrSessionClosed.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.handles.Close()
	s.binding.metrics.SessionClosed()
}

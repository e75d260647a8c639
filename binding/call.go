package binding

import (
	"context"
	"fmt"

	"github.com/hugr-lab/framebind/handle"
	"github.com/hugr-lab/framebind/value"
)

// Call is the context of a single boundary crossing. It is valid only for
// the duration of the entry point it was passed to.
type Call struct {
	ctx     context.Context
	session *Session
	entry   string
	args    []value.Value
}

// Context returns the call's context.
func (c *Call) Context() context.Context {
	return c.ctx
}

// Entry returns the name of the entry point being called.
func (c *Call) Entry() string {
	return c.entry
}

// Arg returns argument i undecoded.
func (c *Call) Arg(i int) value.Value {
	return c.args[i]
}

func (c *Call) argError(i int, err error) error {
	return &ArgumentError{Entry: c.entry, Index: i, Err: err}
}

// Int decodes argument i as an integer within the host width.
func (c *Call) Int(i int) (int64, error) {
	n, err := c.args[i].Int64()
	if err == nil {
		err = c.session.binding.policy.Check(n)
	}
	if err != nil {
		return 0, c.argError(i, err)
	}
	return n, nil
}

// String decodes argument i as a string.
func (c *Call) String(i int) (string, error) {
	s, err := c.args[i].Str()
	if err != nil {
		return "", c.argError(i, err)
	}
	return s, nil
}

// Bytes decodes argument i as a byte buffer.
func (c *Call) Bytes(i int) ([]byte, error) {
	b, err := c.args[i].ByteSlice()
	if err != nil {
		return nil, c.argError(i, err)
	}
	return b, nil
}

// Result encodes a native integer result, rejecting values outside the host
// width.
func (c *Call) Result(n int64) (value.Value, error) {
	if err := c.session.binding.policy.Check(n); err != nil {
		return value.Value{}, c.argError(0, err)
	}
	return value.Int(n), nil
}

// arg resolves argument i as a token for a handle of the given kind.
func arg[T any](c *Call, i int, kind string) (*handle.Handle[T], error) {
	tokenKind, id, err := c.args[i].Token()
	if err != nil {
		return nil, c.argError(i, err)
	}
	if tokenKind != kind {
		return nil, c.argError(i, fmt.Errorf("%w: token is %q, want %q", handle.ErrKindMismatch, tokenKind, kind))
	}
	h, err := handle.Lookup[T](c.session.handles, id, kind)
	if err != nil {
		return nil, c.argError(i, err)
	}
	return h, nil
}

// give hands v to the host as a new handle and returns its token.
func give[T any](c *Call, kind string, v T, release func(T)) (value.Value, error) {
	h := handle.New(kind, v, release)
	id, err := c.session.handles.Insert(h)
	if err != nil {
		h.Release()
		return value.Value{}, err
	}
	return value.Handle(kind, id), nil
}

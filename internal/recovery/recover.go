// Package recovery converts panics raised inside a native call into errors
// the caller can inspect, so one faulting call cannot take down the process.
package recovery

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Panic is a panic captured at a call frame.
type Panic struct {
	// Operation names the call that panicked.
	Operation string
	// Value is the value passed to panic.
	Value any
	// Stack is the goroutine stack at the point of recovery.
	Stack []byte
}

func (p *Panic) Error() string {
	return fmt.Sprintf("%s panicked: %v", p.Operation, p.Value)
}

// Unwrap returns the panic value when it is an error.
func (p *Panic) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// RecoverToError wraps a function call with panic recovery.
// If the function panics, the panic is logged and returned as a *Panic.
//
// Example:
//
//	err := recovery.RecoverToError(logger, "sql_context_execute", func() error {
//	    return ctx.Execute(query)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = capture(logger, operation, r)
		}
	}()

	return fn()
}

// RecoverToValue wraps a function that returns a value and error.
// If the function panics, returns the zero value and a *Panic.
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = capture(logger, operation, r)
		}
	}()

	return fn()
}

// Recover wraps a void function with panic recovery.
// Logs the panic but doesn't return an error.
// Use for cleanup operations where errors can't be returned.
func Recover(logger *slog.Logger, operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered in cleanup",
				"operation", operation,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	fn()
}

func capture(logger *slog.Logger, operation string, r any) *Panic {
	p := &Panic{
		Operation: operation,
		Value:     r,
		Stack:     debug.Stack(),
	}

	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(p.Stack),
	)

	return p
}

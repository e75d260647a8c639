package value

import (
	"errors"
	"strings"
)

var (
	// ErrTypeMismatch is matched by decode errors on a value of the wrong kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrOverflow is matched by decode errors on integers outside the target width.
	ErrOverflow = errors.New("integer overflow")

	// ErrInvalid is matched by decode errors on malformed values.
	ErrInvalid = errors.New("invalid value")
)

// Error describes a failed conversion between a transfer value and a native
// value. Path locates the offending element inside nested values.
type Error struct {
	Cause  error
	Want   string
	Got    Kind
	Detail string
	Path   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Cause.Error())
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.Want != "" {
		b.WriteString(": want ")
		b.WriteString(e.Want)
		b.WriteString(", got ")
		b.WriteString(e.Got.String())
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func mismatch(want string, got Kind) error {
	return &Error{Cause: ErrTypeMismatch, Want: want, Got: got}
}

func overflow(detail string) error {
	return &Error{Cause: ErrOverflow, Got: KindInt, Detail: detail}
}

// AtPath prefixes the location of a nested decode error. Errors that are not
// *Error are returned unchanged.
func AtPath(err error, segment string) error {
	var ve *Error
	if !errors.As(err, &ve) {
		return err
	}
	cp := *ve
	cp.Path = append([]string{segment}, ve.Path...)
	return &cp
}

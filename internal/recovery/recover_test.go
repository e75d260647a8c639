package recovery

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecoverToError(t *testing.T) {
	err := RecoverToError(discardLogger(), "boom", func() error {
		panic("kaboom")
	})

	var p *Panic
	if !errors.As(err, &p) {
		t.Fatalf("Expected *Panic, got %T: %v", err, err)
	}
	if p.Operation != "boom" || p.Value != "kaboom" {
		t.Errorf("Unexpected panic %+v", p)
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("Expected message to contain panic value, got %q", err.Error())
	}
	if len(p.Stack) == 0 {
		t.Error("Expected stack trace")
	}
}

func TestRecoverToErrorPassesThrough(t *testing.T) {
	want := errors.New("plain failure")
	err := RecoverToError(discardLogger(), "op", func() error { return want })
	if err != want {
		t.Errorf("Expected %v, got %v", want, err)
	}
}

func TestRecoverToValue(t *testing.T) {
	sentinel := errors.New("wrapped")

	n, err := RecoverToValue(discardLogger(), "op", func() (int, error) {
		panic(sentinel)
	})
	if n != 0 {
		t.Errorf("Expected zero value, got %d", n)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected error panic value to unwrap, got %v", err)
	}

	n, err = RecoverToValue(discardLogger(), "op", func() (int, error) { return 7, nil })
	if n != 7 || err != nil {
		t.Errorf("Expected 7, nil; got %d, %v", n, err)
	}
}

func TestRecover(t *testing.T) {
	ran := false
	Recover(discardLogger(), "cleanup", func() {
		ran = true
		panic("ignored")
	})
	if !ran {
		t.Error("Expected function to run")
	}
}

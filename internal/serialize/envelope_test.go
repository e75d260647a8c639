package serialize

import (
	"bytes"
	"errors"
	"testing"
)

func newTestCodec(t *testing.T, threshold int) *Codec {
	t.Helper()
	c, err := NewCodec(threshold)
	if err != nil {
		t.Fatalf("NewCodec() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCodecSmallPayloadIsRaw(t *testing.T) {
	c := newTestCodec(t, 16)

	payload := []byte("hello")
	sealed, err := c.Seal(payload)
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	if sealed[0] != flagRaw {
		t.Errorf("Expected raw flag, got %d", sealed[0])
	}

	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if !bytes.Equal(opened, payload) {
		t.Errorf("Expected %q, got %q", payload, opened)
	}
}

func TestCodecLargePayloadIsCompressed(t *testing.T) {
	c := newTestCodec(t, 16)

	payload := bytes.Repeat([]byte("columnar "), 1000)
	sealed, err := c.Seal(payload)
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	if sealed[0] != flagZstd {
		t.Fatalf("Expected zstd flag, got %d", sealed[0])
	}
	if len(sealed) >= len(payload) {
		t.Errorf("Expected compression, got %d >= %d bytes", len(sealed), len(payload))
	}

	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if !bytes.Equal(opened, payload) {
		t.Error("Payload changed across seal/open")
	}
}

func TestCodecCompressionDisabled(t *testing.T) {
	c := newTestCodec(t, -1)

	sealed, err := c.Seal(bytes.Repeat([]byte{'x'}, 10000))
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	if sealed[0] != flagRaw {
		t.Errorf("Expected raw flag, got %d", sealed[0])
	}
}

func TestCodecOpenMalformed(t *testing.T) {
	c := newTestCodec(t, 0)

	if _, err := c.Open([]byte{7, 1, 2}); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for unknown flag, got %v", err)
	}
	if _, err := c.Open([]byte{flagZstd, 1, 2, 3}); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for corrupt zstd, got %v", err)
	}
	if _, err := c.Open([]byte{flagZstd}); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for bare zstd flag, got %v", err)
	}

	payload, err := c.Open(nil)
	if err != nil || len(payload) != 0 {
		t.Errorf("Expected empty payload, got %q, %v", payload, err)
	}
}

// Package serialize frames action payloads, compressing large ones with
// ZStandard.
package serialize

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Envelope flag bytes.
const (
	flagRaw  byte = 0
	flagZstd byte = 1
)

// DefaultThreshold is the payload size above which Seal compresses.
const DefaultThreshold = 4 << 10

// maxDecodedSize bounds one decompressed payload.
const maxDecodedSize = 256 << 20

// ErrMalformed is returned by Open for envelopes that cannot be decoded.
var ErrMalformed = errors.New("malformed envelope")

// Codec seals and opens envelopes: one flag byte followed by the payload,
// raw or zstd-compressed. Safe for concurrent use; the zstd EncodeAll and
// DecodeAll calls it relies on are goroutine-safe.
type Codec struct {
	threshold int
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

// NewCodec returns a codec compressing payloads longer than threshold bytes.
// A negative threshold disables compression; zero uses DefaultThreshold.
// Call Close to release the zstd workers.
func NewCodec(threshold int) (*Codec, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Codec{threshold: threshold, enc: enc, dec: dec}, nil
}

// Seal frames payload.
func (c *Codec) Seal(payload []byte) ([]byte, error) {
	if c.threshold < 0 || len(payload) <= c.threshold {
		out := make([]byte, 0, len(payload)+1)
		out = append(out, flagRaw)
		return append(out, payload...), nil
	}

	out := make([]byte, 1, len(payload)/2+1)
	out[0] = flagZstd
	return c.enc.EncodeAll(payload, out), nil
}

// Open returns the payload carried by an envelope. An empty envelope carries
// an empty payload.
func (c *Codec) Open(envelope []byte) ([]byte, error) {
	if len(envelope) == 0 {
		return nil, nil
	}

	switch envelope[0] {
	case flagRaw:
		return envelope[1:], nil
	case flagZstd:
		if len(envelope) == 1 {
			return nil, fmt.Errorf("%w: empty compressed payload", ErrMalformed)
		}
		payload, err := c.dec.DecodeAll(envelope[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return payload, nil
	}
	return nil, fmt.Errorf("%w: unknown flag %d", ErrMalformed, envelope[0])
}

// Close releases compression resources.
func (c *Codec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

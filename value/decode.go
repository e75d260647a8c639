package value

import (
	"fmt"
	"math"
	"strconv"
)

// IntPolicy bounds the integers a host can represent. Bits is the host's
// signed integer width, between 2 and 64; zero means 64. Values outside the
// width are rejected rather than wrapped or clamped.
type IntPolicy struct {
	Bits int
}

// Range returns the inclusive bounds of the policy.
func (p IntPolicy) Range() (lo, hi int64) {
	bits := p.Bits
	if bits <= 0 || bits > 64 {
		bits = 64
	}
	if bits == 64 {
		return math.MinInt64, math.MaxInt64
	}
	hi = int64(1)<<(bits-1) - 1
	return -hi - 1, hi
}

// Check returns ErrOverflow when n does not fit the host width.
func (p IntPolicy) Check(n int64) error {
	lo, hi := p.Range()
	if n < lo || n > hi {
		return overflow(fmt.Sprintf("%d outside [%d, %d]", n, lo, hi))
	}
	return nil
}

// Bool decodes a boolean.
func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, mismatch("bool", v.kind)
	}
	return v.flag, nil
}

// Int64 decodes a full-width signed integer.
func (v Value) Int64() (int64, error) {
	if v.kind != KindInt {
		return 0, mismatch("int", v.kind)
	}
	return v.i, nil
}

// IntN decodes a signed integer that must fit in bits.
func (v Value) IntN(bits int) (int64, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, err
	}
	if err := (IntPolicy{Bits: bits}).Check(n); err != nil {
		return 0, err
	}
	return n, nil
}

// Int32 decodes a 32-bit signed integer.
func (v Value) Int32() (int32, error) {
	n, err := v.IntN(32)
	return int32(n), err
}

// Uint32 decodes a 32-bit unsigned integer.
func (v Value) Uint32() (uint32, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, overflow(strconv.FormatInt(n, 10) + " outside uint32")
	}
	return uint32(n), nil
}

// Str decodes a string.
func (v Value) Str() (string, error) {
	if v.kind != KindString {
		return "", mismatch("string", v.kind)
	}
	return v.s, nil
}

// ByteSlice decodes a byte buffer into a fresh copy.
func (v Value) ByteSlice() ([]byte, error) {
	if v.kind != KindBytes {
		return nil, mismatch("bytes", v.kind)
	}
	return append([]byte{}, v.b...), nil
}

// Items decodes an ordered sequence.
func (v Value) Items() ([]Value, error) {
	if v.kind != KindList {
		return nil, mismatch("list", v.kind)
	}
	return append([]Value(nil), v.items...), nil
}

// Tuple decodes a pair.
func (v Value) Tuple() (Value, Value, error) {
	if v.kind != KindPair {
		return Value{}, Value{}, mismatch("pair", v.kind)
	}
	return v.items[0], v.items[1], nil
}

// Optional decodes an option; present reports whether inner is meaningful.
func (v Value) Optional() (inner Value, present bool, err error) {
	if v.kind != KindOption {
		return Value{}, false, mismatch("option", v.kind)
	}
	if !v.flag {
		return Value{}, false, nil
	}
	return v.items[0], true, nil
}

// Outcome decodes a result. On failure ok is false and msg holds the message.
func (v Value) Outcome() (inner Value, ok bool, msg string, err error) {
	if v.kind != KindResult {
		return Value{}, false, "", mismatch("result", v.kind)
	}
	if !v.flag {
		return Value{}, false, v.s, nil
	}
	return v.items[0], true, "", nil
}

// Token decodes a handle token and its kind.
func (v Value) Token() (kind string, id uint64, err error) {
	if v.kind != KindHandle {
		return "", 0, mismatch("handle", v.kind)
	}
	return v.s, v.id, nil
}

// Tag decodes a variant into its tag and optional payload.
func (v Value) Tag() (tag string, payload Value, hasPayload bool, err error) {
	if v.kind != KindVariant {
		return "", Value{}, false, mismatch("variant", v.kind)
	}
	if len(v.items) == 0 {
		return v.s, Value{}, false, nil
	}
	return v.s, v.items[0], true, nil
}

// ListOf encodes xs in order.
func ListOf[T any](xs []T, enc func(T) Value) Value {
	items := make([]Value, len(xs))
	for i, x := range xs {
		items[i] = enc(x)
	}
	return Value{kind: KindList, items: items}
}

// DecodeList decodes every element of a list in order. An empty list decodes
// to an empty, non-nil slice.
func DecodeList[T any](v Value, dec func(Value) (T, error)) ([]T, error) {
	if v.kind != KindList {
		return nil, mismatch("list", v.kind)
	}
	out := make([]T, 0, len(v.items))
	for i, item := range v.items {
		x, err := dec(item)
		if err != nil {
			return nil, AtPath(err, strconv.Itoa(i))
		}
		out = append(out, x)
	}
	return out, nil
}

// OptionOf encodes x when present.
func OptionOf[T any](x T, present bool, enc func(T) Value) Value {
	if !present {
		return None()
	}
	return Some(enc(x))
}

// DecodeOption decodes an option's inner value when present.
func DecodeOption[T any](v Value, dec func(Value) (T, error)) (T, bool, error) {
	var zero T
	inner, present, err := v.Optional()
	if err != nil || !present {
		return zero, false, err
	}
	x, err := dec(inner)
	if err != nil {
		return zero, false, AtPath(err, "some")
	}
	return x, true, nil
}

// ResultOf encodes a native (x, err) pair. The failure side carries only the
// error's display text.
func ResultOf[T any](x T, err error, enc func(T) Value) Value {
	if err != nil {
		return Err(err.Error())
	}
	return Ok(enc(x))
}

// Package value defines the transfer values that cross the binding boundary
// and converts them to and from native Go values.
//
// A Value is immutable once built. Constructors copy caller-provided slices,
// so a Value never aliases host or native buffers.
package value

import (
	"fmt"
	"strings"
)

// Kind tags the shape of a Value.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindInt
	KindString
	KindBytes
	KindList
	KindOption
	KindPair
	KindResult
	KindHandle
	KindVariant
)

var kindNames = [...]string{
	KindUnit:    "unit",
	KindBool:    "bool",
	KindInt:     "int",
	KindString:  "string",
	KindBytes:   "bytes",
	KindList:    "list",
	KindOption:  "option",
	KindPair:    "pair",
	KindResult:  "result",
	KindHandle:  "handle",
	KindVariant: "variant",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a host-neutral transfer value.
//
// Field use by kind:
//   - Int: i
//   - Bool: flag
//   - String: s
//   - Bytes: b
//   - List: items
//   - Option: flag (present), items[0] when present
//   - Pair: items[0], items[1]
//   - Result: flag (ok), items[0] on success, s on failure
//   - Handle: s (handle kind), id
//   - Variant: s (tag), items[0] when a payload is present
type Value struct {
	kind  Kind
	flag  bool
	i     int64
	id    uint64
	s     string
	b     []byte
	items []Value
}

// Unit returns the empty value.
func Unit() Value { return Value{kind: KindUnit} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, flag: v} }

// Int wraps a signed integer.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes wraps a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, b: append([]byte(nil), b...)}
}

// List builds an ordered sequence.
func List(items ...Value) Value {
	return Value{kind: KindList, items: append([]Value(nil), items...)}
}

// Some builds a present optional.
func Some(v Value) Value {
	return Value{kind: KindOption, flag: true, items: []Value{v}}
}

// None builds an absent optional.
func None() Value { return Value{kind: KindOption} }

// Pair builds a 2-tuple.
func Pair(first, second Value) Value {
	return Value{kind: KindPair, items: []Value{first, second}}
}

// Ok builds a successful result.
func Ok(v Value) Value {
	return Value{kind: KindResult, flag: true, items: []Value{v}}
}

// Err builds a failed result carrying a human-readable message.
func Err(msg string) Value {
	return Value{kind: KindResult, s: msg}
}

// Handle builds an opaque handle token.
func Handle(kind string, id uint64) Value {
	return Value{kind: KindHandle, s: kind, id: id}
}

// Variant builds a tagged enum value without payload.
func Variant(tag string) Value {
	return Value{kind: KindVariant, s: tag}
}

// VariantOf builds a tagged enum value carrying payload.
func VariantOf(tag string, payload Value) Value {
	return Value{kind: KindVariant, s: tag, items: []Value{payload}}
}

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.flag != o.flag || v.i != o.i || v.id != o.id || v.s != o.s {
		return false
	}
	if string(v.b) != string(o.b) || len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if !v.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

// String renders the value for logs and test failures.
func (v Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.kind {
	case KindUnit:
		b.WriteString("()")
	case KindBool:
		fmt.Fprintf(b, "%t", v.flag)
	case KindInt:
		fmt.Fprintf(b, "%d", v.i)
	case KindString:
		fmt.Fprintf(b, "%q", v.s)
	case KindBytes:
		fmt.Fprintf(b, "b%q", v.b)
	case KindList:
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteString(", ")
			}
			item.write(b)
		}
		b.WriteByte(']')
	case KindOption:
		if !v.flag {
			b.WriteString("None")
			return
		}
		b.WriteString("Some(")
		v.items[0].write(b)
		b.WriteByte(')')
	case KindPair:
		b.WriteByte('(')
		v.items[0].write(b)
		b.WriteString(", ")
		v.items[1].write(b)
		b.WriteByte(')')
	case KindResult:
		if !v.flag {
			fmt.Fprintf(b, "Error(%q)", v.s)
			return
		}
		b.WriteString("Ok(")
		v.items[0].write(b)
		b.WriteByte(')')
	case KindHandle:
		fmt.Fprintf(b, "<%s#%d>", v.s, v.id)
	case KindVariant:
		b.WriteString(v.s)
		if len(v.items) > 0 {
			b.WriteByte('(')
			v.items[0].write(b)
			b.WriteByte(')')
		}
	default:
		b.WriteString(v.kind.String())
	}
}

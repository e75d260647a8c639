package value

import (
	"fmt"
	"math"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// maxDepth bounds nesting on decode so hostile payloads cannot exhaust the stack.
const maxDepth = 64

// listPrealloc caps the capacity reserved from a list header. Longer lists
// grow by append, so memory tracks the bytes actually present.
const listPrealloc = 1024

// arity lists the accepted array lengths per kind, header included.
var arity = map[Kind][]int{
	KindUnit:    {1},
	KindBool:    {2},
	KindInt:     {2},
	KindString:  {2},
	KindBytes:   {2},
	KindList:    {2},
	KindOption:  {1, 2},
	KindPair:    {3},
	KindResult:  {3},
	KindHandle:  {3},
	KindVariant: {2, 3},
}

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
)

// EncodeMsgpack writes v as a msgpack array whose first element is the kind:
//
//	unit     [0]
//	bool     [1, b]
//	int      [2, n]
//	string   [3, s]
//	bytes    [4, bin]
//	list     [5, [v...]]
//	option   [6] | [6, v]
//	pair     [7, a, b]
//	result   [8, true, v] | [8, false, msg]
//	handle   [9, kind, id]
//	variant  [10, tag] | [10, tag, v]
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindUnit:
		if err := enc.EncodeArrayLen(1); err != nil {
			return err
		}
		return enc.EncodeUint8(uint8(v.kind))

	case KindBool:
		if err := header(enc, v.kind, 2); err != nil {
			return err
		}
		return enc.EncodeBool(v.flag)

	case KindInt:
		if err := header(enc, v.kind, 2); err != nil {
			return err
		}
		return enc.EncodeInt(v.i)

	case KindString:
		if err := header(enc, v.kind, 2); err != nil {
			return err
		}
		return enc.EncodeString(v.s)

	case KindBytes:
		if err := header(enc, v.kind, 2); err != nil {
			return err
		}
		return enc.EncodeBytes(v.b)

	case KindList:
		if err := header(enc, v.kind, 2); err != nil {
			return err
		}
		if err := enc.EncodeArrayLen(len(v.items)); err != nil {
			return err
		}
		for _, item := range v.items {
			if err := item.EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil

	case KindOption:
		if !v.flag {
			return header(enc, v.kind, 1)
		}
		if err := header(enc, v.kind, 2); err != nil {
			return err
		}
		return v.items[0].EncodeMsgpack(enc)

	case KindPair:
		if err := header(enc, v.kind, 3); err != nil {
			return err
		}
		if err := v.items[0].EncodeMsgpack(enc); err != nil {
			return err
		}
		return v.items[1].EncodeMsgpack(enc)

	case KindResult:
		if err := header(enc, v.kind, 3); err != nil {
			return err
		}
		if err := enc.EncodeBool(v.flag); err != nil {
			return err
		}
		if !v.flag {
			return enc.EncodeString(v.s)
		}
		return v.items[0].EncodeMsgpack(enc)

	case KindHandle:
		if err := header(enc, v.kind, 3); err != nil {
			return err
		}
		if err := enc.EncodeString(v.s); err != nil {
			return err
		}
		return enc.EncodeUint(v.id)

	case KindVariant:
		n := 2
		if len(v.items) > 0 {
			n = 3
		}
		if err := header(enc, v.kind, n); err != nil {
			return err
		}
		if err := enc.EncodeString(v.s); err != nil {
			return err
		}
		if n == 3 {
			return v.items[0].EncodeMsgpack(enc)
		}
		return nil
	}
	return fmt.Errorf("%w: cannot encode %s", ErrInvalid, v.kind)
}

func header(enc *msgpack.Encoder, kind Kind, n int) error {
	if err := enc.EncodeArrayLen(n); err != nil {
		return err
	}
	return enc.EncodeUint8(uint8(kind))
}

// DecodeMsgpack reads a value written by EncodeMsgpack.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	out, err := decodeValue(dec, 0)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func decodeValue(dec *msgpack.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fmt.Errorf("%w: nesting deeper than %d", ErrInvalid, maxDepth)
	}

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return Value{}, err
	}
	if n < 1 {
		return Value{}, fmt.Errorf("%w: empty value header", ErrInvalid)
	}
	code, err := dec.DecodeUint8()
	if err != nil {
		return Value{}, err
	}
	kind := Kind(code)

	want, known := arity[kind]
	if !known {
		return Value{}, fmt.Errorf("%w: unknown kind %d", ErrInvalid, code)
	}
	if !slices.Contains(want, n) {
		return Value{}, fmt.Errorf("%w: %s with %d elements", ErrInvalid, kind, n)
	}

	switch kind {
	case KindUnit:
		return Unit(), nil

	case KindBool:
		b, err := dec.DecodeBool()
		return Bool(b), err

	case KindInt:
		i, err := decodeInt(dec)
		return Int(i), err

	case KindString:
		s, err := dec.DecodeString()
		return String(s), err

	case KindBytes:
		b, err := dec.DecodeBytes()
		return Value{kind: KindBytes, b: b}, err

	case KindList:
		count, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		if count < 0 {
			count = 0
		}
		items := make([]Value, 0, min(count, listPrealloc))
		for i := 0; i < count; i++ {
			item, err := decodeValue(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, items: items}, nil

	case KindOption:
		if n == 1 {
			return None(), nil
		}
		inner, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		return Some(inner), nil

	case KindPair:
		first, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		second, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		return Pair(first, second), nil

	case KindResult:
		ok, err := dec.DecodeBool()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			msg, err := dec.DecodeString()
			return Err(msg), err
		}
		inner, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		return Ok(inner), nil

	case KindHandle:
		hk, err := dec.DecodeString()
		if err != nil {
			return Value{}, err
		}
		id, err := dec.DecodeUint64()
		if err != nil {
			return Value{}, err
		}
		return Handle(hk, id), nil

	default: // KindVariant
		tag, err := dec.DecodeString()
		if err != nil {
			return Value{}, err
		}
		if n == 2 {
			return Variant(tag), nil
		}
		payload, err := decodeValue(dec, depth+1)
		if err != nil {
			return Value{}, err
		}
		return VariantOf(tag, payload), nil
	}
}

// decodeInt rejects unsigned 64-bit values that do not fit int64 instead of
// letting them wrap negative.
func decodeInt(dec *msgpack.Decoder) (int64, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return 0, err
	}
	if code == msgpcode.Uint64 {
		u, err := dec.DecodeUint64()
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			return 0, overflow(fmt.Sprintf("%d exceeds int64", u))
		}
		return int64(u), nil
	}
	return dec.DecodeInt64()
}

package value

import (
	"github.com/hugr-lab/framebind/internal/msgpack"
)

// Marshal encodes a single value for the wire.
func Marshal(v Value) ([]byte, error) {
	return msgpack.Encode(v)
}

// Unmarshal decodes a single value from the wire.
func Unmarshal(data []byte) (Value, error) {
	var v Value
	if err := msgpack.Decode(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// MarshalArgs encodes an argument list. A nil list encodes as an empty array.
func MarshalArgs(args []Value) ([]byte, error) {
	if args == nil {
		args = []Value{}
	}
	return msgpack.Encode(args)
}

// UnmarshalArgs decodes an argument list. An empty payload means no arguments.
func UnmarshalArgs(data []byte) ([]Value, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var args []Value
	if err := msgpack.Decode(data, &args); err != nil {
		return nil, err
	}
	return args, nil
}

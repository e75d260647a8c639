package binding

import (
	"fmt"

	"github.com/hugr-lab/framebind/engine"
	"github.com/hugr-lab/framebind/value"
)

// encodeDataType renders a data type as a variant tagged with its type name.
// Datetime and Duration carry their unit as a string payload; List carries
// its inner type.
func encodeDataType(dt engine.DataType) value.Value {
	switch dt.ID {
	case engine.Datetime, engine.Duration:
		return value.VariantOf(dt.ID.String(), value.String(string(dt.Unit)))
	case engine.List:
		if dt.Inner != nil {
			return value.VariantOf(dt.ID.String(), encodeDataType(*dt.Inner))
		}
	}
	return value.Variant(dt.ID.String())
}

func decodeDataType(v value.Value) (engine.DataType, error) {
	tag, payload, hasPayload, err := v.Tag()
	if err != nil {
		return engine.DataType{}, err
	}
	id, err := engine.ParseTypeID(tag)
	if err != nil {
		return engine.DataType{}, err
	}

	switch id {
	case engine.Datetime, engine.Duration:
		if !hasPayload {
			return engine.DataType{}, fmt.Errorf("%s requires a time unit", id)
		}
		s, err := payload.Str()
		if err != nil {
			return engine.DataType{}, value.AtPath(err, tag)
		}
		unit, err := engine.ParseTimeUnit(s)
		if err != nil {
			return engine.DataType{}, err
		}
		return engine.DataType{ID: id, Unit: unit}, nil
	case engine.List:
		if !hasPayload {
			return engine.DataType{}, fmt.Errorf("List requires an inner type")
		}
		inner, err := decodeDataType(payload)
		if err != nil {
			return engine.DataType{}, value.AtPath(err, tag)
		}
		return engine.ListOf(inner), nil
	}

	if hasPayload {
		return engine.DataType{}, fmt.Errorf("%s takes no payload", id)
	}
	return engine.Simple(id), nil
}

func encodeField(f engine.Field) value.Value {
	return value.Pair(value.String(f.Name), encodeDataType(f.Type))
}

func decodeField(v value.Value) (engine.Field, error) {
	name, dtype, err := v.Tuple()
	if err != nil {
		return engine.Field{}, err
	}
	s, err := name.Str()
	if err != nil {
		return engine.Field{}, value.AtPath(err, "name")
	}
	dt, err := decodeDataType(dtype)
	if err != nil {
		return engine.Field{}, value.AtPath(err, s)
	}
	return engine.Field{Name: s, Type: dt}, nil
}

// encodeFillNull renders a strategy as a variant tagged with its kind.
// Backward and Forward carry an optional limit, which must fit the host width.
func encodeFillNull(s engine.FillNullStrategy, policy value.IntPolicy) (value.Value, error) {
	if !s.Kind.TakesLimit() {
		return value.Variant(s.Kind.String()), nil
	}
	if s.HasLimit {
		if err := policy.Check(int64(s.Limit)); err != nil {
			return value.Value{}, value.AtPath(err, s.Kind.String())
		}
	}
	limit := value.OptionOf(s.Limit, s.HasLimit, func(n uint32) value.Value {
		return value.Int(int64(n))
	})
	return value.VariantOf(s.Kind.String(), limit), nil
}

func decodeFillNull(v value.Value, policy value.IntPolicy) (engine.FillNullStrategy, error) {
	tag, payload, hasPayload, err := v.Tag()
	if err != nil {
		return engine.FillNullStrategy{}, err
	}
	kind, err := engine.ParseFillNullKind(tag)
	if err != nil {
		return engine.FillNullStrategy{}, err
	}

	s := engine.FillNullStrategy{Kind: kind}
	if kind.TakesLimit() {
		if !hasPayload {
			return engine.FillNullStrategy{}, fmt.Errorf("%w: %s requires an optional limit", engine.ErrInvalidStrategy, kind)
		}
		limit, present, err := value.DecodeOption(payload, value.Value.Uint32)
		if err == nil && present {
			err = policy.Check(int64(limit))
		}
		if err != nil {
			return engine.FillNullStrategy{}, value.AtPath(err, tag)
		}
		s.Limit, s.HasLimit = limit, present
	} else if hasPayload {
		return engine.FillNullStrategy{}, fmt.Errorf("%w: %s takes no payload", engine.ErrInvalidStrategy, kind)
	}

	if err := s.Validate(); err != nil {
		return engine.FillNullStrategy{}, err
	}
	return s, nil
}

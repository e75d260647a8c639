package engine

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// TypeID identifies a column data type.
type TypeID uint8

const (
	Null TypeID = iota
	Boolean
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Utf8
	Binary
	Date
	Time
	Datetime
	Duration
	List
)

var typeNames = [...]string{
	Null:     "Null",
	Boolean:  "Boolean",
	Int8:     "Int8",
	Int16:    "Int16",
	Int32:    "Int32",
	Int64:    "Int64",
	UInt8:    "UInt8",
	UInt16:   "UInt16",
	UInt32:   "UInt32",
	UInt64:   "UInt64",
	Float32:  "Float32",
	Float64:  "Float64",
	Utf8:     "Utf8",
	Binary:   "Binary",
	Date:     "Date",
	Time:     "Time",
	Datetime: "Datetime",
	Duration: "Duration",
	List:     "List",
}

func (id TypeID) String() string {
	if int(id) < len(typeNames) {
		return typeNames[id]
	}
	return fmt.Sprintf("TypeID(%d)", uint8(id))
}

// ParseTypeID resolves a type name such as "Int64" or "Utf8".
func ParseTypeID(name string) (TypeID, error) {
	for id, n := range typeNames {
		if n == name {
			return TypeID(id), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// TimeUnit is the resolution of Datetime and Duration types.
type TimeUnit string

const (
	Milliseconds TimeUnit = "ms"
	Microseconds TimeUnit = "us"
	Nanoseconds  TimeUnit = "ns"
)

// ParseTimeUnit validates a unit name.
func ParseTimeUnit(s string) (TimeUnit, error) {
	switch u := TimeUnit(s); u {
	case Milliseconds, Microseconds, Nanoseconds:
		return u, nil
	}
	return "", fmt.Errorf("%w: time unit %q", ErrUnknownType, s)
}

func (u TimeUnit) arrow() arrow.TimeUnit {
	switch u {
	case Milliseconds:
		return arrow.Millisecond
	case Nanoseconds:
		return arrow.Nanosecond
	default:
		return arrow.Microsecond
	}
}

func unitFromArrow(u arrow.TimeUnit) TimeUnit {
	switch u {
	case arrow.Second, arrow.Millisecond:
		return Milliseconds
	case arrow.Nanosecond:
		return Nanoseconds
	default:
		return Microseconds
	}
}

// DataType is a column type. Unit is set for Datetime and Duration; Inner is
// set for List.
type DataType struct {
	ID    TypeID
	Unit  TimeUnit
	Inner *DataType
}

// Simple returns a DataType without parameters.
func Simple(id TypeID) DataType {
	return DataType{ID: id}
}

// ListOf returns a List type of inner.
func ListOf(inner DataType) DataType {
	return DataType{ID: List, Inner: &inner}
}

// Equal reports structural equality.
func (t DataType) Equal(o DataType) bool {
	if t.ID != o.ID || t.Unit != o.Unit {
		return false
	}
	if t.Inner == nil || o.Inner == nil {
		return t.Inner == nil && o.Inner == nil
	}
	return t.Inner.Equal(*o.Inner)
}

func (t DataType) String() string {
	switch t.ID {
	case Datetime, Duration:
		return fmt.Sprintf("%s(%s)", t.ID, t.Unit)
	case List:
		if t.Inner != nil {
			return fmt.Sprintf("List(%s)", t.Inner)
		}
	}
	return t.ID.String()
}

// ToArrow returns the Arrow type used to carry t.
func (t DataType) ToArrow() (arrow.DataType, error) {
	switch t.ID {
	case Null:
		return arrow.Null, nil
	case Boolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case Int8:
		return arrow.PrimitiveTypes.Int8, nil
	case Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case UInt8:
		return arrow.PrimitiveTypes.Uint8, nil
	case UInt16:
		return arrow.PrimitiveTypes.Uint16, nil
	case UInt32:
		return arrow.PrimitiveTypes.Uint32, nil
	case UInt64:
		return arrow.PrimitiveTypes.Uint64, nil
	case Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case Utf8:
		return arrow.BinaryTypes.String, nil
	case Binary:
		return arrow.BinaryTypes.Binary, nil
	case Date:
		return arrow.FixedWidthTypes.Date32, nil
	case Time:
		return arrow.FixedWidthTypes.Time64ns, nil
	case Datetime:
		return &arrow.TimestampType{Unit: t.Unit.arrow()}, nil
	case Duration:
		return &arrow.DurationType{Unit: t.Unit.arrow()}, nil
	case List:
		if t.Inner == nil {
			return nil, fmt.Errorf("%w: list without inner type", ErrUnknownType)
		}
		inner, err := t.Inner.ToArrow()
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(inner), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// FromArrow maps an Arrow type back to a DataType.
func FromArrow(dt arrow.DataType) (DataType, error) {
	switch dt.ID() {
	case arrow.NULL:
		return Simple(Null), nil
	case arrow.BOOL:
		return Simple(Boolean), nil
	case arrow.INT8:
		return Simple(Int8), nil
	case arrow.INT16:
		return Simple(Int16), nil
	case arrow.INT32:
		return Simple(Int32), nil
	case arrow.INT64:
		return Simple(Int64), nil
	case arrow.UINT8:
		return Simple(UInt8), nil
	case arrow.UINT16:
		return Simple(UInt16), nil
	case arrow.UINT32:
		return Simple(UInt32), nil
	case arrow.UINT64:
		return Simple(UInt64), nil
	case arrow.FLOAT32:
		return Simple(Float32), nil
	case arrow.FLOAT64:
		return Simple(Float64), nil
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return Simple(Utf8), nil
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.BINARY_VIEW:
		return Simple(Binary), nil
	case arrow.DATE32, arrow.DATE64:
		return Simple(Date), nil
	case arrow.TIME32, arrow.TIME64:
		return Simple(Time), nil
	case arrow.TIMESTAMP:
		return DataType{ID: Datetime, Unit: unitFromArrow(dt.(*arrow.TimestampType).Unit)}, nil
	case arrow.DURATION:
		return DataType{ID: Duration, Unit: unitFromArrow(dt.(*arrow.DurationType).Unit)}, nil
	case arrow.LIST, arrow.LARGE_LIST:
		inner, err := FromArrow(dt.(arrow.ListLikeType).Elem())
		if err != nil {
			return DataType{}, err
		}
		return ListOf(inner), nil
	}
	return DataType{}, fmt.Errorf("%w: arrow %s", ErrUnsupportedType, dt)
}

// fromDuckDB maps a DuckDB column type name, as reported by the driver, to a
// DataType.
func fromDuckDB(name string) (DataType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if inner, ok := strings.CutSuffix(name, "[]"); ok {
		it, err := fromDuckDB(inner)
		if err != nil {
			return DataType{}, err
		}
		return ListOf(it), nil
	}

	switch name {
	case "NULL", `"NULL"`:
		return Simple(Null), nil
	case "BOOLEAN":
		return Simple(Boolean), nil
	case "TINYINT":
		return Simple(Int8), nil
	case "SMALLINT":
		return Simple(Int16), nil
	case "INTEGER":
		return Simple(Int32), nil
	case "BIGINT":
		return Simple(Int64), nil
	case "UTINYINT":
		return Simple(UInt8), nil
	case "USMALLINT":
		return Simple(UInt16), nil
	case "UINTEGER":
		return Simple(UInt32), nil
	case "UBIGINT":
		return Simple(UInt64), nil
	case "FLOAT":
		return Simple(Float32), nil
	case "DOUBLE":
		return Simple(Float64), nil
	case "VARCHAR":
		return Simple(Utf8), nil
	case "BLOB":
		return Simple(Binary), nil
	case "DATE":
		return Simple(Date), nil
	case "TIME":
		return Simple(Time), nil
	case "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return DataType{ID: Datetime, Unit: Microseconds}, nil
	case "TIMESTAMP_S", "TIMESTAMP_MS":
		return DataType{ID: Datetime, Unit: Milliseconds}, nil
	case "TIMESTAMP_NS":
		return DataType{ID: Datetime, Unit: Nanoseconds}, nil
	case "INTERVAL":
		return DataType{ID: Duration, Unit: Microseconds}, nil
	}
	return DataType{}, fmt.Errorf("%w: duckdb %s", ErrUnsupportedType, name)
}

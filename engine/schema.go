package engine

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field is one named column of a Schema.
type Field struct {
	Name string
	Type DataType
}

// Schema is an ordered list of fields backed by an Arrow schema. Field names
// are not required to be unique.
type Schema struct {
	arrow  *arrow.Schema
	fields []Field
}

// NewSchema builds a schema from fields, keeping their order.
func NewSchema(fields []Field) (*Schema, error) {
	af := make([]arrow.Field, len(fields))
	for i, f := range fields {
		dt, err := f.Type.ToArrow()
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, f.Name, err)
		}
		af[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: true}
	}
	return &Schema{
		arrow:  arrow.NewSchema(af, nil),
		fields: append([]Field{}, fields...),
	}, nil
}

// SchemaFromArrow converts an Arrow schema.
func SchemaFromArrow(s *arrow.Schema) (*Schema, error) {
	fields := make([]Field, s.NumFields())
	for i, f := range s.Fields() {
		dt, err := FromArrow(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, f.Name, err)
		}
		fields[i] = Field{Name: f.Name, Type: dt}
	}
	return &Schema{arrow: s, fields: fields}, nil
}

// Fields returns a copy of the fields in order.
func (s *Schema) Fields() []Field {
	return append([]Field{}, s.fields...)
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Arrow returns the Arrow schema.
func (s *Schema) Arrow() *arrow.Schema {
	return s.arrow
}

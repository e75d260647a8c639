package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/duckdb/duckdb-go/v2"
)

// input is a named frame a query depends on.
type input struct {
	name  string
	frame *LazyFrame
}

// LazyFrame is a deferred query. It is immutable: every operation that
// derives a new plan returns a new frame, and frames captured as inputs are
// never affected by later changes to the context they came from.
type LazyFrame struct {
	engine *Engine
	query  string
	inputs []input
	file   *arrow.Schema
}

// ScanParquet returns a frame over a Parquet file. The file footer is read
// immediately, so a missing or malformed file fails here rather than at
// execution time. The path names one file; glob patterns are rejected with
// ErrGlobPath.
func (e *Engine) ScanParquet(ctx context.Context, path string) (*LazyFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.ContainsAny(path, "*?[") {
		return nil, fmt.Errorf("scan parquet %q: %w", path, ErrGlobPath)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("scan parquet %q: %w", path, err)
	}
	defer rdr.Close()

	meta := rdr.MetaData()
	schema, err := pqarrow.FromParquet(meta.Schema, &pqarrow.ArrowReadProperties{}, meta.KeyValueMetadata())
	if err != nil {
		return nil, fmt.Errorf("scan parquet %q: read schema: %w", path, err)
	}

	e.logger.Debug("Parquet scan planned",
		"path", path,
		"columns", schema.NumFields(),
		"row_groups", rdr.NumRowGroups(),
		"rows", meta.NumRows,
	)

	return &LazyFrame{
		engine: e,
		query:  "SELECT * FROM read_parquet(" + quoteLiteral(path) + ")",
		file:   schema,
	}, nil
}

// FileSchema returns the Arrow schema stored in the scanned file's footer.
// It is nil for frames produced by a SQL context.
func (f *LazyFrame) FileSchema() *arrow.Schema {
	return f.file
}

// SQL renders the frame as one self-contained DuckDB query. Inputs become
// common table expressions named after their registration.
func (f *LazyFrame) SQL() string {
	if len(f.inputs) == 0 {
		return f.query
	}

	var b strings.Builder
	b.WriteString("WITH ")
	for i, in := range f.inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(in.name))
		b.WriteString(" AS (")
		b.WriteString(in.frame.SQL())
		b.WriteString(")")
	}
	b.WriteString(" ")
	b.WriteString(f.query)
	return b.String()
}

// Inputs returns the names of the frames this one reads, sorted.
func (f *LazyFrame) Inputs() []string {
	names := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		names[i] = in.name
	}
	return names
}

// Diagram returns DuckDB's rendering of the physical plan.
func (f *LazyFrame) Diagram(ctx context.Context) (string, error) {
	rows, err := f.engine.db.QueryContext(ctx, "EXPLAIN "+f.SQL())
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var key, plan sql.NullString
		if err := rows.Scan(&key, &plan); err != nil {
			return "", fmt.Errorf("explain: %w", err)
		}
		if plan.Valid {
			b.WriteString(plan.String)
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("explain: empty plan")
	}
	return b.String(), nil
}

// Schema resolves the frame's output columns without reading data.
func (f *LazyFrame) Schema(ctx context.Context) (*Schema, error) {
	rows, err := f.engine.db.QueryContext(ctx, "SELECT * FROM ("+f.SQL()+") AS s LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("resolve schema: %w", err)
	}
	defer rows.Close()

	fields, err := columnFields(rows)
	if err != nil {
		return nil, err
	}
	return NewSchema(fields)
}

// Collect executes the frame and returns its result as one Arrow record.
// The caller must Release the record.
func (f *LazyFrame) Collect(ctx context.Context) (arrow.Record, error) {
	start := time.Now()

	rows, err := f.engine.db.QueryContext(ctx, f.SQL())
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	defer rows.Close()

	fields, err := columnFields(rows)
	if err != nil {
		return nil, err
	}
	schema, err := NewSchema(fields)
	if err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(f.engine.allocator, schema.Arrow())
	defer builder.Release()

	dest := make([]any, len(fields))
	ptrs := make([]any, len(fields))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	var n int64
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("collect: %w", err)
		}
		for i, field := range fields {
			if err := appendValue(builder.Field(i), field.Type, dest[i]); err != nil {
				return nil, fmt.Errorf("collect column %q: %w", field.Name, err)
			}
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	f.engine.logger.Debug("Frame collected",
		"rows", n,
		"columns", len(fields),
		"duration", time.Since(start),
	)

	return builder.NewRecord(), nil
}

func columnFields(rows *sql.Rows) ([]Field, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	fields := make([]Field, len(types))
	for i, ct := range types {
		dt, err := fromDuckDB(ct.DatabaseTypeName())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", ct.Name(), err)
		}
		fields[i] = Field{Name: ct.Name(), Type: dt}
	}
	return fields, nil
}

// appendValue appends one scanned driver value to b.
func appendValue(b array.Builder, dt DataType, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch dt.ID {
	case Null:
		b.AppendNull()
	case Boolean:
		x, ok := v.(bool)
		if !ok {
			return unexpected(dt, v)
		}
		b.(*array.BooleanBuilder).Append(x)
	case Int8, Int16, Int32, Int64:
		x, ok := asInt64(v)
		if !ok {
			return unexpected(dt, v)
		}
		switch bb := b.(type) {
		case *array.Int8Builder:
			bb.Append(int8(x))
		case *array.Int16Builder:
			bb.Append(int16(x))
		case *array.Int32Builder:
			bb.Append(int32(x))
		case *array.Int64Builder:
			bb.Append(x)
		}
	case UInt8, UInt16, UInt32, UInt64:
		x, ok := asUint64(v)
		if !ok {
			return unexpected(dt, v)
		}
		switch bb := b.(type) {
		case *array.Uint8Builder:
			bb.Append(uint8(x))
		case *array.Uint16Builder:
			bb.Append(uint16(x))
		case *array.Uint32Builder:
			bb.Append(uint32(x))
		case *array.Uint64Builder:
			bb.Append(x)
		}
	case Float32:
		x, ok := v.(float32)
		if !ok {
			return unexpected(dt, v)
		}
		b.(*array.Float32Builder).Append(x)
	case Float64:
		x, ok := v.(float64)
		if !ok {
			return unexpected(dt, v)
		}
		b.(*array.Float64Builder).Append(x)
	case Utf8:
		x, ok := v.(string)
		if !ok {
			return unexpected(dt, v)
		}
		b.(*array.StringBuilder).Append(x)
	case Binary:
		x, ok := v.([]byte)
		if !ok {
			return unexpected(dt, v)
		}
		b.(*array.BinaryBuilder).Append(x)
	case Date:
		x, ok := v.(time.Time)
		if !ok {
			return unexpected(dt, v)
		}
		b.(*array.Date32Builder).Append(arrow.Date32FromTime(x))
	case Time:
		x, ok := v.(time.Time)
		if !ok {
			return unexpected(dt, v)
		}
		h, m, s := x.Clock()
		ns := (int64(h)*3600+int64(m)*60+int64(s))*int64(time.Second) + int64(x.Nanosecond())
		b.(*array.Time64Builder).Append(arrow.Time64(ns))
	case Datetime:
		x, ok := v.(time.Time)
		if !ok {
			return unexpected(dt, v)
		}
		ts, err := arrow.TimestampFromTime(x, dt.Unit.arrow())
		if err != nil {
			return err
		}
		b.(*array.TimestampBuilder).Append(ts)
	case Duration:
		x, ok := v.(duckdb.Interval)
		if !ok {
			return unexpected(dt, v)
		}
		micros := x.Micros + (int64(x.Days)+int64(x.Months)*30)*int64(24*time.Hour/time.Microsecond)
		b.(*array.DurationBuilder).Append(arrow.Duration(micros))
	case List:
		items, ok := v.([]any)
		if !ok {
			return unexpected(dt, v)
		}
		lb := b.(*array.ListBuilder)
		lb.Append(true)
		for _, item := range items {
			if err := appendValue(lb.ValueBuilder(), *dt.Inner, item); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
	return nil
}

func unexpected(dt DataType, v any) error {
	return fmt.Errorf("%w: %T for %s", ErrUnsupportedType, v, dt)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	}
	return 0, false
}

func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	}
	return 0, false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// sortedInputs snapshots a name-to-frame map in name order.
func sortedInputs(tables map[string]*LazyFrame) []input {
	out := make([]input, 0, len(tables))
	for name, frame := range tables {
		out = append(out, input{name: name, frame: frame})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

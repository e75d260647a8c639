package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// openTestEngine opens an in-memory engine closed at test cleanup.
func openTestEngine(t *testing.T) *Engine {
	t.Helper()

	eng, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

// writeTestParquet writes a small users file and returns its path.
func writeTestParquet(t *testing.T) string {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	builder.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	builder.Field(1).(*array.StringBuilder).AppendValues([]string{"Alice", "Bob", ""}, []bool{true, true, false})
	record := builder.NewRecord()
	defer record.Release()

	table := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer table.Release()

	path := filepath.Join(t.TempDir(), "users.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create parquet file: %v", err)
	}
	defer f.Close()

	if err := pqarrow.WriteTable(table, f, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		t.Fatalf("Failed to write parquet file: %v", err)
	}
	return path
}

// TestDouble tests doubling and the reject policy at the int64 boundary.
func TestDouble(t *testing.T) {
	tests := []struct {
		n       int64
		want    int64
		wantErr bool
	}{
		{0, 0, false},
		{21, 42, false},
		{-7, -14, false},
		{math.MaxInt64 / 2, math.MaxInt64 - 1, false},
		{math.MinInt64 / 2, math.MinInt64, false},
		{math.MaxInt64/2 + 1, 0, true},
		{math.MinInt64/2 - 1, 0, true},
		{math.MinInt64, 0, true},
	}

	for _, tt := range tests {
		got, err := Double(tt.n)
		if tt.wantErr {
			if !errors.Is(err, ErrOverflow) {
				t.Errorf("Double(%d): expected ErrOverflow, got %d, %v", tt.n, got, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Double(%d) = %d, %v; want %d", tt.n, got, err, tt.want)
		}
	}
}

func TestScanParquetMissingFile(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.ScanParquet(context.Background(), filepath.Join(t.TempDir(), "missing.parquet"))
	if err == nil {
		t.Fatal("Expected error scanning a missing file")
	}
	if !strings.Contains(err.Error(), "missing.parquet") {
		t.Errorf("Expected error to name the file, got %v", err)
	}
}

func TestScanParquetMalformedFile(t *testing.T) {
	eng := openTestEngine(t)

	path := filepath.Join(t.TempDir(), "bad.parquet")
	if err := os.WriteFile(path, []byte("not a parquet file"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := eng.ScanParquet(context.Background(), path); err == nil {
		t.Fatal("Expected error scanning a malformed file")
	}
}

func TestScanParquetRejectsGlob(t *testing.T) {
	eng := openTestEngine(t)
	dir := filepath.Dir(writeTestParquet(t))

	for _, pattern := range []string{"*.parquet", "user?.parquet", "[u]sers.parquet"} {
		_, err := eng.ScanParquet(context.Background(), filepath.Join(dir, pattern))
		if !errors.Is(err, ErrGlobPath) {
			t.Errorf("ScanParquet(%q): expected ErrGlobPath, got %v", pattern, err)
		}
	}
}

func TestScanParquetFileSchema(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	frame, err := eng.ScanParquet(ctx, writeTestParquet(t))
	if err != nil {
		t.Fatalf("ScanParquet() failed: %v", err)
	}

	fs := frame.FileSchema()
	if fs == nil || fs.NumFields() != 2 {
		t.Fatalf("Expected 2-field file schema, got %v", fs)
	}
	if fs.Field(0).Name != "id" || !arrow.TypeEqual(fs.Field(0).Type, arrow.PrimitiveTypes.Int64) {
		t.Errorf("Expected id int64, got %v", fs.Field(0))
	}
	if fs.Field(1).Name != "name" || !fs.Field(1).Nullable {
		t.Errorf("Expected nullable name, got %v", fs.Field(1))
	}

	sc := eng.NewSQLContext()
	defer sc.Close()
	sc.Register("users", frame)
	derived, err := sc.Execute(ctx, "SELECT id FROM users")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if derived.FileSchema() != nil {
		t.Error("Expected no file schema on a query frame")
	}
}

// TestScanParquetDiagram tests that a scanned file yields a non-empty plan.
func TestScanParquetDiagram(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	frame, err := eng.ScanParquet(ctx, writeTestParquet(t))
	if err != nil {
		t.Fatalf("ScanParquet() failed: %v", err)
	}

	diagram, err := frame.Diagram(ctx)
	if err != nil {
		t.Fatalf("Diagram() failed: %v", err)
	}
	if strings.TrimSpace(diagram) == "" {
		t.Error("Expected non-empty diagram")
	}
}

func TestLazyFrameSchemaAndCollect(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	frame, err := eng.ScanParquet(ctx, writeTestParquet(t))
	if err != nil {
		t.Fatalf("ScanParquet() failed: %v", err)
	}

	schema, err := frame.Schema(ctx)
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}
	fields := schema.Fields()
	if len(fields) != 2 {
		t.Fatalf("Expected 2 fields, got %d", len(fields))
	}
	if fields[0].Name != "id" || fields[0].Type.ID != Int64 {
		t.Errorf("Expected id Int64, got %s %s", fields[0].Name, fields[0].Type)
	}
	if fields[1].Name != "name" || fields[1].Type.ID != Utf8 {
		t.Errorf("Expected name Utf8, got %s %s", fields[1].Name, fields[1].Type)
	}

	record, err := frame.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	defer record.Release()

	if record.NumRows() != 3 {
		t.Errorf("Expected 3 rows, got %d", record.NumRows())
	}
	names := record.Column(1).(*array.String)
	if names.Value(0) != "Alice" || !names.IsNull(2) {
		t.Errorf("Unexpected name column: %v", names)
	}
}

// TestSQLContextRegisterUnregister tests the registered-name listing.
func TestSQLContextRegisterUnregister(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	frame, err := eng.ScanParquet(ctx, writeTestParquet(t))
	if err != nil {
		t.Fatalf("ScanParquet() failed: %v", err)
	}

	sc := eng.NewSQLContext()
	if len(sc.Tables()) != 0 {
		t.Fatalf("Expected empty context, got %v", sc.Tables())
	}

	sc.Register("t2", frame)
	sc.Register("t1", frame)
	if got := sc.Tables(); len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Errorf("Expected [t1 t2], got %v", got)
	}

	sc.Unregister("t1")
	sc.Unregister("missing")
	if got := sc.Tables(); len(got) != 1 || got[0] != "t2" {
		t.Errorf("Expected [t2], got %v", got)
	}
}

func TestSQLContextExecute(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	frame, err := eng.ScanParquet(ctx, writeTestParquet(t))
	if err != nil {
		t.Fatalf("ScanParquet() failed: %v", err)
	}

	sc := eng.NewSQLContext()
	sc.Register("t1", frame)

	result, err := sc.Execute(ctx, "SELECT * FROM t1 WHERE id > 1;")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	again, err := sc.Execute(ctx, "SELECT * FROM t1 WHERE id > 1")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if again == result {
		t.Error("Expected independent frames from repeated execution")
	}

	// Later changes to the context do not affect the planned frame.
	sc.Unregister("t1")

	record, err := result.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	defer record.Release()
	if record.NumRows() != 2 {
		t.Errorf("Expected 2 rows, got %d", record.NumRows())
	}

	diagram, err := result.Diagram(ctx)
	if err != nil || diagram == "" {
		t.Errorf("Expected diagram, got %q, %v", diagram, err)
	}
}

func TestSQLContextExecuteFailures(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()
	sc := eng.NewSQLContext()

	tests := []struct {
		name  string
		query string
	}{
		{"syntax error", "SELEC * FRM"},
		{"unknown table", "SELECT * FROM t1"},
		{"empty", "  ; "},
		{"not a query", "CREATE TABLE x (id INTEGER)"},
		{"multiple statements", "SELECT 1) AS q; SELECT (1"},
		{"two selects", "SELECT 1; SELECT 2"},
		{"select then ddl", "SELECT 1; CREATE TABLE y (id INTEGER)"},
		{"paren escape", "SELECT 1) AS q; CREATE TABLE escaped AS SELECT 42 AS x; SELECT * FROM (SELECT 1"},
		{"insert", "INSERT INTO t1 VALUES (1)"},
		{"pragma", "PRAGMA version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sc.Execute(ctx, tt.query)
			if err == nil {
				t.Fatal("Expected error")
			}
			if err.Error() == "" {
				t.Error("Expected non-empty error message")
			}
		})
	}
}

func TestSQLContextExecuteRunsNothing(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()
	sc := eng.NewSQLContext()

	queries := []string{
		"CREATE TABLE created AS SELECT 1 AS x",
		"SELECT 1) AS q; CREATE TABLE escaped AS SELECT 42 AS x; SELECT * FROM (SELECT 1",
		"SELECT 1; CREATE TABLE trailing AS SELECT 1 AS x",
	}
	for _, q := range queries {
		_, err := sc.Execute(ctx, q)
		if err == nil {
			t.Errorf("Execute(%q): expected error", q)
		}
	}
	if _, err := sc.Execute(ctx, "CREATE TABLE created AS SELECT 1 AS x"); !errors.Is(err, ErrNotQuery) {
		t.Errorf("Expected ErrNotQuery for DDL, got %v", err)
	}

	var n int
	err := eng.db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_name IN ('created', 'escaped', 'trailing')").Scan(&n)
	if err != nil {
		t.Fatalf("Failed to query catalog: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no tables created, got %d", n)
	}
}

func TestSQLContextExecuteTrailingComment(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()
	sc := eng.NewSQLContext()

	frame, err := sc.Execute(ctx, "SELECT 1 AS x -- one")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	rec, err := frame.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	defer rec.Release()
	if rec.NumRows() != 1 {
		t.Errorf("Expected 1 row, got %d", rec.NumRows())
	}
}

// TestNestedContexts tests a frame from one context registered in another
// context under a clashing name.
func TestNestedContexts(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	frame, err := eng.ScanParquet(ctx, writeTestParquet(t))
	if err != nil {
		t.Fatalf("ScanParquet() failed: %v", err)
	}

	inner := eng.NewSQLContext()
	inner.Register("t1", frame)
	filtered, err := inner.Execute(ctx, "SELECT id FROM t1 WHERE id = 3")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	outer := eng.NewSQLContext()
	outer.Register("t1", filtered)
	outer.Register("all_users", frame)
	joined, err := outer.Execute(ctx, "SELECT a.name FROM all_users a JOIN t1 USING (id)")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	record, err := joined.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	defer record.Release()
	if record.NumRows() != 1 || !record.Column(0).IsNull(0) {
		t.Errorf("Expected one row with null name, got %d rows", record.NumRows())
	}
}

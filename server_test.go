package framebind_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	flightpb "github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/framebind"
	"github.com/hugr-lab/framebind/flight"
	"github.com/hugr-lab/framebind/value"
)

// testServer wraps a framebind server listening on a loopback port.
type testServer struct {
	grpcServer *grpc.Server
	server     *framebind.Server
	address    string
}

func newTestServer(t testing.TB, config framebind.ServerConfig) *testServer {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(framebind.ServerOptions(config)...)
	srv, err := framebind.NewServer(context.Background(), grpcServer, config)
	if err != nil {
		lis.Close()
		t.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		_ = grpcServer.Serve(lis)
	}()

	ts := &testServer{grpcServer: grpcServer, server: srv, address: lis.Addr().String()}
	t.Cleanup(ts.stop)
	return ts
}

func (ts *testServer) stop() {
	ts.grpcServer.Stop()
	ts.server.Close()
}

func newTestClient(t testing.TB, address string) *flight.Client {
	t.Helper()

	fc, err := flightpb.NewClientWithMiddleware(address, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", address, err)
	}
	t.Cleanup(func() { fc.Close() })

	client, err := flight.NewClient(fc, 0)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testContext(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func call(t testing.TB, c *flight.Client, name string, args ...value.Value) value.Value {
	t.Helper()
	res, err := c.Call(testContext(t), name, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return res
}

func ok(t testing.TB, res value.Value) value.Value {
	t.Helper()
	inner, isOk, msg, err := res.Outcome()
	if err != nil {
		t.Fatalf("Expected result value, got %v: %v", res, err)
	}
	if !isOk {
		t.Fatalf("Expected Ok, got Err(%q)", msg)
	}
	return inner
}

func writeParquet(t testing.TB) string {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String},
	}, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()
	builder.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3, 4, 5}, nil)
	builder.Field(1).(*array.StringBuilder).AppendValues([]string{"ada", "bob", "cyd", "dee", "eve"}, nil)
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

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	grpcServer := grpc.NewServer()
	defer grpcServer.Stop()

	_, err := framebind.NewServer(context.Background(), grpcServer, framebind.ServerConfig{MaxMessageSize: -1})
	if err == nil {
		t.Fatal("Expected error for negative message size")
	}
}

func TestFaultIsolation(t *testing.T) {
	ts := newTestServer(t, framebind.ServerConfig{})
	client := newTestClient(t, ts.address)

	_, err := client.Call(testContext(t), "fault_inject", value.String("X marks the spot"))
	if status.Code(err) != codes.Aborted {
		t.Fatalf("Expected Aborted, got %v", err)
	}
	if !strings.Contains(status.Convert(err).Message(), "X marks the spot") {
		t.Errorf("Expected fault message in status, got %q", status.Convert(err).Message())
	}

	n, err := call(t, client, "int_double", value.Int(21)).Int64()
	if err != nil || n != 42 {
		t.Errorf("Expected 42 after fault, got %d, %v", n, err)
	}
}

func TestCallErrors(t *testing.T) {
	ts := newTestServer(t, framebind.ServerConfig{})
	client := newTestClient(t, ts.address)
	ctx := testContext(t)

	tests := []struct {
		name  string
		entry string
		args  []value.Value
		code  codes.Code
	}{
		{"unknown entry", "no_such_entry", nil, codes.Unimplemented},
		{"missing argument", "int_double", nil, codes.InvalidArgument},
		{"wrong kind", "int_double", []value.Value{value.String("21")}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Call(ctx, tt.entry, tt.args...)
			if status.Code(err) != tt.code {
				t.Errorf("Expected %v, got %v", tt.code, err)
			}
		})
	}
}

func TestIntPolicy(t *testing.T) {
	ts := newTestServer(t, framebind.ServerConfig{IntBits: 32})
	client := newTestClient(t, ts.address)

	n, err := call(t, client, "int_double", value.Int(1<<29)).Int64()
	if err != nil || n != 1<<30 {
		t.Errorf("Expected %d, got %d, %v", 1<<30, n, err)
	}

	_, err = client.Call(testContext(t), "int_double", value.Int(1<<30))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument for result outside 32 bits, got %v", err)
	}

	_, err = client.Call(testContext(t), "int_double", value.Int(1<<31))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("Expected InvalidArgument for argument outside 32 bits, got %v", err)
	}
}

func TestSQLContextOverFlight(t *testing.T) {
	ts := newTestServer(t, framebind.ServerConfig{})
	client := newTestClient(t, ts.address)
	path := writeParquet(t)

	sc := call(t, client, "sql_context_new")
	lazy := ok(t, call(t, client, "lazy_scan_parquet", value.Bytes([]byte(path))))
	call(t, client, "sql_context_register", sc, value.String("users"), lazy)

	names, err := value.DecodeList(call(t, client, "sql_context_tables", sc), value.Value.Str)
	if err != nil || len(names) != 1 || names[0] != "users" {
		t.Fatalf("Expected [users], got %v, %v", names, err)
	}

	result := ok(t, call(t, client, "sql_context_execute", sc, value.String("SELECT id, name FROM users WHERE id > 2")))

	table, err := client.Collect(testContext(t), result)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	defer table.Release()

	if table.NumRows() != 3 {
		t.Errorf("Expected 3 rows, got %d", table.NumRows())
	}
	if table.NumCols() != 2 {
		t.Errorf("Expected 2 columns, got %d", table.NumCols())
	}

	bad := call(t, client, "sql_context_execute", sc, value.String("SELECT * FROM missing"))
	if _, isOk, msg, err := bad.Outcome(); err != nil || isOk || msg == "" {
		t.Errorf("Expected Err with message for unknown table, got %v", bad)
	}
}

func TestCollectRejectsForeignSession(t *testing.T) {
	ts := newTestServer(t, framebind.ServerConfig{})
	client := newTestClient(t, ts.address)

	lazy := ok(t, call(t, client, "lazy_scan_parquet", value.Bytes([]byte(writeParquet(t)))))

	other, err := client.OpenSession(testContext(t))
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	defer other.CloseSession(context.Background())

	_, err = other.Collect(testContext(t), lazy)
	if status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound for token from another session, got %v", err)
	}
}

func TestSessions(t *testing.T) {
	ts := newTestServer(t, framebind.ServerConfig{})
	client := newTestClient(t, ts.address)
	ctx := testContext(t)

	a, err := client.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	b, err := client.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	if a.Session() == "" || a.Session() == b.Session() {
		t.Fatalf("Expected distinct session ids, got %q and %q", a.Session(), b.Session())
	}

	sc := call(t, a, "sql_context_new")

	dropped, err := call(t, b, "handle_drop", sc).Bool()
	if err != nil || dropped {
		t.Errorf("Expected handle from another session to be unknown, got %v, %v", dropped, err)
	}

	if err := a.CloseSession(ctx); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}
	_, err = a.Call(ctx, "sql_context_new")
	if status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound after close, got %v", err)
	}
	if err := a.CloseSession(ctx); status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound on second close, got %v", err)
	}

	if _, err := b.Call(ctx, "sql_context_new"); err != nil {
		t.Errorf("Expected other session to keep working, got %v", err)
	}
}

func TestListActions(t *testing.T) {
	ts := newTestServer(t, framebind.ServerConfig{})

	fc, err := flightpb.NewClientWithMiddleware(ts.address, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer fc.Close()

	stream, err := fc.ListActions(testContext(t), &flightpb.Empty{})
	if err != nil {
		t.Fatalf("ListActions failed: %v", err)
	}

	seen := map[string]bool{}
	for {
		action, err := stream.Recv()
		if err != nil {
			break
		}
		seen[action.GetType()] = true
	}

	want := []string{
		flight.ActionSessionOpen,
		flight.ActionSessionClose,
		"schema_create",
		"int_double",
		"sql_context_execute",
		"handle_drop",
	}
	for _, name := range want {
		if !seen[name] {
			t.Errorf("Expected action %q to be listed", name)
		}
	}
	if len(seen) != 21 {
		t.Errorf("Expected 21 actions, got %d", len(seen))
	}
}

func TestAuthentication(t *testing.T) {
	config := framebind.ServerConfig{
		Auth: framebind.StaticTokens(map[string]string{"secret-token": "alice"}),
	}
	ts := newTestServer(t, config)
	client := newTestClient(t, ts.address)

	tests := []struct {
		name  string
		token string
		code  codes.Code
	}{
		{"missing token", "", codes.Unauthenticated},
		{"wrong token", "guess", codes.Unauthenticated},
		{"valid token", "secret-token", codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.WithToken(tt.token).Call(testContext(t), "int_double", value.Int(1))
			if status.Code(err) != tt.code {
				t.Errorf("Expected %v, got %v", tt.code, err)
			}
		})
	}
}

func TestSessionsOwnedByIdentity(t *testing.T) {
	config := framebind.ServerConfig{
		Auth: framebind.StaticTokens(map[string]string{"alice-token": "alice", "bob-token": "bob"}),
	}
	ts := newTestServer(t, config)
	client := newTestClient(t, ts.address)
	ctx := testContext(t)

	alice := client.WithToken("alice-token")
	bob := client.WithToken("bob-token")

	// Default sessions are per identity.
	sc := call(t, alice, "sql_context_new")
	dropped, err := call(t, bob, "handle_drop", sc).Bool()
	if err != nil || dropped {
		t.Errorf("Expected alice's default handle to be unknown to bob, got %v, %v", dropped, err)
	}

	named, err := alice.OpenSession(ctx)
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	stolen := bob.WithSession(named.Session())
	if _, err := stolen.Call(ctx, "sql_context_new"); status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound for bob on alice's session, got %v", err)
	}
	if err := stolen.CloseSession(ctx); status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound for bob closing alice's session, got %v", err)
	}
	if _, err := named.Call(ctx, "sql_context_new"); err != nil {
		t.Errorf("Expected alice's session to keep working, got %v", err)
	}
	if err := named.CloseSession(ctx); err != nil {
		t.Errorf("CloseSession failed: %v", err)
	}
}

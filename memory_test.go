package framebind_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/framebind"
	"github.com/hugr-lab/framebind/value"
)

// TestMemoryLeaks uses memory.NewCheckedAllocator to verify that collected
// and streamed records are released once the server shuts down.
func TestMemoryLeaks(t *testing.T) {
	allocator := memory.NewCheckedAllocator(memory.DefaultAllocator)
	// Registered first so it runs after the server cleanup.
	t.Cleanup(func() { allocator.AssertSize(t, 0) })

	ts := newTestServer(t, framebind.ServerConfig{Allocator: allocator})
	client := newTestClient(t, ts.address)
	path := writeParquet(t)

	t.Run("Collect", func(t *testing.T) {
		lazy := ok(t, call(t, client, "lazy_scan_parquet", value.Bytes([]byte(path))))
		for range 3 {
			table, err := client.Collect(testContext(t), lazy)
			if err != nil {
				t.Fatalf("Collect failed: %v", err)
			}
			table.Release()
		}
	})

	t.Run("Execute", func(t *testing.T) {
		sc := call(t, client, "sql_context_new")
		lazy := ok(t, call(t, client, "lazy_scan_parquet", value.Bytes([]byte(path))))
		call(t, client, "sql_context_register", sc, value.String("users"), lazy)

		result := ok(t, call(t, client, "sql_context_execute", sc, value.String("SELECT count(*) AS n FROM users")))
		table, err := client.Collect(testContext(t), result)
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		defer table.Release()

		if table.NumRows() != 1 {
			t.Errorf("Expected 1 row, got %d", table.NumRows())
		}
	})

	t.Run("DropHandles", func(t *testing.T) {
		sc := call(t, client, "sql_context_new")
		dropped, err := call(t, client, "handle_drop", sc).Bool()
		if err != nil || !dropped {
			t.Errorf("Expected handle to be dropped, got %v, %v", dropped, err)
		}
	})
}

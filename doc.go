// Package framebind exposes a DuckDB-backed columnar query engine to hosts
// on the far side of a boundary: in-process Go callers through the binding
// package, and remote clients through Arrow Flight.
//
// Hosts never see native objects. They see opaque handle tokens, transfer
// values (see package value) and tagged results. Each call runs one engine
// operation:
//
//   - invalid input (an impossible calendar date) yields None
//   - a failed operation (missing file, bad SQL) yields an Err result
//     carrying the native error text
//   - a panic aborts only the current call and reaches the host as a fault
//     (gRPC Aborted over Flight)
//
// # Quick Start
//
//	config := framebind.ServerConfig{IntBits: 63}
//	grpcServer := grpc.NewServer(framebind.ServerOptions(config)...)
//	srv, err := framebind.NewServer(ctx, grpcServer, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
//
// A host then calls entry points as Flight actions:
//
//	client, _ := flight.NewClient(flightClient, 0)
//	sc, _ := client.Call(ctx, "sql_context_new")
//	lazy, _ := client.Call(ctx, "lazy_scan_parquet", value.Bytes([]byte("users.parquet")))
//	inner, _, _, _ := lazy.Outcome()
//	client.Call(ctx, "sql_context_register", sc, value.String("users"), inner)
//	result, _ := client.Call(ctx, "sql_context_execute", sc, value.String("SELECT * FROM users"))
//
// # Sessions
//
// Handle tokens belong to a session. Requests without the framebind-session
// header use the caller's default session; the session_open action creates
// an isolated one and session_close releases everything it holds. With
// authentication enabled, sessions are visible only to the identity that
// created them.
package framebind

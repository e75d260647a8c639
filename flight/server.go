// Package flight serves binding entry points over Arrow Flight.
//
// Every entry point is a Flight action named after it. The action body is an
// envelope holding the msgpack-encoded argument list; the single result body
// is an envelope holding the msgpack-encoded return value. Lazy frames are
// collected and streamed through DoGet.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/framebind/binding"
	"github.com/hugr-lab/framebind/internal/serialize"
)

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	binding   *binding.Binding
	sessions  *sessionSet
	codec     *serialize.Codec
	allocator memory.Allocator
	logger    *slog.Logger
}

// NewServer creates a Flight server dispatching to b. The codec frames
// action bodies; the allocator is used for streamed records.
func NewServer(b *binding.Binding, codec *serialize.Codec, allocator memory.Allocator, logger *slog.Logger) *Server {
	return &Server{
		binding:   b,
		sessions:  newSessionSet(b),
		codec:     codec,
		allocator: allocator,
		logger:    logger,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
// This follows the standard gRPC service registration pattern.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}

// Close closes every session, releasing the handles hosts still hold.
func (s *Server) Close() {
	s.sessions.closeAll()
}

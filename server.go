package framebind

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/framebind/auth"
	"github.com/hugr-lab/framebind/binding"
	"github.com/hugr-lab/framebind/engine"
	"github.com/hugr-lab/framebind/flight"
	"github.com/hugr-lab/framebind/internal/serialize"
)

// Server is a registered framebind Flight service. Close releases every
// session and, when NewServer opened it, the engine.
type Server struct {
	binding   *binding.Binding
	flight    *flight.Server
	codec     *serialize.Codec
	engine    *engine.Engine
	ownEngine bool
	logger    *slog.Logger
}

// NewServer registers framebind Flight service handlers on the provided gRPC server.
//
// The function:
//  1. Validates the ServerConfig
//  2. Opens the engine if none was given
//  3. Creates the binding and the Flight service
//  4. Registers it on grpcServer
//
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
// For authentication, use ServerOptions() to create the gRPC server:
//
//	config := framebind.ServerConfig{Auth: framebind.StaticTokens(tokens)}
//	grpcServer := grpc.NewServer(framebind.ServerOptions(config)...)
//	srv, err := framebind.NewServer(ctx, grpcServer, config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(ctx context.Context, grpcServer *grpc.Server, config ServerConfig) (*Server, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := newLogger(config)

	eng := config.Engine
	ownEngine := false
	if eng == nil {
		var err error
		eng, err = engine.Open(ctx, engine.Config{
			DSN:       config.DSN,
			Allocator: allocator,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		ownEngine = true
	}

	b, err := binding.New(binding.Config{
		Engine:     eng,
		Logger:     logger,
		IntBits:    config.IntBits,
		Registerer: config.Registerer,
	})
	if err != nil {
		if ownEngine {
			eng.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	codec, err := serialize.NewCodec(config.CompressThreshold)
	if err != nil {
		if ownEngine {
			eng.Close()
		}
		return nil, err
	}

	flightServer := flight.NewServer(b, codec, allocator, logger)
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("framebind Flight server registered",
		"has_auth", config.Auth != nil,
		"max_message_size", config.MaxMessageSize,
		"entries", len(b.Entries()),
		"int_bits", config.IntBits,
	)

	return &Server{
		binding:   b,
		flight:    flightServer,
		codec:     codec,
		engine:    eng,
		ownEngine: ownEngine,
		logger:    logger,
	}, nil
}

// Binding returns the binding the server dispatches to, for in-process hosts
// sharing the same engine.
func (s *Server) Binding() *binding.Binding {
	return s.binding
}

// Close closes every session and the engine if NewServer opened it.
func (s *Server) Close() error {
	s.flight.Close()
	s.codec.Close()
	if s.ownEngine {
		return s.engine.Close()
	}
	return nil
}

// validateConfig checks that ServerConfig fields are valid.
func validateConfig(config ServerConfig) error {
	if config.Engine != nil && config.DSN != "" {
		return fmt.Errorf("engine and DSN are mutually exclusive")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	return nil
}

func newLogger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with metadata and authentication
// interceptors.
//
// Example:
//
//	config := framebind.ServerConfig{
//	    Auth: framebind.BearerAuth(validateToken),
//	}
//	grpcServer := grpc.NewServer(framebind.ServerOptions(config)...)
//	framebind.NewServer(ctx, grpcServer, config)
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	unary := []grpc.UnaryServerInterceptor{flight.UnaryServerInterceptor()}
	stream := []grpc.StreamServerInterceptor{flight.StreamServerInterceptor()}

	if config.Auth != nil {
		unary = append([]grpc.UnaryServerInterceptor{auth.UnaryServerInterceptor(config.Auth)}, unary...)
		stream = append([]grpc.StreamServerInterceptor{auth.StreamServerInterceptor(config.Auth)}, stream...)
	}

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}

// Command framebind serves the framebind entry points over Arrow Flight.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/hugr-lab/framebind"
	"github.com/hugr-lab/framebind/internal/metrics"
)

type options struct {
	Addr        string            `short:"a" long:"addr" env:"FRAMEBIND_ADDR" default:":50051" description:"Flight listen address"`
	MetricsAddr string            `long:"metrics-addr" env:"FRAMEBIND_METRICS_ADDR" default:":9090" description:"metrics listen address, empty disables"`
	DSN         string            `long:"dsn" env:"FRAMEBIND_DSN" description:"DuckDB data source name, empty for in-memory"`
	IntBits     int               `long:"int-bits" env:"FRAMEBIND_INT_BITS" default:"64" description:"host integer width"`
	MaxMessage  int               `long:"max-message" env:"FRAMEBIND_MAX_MESSAGE" default:"16777216" description:"max gRPC message size in bytes"`
	Compress    int               `long:"compress-threshold" env:"FRAMEBIND_COMPRESS_THRESHOLD" default:"4096" description:"result size above which results are compressed, negative disables"`
	Tokens      map[string]string `long:"token" description:"bearer token and its identity as token:identity, repeatable"`
	Dbg         bool              `long:"dbg" env:"FRAMEBIND_DEBUG" description:"debug logging"`
}

var revision = "latest"

func main() {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		os.Exit(1)
	}

	level := slog.LevelInfo
	if opts.Dbg {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("framebind failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	logger.Info("starting framebind", "revision", revision, "addr", opts.Addr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	config := framebind.ServerConfig{
		DSN:               opts.DSN,
		Logger:            logger,
		MaxMessageSize:    opts.MaxMessage,
		IntBits:           opts.IntBits,
		CompressThreshold: opts.Compress,
		Registerer:        reg,
	}
	if len(opts.Tokens) > 0 {
		config.Auth = framebind.StaticTokens(opts.Tokens)
	}

	grpcServer := grpc.NewServer(framebind.ServerOptions(config)...)
	srv, err := framebind.NewServer(ctx, grpcServer, config)
	if err != nil {
		return err
	}
	defer srv.Close()

	lis, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", opts.Addr, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Flight server listening", "addr", lis.Addr().String())
		return grpcServer.Serve(lis)
	})

	var ms *metrics.Server
	if opts.MetricsAddr != "" {
		ms = metrics.NewServer(opts.MetricsAddr, reg)
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", opts.MetricsAddr)
			if err := ms.Start(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		grpcServer.GracefulStop()
		if ms != nil {
			return ms.Stop()
		}
		return nil
	})

	return g.Wait()
}

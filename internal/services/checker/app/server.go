// Package server wires the checker runtime and its HTTP and gRPC lifecycles.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/flagchecker/internal/platform/grpc"
	"github.com/louisbranch/flagchecker/internal/platform/timeouts"
	"github.com/louisbranch/flagchecker/internal/services/checker/api/httpapi"
	"github.com/louisbranch/flagchecker/internal/services/checker/discovery"
	"github.com/louisbranch/flagchecker/internal/services/checker/domain"
	"github.com/louisbranch/flagchecker/internal/services/checker/metrics"
	"github.com/louisbranch/flagchecker/internal/services/checker/storage"
	"github.com/louisbranch/flagchecker/internal/services/checker/storage/memory"
	checkersqlite "github.com/louisbranch/flagchecker/internal/services/checker/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name reported for the checker.
const HealthService = "flagchecker.v1.Checker"

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ErrUnknownStoreBackend indicates an unsupported store backend name.
var ErrUnknownStoreBackend = errors.New("unknown store backend")

// Config defines the inputs for the checker server.
type Config struct {
	HTTPAddr     string
	GRPCAddr     string
	Teams        int
	Services     []string
	MaxDelay     time.Duration
	Store        string
	SQLitePath   string
	MaxBodyBytes int64
}

// Server hosts the checker HTTP API, the optional gRPC health endpoint and
// the accepted-flag store.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server
	listener     net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        storage.AcceptedFlagStore
	ready        chan struct{}
}

// New creates a configured checker server.
func New(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}

	store, err := openStore(config.Store, config.SQLitePath)
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(config, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on http addr %s: %w", httpAddr, err)
	}
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &Server{
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
		ready: make(chan struct{}),
	}

	if grpcAddr := strings.TrimSpace(config.GRPCAddr); grpcAddr != "" {
		listener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			_ = httpListener.Close()
			_ = store.Close()
			return nil, fmt.Errorf("listen on grpc addr %s: %w", grpcAddr, err)
		}
		grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
		server.listener = listener
		server.grpcServer = grpcServer
		server.health = healthServer
	}

	return server, nil
}

func newHandler(config Config, store storage.AcceptedFlagStore) (*httpapi.Handler, error) {
	evaluator, err := domain.NewEvaluator(store, domain.WithDelay(config.MaxDelay, domain.DefaultDelayUnit))
	if err != nil {
		return nil, fmt.Errorf("build evaluator: %w", err)
	}
	feed, err := discovery.NewFeed(discovery.Config{Services: config.Services, Teams: config.Teams}, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery feed: %w", err)
	}
	return httpapi.NewHandler(httpapi.Config{
		Evaluator:    evaluator,
		Feed:         feed,
		Accepted:     store,
		Metrics:      metrics.New(),
		MaxBodyBytes: config.MaxBodyBytes,
	})
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the gRPC listener address, or "" when gRPC is disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Ready is closed once the server is accepting requests. With gRPC enabled
// that is after the health endpoint answered a SERVING check.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Run creates and serves a checker server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := New(config)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the servers and blocks until one stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("checker HTTP server listening at %v", s.httpListener.Addr())
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	var grpcErr chan error
	if s.grpcServer != nil {
		log.Printf("checker gRPC health listening at %v", s.listener.Addr())
		grpcErr = make(chan error, 1)
		go func() {
			grpcErr <- s.grpcServer.Serve(s.listener)
		}()
		if err := s.checkGRPCHealth(ctx); err != nil {
			log.Printf("checker gRPC health not ready: %v", err)
		} else {
			log.Printf("checker gRPC health serving %s", HealthService)
			close(s.ready)
		}
	} else {
		close(s.ready)
	}

	handleGRPC := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
	shutdownGRPC := func() error {
		if s.grpcServer == nil {
			return nil
		}
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		return handleGRPC(<-grpcErr)
	}
	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown checker HTTP server: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		shutdownHTTP()
		<-httpErr
		return shutdownGRPC()
	case err := <-httpErr:
		grpcShutdownErr := shutdownGRPC()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return grpcShutdownErr
	case err := <-grpcErr:
		shutdownHTTP()
		<-httpErr
		return handleGRPC(err)
	}
}

// checkGRPCHealth dials the local gRPC listener and waits for SERVING.
func (s *Server) checkGRPCHealth(ctx context.Context) error {
	conn, err := grpc.NewClient(s.listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial gRPC health: %w", err)
	}
	defer conn.Close()

	probeCtx, cancel := context.WithTimeout(ctx, timeouts.Readiness)
	defer cancel()
	return platformgrpc.WaitForHealth(probeCtx, conn, HealthService)
}

func (s *Server) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close checker store: %v", err)
	}
}

func openStore(backend, path string) (storage.AcceptedFlagStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", StoreMemory:
		return memory.New(), nil
	case StoreSQLite:
		path = strings.TrimSpace(path)
		if path == "" {
			path = checkersqlite.MemoryPath
		}
		if path != checkersqlite.MemoryPath {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create storage dir: %w", err)
				}
			}
		}
		store, err := checkersqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open checker sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreBackend, backend)
	}
}

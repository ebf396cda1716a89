// Package grpc holds gRPC helpers shared by the checker and its probes.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/flagchecker/internal/platform/timeouts"
	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	initialHealthBackoff = 100 * time.Millisecond
	maxHealthBackoff     = time.Second
)

// WaitForHealth polls the gRPC health service until service reports SERVING
// or ctx ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string) error {
	if conn == nil {
		return errors.New("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := grpc_health_v1.NewHealthClient(conn)
	backoff := initialHealthBackoff
	var lastErr error
	for {
		callCtx, cancel := context.WithTimeout(ctx, timeouts.HealthProbe)
		response, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		switch {
		case err != nil:
			lastErr = err
		case response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING:
			return nil
		default:
			lastErr = fmt.Errorf("status %s", response.GetStatus())
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for gRPC health of %q: %w (last: %v)", service, ctx.Err(), lastErr)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxHealthBackoff)
	}
}

// Package timeouts defines shared timeout constants for the checker servers.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight submissions
// during graceful shutdown. It must exceed the longest artificial delay.
const Shutdown = 5 * time.Second

// HealthProbe caps a single gRPC health check call.
const HealthProbe = time.Second

// Readiness bounds the startup self-check of the gRPC health endpoint.
const Readiness = 5 * time.Second

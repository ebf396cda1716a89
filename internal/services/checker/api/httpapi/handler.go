// Package httpapi serves the checker submission and discovery endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/flagchecker/internal/services/checker/discovery"
	"github.com/louisbranch/flagchecker/internal/services/checker/domain"
	"github.com/louisbranch/flagchecker/internal/services/checker/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TeamTokenHeader identifies the submitting team.
const TeamTokenHeader = "X-Team-Token"

// DefaultMaxBodyBytes caps submission payloads.
const DefaultMaxBodyBytes = 1 << 20

const tracerName = "github.com/louisbranch/flagchecker/internal/services/checker/api/httpapi"

// Evaluator judges a batch of flags.
type Evaluator interface {
	Evaluate(ctx context.Context, flags []string) []domain.Result
}

// Feed produces discovery listings.
type Feed interface {
	Generate() discovery.Listing
}

// Counter reports how many flags have been accepted.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Config wires the handler dependencies.
type Config struct {
	Evaluator    Evaluator
	Feed         Feed
	Accepted     Counter
	Metrics      *metrics.Metrics
	MaxBodyBytes int64
}

// Handler serves the checker HTTP API.
type Handler struct {
	evaluator    Evaluator
	feed         Feed
	accepted     Counter
	metrics      *metrics.Metrics
	maxBodyBytes int64
	tracer       trace.Tracer
}

// NewHandler validates config and builds a Handler.
func NewHandler(config Config) (*Handler, error) {
	if config.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if config.Feed == nil {
		return nil, errors.New("discovery feed is required")
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		evaluator:    config.Evaluator,
		feed:         config.Feed,
		accepted:     config.Accepted,
		metrics:      config.Metrics,
		maxBodyBytes: config.MaxBodyBytes,
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// RegisterRoutes mounts the checker endpoints on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/flags", h.handleFlags)
	mux.HandleFunc("/flagIds", h.handleFlagIDs)
	mux.HandleFunc("/healthz", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}
}

func (h *Handler) handleFlags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, span := h.tracer.Start(r.Context(), "checker.submit_flags")
	defer span.End()

	flags, ok := h.readBatch(w, r)
	if !ok {
		span.SetAttributes(attribute.Bool("checker.gated", true))
		h.metrics.ObserveRejected()
		writeJSON(w, []domain.Result{})
		return
	}

	results := h.evaluator.Evaluate(ctx, flags)
	h.metrics.ObserveResults(results)
	h.publishAccepted(ctx)

	accepted := 0
	for _, result := range results {
		if result.Status == domain.StatusAccepted {
			accepted++
		}
	}
	span.SetAttributes(
		attribute.Bool("checker.gated", false),
		attribute.Int("checker.batch_size", len(flags)),
		attribute.Int("checker.accepted", accepted),
	)
	writeJSON(w, results)
}

// readBatch applies entry gating: a team token must be present and the body
// must be a non-empty JSON list of strings.
func (h *Handler) readBatch(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	if strings.TrimSpace(r.Header.Get(TeamTokenHeader)) == "" {
		return nil, false
	}
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer body.Close()

	var flags []string
	dec := json.NewDecoder(body)
	if err := dec.Decode(&flags); err != nil {
		if !errors.Is(err, io.EOF) {
			log.Printf("decode flag batch: %v", err)
		}
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		log.Printf("decode flag batch: trailing data after list")
		return nil, false
	}
	if len(flags) == 0 {
		return nil, false
	}
	return flags, true
}

func (h *Handler) publishAccepted(ctx context.Context) {
	if h.accepted == nil || h.metrics == nil {
		return
	}
	count, err := h.accepted.Count(context.WithoutCancel(ctx))
	if err != nil {
		log.Printf("count accepted flags: %v", err)
		return
	}
	h.metrics.SetAccepted(count)
}

func (h *Handler) handleFlagIDs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_, span := h.tracer.Start(r.Context(), "checker.flag_ids")
	defer span.End()

	writeJSON(w, h.feed.Generate())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		log.Printf("encode response: %v", err)
	}
}

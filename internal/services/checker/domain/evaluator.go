package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/flagchecker/internal/platform/random"
)

// DefaultMaxDelay is the longest artificial latency added to one batch.
const DefaultMaxDelay = 2 * time.Second

// DefaultDelayUnit is the granularity of the artificial latency.
const DefaultDelayUnit = time.Second

// ErrStoreRequired indicates an evaluator was built without a flag store.
var ErrStoreRequired = errors.New("accepted flag store is required")

// FlagSet is the accepted-flag membership the evaluator consults and grows.
type FlagSet interface {
	Contains(ctx context.Context, flag string) (bool, error)
	Add(ctx context.Context, flag string) error
}

// Source draws uniform integers in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Result is the checker verdict for one submitted flag.
type Result struct {
	Message string `json:"msg"`
	Flag    string `json:"flag"`
	Status  Status `json:"status"`
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSource replaces the random source. Tests use it to script outcomes.
func WithSource(source Source) Option {
	return func(e *Evaluator) {
		if source != nil {
			e.source = source
		}
	}
}

// WithDelay sets the artificial latency range: a whole number of units in
// [0, max/unit] is drawn once per batch. A zero max disables the delay.
func WithDelay(max, unit time.Duration) Option {
	return func(e *Evaluator) {
		if max < 0 {
			max = 0
		}
		if unit <= 0 {
			unit = DefaultDelayUnit
		}
		e.maxDelay = max
		e.delayUnit = unit
	}
}

// WithSleep replaces the function used to wait out the artificial latency.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(e *Evaluator) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// Evaluator classifies submitted flags against the accepted set.
//
// Batches are serialized: the lookup, the draw and the insert for every flag
// of a batch happen under one lock, so a flag can be accepted at most once
// even when batches arrive concurrently.
type Evaluator struct {
	mu        sync.Mutex
	flags     FlagSet
	source    Source
	maxDelay  time.Duration
	delayUnit time.Duration
	sleep     func(context.Context, time.Duration)
	handlers  map[Status]func(context.Context, string) Result
}

// NewEvaluator builds an evaluator over flags.
func NewEvaluator(flags FlagSet, opts ...Option) (*Evaluator, error) {
	if flags == nil {
		return nil, ErrStoreRequired
	}
	e := &Evaluator{
		flags:     flags,
		maxDelay:  DefaultMaxDelay,
		delayUnit: DefaultDelayUnit,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		rng, err := random.NewRand()
		if err != nil {
			return nil, fmt.Errorf("seed evaluator: %w", err)
		}
		e.source = rng
	}
	e.handlers = map[Status]func(context.Context, string) Result{
		StatusAccepted: e.accept,
		StatusDenied:   e.deny,
		StatusResubmit: e.resubmit,
		StatusError:    e.fail,
	}
	return e, nil
}

// Evaluate returns one result per flag, in input order.
//
// The artificial delay runs once before any flag is classified. A flag that
// was accepted earlier, including earlier in the same batch, is always
// reported as RESUBMIT. Cancelling ctx cuts the delay short but does not
// abort classification.
func (e *Evaluator) Evaluate(ctx context.Context, flags []string) []Result {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]Result, 0, len(flags))
	if delay := e.drawDelay(); delay > 0 {
		e.sleep(ctx, delay)
	}
	ctx = context.WithoutCancel(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, flag := range flags {
		results = append(results, e.classify(ctx, flag))
	}
	return results
}

func (e *Evaluator) drawDelay() time.Duration {
	units := int(e.maxDelay / e.delayUnit)
	if units <= 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return time.Duration(e.source.Intn(units+1)) * e.delayUnit
}

func (e *Evaluator) classify(ctx context.Context, flag string) Result {
	seen, err := e.flags.Contains(ctx, flag)
	if err != nil {
		log.Printf("lookup accepted flag %q: %v", flag, err)
		return e.fail(ctx, flag)
	}
	if seen {
		return e.resubmit(ctx, flag)
	}

	handler, ok := e.handlers[Statuses[e.source.Intn(len(Statuses))]]
	if !ok {
		handler = e.fail
	}
	return handler(ctx, flag)
}

func (e *Evaluator) accept(ctx context.Context, flag string) Result {
	if err := e.flags.Add(ctx, flag); err != nil {
		log.Printf("record accepted flag %q: %v", flag, err)
		return e.fail(ctx, flag)
	}
	return newResult(flag, StatusAccepted, MessageAccepted)
}

func (e *Evaluator) deny(_ context.Context, flag string) Result {
	reason := DeniedReasons[e.source.Intn(len(DeniedReasons))]
	return newResult(flag, StatusDenied, reason)
}

func (e *Evaluator) resubmit(_ context.Context, flag string) Result {
	return newResult(flag, StatusResubmit, MessageResubmit)
}

func (e *Evaluator) fail(_ context.Context, flag string) Result {
	return newResult(flag, StatusError, MessageError)
}

func newResult(flag string, status Status, text string) Result {
	return Result{
		Message: FormatMessage(flag, text),
		Flag:    flag,
		Status:  status,
	}
}

// FormatMessage renders the checker message for flag.
func FormatMessage(flag, text string) string {
	return "[" + flag + "] " + text
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Package vrf correlates asynchronous randomness requests with their
// fulfillment callbacks and resolves each random word into a category.
package vrf

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bidon15/nftctl/internal/category"
)

// DefaultTTL is how long a request may stay pending before Sweep expires it.
const DefaultTTL = 5 * time.Minute

// DefaultSweepInterval is how often Run expires stale requests.
const DefaultSweepInterval = 10 * time.Second

// RequestID is an opaque request handle. On-chain request ids use their
// decimal representation.
type RequestID string

// IDFromBig converts an on-chain request id to a RequestID.
func IDFromBig(id *big.Int) RequestID {
	return RequestID(id.String())
}

// Request is one outstanding randomness request.
type Request struct {
	ID       RequestID
	IssuedAt time.Time

	done chan struct{}
	res  Result
}

// Done returns a channel that is closed once the request's Result is set.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Result returns the terminal value. It is only meaningful after Done is
// closed; every caller observes the same Result.
func (r *Request) Result() Result {
	<-r.done
	return r.res
}

// finish sets the terminal value. Only the caller that removed the request
// from the pending map may call it.
func (r *Request) finish(res Result) {
	r.res = res
	close(r.done)
}

// Result is the terminal value of a request.
type Result struct {
	RequestID RequestID
	Raw       *big.Int
	Category  int
	Err       error
}

// Fulfillment is a callback payload from the randomness source.
type Fulfillment struct {
	RequestID RequestID
	Raw       *big.Int
}

// Registry owns pending requests until they are fulfilled, cancelled or
// expired. Each request receives exactly one Result.
type Registry struct {
	table   *category.Table
	logger  *slog.Logger
	metrics *Metrics
	ttl     time.Duration
	sweep   time.Duration
	now     func() time.Time

	mu      sync.Mutex
	pending map[RequestID]*Request
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets the observation window after which pending requests expire.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.ttl = ttl
	}
}

// WithSweepInterval sets how often Run expires stale requests.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) {
		r.sweep = d
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics sets the registry metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry resolving random words with table.
func NewRegistry(table *category.Table, opts ...Option) *Registry {
	r := &Registry{
		table:   table,
		logger:  slog.Default(),
		ttl:     DefaultTTL,
		sweep:   DefaultSweepInterval,
		now:     time.Now,
		pending: make(map[RequestID]*Request),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue registers a request under a fresh id and returns immediately.
func (r *Registry) Issue() *Request {
	for {
		req, err := r.Register(RequestID(uuid.NewString()))
		if err == nil {
			return req
		}
	}
}

// Register records a pending request under an externally supplied id.
func (r *Registry) Register(id RequestID) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRequest, id)
	}
	req := &Request{
		ID:       id,
		IssuedAt: r.now(),
		done:     make(chan struct{}),
	}
	r.pending[id] = req
	r.metrics.pending(len(r.pending))

	r.logger.Debug("randomness request registered", slog.String("request_id", string(id)))
	return req, nil
}

// Fulfill resolves the pending request with the given raw random word. The
// category is derived from raw mod 100. Unknown or already consumed ids
// return ErrUnknownRequest and leave the registry untouched.
func (r *Registry) Fulfill(id RequestID, raw *big.Int) (Result, error) {
	req, ok := r.take(id)
	if !ok {
		r.metrics.count(r.metrics.unknownCounter())
		r.logger.Warn("fulfillment for unknown request", slog.String("request_id", string(id)))
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}

	res := Result{RequestID: id, Raw: raw}
	if raw == nil || raw.Sign() < 0 {
		res.Err = fmt.Errorf("%w: invalid random word", category.ErrRangeOutOfBounds)
	} else {
		modded := new(big.Int).Mod(raw, big.NewInt(category.MaxChance))
		res.Category, res.Err = r.table.Resolve(modded.Uint64())
	}

	req.finish(res)
	r.metrics.count(r.metrics.fulfilledCounter())
	r.logger.Info("randomness request fulfilled",
		slog.String("request_id", string(id)),
		slog.Int("category", res.Category),
	)
	return res, nil
}

// Cancel removes a pending request, delivering ErrRequestCancelled to its
// waiter. It reports whether the request was still pending.
func (r *Registry) Cancel(id RequestID) bool {
	req, ok := r.take(id)
	if !ok {
		return false
	}
	req.finish(Result{RequestID: id, Err: ErrRequestCancelled})
	r.metrics.count(r.metrics.cancelledCounter())
	return true
}

// Await blocks until the request's result is set or ctx ends. When ctx ends
// first the request is cancelled and ctx.Err() returned, unless a result was
// already set, in which case that result is returned. Await may be called any
// number of times.
func (r *Registry) Await(ctx context.Context, req *Request) (Result, error) {
	select {
	case <-req.done:
		return req.res, req.res.Err
	case <-ctx.Done():
		if r.Cancel(req.ID) {
			return Result{RequestID: req.ID, Err: ctx.Err()}, ctx.Err()
		}
		// Lost the race: whoever took the request finishes it without blocking.
		res := req.Result()
		return res, res.Err
	}
}

// Sweep expires every request issued more than the TTL before now and
// returns how many were dropped.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var expired []*Request
	for id, req := range r.pending {
		if now.Sub(req.IssuedAt) > r.ttl {
			expired = append(expired, req)
			delete(r.pending, id)
		}
	}
	r.metrics.pending(len(r.pending))
	r.mu.Unlock()

	for _, req := range expired {
		req.finish(Result{RequestID: req.ID, Err: ErrRequestExpired})
		r.metrics.count(r.metrics.expiredCounter())
		r.logger.Warn("randomness request expired",
			slog.String("request_id", string(req.ID)),
			slog.Duration("age", now.Sub(req.IssuedAt)),
		)
	}
	return len(expired)
}

// Run feeds fulfillments into the registry until ctx ends or the stream is
// closed, sweeping stale requests periodically. Unknown ids are logged and
// skipped.
func (r *Registry) Run(ctx context.Context, fulfillments <-chan Fulfillment) error {
	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(r.now())
		case f, ok := <-fulfillments:
			if !ok {
				return ErrRegistryClosed
			}
			// Unknown ids are already logged and counted by Fulfill.
			_, _ = r.Fulfill(f.RequestID, f.Raw)
		}
	}
}

// Pending returns the number of outstanding requests.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Table returns the category table used for resolution.
func (r *Registry) Table() *category.Table {
	return r.table
}

func (r *Registry) take(id RequestID) (*Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
		r.metrics.pending(len(r.pending))
	}
	return req, ok
}

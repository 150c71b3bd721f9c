package mint

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/vrf"
)

// DefaultPollInterval is how often the watcher queries fulfillment logs.
const DefaultPollInterval = 2 * time.Second

// FulfillmentSource lists RandomWordsFulfilled events, restricted to
// requestIDs when any are given.
type FulfillmentSource interface {
	FilterRandomWordsFulfilled(ctx context.Context, from uint64, to *uint64, requestIDs ...*big.Int) ([]*contracts.RandomWordsFulfilled, error)
}

// Watcher turns coordinator fulfillment logs into registry fulfillments.
type Watcher struct {
	source FulfillmentSource
	heads  contracts.HeaderReader
	poll   time.Duration
	logger *slog.Logger
	ids    []*big.Int

	mu   sync.Mutex
	next uint64
	seen map[vrf.RequestID]*contracts.RandomWordsFulfilled
}

// NewWatcher creates a watcher that scans logs starting at block from. Only
// fulfillments of requestIDs are reported; with none, every fulfillment is.
func NewWatcher(source FulfillmentSource, heads contracts.HeaderReader, from uint64, poll time.Duration, logger *slog.Logger, requestIDs ...*big.Int) *Watcher {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		source: source,
		heads:  heads,
		poll:   poll,
		logger: logger,
		ids:    requestIDs,
		next:   from,
		seen:   make(map[vrf.RequestID]*contracts.RandomWordsFulfilled),
	}
}

// Watch polls until ctx ends, sending one fulfillment per log. The channel is
// not closed.
func (w *Watcher) Watch(ctx context.Context, out chan<- vrf.Fulfillment) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if err := w.scan(ctx, out); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Event returns the fulfillment log observed for id.
func (w *Watcher) Event(id vrf.RequestID) (*contracts.RandomWordsFulfilled, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev, ok := w.seen[id]
	return ev, ok
}

func (w *Watcher) scan(ctx context.Context, out chan<- vrf.Fulfillment) error {
	head, err := w.heads.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("get head: %w", err)
	}
	to := head.Number.Uint64()

	w.mu.Lock()
	from := w.next
	w.mu.Unlock()
	if to < from {
		return nil
	}

	events, err := w.source.FilterRandomWordsFulfilled(ctx, from, &to, w.ids...)
	if err != nil {
		return err
	}

	for _, ev := range events {
		id := vrf.IDFromBig(ev.RequestId)
		w.mu.Lock()
		w.seen[id] = ev
		w.mu.Unlock()

		w.logger.Debug("fulfillment observed",
			slog.String("request_id", string(id)),
			slog.Bool("success", ev.Success),
			slog.Uint64("block", ev.Raw.BlockNumber),
		)

		f := vrf.Fulfillment{RequestID: id, Raw: vrf.RandomWords(ev.OutputSeed, 1)[0]}
		select {
		case out <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w.mu.Lock()
	w.next = to + 1
	w.mu.Unlock()
	return nil
}

// TxHash returns the hash of the transaction that fulfilled id.
func (w *Watcher) TxHash(id vrf.RequestID) (common.Hash, bool) {
	ev, ok := w.Event(id)
	if !ok {
		return common.Hash{}, false
	}
	return ev.Raw.TxHash, true
}

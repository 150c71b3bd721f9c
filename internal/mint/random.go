// Package mint drives mints against deployed collections. Random mints are
// correlated with their asynchronous VRF fulfillment through a vrf.Registry.
package mint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/vrf"
)

// DefaultTimeout bounds how long MintRandom waits for fulfillment.
const DefaultTimeout = 2 * time.Minute

// Collection is the RandomIpfsNft surface used by MintRandom.
type Collection interface {
	Address() common.Address
	MintFee(ctx context.Context) (*big.Int, error)
	RequestNft(opts *bind.TransactOpts) (*types.Transaction, error)
	FindNftRequested(receipt *types.Receipt) (*contracts.NftRequested, error)
	FindNftMinted(receipt *types.Receipt) (*contracts.NftMinted, error)
}

// Coordinator is the VRF coordinator surface used by MintRandom.
type Coordinator interface {
	FulfillmentSource
	FulfillRandomWords(opts *bind.TransactOpts, requestID *big.Int, consumer common.Address) (*types.Transaction, error)
}

// Chain waits for receipts and reads the chain head.
type Chain interface {
	bind.DeployBackend
	contracts.HeaderReader
}

// RandomConfig configures a Minter.
type RandomConfig struct {
	// Value is the payment sent with requestNft. Nil pays exactly the fee.
	Value *big.Int
	// FulfillLocally makes the minter trigger fulfillRandomWords on the
	// coordinator mock. Set it on development chains.
	FulfillLocally bool
	Timeout        time.Duration
	PollInterval   time.Duration
}

// Minter requests random mints and waits for their fulfillment.
type Minter struct {
	collection Collection
	coord      Coordinator
	chain      Chain
	opts       *bind.TransactOpts
	registry   *vrf.Registry
	cfg        RandomConfig
	logger     *slog.Logger
}

// NewMinter creates a minter. The registry's table must match the
// collection's chance array.
func NewMinter(collection Collection, coord Coordinator, chain Chain, opts *bind.TransactOpts, registry *vrf.Registry, cfg RandomConfig, logger *slog.Logger) *Minter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Minter{
		collection: collection,
		coord:      coord,
		chain:      chain,
		opts:       opts,
		registry:   registry,
		cfg:        cfg,
		logger:     logger,
	}
}

// RandomMint is the outcome of a fulfilled random mint.
type RandomMint struct {
	RequestID *big.Int
	Word      *big.Int
	Category  int
	Breed     string
	Minter    common.Address
	RequestTx common.Hash
	FulfillTx common.Hash
}

// MintRandom pays the mint fee, requests randomness and waits until the
// fulfillment resolves into a category.
func (m *Minter) MintRandom(ctx context.Context) (*RandomMint, error) {
	fee, err := m.collection.MintFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("read mint fee: %w", err)
	}
	value := m.cfg.Value
	if value == nil {
		value = fee
	}
	if value.Cmp(fee) < 0 {
		return nil, fmt.Errorf("%w: paying %s, fee is %s", contracts.ErrInsufficientPayment, value, fee)
	}

	opts := *m.opts
	opts.Context = ctx
	opts.Value = value

	tx, err := m.collection.RequestNft(&opts)
	if err != nil {
		return nil, fmt.Errorf("request nft: %w", err)
	}
	receipt, err := contracts.WaitMined(ctx, m.chain, tx)
	if err != nil {
		return nil, fmt.Errorf("request nft: %w", err)
	}
	requested, err := m.collection.FindNftRequested(receipt)
	if err != nil {
		return nil, err
	}

	id := vrf.IDFromBig(requested.RequestId)
	req, err := m.registry.Register(id)
	if err != nil {
		return nil, err
	}
	m.logger.Info("nft requested",
		slog.String("request_id", string(id)),
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.String("fee", fee.String()),
	)

	watcher := NewWatcher(m.coord, m.chain, receipt.BlockNumber.Uint64(), m.cfg.PollInterval, m.logger, requested.RequestId)
	res, err := m.await(ctx, req, requested.RequestId, watcher)
	if err != nil {
		return nil, err
	}

	out := &RandomMint{
		RequestID: requested.RequestId,
		Word:      res.Raw,
		Category:  res.Category,
		Breed:     m.registry.Table().Name(res.Category),
		RequestTx: tx.Hash(),
	}
	if err := m.crossCheck(ctx, watcher, id, out); err != nil {
		return nil, err
	}

	m.logger.Info("nft minted",
		slog.String("request_id", string(id)),
		slog.String("breed", out.Breed),
		slog.String("fulfill_tx", out.FulfillTx.Hex()),
	)
	return out, nil
}

// await runs the watcher and the registry until the request resolves or the
// timeout passes.
func (m *Minter) await(ctx context.Context, req *vrf.Request, requestID *big.Int, watcher *Watcher) (vrf.Result, error) {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	fulfillments := make(chan vrf.Fulfillment)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return watcher.Watch(gctx, fulfillments)
	})
	g.Go(func() error {
		return m.registry.Run(gctx, fulfillments)
	})

	if m.cfg.FulfillLocally {
		if err := m.fulfill(ctx, requestID); err != nil {
			m.registry.Cancel(req.ID)
			stop()
			_ = g.Wait()
			return vrf.Result{}, err
		}
	}

	awaitCtx, cancel := context.WithTimeout(gctx, m.cfg.Timeout)
	res, err := m.registry.Await(awaitCtx, req)
	cancel()
	stop()

	werr := g.Wait()
	if err != nil {
		if werr != nil && !errors.Is(werr, context.Canceled) {
			return vrf.Result{}, fmt.Errorf("watch fulfillments: %w", werr)
		}
		return vrf.Result{}, fmt.Errorf("await request %s: %w", req.ID, err)
	}
	return res, nil
}

func (m *Minter) fulfill(ctx context.Context, requestID *big.Int) error {
	opts := *m.opts
	opts.Context = ctx
	opts.Value = nil

	tx, err := m.coord.FulfillRandomWords(&opts, requestID, m.collection.Address())
	if err != nil {
		return fmt.Errorf("fulfill random words: %w", err)
	}
	if _, err := contracts.WaitMined(ctx, m.chain, tx); err != nil {
		return fmt.Errorf("fulfill random words: %w", err)
	}
	m.logger.Debug("fulfillment triggered on coordinator mock",
		slog.String("request_id", requestID.String()),
		slog.String("tx_hash", tx.Hash().Hex()),
	)
	return nil
}

// crossCheck compares the resolved category with the NftMinted event of the
// fulfillment transaction when one was emitted.
func (m *Minter) crossCheck(ctx context.Context, watcher *Watcher, id vrf.RequestID, out *RandomMint) error {
	ev, ok := watcher.Event(id)
	if !ok {
		return nil
	}
	out.FulfillTx = ev.Raw.TxHash
	if !ev.Success {
		return fmt.Errorf("%w: request %s", ErrCallbackFailed, id)
	}

	receipt, err := m.chain.TransactionReceipt(ctx, ev.Raw.TxHash)
	if err != nil {
		return fmt.Errorf("fulfillment receipt: %w", err)
	}
	minted, err := m.collection.FindNftMinted(receipt)
	if errors.Is(err, contracts.ErrEventNotFound) {
		m.logger.Warn("no NftMinted event in fulfillment", slog.String("request_id", string(id)))
		return nil
	}
	if err != nil {
		return err
	}

	out.Minter = minted.Minter
	if int(minted.Breed) != out.Category {
		return fmt.Errorf("%w: contract minted %d, resolved %d", ErrBreedMismatch, minted.Breed, out.Category)
	}
	return nil
}

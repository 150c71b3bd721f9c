package mint

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/metadata"
)

// Token is a minted token and the URI the collection serves for it.
type Token struct {
	ID     *big.Int
	URI    string
	TxHash common.Hash
}

// BasicCollection is the BasicNft surface used by MintBasic.
type BasicCollection interface {
	TokenCounter(ctx context.Context) (*big.Int, error)
	MintNft(opts *bind.TransactOpts) (*types.Transaction, error)
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
}

// MintBasic mints the next fixed-URI token.
func MintBasic(ctx context.Context, nft BasicCollection, backend bind.DeployBackend, opts *bind.TransactOpts, logger *slog.Logger) (*Token, error) {
	id, err := nft.TokenCounter(ctx)
	if err != nil {
		return nil, fmt.Errorf("read token counter: %w", err)
	}

	tx, err := nft.MintNft(opts)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	if _, err := contracts.WaitMined(ctx, backend, tx); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}

	uri, err := nft.TokenURI(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read token URI: %w", err)
	}
	if logger != nil {
		logger.Info("basic nft minted", slog.String("token_id", id.String()), slog.String("tx_hash", tx.Hash().Hex()))
	}
	return &Token{ID: id, URI: uri, TxHash: tx.Hash()}, nil
}

// DynamicCollection is the DynamicSvgNft surface used by MintDynamic.
type DynamicCollection interface {
	MintNft(opts *bind.TransactOpts, highValue *big.Int) (*types.Transaction, error)
	FindCreatedNFT(receipt *types.Receipt) (*contracts.CreatedNFT, error)
	TokenURI(ctx context.Context, tokenID *big.Int) (string, error)
	LowSVG(ctx context.Context) (string, error)
	HighSVG(ctx context.Context) (string, error)
}

// PriceFeed reads the latest feed answer.
type PriceFeed interface {
	LatestAnswer(ctx context.Context) (*big.Int, error)
}

// MintDynamic mints a price-driven token and checks that its URI shows the
// image matching the current feed answer.
func MintDynamic(ctx context.Context, nft DynamicCollection, feed PriceFeed, backend bind.DeployBackend, opts *bind.TransactOpts, highValue *big.Int, logger *slog.Logger) (*Token, error) {
	tx, err := nft.MintNft(opts, highValue)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	receipt, err := contracts.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	created, err := nft.FindCreatedNFT(receipt)
	if err != nil {
		return nil, err
	}

	uri, err := nft.TokenURI(ctx, created.TokenId)
	if err != nil {
		return nil, fmt.Errorf("read token URI: %w", err)
	}

	price, err := feed.LatestAnswer(ctx)
	if err != nil {
		return nil, fmt.Errorf("read price feed: %w", err)
	}
	high, err := nft.HighSVG(ctx)
	if err != nil {
		return nil, err
	}
	low, err := nft.LowSVG(ctx)
	if err != nil {
		return nil, err
	}
	want := metadata.DynamicTokenURI(metadata.SelectDynamicImage(price, highValue, high, low))
	if uri != want {
		return nil, fmt.Errorf("%w: token %s", ErrTokenURIMismatch, created.TokenId)
	}

	if logger != nil {
		logger.Info("dynamic nft minted",
			slog.String("token_id", created.TokenId.String()),
			slog.String("high_value", highValue.String()),
			slog.String("price", price.String()),
		)
	}
	return &Token{ID: created.TokenId, URI: uri, TxHash: tx.Hash()}, nil
}

package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CreatedNFT is emitted by DynamicSvgNft.mintNft.
type CreatedNFT struct {
	TokenId   *big.Int
	HighValue *big.Int
}

// DynamicSvgNft is a binding for the price-feed driven SVG collection.
type DynamicSvgNft struct {
	boundContract
}

// NewDynamicSvgNft binds the contract at address.
func NewDynamicSvgNft(address common.Address, backend bind.ContractBackend) *DynamicSvgNft {
	return &DynamicSvgNft{boundContract: newBound(DynamicSvgNftName, address, backend)}
}

// MintNft mints a token that shows the high image while the feed answer is
// at least highValue.
func (c *DynamicSvgNft) MintNft(opts *bind.TransactOpts, highValue *big.Int) (*types.Transaction, error) {
	return c.transact(opts, "mintNft", highValue)
}

func (c *DynamicSvgNft) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	return c.callString(ctx, "tokenURI", tokenID)
}

func (c *DynamicSvgNft) TokenCounter(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "getTokenCounter")
}

// LowSVG returns the stored low image URI.
func (c *DynamicSvgNft) LowSVG(ctx context.Context) (string, error) {
	return c.callString(ctx, "getLowSVG")
}

// HighSVG returns the stored high image URI.
func (c *DynamicSvgNft) HighSVG(ctx context.Context) (string, error) {
	return c.callString(ctx, "getHighSVG")
}

func (c *DynamicSvgNft) PriceFeed(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, "getPriceFeed")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// FindCreatedNFT returns the CreatedNFT event emitted in the receipt.
func (c *DynamicSvgNft) FindCreatedNFT(receipt *types.Receipt) (*CreatedNFT, error) {
	ev := new(CreatedNFT)
	if err := findEvent(c.abi, c.address, receipt, "CreatedNFT", ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// MockV3Aggregator is a binding for the price feed mock.
type MockV3Aggregator struct {
	boundContract
}

// NewMockV3Aggregator binds the feed at address. Any AggregatorV3 feed works
// for LatestAnswer.
func NewMockV3Aggregator(address common.Address, backend bind.ContractBackend) *MockV3Aggregator {
	return &MockV3Aggregator{boundContract: newBound(MockV3AggregatorName, address, backend)}
}

// LatestAnswer returns the answer of the latest round.
func (c *MockV3Aggregator) LatestAnswer(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "latestRoundData")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[1], new(*big.Int)).(**big.Int), nil
}

// UpdateAnswer sets a new feed answer.
func (c *MockV3Aggregator) UpdateAnswer(opts *bind.TransactOpts, answer *big.Int) (*types.Transaction, error) {
	return c.transact(opts, "updateAnswer", answer)
}

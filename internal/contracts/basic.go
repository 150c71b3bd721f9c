package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BasicNft is a binding for the fixed-URI BasicNft contract.
type BasicNft struct {
	boundContract
}

// NewBasicNft binds the contract at address.
func NewBasicNft(address common.Address, backend bind.ContractBackend) *BasicNft {
	return &BasicNft{boundContract: newBound(BasicNftName, address, backend)}
}

// MintNft mints the next token to the sender.
func (c *BasicNft) MintNft(opts *bind.TransactOpts) (*types.Transaction, error) {
	return c.transact(opts, "mintNft")
}

func (c *BasicNft) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	return c.callString(ctx, "tokenURI", tokenID)
}

// FixedTokenURI returns the TOKEN_URI constant every token shares.
func (c *BasicNft) FixedTokenURI(ctx context.Context) (string, error) {
	return c.callString(ctx, "TOKEN_URI")
}

func (c *BasicNft) TokenCounter(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "getTokenCounter")
}

func (c *BasicNft) Name(ctx context.Context) (string, error) {
	return c.callString(ctx, "name")
}

func (c *BasicNft) Symbol(ctx context.Context) (string, error) {
	return c.callString(ctx, "symbol")
}

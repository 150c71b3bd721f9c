package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BreedCount is the number of dog token URIs the contract is constructed with.
const BreedCount = 3

// NftRequested is emitted when a mint request is sent to the coordinator.
type NftRequested struct {
	RequestId *big.Int
	Requester common.Address
}

// NftMinted is emitted when a fulfilled request mints a token.
type NftMinted struct {
	Breed  uint8
	Minter common.Address
}

// RandomIpfsNft is a binding for the RandomIpfsNft contract.
type RandomIpfsNft struct {
	boundContract
}

// NewRandomIpfsNft binds the contract at address.
func NewRandomIpfsNft(address common.Address, backend bind.ContractBackend) *RandomIpfsNft {
	return &RandomIpfsNft{boundContract: newBound(RandomIpfsNftName, address, backend)}
}

// RequestNft sends a mint request. opts.Value must cover the mint fee.
func (c *RandomIpfsNft) RequestNft(opts *bind.TransactOpts) (*types.Transaction, error) {
	return c.transact(opts, "requestNft")
}

// Withdraw sends the collected mint fees to the owner.
func (c *RandomIpfsNft) Withdraw(opts *bind.TransactOpts) (*types.Transaction, error) {
	return c.transact(opts, "withdraw")
}

// MintFee returns the fee in wei required by RequestNft.
func (c *RandomIpfsNft) MintFee(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "getMintFee")
}

// TokenCounter returns the number of minted tokens.
func (c *RandomIpfsNft) TokenCounter(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "getTokenCounter")
}

// DogTokenURI returns the token URI stored for a breed index.
func (c *RandomIpfsNft) DogTokenURI(ctx context.Context, index int) (string, error) {
	return c.callString(ctx, "getDogTokenUris", big.NewInt(int64(index)))
}

// DogTokenURIs returns all breed token URIs in category order.
func (c *RandomIpfsNft) DogTokenURIs(ctx context.Context) ([]string, error) {
	uris := make([]string, BreedCount)
	for i := range uris {
		uri, err := c.DogTokenURI(ctx, i)
		if err != nil {
			return nil, err
		}
		uris[i] = uri
	}
	return uris, nil
}

// TokenURI returns the metadata URI of a minted token.
func (c *RandomIpfsNft) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	return c.callString(ctx, "tokenURI", tokenID)
}

// BreedFromModdedRng asks the contract to resolve a value in [0, 100).
func (c *RandomIpfsNft) BreedFromModdedRng(ctx context.Context, moddedRng *big.Int) (uint8, error) {
	out, err := c.call(ctx, "getBreedFromModdedRng", moddedRng)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// ChanceArray returns the contract's cumulative breakpoints.
func (c *RandomIpfsNft) ChanceArray(ctx context.Context) ([BreedCount]*big.Int, error) {
	out, err := c.call(ctx, "getChanceArray")
	if err != nil {
		return [BreedCount]*big.Int{}, err
	}
	return *abi.ConvertType(out[0], new([BreedCount]*big.Int)).(*[BreedCount]*big.Int), nil
}

// ParseNftRequested decodes an NftRequested log.
func (c *RandomIpfsNft) ParseNftRequested(log types.Log) (*NftRequested, error) {
	ev := new(NftRequested)
	if err := unpackEvent(c.abi, ev, "NftRequested", log); err != nil {
		return nil, err
	}
	return ev, nil
}

// ParseNftMinted decodes an NftMinted log.
func (c *RandomIpfsNft) ParseNftMinted(log types.Log) (*NftMinted, error) {
	ev := new(NftMinted)
	if err := unpackEvent(c.abi, ev, "NftMinted", log); err != nil {
		return nil, err
	}
	return ev, nil
}

// FindNftRequested returns the NftRequested event emitted by this contract in
// the receipt.
func (c *RandomIpfsNft) FindNftRequested(receipt *types.Receipt) (*NftRequested, error) {
	ev := new(NftRequested)
	if err := findEvent(c.abi, c.address, receipt, "NftRequested", ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// FindNftMinted returns the NftMinted event emitted by this contract in the
// receipt.
func (c *RandomIpfsNft) FindNftMinted(receipt *types.Receipt) (*NftMinted, error) {
	ev := new(NftMinted)
	if err := findEvent(c.abi, c.address, receipt, "NftMinted", ev); err != nil {
		return nil, err
	}
	return ev, nil
}

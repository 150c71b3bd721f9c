package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// SubscriptionCreated is emitted by createSubscription.
type SubscriptionCreated struct {
	SubId uint64
	Owner common.Address
}

// RandomWordsFulfilled is emitted after the coordinator calls back into the
// consumer.
type RandomWordsFulfilled struct {
	RequestId  *big.Int
	OutputSeed *big.Int
	Payment    *big.Int
	Success    bool
	Raw        types.Log
}

// Coordinator is a binding for VRFCoordinatorV2Mock.
type Coordinator struct {
	boundContract
	filterer ethereum.LogFilterer
}

// NewCoordinator binds the coordinator mock at address.
func NewCoordinator(address common.Address, backend bind.ContractBackend) *Coordinator {
	return &Coordinator{
		boundContract: newBound(VRFCoordinatorV2MockName, address, backend),
		filterer:      backend,
	}
}

// CreateSubscription sends createSubscription. The subscription id is read
// from the receipt with FindSubscriptionCreated.
func (c *Coordinator) CreateSubscription(opts *bind.TransactOpts) (*types.Transaction, error) {
	return c.transact(opts, "createSubscription")
}

// FundSubscription adds amount juels to the subscription.
func (c *Coordinator) FundSubscription(opts *bind.TransactOpts, subID uint64, amount *big.Int) (*types.Transaction, error) {
	return c.transact(opts, "fundSubscription", subID, amount)
}

// AddConsumer allows consumer to request randomness from subID.
func (c *Coordinator) AddConsumer(opts *bind.TransactOpts, subID uint64, consumer common.Address) (*types.Transaction, error) {
	return c.transact(opts, "addConsumer", subID, consumer)
}

// FulfillRandomWords makes the mock call back into consumer for requestID.
func (c *Coordinator) FulfillRandomWords(opts *bind.TransactOpts, requestID *big.Int, consumer common.Address) (*types.Transaction, error) {
	return c.transact(opts, "fulfillRandomWords", requestID, consumer)
}

// FindSubscriptionCreated returns the SubscriptionCreated event in receipt.
func (c *Coordinator) FindSubscriptionCreated(receipt *types.Receipt) (*SubscriptionCreated, error) {
	ev := new(SubscriptionCreated)
	if err := findEvent(c.abi, c.address, receipt, "SubscriptionCreated", ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ParseRandomWordsFulfilled decodes a RandomWordsFulfilled log.
func (c *Coordinator) ParseRandomWordsFulfilled(log types.Log) (*RandomWordsFulfilled, error) {
	ev := new(RandomWordsFulfilled)
	if err := unpackEvent(c.abi, ev, "RandomWordsFulfilled", log); err != nil {
		return nil, err
	}
	ev.Raw = log
	return ev, nil
}

// FilterRandomWordsFulfilled returns the fulfillments logged in [from, to].
// A nil to means the latest block. When requestIDs are given only their
// fulfillments are returned; the coordinator is shared by every consumer.
func (c *Coordinator) FilterRandomWordsFulfilled(ctx context.Context, from uint64, to *uint64, requestIDs ...*big.Int) ([]*RandomWordsFulfilled, error) {
	topics := [][]common.Hash{{c.abi.Events["RandomWordsFulfilled"].ID}}
	if len(requestIDs) > 0 {
		ids := make([]common.Hash, 0, len(requestIDs))
		for _, id := range requestIDs {
			ids = append(ids, common.BigToHash(id))
		}
		topics = append(topics, ids)
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{c.address},
		Topics:    topics,
	}
	if to != nil {
		q.ToBlock = new(big.Int).SetUint64(*to)
	}

	logs, err := c.filterer.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter RandomWordsFulfilled: %w", err)
	}

	out := make([]*RandomWordsFulfilled, 0, len(logs))
	for _, log := range logs {
		ev, err := c.ParseRandomWordsFulfilled(log)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

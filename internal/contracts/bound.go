package contracts

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the chain access needed to deploy and drive the contracts.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Deployment describes a mined contract deployment.
type Deployment struct {
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
}

// Deploy sends the creation transaction for the artifact and waits for it to
// be mined.
func Deploy(ctx context.Context, backend Backend, opts *bind.TransactOpts, a *Artifact, args ...interface{}) (*Deployment, error) {
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}
	code, err := a.Bytes()
	if err != nil {
		return nil, err
	}

	_, tx, _, err := bind.DeployContract(opts, parsed, code, backend, args...)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", a.ContractName, MapRevert(err))
	}

	receipt, err := WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", a.ContractName, err)
	}

	return &Deployment{
		Address:     receipt.ContractAddress,
		TxHash:      tx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// WaitMined waits for tx and fails with ErrTransactionReverted when the
// receipt status is not successful.
func WaitMined(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// HeaderReader reads block headers.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// WaitConfirmations blocks until the chain head is at least confirmations-1
// blocks past block.
func WaitConfirmations(ctx context.Context, chain HeaderReader, block, confirmations uint64, poll time.Duration) error {
	if confirmations <= 1 {
		return nil
	}
	target := block + confirmations - 1

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		head, err := chain.HeaderByNumber(ctx, nil)
		if err != nil {
			return fmt.Errorf("get head: %w", err)
		}
		if head.Number.Uint64() >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// boundContract pairs a parsed ABI with a go-ethereum bound contract.
type boundContract struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

func newBound(name string, address common.Address, backend bind.ContractBackend) boundContract {
	parsed := mustParseABI(name)
	return boundContract{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// Address returns the contract address.
func (b *boundContract) Address() common.Address {
	return b.address
}

func (b *boundContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, MapRevert(err))
	}
	return out, nil
}

func (b *boundContract) transact(opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	tx, err := b.contract.Transact(opts, method, args...)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, MapRevert(err))
	}
	return tx, nil
}

func (b *boundContract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := b.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (b *boundContract) callString(ctx context.Context, method string, args ...interface{}) (string, error) {
	out, err := b.call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// unpackEvent decodes an event log of this contract into out.
func unpackEvent(parsed abi.ABI, out interface{}, event string, log types.Log) error {
	ev, ok := parsed.Events[event]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContract, event)
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return fmt.Errorf("log is not a %s event", event)
	}
	if len(log.Data) > 0 {
		if err := parsed.UnpackIntoInterface(out, event, log.Data); err != nil {
			return fmt.Errorf("unpack %s: %w", event, err)
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("parse %s topics: %w", event, err)
	}
	return nil
}

// findEvent decodes the first log in the receipt emitted by address that
// matches event.
func findEvent(parsed abi.ABI, address common.Address, receipt *types.Receipt, event string, out interface{}) error {
	id := parsed.Events[event].ID
	for _, log := range receipt.Logs {
		if log.Address != address || len(log.Topics) == 0 || log.Topics[0] != id {
			continue
		}
		return unpackEvent(parsed, out, event, *log)
	}
	return fmt.Errorf("%w: %s", ErrEventNotFound, event)
}

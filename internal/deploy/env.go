// Package deploy runs the tag-selected contract deployment routines.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/etherscan"
	"github.com/Bidon15/nftctl/internal/metadata"
	"github.com/Bidon15/nftctl/internal/network"
)

// Sentinel errors
var (
	ErrTokenURICount = errors.New("deploy: wrong number of token URIs")
	ErrNoPinner      = errors.New("deploy: UPLOAD_TO_PINATA is set but no Pinata client is configured")
)

// ArtifactLoader loads compiled contracts.
type ArtifactLoader interface {
	Load(name string) (*contracts.Artifact, error)
	BuildInfo(sourceName string) (*contracts.BuildInfo, error)
}

// Verifier publishes contract sources to a block explorer.
type Verifier interface {
	Verify(ctx context.Context, req etherscan.Request) error
}

// Env is everything a deployment routine needs.
type Env struct {
	Network   network.Network
	Backend   contracts.Backend
	Opts      *bind.TransactOpts
	Artifacts ArtifactLoader
	Store     *Store
	Logger    *slog.Logger

	// UploadToPinata uploads images and metadata instead of using the
	// fixed token URIs. Pinner must be set when it is true.
	UploadToPinata bool
	Pinner         metadata.Pinner

	// RandomImagesDir holds the dog images, DynamicImagesDir the
	// frown.svg and happy.svg images.
	RandomImagesDir  string
	DynamicImagesDir string

	// Verifier is nil when no explorer API key is configured.
	Verifier Verifier

	// PollInterval is how often confirmations are polled.
	PollInterval time.Duration
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// deployContract deploys the named artifact, waits for the network's
// confirmations and saves the deployment record.
func (e *Env) deployContract(ctx context.Context, name string, args ...interface{}) (*Record, *contracts.Artifact, error) {
	artifact, err := e.Artifacts.Load(name)
	if err != nil {
		return nil, nil, err
	}
	if artifact.ContractName == "" {
		artifact.ContractName = name
	}

	e.logger().Info("deploying contract",
		slog.String("contract", name),
		slog.String("network", e.Network.Name),
		slog.String("from", e.Opts.From.Hex()),
	)

	dep, err := contracts.Deploy(ctx, e.Backend, e.Opts, artifact, args...)
	if err != nil {
		return nil, nil, err
	}

	poll := e.PollInterval
	if poll == 0 {
		poll = 2 * time.Second
	}
	if err := contracts.WaitConfirmations(ctx, e.Backend, dep.BlockNumber, e.Network.Confirmations(), poll); err != nil {
		return nil, nil, fmt.Errorf("wait for %s confirmations: %w", name, err)
	}

	rec := &Record{
		Contract:    name,
		Address:     dep.Address,
		TxHash:      dep.TxHash,
		BlockNumber: dep.BlockNumber,
		Args:        formatArgs(args),
		DeployedAt:  time.Now().UTC(),
	}
	if err := e.Store.Save(rec); err != nil {
		return nil, nil, err
	}

	e.logger().Info("contract deployed",
		slog.String("contract", name),
		slog.String("address", dep.Address.Hex()),
		slog.String("tx_hash", dep.TxHash.Hex()),
		slog.Uint64("block", dep.BlockNumber),
	)
	return rec, artifact, nil
}

// send waits for a routine's transaction and logs it.
func (e *Env) send(ctx context.Context, what string, tx *types.Transaction, err error) (*types.Receipt, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	receipt, err := contracts.WaitMined(ctx, e.Backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	e.logger().Info("transaction mined",
		slog.String("action", what),
		slog.String("tx_hash", tx.Hash().Hex()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}

// verify publishes the source of a live deployment when a verifier is
// configured.
func (e *Env) verify(ctx context.Context, rec *Record, artifact *contracts.Artifact, args ...interface{}) error {
	if e.Verifier == nil || e.Network.IsDevelopment() {
		return nil
	}

	parsed, err := artifact.ParsedABI()
	if err != nil {
		return err
	}
	encoded, err := parsed.Pack("", args...)
	if err != nil {
		return fmt.Errorf("encode %s constructor args: %w", rec.Contract, err)
	}
	info, err := e.Artifacts.BuildInfo(artifact.SourceName)
	if err != nil {
		return err
	}

	return e.Verifier.Verify(ctx, etherscan.Request{
		Address:         rec.Address,
		ContractName:    artifact.QualifiedName(),
		CompilerVersion: info.CompilerVersion(),
		SourceCode:      string(info.Input),
		ConstructorArgs: encoded,
	})
}

func formatArgs(args []interface{}) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case [32]byte:
			out[i] = fmt.Sprintf("0x%x", v)
		case *big.Int:
			out[i] = v.String()
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/metadata"
	"github.com/Bidon15/nftctl/internal/network"
)

// Deployment tags.
const (
	TagAll        = "all"
	TagMain       = "main"
	TagMocks      = "mocks"
	TagBasicNft   = "basicnft"
	TagRandomIpfs = "randomipfs"
	TagDynamicSvg = "dynamicsvg"
)

var (
	// BaseFee is the coordinator mock's premium per request: 0.25 LINK.
	BaseFee = new(big.Int).Div(big.NewInt(params.Ether), big.NewInt(4))
	// GasPriceLink is the coordinator mock's LINK per gas.
	GasPriceLink = big.NewInt(1e9)
	// FundAmount funds the development subscription: 1000 LINK.
	FundAmount = new(big.Int).Mul(big.NewInt(1000), big.NewInt(params.Ether))

	// PriceFeedDecimals and PriceFeedInitialAnswer configure the price feed
	// mock: 2000 USD per ETH with 18 decimals.
	PriceFeedDecimals      uint8 = 18
	PriceFeedInitialAnswer       = new(big.Int).Mul(big.NewInt(2000), big.NewInt(params.Ether))
)

// FixedTokenURIs are the pinned metadata documents used when uploads are
// disabled, in breed order.
var FixedTokenURIs = [contracts.BreedCount]string{
	"ipfs://Qmcpug9R4NKntYWkgYBtF5CzVx1frGVPz8FdAVTHNbWTTh",
	"ipfs://QmPPnWLe9T3pE74M2z6hLtBT3S5omfHpatiM2V3i64nZMJ",
	"ipfs://QmR3HKUomhWdowqBHeqy4nYFsJFmKmP6WfhepYSZWBNmgg",
}

// Routine is one deployment script.
type Routine struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, env *Env) error
}

// Routines returns every routine in execution order.
func Routines() []Routine {
	return []Routine{
		{Name: TagMocks, Tags: []string{TagAll, TagMocks}, Run: DeployMocks},
		{Name: TagBasicNft, Tags: []string{TagAll, TagBasicNft, TagMain}, Run: DeployBasicNft},
		{Name: TagRandomIpfs, Tags: []string{TagAll, TagRandomIpfs, TagMain}, Run: DeployRandomIpfsNft},
		{Name: TagDynamicSvg, Tags: []string{TagAll, TagDynamicSvg, TagMain}, Run: DeployDynamicSvgNft},
	}
}

// DeployMocks deploys the coordinator and price feed mocks on development
// chains and does nothing elsewhere.
func DeployMocks(ctx context.Context, env *Env) error {
	if !env.Network.IsDevelopment() {
		env.logger().Info("live network, skipping mocks", slog.String("network", env.Network.Name))
		return nil
	}

	if _, _, err := env.deployContract(ctx, contracts.VRFCoordinatorV2MockName, BaseFee, GasPriceLink); err != nil {
		return err
	}
	if _, _, err := env.deployContract(ctx, contracts.MockV3AggregatorName, PriceFeedDecimals, PriceFeedInitialAnswer); err != nil {
		return err
	}
	return nil
}

// DeployBasicNft deploys the fixed-URI collection.
func DeployBasicNft(ctx context.Context, env *Env) error {
	rec, artifact, err := env.deployContract(ctx, contracts.BasicNftName)
	if err != nil {
		return err
	}
	return env.verify(ctx, rec, artifact)
}

// DeployRandomIpfsNft deploys the VRF-backed collection. On development
// chains it also creates and funds a subscription on the coordinator mock
// and registers the collection as its consumer.
func DeployRandomIpfsNft(ctx context.Context, env *Env) error {
	tokenURIs, err := tokenURIs(ctx, env)
	if err != nil {
		return err
	}

	var (
		coordAddr common.Address
		subID     uint64
		coord     *contracts.Coordinator
	)
	if env.Network.IsDevelopment() {
		coordAddr, err = env.Store.Address(contracts.VRFCoordinatorV2MockName)
		if err != nil {
			return err
		}
		coord = contracts.NewCoordinator(coordAddr, env.Backend)

		tx, err := coord.CreateSubscription(env.Opts)
		receipt, err := env.send(ctx, "create subscription", tx, err)
		if err != nil {
			return err
		}
		created, err := coord.FindSubscriptionCreated(receipt)
		if err != nil {
			return err
		}
		subID = created.SubId

		tx, err = coord.FundSubscription(env.Opts, subID, FundAmount)
		if _, err := env.send(ctx, "fund subscription", tx, err); err != nil {
			return err
		}
	} else {
		coordAddr, err = env.Network.Coordinator()
		if err != nil {
			return err
		}
		subID = env.Network.SubscriptionID
		if subID == 0 {
			return fmt.Errorf("%w on %s", network.ErrMissingSubscription, env.Network.Name)
		}
	}

	gasLane, err := env.Network.GasLaneHash()
	if err != nil {
		return err
	}
	mintFee, err := env.Network.MintFeeWei()
	if err != nil {
		return err
	}

	args := []interface{}{
		coordAddr,
		subID,
		[32]byte(gasLane),
		mintFee,
		env.Network.CallbackGasLimit,
		tokenURIs,
	}
	rec, artifact, err := env.deployContract(ctx, contracts.RandomIpfsNftName, args...)
	if err != nil {
		return err
	}

	if coord != nil {
		tx, err := coord.AddConsumer(env.Opts, subID, rec.Address)
		if _, err := env.send(ctx, "add consumer", tx, err); err != nil {
			return err
		}
	}

	return env.verify(ctx, rec, artifact, args...)
}

// tokenURIs returns the fixed URIs, or uploads images and metadata when
// UploadToPinata is set.
func tokenURIs(ctx context.Context, env *Env) ([contracts.BreedCount]string, error) {
	if !env.UploadToPinata {
		return FixedTokenURIs, nil
	}
	if env.Pinner == nil {
		return [contracts.BreedCount]string{}, ErrNoPinner
	}

	uris, err := metadata.BuildTokenURIs(ctx, env.Pinner, env.RandomImagesDir, env.logger())
	if err != nil {
		return [contracts.BreedCount]string{}, err
	}
	if len(uris) != contracts.BreedCount {
		return [contracts.BreedCount]string{}, fmt.Errorf("%w: got %d, want %d", ErrTokenURICount, len(uris), contracts.BreedCount)
	}
	var out [contracts.BreedCount]string
	copy(out[:], uris)
	return out, nil
}

// DeployDynamicSvgNft deploys the price-feed driven collection with the
// frown and happy images.
func DeployDynamicSvgNft(ctx context.Context, env *Env) error {
	var (
		feed common.Address
		err  error
	)
	if env.Network.IsDevelopment() {
		feed, err = env.Store.Address(contracts.MockV3AggregatorName)
	} else {
		feed, err = env.Network.PriceFeed()
	}
	if err != nil {
		return err
	}

	low, err := os.ReadFile(filepath.Join(env.DynamicImagesDir, "frown.svg"))
	if err != nil {
		return fmt.Errorf("read low image: %w", err)
	}
	high, err := os.ReadFile(filepath.Join(env.DynamicImagesDir, "happy.svg"))
	if err != nil {
		return fmt.Errorf("read high image: %w", err)
	}

	args := []interface{}{feed, string(low), string(high)}
	rec, artifact, err := env.deployContract(ctx, contracts.DynamicSvgNftName, args...)
	if err != nil {
		return err
	}
	return env.verify(ctx, rec, artifact, args...)
}

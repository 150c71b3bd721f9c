package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/Bidon15/nftctl/internal/deploy"
	"github.com/Bidon15/nftctl/internal/etherscan"
	"github.com/Bidon15/nftctl/internal/network"
	"github.com/Bidon15/nftctl/internal/pinata"
	"github.com/Bidon15/nftctl/internal/vrf"
)

// hardhatDeployerKey is the first well-known hardhat node account, used on
// development chains when PRIVATE_KEY is unset.
const hardhatDeployerKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	promRegistry = prometheus.NewRegistry()

	metricsOnce sync.Once
	vrfMetrics  *vrf.Metrics
	pinMetrics  *pinata.Metrics
)

func initMetrics() {
	metricsOnce.Do(func() {
		promRegistry.MustRegister(collectors.NewGoCollector())
		vrfMetrics = vrf.NewMetrics(promRegistry)
		pinMetrics = pinata.NewMetrics(promRegistry)
	})
}

// startMetricsServer serves /metrics until ctx ends when --metrics-addr is
// set.
func startMetricsServer(ctx context.Context) error {
	initMetrics()
	if metricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	l, err := net.Listen("tcp", metricsAddr)
	if err != nil {
		return fmt.Errorf("listen on metrics address: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = srv.Serve(l)
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return nil
}

// loadNetworks returns the built-in networks with the optional override
// file applied.
func loadNetworks() (*network.Config, error) {
	path := flagOr(networksFile, "networks_file")
	if path == "" {
		return network.Defaults(), nil
	}
	return network.LoadFile(path)
}

// chain is a connected RPC client with its resolved network.
type chain struct {
	client  *ethclient.Client
	network network.Network
}

// connect dials the RPC endpoint and resolves the network, by --network when
// given and by chain id otherwise.
func connect(ctx context.Context) (*chain, error) {
	networks, err := loadNetworks()
	if err != nil {
		return nil, err
	}

	url := flagOr(rpcURL, "rpc_url")
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id from %s: %w", url, err)
	}

	var resolved network.Network
	if name := flagOr(networkName, "network"); name != "" {
		resolved, err = networks.ByName(name)
		if err == nil && resolved.ChainID != chainID.Uint64() {
			err = fmt.Errorf("network %s has chain id %d but %s reports %s", name, resolved.ChainID, url, chainID)
		}
	} else {
		resolved, err = networks.ByChainID(chainID.Uint64())
	}
	if err != nil {
		client.Close()
		return nil, err
	}
	return &chain{client: client, network: resolved}, nil
}

// transactor builds signing options from PRIVATE_KEY, falling back to the
// hardhat deployer account on development chains.
func transactor(ctx context.Context, n network.Network) (*bind.TransactOpts, error) {
	hexKey := strings.TrimPrefix(viper.GetString("private_key"), "0x")
	if hexKey == "" {
		if !n.IsDevelopment() {
			return nil, errors.New("private key required. Set via PRIVATE_KEY or ~/.nftctl.yaml")
		}
		hexKey = hardhatDeployerKey
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(n.ChainID))
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// newPinata creates a Pinata client from PINATA_API_KEY and
// PINATA_API_SECRET. The returned close func releases the pin cache.
func newPinata(logger *slog.Logger) (*pinata.Client, func(), error) {
	initMetrics()
	opts := []pinata.Option{
		pinata.WithLogger(logger),
		pinata.WithMetrics(pinMetrics),
	}
	if url := viper.GetString("pinata_url"); url != "" {
		opts = append(opts, pinata.WithBaseURL(url))
	}

	closeFn := func() {}
	if dir := viper.GetString("pin_cache_dir"); dir != "" {
		cache, err := pinata.OpenBadgerCache(dir)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pinata.WithCache(cache))
		closeFn = func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close pin cache", slog.String("error", err.Error()))
			}
		}
	}

	client, err := pinata.NewClient(viper.GetString("pinata_api_key"), viper.GetString("pinata_api_secret"), opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return client, closeFn, nil
}

// newVerifier returns an Etherscan verifier, or nil when ETHERSCAN_API_KEY is
// unset.
func newVerifier(chainID uint64, logger *slog.Logger) (deploy.Verifier, error) {
	key := viper.GetString("etherscan_api_key")
	if key == "" {
		return nil, nil
	}
	client, err := etherscan.NewClient(key, chainID, etherscan.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newRegistry creates the VRF request registry for the mint workflow.
func newRegistry(logger *slog.Logger) *vrf.Registry {
	initMetrics()
	return vrf.NewRegistry(breedTable(), vrf.WithLogger(logger), vrf.WithMetrics(vrfMetrics))
}

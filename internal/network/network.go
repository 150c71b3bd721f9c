// Package network holds per-chain deployment parameters.
package network

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Well-known chain ids.
const (
	HardhatChainID uint64 = 31337
	SepoliaChainID uint64 = 11155111
)

// DefaultConfirmations is used when a network does not set BlockConfirmations.
const DefaultConfirmations = 1

// Sentinel errors
var (
	ErrUnknownNetwork      = errors.New("network: unknown network")
	ErrMissingCoordinator  = errors.New("network: vrfCoordinatorV2 not configured")
	ErrMissingSubscription = errors.New("network: subscriptionId not configured")
	ErrMissingPriceFeed    = errors.New("network: ethUsdPriceFeed not configured")
	ErrInvalidValue        = errors.New("network: invalid value")
)

// developmentChains never have a live VRF coordinator or price feed.
var developmentChains = []string{"hardhat", "localhost"}

// IsDevelopment reports whether name is a local development chain.
func IsDevelopment(name string) bool {
	for _, dev := range developmentChains {
		if strings.EqualFold(name, dev) {
			return true
		}
	}
	return false
}

// Network describes the contract parameters for one chain.
type Network struct {
	Name               string `yaml:"name" json:"name"`
	ChainID            uint64 `yaml:"chainId" json:"chainId"`
	VRFCoordinatorV2   string `yaml:"vrfCoordinatorV2,omitempty" json:"vrfCoordinatorV2,omitempty"`
	SubscriptionID     uint64 `yaml:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	GasLane            string `yaml:"gasLane" json:"gasLane"`
	MintFee            string `yaml:"mintFee" json:"mintFee"`
	CallbackGasLimit   uint32 `yaml:"callbackGasLimit" json:"callbackGasLimit"`
	EthUsdPriceFeed    string `yaml:"ethUsdPriceFeed,omitempty" json:"ethUsdPriceFeed,omitempty"`
	BlockConfirmations uint64 `yaml:"blockConfirmations,omitempty" json:"blockConfirmations,omitempty"`
}

// IsDevelopment reports whether the network is a local development chain.
func (n Network) IsDevelopment() bool {
	return IsDevelopment(n.Name)
}

// MintFeeWei parses MintFee as a decimal wei amount.
func (n Network) MintFeeWei() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(n.MintFee, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("%w: mintFee %q", ErrInvalidValue, n.MintFee)
	}
	return fee, nil
}

// GasLaneHash returns the key hash of the gas lane.
func (n Network) GasLaneHash() (common.Hash, error) {
	raw := strings.TrimPrefix(n.GasLane, "0x")
	if len(raw) != 2*common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: gasLane %q", ErrInvalidValue, n.GasLane)
	}
	return common.HexToHash(n.GasLane), nil
}

// Coordinator returns the live VRF coordinator address.
func (n Network) Coordinator() (common.Address, error) {
	if !common.IsHexAddress(n.VRFCoordinatorV2) {
		return common.Address{}, fmt.Errorf("%w on %s", ErrMissingCoordinator, n.Name)
	}
	return common.HexToAddress(n.VRFCoordinatorV2), nil
}

// PriceFeed returns the live ETH/USD feed address.
func (n Network) PriceFeed() (common.Address, error) {
	if !common.IsHexAddress(n.EthUsdPriceFeed) {
		return common.Address{}, fmt.Errorf("%w on %s", ErrMissingPriceFeed, n.Name)
	}
	return common.HexToAddress(n.EthUsdPriceFeed), nil
}

// Confirmations returns how many blocks to wait after a deployment.
func (n Network) Confirmations() uint64 {
	if n.BlockConfirmations == 0 {
		return DefaultConfirmations
	}
	return n.BlockConfirmations
}

const (
	gasLane500Gwei          = "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
	defaultMintFee          = "10000000000000000" // 0.01 ETH
	defaultCallbackGasLimit = 500000
)

// Defaults returns the built-in network table.
func Defaults() *Config {
	return &Config{networks: map[uint64]Network{
		HardhatChainID: {
			Name:             "hardhat",
			ChainID:          HardhatChainID,
			GasLane:          gasLane500Gwei,
			MintFee:          defaultMintFee,
			CallbackGasLimit: defaultCallbackGasLimit,
		},
		SepoliaChainID: {
			Name:               "sepolia",
			ChainID:            SepoliaChainID,
			VRFCoordinatorV2:   "0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625",
			GasLane:            gasLane500Gwei,
			MintFee:            defaultMintFee,
			CallbackGasLimit:   defaultCallbackGasLimit,
			EthUsdPriceFeed:    "0x694AA1769357215DE4FAC081bf1f309aDC325306",
			BlockConfirmations: 6,
		},
	}}
}

// Config is a set of networks keyed by chain id.
type Config struct {
	networks map[uint64]Network
}

// file is the on-disk override format.
type file struct {
	Networks []Network `yaml:"networks"`
}

// LoadFile reads a YAML override file on top of the built-in table. Fields
// left empty in the file keep their built-in values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML overrides on top of the built-in table.
func Parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid network YAML: %w", err)
	}

	cfg := Defaults()
	for _, n := range f.Networks {
		if n.ChainID == 0 {
			return nil, fmt.Errorf("%w: network %q has no chainId", ErrInvalidValue, n.Name)
		}
		cfg.networks[n.ChainID] = merge(cfg.networks[n.ChainID], n)
	}
	return cfg, nil
}

func merge(base, over Network) Network {
	base.ChainID = over.ChainID
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.VRFCoordinatorV2 != "" {
		base.VRFCoordinatorV2 = over.VRFCoordinatorV2
	}
	if over.SubscriptionID != 0 {
		base.SubscriptionID = over.SubscriptionID
	}
	if over.GasLane != "" {
		base.GasLane = over.GasLane
	}
	if over.MintFee != "" {
		base.MintFee = over.MintFee
	}
	if over.CallbackGasLimit != 0 {
		base.CallbackGasLimit = over.CallbackGasLimit
	}
	if over.EthUsdPriceFeed != "" {
		base.EthUsdPriceFeed = over.EthUsdPriceFeed
	}
	if over.BlockConfirmations != 0 {
		base.BlockConfirmations = over.BlockConfirmations
	}
	return base
}

// ByChainID returns the network for a chain id.
func (c *Config) ByChainID(id uint64) (Network, error) {
	n, ok := c.networks[id]
	if !ok {
		return Network{}, fmt.Errorf("%w: chain id %d", ErrUnknownNetwork, id)
	}
	return n, nil
}

// ByName returns the network with the given name. "localhost" resolves to
// the hardhat parameters.
func (c *Config) ByName(name string) (Network, error) {
	for _, n := range c.networks {
		if strings.EqualFold(n.Name, name) {
			return n, nil
		}
	}
	if strings.EqualFold(name, "localhost") {
		if n, ok := c.networks[HardhatChainID]; ok {
			n.Name = "localhost"
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
}

// Set adds or replaces a network.
func (c *Config) Set(n Network) {
	c.networks[n.ChainID] = n
}

// All returns every network ordered by chain id.
func (c *Config) All() []Network {
	out := make([]Network, 0, len(c.networks))
	for _, n := range c.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

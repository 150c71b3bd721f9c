package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract names, matching the artifact file names.
const (
	RandomIpfsNftName        = "RandomIpfsNft"
	BasicNftName             = "BasicNft"
	DynamicSvgNftName        = "DynamicSvgNft"
	VRFCoordinatorV2MockName = "VRFCoordinatorV2Mock"
	MockV3AggregatorName     = "MockV3Aggregator"
)

// RandomIpfsNftABI is the subset of the RandomIpfsNft interface used off-chain.
const RandomIpfsNftABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"vrfCoordinatorV2","type":"address"},
		{"name":"subscriptionId","type":"uint64"},
		{"name":"gasLane","type":"bytes32"},
		{"name":"mintFee","type":"uint256"},
		{"name":"callbackGasLimit","type":"uint32"},
		{"name":"dogTokenUris","type":"string[3]"}]},
	{"type":"function","name":"requestNft","stateMutability":"payable","inputs":[],
		"outputs":[{"name":"requestId","type":"uint256"}]},
	{"type":"function","name":"getMintFee","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTokenCounter","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getDogTokenUris","stateMutability":"view",
		"inputs":[{"name":"index","type":"uint256"}],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getBreedFromModdedRng","stateMutability":"pure",
		"inputs":[{"name":"moddedRng","type":"uint256"}],
		"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"getChanceArray","stateMutability":"pure","inputs":[],
		"outputs":[{"name":"","type":"uint256[3]"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
		"inputs":[{"name":"tokenId","type":"uint256"}],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"event","name":"NftRequested","anonymous":false,"inputs":[
		{"name":"requestId","type":"uint256","indexed":true},
		{"name":"requester","type":"address","indexed":false}]},
	{"type":"event","name":"NftMinted","anonymous":false,"inputs":[
		{"name":"breed","type":"uint8","indexed":false},
		{"name":"minter","type":"address","indexed":false}]},
	{"type":"error","name":"RandomIpfsNft__RangeOutOfBounds","inputs":[]},
	{"type":"error","name":"RandomIpfsNft__NeedMoreETHSent","inputs":[]},
	{"type":"error","name":"RandomIpfsNft__TransferFailed","inputs":[]}
]`

// VRFCoordinatorV2MockABI is the subset of the coordinator mock used off-chain.
const VRFCoordinatorV2MockABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"_baseFee","type":"uint96"},
		{"name":"_gasPriceLink","type":"uint96"}]},
	{"type":"function","name":"createSubscription","stateMutability":"nonpayable","inputs":[],
		"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"fundSubscription","stateMutability":"nonpayable","inputs":[
		{"name":"_subId","type":"uint64"},
		{"name":"_amount","type":"uint96"}],"outputs":[]},
	{"type":"function","name":"addConsumer","stateMutability":"nonpayable","inputs":[
		{"name":"_subId","type":"uint64"},
		{"name":"_consumer","type":"address"}],"outputs":[]},
	{"type":"function","name":"fulfillRandomWords","stateMutability":"nonpayable","inputs":[
		{"name":"_requestId","type":"uint256"},
		{"name":"_consumer","type":"address"}],"outputs":[]},
	{"type":"event","name":"SubscriptionCreated","anonymous":false,"inputs":[
		{"name":"subId","type":"uint64","indexed":true},
		{"name":"owner","type":"address","indexed":false}]},
	{"type":"event","name":"SubscriptionFunded","anonymous":false,"inputs":[
		{"name":"subId","type":"uint64","indexed":true},
		{"name":"oldBalance","type":"uint256","indexed":false},
		{"name":"newBalance","type":"uint256","indexed":false}]},
	{"type":"event","name":"RandomWordsFulfilled","anonymous":false,"inputs":[
		{"name":"requestId","type":"uint256","indexed":true},
		{"name":"outputSeed","type":"uint256","indexed":false},
		{"name":"payment","type":"uint96","indexed":false},
		{"name":"success","type":"bool","indexed":false}]}
]`

// BasicNftABI is the BasicNft interface.
const BasicNftABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[]},
	{"type":"function","name":"mintNft","stateMutability":"nonpayable","inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
		"inputs":[{"name":"tokenId","type":"uint256"}],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"TOKEN_URI","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getTokenCounter","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"string"}]}
]`

// DynamicSvgNftABI is the DynamicSvgNft interface.
const DynamicSvgNftABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"priceFeedAddress","type":"address"},
		{"name":"lowSvg","type":"string"},
		{"name":"highSvg","type":"string"}]},
	{"type":"function","name":"mintNft","stateMutability":"nonpayable",
		"inputs":[{"name":"highValue","type":"int256"}],"outputs":[]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
		"inputs":[{"name":"tokenId","type":"uint256"}],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"svgToImageURI","stateMutability":"pure",
		"inputs":[{"name":"svg","type":"string"}],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getLowSVG","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getHighSVG","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getPriceFeed","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getTokenCounter","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"CreatedNFT","anonymous":false,"inputs":[
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"highValue","type":"int256","indexed":false}]}
]`

// MockV3AggregatorABI is the price feed mock interface.
const MockV3AggregatorABI = `[
	{"type":"constructor","stateMutability":"nonpayable","inputs":[
		{"name":"_decimals","type":"uint8"},
		{"name":"_initialAnswer","type":"int256"}]},
	{"type":"function","name":"latestRoundData","stateMutability":"view","inputs":[],
		"outputs":[
			{"name":"roundId","type":"uint80"},
			{"name":"answer","type":"int256"},
			{"name":"startedAt","type":"uint256"},
			{"name":"updatedAt","type":"uint256"},
			{"name":"answeredInRound","type":"uint80"}]},
	{"type":"function","name":"updateAnswer","stateMutability":"nonpayable",
		"inputs":[{"name":"_answer","type":"int256"}],"outputs":[]}
]`

var knownABIs = map[string]string{
	RandomIpfsNftName:        RandomIpfsNftABI,
	BasicNftName:             BasicNftABI,
	DynamicSvgNftName:        DynamicSvgNftABI,
	VRFCoordinatorV2MockName: VRFCoordinatorV2MockABI,
	MockV3AggregatorName:     MockV3AggregatorABI,
}

// ParseABI returns the parsed embedded ABI for a known contract name.
func ParseABI(name string) (abi.ABI, error) {
	raw, ok := knownABIs[name]
	if !ok {
		return abi.ABI{}, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse %s ABI: %w", name, err)
	}
	return parsed, nil
}

func mustParseABI(name string) abi.ABI {
	parsed, err := ParseABI(name)
	if err != nil {
		panic(err)
	}
	return parsed
}

package deploy

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/nftctl/internal/contracts"
	"github.com/Bidon15/nftctl/internal/etherscan"
	"github.com/Bidon15/nftctl/internal/network"
	"github.com/Bidon15/nftctl/internal/pinata"
)

const testChainID = 31337

// fakeChain mines every transaction immediately with a successful receipt.
type fakeChain struct {
	bind.ContractBackend

	mu       sync.Mutex
	signer   types.Signer
	sent     []*types.Transaction
	receipts map[common.Hash]*types.Receipt
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		signer:   types.LatestSignerForChainID(big.NewInt(testChainID)),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

var coordinatorABI = func() map[string][]byte {
	parsed, err := contracts.ParseABI(contracts.VRFCoordinatorV2MockName)
	if err != nil {
		panic(err)
	}
	out := make(map[string][]byte)
	for name, m := range parsed.Methods {
		out[name] = m.ID
	}
	out["SubscriptionCreated"] = parsed.Events["SubscriptionCreated"].ID.Bytes()
	return out
}()

func (c *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.sent)), nil
}

func (c *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return err
	}
	c.sent = append(c.sent, tx)

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(len(c.sent))),
		GasUsed:     21000,
	}
	if tx.To() == nil {
		receipt.ContractAddress = crypto.CreateAddress(from, tx.Nonce())
	} else if bytes.HasPrefix(tx.Data(), coordinatorABI["createSubscription"]) {
		data := common.LeftPadBytes(from.Bytes(), 32)
		receipt.Logs = []*types.Log{{
			Address: *tx.To(),
			Topics:  []common.Hash{common.BytesToHash(coordinatorABI["SubscriptionCreated"]), common.BigToHash(big.NewInt(1))},
			Data:    data,
		}}
	}
	c.receipts[tx.Hash()] = receipt
	return nil
}

func (c *fakeChain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipts[hash], nil
}

func (c *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (c *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1_000)}, nil
}

func (c *fakeChain) methods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, tx := range c.sent {
		if tx.To() == nil {
			out = append(out, "deploy")
			continue
		}
		for name, id := range coordinatorABI {
			if bytes.HasPrefix(tx.Data(), id) && len(id) == 4 {
				out = append(out, name)
			}
		}
	}
	return out
}

type fakeArtifacts struct{}

func (fakeArtifacts) Load(name string) (*contracts.Artifact, error) {
	return &contracts.Artifact{
		ContractName: name,
		SourceName:   "contracts/" + name + ".sol",
		Bytecode:     contracts.Bytecode{Object: "0x6080"},
	}, nil
}

func (fakeArtifacts) BuildInfo(string) (*contracts.BuildInfo, error) {
	return &contracts.BuildInfo{SolcLongVersion: "0.8.7+commit.e28d00a7", Input: []byte(`{"language":"Solidity"}`)}, nil
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, req etherscan.Request) error {
	return m.Called(ctx, req).Error(0)
}

type stubPinner struct {
	uploads []pinata.Upload
}

func (p *stubPinner) StoreImages(context.Context, string) ([]pinata.Upload, []string, error) {
	files := make([]string, len(p.uploads))
	for i, u := range p.uploads {
		files[i] = u.File
	}
	return p.uploads, files, nil
}

func (p *stubPinner) StoreTokenURIMetadata(_ context.Context, name string, _ interface{}) (*pinata.PinResponse, error) {
	return &pinata.PinResponse{IpfsHash: "Qm" + name}, nil
}

func newTestEnv(t *testing.T, net network.Network) (*Env, *fakeChain) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(testChainID))
	require.NoError(t, err)
	opts.GasPrice = big.NewInt(1)
	opts.GasLimit = 8_000_000

	images := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(images, "frown.svg"), []byte("<svg>low</svg>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(images, "happy.svg"), []byte("<svg>high</svg>"), 0o644))

	chain := newFakeChain()
	return &Env{
		Network:          net,
		Backend:          chain,
		Opts:             opts,
		Artifacts:        fakeArtifacts{},
		Store:            NewStore(t.TempDir(), net.Name),
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		DynamicImagesDir: images,
		RandomImagesDir:  images,
		PollInterval:     time.Millisecond,
	}, chain
}

func hardhat(t *testing.T) network.Network {
	t.Helper()
	n, err := network.Defaults().ByChainID(network.HardhatChainID)
	require.NoError(t, err)
	return n
}

func sepolia(t *testing.T, subID uint64) network.Network {
	t.Helper()
	n, err := network.Defaults().ByChainID(network.SepoliaChainID)
	require.NoError(t, err)
	n.SubscriptionID = subID
	return n
}

func TestSelect(t *testing.T) {
	names := func(rs []Routine) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Name
		}
		return out
	}

	tests := []struct {
		name string
		tags []string
		want []string
	}{
		{name: "default", tags: nil, want: []string{"mocks", "basicnft", "randomipfs", "dynamicsvg"}},
		{name: "all", tags: []string{"all"}, want: []string{"mocks", "basicnft", "randomipfs", "dynamicsvg"}},
		{name: "main", tags: []string{"main"}, want: []string{"basicnft", "randomipfs", "dynamicsvg"}},
		{name: "order kept", tags: []string{"dynamicsvg", "mocks"}, want: []string{"mocks", "dynamicsvg"}},
		{name: "case and space", tags: []string{" RandomIpfs "}, want: []string{"randomipfs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(Routines(), tt.tags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	_, err := Select(Routines(), []string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestRunner_DevelopmentChain(t *testing.T) {
	env, chain := newTestEnv(t, hardhat(t))
	verifier := new(mockVerifier)
	env.Verifier = verifier

	require.NoError(t, NewRunner(env).Run(context.Background(), nil))

	assert.Equal(t, []string{
		"deploy", "deploy", // mocks
		"deploy",                                   // basic
		"createSubscription", "fundSubscription", // subscription
		"deploy", "addConsumer", // random
		"deploy", // dynamic
	}, chain.methods())

	for _, name := range []string{
		contracts.VRFCoordinatorV2MockName,
		contracts.MockV3AggregatorName,
		contracts.BasicNftName,
		contracts.RandomIpfsNftName,
		contracts.DynamicSvgNftName,
	} {
		rec, err := env.Store.Load(name)
		require.NoError(t, err, name)
		assert.NotEqual(t, common.Address{}, rec.Address, name)
	}

	random, err := env.Store.Load(contracts.RandomIpfsNftName)
	require.NoError(t, err)
	coord, err := env.Store.Address(contracts.VRFCoordinatorV2MockName)
	require.NoError(t, err)
	require.Len(t, random.Args, 6)
	assert.Equal(t, coord.Hex(), random.Args[0])
	assert.Equal(t, "1", random.Args[1])
	assert.Equal(t, "10000000000000000", random.Args[3])
	assert.Contains(t, random.Args[5], FixedTokenURIs[0])

	// addConsumer registered the deployed collection on subscription 1
	parsed, err := contracts.ParseABI(contracts.VRFCoordinatorV2MockName)
	require.NoError(t, err)
	addConsumer := chain.sent[6]
	args, err := parsed.Methods["addConsumer"].Inputs.Unpack(addConsumer.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, uint64(1), args[0])
	assert.Equal(t, random.Address, args[1])

	dynamic, err := env.Store.Load(contracts.DynamicSvgNftName)
	require.NoError(t, err)
	feed, err := env.Store.Address(contracts.MockV3AggregatorName)
	require.NoError(t, err)
	assert.Equal(t, []string{feed.Hex(), "<svg>low</svg>", "<svg>high</svg>"}, dynamic.Args)

	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestRunner_LiveNetworkVerifies(t *testing.T) {
	env, chain := newTestEnv(t, sepolia(t, 42))
	verifier := new(mockVerifier)
	verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req etherscan.Request) bool {
		return req.ContractName == "contracts/RandomIpfsNft.sol:RandomIpfsNft" &&
			req.CompilerVersion == "v0.8.7+commit.e28d00a7" &&
			len(req.ConstructorArgs) > 0
	})).Return(nil).Once()
	env.Verifier = verifier

	require.NoError(t, NewRunner(env).Run(context.Background(), []string{"mocks", "randomipfs"}))

	// no mocks, no subscription management on a live network
	assert.Equal(t, []string{"deploy"}, chain.methods())
	verifier.AssertExpectations(t)

	rec, err := env.Store.Load(contracts.RandomIpfsNftName)
	require.NoError(t, err)
	assert.Equal(t, "0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625", rec.Args[0])
	assert.Equal(t, "42", rec.Args[1])

	_, err = env.Store.Load(contracts.VRFCoordinatorV2MockName)
	assert.ErrorIs(t, err, ErrNoDeployment)
}

func TestDeployRandomIpfsNft_MissingSubscription(t *testing.T) {
	env, chain := newTestEnv(t, sepolia(t, 0))
	err := DeployRandomIpfsNft(context.Background(), env)
	assert.ErrorIs(t, err, network.ErrMissingSubscription)
	assert.Empty(t, chain.methods())
}

func TestDeployRandomIpfsNft_NeedsMocksOnDevChain(t *testing.T) {
	env, _ := newTestEnv(t, hardhat(t))
	err := DeployRandomIpfsNft(context.Background(), env)
	assert.ErrorIs(t, err, ErrNoDeployment)
}

func TestTokenURIs(t *testing.T) {
	ctx := context.Background()

	env, _ := newTestEnv(t, hardhat(t))
	uris, err := tokenURIs(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, FixedTokenURIs, uris)

	env.UploadToPinata = true
	_, err = tokenURIs(ctx, env)
	assert.ErrorIs(t, err, ErrNoPinner)

	env.Pinner = &stubPinner{uploads: []pinata.Upload{{File: "pug.png", IpfsHash: "A"}}}
	_, err = tokenURIs(ctx, env)
	assert.ErrorIs(t, err, ErrTokenURICount)

	env.Pinner = &stubPinner{uploads: []pinata.Upload{
		{File: "pug.png", IpfsHash: "A"},
		{File: "shiba-inu.png", IpfsHash: "B"},
		{File: "st-bernard.png", IpfsHash: "C"},
	}}
	uris, err = tokenURIs(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, [3]string{"ipfs://Qmpug", "ipfs://Qmshiba-inu", "ipfs://Qmst-bernard"}, uris)
}

func TestStore(t *testing.T) {
	store := NewStore(t.TempDir(), "hardhat")

	_, err := store.Load("BasicNft")
	assert.ErrorIs(t, err, ErrNoDeployment)

	rec := &Record{
		Contract:    "BasicNft",
		Address:     common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: 3,
		Args:        []string{},
		DeployedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(rec))

	got, err := store.Load("BasicNft")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.FileExists(t, filepath.Join(store.Dir(), "BasicNft.json"))
}

func TestMockConstants(t *testing.T) {
	assert.Equal(t, "250000000000000000", BaseFee.String())
	assert.Equal(t, "1000000000000000000000", FundAmount.String())
	assert.Equal(t, "2000000000000000000000", PriceFeedInitialAnswer.String())
}

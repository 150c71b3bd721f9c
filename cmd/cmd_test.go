package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/nftctl/internal/category"
	"github.com/Bidon15/nftctl/internal/network"
)

func TestParseWei(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0", want: "0"},
		{in: "10000000000000000", want: "10000000000000000"},
		{in: "4000000000000000000000", want: "4000000000000000000000"},
		{in: "-1", wantErr: true},
		{in: "0.01", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWei(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, network.ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestRunBreed(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		mod     bool
		wantErr error
	}{
		{name: "in range", arg: "42"},
		{name: "upper edge", arg: "99"},
		{name: "out of range", arg: "100", wantErr: category.ErrRangeOutOfBounds},
		{name: "huge", arg: "340282366920938463463374607431768211456", wantErr: category.ErrRangeOutOfBounds},
		{name: "huge modded", arg: "340282366920938463463374607431768211456", mod: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, breedCmd.Flags().Set("mod", boolString(tt.mod)))
			err := runBreed(breedCmd, []string{tt.arg})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.Error(t, runBreed(breedCmd, []string{"-3"}))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestFlagOr(t *testing.T) {
	viper.Set("test_key", "from-config")
	t.Cleanup(func() { viper.Set("test_key", nil) })

	assert.Equal(t, "from-flag", flagOr("from-flag", "test_key"))
	assert.Equal(t, "from-config", flagOr("", "test_key"))
}

func TestLoadNetworks(t *testing.T) {
	cfg, err := loadNetworks()
	require.NoError(t, err)
	_, err = cfg.ByName("sepolia")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("networks:\n  - chainId: 11155111\n    subscriptionId: 42\n"), 0o644))
	networksFile = path
	t.Cleanup(func() { networksFile = "" })

	cfg, err = loadNetworks()
	require.NoError(t, err)
	n, err := cfg.ByName("sepolia")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n.SubscriptionID)
}

func TestNewVerifier_NoKey(t *testing.T) {
	viper.Set("etherscan_api_key", "")
	v, err := newVerifier(network.SepoliaChainID, newLogger())
	require.NoError(t, err)
	assert.Nil(t, v)

	viper.Set("etherscan_api_key", "KEY")
	t.Cleanup(func() { viper.Set("etherscan_api_key", "") })
	v, err = newVerifier(network.SepoliaChainID, newLogger())
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestTransactor(t *testing.T) {
	viper.Set("private_key", "")
	t.Cleanup(func() { viper.Set("private_key", "") })

	hardhat, err := network.Defaults().ByChainID(network.HardhatChainID)
	require.NoError(t, err)
	opts, err := transactor(t.Context(), hardhat)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", opts.From.Hex())

	sepolia, err := network.Defaults().ByChainID(network.SepoliaChainID)
	require.NoError(t, err)
	_, err = transactor(t.Context(), sepolia)
	assert.Error(t, err)

	viper.Set("private_key", "0x"+hardhatDeployerKey)
	opts, err = transactor(t.Context(), sepolia)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", opts.From.Hex())
}

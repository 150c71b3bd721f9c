package metadata

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/nftctl/internal/pinata"
)

type mockPinner struct {
	mock.Mock
}

func (m *mockPinner) StoreImages(ctx context.Context, dir string) ([]pinata.Upload, []string, error) {
	args := m.Called(ctx, dir)
	uploads, _ := args.Get(0).([]pinata.Upload)
	files, _ := args.Get(1).([]string)
	return uploads, files, args.Error(2)
}

func (m *mockPinner) StoreTokenURIMetadata(ctx context.Context, name string, md interface{}) (*pinata.PinResponse, error) {
	args := m.Called(ctx, name, md)
	resp, _ := args.Get(0).(*pinata.PinResponse)
	return resp, args.Error(1)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForImage(t *testing.T) {
	md := ForImage("shiba-inu.png", "QmShiba")

	assert.Equal(t, "shiba-inu", md.Name)
	assert.Equal(t, "cute shiba-inu", md.Description)
	assert.Equal(t, "ipfs://QmShiba", md.Image)
	assert.Equal(t, []Attribute{{TraitType: "Cuteness", Value: 100}}, md.Attributes)

	raw, err := json.Marshal(md)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"shiba-inu","description":"cute shiba-inu","image":"ipfs://QmShiba",
		"attributes":[{"trait_type":"Cuteness","value":100}]}`, string(raw))
}

func TestBuildTokenURIs(t *testing.T) {
	ctx := context.Background()
	p := new(mockPinner)
	p.On("StoreImages", ctx, "images/random").Return(
		[]pinata.Upload{
			{File: "pug.png", IpfsHash: "QmPugImg"},
			{File: "st-bernard.png", IpfsHash: "QmBernardImg"},
		},
		[]string{"pug.png", "shiba-inu.png", "st-bernard.png"},
		nil,
	)
	p.On("StoreTokenURIMetadata", ctx, "pug", ForImage("pug.png", "QmPugImg")).
		Return(&pinata.PinResponse{IpfsHash: "QmPugMeta"}, nil)
	p.On("StoreTokenURIMetadata", ctx, "st-bernard", ForImage("st-bernard.png", "QmBernardImg")).
		Return(&pinata.PinResponse{IpfsHash: "QmBernardMeta"}, nil)

	uris, err := BuildTokenURIs(ctx, p, "images/random", discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"ipfs://QmPugMeta", "ipfs://QmBernardMeta"}, uris)
	p.AssertExpectations(t)
}

func TestBuildTokenURIs_SkipsFailedMetadata(t *testing.T) {
	ctx := context.Background()
	p := new(mockPinner)
	p.On("StoreImages", ctx, "dir").Return(
		[]pinata.Upload{{File: "pug.png", IpfsHash: "A"}, {File: "shiba-inu.png", IpfsHash: "B"}},
		[]string{"pug.png", "shiba-inu.png"},
		nil,
	)
	p.On("StoreTokenURIMetadata", ctx, "pug", mock.Anything).Return(nil, errors.New("HTTP 500"))
	p.On("StoreTokenURIMetadata", ctx, "shiba-inu", mock.Anything).
		Return(&pinata.PinResponse{IpfsHash: "QmShiba"}, nil)

	uris, err := BuildTokenURIs(ctx, p, "dir", discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"ipfs://QmShiba"}, uris)
}

func TestBuildTokenURIs_ImageError(t *testing.T) {
	ctx := context.Background()
	p := new(mockPinner)
	p.On("StoreImages", ctx, "dir").Return(nil, nil, errors.New("no such directory"))

	_, err := BuildTokenURIs(ctx, p, "dir", nil)
	assert.Error(t, err)
	p.AssertNotCalled(t, "StoreTokenURIMetadata", mock.Anything, mock.Anything, mock.Anything)
}

func TestSVGToImageURI(t *testing.T) {
	uri := SVGToImageURI("<svg/>")
	require.True(t, strings.HasPrefix(uri, SVGURIPrefix))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, SVGURIPrefix))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(decoded))
}

func TestDynamicTokenURI_MatchesContract(t *testing.T) {
	svg, err := os.ReadFile("testdata/frown.svg")
	require.NoError(t, err)
	want, err := os.ReadFile("testdata/frown_token_uri.txt")
	require.NoError(t, err)

	got := DynamicTokenURI(SVGToImageURI(string(svg)))
	assert.Equal(t, strings.TrimSpace(string(want)), got)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, JSONURIPrefix))
	require.NoError(t, err)
	var doc struct {
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "Dynamic SVG NFT", doc.Name)
	assert.Equal(t, SVGToImageURI(string(svg)), doc.Image)
}

func TestSelectDynamicImage(t *testing.T) {
	eth := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18)) }
	price := eth(2000)

	tests := []struct {
		name      string
		highValue *big.Int
		want      string
	}{
		{name: "below price", highValue: eth(1), want: "high"},
		{name: "equal to price", highValue: eth(2000), want: "high"},
		{name: "above price", highValue: eth(2001), want: "low"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectDynamicImage(price, tt.highValue, "high", "low"))
		})
	}
}

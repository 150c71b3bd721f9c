// Package metadata builds ERC-721 token metadata and token URIs.
package metadata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/Bidon15/nftctl/internal/pinata"
)

const (
	// SVGURIPrefix prefixes base64 encoded SVG images.
	SVGURIPrefix = "data:image/svg+xml;base64,"
	// JSONURIPrefix prefixes base64 encoded JSON token metadata.
	JSONURIPrefix = "data:application/json;base64,"
)

// ErrNoTokenURIs is returned when no image produced a token URI.
var ErrNoTokenURIs = errors.New("metadata: no token URIs were uploaded")

// Attribute is one ERC-721 metadata trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     int    `json:"value"`
}

// TokenMetadata is the JSON document a token URI points to.
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// ForImage fills the metadata template for an uploaded image file.
func ForImage(file, ipfsHash string) TokenMetadata {
	name := strings.TrimSuffix(file, ".png")
	return TokenMetadata{
		Name:        name,
		Description: "cute " + name,
		Image:       "ipfs://" + ipfsHash,
		Attributes:  []Attribute{{TraitType: "Cuteness", Value: 100}},
	}
}

// Pinner uploads images and metadata documents.
type Pinner interface {
	StoreImages(ctx context.Context, dir string) ([]pinata.Upload, []string, error)
	StoreTokenURIMetadata(ctx context.Context, name string, metadata interface{}) (*pinata.PinResponse, error)
}

// BuildTokenURIs uploads the images in dir, then one metadata document per
// uploaded image, and returns the metadata URIs in directory order. Images or
// documents that fail to upload are logged and skipped.
func BuildTokenURIs(ctx context.Context, p Pinner, dir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	uploads, files, err := p.StoreImages(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("store images: %w", err)
	}
	if len(uploads) < len(files) {
		logger.Warn("some images were not uploaded",
			slog.Int("uploaded", len(uploads)),
			slog.Int("files", len(files)),
		)
	}

	uris := make([]string, 0, len(uploads))
	for _, u := range uploads {
		md := ForImage(u.File, u.IpfsHash)
		logger.Info("uploading token metadata", slog.String("name", md.Name))

		resp, err := p.StoreTokenURIMetadata(ctx, md.Name, md)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Error("metadata upload failed",
				slog.String("name", md.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		uris = append(uris, resp.URI())
	}

	logger.Info("token URIs uploaded", slog.Any("uris", uris))
	return uris, nil
}

// SVGToImageURI encodes an SVG document as a data URI.
func SVGToImageURI(svg string) string {
	return SVGURIPrefix + base64.StdEncoding.EncodeToString([]byte(svg))
}

// DynamicTokenURI returns the on-chain token URI DynamicSvgNft serves for an
// image URI.
func DynamicTokenURI(imageURI string) string {
	doc := `{"name":"Dynamic SVG NFT", "description":"An NFT that changes based on the Chainlink Feed", ` +
		`"attributes": [{"trait_type": "coolness", "value": 100}], "image":"` + imageURI + `"}`
	return JSONURIPrefix + base64.StdEncoding.EncodeToString([]byte(doc))
}

// SelectDynamicImage returns high when price is at least highValue, low
// otherwise.
func SelectDynamicImage(price, highValue *big.Int, high, low string) string {
	if price.Cmp(highValue) >= 0 {
		return high
	}
	return low
}

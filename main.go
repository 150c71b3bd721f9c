// nftctl deploys and exercises the random, dynamic and basic NFT
// collections.
//
// It deploys the contracts (and VRF and price feed mocks on development
// chains), uploads images and metadata to Pinata, and mints against the
// deployed collections.
package main

import "github.com/Bidon15/nftctl/cmd"

func main() {
	cmd.Execute()
}

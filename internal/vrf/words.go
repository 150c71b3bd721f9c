package vrf

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RandomWords expands a coordinator output seed into n words. Word i is
// keccak256(abi.encode(seed, i)), the expansion VRFCoordinatorV2 applies
// before calling back into the consumer. The seed is the outputSeed field of
// RandomWordsFulfilled.
func RandomWords(seed *big.Int, n int) []*big.Int {
	words := make([]*big.Int, n)
	s := common.BigToHash(seed)
	for i := range words {
		idx := common.BigToHash(big.NewInt(int64(i)))
		words[i] = new(big.Int).SetBytes(crypto.Keccak256(s.Bytes(), idx.Bytes()))
	}
	return words
}

// MockRandomWords returns the n words VRFCoordinatorV2Mock delivers for
// requestID. The mock uses the request id as its output seed.
func MockRandomWords(requestID *big.Int, n int) []*big.Int {
	return RandomWords(requestID, n)
}

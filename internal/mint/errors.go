package mint

import "errors"

// Sentinel errors
var (
	ErrBreedMismatch    = errors.New("mint: minted breed differs from resolved category")
	ErrCallbackFailed   = errors.New("mint: coordinator callback into the collection failed")
	ErrTokenURIMismatch = errors.New("mint: token URI differs from expected")
)

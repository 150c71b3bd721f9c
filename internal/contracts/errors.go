package contracts

import (
	"errors"
	"strings"

	"github.com/Bidon15/nftctl/internal/category"
)

// Sentinel errors
var (
	ErrUnknownContract     = errors.New("contracts: unknown contract")
	ErrArtifactNotFound    = errors.New("contracts: artifact not found")
	ErrEmptyBytecode       = errors.New("contracts: empty bytecode")
	ErrEventNotFound       = errors.New("contracts: event not found in receipt")
	ErrTransactionReverted = errors.New("contracts: transaction reverted")

	// ErrInsufficientPayment is returned when a mint request carries less
	// than the contract's mint fee.
	ErrInsufficientPayment = errors.New("contracts: insufficient payment")
)

// revertReasons maps custom error names to sentinel errors.
var revertReasons = map[string]error{
	"RandomIpfsNft__NeedMoreETHSent":  ErrInsufficientPayment,
	"RandomIpfsNft__RangeOutOfBounds": category.ErrRangeOutOfBounds,
}

// MapRevert translates a node error carrying a known custom revert into the
// matching sentinel, joined with the original error. Other errors pass
// through unchanged.
func MapRevert(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for reason, sentinel := range revertReasons {
		if strings.Contains(msg, reason) || containsSelector(msg, reason) {
			return errors.Join(sentinel, err)
		}
	}
	return err
}

// containsSelector reports whether msg carries the 4-byte selector of the
// custom error, as nodes return for reverts they cannot decode.
func containsSelector(msg, reason string) bool {
	sel, ok := errorSelectors[reason]
	return ok && strings.Contains(strings.ToLower(msg), sel)
}

var errorSelectors = func() map[string]string {
	parsed := mustParseABI(RandomIpfsNftName)
	out := make(map[string]string, len(parsed.Errors))
	for name, e := range parsed.Errors {
		out[name] = strings.ToLower(e.ID.Hex()[:10])
	}
	return out
}()

package engine

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// Engine errors.
var (
	// ErrNoSpendableOutputs is returned when the candidate UTXO set is empty.
	ErrNoSpendableOutputs = errors.New("no spendable outputs")

	// ErrMalformedUTXO is returned when a candidate UTXO has a zero value
	// or ill-formed reference fields.
	ErrMalformedUTXO = errors.New("malformed utxo")

	// ErrNoSigningKeys is returned when signing finds no derivable key for
	// any input.
	ErrNoSigningKeys = errors.New("no signing keys")

	// ErrSubmissionFailed wraps a submission collaborator failure. It never
	// carries key material.
	ErrSubmissionFailed = errors.New("submission failed")
)

// InsufficientFundsError reports that the candidate UTXO set cannot fund
// the request. Required and Available are absolute totals in base units,
// or in asset units when Asset is non-zero, so callers can state the
// shortfall exactly.
type InsufficientFundsError struct {
	Required  uint64
	Available uint64
	Asset     types.TokenID // Zero for a base-unit shortfall.
}

func (e *InsufficientFundsError) Error() string {
	if !e.Asset.IsZero() {
		return fmt.Sprintf("insufficient funds: asset %s requires %d, available %d", e.Asset, e.Required, e.Available)
	}
	return fmt.Sprintf("insufficient funds: required %d, available %d", e.Required, e.Available)
}

// IsInsufficientFunds reports whether err is an InsufficientFundsError.
func IsInsufficientFunds(err error) bool {
	var target *InsufficientFundsError
	return errors.As(err, &target)
}

package engine

import (
	"fmt"
	"strconv"

	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// UTXO is a spendable output candidate: a reference, its multi-asset
// value, and the address that controls it. Immutable once observed;
// whether it is still unspent is the data source's problem, not ours.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Address  string         `json:"address"`
	Value    uint64         `json:"value"`
	Assets   tx.AssetBundle `json:"assets,omitempty"`
}

// Request describes one payment to construct. Amount is a non-negative
// integer in base units encoded as a string; address strings are passed
// through to the serialization boundary untouched.
type Request struct {
	From      string
	To        string
	Amount    string
	Assets    tx.AssetBundle // Optional named-asset transfers.
	Metadata  interface{}    // Optional arbitrary nested metadata.
	CustomFee uint64         // Non-zero overrides the computed fee verbatim.
	UTXOs     []UTXO         // Candidate spendable outputs.
}

// parseAmount parses a base-unit amount string as a non-negative integer.
func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a non-negative integer: %w", s, err)
	}
	return v, nil
}

// validate applies the hard request checks of the build pipeline. Nothing
// is built if any of these fail.
func (r *Request) validate() (uint64, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return 0, err
	}
	if r.From == "" {
		return 0, fmt.Errorf("from address is empty")
	}
	if r.To == "" {
		return 0, fmt.Errorf("to address is empty")
	}
	if len(r.UTXOs) == 0 {
		return 0, ErrNoSpendableOutputs
	}
	for i, u := range r.UTXOs {
		if u.Value == 0 {
			return 0, fmt.Errorf("%w: utxo %d has zero value", ErrMalformedUTXO, i)
		}
		if u.Outpoint.TxID.IsZero() {
			return 0, fmt.Errorf("%w: utxo %d has zero txid", ErrMalformedUTXO, i)
		}
	}
	return amount, nil
}

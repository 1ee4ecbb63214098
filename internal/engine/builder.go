// Package engine builds, signs and submits Klingpay transactions: it
// selects inputs from a candidate UTXO set, computes the protocol fee,
// enforces the minimum-value floor, assembles the canonical encoding,
// collects witnesses from the keyring and hands the result to the
// submission collaborator.
package engine

import (
	"fmt"
	"math"

	"github.com/Klingon-tech/klingpay-wallet/internal/keyring"
	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// TxVersion is the transaction version the engine emits.
const TxVersion = 1

// selectionAttempts bounds the select/re-fee loop. The target grows
// strictly each round, so this only trips on pathological inputs.
const selectionAttempts = 16

// Engine is the transaction construction engine. Builds are independent
// and may run concurrently; identity-mutating keyring calls must be
// serialized against Sign by the caller.
type Engine struct {
	keys        *keyring.Manager
	fees        tx.FeeParams
	broadcaster Broadcaster
}

// New creates an engine over the given keyring and fee schedule.
// broadcaster may be nil if Submit is never used.
func New(keys *keyring.Manager, fees tx.FeeParams, broadcaster Broadcaster) *Engine {
	return &Engine{keys: keys, fees: fees, broadcaster: broadcaster}
}

// FeeParams returns the fee schedule the engine builds against.
func (e *Engine) FeeParams() tx.FeeParams {
	return e.fees
}

// Built is an immutable assembled transaction: the body, the selected
// inputs with their owning addresses, the final fee, and the canonical
// unsigned encoding used both as signing payload and submission artifact.
type Built struct {
	Tx     *tx.Transaction
	Inputs []UTXO
	Fee    uint64
	Raw    []byte
	Hash   types.Hash
}

// Build assembles an unsigned transaction for the request. Request
// validation and coin selection are hard failures; once inputs are
// chosen, fee, floor and change handling only shape the numbers.
func (e *Engine) Build(req *Request) (*Built, error) {
	amount, err := req.validate()
	if err != nil {
		return nil, err
	}

	// Zero-amount entries transfer nothing; drop them before they count
	// toward the floor or the selection targets.
	assets := req.Assets.Clone()
	for id, amt := range assets {
		if amt == 0 {
			delete(assets, id)
		}
	}
	if len(assets) == 0 {
		assets = nil
	}

	meta := tx.ConvertRequestMetadata(req.Metadata)
	metaBytes := 0
	if meta != nil {
		metaBytes = len(meta.Bytes())
	}

	// Destination value: raise to the floor rather than reject when the
	// requested amount cannot carry its assets.
	destValue := amount
	if len(assets) > 0 {
		if floor := e.fees.MinOutputValue(assets); destValue < floor {
			log.Engine.Debug().
				Uint64("requested", destValue).
				Uint64("floor", floor).
				Msg("raising output to minimum value floor")
			destValue = floor
		}
	}

	// Conservative 2-input/1-output seed estimate, then iterate: select,
	// recompute the fee for the actual shape, and widen the target until
	// the selection covers value + fee (+ change floor when asset change
	// must be emitted).
	fee := e.fees.EstimateFee(2, 1, len(assets), metaBytes)
	if req.CustomFee > 0 {
		fee = req.CustomFee
	}
	target, ok := addValues(destValue, fee)
	if !ok {
		// No ledger holds this much; amount + fee cannot be represented.
		return nil, &InsufficientFundsError{Required: math.MaxUint64, Available: totalValue(req.UTXOs)}
	}

	var sel *selection
	var changeAssets tx.AssetBundle
	for attempt := 0; ; attempt++ {
		sel, err = selectCoins(req.UTXOs, target, assets)
		if err != nil {
			return nil, err
		}

		changeAssets = residualAssets(sel.assets, assets)
		exact := e.fees.EstimateFee(len(sel.inputs), 2, len(assets)+len(changeAssets), metaBytes)
		if req.CustomFee > 0 {
			exact = req.CustomFee
		}

		need, ok := addValues(destValue, exact)
		if ok && len(changeAssets) > 0 {
			// Residual assets cannot be folded into the fee; the change
			// output must exist and satisfy its own floor.
			need, ok = addValues(need, e.fees.MinOutputValue(changeAssets))
		}
		if !ok {
			return nil, &InsufficientFundsError{Required: math.MaxUint64, Available: totalValue(req.UTXOs)}
		}
		if sel.total >= need {
			fee = exact
			break
		}
		if attempt >= selectionAttempts {
			return nil, &InsufficientFundsError{Required: need, Available: sel.total}
		}
		target = need
	}

	// Change: per-asset and base-unit residuals, independently. Dust below
	// the floor is folded into the fee instead of creating an output.
	outputs := []tx.Output{{Address: req.To, Value: destValue, Assets: assets}}
	changeValue := sel.total - destValue - fee
	if changeValue >= e.fees.MinOutputValue(changeAssets) {
		outputs = append(outputs, tx.Output{
			Address: req.From,
			Value:   changeValue,
			Assets:  changeAssets,
		})
	} else if changeValue > 0 {
		fee += changeValue
	}

	body := &tx.Transaction{
		Version:  TxVersion,
		Outputs:  outputs,
		Fee:      fee,
		Metadata: meta,
	}
	for _, u := range sel.inputs {
		body.Inputs = append(body.Inputs, tx.Input{PrevOut: u.Outpoint})
	}

	raw := body.SigningBytes()
	built := &Built{
		Tx:     body,
		Inputs: sel.inputs,
		Fee:    fee,
		Raw:    raw,
		Hash:   body.Hash(),
	}
	log.Engine.Info().
		Int("inputs", len(sel.inputs)).
		Int("outputs", len(outputs)).
		Uint64("fee", fee).
		Str("hash", built.Hash.String()).
		Msg("transaction built")
	return built, nil
}

// addValues adds two base-unit amounts, reporting false on overflow.
func addValues(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// totalValue sums the candidates' base values, saturating at MaxUint64.
func totalValue(utxos []UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		if total > math.MaxUint64-u.Value {
			return math.MaxUint64
		}
		total += u.Value
	}
	return total
}

// residualAssets returns selected minus spent, per asset, dropping zeros.
func residualAssets(selected, spent tx.AssetBundle) tx.AssetBundle {
	var out tx.AssetBundle
	for id, amt := range selected {
		if rem := amt - spent[id]; rem > 0 {
			if out == nil {
				out = make(tx.AssetBundle)
			}
			out[id] = rem
		}
	}
	return out
}

// TotalInputValue returns the sum of the selected inputs' base values.
func (b *Built) TotalInputValue() uint64 {
	var total uint64
	for _, u := range b.Inputs {
		total += u.Value
	}
	return total
}

// String summarizes the built transaction for logs and CLI output.
func (b *Built) String() string {
	return fmt.Sprintf("tx %s: %d in, %d out, fee %d", b.Hash, len(b.Inputs), len(b.Tx.Outputs), b.Fee)
}

package engine

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// SubmitResult reports the outcome of handing a signed transaction to the
// submission collaborator. A rejected submission is a result, not a
// defect: Accepted is false and Err wraps ErrSubmissionFailed with the
// collaborator's message, so callers can tell "built but not broadcast"
// from "built and rejected".
type SubmitResult struct {
	Accepted    bool
	Hash        types.Hash
	Fee         uint64
	TotalOutput uint64
	Err         error
}

// Submit delegates the signed transaction's bytes to the broadcaster.
// Stale-UTXO and double-spend conditions surface here as rejections; the
// remedy is to re-fetch spendable outputs and rebuild.
func (e *Engine) Submit(ctx context.Context, signed *tx.SignedTransaction) SubmitResult {
	res := SubmitResult{Fee: signed.Tx.Fee}
	if total, err := signed.Tx.TotalOutputValue(); err == nil {
		res.TotalOutput = total
	}

	if e.broadcaster == nil {
		res.Err = fmt.Errorf("%w: no broadcaster configured", ErrSubmissionFailed)
		return res
	}

	hash, err := e.broadcaster.SubmitTransaction(ctx, signed.Bytes())
	if err != nil {
		log.Engine.Warn().Err(err).Msg("submission rejected")
		res.Err = fmt.Errorf("%w: %s", ErrSubmissionFailed, err)
		return res
	}

	res.Accepted = true
	res.Hash = hash
	log.Engine.Info().
		Str("hash", hash.String()).
		Uint64("fee", res.Fee).
		Msg("transaction submitted")
	return res
}

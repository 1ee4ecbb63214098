package engine

import (
	"context"

	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// AddressBalance is the advisory balance of one address. It is used for
// display only, never for coin selection.
type AddressBalance struct {
	Confirmed   uint64         `json:"confirmed"`
	Unconfirmed uint64         `json:"unconfirmed"`
	Assets      tx.AssetBundle `json:"assets,omitempty"`
}

// ChainSource supplies spendable outputs and balances for addresses.
// Results may be stale or empty; the engine treats an empty UTXO set as
// ErrNoSpendableOutputs at build time.
type ChainSource interface {
	SpendableOutputs(ctx context.Context, address string) ([]UTXO, error)
	AddressBalance(ctx context.Context, address string) (AddressBalance, error)
}

// Broadcaster hands a signed transaction's bytes to the ledger. Retry and
// backoff are the collaborator's responsibility; the engine submits once.
type Broadcaster interface {
	SubmitTransaction(ctx context.Context, raw []byte) (types.Hash, error)
}

package types

import "fmt"

// Outpoint identifies one spendable output: the transaction that created
// it and its position in that transaction's output list.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// IsZero reports whether the outpoint is the zero value. No real output
// sits at index 0 of the all-zero transaction id, so request validation
// treats this as malformed.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String formats the outpoint as "txid:index".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

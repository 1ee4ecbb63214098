// Package tx defines the Klingpay transaction model: multi-asset inputs
// and outputs, the canonical signing encoding, the witness set, the
// linear fee schedule and the minimum-value floor.
package tx

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/Klingon-tech/klingpay-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// AssetBundle maps asset identifiers to amounts. A nil or empty bundle
// means the output carries only base units.
type AssetBundle map[types.TokenID]uint64

// Clone returns a deep copy of the bundle. Cloning nil returns nil.
func (b AssetBundle) Clone() AssetBundle {
	if b == nil {
		return nil
	}
	out := make(AssetBundle, len(b))
	for id, amt := range b {
		out[id] = amt
	}
	return out
}

// SortedIDs returns the asset IDs in canonical (bytewise ascending) order.
func (b AssetBundle) SortedIDs() []types.TokenID {
	ids := make([]types.TokenID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return types.Hash(ids[i]).String() < types.Hash(ids[j]).String()
	})
	return ids
}

// Input references a UTXO being spent.
type Input struct {
	PrevOut types.Outpoint `json:"prevout"`
}

// Output defines a new UTXO. The address is carried verbatim; the engine
// never reinterprets address strings it did not derive itself.
type Output struct {
	Address string      `json:"address"`
	Value   uint64      `json:"value"`
	Assets  AssetBundle `json:"assets,omitempty"`
}

// Transaction is an unsigned Klingpay transaction body.
type Transaction struct {
	Version  uint32    `json:"version"`
	Inputs   []Input   `json:"inputs"`
	Outputs  []Output  `json:"outputs"`
	Fee      uint64    `json:"fee"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Hash computes the transaction ID (BLAKE3 hash of the canonical signing bytes).
func (t *Transaction) Hash() types.Hash {
	return crypto.Hash(t.SigningBytes())
}

// SigningBytes returns the canonical byte representation used both as the
// signing payload and as the unsigned artifact handed to submission.
//
// Layout (little-endian):
//
//	version(4) | input_count(4) | [txid(32) + index(4)]...
//	| output_count(4) | [addr_len(4) + addr + value(8) + asset_count(4) + [token_id(32) + amount(8)]...]...
//	| fee(8) | meta_flag(1) [ + meta_len(4) + metadata ]
//
// Assets within an output are ordered by token ID so the same logical
// transaction always produces the same bytes.
func (t *Transaction) SigningBytes() []byte {
	var buf []byte

	buf = binary.LittleEndian.AppendUint32(buf, t.Version)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Inputs)))
	for _, in := range t.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Outputs)))
	for _, out := range t.Outputs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Address)))
		buf = append(buf, out.Address...)
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(out.Assets)))
		for _, id := range out.Assets.SortedIDs() {
			buf = append(buf, id[:]...)
			buf = binary.LittleEndian.AppendUint64(buf, out.Assets[id])
		}
	}

	buf = binary.LittleEndian.AppendUint64(buf, t.Fee)

	if t.Metadata != nil {
		meta := t.Metadata.Bytes()
		buf = append(buf, 1)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(meta)))
		buf = append(buf, meta...)
	} else {
		buf = append(buf, 0)
	}

	return buf
}

// TotalOutputValue returns the sum of all output base-unit values.
// Returns an error if the sum overflows uint64.
func (t *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range t.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}

// OutputAssets returns the aggregate asset amounts across all outputs.
func (t *Transaction) OutputAssets() AssetBundle {
	total := make(AssetBundle)
	for _, out := range t.Outputs {
		for id, amt := range out.Assets {
			total[id] += amt
		}
	}
	if len(total) == 0 {
		return nil
	}
	return total
}

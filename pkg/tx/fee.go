package tx

import "github.com/Klingon-tech/klingpay-wallet/pkg/types"

// FeeParams holds the protocol fee schedule and minimum-value floor
// constants. These are fixed protocol values; a build against the wrong
// schedule produces transactions the ledger rejects.
type FeeParams struct {
	// Base is the flat per-transaction fee component in base units.
	Base uint64

	// PerByte is the fee per byte of the canonical encoding.
	PerByte uint64

	// MinBaseValue is the minimum base-unit amount any output must carry.
	MinBaseValue uint64

	// PerAssetMin is added to the floor for each distinct asset attached
	// to an output.
	PerAssetMin uint64

	// PerAssetByteMin is added to the floor per 8 bytes of asset payload
	// (token ID + amount) attached to an output.
	PerAssetByteMin uint64
}

// DefaultFeeParams returns the mainnet fee schedule.
func DefaultFeeParams() FeeParams {
	return FeeParams{
		Base:            155000,
		PerByte:         44,
		MinBaseValue:    1000000,
		PerAssetMin:     34482,
		PerAssetByteMin: 648,
	}
}

// Per-field sizes of the canonical encoding, used for estimation before
// the transaction is fully assembled. See Transaction.SigningBytes.
const (
	sizeOverhead = 4 + 4 + 4 + 8 + 1 // version + input count + output count + fee + meta flag
	sizePerInput = types.HashSize + 4
	sizePerAsset = types.HashSize + 8

	// sizePerOutput assumes a bech32 base address (1+40 bytes payload
	// encodes to ~72 characters) plus value and asset count fields.
	sizePerOutput = 4 + 72 + 8 + 4
)

// EstimateSize returns the estimated canonical size in bytes for a
// transaction with the given shape.
func EstimateSize(numInputs, numOutputs, numAssets, metadataBytes int) int {
	size := sizeOverhead + sizePerInput*numInputs + sizePerOutput*numOutputs + sizePerAsset*numAssets
	if metadataBytes > 0 {
		size += 4 + metadataBytes
	}
	return size
}

// FeeForSize returns the fee for a transaction of the given encoded size.
func (p FeeParams) FeeForSize(size int) uint64 {
	return p.Base + p.PerByte*uint64(size)
}

// EstimateFee returns the fee for an estimated transaction shape.
func (p FeeParams) EstimateFee(numInputs, numOutputs, numAssets, metadataBytes int) uint64 {
	return p.FeeForSize(EstimateSize(numInputs, numOutputs, numAssets, metadataBytes))
}

// FeeFor returns the fee for a fully assembled transaction, computed from
// its exact canonical encoding. The fee field itself is fixed-width, so
// setting the result back on the transaction does not change its size.
func (p FeeParams) FeeFor(t *Transaction) uint64 {
	return p.FeeForSize(len(t.SigningBytes()))
}

// MinOutputValue returns the minimum base-unit amount an output carrying
// the given assets must hold. Outputs without assets use the flat floor;
// each attached asset raises it by a per-asset term plus a size term.
func (p FeeParams) MinOutputValue(assets AssetBundle) uint64 {
	if len(assets) == 0 {
		return p.MinBaseValue
	}
	payload := uint64(len(assets) * sizePerAsset)
	return p.MinBaseValue +
		p.PerAssetMin*uint64(len(assets)) +
		p.PerAssetByteMin*((payload+7)/8)
}

package keyring

import "github.com/tyler-smith/go-bip32"

// Derivation path constants.
// Full path: m/1852'/8888'/account'/chain/index
//
// Purpose, coin type and account are always hardened; chain and index
// never are. These values are fixed protocol constants: any wallet
// implementing the same ledger must derive along the exact same path to
// see the same addresses.
const (
	// Purpose is the multi-chain-account purpose field (hardened).
	Purpose = bip32.FirstHardenedChild + 1852

	// CoinTypeKlingpay is the Klingpay coin type (hardened).
	CoinTypeKlingpay = bip32.FirstHardenedChild + 8888

	// ChainExternal is for receiving addresses.
	ChainExternal = 0

	// ChainInternal is for change addresses.
	ChainInternal = 1

	// ChainStaking is for stake keys.
	ChainStaking = 2

	// StakeKeyIndex is the only index used on the staking chain.
	StakeKeyIndex = 0
)

// MaxIndex is the first invalid (hardened-range) value for account and
// address indices supplied by callers.
const MaxIndex = bip32.FirstHardenedChild

// chainFor maps the isChange flag onto the chain level of the path.
func chainFor(change bool) uint32 {
	if change {
		return ChainInternal
	}
	return ChainExternal
}

package keyring

import "github.com/Klingon-tech/klingpay-wallet/pkg/types"

// Account is one hardened branch of the root identity. Address lists are
// append-only; an address's position is its derivation index.
type Account struct {
	Index    uint32
	Name     string
	External []types.Address // Receiving addresses (chain 0).
	Internal []types.Address // Change addresses (chain 1).
	Reward   types.Address   // Stake/reward address (chain 2, index 0).
}

// Addresses returns every derived address of the account, external then
// internal, without the reward address.
func (a *Account) Addresses() []types.Address {
	out := make([]types.Address, 0, len(a.External)+len(a.Internal))
	out = append(out, a.External...)
	out = append(out, a.Internal...)
	return out
}

// clone returns a deep copy so callers cannot mutate the table entry.
func (a *Account) clone() *Account {
	c := &Account{
		Index:    a.Index,
		Name:     a.Name,
		Reward:   a.Reward,
		External: make([]types.Address, len(a.External)),
		Internal: make([]types.Address, len(a.Internal)),
	}
	copy(c.External, a.External)
	copy(c.Internal, a.Internal)
	return c
}

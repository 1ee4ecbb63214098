package engine

import (
	"fmt"

	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/Klingon-tech/klingpay-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
)

// Sign recomputes the transaction hash over the canonical encoding and
// produces one witness per distinct input-owning key. Input owners are
// resolved through the account's address record; inputs whose address is
// not on record fall back to the supplied (account, addrIndex) key.
// Every transiently derived key is zeroed before returning, on success
// and on failure alike.
func (e *Engine) Sign(built *Built, account, addrIndex uint32) (*tx.SignedTransaction, error) {
	if built == nil || len(built.Inputs) == 0 {
		return nil, ErrNoSigningKeys
	}

	// Distinct owning addresses in input order.
	owners := make([]string, 0, len(built.Inputs))
	seen := make(map[string]bool, len(built.Inputs))
	for _, u := range built.Inputs {
		if !seen[u.Address] {
			seen[u.Address] = true
			owners = append(owners, u.Address)
		}
	}

	keys := make([]*crypto.PrivateKey, 0, len(owners))
	defer func() {
		for _, k := range keys {
			k.Zero()
		}
	}()

	// One key per owner; owners resolving to the same key share a witness.
	byPubKey := make(map[string]*crypto.PrivateKey, len(owners))
	ordered := make([]*crypto.PrivateKey, 0, len(owners))
	for _, owner := range owners {
		index, change := addrIndex, false
		if i, c, ok := e.keys.FindAddress(account, owner); ok {
			index, change = i, c
		}
		key, err := e.keys.PaymentSigningKey(account, index, change)
		if err != nil {
			return nil, fmt.Errorf("signing key for %s: %w", owner, err)
		}
		keys = append(keys, key)

		pub := string(key.PublicKey())
		if _, dup := byPubKey[pub]; dup {
			continue
		}
		byPubKey[pub] = key
		ordered = append(ordered, key)
	}
	if len(ordered) == 0 {
		return nil, ErrNoSigningKeys
	}

	hash := built.Tx.Hash()
	witnesses := make([]tx.Witness, 0, len(ordered))
	for _, key := range ordered {
		sig, err := key.Sign(hash[:])
		if err != nil {
			return nil, fmt.Errorf("sign transaction: %w", err)
		}
		witnesses = append(witnesses, tx.Witness{
			PubKey:    key.PublicKey(),
			Signature: sig,
		})
	}

	log.Engine.Debug().
		Str("hash", hash.String()).
		Int("witnesses", len(witnesses)).
		Msg("transaction signed")
	return &tx.SignedTransaction{Tx: built.Tx, Witnesses: witnesses}, nil
}

// Package session is the thin coordinator over the keyring and the
// construction engine: it maps accounts to addresses and balances,
// fetches spendable outputs tagged with their owning address, and pipes
// build → sign → submit. It owns no cryptographic state of its own.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingpay-wallet/internal/engine"
	"github.com/Klingon-tech/klingpay-wallet/internal/keyring"
	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// Session coordinates one wallet session.
type Session struct {
	keys   *keyring.Manager
	engine *engine.Engine
	chain  engine.ChainSource

	mu       sync.Mutex
	balances map[uint32]engine.AddressBalance // Weakly consistent, refreshed on demand.
}

// New creates a session over the given collaborators.
func New(keys *keyring.Manager, eng *engine.Engine, chain engine.ChainSource) *Session {
	return &Session{
		keys:     keys,
		engine:   eng,
		chain:    chain,
		balances: make(map[uint32]engine.AddressBalance),
	}
}

// Keyring exposes the underlying key manager.
func (s *Session) Keyring() *keyring.Manager {
	return s.keys
}

// Initialize forwards mnemonic initialization to the keyring.
func (s *Session) Initialize(mnemonic string) bool {
	return s.keys.Initialize(mnemonic)
}

// CreateAccount creates (or returns) the account at the given index.
func (s *Session) CreateAccount(index uint32, name string) (*keyring.Account, error) {
	return s.keys.CreateAccount(index, name)
}

// Balance aggregates the advisory balance of every derived address of an
// account, caches it on the account, and returns it. The cache is for
// display; coin selection always works from freshly fetched UTXOs.
func (s *Session) Balance(ctx context.Context, account uint32) (engine.AddressBalance, error) {
	acct, ok := s.keys.Account(account)
	if !ok {
		return engine.AddressBalance{}, fmt.Errorf("account %d not created", account)
	}

	var total engine.AddressBalance
	for _, addr := range acct.Addresses() {
		bal, err := s.chain.AddressBalance(ctx, addr.String())
		if err != nil {
			return engine.AddressBalance{}, fmt.Errorf("balance for %s: %w", addr, err)
		}
		total.Confirmed += bal.Confirmed
		total.Unconfirmed += bal.Unconfirmed
		for id, amt := range bal.Assets {
			if total.Assets == nil {
				total.Assets = make(tx.AssetBundle)
			}
			total.Assets[id] += amt
		}
	}

	s.mu.Lock()
	s.balances[account] = total
	s.mu.Unlock()
	return total, nil
}

// CachedBalance returns the last fetched balance for an account, if any.
func (s *Session) CachedBalance(account uint32) (engine.AddressBalance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.balances[account]
	return bal, ok
}

// SpendableOutputs fetches the UTXOs of every derived address of the
// account, each tagged with the address that controls it.
func (s *Session) SpendableOutputs(ctx context.Context, account uint32) ([]engine.UTXO, error) {
	acct, ok := s.keys.Account(account)
	if !ok {
		return nil, fmt.Errorf("account %d not created", account)
	}

	var utxos []engine.UTXO
	for _, addr := range acct.Addresses() {
		fetched, err := s.chain.SpendableOutputs(ctx, addr.String())
		if err != nil {
			return nil, fmt.Errorf("utxos for %s: %w", addr, err)
		}
		for _, u := range fetched {
			if u.Address == "" {
				u.Address = addr.String()
			}
			utxos = append(utxos, u)
		}
	}
	return utxos, nil
}

// TransferOptions carries the optional parts of a transfer.
type TransferOptions struct {
	Assets    tx.AssetBundle
	Metadata  interface{}
	CustomFee uint64
}

// CreateAndSubmitTransaction runs the full pipeline for one payment from
// the account's address at addrIndex: fetch UTXOs, build, sign, submit.
// A broadcaster rejection comes back inside the SubmitResult; an error
// return means nothing was broadcast.
func (s *Session) CreateAndSubmitTransaction(
	ctx context.Context,
	account, addrIndex uint32,
	to, amount string,
	opts *TransferOptions,
) (engine.SubmitResult, error) {
	from, err := s.keys.DeriveAddress(account, addrIndex, false)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	utxos, err := s.SpendableOutputs(ctx, account)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	req := &engine.Request{
		From:   from.String(),
		To:     to,
		Amount: amount,
		UTXOs:  utxos,
	}
	if opts != nil {
		req.Assets = opts.Assets
		req.Metadata = opts.Metadata
		req.CustomFee = opts.CustomFee
	}

	built, err := s.engine.Build(req)
	if err != nil {
		return engine.SubmitResult{}, err
	}
	signed, err := s.engine.Sign(built, account, addrIndex)
	if err != nil {
		return engine.SubmitResult{}, err
	}

	res := s.engine.Submit(ctx, signed)
	if res.Accepted {
		// The spent outputs are gone; drop the stale cached balance and
		// any cached chain queries for the account's addresses.
		s.mu.Lock()
		delete(s.balances, account)
		s.mu.Unlock()
		if inv, ok := s.chain.(Invalidator); ok {
			if acct, ok := s.keys.Account(account); ok {
				for _, addr := range acct.Addresses() {
					inv.Invalidate(addr.String())
				}
			}
		}
	}
	return res, nil
}

// Invalidator is implemented by chain sources that cache query results
// and need to drop them once a submitted transaction spends an address's
// outputs.
type Invalidator interface {
	Invalidate(address string)
}

// ClearSensitiveData forwards to the keyring and drops cached balances.
func (s *Session) ClearSensitiveData() {
	s.keys.ClearSensitiveData()
	s.mu.Lock()
	s.balances = make(map[uint32]engine.AddressBalance)
	s.mu.Unlock()
	log.Session.Info().Msg("session cleared")
}

// SetNetwork forwards the network switch to the keyring and resets all
// per-account caches.
func (s *Session) SetNetwork(network types.Network) {
	s.keys.SetNetwork(network)
	s.mu.Lock()
	s.balances = make(map[uint32]engine.AddressBalance)
	s.mu.Unlock()
}

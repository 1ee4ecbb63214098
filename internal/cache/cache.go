// Package cache provides an optional badger-backed read-through
// accelerator for the UTXO and balance queries the engine issues. It
// never affects correctness: entries expire on a short TTL and are
// invalidated after a successful submission, and a cache miss simply
// falls through to the wrapped source.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Klingon-tech/klingpay-wallet/internal/engine"
	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL is the entry lifetime when none is configured.
const DefaultTTL = 30 * time.Second

// Key prefixes for the two cached query kinds.
const (
	prefixUTXOs   = "u/"
	prefixBalance = "b/"
)

// Source wraps an engine.ChainSource with a badger cache.
type Source struct {
	inner engine.ChainSource
	db    *badger.DB
	ttl   time.Duration
}

// Open creates a read-through cache at the given directory.
func Open(inner engine.ChainSource, dir string, ttl time.Duration) (*Source, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable badger's built-in logging.

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("cache at %s is locked by another process: %w", dir, err)
		}
		return nil, fmt.Errorf("open cache at %s: %w", dir, err)
	}
	return &Source{inner: inner, db: db, ttl: ttl}, nil
}

// Close closes the underlying database.
func (s *Source) Close() error {
	return s.db.Close()
}

// SpendableOutputs serves UTXOs from the cache when fresh, otherwise
// fetches from the wrapped source and stores the result.
func (s *Source) SpendableOutputs(ctx context.Context, address string) ([]engine.UTXO, error) {
	key := []byte(prefixUTXOs + address)

	var utxos []engine.UTXO
	if s.get(key, &utxos) {
		log.Cache.Debug().Str("address", address).Msg("utxo cache hit")
		return utxos, nil
	}

	utxos, err := s.inner.SpendableOutputs(ctx, address)
	if err != nil {
		return nil, err
	}
	s.put(key, utxos)
	return utxos, nil
}

// AddressBalance serves the balance from the cache when fresh, otherwise
// fetches from the wrapped source and stores the result.
func (s *Source) AddressBalance(ctx context.Context, address string) (engine.AddressBalance, error) {
	key := []byte(prefixBalance + address)

	var bal engine.AddressBalance
	if s.get(key, &bal) {
		log.Cache.Debug().Str("address", address).Msg("balance cache hit")
		return bal, nil
	}

	bal, err := s.inner.AddressBalance(ctx, address)
	if err != nil {
		return engine.AddressBalance{}, err
	}
	s.put(key, bal)
	return bal, nil
}

// Invalidate drops the cached entries for an address. Call after a
// successful submission spending from it.
func (s *Source) Invalidate(address string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(prefixUTXOs + address)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete([]byte(prefixBalance + address)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		log.Cache.Warn().Err(err).Str("address", address).Msg("cache invalidation failed")
	}
}

// get loads and decodes a cached entry. Returns false on miss, expiry or
// decode failure; a broken entry is treated as a miss, never an error.
func (s *Source) get(key []byte, out interface{}) bool {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// put encodes and stores an entry with the configured TTL. Storage
// failures are logged and ignored; the cache is best-effort.
func (s *Source) put(key []byte, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		log.Cache.Warn().Err(err).Msg("cache store failed")
	}
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Klingon-tech/klingpay-wallet/internal/engine"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

// countingSource counts how often the wrapped source is actually hit.
type countingSource struct {
	utxoCalls    int
	balanceCalls int
}

func (c *countingSource) SpendableOutputs(_ context.Context, address string) ([]engine.UTXO, error) {
	c.utxoCalls++
	return []engine.UTXO{{
		Outpoint: types.Outpoint{TxID: types.Hash{1}},
		Address:  address,
		Value:    1_000_000,
	}}, nil
}

func (c *countingSource) AddressBalance(_ context.Context, _ string) (engine.AddressBalance, error) {
	c.balanceCalls++
	return engine.AddressBalance{Confirmed: 1_000_000}, nil
}

func openTestCache(t *testing.T, inner engine.ChainSource) *Source {
	t.Helper()
	src, err := Open(inner, t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func TestSpendableOutputs_ReadThrough(t *testing.T) {
	inner := &countingSource{}
	src := openTestCache(t, inner)
	ctx := context.Background()

	first, err := src.SpendableOutputs(ctx, "kpx1addr")
	if err != nil {
		t.Fatalf("SpendableOutputs: %v", err)
	}
	if inner.utxoCalls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.utxoCalls)
	}

	second, err := src.SpendableOutputs(ctx, "kpx1addr")
	if err != nil {
		t.Fatalf("SpendableOutputs (cached): %v", err)
	}
	if inner.utxoCalls != 1 {
		t.Errorf("inner calls = %d, want 1 (second read served from cache)", inner.utxoCalls)
	}
	if len(second) != len(first) || second[0].Value != first[0].Value {
		t.Error("cached result differs from the source result")
	}
}

func TestAddressBalance_ReadThrough(t *testing.T) {
	inner := &countingSource{}
	src := openTestCache(t, inner)
	ctx := context.Background()

	if _, err := src.AddressBalance(ctx, "kpx1addr"); err != nil {
		t.Fatalf("AddressBalance: %v", err)
	}
	if _, err := src.AddressBalance(ctx, "kpx1addr"); err != nil {
		t.Fatalf("AddressBalance (cached): %v", err)
	}
	if inner.balanceCalls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.balanceCalls)
	}
}

func TestInvalidate(t *testing.T) {
	inner := &countingSource{}
	src := openTestCache(t, inner)
	ctx := context.Background()

	if _, err := src.SpendableOutputs(ctx, "kpx1addr"); err != nil {
		t.Fatalf("SpendableOutputs: %v", err)
	}
	src.Invalidate("kpx1addr")

	if _, err := src.SpendableOutputs(ctx, "kpx1addr"); err != nil {
		t.Fatalf("SpendableOutputs after invalidate: %v", err)
	}
	if inner.utxoCalls != 2 {
		t.Errorf("inner calls = %d, want 2 (invalidation forces a refetch)", inner.utxoCalls)
	}
}

func TestDistinctAddressesDistinctEntries(t *testing.T) {
	inner := &countingSource{}
	src := openTestCache(t, inner)
	ctx := context.Background()

	src.SpendableOutputs(ctx, "kpx1one")
	src.SpendableOutputs(ctx, "kpx1two")
	if inner.utxoCalls != 2 {
		t.Errorf("inner calls = %d, want 2 (no cross-address sharing)", inner.utxoCalls)
	}
}

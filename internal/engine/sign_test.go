package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Klingon-tech/klingpay-wallet/internal/keyring"
	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

func newSigningEngine(t *testing.T) (*Engine, *keyring.Manager) {
	t.Helper()
	keys := keyring.NewManager(types.Testnet)
	if !keys.Initialize(testMnemonic) {
		t.Fatal("Initialize rejected the test mnemonic")
	}
	if _, err := keys.CreateAccount(0, "Default"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return New(keys, tx.DefaultFeeParams(), nil), keys
}

func ownedUTXOs(address string, values ...uint64) []UTXO {
	utxos := makeUTXOs(values...)
	for i := range utxos {
		utxos[i].Address = address
	}
	return utxos
}

func TestSign_SingleOwner(t *testing.T) {
	e, keys := newSigningEngine(t)
	addr, err := keys.DeriveAddress(0, 0, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}

	built, err := e.Build(&Request{
		From:   addr.String(),
		To:     "tkpx1recipient",
		Amount: "2000000",
		UTXOs:  ownedUTXOs(addr.String(), 5_000_000, 5_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	signed, err := e.Sign(built, 0, 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(signed.Witnesses) != 1 {
		t.Errorf("witnesses = %d, want 1 (single owning key)", len(signed.Witnesses))
	}
	if !signed.Verify() {
		t.Error("signed transaction does not verify")
	}
}

func TestSign_OneWitnessPerOwner(t *testing.T) {
	e, keys := newSigningEngine(t)
	addr0, err := keys.DeriveAddress(0, 0, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	addr1, err := keys.NextAddress(0, false)
	if err != nil {
		t.Fatalf("NextAddress: %v", err)
	}

	utxos := append(
		ownedUTXOs(addr0.String(), 5_000_000),
		ownedUTXOs(addr1.String(), 5_000_000)...)
	// Distinct outpoints across the two owners.
	utxos[1].Outpoint.TxID = types.Hash{0xFF}

	built, err := e.Build(&Request{
		From:   addr0.String(),
		To:     "tkpx1recipient",
		Amount: "8000000",
		UTXOs:  utxos,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built.Inputs) != 2 {
		t.Fatalf("inputs = %d, want 2", len(built.Inputs))
	}

	signed, err := e.Sign(built, 0, 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(signed.Witnesses) != 2 {
		t.Errorf("witnesses = %d, want 2 (one per distinct owner)", len(signed.Witnesses))
	}
	if !signed.Verify() {
		t.Error("signed transaction does not verify")
	}
}

func TestSign_SharedOwnerSharesWitness(t *testing.T) {
	e, keys := newSigningEngine(t)
	addr, err := keys.DeriveAddress(0, 0, false)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}

	// Two UTXOs, one owner: the witness set must not duplicate the key.
	built, err := e.Build(&Request{
		From:   addr.String(),
		To:     "tkpx1recipient",
		Amount: "8000000",
		UTXOs:  ownedUTXOs(addr.String(), 5_000_000, 5_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built.Inputs) != 2 {
		t.Fatalf("inputs = %d, want 2", len(built.Inputs))
	}

	signed, err := e.Sign(built, 0, 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(signed.Witnesses) != 1 {
		t.Errorf("witnesses = %d, want 1", len(signed.Witnesses))
	}
}

func TestSign_NilOrEmpty(t *testing.T) {
	e, _ := newSigningEngine(t)
	if _, err := e.Sign(nil, 0, 0); !errors.Is(err, ErrNoSigningKeys) {
		t.Errorf("Sign(nil): got %v, want ErrNoSigningKeys", err)
	}
	if _, err := e.Sign(&Built{}, 0, 0); !errors.Is(err, ErrNoSigningKeys) {
		t.Errorf("Sign(empty): got %v, want ErrNoSigningKeys", err)
	}
}

func TestSign_AfterClear(t *testing.T) {
	e, keys := newSigningEngine(t)
	addr, _ := keys.DeriveAddress(0, 0, false)
	built, err := e.Build(&Request{
		From:   addr.String(),
		To:     "tkpx1recipient",
		Amount: "2000000",
		UTXOs:  ownedUTXOs(addr.String(), 10_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	keys.ClearSensitiveData()
	if _, err := e.Sign(built, 0, 0); !errors.Is(err, keyring.ErrNotInitialized) {
		t.Errorf("Sign after clear: got %v, want ErrNotInitialized", err)
	}
}

func TestSubmit_NoBroadcaster(t *testing.T) {
	e, keys := newSigningEngine(t)
	addr, _ := keys.DeriveAddress(0, 0, false)
	built, err := e.Build(&Request{
		From:   addr.String(),
		To:     "tkpx1recipient",
		Amount: "2000000",
		UTXOs:  ownedUTXOs(addr.String(), 10_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	signed, err := e.Sign(built, 0, 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	res := e.Submit(context.Background(), signed)
	if res.Accepted {
		t.Error("submission without a broadcaster should not be accepted")
	}
	if !errors.Is(res.Err, ErrSubmissionFailed) {
		t.Errorf("result error = %v, want ErrSubmissionFailed", res.Err)
	}
	if res.Fee != built.Fee {
		t.Errorf("result fee = %d, want %d", res.Fee, built.Fee)
	}
	if res.TotalOutput == 0 {
		t.Error("result should carry the total output value")
	}
}

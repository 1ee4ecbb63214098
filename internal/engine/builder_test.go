package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
)

func newTestEngine() *Engine {
	return New(nil, tx.DefaultFeeParams(), nil)
}

// balanceCheck asserts the fundamental accounting identity:
// total input = total output + fee.
func balanceCheck(t *testing.T, built *Built) {
	t.Helper()
	totalOut, err := built.Tx.TotalOutputValue()
	if err != nil {
		t.Fatalf("TotalOutputValue: %v", err)
	}
	if built.TotalInputValue() != totalOut+built.Fee {
		t.Errorf("inputs %d != outputs %d + fee %d",
			built.TotalInputValue(), totalOut, built.Fee)
	}
}

func TestBuild_SimplePayment(t *testing.T) {
	e := newTestEngine()
	built, err := e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "2000000",
		UTXOs:  makeUTXOs(10_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(built.Tx.Inputs) != 1 {
		t.Errorf("inputs = %d, want 1", len(built.Tx.Inputs))
	}
	if len(built.Tx.Outputs) != 2 {
		t.Fatalf("outputs = %d, want 2 (payment + change)", len(built.Tx.Outputs))
	}
	if built.Fee == 0 {
		t.Error("fee should be positive")
	}
	if built.Tx.Outputs[0].Address != "kpx1recipient" || built.Tx.Outputs[0].Value != 2_000_000 {
		t.Errorf("payment output = %+v", built.Tx.Outputs[0])
	}
	if built.Tx.Outputs[1].Address != "kpx1sender" {
		t.Errorf("change output address = %q, want sender", built.Tx.Outputs[1].Address)
	}
	balanceCheck(t, built)

	if built.Hash != built.Tx.Hash() {
		t.Error("built hash does not match the transaction hash")
	}
	if len(built.Raw) == 0 {
		t.Error("raw canonical encoding missing")
	}
}

func TestBuild_InsufficientFunds(t *testing.T) {
	e := newTestEngine()
	_, err := e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "2000000",
		UTXOs:  makeUTXOs(1_000_000),
	})

	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if insufficient.Available != 1_000_000 {
		t.Errorf("available = %d, want 1000000", insufficient.Available)
	}
	if insufficient.Required <= 2_000_000 {
		t.Errorf("required = %d, should include the fee", insufficient.Required)
	}
}

func TestBuild_NoUTXOs(t *testing.T) {
	e := newTestEngine()
	_, err := e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "1000",
	})
	if !errors.Is(err, ErrNoSpendableOutputs) {
		t.Errorf("expected ErrNoSpendableOutputs, got %v", err)
	}
}

func TestBuild_MalformedUTXO(t *testing.T) {
	e := newTestEngine()

	zeroValue := makeUTXOs(10_000_000)
	zeroValue[0].Value = 0
	if _, err := e.Build(&Request{
		From: "a", To: "b", Amount: "1000", UTXOs: zeroValue,
	}); !errors.Is(err, ErrMalformedUTXO) {
		t.Errorf("zero-value utxo: got %v, want ErrMalformedUTXO", err)
	}

	zeroRef := makeUTXOs(10_000_000)
	zeroRef[0].Outpoint.TxID = types.Hash{}
	if _, err := e.Build(&Request{
		From: "a", To: "b", Amount: "1000", UTXOs: zeroRef,
	}); !errors.Is(err, ErrMalformedUTXO) {
		t.Errorf("zero-txid utxo: got %v, want ErrMalformedUTXO", err)
	}
}

func TestBuild_InvalidAmount(t *testing.T) {
	e := newTestEngine()
	for _, amount := range []string{"", "-5", "abc", "1.5"} {
		if _, err := e.Build(&Request{
			From: "a", To: "b", Amount: amount, UTXOs: makeUTXOs(10_000_000),
		}); err == nil {
			t.Errorf("amount %q should be rejected", amount)
		}
	}
}

func TestBuild_AmountOverflow(t *testing.T) {
	e := newTestEngine()
	// Amounts this close to MaxUint64 cannot carry any fee on top; the
	// additions must be detected, not left to wrap into a tiny target.
	for _, amount := range []string{"18446744073709551615", "18446744073709551000"} {
		_, err := e.Build(&Request{
			From:   "kpx1sender",
			To:     "kpx1recipient",
			Amount: amount,
			UTXOs:  makeUTXOs(10_000_000),
		})

		var insufficient *InsufficientFundsError
		if !errors.As(err, &insufficient) {
			t.Fatalf("amount %s: expected InsufficientFundsError, got %v", amount, err)
		}
		if insufficient.Required != math.MaxUint64 {
			t.Errorf("amount %s: required = %d, want saturated MaxUint64", amount, insufficient.Required)
		}
		if insufficient.Available != 10_000_000 {
			t.Errorf("amount %s: available = %d, want 10000000", amount, insufficient.Available)
		}
	}

	// A pinned fee takes the same path.
	_, err := e.Build(&Request{
		From:      "kpx1sender",
		To:        "kpx1recipient",
		Amount:    "18446744073709551615",
		CustomFee: 200_000,
		UTXOs:     makeUTXOs(10_000_000),
	})
	if !IsInsufficientFunds(err) {
		t.Errorf("custom fee: expected insufficient funds, got %v", err)
	}
}

func TestBuild_ZeroAmountAssetsDropped(t *testing.T) {
	e := newTestEngine()
	empty := types.TokenID{0x03}
	kept := types.TokenID{0x04}

	// Zero-only: the output must not be raised to an asset floor, and no
	// carrier for the token is required from the candidates.
	built, err := e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "1000000", // At the plain floor; a counted asset would raise it.
		Assets: tx.AssetBundle{empty: 0},
		UTXOs:  makeUTXOs(10_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Tx.Outputs[0].Value != 1_000_000 {
		t.Errorf("output value = %d, want 1000000 (no floor raise for an empty transfer)", built.Tx.Outputs[0].Value)
	}
	if len(built.Tx.Outputs[0].Assets) != 0 {
		t.Errorf("output carries %d assets, want none", len(built.Tx.Outputs[0].Assets))
	}
	balanceCheck(t, built)

	// Mixed: the zero entry goes, the real transfer stays.
	utxos := makeUTXOs(10_000_000)
	utxos[0].Assets = tx.AssetBundle{kept: 10}
	built, err = e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "2000000",
		Assets: tx.AssetBundle{empty: 0, kept: 5},
		UTXOs:  utxos,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dest := built.Tx.Outputs[0]
	if dest.Assets[kept] != 5 {
		t.Errorf("kept asset = %d, want 5", dest.Assets[kept])
	}
	if _, ok := dest.Assets[empty]; ok {
		t.Error("zero-amount asset entry survived onto the output")
	}
	balanceCheck(t, built)
}

func TestBuild_AssetOutputRaisedToFloor(t *testing.T) {
	e := newTestEngine()
	token := types.TokenID{0x01}
	utxos := makeUTXOs(10_000_000)
	utxos[0].Assets = tx.AssetBundle{token: 100}

	built, err := e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "1000", // Far below the floor for an asset-carrying output.
		Assets: tx.AssetBundle{token: 100},
		UTXOs:  utxos,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	floor := e.FeeParams().MinOutputValue(tx.AssetBundle{token: 100})
	if built.Tx.Outputs[0].Value != floor {
		t.Errorf("asset output value = %d, want floor %d", built.Tx.Outputs[0].Value, floor)
	}
	if built.Tx.Outputs[0].Assets[token] != 100 {
		t.Errorf("asset amount = %d, want 100", built.Tx.Outputs[0].Assets[token])
	}
	balanceCheck(t, built)
}

func TestBuild_AssetChange(t *testing.T) {
	e := newTestEngine()
	token := types.TokenID{0x02}
	utxos := makeUTXOs(20_000_000)
	utxos[0].Assets = tx.AssetBundle{token: 100}

	built, err := e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "2000000",
		Assets: tx.AssetBundle{token: 40},
		UTXOs:  utxos,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built.Tx.Outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(built.Tx.Outputs))
	}

	change := built.Tx.Outputs[1]
	if change.Assets[token] != 60 {
		t.Errorf("change asset amount = %d, want 60", change.Assets[token])
	}
	if change.Value < e.FeeParams().MinOutputValue(change.Assets) {
		t.Errorf("change value %d below its floor", change.Value)
	}
	balanceCheck(t, built)

	// Nothing minted, nothing burned.
	if built.Tx.OutputAssets()[token] != 100 {
		t.Errorf("aggregate output assets = %d, want 100", built.Tx.OutputAssets()[token])
	}
}

func TestBuild_DustFoldedIntoFee(t *testing.T) {
	e := newTestEngine()
	// With a pinned fee, input = amount + fee + 500: the residual 500 is
	// below the change floor and must be folded into the fee.
	built, err := e.Build(&Request{
		From:      "kpx1sender",
		To:        "kpx1recipient",
		Amount:    "2000000",
		CustomFee: 200_000,
		UTXOs:     makeUTXOs(2_200_500),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(built.Tx.Outputs) != 1 {
		t.Fatalf("outputs = %d, want 1 (dust folded, no change)", len(built.Tx.Outputs))
	}
	if built.Fee != 200_500 {
		t.Errorf("fee = %d, want 200500 (custom fee + dust)", built.Fee)
	}
	balanceCheck(t, built)
}

func TestBuild_CustomFee(t *testing.T) {
	e := newTestEngine()
	built, err := e.Build(&Request{
		From:      "kpx1sender",
		To:        "kpx1recipient",
		Amount:    "2000000",
		CustomFee: 300_000,
		UTXOs:     makeUTXOs(10_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Fee != 300_000 {
		t.Errorf("fee = %d, want custom 300000", built.Fee)
	}
	if built.Tx.Outputs[1].Value != 7_700_000 {
		t.Errorf("change = %d, want 7700000", built.Tx.Outputs[1].Value)
	}
	balanceCheck(t, built)
}

func TestBuild_MetadataRaisesFee(t *testing.T) {
	e := newTestEngine()
	req := Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "2000000",
		UTXOs:  makeUTXOs(10_000_000),
	}

	plain, err := e.Build(&req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	withMeta := req
	withMeta.Metadata = map[string]interface{}{"msg": "invoice 42"}
	tagged, err := e.Build(&withMeta)
	if err != nil {
		t.Fatalf("Build with metadata: %v", err)
	}

	if tagged.Fee <= plain.Fee {
		t.Errorf("metadata fee %d should exceed plain fee %d", tagged.Fee, plain.Fee)
	}
	if tagged.Tx.Metadata == nil {
		t.Fatal("metadata missing from built transaction")
	}
	if _, ok := (*tagged.Tx.Metadata)[tx.TransferLabel]; !ok {
		t.Error("metadata not filed under the transfer label")
	}
	balanceCheck(t, tagged)
}

func TestBuild_CombinesUTXOs(t *testing.T) {
	e := newTestEngine()
	built, err := e.Build(&Request{
		From:   "kpx1sender",
		To:     "kpx1recipient",
		Amount: "5000000",
		UTXOs:  makeUTXOs(2_000_000, 2_000_000, 2_000_000),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(built.Tx.Inputs) != 3 {
		t.Errorf("inputs = %d, want 3", len(built.Tx.Inputs))
	}
	balanceCheck(t, built)
}

package engine

import (
	"sort"

	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
)

// selection holds the result of coin selection.
type selection struct {
	inputs []UTXO         // Selected UTXOs, largest base value first.
	total  uint64         // Sum of selected base-unit values.
	assets tx.AssetBundle // Aggregate assets carried by the selection.
}

// selectCoins chooses UTXOs covering the required base-unit total plus
// every requested asset amount. Candidates are taken whole, largest base
// value first, stopping as soon as the running totals suffice; a single
// large UTXO beats several small ones. UTXOs are never split.
func selectCoins(candidates []UTXO, required uint64, needed tx.AssetBundle) (*selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoSpendableOutputs
	}

	sorted := make([]UTXO, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	sel := &selection{assets: make(tx.AssetBundle)}
	used := make([]bool, len(sorted))

	// Base-unit pass: accumulate until the target is met.
	for i, u := range sorted {
		if sel.total >= required {
			break
		}
		used[i] = true
		sel.inputs = append(sel.inputs, u)
		sel.total += u.Value
		for id, amt := range u.Assets {
			sel.assets[id] += amt
		}
	}
	if sel.total < required {
		var available uint64
		for _, u := range sorted {
			available += u.Value
		}
		return nil, &InsufficientFundsError{Required: required, Available: available}
	}

	// Asset pass: pull in carriers for any still-uncovered asset, in the
	// same largest-first order for determinism.
	for _, id := range needed.SortedIDs() {
		want := needed[id]
		for i, u := range sorted {
			if sel.assets[id] >= want {
				break
			}
			if used[i] || u.Assets[id] == 0 {
				continue
			}
			used[i] = true
			sel.inputs = append(sel.inputs, u)
			sel.total += u.Value
			for aid, amt := range u.Assets {
				sel.assets[aid] += amt
			}
		}
		if sel.assets[id] < want {
			var available uint64
			for _, u := range sorted {
				available += u.Assets[id]
			}
			return nil, &InsufficientFundsError{Required: want, Available: available, Asset: id}
		}
	}

	if len(sel.assets) == 0 {
		sel.assets = nil
	}
	return sel, nil
}

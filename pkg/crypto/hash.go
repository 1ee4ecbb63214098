// Package crypto provides the cryptographic primitives the wallet engine
// relies on: BLAKE3 hashing and Schnorr/secp256k1 signing. The engine
// decides which bytes go in; the math lives in the underlying libraries.
package crypto

import (
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// KeyHashFromPubKey derives a key hash from a compressed public key.
// KeyHash = BLAKE3(compressed_pubkey)[:20].
func KeyHashFromPubKey(pubKey []byte) types.KeyHash {
	h := Hash(pubKey)
	var kh types.KeyHash
	copy(kh[:], h[:types.KeyHashSize])
	return kh
}

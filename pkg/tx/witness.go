package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/Klingon-tech/klingpay-wallet/pkg/crypto"
)

// Witness authorizes the spending of inputs owned by one key.
type Witness struct {
	PubKey    []byte
	Signature []byte
}

// witnessJSON is the JSON representation of Witness with hex-encoded fields.
type witnessJSON struct {
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

// MarshalJSON encodes the witness with hex-encoded pubkey and signature.
func (w Witness) MarshalJSON() ([]byte, error) {
	return json.Marshal(witnessJSON{
		PubKey:    hex.EncodeToString(w.PubKey),
		Signature: hex.EncodeToString(w.Signature),
	})
}

// UnmarshalJSON decodes a witness with hex-encoded pubkey and signature.
func (w *Witness) UnmarshalJSON(data []byte) error {
	var j witnessJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	pub, err := hex.DecodeString(j.PubKey)
	if err != nil {
		return err
	}
	sig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return err
	}
	w.PubKey = pub
	w.Signature = sig
	return nil
}

// SignedTransaction is a transaction body plus its witness set, one
// witness per distinct key that authorizes an input. It is single-use:
// re-signing an already-signed transaction is not supported.
type SignedTransaction struct {
	Tx        *Transaction `json:"tx"`
	Witnesses []Witness    `json:"witnesses"`
}

// Bytes returns the wire encoding handed to submission: the canonical
// body bytes followed by the witness section.
func (s *SignedTransaction) Bytes() []byte {
	buf := s.Tx.SigningBytes()
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Witnesses)))
	for _, w := range s.Witnesses {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(w.PubKey)))
		buf = append(buf, w.PubKey...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(w.Signature)))
		buf = append(buf, w.Signature...)
	}
	return buf
}

// Verify checks every witness signature against the transaction hash.
func (s *SignedTransaction) Verify() bool {
	if len(s.Witnesses) == 0 {
		return false
	}
	hash := s.Tx.Hash()
	for _, w := range s.Witnesses {
		if !crypto.VerifySignature(hash[:], w.Signature, w.PubKey) {
			return false
		}
	}
	return true
}

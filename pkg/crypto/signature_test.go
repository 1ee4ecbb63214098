package crypto

import (
	"bytes"
	"testing"
)

func TestSignVerify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Zero()

	hash := Hash([]byte("payload"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !VerifySignature(hash[:], sig, key.PublicKey()) {
		t.Error("valid signature should verify")
	}

	other := Hash([]byte("other payload"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature over a different hash should not verify")
	}
}

func TestSign_RejectsBadHashLength(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Zero()

	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("signing a non-32-byte hash should fail")
	}
}

func TestVerifySignature_Garbage(t *testing.T) {
	hash := Hash([]byte("x"))
	if VerifySignature(hash[:], []byte("not a sig"), []byte("not a key")) {
		t.Error("garbage inputs should not verify")
	}
}

func TestPrivateKeyFromBytes_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Zero()

	restored, err := PrivateKeyFromBytes(key.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	defer restored.Zero()

	if !bytes.Equal(restored.PublicKey(), key.PublicKey()) {
		t.Error("restored key has a different public key")
	}
}

func TestKeyHashFromPubKey_Deterministic(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	defer key.Zero()

	a := KeyHashFromPubKey(key.PublicKey())
	b := KeyHashFromPubKey(key.PublicKey())
	if a != b {
		t.Error("key hash must be deterministic")
	}
	if a.IsZero() {
		t.Error("key hash of a real key should not be zero")
	}
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
}

package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func makeKeyHash(b byte) KeyHash {
	var h KeyHash
	for i := range h {
		h[i] = b
	}
	return h
}

func TestBaseAddress_RoundTrip(t *testing.T) {
	addr := NewBaseAddress(Mainnet, makeKeyHash(0x11), makeKeyHash(0x22))
	s := addr.String()
	if !strings.HasPrefix(s, MainnetHRP+"1") {
		t.Errorf("address %q should start with %q", s, MainnetHRP+"1")
	}

	parsed, err := ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if !parsed.Equal(addr) {
		t.Errorf("parsed address != original")
	}
	if parsed.Kind != AddressBase {
		t.Errorf("kind = %v, want AddressBase", parsed.Kind)
	}
	if parsed.Network != Mainnet {
		t.Errorf("network = %v, want Mainnet", parsed.Network)
	}
	if parsed.Payment != makeKeyHash(0x11) {
		t.Errorf("payment hash mismatch")
	}
	if parsed.Stake != makeKeyHash(0x22) {
		t.Errorf("stake hash mismatch")
	}
}

func TestRewardAddress_RoundTrip(t *testing.T) {
	addr := NewRewardAddress(Testnet, makeKeyHash(0x33))
	s := addr.String()
	if !strings.HasPrefix(s, TestnetRewardHRP+"1") {
		t.Errorf("address %q should start with %q", s, TestnetRewardHRP+"1")
	}

	parsed, err := ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if parsed.Kind != AddressReward {
		t.Errorf("kind = %v, want AddressReward", parsed.Kind)
	}
	if !parsed.Payment.IsZero() {
		t.Errorf("reward address should have zero payment hash")
	}
	if parsed.Stake != makeKeyHash(0x33) {
		t.Errorf("stake hash mismatch")
	}
}

func TestAddress_NetworkDiscriminant(t *testing.T) {
	payment, stake := makeKeyHash(0x01), makeKeyHash(0x02)
	mainnet := NewBaseAddress(Mainnet, payment, stake)
	testnet := NewBaseAddress(Testnet, payment, stake)

	if mainnet.String() == testnet.String() {
		t.Error("same key hashes on different networks must encode differently")
	}
	if mainnet.Payload()[0] == testnet.Payload()[0] {
		t.Error("header bytes should differ between networks")
	}
}

func TestAddress_HeaderByte(t *testing.T) {
	base := NewBaseAddress(Mainnet, makeKeyHash(1), makeKeyHash(2))
	if got := base.Payload()[0]; got != 0x01 {
		t.Errorf("base mainnet header = 0x%02x, want 0x01", got)
	}
	reward := NewRewardAddress(Testnet, makeKeyHash(2))
	if got := reward.Payload()[0]; got != 0xE0 {
		t.Errorf("reward testnet header = 0x%02x, want 0xE0", got)
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	cases := []string{
		"",
		"notanaddress",
		"kpx1",
		"btc1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq",
	}
	for _, s := range cases {
		if _, err := ParseAddress(s); err == nil {
			t.Errorf("ParseAddress(%q) should fail", s)
		}
	}
}

func TestParseAddress_Corrupted(t *testing.T) {
	addr := NewBaseAddress(Mainnet, makeKeyHash(0x11), makeKeyHash(0x22))
	s := addr.String()

	// Flip one character in the data part; the checksum must catch it.
	corrupted := []byte(s)
	last := len(corrupted) - 1
	if corrupted[last] == 'q' {
		corrupted[last] = 'p'
	} else {
		corrupted[last] = 'q'
	}
	if _, err := ParseAddress(string(corrupted)); err == nil {
		t.Error("corrupted address should fail to parse")
	}
}

func TestParseAddress_HRPHeaderMismatch(t *testing.T) {
	// Encode a base payload under the reward HRP; the header byte and the
	// HRP then disagree on the address kind.
	base := NewBaseAddress(Mainnet, makeKeyHash(0x11), makeKeyHash(0x22))
	s, err := Bech32Encode(MainnetRewardHRP, base.Payload())
	if err != nil {
		t.Fatalf("Bech32Encode: %v", err)
	}
	if _, err := ParseAddress(s); err == nil {
		t.Error("HRP/header mismatch should fail to parse")
	}
}

func TestAddress_JSONRoundTrip(t *testing.T) {
	addr := NewBaseAddress(Testnet, makeKeyHash(0x44), makeKeyHash(0x55))
	data, err := json.Marshal(addr)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Address
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Equal(addr) {
		t.Error("JSON round trip changed the address")
	}
}

func TestBech32_RoundTrip(t *testing.T) {
	payload := []byte{0x01, 0xAB, 0xCD, 0xEF, 0x00, 0xFF}
	s, err := Bech32Encode("kpx", payload)
	if err != nil {
		t.Fatalf("Bech32Encode: %v", err)
	}
	hrp, decoded, err := Bech32Decode(s)
	if err != nil {
		t.Fatalf("Bech32Decode: %v", err)
	}
	if hrp != "kpx" {
		t.Errorf("hrp = %q, want kpx", hrp)
	}
	if len(decoded) != len(payload) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(payload))
	}
	for i := range payload {
		if decoded[i] != payload[i] {
			t.Fatalf("payload mismatch at byte %d", i)
		}
	}
}

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// KeyHashSize is the length of a key hash in bytes.
const KeyHashSize = 20

// KeyHash is a 160-bit hash of a compressed public key.
type KeyHash [KeyHashSize]byte

// IsZero returns true if the key hash is all zeros.
func (k KeyHash) IsZero() bool {
	return k == KeyHash{}
}

// Network identifies the ledger a key or address belongs to.
// The discriminant is baked into every address header byte, so an
// address string is only valid on the network it was derived for.
type Network byte

const (
	Testnet Network = 0
	Mainnet Network = 1
)

// String returns "mainnet" or "testnet".
func (n Network) String() string {
	if n == Mainnet {
		return "mainnet"
	}
	return "testnet"
}

// AddressKind distinguishes payment addresses from reward addresses.
type AddressKind byte

const (
	// AddressBase is a payment address carrying both a payment key hash
	// and a stake key hash.
	AddressBase AddressKind = 0x0

	// AddressReward is a stake/reward address carrying only a stake key hash.
	AddressReward AddressKind = 0xE
)

// Address HRP (human-readable part) constants for bech32 encoding.
const (
	MainnetHRP       = "kpx"
	TestnetHRP       = "tkpx"
	MainnetRewardHRP = "kpr"
	TestnetRewardHRP = "tkpr"
)

// Address is a Klingpay address. Base addresses combine a payment key
// hash and a stake key hash; reward addresses carry the stake key hash
// only. The header byte encodes kind (high nibble) and network
// discriminant (low nibble).
type Address struct {
	Kind    AddressKind
	Network Network
	Payment KeyHash // Zero for reward addresses.
	Stake   KeyHash
}

// NewBaseAddress builds a payment address from a payment and stake key hash.
func NewBaseAddress(network Network, payment, stake KeyHash) Address {
	return Address{Kind: AddressBase, Network: network, Payment: payment, Stake: stake}
}

// NewRewardAddress builds a stake/reward address from a stake key hash.
func NewRewardAddress(network Network, stake KeyHash) Address {
	return Address{Kind: AddressReward, Network: network, Stake: stake}
}

// IsZero returns true for the zero-value address.
func (a Address) IsZero() bool {
	return a.Payment.IsZero() && a.Stake.IsZero()
}

// header returns the address header byte: kind<<4 | network.
func (a Address) header() byte {
	return byte(a.Kind)<<4 | byte(a.Network)&0x0f
}

// Payload returns the raw address bytes: header | payment hash | stake hash
// for base addresses, header | stake hash for reward addresses.
func (a Address) Payload() []byte {
	if a.Kind == AddressReward {
		out := make([]byte, 0, 1+KeyHashSize)
		out = append(out, a.header())
		return append(out, a.Stake[:]...)
	}
	out := make([]byte, 0, 1+2*KeyHashSize)
	out = append(out, a.header())
	out = append(out, a.Payment[:]...)
	return append(out, a.Stake[:]...)
}

// HRP returns the bech32 human-readable part for this address.
func (a Address) HRP() string {
	switch {
	case a.Kind == AddressReward && a.Network == Mainnet:
		return MainnetRewardHRP
	case a.Kind == AddressReward:
		return TestnetRewardHRP
	case a.Network == Mainnet:
		return MainnetHRP
	default:
		return TestnetHRP
	}
}

// String returns the bech32-encoded address (e.g. "kpx1...").
func (a Address) String() string {
	s, err := Bech32Encode(a.HRP(), a.Payload())
	if err != nil {
		// Unreachable for a well-formed address; keep a stable fallback.
		return fmt.Sprintf("%s:%x", a.HRP(), a.Payload())
	}
	return s
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a bech32 address string of either kind.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	hrp, payload, err := Bech32Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address: %w", err)
	}
	switch hrp {
	case MainnetHRP, TestnetHRP, MainnetRewardHRP, TestnetRewardHRP:
	default:
		return Address{}, fmt.Errorf("unknown address HRP %q", hrp)
	}
	if len(payload) == 0 {
		return Address{}, fmt.Errorf("empty address payload")
	}

	kind := AddressKind(payload[0] >> 4)
	network := Network(payload[0] & 0x0f)
	body := payload[1:]

	var a Address
	switch kind {
	case AddressBase:
		if len(body) != 2*KeyHashSize {
			return Address{}, fmt.Errorf("base address payload must be %d bytes, got %d", 2*KeyHashSize, len(body))
		}
		a.Kind = AddressBase
		copy(a.Payment[:], body[:KeyHashSize])
		copy(a.Stake[:], body[KeyHashSize:])
	case AddressReward:
		if len(body) != KeyHashSize {
			return Address{}, fmt.Errorf("reward address payload must be %d bytes, got %d", KeyHashSize, len(body))
		}
		a.Kind = AddressReward
		copy(a.Stake[:], body)
	default:
		return Address{}, fmt.Errorf("unknown address kind 0x%x", byte(kind))
	}
	a.Network = network

	// HRP and header byte must agree on kind and network.
	if rebuilt := a.HRP(); rebuilt != hrp {
		return Address{}, fmt.Errorf("address HRP %q does not match header (want %q)", hrp, rebuilt)
	}
	return a, nil
}

// Equal reports whether two addresses have identical payloads.
func (a Address) Equal(b Address) bool {
	return bytes.Equal(a.Payload(), b.Payload())
}

package keyring

import (
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/Klingon-tech/klingpay-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
	"github.com/tyler-smith/go-bip32"
)

// Manager holds the single root identity of a wallet session and derives
// accounts, addresses and signing keys from it. Exactly one root exists
// at a time; Initialize, ClearSensitiveData and SetNetwork replace or
// erase it as a whole, never partially, so concurrent readers either see
// a fully valid identity or none.
type Manager struct {
	mu       sync.RWMutex
	network  types.Network
	root     *HDKey
	accounts map[uint32]*Account
}

// NewManager creates a manager with no root identity.
func NewManager(network types.Network) *Manager {
	return &Manager{
		network:  network,
		accounts: make(map[uint32]*Account),
	}
}

// Network returns the active network.
func (m *Manager) Network() types.Network {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.network
}

// IsInitialized reports whether a root identity is present.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.root != nil
}

// Initialize validates the mnemonic and derives the root identity from
// it. An invalid mnemonic is an expected outcome, not a defect: it
// returns false and leaves any prior state untouched. On success a
// pre-existing root is zeroed and replaced and the account table reset.
func (m *Manager) Initialize(mnemonic string) bool {
	if !ValidateMnemonic(mnemonic) {
		log.Keyring.Debug().Msg("mnemonic rejected")
		return false
	}
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return false
	}
	root, err := NewMasterKey(seed)
	crypto.Zero(seed)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root != nil {
		m.root.Zero()
	}
	m.root = root
	m.accounts = make(map[uint32]*Account)
	log.Keyring.Info().Str("network", m.network.String()).Msg("root identity initialized")
	return true
}

// InitializeFromSeed derives the root identity directly from a seed, for
// sessions restored from an encrypted keystore. The caller keeps
// ownership of the seed bytes and must zero them after the call.
func (m *Manager) InitializeFromSeed(seed []byte) error {
	root, err := NewMasterKey(seed)
	if err != nil {
		return fmt.Errorf("derive root: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root != nil {
		m.root.Zero()
	}
	m.root = root
	m.accounts = make(map[uint32]*Account)
	log.Keyring.Info().Str("network", m.network.String()).Msg("root identity restored from seed")
	return nil
}

// ClearSensitiveData zeroes and releases the root identity. Idempotent;
// derivation and signing calls fail with ErrNotInitialized afterwards.
func (m *Manager) ClearSensitiveData() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == nil {
		return
	}
	m.root.Zero()
	m.root = nil
	log.Keyring.Info().Msg("root identity cleared")
}

// SetNetwork switches the active network. Addresses derived for the old
// network are invalid under the new discriminant, so the root identity
// is erased and the account table dropped; the caller must re-initialize.
func (m *Manager) SetNetwork(network types.Network) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root != nil {
		m.root.Zero()
		m.root = nil
	}
	m.network = network
	m.accounts = make(map[uint32]*Account)
	log.Keyring.Info().Str("network", network.String()).Msg("network switched, identity cleared")
}

// CreateAccount derives the account branch at the given index, its first
// external address and its reward address. Creating an index twice
// returns the existing account.
func (m *Manager) CreateAccount(index uint32, name string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == nil {
		return nil, ErrNotInitialized
	}
	if index >= MaxIndex {
		return nil, fmt.Errorf("%w: account %d", ErrInvalidIndex, index)
	}
	if acct, ok := m.accounts[index]; ok {
		return acct.clone(), nil
	}

	addr, err := m.deriveAddressLocked(index, 0, false)
	if err != nil {
		return nil, err
	}
	reward, err := m.rewardAddressLocked(index)
	if err != nil {
		return nil, err
	}

	acct := &Account{
		Index:    index,
		Name:     name,
		External: []types.Address{addr},
		Reward:   reward,
	}
	m.accounts[index] = acct
	log.Keyring.Info().Uint32("account", index).Str("address", addr.String()).Msg("account created")
	return acct.clone(), nil
}

// Account returns a copy of the account record at the given index.
func (m *Manager) Account(index uint32) (*Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[index]
	if !ok {
		return nil, false
	}
	return acct.clone(), true
}

// DeriveAddress derives the address at (account, index) on the external
// or internal chain. It is a pure function of its inputs and the root
// identity: same inputs always yield the same address, and any differing
// component yields a different one.
func (m *Manager) DeriveAddress(account, index uint32, change bool) (types.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.root == nil {
		return types.Address{}, ErrNotInitialized
	}
	if account >= MaxIndex || index >= MaxIndex {
		return types.Address{}, fmt.Errorf("%w: account %d index %d", ErrInvalidIndex, account, index)
	}
	return m.deriveAddressLocked(account, index, change)
}

// NextAddress derives the next unused address on the account's external
// or internal chain and appends it to the account record.
func (m *Manager) NextAddress(account uint32, change bool) (types.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.root == nil {
		return types.Address{}, ErrNotInitialized
	}
	acct, ok := m.accounts[account]
	if !ok {
		return types.Address{}, fmt.Errorf("%w: account %d not created", ErrInvalidIndex, account)
	}

	index := uint32(len(acct.External))
	if change {
		index = uint32(len(acct.Internal))
	}
	addr, err := m.deriveAddressLocked(account, index, change)
	if err != nil {
		return types.Address{}, err
	}
	if change {
		acct.Internal = append(acct.Internal, addr)
	} else {
		acct.External = append(acct.External, addr)
	}
	return addr, nil
}

// RewardAddress returns the account's stake/reward address.
func (m *Manager) RewardAddress(account uint32) (types.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.root == nil {
		return types.Address{}, ErrNotInitialized
	}
	if account >= MaxIndex {
		return types.Address{}, fmt.Errorf("%w: account %d", ErrInvalidIndex, account)
	}
	return m.rewardAddressLocked(account)
}

// FindAddress locates a derived address string within an account record
// and reports its derivation coordinates.
func (m *Manager) FindAddress(account uint32, address string) (index uint32, change bool, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, exists := m.accounts[account]
	if !exists {
		return 0, false, false
	}
	for i, a := range acct.External {
		if a.String() == address {
			return uint32(i), false, true
		}
	}
	for i, a := range acct.Internal {
		if a.String() == address {
			return uint32(i), true, true
		}
	}
	return 0, false, false
}

// PaymentSigningKey derives the payment signing key at (account, index)
// on the external or internal chain. The caller owns the returned key and
// must Zero it when done.
func (m *Manager) PaymentSigningKey(account, index uint32, change bool) (*crypto.PrivateKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.root == nil {
		return nil, ErrNotInitialized
	}
	if account >= MaxIndex || index >= MaxIndex {
		return nil, fmt.Errorf("%w: account %d index %d", ErrInvalidIndex, account, index)
	}
	return m.signingKeyLocked(account, chainFor(change), index)
}

// StakeSigningKey derives the account's stake signing key. The caller
// owns the returned key and must Zero it when done.
func (m *Manager) StakeSigningKey(account uint32) (*crypto.PrivateKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.root == nil {
		return nil, ErrNotInitialized
	}
	if account >= MaxIndex {
		return nil, fmt.Errorf("%w: account %d", ErrInvalidIndex, account)
	}
	return m.signingKeyLocked(account, ChainStaking, StakeKeyIndex)
}

// deriveAddressLocked combines the payment and stake key hashes into a
// base address. Caller must hold the lock and have checked the root.
func (m *Manager) deriveAddressLocked(account, index uint32, change bool) (types.Address, error) {
	payKey, err := m.root.DerivePath(Purpose, CoinTypeKlingpay, bip32.FirstHardenedChild+account, chainFor(change), index)
	if err != nil {
		return types.Address{}, fmt.Errorf("derive payment key: %w", err)
	}
	payment := payKey.KeyHash()
	payKey.Zero()

	stake, err := m.stakeKeyHashLocked(account)
	if err != nil {
		return types.Address{}, err
	}
	return types.NewBaseAddress(m.network, payment, stake), nil
}

// rewardAddressLocked builds the stake-hash-only reward address.
func (m *Manager) rewardAddressLocked(account uint32) (types.Address, error) {
	stake, err := m.stakeKeyHashLocked(account)
	if err != nil {
		return types.Address{}, err
	}
	return types.NewRewardAddress(m.network, stake), nil
}

func (m *Manager) stakeKeyHashLocked(account uint32) (types.KeyHash, error) {
	stakeKey, err := m.root.DerivePath(Purpose, CoinTypeKlingpay, bip32.FirstHardenedChild+account, ChainStaking, StakeKeyIndex)
	if err != nil {
		return types.KeyHash{}, fmt.Errorf("derive stake key: %w", err)
	}
	hash := stakeKey.KeyHash()
	stakeKey.Zero()
	return hash, nil
}

func (m *Manager) signingKeyLocked(account, chain, index uint32) (*crypto.PrivateKey, error) {
	key, err := m.root.DerivePath(Purpose, CoinTypeKlingpay, bip32.FirstHardenedChild+account, chain, index)
	if err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	signer, err := key.Signer()
	key.Zero()
	if err != nil {
		return nil, err
	}
	return signer, nil
}

package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Klingon-tech/klingpay-wallet/internal/log"
)

// walletFile is the on-disk JSON format for an encrypted wallet.
type walletFile struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	Network       string    `json:"network"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
	AccountNames  []string  `json:"account_names,omitempty"` // Position = account index.
}

// Keystore manages encrypted wallet files in a directory.
type Keystore struct {
	path string
}

// New creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func New(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create creates a new encrypted wallet file from a seed.
func (ks *Keystore) Create(name, network string, seed, password []byte, params EncryptionParams) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	wf := walletFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		Network:       network,
		EncryptedSeed: encrypted,
	}
	if err := ks.writeFile(path, &wf); err != nil {
		return err
	}
	log.Keystore.Info().Str("wallet", name).Msg("wallet file created")
	return nil
}

// Load decrypts a wallet and returns the seed bytes. The caller owns the
// returned bytes and must zero them when done.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	wf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(wf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet: %w", err)
	}
	return seed, nil
}

// Network returns the network a wallet file was created for.
func (ks *Keystore) Network(name string) (string, error) {
	wf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return "", err
	}
	return wf.Network, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}

// readFile loads and parses a wallet file.
func (ks *Keystore) readFile(path string) (*walletFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("wallet not found at %s", path)
		}
		return nil, fmt.Errorf("read wallet file: %w", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse wallet file: %w", err)
	}
	return &wf, nil
}

// writeFile serializes and writes a wallet file with owner-only permissions.
func (ks *Keystore) writeFile(path string, wf *walletFile) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet file: %w", err)
	}
	return nil
}

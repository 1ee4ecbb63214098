package keyring

import "errors"

// Keyring errors.
var (
	// ErrNotInitialized is returned by derivation and signing calls made
	// before Initialize or after ClearSensitiveData.
	ErrNotInitialized = errors.New("keyring not initialized")

	// ErrInvalidIndex is returned when an account or address index falls
	// in the hardened range.
	ErrInvalidIndex = errors.New("index out of range")
)

package store

import "errors"

// Store errors
var (
	// ErrNotInitialized is returned by Save before Initialize has succeeded,
	// and by reads when the table does not exist.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrInvalidKey is returned for a row with an empty symbol or date.
	ErrInvalidKey = errors.New("invalid row key")

	// ErrUnknownDriver is returned by Open for an unsupported STORE_DRIVER.
	ErrUnknownDriver = errors.New("unknown store driver")
)

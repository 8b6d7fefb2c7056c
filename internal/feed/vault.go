package feed

import "io"

// Vault stores encoded snapshots. All operations stream through
// io.Reader/io.Writer.
type Vault interface {
	// PutSnapshot stores a snapshot under id. size is the number of bytes
	// that will be read from r.
	PutSnapshot(id string, r io.Reader, size int64) error

	// GetSnapshot writes the snapshot stored under id to w.
	GetSnapshot(id string, w io.Writer) error

	// ListSnapshots returns the stored snapshot IDs, oldest first.
	ListSnapshots() ([]string, error)

	// ValidateSetup verifies that the vault is accessible.
	ValidateSetup() error
}

// Encryptor seals snapshots before they leave the process.
type Encryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(passphrase string, r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w. It fails if
	// the passphrase is wrong.
	Decrypt(passphrase string, r io.Reader, w io.Writer) error

	// NeedsPassphrase reports whether Encrypt and Decrypt use the passphrase.
	NeedsPassphrase() bool
}

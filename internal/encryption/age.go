// Package encryption seals snapshot payloads before they are written to a
// vault.
package encryption

import (
	"errors"
	"fmt"
	"io"

	"filippo.io/age"

	"feedstore/internal/feed"
)

// DefaultWorkFactor is the scrypt work factor used for new snapshots.
const DefaultWorkFactor = 18

// AgeEncryptor implements feed.Encryptor with age's scrypt passphrase
// recipient. Each snapshot is sealed directly with the passphrase.
type AgeEncryptor struct {
	workFactor int
}

var _ feed.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor creates an AgeEncryptor. A workFactor of zero uses
// DefaultWorkFactor.
func NewAgeEncryptor(workFactor int) *AgeEncryptor {
	if workFactor <= 0 {
		workFactor = DefaultWorkFactor
	}
	return &AgeEncryptor{workFactor: workFactor}
}

// Encrypt reads plaintext from r and writes age ciphertext to w.
func (e *AgeEncryptor) Encrypt(passphrase string, r io.Reader, w io.Writer) error {
	if passphrase == "" {
		return errors.New("passphrase required")
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(e.workFactor)

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// Decrypt reads age ciphertext from r and writes plaintext to w.
func (e *AgeEncryptor) Decrypt(passphrase string, r io.Reader, w io.Writer) error {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

func (e *AgeEncryptor) NeedsPassphrase() bool { return true }

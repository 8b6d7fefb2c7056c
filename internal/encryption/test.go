package encryption

import (
	"bytes"
	"fmt"
	"io"

	"feedstore/internal/feed"
)

// testHeader is prepended to data by TestEncryptor so sealed output differs
// from plaintext while staying deterministic and reversible.
var testHeader = []byte("FSENC\x00\x00\x00")

// TestEncryptor is a deterministic stand-in for tests. It ignores the
// passphrase and only frames the data with a fixed header.
type TestEncryptor struct{}

var _ feed.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Encrypt(passphrase string, r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Decrypt(passphrase string, r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) NeedsPassphrase() bool { return false }

// NoneEncryptor passes data through unchanged.
type NoneEncryptor struct{}

var _ feed.Encryptor = NoneEncryptor{}

func (NoneEncryptor) Encrypt(_ string, r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

func (NoneEncryptor) Decrypt(_ string, r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

func (NoneEncryptor) NeedsPassphrase() bool { return false }

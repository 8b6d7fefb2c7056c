package encryption

import (
	"bytes"
	"testing"
)

// testWorkFactor keeps scrypt fast in tests.
const testWorkFactor = 10

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewAgeEncryptor(testWorkFactor)
			const passphrase = "test-passphrase"

			var encrypted bytes.Buffer
			if err := e.Encrypt(passphrase, bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output contains the plaintext")
			}

			var decrypted bytes.Buffer
			if err := e.Decrypt(passphrase, bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_DecryptWrongPassphrase(t *testing.T) {
	t.Parallel()

	e := NewAgeEncryptor(testWorkFactor)
	var encrypted bytes.Buffer
	if err := e.Encrypt("correct-passphrase", bytes.NewReader([]byte("data")), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	var out bytes.Buffer
	if err := e.Decrypt("wrong-passphrase", &encrypted, &out); err == nil {
		t.Error("Decrypt() with wrong passphrase should return error")
	}
}

func TestAgeEncryptor_EmptyPassphrase(t *testing.T) {
	t.Parallel()

	e := NewAgeEncryptor(testWorkFactor)
	var buf bytes.Buffer
	if err := e.Encrypt("", bytes.NewReader([]byte("data")), &buf); err == nil {
		t.Error("Encrypt() with empty passphrase should return error")
	}
	if !e.NeedsPassphrase() {
		t.Error("NeedsPassphrase() = false, want true")
	}
}

func TestAgeEncryptor_DecryptGarbage(t *testing.T) {
	t.Parallel()

	e := NewAgeEncryptor(testWorkFactor)
	var out bytes.Buffer
	if err := e.Decrypt("p", bytes.NewReader([]byte("not age data")), &out); err == nil {
		t.Error("Decrypt() of non-age input should return error")
	}
}

func TestNewAgeEncryptor_DefaultWorkFactor(t *testing.T) {
	if got := NewAgeEncryptor(0).workFactor; got != DefaultWorkFactor {
		t.Errorf("workFactor = %d, want %d", got, DefaultWorkFactor)
	}
}

package encryption

import (
	"fmt"

	"feedstore/internal/config"
	"feedstore/internal/feed"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (feed.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(0), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return NoneEncryptor{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}

package snapshot

import (
	"bytes"
	"fmt"

	"feedstore/internal/feed"
)

// Manager pushes encrypted snapshots of the storages to a vault and pulls
// them back.
type Manager struct {
	content   feed.ContentStorage
	journal   feed.JournalStorage
	encryptor feed.Encryptor
	vault     feed.Vault
	clock     feed.Clock
	ids       feed.IDGenerator
	logger    feed.Logger

	vaultChecked bool
}

// NewManager creates a Manager with the provided dependencies.
func NewManager(content feed.ContentStorage, journal feed.JournalStorage, encryptor feed.Encryptor, vault feed.Vault, clock feed.Clock, ids feed.IDGenerator, logger feed.Logger) *Manager {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &Manager{
		content:   content,
		journal:   journal,
		encryptor: encryptor,
		vault:     vault,
		clock:     clock,
		ids:       ids,
		logger:    logger,
	}
}

// NeedsPassphrase reports whether Push and Pull require a passphrase.
func (m *Manager) NeedsPassphrase() bool {
	return m.encryptor.NeedsPassphrase()
}

// Push exports the storages, encrypts the result and stores it in the
// vault. It returns the new snapshot's ID.
func (m *Manager) Push(passphrase string) (string, error) {
	if err := m.checkVault(); err != nil {
		return "", err
	}
	s, err := Export(m.content, m.journal, m.clock, m.ids)
	if err != nil {
		return "", err
	}

	var plain bytes.Buffer
	if err := Encode(&plain, s); err != nil {
		return "", err
	}
	var sealed bytes.Buffer
	if err := m.encryptor.Encrypt(passphrase, &plain, &sealed); err != nil {
		return "", fmt.Errorf("encrypting snapshot: %w", err)
	}

	size := int64(sealed.Len())
	if err := m.vault.PutSnapshot(s.ID, &sealed, size); err != nil {
		return "", fmt.Errorf("storing snapshot %s: %w", s.ID, err)
	}

	m.logger.Info("snapshot pushed", "id", s.ID, "content", len(s.Content), "journals", len(s.Journals), "bytes", size)
	return s.ID, nil
}

// Pull fetches snapshot id, decrypts it and replaces the storages' data
// with it.
func (m *Manager) Pull(id, passphrase string) error {
	if err := m.checkVault(); err != nil {
		return err
	}
	var sealed bytes.Buffer
	if err := m.vault.GetSnapshot(id, &sealed); err != nil {
		return err
	}

	var plain bytes.Buffer
	if err := m.encryptor.Decrypt(passphrase, &sealed, &plain); err != nil {
		return fmt.Errorf("decrypting snapshot %s: %w", id, err)
	}
	s, err := Decode(&plain)
	if err != nil {
		return err
	}
	if s.ID != id {
		m.logger.Warn("snapshot id mismatch", "requested", id, "stored", s.ID)
	}

	if err := Restore(s, m.content, m.journal); err != nil {
		return err
	}
	m.logger.Info("snapshot pulled", "id", id, "content", len(s.Content), "journals", len(s.Journals))
	return nil
}

// List returns the vault's snapshot IDs, oldest first.
func (m *Manager) List() ([]string, error) {
	if err := m.checkVault(); err != nil {
		return nil, err
	}
	return m.vault.ListSnapshots()
}

// checkVault runs the vault's setup check the first time it is used.
func (m *Manager) checkVault() error {
	if m.vaultChecked {
		return nil
	}
	if err := m.vault.ValidateSetup(); err != nil {
		return fmt.Errorf("vault not ready: %w", err)
	}
	m.vaultChecked = true
	return nil
}

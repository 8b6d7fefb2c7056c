package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"feedstore/internal/feed"
)

// JournalStore implements feed.JournalStorage on the journals and
// journal_entries tables. Each operation runs in its own transaction.
type JournalStore struct {
	mu       sync.Mutex
	db       *sql.DB
	counters feed.JournalCounters
	logger   feed.Logger
}

// NewJournalStore returns a store over d. d must outlive the store.
func NewJournalStore(d *SQLiteDatabase, logger feed.Logger) *JournalStore {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &JournalStore{db: d.db, logger: logger}
}

func (s *JournalStore) Read(journalName string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Reads++
	s.counters.Record(journalName)

	rows, err := s.db.QueryContext(context.Background(),
		"SELECT value FROM journal_entries WHERE journal = ? ORDER BY seq", journalName)
	if err != nil {
		return nil, fmt.Errorf("reading journal %q: %w", journalName, err)
	}
	defer rows.Close()

	entries := [][]byte{}
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		if value == nil {
			value = []byte{}
		}
		entries = append(entries, value)
	}
	return entries, rows.Err()
}

func (s *JournalStore) Exists(journalName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return exists(context.Background(), s.db, journalName)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func exists(ctx context.Context, q queryer, journalName string) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM journals WHERE name = ?)", journalName).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking journal %q: %w", journalName, err)
	}
	return ok, nil
}

func (s *JournalStore) GetAllJournals() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(context.Background(), "SELECT name FROM journals")
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning journal name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Commit applies m's operations to m.JournalName in order and stops at the
// first one that fails.
func (s *JournalStore) Commit(m *feed.JournalMutation) feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	name := m.JournalName
	for i, op := range m.Operations {
		applied, err := s.apply(ctx, name, op)
		if err != nil {
			s.logger.Warn("journal commit failed", "journal", name, "index", i, "reason", err.Error())
			return feed.Failure
		}
		if applied {
			s.counters.Record(name)
		}
	}
	return feed.Success
}

func (s *JournalStore) apply(ctx context.Context, name string, op feed.JournalOperation) (bool, error) {
	switch op := op.(type) {
	case feed.Append:
		if op.Value == nil {
			return false, errors.New("missing value")
		}
		if err := s.inTx(ctx, func(tx *sql.Tx) error { return appendEntry(ctx, tx, name, op.Value) }); err != nil {
			return false, err
		}
		s.counters.Appends++
	case feed.Copy:
		copied := false
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			var err error
			copied, err = copyJournal(ctx, tx, name, op.To)
			return err
		})
		if err != nil || !copied {
			return false, err
		}
		s.counters.Copies++
	case feed.DeleteJournal:
		res, err := s.db.ExecContext(ctx, "DELETE FROM journals WHERE name = ?", name)
		if err != nil {
			return false, fmt.Errorf("deleting journal %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.counters.Deletes++
		}
	default:
		return false, errors.New("unrecognized operation")
	}
	return true, nil
}

func (s *JournalStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func appendEntry(ctx context.Context, tx *sql.Tx, name string, value []byte) error {
	var seq int64
	err := tx.QueryRowContext(ctx, "SELECT next_seq FROM journals WHERE name = ?", name).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.ExecContext(ctx, "INSERT INTO journals (name, next_seq) VALUES (?, 0)", name)
	}
	if err != nil {
		return fmt.Errorf("loading journal %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO journal_entries (journal, seq, value) VALUES (?, ?, ?)", name, seq, value); err != nil {
		return fmt.Errorf("appending to journal %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE journals SET next_seq = ? WHERE name = ?", seq+1, name); err != nil {
		return fmt.Errorf("updating journal %q: %w", name, err)
	}
	return nil
}

// copyJournal reports false when from does not exist.
func copyJournal(ctx context.Context, tx *sql.Tx, from, to string) (bool, error) {
	targetExists, err := exists(ctx, tx, to)
	if err != nil {
		return false, err
	}
	if targetExists {
		return false, fmt.Errorf("copy target exists: %s", to)
	}
	sourceExists, err := exists(ctx, tx, from)
	if err != nil || !sourceExists {
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO journals (name, next_seq) SELECT ?, next_seq FROM journals WHERE name = ?", to, from); err != nil {
		return false, fmt.Errorf("copying journal %q: %w", from, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO journal_entries (journal, seq, value) SELECT ?, seq, value FROM journal_entries WHERE journal = ?",
		to, from); err != nil {
		return false, fmt.Errorf("copying journal %q entries: %w", from, err)
	}
	return true, nil
}

// DeleteAll removes every journal.
func (s *JournalStore) DeleteAll() feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM journals")
	if err != nil {
		s.logger.Error("failed to delete journals", "error", err)
		return feed.Failure
	}
	n, _ := res.RowsAffected()
	s.counters.Deletes += int(n)
	return feed.Success
}

func (s *JournalStore) Dump() feed.JournalCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters.Clone()
}

var _ feed.JournalStorage = (*JournalStore)(nil)

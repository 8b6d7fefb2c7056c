package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"feedstore/internal/feed"
	"feedstore/internal/kv"
)

// ContentStore implements feed.ContentStorage on the content table. Each
// operation is its own statement, so a failed commit leaves earlier
// operations applied.
type ContentStore struct {
	mu       sync.Mutex
	db       *sql.DB
	counters feed.ContentCounters
	logger   feed.Logger
}

// NewContentStore returns a store over d. d must outlive the store.
func NewContentStore(d *SQLiteDatabase, logger feed.Logger) *ContentStore {
	if logger == nil {
		logger = feed.NewNopLogger()
	}
	return &ContentStore{db: d.db, logger: logger}
}

func (s *ContentStore) Get(keys []string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Gets++

	ctx := context.Background()
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		var value []byte
		err := s.db.QueryRowContext(ctx, "SELECT value FROM content WHERE key = ?", key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && len(value) == 0) {
			s.logger.Debug("content not found", "key", key)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading content %q: %w", key, err)
		}
		out[key] = value
	}
	return out, nil
}

func (s *ContentStore) GetAll(prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.GetAlls++

	where, args := prefixRange(prefix)
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT key, value FROM content WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning content: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *ContentStore) GetAllKeys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys(context.Background())
}

func (s *ContentStore) keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM content")
	if err != nil {
		return nil, fmt.Errorf("listing content keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning content key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Commit applies m's operations in order and stops at the first failure.
func (s *ContentStore) Commit(m *feed.ContentMutation) feed.CommitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	for i, op := range m.Operations {
		if err := s.apply(ctx, op); err != nil {
			s.logger.Warn("content commit failed", "index", i, "reason", err.Error())
			return feed.Failure
		}
	}
	return feed.Success
}

func (s *ContentStore) apply(ctx context.Context, op feed.ContentOperation) error {
	switch op := op.(type) {
	case feed.Upsert:
		switch {
		case op.Key == "":
			return errors.New("missing key")
		case op.Value == nil:
			return errors.New("missing value")
		case len(op.Value) == 0:
			return errors.New("empty value")
		}
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM content WHERE key = ?)", op.Key).Scan(&exists); err != nil {
			return fmt.Errorf("checking content %q: %w", op.Key, err)
		}
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO content (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
			op.Key, op.Value); err != nil {
			return fmt.Errorf("writing content %q: %w", op.Key, err)
		}
		if exists {
			s.counters.Updates++
		} else {
			s.counters.Inserts++
		}
		return nil
	case feed.Delete:
		return s.delete(ctx, "DELETE FROM content WHERE key = ?", op.Key)
	case feed.DeleteByPrefix:
		where, args := prefixRange(op.Prefix)
		return s.delete(ctx, "DELETE FROM content WHERE "+where, args...)
	case feed.DeleteAll:
		return s.delete(ctx, "DELETE FROM content")
	default:
		return errors.New("unrecognized operation")
	}
}

// prefixRange matches keys starting with prefix as a byte range, so prefixes
// holding NUL or other control bytes compare the same as in the kv stores.
func prefixRange(prefix string) (string, []any) {
	if prefix == "" {
		return "1 = 1", nil
	}
	lo := []byte(prefix)
	if hi := kv.PrefixEnd(lo); hi != nil {
		return "CAST(key AS BLOB) >= ? AND CAST(key AS BLOB) < ?", []any{lo, hi}
	}
	return "CAST(key AS BLOB) >= ?", []any{lo}
}

func (s *ContentStore) delete(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}
	s.counters.Deletes += int(n)
	return nil
}

func (s *ContentStore) Dump() feed.ContentCounters {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counters
	if err := s.db.QueryRow("SELECT COUNT(*) FROM content").Scan(&c.Size); err != nil {
		s.logger.Error("failed to count content", "error", err)
	}
	return c
}

var _ feed.ContentStorage = (*ContentStore)(nil)

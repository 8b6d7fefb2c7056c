package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedstore/internal/feed"
	"feedstore/internal/kv"
	"feedstore/internal/testutil"
)

func newKVJournalStorage(t *testing.T, engine string) *KVJournalStorage {
	t.Helper()
	store, err := kv.Open(engine, kv.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewKVJournalStorage(store, nil)
}

func TestKVJournalStorage(t *testing.T) {
	for _, engine := range []string{"badger", "pebble"} {
		t.Run(engine, func(t *testing.T) {
			testutil.RunJournalStorageTests(t, func(t *testing.T) feed.JournalStorage {
				return newKVJournalStorage(t, engine)
			})
		})
	}
}

func TestKVJournalStorage_NamePrefixesAreIsolated(t *testing.T) {
	s := newKVJournalStorage(t, "pebble")
	require.Equal(t, feed.Success, s.Commit(feed.NewJournalMutation("feed").Append([]byte("a"))))
	require.Equal(t, feed.Success, s.Commit(feed.NewJournalMutation("feed2").Append([]byte("b"))))

	entries, err := s.Read("feed")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a")}, entries)

	require.Equal(t, feed.Success, s.Commit(feed.NewJournalMutation("feed").Delete()))
	entries, err = s.Read("feed2")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b")}, entries)
}

func TestKVJournalStorage_ManyEntriesKeepOrder(t *testing.T) {
	s := newKVJournalStorage(t, "badger")
	m := feed.NewJournalMutation("j")
	for i := 0; i < 300; i++ {
		m.Append([]byte{byte(i >> 8), byte(i)})
	}
	require.Equal(t, feed.Success, s.Commit(m))

	entries, err := s.Read("j")
	require.NoError(t, err)
	require.Len(t, entries, 300)
	for i, e := range entries {
		assert.Equal(t, []byte{byte(i >> 8), byte(i)}, e, "entry %d", i)
	}
}

func TestKeyEncoding(t *testing.T) {
	key := entryKey("j", 7)
	name, err := decodeName(key)
	require.NoError(t, err)
	assert.Equal(t, "j", name)

	_, err = decodeName([]byte{metaTag, 0, 0})
	assert.Error(t, err)
	_, err = decodeName([]byte{metaTag, 0, 0, 0, 9, 'x'})
	assert.Error(t, err)
}

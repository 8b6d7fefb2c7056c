package kv

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engines(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"badger": func(t *testing.T) Store {
			s, err := NewBadgerStore(Options{InMemory: true})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"pebble": func(t *testing.T) Store {
			s, err := NewPebbleStore(Options{InMemory: true})
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	for name, open := range engines(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("EmptyValueStaysNonNil", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Batch(ctx, []Pair{{Key: []byte("e"), Value: []byte{}}}, nil))

				var got []byte
				require.NoError(t, s.Scan(ctx, []byte("e"), func(_, value []byte) bool {
					got = value
					return true
				}))
				assert.NotNil(t, got)
				assert.Empty(t, got)
			})

			t.Run("LoadBeyondOneTransaction", func(t *testing.T) {
				s := open(t)
				value := make([]byte, 4<<10)
				pairs := make([]Pair, 5000)
				for i := range pairs {
					pairs[i] = Pair{Key: []byte(fmt.Sprintf("l%05d", i)), Value: value}
				}
				require.NoError(t, s.Load(ctx, pairs))
				assert.Equal(t, 5000, count(t, s, []byte("l")))
			})

			t.Run("GetMissing", func(t *testing.T) {
				s := open(t)
				_, err := s.Get(ctx, []byte("nope"))
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("BatchSetAndDelete", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Batch(ctx, []Pair{
					{Key: []byte("a"), Value: []byte("1")},
					{Key: []byte("b"), Value: []byte("2")},
				}, nil))
				require.NoError(t, s.Batch(ctx, nil, [][]byte{[]byte("a"), []byte("missing")}))

				_, err := s.Get(ctx, []byte("a"))
				assert.ErrorIs(t, err, ErrNotFound)
				v, err := s.Get(ctx, []byte("b"))
				require.NoError(t, err)
				assert.Equal(t, []byte("2"), v)
			})

			t.Run("ScanIsOrderedAndBounded", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Batch(ctx, []Pair{
					{Key: []byte("p:2"), Value: []byte("b")},
					{Key: []byte("p:1"), Value: []byte("a")},
					{Key: []byte("q:1"), Value: []byte("c")},
				}, nil))

				var keys []string
				require.NoError(t, s.Scan(ctx, []byte("p:"), func(k, _ []byte) bool {
					keys = append(keys, string(k))
					return true
				}))
				assert.Equal(t, []string{"p:1", "p:2"}, keys)

				keys = nil
				require.NoError(t, s.Scan(ctx, []byte("p:"), func(k, _ []byte) bool {
					keys = append(keys, string(k))
					return false
				}))
				assert.Equal(t, []string{"p:1"}, keys)
			})

			t.Run("DeletePrefix", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Batch(ctx, []Pair{
					{Key: []byte("p:1"), Value: []byte("a")},
					{Key: []byte("p:2"), Value: []byte("b")},
					{Key: []byte("q:1"), Value: []byte("c")},
				}, nil))

				require.NoError(t, s.DeletePrefix(ctx, []byte("p:")))
				assert.Equal(t, 1, count(t, s, nil))

				require.NoError(t, s.DeletePrefix(ctx, nil))
				assert.Equal(t, 0, count(t, s, nil))
			})
		})
	}
}

func TestStore_Persistent(t *testing.T) {
	ctx := context.Background()
	for _, engine := range []string{"badger", "pebble"} {
		t.Run(engine, func(t *testing.T) {
			dir := t.TempDir()
			s, err := Open(engine, Options{Dir: dir})
			require.NoError(t, err)
			require.NoError(t, s.Batch(ctx, []Pair{{Key: []byte("k"), Value: []byte("v")}}, nil))
			require.NoError(t, s.Close())

			s, err = Open(engine, Options{Dir: dir})
			require.NoError(t, err)
			defer s.Close()
			v, err := s.Get(ctx, []byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), v)
		})
	}
}

func TestOpen_UnknownEngine(t *testing.T) {
	_, err := Open("leveldb", Options{InMemory: true})
	assert.Error(t, err)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("p;"), PrefixEnd([]byte("p:")))
	assert.Equal(t, []byte("q"), PrefixEnd([]byte{'p', 0xff}))
	assert.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
	assert.Nil(t, PrefixEnd(nil))
}

func count(t *testing.T, s Store, prefix []byte) int {
	t.Helper()
	n := 0
	require.NoError(t, s.Scan(context.Background(), prefix, func(_, _ []byte) bool {
		n++
		return true
	}))
	return n
}

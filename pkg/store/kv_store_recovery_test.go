package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssargent/kvdb/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeEntries() []*codec.Entry {
	return []*codec.Entry{
		codec.NewEntry([]byte("k1"), []byte("first value")),
		codec.NewEntry([]byte("k2"), []byte("second value")),
		codec.NewEntry([]byte("k3"), []byte("third value")),
	}
}

func sidecars(t *testing.T, path string) []string {
	t.Helper()
	matches, err := filepath.Glob(path + ".*.discarded")
	require.NoError(t, err)
	return matches
}

// Every prefix of a valid log opens, keeps each record that fits entirely
// and cuts the rest so new appends are replayed on the next open
func TestKVStore_TruncationTolerance(t *testing.T) {
	entries := threeEntries()
	scratch := testPath(t)
	full, ends := writeLogFile(t, scratch, entries...)

	for cut := int64(FileHeaderSize); cut < int64(len(full)); cut++ {
		t.Run(fmt.Sprintf("cut_%d", cut), func(t *testing.T) {
			path := testPath(t)
			require.NoError(t, writeFile(path, full[:cut]))

			complete := 0
			boundary := int64(FileHeaderSize)
			for _, end := range ends {
				if end <= cut {
					complete++
					boundary = end
				}
			}

			store, result := openTestStore(t, path)
			assert.Equal(t, int64(complete), result.RecordsReplayed)
			assert.Equal(t, complete, store.Len())
			assert.Equal(t, cut, result.FileSizeBefore)
			assert.Equal(t, boundary, result.FileSizeAfter)
			assert.Equal(t, cut-boundary, result.TruncatedBytes)
			assert.Equal(t, cut != boundary, result.Recovered())
			if result.Recovered() {
				assert.True(t, codec.IsRecoverable(result.Corruption))
			}
			assert.Empty(t, result.DiscardedPath)
			assert.Empty(t, sidecars(t, path))
			assert.Equal(t, boundary, fileSize(t, path))

			for i, e := range entries {
				got, ok := store.Get(e.Key)
				assert.Equal(t, i < complete, ok, "key %s", e.Key)
				if ok {
					assert.Equal(t, e.Value, got)
				}
			}

			require.NoError(t, store.Put([]byte("after"), []byte("recovery")))
			require.NoError(t, store.Close())

			store, result = openTestStore(t, path)
			assert.False(t, result.Recovered())
			assert.Equal(t, complete+1, store.Len())
			got, ok := store.Get([]byte("after"))
			assert.True(t, ok)
			assert.Equal(t, "recovery", string(got))
		})
	}
}

func TestKVStore_TailCorruption(t *testing.T) {
	path := testPath(t)
	data, ends := writeLogFile(t, path, threeEntries()...)

	// Damage the last byte of the final record's value
	data[ends[2]-1] ^= 0xFF
	require.NoError(t, writeFile(path, data))

	store, result := openTestStore(t, path)
	assert.ErrorIs(t, result.Corruption, codec.ErrBadChecksum)
	assert.Equal(t, int64(2), result.RecordsReplayed)
	assert.Equal(t, ends[2]-ends[1], result.TruncatedBytes)
	assert.Empty(t, result.DiscardedPath)
	assert.Empty(t, sidecars(t, path))
	assert.Equal(t, ends[1], fileSize(t, path))

	_, ok := store.Get([]byte("k3"))
	assert.False(t, ok)
	got, ok := store.Get([]byte("k2"))
	assert.True(t, ok)
	assert.Equal(t, "second value", string(got))
}

func TestKVStore_MidStreamCorruption(t *testing.T) {
	path := testPath(t)
	data, ends := writeLogFile(t, path, threeEntries()...)

	data[ends[1]-1] ^= 0x01
	require.NoError(t, writeFile(path, data))

	store, result := openTestStore(t, path)
	assert.ErrorIs(t, result.Corruption, codec.ErrBadChecksum)
	assert.Equal(t, int64(1), result.RecordsReplayed)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(len(data))-ends[0], result.TruncatedBytes)
	assert.Equal(t, ends[0], fileSize(t, path))

	// The cut bytes, including the intact third record, are preserved
	require.NotEmpty(t, result.DiscardedPath)
	assert.True(t, strings.HasPrefix(result.DiscardedPath, path+"."))
	assert.Equal(t, []string{result.DiscardedPath}, sidecars(t, path))

	discarded, err := os.ReadFile(result.DiscardedPath)
	require.NoError(t, err)
	assert.Equal(t, data[ends[0]:], discarded)

	// The log keeps working after the cut
	require.NoError(t, store.Put([]byte("k4"), []byte("fourth")))
	require.NoError(t, store.Close())

	store, result = openTestStore(t, path)
	assert.False(t, result.Recovered())
	assert.Equal(t, []string{"k1", "k4"}, store.Keys())
}

func TestKVStore_OversizedLengthIsFatal(t *testing.T) {
	testCases := []struct {
		name    string
		keyLen  uint32
		valLen  uint32
		wantErr error
	}{
		{"key too large", codec.MaxKeySize + 1, 0, codec.ErrKeyTooLarge},
		{"value too large", 1, codec.MaxValueSize + 1, codec.ErrValueTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := testPath(t)
			data, _ := writeLogFile(t, path, codec.NewEntry([]byte("good"), []byte("value")))

			header := make([]byte, codec.HeaderSize)
			binary.LittleEndian.PutUint32(header[4:], tc.keyLen)
			binary.LittleEndian.PutUint32(header[8:], tc.valLen)
			data = append(data, header...)
			require.NoError(t, writeFile(path, data))

			store, err := NewKVStore(KVStoreConfig{Path: path})
			require.NoError(t, err)

			_, err = store.Open()
			assert.ErrorIs(t, err, tc.wantErr)
			assert.False(t, store.IsOpen())

			// Nothing was cut
			assert.Equal(t, int64(len(data)), fileSize(t, path))
		})
	}
}

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/kvdb/pkg/codec"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// faultyFile wraps a LogFile and fails writes or syncs on demand
type faultyFile struct {
	LogFile
	failWrites bool
	shortWrite bool
	failSync   bool
}

func (f *faultyFile) Write(p []byte) (int, error) {
	switch {
	case f.failWrites:
		return 0, errInjected
	case f.shortWrite:
		return f.LogFile.Write(p[:len(p)/2])
	}
	return f.LogFile.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.failSync {
		return errInjected
	}
	return f.LogFile.Sync()
}

func faultyOpener(ff **faultyFile) OpenFunc {
	return func(path string) (LogFile, error) {
		f, err := OpenFile(path)
		if err != nil {
			return nil, err
		}
		*ff = &faultyFile{LogFile: f}
		return *ff, nil
	}
}

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.kvdb")
}

func openTestStore(t *testing.T, path string) (*KVStore, *RecoveryResult) {
	t.Helper()

	store, err := NewKVStore(KVStoreConfig{Path: path})
	require.NoError(t, err)

	result, err := store.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, result
}

// writeLogFile writes a header followed by entries and returns the file
// contents together with the end offset of every entry
func writeLogFile(t *testing.T, path string, entries ...*codec.Entry) ([]byte, []int64) {
	t.Helper()

	c := codec.NewEntryCodec()
	data := encodeFileHeader()
	ends := make([]int64, 0, len(entries))
	for _, e := range entries {
		data = append(data, c.Encode(e)...)
		ends = append(ends, int64(len(data)))
	}

	require.NoError(t, os.WriteFile(path, data, 0600))
	return data, ends
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0600)
}

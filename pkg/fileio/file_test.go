package fileio

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kvdb")

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.FileExists(t, path)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}

func TestOpen_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kvdb")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0600))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "test.kvdb"))
	assert.Error(t, err)
}

func TestFile_ReadWriteSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kvdb")

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	require.NoError(t, f.Sync())

	pos, err := f.Seek(6, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	buf := make([]byte, 5)
	n, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	// End of file reads zero bytes
	n, err = f.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestFile_Truncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kvdb")

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, f.Truncate(4))

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
}

func TestFile_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kvdb")

	f, err := Open(path)
	require.NoError(t, err)

	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())

	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.Sync(), ErrClosed)
}

func TestOpen_ExclusiveLock(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "plan9" || runtime.GOOS == "js" {
		t.Skip("advisory locking not implemented on " + runtime.GOOS)
	}

	path := filepath.Join(t.TempDir(), "test.kvdb")

	first, err := Open(path)
	require.NoError(t, err)

	_, err = Open(path)
	assert.ErrorIs(t, err, ErrLocked)

	// Released on close
	require.NoError(t, first.Close())
	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.kvdb")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0600))

	writer, err := Open(path)
	require.NoError(t, err)
	defer writer.Close()

	// readers do not contend for the writer's lock
	reader, err := OpenReadOnly(path)
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = io.ReadFull(reader, buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf))

	_, err = reader.Write([]byte("x"))
	assert.Error(t, err)
	err = reader.Truncate(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), reader.Name())
	assert.Equal(t, path, reader.Name())

	require.NoError(t, reader.Close())
	require.NoError(t, reader.Close())

	missing := filepath.Join(t.TempDir(), "missing.kvdb")
	_, err = OpenReadOnly(missing)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, missing)
}

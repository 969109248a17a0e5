// Package fileio is the platform file layer under the log: a single file
// opened for reading and appending, held exclusively by one opener.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FilePerm is the permission of a newly created file
const FilePerm = 0644

var (
	// ErrLocked is returned when another opener already holds the file
	ErrLocked = errors.New("fileio: file is locked by another opener")

	// ErrClosed is returned by operations on a closed File
	ErrClosed = errors.New("fileio: file is closed")
)

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// File is an exclusively held read/write file
type File struct {
	fd       *os.File
	path     string
	readOnly bool
}

// Open opens path for reading and writing, creating it if it does not exist,
// and takes an exclusive lock on it. When the file is created the parent
// directory is synced so the new directory entry survives a crash.
func Open(path string) (*File, error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FilePerm)
	if err != nil {
		return nil, err
	}

	if err := lockFile(fd); err != nil {
		_ = fd.Close()
		if errors.Is(err, ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, err
	}

	if created {
		if err := syncDir(filepath.Dir(path)); err != nil {
			_ = unlockFile(fd)
			_ = fd.Close()
			return nil, err
		}
	}

	return &File{fd: fd, path: path}, nil
}

// OpenReadOnly opens an existing file for reading without taking the lock,
// so it can be scanned while another opener holds it. Write and Truncate
// fail on the returned File.
func OpenReadOnly(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{fd: fd, path: path, readOnly: true}, nil
}

// Read reads up to len(p) bytes. At end of file it returns 0, io.EOF.
func (f *File) Read(p []byte) (int, error) {
	if f.fd == nil {
		return 0, ErrClosed
	}
	return f.fd.Read(p)
}

// Write writes p at the current position
func (f *File) Write(p []byte) (int, error) {
	if f.fd == nil {
		return 0, ErrClosed
	}
	return f.fd.Write(p)
}

// Seek sets the position for the next Read or Write
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.fd == nil {
		return 0, ErrClosed
	}
	return f.fd.Seek(offset, whence)
}

// Sync commits the current contents of the file to stable storage
func (f *File) Sync() error {
	if f.fd == nil {
		return ErrClosed
	}
	if err := f.fd.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", f.Name(), err)
	}
	return nil
}

// Truncate changes the size of the file. The position is not changed.
func (f *File) Truncate(size int64) error {
	if f.fd == nil {
		return ErrClosed
	}
	if err := f.fd.Truncate(size); err != nil {
		return fmt.Errorf("truncate %s: %w", f.Name(), err)
	}
	return nil
}

// Size returns the current size of the file
func (f *File) Size() (int64, error) {
	if f.fd == nil {
		return 0, ErrClosed
	}
	stat, err := f.fd.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

// Name returns the path the file was opened with
func (f *File) Name() string {
	return f.path
}

// Close releases the lock and closes the file. Closing an already closed
// File is a no-op.
func (f *File) Close() error {
	if f.fd == nil {
		return nil
	}
	fd := f.fd
	f.fd = nil

	var unlockErr error
	if !f.readOnly {
		unlockErr = unlockFile(fd)
	}
	if err := fd.Close(); err != nil {
		return err
	}
	return unlockErr
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	// Some platforms refuse to fsync a directory; the file itself is still usable
	syncErr := d.Sync()
	if err := d.Close(); err != nil {
		return err
	}
	if syncErr != nil && !errors.Is(syncErr, os.ErrInvalid) && !errors.Is(syncErr, os.ErrPermission) {
		return syncErr
	}
	return nil
}

package store

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/ssargent/kvdb/pkg/fileio"
)

// LogFile is the file a Log appends to and replays from
type LogFile interface {
	io.ReadWriteSeeker
	Sync() error
	Truncate(size int64) error
	Size() (int64, error)
	Close() error
}

// OpenFunc opens or creates the file at path for reading and writing
type OpenFunc func(path string) (LogFile, error)

// OpenFile is the default OpenFunc, backed by an exclusively locked file
func OpenFile(path string) (LogFile, error) {
	f, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// OpenFileReadOnly opens an existing log without locking it. The returned
// file rejects writes.
func OpenFileReadOnly(path string) (LogFile, error) {
	f, err := fileio.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// LogConfig holds configuration for a Log
type LogConfig struct {
	FilePath string          // Path to the log file
	OpenFile OpenFunc        // Nil means OpenFile
	Logger   *zerolog.Logger // Nil means log.Store
}

// KVStoreConfig holds configuration for the key-value store
type KVStoreConfig struct {
	Path     string          // Path to the log file
	OpenFile OpenFunc        // Nil means OpenFile
	Logger   *zerolog.Logger // Nil means log.Store
}

// SetMode selects the precondition Set applies before writing
type SetMode int

const (
	// Upsert writes unless the key already holds an identical value
	Upsert SetMode = iota
	// Insert writes only if the key is absent
	Insert
	// Update writes only if the key is present with a different value
	Update
)

func (m SetMode) String() string {
	switch m {
	case Upsert:
		return "upsert"
	case Insert:
		return "insert"
	case Update:
		return "update"
	default:
		return fmt.Sprintf("SetMode(%d)", int(m))
	}
}

func (m SetMode) valid() bool {
	return m == Upsert || m == Insert || m == Update
}

// ParseSetMode maps a mode name to a SetMode
func ParseSetMode(name string) (SetMode, error) {
	switch strings.ToLower(name) {
	case "", "upsert":
		return Upsert, nil
	case "insert":
		return Insert, nil
	case "update":
		return Update, nil
	}
	return Upsert, fmt.Errorf("%w: %q", ErrInvalidMode, name)
}

// RecoveryResult describes what Open found while replaying the log
type RecoveryResult struct {
	RecordsReplayed int64         // Records applied to the map
	Tombstones      int64         // Of which were deletions
	Keys            int           // Live keys after replay
	TruncatedBytes  int64         // Bytes cut from the end of the file
	FileSizeBefore  int64         // File size before recovery
	FileSizeAfter   int64         // File size after recovery
	Corruption      error         // Decode error that ended the replay, if any
	DiscardedPath   string        // Sidecar holding cut bytes after mid-stream corruption
	RecoveryTime    time.Duration // Time spent opening and replaying
}

// Recovered reports whether Open had to cut damaged bytes from the log
func (r *RecoveryResult) Recovered() bool {
	return r.Corruption != nil
}

// StoreStats holds statistics about the store
type StoreStats struct {
	Keys     int
	DataSize int64
}

// VerifyReport is the outcome of a full scan of a log file
type VerifyReport struct {
	Records        int64 // Valid records decoded
	Tombstones     int64 // Of which were deletions
	LiveKeys       int   // Keys present after applying every valid record
	FileSize       int64 // Size of the file
	ValidSize      int64 // Offset just past the last valid record
	TailCorruption error // Torn or damaged last record, if any
}

// Errors
var (
	ErrBadMagic           = &KVError{"log file has an unrecognized header"}
	ErrUnsupportedVersion = &KVError{"log file version is newer than supported"}
	ErrIsDirectory        = &KVError{"log path is a directory"}
	ErrLogClosed          = &KVError{"log is not open"}
	ErrStoreClosed        = &KVError{"store is not open"}
	ErrInvalidMode        = &KVError{"invalid set mode"}
	ErrCorruptMidStream   = &KVError{"log is corrupt before its last record"}
)

// KVError represents a key-value store error
type KVError struct {
	Message string
}

func (e *KVError) Error() string {
	return e.Message
}

// CorruptRecordError locates a record the codec rejected. End is where the
// record claims to finish, or the end of the file when it was cut short.
type CorruptRecordError struct {
	Offset int64
	End    int64
	Err    error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("record at offset %d: %v", e.Offset, e.Err)
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}

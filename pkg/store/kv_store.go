package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/kvdb/pkg/codec"
	"github.com/ssargent/kvdb/pkg/log"
)

// KVStore is a durable key-value map backed by a single append-only log.
// It is not safe for concurrent use.
type KVStore struct {
	config KVStoreConfig
	log    *Log
	keydir *KeyDir
	logger zerolog.Logger
	isOpen bool
}

// NewKVStore creates a new key-value store instance
func NewKVStore(config KVStoreConfig) (*KVStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(config.Path), 0750); err != nil {
		return nil, err
	}

	logger := log.Store
	if config.Logger != nil {
		logger = *config.Logger
	}

	store := &KVStore{
		config: config,
		log: NewLog(LogConfig{
			FilePath: config.Path,
			OpenFile: config.OpenFile,
			Logger:   &logger,
		}),
		keydir: NewKeyDir(),
		logger: logger.With().Str("path", config.Path).Logger(),
	}

	return store, nil
}

// Open opens the log and rebuilds the map by replaying it. A torn or damaged
// record ends the replay: everything before it is kept and the file is cut
// back to the last good record so later appends stay reachable.
func (kv *KVStore) Open() (*RecoveryResult, error) {
	if kv.isOpen {
		return &RecoveryResult{Keys: kv.keydir.Len()}, nil
	}

	startTime := time.Now()

	if err := kv.log.Open(); err != nil {
		_ = kv.log.Close()
		return nil, err
	}

	result, err := kv.replay()
	if err != nil {
		kv.keydir.Clear()
		_ = kv.log.Close()
		return nil, err
	}
	result.RecoveryTime = time.Since(startTime)

	kv.isOpen = true

	level := zerolog.InfoLevel
	if result.Recovered() {
		level = zerolog.WarnLevel
	}
	kv.logger.WithLevel(level).
		Int64("records", result.RecordsReplayed).
		Int("keys", result.Keys).
		AnErr("corruption", result.Corruption).
		Int64("truncated_bytes", result.TruncatedBytes).
		Str("discarded", result.DiscardedPath).
		Dur("took", result.RecoveryTime).
		Msg("opened store")

	return result, nil
}

func (kv *KVStore) replay() (*RecoveryResult, error) {
	sizeBefore, err := kv.log.Size()
	if err != nil {
		return nil, err
	}

	result := &RecoveryResult{
		FileSizeBefore: sizeBefore,
		FileSizeAfter:  sizeBefore,
	}

	kv.keydir.Clear()
	if err := kv.log.SeekToFirstEntry(); err != nil {
		return nil, err
	}

	for {
		entry, err := kv.log.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !codec.IsRecoverable(err) {
				return nil, fmt.Errorf("replay %s: %w", kv.config.Path, err)
			}
			if err := kv.recover(err, result); err != nil {
				return nil, err
			}
			break
		}

		kv.keydir.Apply(entry.Key, entry.Value, entry.Deleted)
		result.RecordsReplayed++
		if entry.Deleted {
			result.Tombstones++
		}
	}

	result.Keys = kv.keydir.Len()
	return result, nil
}

// recover cuts the log at the read cursor, which sits on the first record
// that failed to decode. Bytes that follow a damaged record in the middle of
// the file are copied to a sidecar before they are cut.
func (kv *KVStore) recover(cause error, result *RecoveryResult) error {
	good := kv.log.Offset()
	result.Corruption = cause

	end := result.FileSizeBefore
	var recErr *CorruptRecordError
	if errors.As(cause, &recErr) {
		end = recErr.End
	}

	if end < result.FileSizeBefore {
		path, err := kv.preserve(good, result.FileSizeBefore-good)
		if err != nil {
			return fmt.Errorf("preserve discarded bytes: %w", err)
		}
		result.DiscardedPath = path
	}

	if err := kv.log.Truncate(good); err != nil {
		return err
	}
	result.TruncatedBytes = result.FileSizeBefore - good
	result.FileSizeAfter = good
	return nil
}

func (kv *KVStore) preserve(offset, n int64) (string, error) {
	path := fmt.Sprintf("%s.%s.discarded", kv.config.Path, ksuid.New().String())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	if err := kv.log.CopyRange(f, offset, n); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// Get returns a copy of the value stored under key
func (kv *KVStore) Get(key []byte) ([]byte, bool) {
	value, exists := kv.keydir.Get(key)
	if !exists {
		return nil, false
	}
	return append(make([]byte, 0, len(value)), value...), true
}

// Set writes value under key if mode allows it and the stored value would
// change. It reports whether the log was appended to. The map is only
// updated after the append has been synced.
func (kv *KVStore) Set(key, value []byte, mode SetMode) (bool, error) {
	if !kv.isOpen {
		return false, ErrStoreClosed
	}
	if !mode.valid() {
		return false, fmt.Errorf("%w: %v", ErrInvalidMode, mode)
	}

	entry := codec.NewEntry(key, value)
	if err := entry.Validate(); err != nil {
		return false, err
	}

	current, exists := kv.keydir.Get(key)
	switch {
	case mode == Insert && exists:
		return false, nil
	case mode == Update && !exists:
		return false, nil
	case exists && bytes.Equal(current, value):
		return false, nil
	}

	if err := kv.log.Write(entry); err != nil {
		return false, err
	}

	kv.keydir.Put(key, value)
	return true, nil
}

// Put stores a key-value pair, overwriting any existing value
func (kv *KVStore) Put(key, value []byte) error {
	_, err := kv.Set(key, value, Upsert)
	return err
}

// Delete removes key, appending a tombstone if it was present. It reports
// whether the key existed.
func (kv *KVStore) Delete(key []byte) (bool, error) {
	if !kv.isOpen {
		return false, ErrStoreClosed
	}

	if _, exists := kv.keydir.Get(key); !exists {
		return false, nil
	}

	if err := kv.log.Write(codec.NewTombstone(key)); err != nil {
		return false, err
	}

	kv.keydir.Delete(key)
	return true, nil
}

// Len returns the number of live keys
func (kv *KVStore) Len() int {
	return kv.keydir.Len()
}

// Keys returns all live keys in sorted order
func (kv *KVStore) Keys() []string {
	return kv.keydir.Keys()
}

// Stats returns store statistics
func (kv *KVStore) Stats() *StoreStats {
	if !kv.isOpen {
		return &StoreStats{}
	}

	size, err := kv.log.Size()
	if err != nil {
		kv.logger.Warn().Err(err).Msg("failed to stat log")
	}

	return &StoreStats{
		Keys:     kv.keydir.Len(),
		DataSize: size,
	}
}

// IsOpen reports whether the store is open
func (kv *KVStore) IsOpen() bool {
	return kv.isOpen
}

// Path returns the log file path
func (kv *KVStore) Path() string {
	return kv.config.Path
}

// Close shuts down the store. The map is dropped with it.
func (kv *KVStore) Close() error {
	if !kv.isOpen {
		return nil
	}

	kv.isOpen = false
	kv.keydir.Clear()

	if err := kv.log.Close(); err != nil {
		return err
	}
	kv.logger.Debug().Msg("closed store")
	return nil
}

// Package export copies the live contents of a store to and from a Pebble
// database directory, for backups and for moving data between stores.
package export

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/kvdb/pkg/log"
	"github.com/ssargent/kvdb/pkg/store"
)

// Snapshot layout: every live key is stored under dataPrefix, metadata under metaPrefix
var (
	dataPrefix = []byte("d/")
	dataEnd    = []byte("d0") // first key past dataPrefix
	metaID     = []byte("m/id")
	metaKeys   = []byte("m/keys")
)

// ErrNotSnapshot is returned when an imported directory carries no export metadata
var ErrNotSnapshot = errors.New("export: directory is not a kvdb snapshot")

// Source is what Export reads from
type Source interface {
	Keys() []string
	Get(key []byte) ([]byte, bool)
}

// Sink is what Import writes to
type Sink interface {
	Set(key, value []byte, mode store.SetMode) (bool, error)
}

// Result describes one export or import
type Result struct {
	ID      string // Snapshot id, a KSUID
	Keys    int    // Keys copied
	Bytes   int64  // Value bytes copied
	Changed int    // Keys the import actually wrote
}

// Export writes every live key of src into a new Pebble database at dir.
// dir must not already hold a database.
func Export(src Source, dir string) (*Result, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		ErrorIfExists: true,
		Logger:        pebbleLogger{log.Store},
	})
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", dir, err)
	}
	defer db.Close()

	id := ksuid.New()
	result := &Result{ID: id.String()}

	batch := db.NewBatch()
	defer batch.Close()

	for _, key := range src.Keys() {
		value, ok := src.Get([]byte(key))
		if !ok {
			continue
		}
		if err := batch.Set(dataKey(key), value, nil); err != nil {
			return nil, err
		}
		result.Keys++
		result.Bytes += int64(len(value))
	}

	if err := batch.Set(metaID, []byte(result.ID), nil); err != nil {
		return nil, err
	}
	if err := batch.Set(metaKeys, []byte(strconv.Itoa(result.Keys)), nil); err != nil {
		return nil, err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}

	return result, nil
}

// Import applies every key of the snapshot at dir to dst with mode
func Import(dst Sink, dir string, mode store.SetMode) (*Result, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		ErrorIfNotExists: true,
		ReadOnly:         true,
		Logger:           pebbleLogger{log.Store},
	})
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", dir, err)
	}
	defer db.Close()

	id, closer, err := db.Get(metaID)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotSnapshot, dir)
	}
	if err != nil {
		return nil, err
	}
	result := &Result{ID: string(id)}
	_ = closer.Close()

	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: dataPrefix,
		UpperBound: dataEnd,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()[len(dataPrefix):]
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, err
		}

		changed, err := dst.Set(key, value, mode)
		if err != nil {
			return nil, fmt.Errorf("import key %q: %w", key, err)
		}
		result.Keys++
		result.Bytes += int64(len(value))
		if changed {
			result.Changed++
		}
	}

	return result, iter.Error()
}

func dataKey(key string) []byte {
	k := make([]byte, 0, len(dataPrefix)+len(key))
	k = append(k, dataPrefix...)
	return append(k, key...)
}

var exit = os.Exit

// pebbleLogger routes pebble's own logging through zerolog
type pebbleLogger struct {
	logger zerolog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

// Fatalf must not return, whether or not the logger is enabled
func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.WithLevel(zerolog.FatalLevel).Msgf(format, args...)
	exit(1)
}

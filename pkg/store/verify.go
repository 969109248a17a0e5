package store

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/kvdb/pkg/codec"
)

// Verify scans an existing log file from the header to the end without
// modifying it. A torn or damaged final record is reported in
// TailCorruption; a damaged record followed by more data fails with
// ErrCorruptMidStream. Oversized length fields and I/O errors also fail.
// Unless config.OpenFile is set the file is opened read-only and unlocked,
// so a log held by an open store can be verified.
func Verify(config LogConfig) (*VerifyReport, error) {
	if config.OpenFile == nil {
		config.OpenFile = OpenFileReadOnly
	}

	info, err := os.Stat(config.FilePath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, config.FilePath)
	}

	report := &VerifyReport{FileSize: info.Size()}
	if info.Size() == 0 {
		return report, nil
	}

	l := NewLog(config)
	if err := l.Open(); err != nil {
		_ = l.Close()
		return nil, err
	}
	defer l.Close()

	if report.FileSize, err = l.Size(); err != nil {
		return nil, err
	}

	keydir := NewKeyDir()
	for {
		entry, err := l.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.ValidSize = l.Offset()
			report.LiveKeys = keydir.Len()
			if !codec.IsRecoverable(err) {
				return report, err
			}
			var recErr *CorruptRecordError
			if errors.As(err, &recErr) && recErr.End < report.FileSize {
				return report, fmt.Errorf("%w: %w", ErrCorruptMidStream, err)
			}
			report.TailCorruption = err
			return report, nil
		}

		keydir.Apply(entry.Key, entry.Value, entry.Deleted)
		report.Records++
		if entry.Deleted {
			report.Tombstones++
		}
	}

	report.ValidSize = l.Offset()
	report.LiveKeys = keydir.Len()
	return report, nil
}

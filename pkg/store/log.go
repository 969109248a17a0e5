package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/ssargent/kvdb/pkg/codec"
	"github.com/ssargent/kvdb/pkg/log"
)

const readBufferSize = 64 * 1024

// Log is a single append-only file of encoded entries behind a fixed header.
// Appends always go to the physical end of the file; reads follow their own
// cursor starting at the first entry.
type Log struct {
	config LogConfig
	file   LogFile
	codec  *codec.EntryCodec
	logger zerolog.Logger

	reader     *bufio.Reader // nil when the file position no longer matches readOffset
	readOffset int64
	headerErr  error
}

// NewLog creates a closed log for config.FilePath
func NewLog(config LogConfig) *Log {
	if config.OpenFile == nil {
		config.OpenFile = OpenFile
	}
	logger := log.Store
	if config.Logger != nil {
		logger = *config.Logger
	}
	return &Log{
		config: config,
		codec:  codec.NewEntryCodec(),
		logger: logger.With().Str("path", config.FilePath).Logger(),
	}
}

// Open opens or creates the log file. A new file gets a header and is synced
// before Open returns. For an existing file the header is validated; when it
// is rejected the log stays open, every Read and Write returns the header
// error, and the caller is expected to Close it.
func (l *Log) Open() error {
	if l.file != nil {
		return nil
	}

	if info, err := os.Stat(l.config.FilePath); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, l.config.FilePath)
	}

	file, err := l.config.OpenFile(l.config.FilePath)
	if err != nil {
		return fmt.Errorf("open log %s: %w", l.config.FilePath, err)
	}

	size, err := file.Size()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat log %s: %w", l.config.FilePath, err)
	}

	if size == 0 {
		if err := l.writeHeader(file); err != nil {
			_ = file.Truncate(0)
			_ = file.Close()
			return fmt.Errorf("write log header %s: %w", l.config.FilePath, err)
		}
		l.logger.Debug().Msg("created log")
	} else if err := l.readHeader(file, size); err != nil {
		l.headerErr = err
		l.file = file
		l.logger.Warn().Err(err).Msg("rejected log header")
		return err
	}

	l.file = file
	l.headerErr = nil
	l.readOffset = FileHeaderSize
	l.reader = nil
	return nil
}

func (l *Log) writeHeader(file LogFile) error {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	header := encodeFileHeader()
	n, err := file.Write(header)
	if err != nil {
		return err
	}
	if n < len(header) {
		return io.ErrShortWrite
	}
	return file.Sync()
}

func (l *Log) readHeader(file LogFile, size int64) error {
	if size < FileHeaderSize {
		return fmt.Errorf("%w: file is %d bytes", ErrBadMagic, size)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	buf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: short header", ErrBadMagic)
		}
		return err
	}
	return checkFileHeader(buf)
}

// Close closes the log file. Closing a closed log is a no-op.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	l.reader = nil
	l.headerErr = nil
	return file.Close()
}

// IsOpen reports whether the log holds an open file
func (l *Log) IsOpen() bool {
	return l.file != nil
}

// Path returns the log file path
func (l *Log) Path() string {
	return l.config.FilePath
}

func (l *Log) usable() error {
	if l.file == nil {
		return ErrLogClosed
	}
	return l.headerErr
}

// Write appends e at the end of the file and syncs it. A failed append is
// cut back off the file so it cannot hide later records from a replay.
func (l *Log) Write(e *codec.Entry) error {
	if err := l.usable(); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}

	end, err := l.file.Seek(0, io.SeekEnd)
	// The file position moved, so buffered read state is stale
	l.reader = nil
	if err != nil {
		return fmt.Errorf("seek log end: %w", err)
	}

	buf := l.codec.Encode(e)
	n, err := l.file.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = l.file.Sync()
	}
	if err != nil {
		if terr := l.file.Truncate(end); terr != nil {
			l.logger.Error().Err(terr).Int64("offset", end).Msg("failed to roll back partial append")
		}
		l.logger.Error().Err(err).Int64("offset", end).Int("size", len(buf)).Msg("append failed")
		return fmt.Errorf("append to log: %w", err)
	}

	return nil
}

// SeekToFirstEntry moves the read cursor to the first entry after the header
func (l *Log) SeekToFirstEntry() error {
	if err := l.usable(); err != nil {
		return err
	}
	l.readOffset = FileHeaderSize
	l.reader = nil
	return nil
}

// Read decodes the entry at the read cursor and advances past it. It returns
// io.EOF at the end of the file. Codec errors come wrapped in a
// *CorruptRecordError and leave the cursor at the start of the bad record.
func (l *Log) Read() (*codec.Entry, error) {
	if err := l.usable(); err != nil {
		return nil, err
	}

	if l.reader == nil {
		if _, err := l.file.Seek(l.readOffset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek log offset %d: %w", l.readOffset, err)
		}
		l.reader = bufio.NewReaderSize(l.file, readBufferSize)
	}

	cr := &countingReader{r: l.reader}
	e, err := l.codec.Decode(cr)
	if err != nil {
		l.reader = nil
		if err == io.EOF {
			return nil, io.EOF
		}
		if codec.IsRecoverable(err) || errors.Is(err, codec.ErrKeyTooLarge) || errors.Is(err, codec.ErrValueTooLarge) {
			return nil, &CorruptRecordError{Offset: l.readOffset, End: l.readOffset + cr.n, Err: err}
		}
		return nil, err
	}

	l.readOffset += cr.n
	return e, nil
}

// Offset returns the read cursor: the offset of the next entry Read decodes
func (l *Log) Offset() int64 {
	return l.readOffset
}

// Size returns the current size of the log file including its header
func (l *Log) Size() (int64, error) {
	if l.file == nil {
		return 0, ErrLogClosed
	}
	return l.file.Size()
}

// Truncate cuts the file to size and syncs it. The read cursor is pulled
// back if it pointed past the new end.
func (l *Log) Truncate(size int64) error {
	if err := l.usable(); err != nil {
		return err
	}
	if size < FileHeaderSize {
		return fmt.Errorf("truncate log to %d: would cut the file header", size)
	}
	l.reader = nil
	if err := l.file.Truncate(size); err != nil {
		return fmt.Errorf("truncate log to %d: %w", size, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	if l.readOffset > size {
		l.readOffset = size
	}
	return nil
}

// CopyRange copies n bytes of the file starting at offset into w
func (l *Log) CopyRange(w io.Writer, offset, n int64) error {
	if err := l.usable(); err != nil {
		return err
	}
	l.reader = nil
	if _, err := l.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err := io.CopyN(w, l.file, n)
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

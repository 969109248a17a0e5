package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/crc32"
)

// Header layout of an encoded entry
const (
	checksumOffset = 0
	keyLenOffset   = checksumOffset + 4
	valLenOffset   = keyLenOffset + 4
	flagOffset     = valLenOffset + 4

	// HeaderSize is the fixed size of an entry header in bytes
	HeaderSize = flagOffset + 1
)

// Size limits enforced on both encode validation and decode
const (
	MaxKeySize   = 1024        // 1 KiB
	MaxValueSize = 1024 * 1024 // 1 MiB
)

const (
	flagLive      byte = 0
	flagTombstone byte = 1
)

// Entry is the unit of change stored in the log
type Entry struct {
	Key     []byte // Key data
	Value   []byte // Value data, ignored when Deleted is set
	Deleted bool   // Tombstone flag
}

// NewEntry creates a live entry for key and value
func NewEntry(key, value []byte) *Entry {
	return &Entry{Key: key, Value: value}
}

// NewTombstone creates a deletion marker for key
func NewTombstone(key []byte) *Entry {
	return &Entry{Key: key, Deleted: true}
}

// Validate checks the entry against the size limits of the wire format
func (e *Entry) Validate() error {
	if len(e.Key) > MaxKeySize {
		return fmt.Errorf("%w: %d > %d", ErrKeyTooLarge, len(e.Key), MaxKeySize)
	}
	if !e.Deleted && len(e.Value) > MaxValueSize {
		return fmt.Errorf("%w: %d > %d", ErrValueTooLarge, len(e.Value), MaxValueSize)
	}
	return nil
}

// EncodedSize returns the number of bytes Encode produces for the entry
func (e *Entry) EncodedSize() int {
	return HeaderSize + len(e.Key) + len(e.payloadValue())
}

// Equal reports whether two entries carry the same key, value and flag.
// Tombstone values are not compared.
func (e *Entry) Equal(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Deleted != other.Deleted || !bytes.Equal(e.Key, other.Key) {
		return false
	}
	return e.Deleted || bytes.Equal(e.Value, other.Value)
}

func (e *Entry) payloadValue() []byte {
	if e.Deleted {
		return nil
	}
	return e.Value
}

// EntryCodec handles serialization and deserialization of log entries
type EntryCodec struct {
	table *crc32.Table
}

// NewEntryCodec creates a new entry codec instance
func NewEntryCodec() *EntryCodec {
	return &EntryCodec{table: crc32.IEEETable}
}

// Encode serializes an entry into its binary form
// Format: [CRC32(4)][KeyLen(4)][ValLen(4)][Flag(1)][Key][Value]
func (c *EntryCodec) Encode(e *Entry) []byte {
	value := e.payloadValue()

	buf := make([]byte, HeaderSize+len(e.Key)+len(value))

	binary.LittleEndian.PutUint32(buf[keyLenOffset:], uint32(len(e.Key)))
	binary.LittleEndian.PutUint32(buf[valLenOffset:], uint32(len(value)))
	buf[flagOffset] = flagLive
	if e.Deleted {
		buf[flagOffset] = flagTombstone
	}
	copy(buf[HeaderSize:], e.Key)
	copy(buf[HeaderSize+len(e.Key):], value)

	binary.LittleEndian.PutUint32(buf[checksumOffset:], crc32.Checksum(buf[keyLenOffset:], c.table))

	return buf
}

// Decode reads the next entry from r.
//
// It returns io.EOF when r is exhausted before the first header byte. A
// partially written record yields ErrTruncatedHeader or ErrTruncatedPayload,
// a damaged one ErrBadChecksum. Errors from r itself are returned unchanged.
func (c *EntryCodec) Decode(r io.Reader) (*Entry, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedHeader
		}
		return nil, err
	}

	storedCRC := binary.LittleEndian.Uint32(header[checksumOffset:])
	keyLen := binary.LittleEndian.Uint32(header[keyLenOffset:])
	valLen := binary.LittleEndian.Uint32(header[valLenOffset:])
	deleted := header[flagOffset] != flagLive

	// Limits are checked before anything is allocated from the length fields
	if keyLen > MaxKeySize {
		return nil, fmt.Errorf("%w: key_len %d > %d", ErrKeyTooLarge, keyLen, MaxKeySize)
	}
	if valLen > MaxValueSize {
		return nil, fmt.Errorf("%w: val_len %d > %d", ErrValueTooLarge, valLen, MaxValueSize)
	}

	payloadSize := int(keyLen)
	if !deleted {
		payloadSize += int(valLen)
	}

	payload := make([]byte, payloadSize)
	if payloadSize > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, ErrTruncatedPayload
			}
			return nil, err
		}
	}

	crc := crc32.Update(0, c.table, header[keyLenOffset:])
	crc = crc32.Update(crc, c.table, payload)
	if crc != storedCRC {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrBadChecksum, storedCRC, crc)
	}

	e := &Entry{
		Key:     payload[:keyLen:keyLen],
		Deleted: deleted,
	}
	if !deleted {
		e.Value = payload[keyLen:]
	}

	return e, nil
}

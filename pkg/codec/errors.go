package codec

import "errors"

// Decode errors
var (
	ErrTruncatedHeader  = errors.New("codec: entry header is incomplete")
	ErrTruncatedPayload = errors.New("codec: entry payload is missing expected bytes")
	ErrKeyTooLarge      = errors.New("codec: key size exceeds limit")
	ErrValueTooLarge    = errors.New("codec: value size exceeds limit")
	ErrBadChecksum      = errors.New("codec: entry checksum mismatch")
)

// Cell errors
var (
	ErrTypeMismatch   = errors.New("codec: cell type does not match expected type")
	ErrExpectMoreData = errors.New("codec: buffer too short, expected more data")
	ErrIllegalByte    = errors.New("codec: illegal byte sequence")
)

// IsRecoverable reports whether err marks a record that was cut short or
// damaged in place. Such a record ends a replay without failing it.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTruncatedHeader) ||
		errors.Is(err, ErrTruncatedPayload) ||
		errors.Is(err, ErrBadChecksum)
}

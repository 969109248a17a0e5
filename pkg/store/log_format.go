package store

import (
	"encoding/binary"
	"fmt"
)

// File header layout: [Magic(4)][Version(2)], little-endian
const (
	Magic          uint32 = 0x4B564442 // "KVDB"
	FormatVersion  uint16 = 2
	FileHeaderSize        = 6
)

func encodeFileHeader() []byte {
	buf := make([]byte, FileHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], FormatVersion)
	return buf
}

func checkFileHeader(buf []byte) error {
	if len(buf) < FileHeaderSize {
		return fmt.Errorf("%w: %d byte header", ErrBadMagic, len(buf))
	}
	if magic := binary.LittleEndian.Uint32(buf[0:4]); magic != Magic {
		return fmt.Errorf("%w: magic %#08x", ErrBadMagic, magic)
	}
	if version := binary.LittleEndian.Uint16(buf[4:6]); version > FormatVersion {
		return fmt.Errorf("%w: version %d > %d", ErrUnsupportedVersion, version, FormatVersion)
	}
	return nil
}

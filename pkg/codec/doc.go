// Package codec provides entry serialization and deserialization for KVDB.
//
// The codec package implements the binary record format of the append-only
// log. Every mutation of the store is one encoded Entry; a deletion is an
// Entry with the tombstone flag set.
//
// # Entry Format
//
// Entries are serialized in a binary format with the following structure:
//
//	[CRC32(4)][KeyLen(4)][ValLen(4)][Flag(1)][Key][Value]
//
// Fields:
//   - CRC32: CRC-32/IEEE checksum of everything after this field (little-endian)
//   - KeyLen: key length in bytes, at most MaxKeySize (little-endian)
//   - ValLen: value length in bytes, at most MaxValueSize (little-endian)
//   - Flag: 0 for a live entry, 1 for a tombstone
//   - Key: KeyLen bytes
//   - Value: ValLen bytes, omitted entirely for tombstones
//
// A tombstone always encodes ValLen as zero.
//
// # CRC32 Calculation
//
// The checksum covers KeyLen, ValLen, Flag, Key and Value. It never covers
// itself, and because it covers the length fields a corrupted length that
// still parses is caught as well.
//
// # Decoding
//
// Decode reads from any io.Reader, so the same code path serves log files
// and in-memory buffers:
//
//	c := codec.NewEntryCodec()
//	data := c.Encode(codec.NewEntry([]byte("key"), []byte("value")))
//
//	e, err := c.Decode(bytes.NewReader(data))
//	switch {
//	case err == io.EOF:
//	    // clean end of stream
//	case codec.IsRecoverable(err):
//	    // torn or damaged record: stop here
//	case err != nil:
//	    return err
//	}
//
// Length fields over the limits are rejected with ErrKeyTooLarge or
// ErrValueTooLarge before any payload is allocated.
//
// # Cells
//
// Cell values give keys and values a portable typed encoding (empty, i64,
// str). They are independent of the entry format and are used by tools that
// want to store integers rather than raw bytes.
package codec

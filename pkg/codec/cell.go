package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CellType identifies the kind of value held by a Cell
type CellType uint8

const (
	CellEmpty CellType = iota
	CellInt64
	CellString
)

// cellNullByte is the single byte an empty cell encodes to
const cellNullByte byte = 0x02

func (t CellType) String() string {
	switch t {
	case CellEmpty:
		return "empty"
	case CellInt64:
		return "i64"
	case CellString:
		return "str"
	default:
		return fmt.Sprintf("CellType(%d)", uint8(t))
	}
}

// ParseCellType maps a type name as printed by String back to a CellType
func ParseCellType(name string) (CellType, error) {
	switch name {
	case "empty":
		return CellEmpty, nil
	case "i64", "int64":
		return CellInt64, nil
	case "str", "string":
		return CellString, nil
	}
	return 0, fmt.Errorf("unknown cell type %q", name)
}

// Cell is a typed value: empty, a signed 64-bit integer or a byte string
type Cell struct {
	typ CellType
	i64 int64
	str []byte
}

// EmptyCell returns a cell holding no value
func EmptyCell() Cell { return Cell{typ: CellEmpty} }

// Int64Cell returns a cell holding v
func Int64Cell(v int64) Cell { return Cell{typ: CellInt64, i64: v} }

// StringCell returns a cell holding b
func StringCell(b []byte) Cell { return Cell{typ: CellString, str: b} }

func (c Cell) Type() CellType { return c.typ }

func (c Cell) IsEmpty() bool { return c.typ == CellEmpty }

// Int64 returns the integer value. It panics if the cell is not an i64 cell.
func (c Cell) Int64() int64 {
	if c.typ != CellInt64 {
		panic("codec: Int64 called on " + c.typ.String() + " cell")
	}
	return c.i64
}

// Bytes returns the string value. It panics if the cell is not a str cell.
func (c Cell) Bytes() []byte {
	if c.typ != CellString {
		panic("codec: Bytes called on " + c.typ.String() + " cell")
	}
	return c.str
}

func (c Cell) Equal(other Cell) bool {
	if c.typ != other.typ {
		return false
	}
	switch c.typ {
	case CellInt64:
		return c.i64 == other.i64
	case CellString:
		return bytes.Equal(c.str, other.str)
	}
	return true
}

func (c Cell) String() string {
	switch c.typ {
	case CellInt64:
		return fmt.Sprintf("%d", c.i64)
	case CellString:
		return string(c.str)
	}
	return ""
}

// AppendCell appends the encoding of c to dst.
//
//	empty: [0x02]
//	i64:   [value(8, LE)]
//	str:   [len(4, LE)][bytes]
func AppendCell(dst []byte, c Cell, expected CellType) ([]byte, error) {
	if c.typ != expected {
		return dst, fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, c.typ, expected)
	}

	switch c.typ {
	case CellEmpty:
		return append(dst, cellNullByte), nil
	case CellInt64:
		return binary.LittleEndian.AppendUint64(dst, uint64(c.i64)), nil
	case CellString:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(c.str)))
		return append(dst, c.str...), nil
	}
	return dst, fmt.Errorf("%w: %s", ErrTypeMismatch, c.typ)
}

// DecodeCell decodes one cell of type t from the front of buf and returns it
// together with the unconsumed remainder of buf.
func DecodeCell(buf []byte, t CellType) (Cell, []byte, error) {
	switch t {
	case CellEmpty:
		if len(buf) < 1 {
			return Cell{}, buf, ErrExpectMoreData
		}
		if buf[0] != cellNullByte {
			return Cell{}, buf, fmt.Errorf("%w: %#02x", ErrIllegalByte, buf[0])
		}
		return EmptyCell(), buf[1:], nil

	case CellInt64:
		if len(buf) < 8 {
			return Cell{}, buf, ErrExpectMoreData
		}
		v := int64(binary.LittleEndian.Uint64(buf))
		return Int64Cell(v), buf[8:], nil

	case CellString:
		if len(buf) < 4 {
			return Cell{}, buf, ErrExpectMoreData
		}
		n := binary.LittleEndian.Uint32(buf)
		if uint64(len(buf)-4) < uint64(n) {
			return Cell{}, buf, ErrExpectMoreData
		}
		data := bytes.Clone(buf[4 : 4+n])
		return StringCell(data), buf[4+n:], nil
	}

	return Cell{}, buf, fmt.Errorf("%w: unknown cell type %s", ErrTypeMismatch, t)
}

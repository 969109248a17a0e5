package cmd

import (
	"fmt"
	"strconv"

	"github.com/ssargent/kvdb/pkg/codec"
)

// typeBytes stores values exactly as given on the command line
const typeBytes = "bytes"

// encodeValue turns a command line argument into the stored value for typ
func encodeValue(typ, arg string) ([]byte, error) {
	if typ == "" || typ == typeBytes {
		return []byte(arg), nil
	}

	cellType, err := codec.ParseCellType(typ)
	if err != nil {
		return nil, err
	}

	var cell codec.Cell
	switch cellType {
	case codec.CellInt64:
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an i64: %w", arg, err)
		}
		cell = codec.Int64Cell(v)
	case codec.CellString:
		cell = codec.StringCell([]byte(arg))
	default:
		return nil, fmt.Errorf("type %s cannot be set from the command line", cellType)
	}

	return codec.AppendCell(nil, cell, cellType)
}

// formatValue renders a stored value as typ
func formatValue(typ string, value []byte) (string, error) {
	if typ == "" || typ == typeBytes {
		return string(value), nil
	}

	cellType, err := codec.ParseCellType(typ)
	if err != nil {
		return "", err
	}

	cell, rest, err := codec.DecodeCell(value, cellType)
	if err != nil {
		return "", fmt.Errorf("value is not a %s cell: %w", cellType, err)
	}
	if len(rest) != 0 {
		return "", fmt.Errorf("value is not a %s cell: %d trailing bytes", cellType, len(rest))
	}
	return cell.String(), nil
}

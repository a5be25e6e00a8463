package tx

import (
	"encoding/binary"
	"fmt"
)

// VarIntSize returns the encoded size of v as a CompactSize.
func VarIntSize(v uint64) int {
	switch {
	case v < 0xFD:
		return 1
	case v <= 0xFFFF:
		return 3
	case v <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}

// AppendVarInt appends v as a CompactSize: one byte below 0xFD, otherwise a
// 0xFD, 0xFE or 0xFF prefix and a 2, 4 or 8 byte little-endian value.
func AppendVarInt(dst []byte, v uint64) []byte {
	switch {
	case v < 0xFD:
		return append(dst, byte(v))
	case v <= 0xFFFF:
		return binary.LittleEndian.AppendUint16(append(dst, 0xFD), uint16(v))
	case v <= 0xFFFFFFFF:
		return binary.LittleEndian.AppendUint32(append(dst, 0xFE), uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(append(dst, 0xFF), v)
	}
}

// ReadVarInt decodes a CompactSize from the front of b and returns the
// value and the number of bytes consumed. Encodings wider than necessary
// are rejected.
func ReadVarInt(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	var (
		v   uint64
		n   int
		min uint64
	)
	switch b[0] {
	case 0xFD:
		n, min = 3, 0xFD
		if len(b) < n {
			return 0, 0, ErrTruncated
		}
		v = uint64(binary.LittleEndian.Uint16(b[1:]))
	case 0xFE:
		n, min = 5, 0x10000
		if len(b) < n {
			return 0, 0, ErrTruncated
		}
		v = uint64(binary.LittleEndian.Uint32(b[1:]))
	case 0xFF:
		n, min = 9, 0x100000000
		if len(b) < n {
			return 0, 0, ErrTruncated
		}
		v = binary.LittleEndian.Uint64(b[1:])
	default:
		return uint64(b[0]), 1, nil
	}
	if v < min {
		return 0, 0, fmt.Errorf("%w: %d encoded in %d bytes", ErrNonCanonicalVarInt, v, n)
	}
	return v, n, nil
}

// AppendVarBytes appends b prefixed by its CompactSize length.
func AppendVarBytes(dst, b []byte) []byte {
	return append(AppendVarInt(dst, uint64(len(b))), b...)
}

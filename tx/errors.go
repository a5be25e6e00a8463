package tx

import "errors"

var (
	// ErrTruncated is returned when serialized data ends early.
	ErrTruncated = errors.New("tx: unexpected end of data")

	// ErrNonCanonicalVarInt is returned for a CompactSize that uses a wider
	// form than its value needs.
	ErrNonCanonicalVarInt = errors.New("tx: non-canonical varint")

	// ErrTrailingData is returned when bytes remain after a transaction.
	ErrTrailingData = errors.New("tx: trailing data after transaction")

	// ErrInvalidFlag is returned when a segwit marker is followed by a
	// flag other than 0x01.
	ErrInvalidFlag = errors.New("tx: invalid segwit flag")

	// ErrTooLarge is returned for element counts that cannot fit in the
	// remaining input.
	ErrTooLarge = errors.New("tx: count exceeds remaining data")
)

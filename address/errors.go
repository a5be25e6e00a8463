package address

import "errors"

var (
	// ErrInvalidAddress is returned for strings that decode under no
	// supported address format.
	ErrInvalidAddress = errors.New("address: invalid address")

	// ErrInvalidChecksum is returned when a Base58Check or Bech32(m)
	// checksum does not verify.
	ErrInvalidChecksum = errors.New("address: invalid checksum")

	// ErrInvalidCharacter is returned for characters outside the encoding
	// alphabet.
	ErrInvalidCharacter = errors.New("address: invalid character")

	// ErrMixedCase is returned for Bech32 strings mixing upper and lower
	// case.
	ErrMixedCase = errors.New("address: mixed case")

	// ErrInvalidLength is returned for encodings that are too short or too
	// long.
	ErrInvalidLength = errors.New("address: invalid length")

	// ErrInvalidWitnessVersion is returned for witness versions above 16
	// or a checksum variant that does not match the version.
	ErrInvalidWitnessVersion = errors.New("address: invalid witness version")

	// ErrInvalidProgramLength is returned for witness programs outside 2-40
	// bytes or v0 programs that are neither 20 nor 32 bytes.
	ErrInvalidProgramLength = errors.New("address: invalid witness program length")

	// ErrInvalidPadding is returned when 5-to-8 bit regrouping leaves
	// non-zero or oversized padding.
	ErrInvalidPadding = errors.New("address: invalid padding")

	// ErrWrongNetwork is returned when an address belongs to another
	// network than the one requested.
	ErrWrongNetwork = errors.New("address: address is for a different network")

	// ErrUnsupportedScript is returned for script types the engine cannot
	// build or pay to.
	ErrUnsupportedScript = errors.New("address: unsupported script type")
)

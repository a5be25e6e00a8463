package address

import (
	"fmt"
	"strings"
)

// Encoding selects the Bech32 checksum constant.
type Encoding uint32

const (
	// Bech32 is the BIP-173 checksum, used by witness version 0.
	Bech32 Encoding = 1

	// Bech32m is the BIP-350 checksum, used by witness versions 1-16.
	Bech32m Encoding = 0x2bc830a3
)

func (e Encoding) String() string {
	switch e {
	case Bech32:
		return "bech32"
	case Bech32m:
		return "bech32m"
	default:
		return "unknown"
	}
}

const (
	bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	bech32MaxLen  = 90
)

var bech32Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(bech32Charset); i++ {
		idx[bech32Charset[i]] = int8(i)
	}
	return idx
}()

func bech32Polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

func bech32Checksum(hrp string, data []byte, enc Encoding) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := bech32Polymod(values) ^ uint32(enc)
	out := make([]byte, 6)
	for i := range out {
		out[i] = byte(mod>>uint(5*(5-i))) & 31
	}
	return out
}

// Bech32Encode encodes hrp and 5-bit data with the given checksum variant.
// The hrp is lower-cased.
func Bech32Encode(hrp string, data []byte, enc Encoding) (string, error) {
	hrp = strings.ToLower(hrp)
	if len(hrp) == 0 || len(hrp)+1+len(data)+6 > bech32MaxLen {
		return "", ErrInvalidLength
	}
	var sb strings.Builder
	sb.Grow(len(hrp) + 1 + len(data) + 6)
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, d := range data {
		if d > 31 {
			return "", fmt.Errorf("%w: data value %d", ErrInvalidCharacter, d)
		}
		sb.WriteByte(bech32Charset[d])
	}
	for _, d := range bech32Checksum(hrp, data, enc) {
		sb.WriteByte(bech32Charset[d])
	}
	return sb.String(), nil
}

// Bech32Decode decodes a Bech32 or Bech32m string and reports which
// checksum matched. The returned hrp is lower case and data excludes the
// checksum.
func Bech32Decode(s string) (hrp string, data []byte, enc Encoding, err error) {
	if len(s) > bech32MaxLen {
		return "", nil, 0, ErrInvalidLength
	}
	var lower, upper bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 33 || c > 126 {
			return "", nil, 0, fmt.Errorf("%w: byte 0x%02x at %d", ErrInvalidCharacter, c, i)
		}
		lower = lower || (c >= 'a' && c <= 'z')
		upper = upper || (c >= 'A' && c <= 'Z')
	}
	if lower && upper {
		return "", nil, 0, ErrMixedCase
	}
	s = strings.ToLower(s)

	sep := strings.LastIndexByte(s, '1')
	if sep < 1 || sep+7 > len(s) {
		return "", nil, 0, ErrInvalidLength
	}
	hrp = s[:sep]
	raw := s[sep+1:]
	data = make([]byte, len(raw))
	for i := 0; i < len(raw); i++ {
		v := bech32Index[raw[i]]
		if v < 0 {
			return "", nil, 0, fmt.Errorf("%w: %q", ErrInvalidCharacter, raw[i])
		}
		data[i] = byte(v)
	}

	switch bech32Polymod(append(hrpExpand(hrp), data...)) {
	case uint32(Bech32):
		enc = Bech32
	case uint32(Bech32m):
		enc = Bech32m
	default:
		return "", nil, 0, ErrInvalidChecksum
	}
	return hrp, data[:len(data)-6], enc, nil
}

// ConvertBits regroups a slice of fromBits-wide values into toBits-wide
// values. With pad set, a trailing partial group is zero-padded; without
// it, leftover bits must be fewer than fromBits and all zero.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc, bits uint
	maxv := uint(1)<<toBits - 1
	out := make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	for _, v := range data {
		if uint(v)>>fromBits != 0 {
			return nil, fmt.Errorf("%w: value %d exceeds %d bits", ErrInvalidCharacter, v, fromBits)
		}
		acc = acc<<fromBits | uint(v)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits)&maxv))
		}
	} else if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, ErrInvalidPadding
	}
	return out, nil
}

// EncodeSegWit encodes a witness program as a segwit address, choosing
// Bech32 for version 0 and Bech32m otherwise.
func EncodeSegWit(hrp string, version byte, program []byte) (string, error) {
	if err := checkWitnessProgram(version, program); err != nil {
		return "", err
	}
	enc := Bech32m
	if version == 0 {
		enc = Bech32
	}
	conv, err := ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	return Bech32Encode(hrp, append([]byte{version}, conv...), enc)
}

// DecodeSegWit decodes a segwit address for the expected hrp and enforces
// the BIP-173/BIP-350 version, length and checksum-variant rules.
func DecodeSegWit(expectedHRP, addr string) (version byte, program []byte, err error) {
	hrp, data, enc, err := Bech32Decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if hrp != strings.ToLower(expectedHRP) {
		return 0, nil, fmt.Errorf("%w: hrp %q", ErrWrongNetwork, hrp)
	}
	if len(data) < 1 {
		return 0, nil, ErrInvalidLength
	}
	version = data[0]
	if version > 16 {
		return 0, nil, fmt.Errorf("%w: %d", ErrInvalidWitnessVersion, version)
	}
	if (version == 0 && enc != Bech32) || (version != 0 && enc != Bech32m) {
		return 0, nil, fmt.Errorf("%w: version %d with %v checksum",
			ErrInvalidWitnessVersion, version, enc)
	}
	program, err = ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return 0, nil, err
	}
	if err := checkWitnessProgram(version, program); err != nil {
		return 0, nil, err
	}
	return version, program, nil
}

func checkWitnessProgram(version byte, program []byte) error {
	if version > 16 {
		return fmt.Errorf("%w: %d", ErrInvalidWitnessVersion, version)
	}
	if len(program) < 2 || len(program) > 40 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidProgramLength, len(program))
	}
	if version == 0 && len(program) != 20 && len(program) != 32 {
		return fmt.Errorf("%w: %d bytes for v0", ErrInvalidProgramLength, len(program))
	}
	return nil
}

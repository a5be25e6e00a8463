package p256k1

import (
	"errors"
	"fmt"
)

// ErrMalformedDER is returned for signatures that are not strict DER.
var ErrMalformedDER = errors.New("p256k1: malformed DER signature")

const (
	derSequence = 0x30
	derInteger  = 0x02
)

// appendDERInt appends a DER INTEGER holding the 32-byte big-endian value b:
// leading zero bytes are stripped and a single 0x00 is prepended when the
// high bit would otherwise mark the value negative.
func appendDERInt(dst []byte, b [32]byte) []byte {
	v := b[:]
	for len(v) > 1 && v[0] == 0 {
		v = v[1:]
	}
	pad := v[0]&0x80 != 0
	n := len(v)
	if pad {
		n++
	}
	dst = append(dst, derInteger, byte(n))
	if pad {
		dst = append(dst, 0x00)
	}
	return append(dst, v...)
}

// SerializeDER encodes the signature as SEQUENCE { INTEGER r, INTEGER s }.
func (sig *ECDSASignature) SerializeDER() []byte {
	body := make([]byte, 0, 70)
	body = appendDERInt(body, sig.R())
	body = appendDERInt(body, sig.S())
	out := make([]byte, 0, len(body)+3)
	out = append(out, derSequence, byte(len(body)))
	return append(out, body...)
}

// parseDERInt reads one INTEGER from b and returns its value and the rest
// of the input.
func parseDERInt(b []byte) (*Scalar, []byte, error) {
	if len(b) < 2 || b[0] != derInteger {
		return nil, nil, fmt.Errorf("%w: expected integer", ErrMalformedDER)
	}
	n := int(b[1])
	b = b[2:]
	if n == 0 || n > 33 || n > len(b) {
		return nil, nil, fmt.Errorf("%w: bad integer length %d", ErrMalformedDER, n)
	}
	v := b[:n]
	if v[0]&0x80 != 0 {
		return nil, nil, fmt.Errorf("%w: negative integer", ErrMalformedDER)
	}
	if n > 1 && v[0] == 0 && v[1]&0x80 == 0 {
		return nil, nil, fmt.Errorf("%w: integer has excess padding", ErrMalformedDER)
	}
	if n == 33 {
		v = v[1:]
	}

	var buf [32]byte
	copy(buf[32-len(v):], v)
	var s Scalar
	if s.setB32(buf[:]) {
		return nil, nil, fmt.Errorf("%w: integer not below group order", ErrMalformedDER)
	}
	if s.isZero() {
		return nil, nil, fmt.Errorf("%w: zero integer", ErrMalformedDER)
	}
	return &s, b[n:], nil
}

// ParseDERSignature decodes a strict DER signature. A single trailing byte
// after the sequence is accepted and ignored so signatures can be passed
// with their sighash type still attached.
func ParseDERSignature(der []byte) (*ECDSASignature, error) {
	if len(der) < 8 || der[0] != derSequence {
		return nil, fmt.Errorf("%w: missing sequence", ErrMalformedDER)
	}
	total := int(der[1]) + 2
	switch len(der) {
	case total:
	case total + 1:
		der = der[:total]
	default:
		return nil, fmt.Errorf("%w: length mismatch", ErrMalformedDER)
	}

	r, rest, err := parseDERInt(der[2:])
	if err != nil {
		return nil, err
	}
	s, rest, err := parseDERInt(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing data in sequence", ErrMalformedDER)
	}
	return &ECDSASignature{r: *r, s: *s}, nil
}

// ECDSASignatureFromRS builds a signature from 32-byte big-endian r and s,
// both of which must lie in [1, n-1].
func ECDSASignatureFromRS(r, s []byte) (*ECDSASignature, error) {
	if len(r) != 32 || len(s) != 32 {
		return nil, errors.New("r and s must be 32 bytes")
	}
	var sig ECDSASignature
	if !sig.r.setB32Seckey(r) || !sig.s.setB32Seckey(s) {
		return nil, errors.New("r or s out of range")
	}
	return &sig, nil
}

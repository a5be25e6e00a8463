package p256k1

import (
	"unsafe"
)

// Scalar represents a scalar modulo the group order n of the secp256k1 curve.
// Values are always fully reduced.
type Scalar struct {
	d [4]uint64
}

// Group order constants (secp256k1 curve order n)
const (
	scalarN0 = 0xBFD25E8CD0364141
	scalarN1 = 0xBAAEDCE6AF48A03B
	scalarN2 = 0xFFFFFFFFFFFFFFFE
	scalarN3 = 0xFFFFFFFFFFFFFFFF

	// Limbs of half the secp256k1 order
	scalarNH0 = 0xDFE92F46681B20A0
	scalarNH1 = 0x5D576E7357A4501D
	scalarNH2 = 0xFFFFFFFFFFFFFFFF
	scalarNH3 = 0x7FFFFFFFFFFFFFFF
)

var halfOrder = [4]uint64{scalarNH0, scalarNH1, scalarNH2, scalarNH3}

// setB32 sets a scalar from a 32-byte big-endian array, reducing modulo the
// group order. It reports whether the input was >= n.
func (r *Scalar) setB32(bin []byte) (overflow bool) {
	var raw [4]uint64
	readBE256(&raw, bin)
	overflow = cmp256(&raw, &groupN.m) >= 0
	groupN.reduce(&r.d, &raw)
	return overflow
}

// setB32Seckey sets a scalar from a 32-byte array and returns true if it's a
// valid secret key, that is in [1, n-1].
func (r *Scalar) setB32Seckey(bin []byte) bool {
	overflow := r.setB32(bin)
	return !overflow && !r.isZero()
}

// getB32 converts a scalar to a 32-byte big-endian array
func (r *Scalar) getB32(bin []byte) {
	if len(bin) != 32 {
		panic("output buffer must be 32 bytes")
	}
	writeBE256(bin, &r.d)
}

func (r *Scalar) setInt(v uint64) {
	r.d = [4]uint64{v, 0, 0, 0}
}

func (r *Scalar) add(a, b *Scalar) {
	groupN.add(&r.d, &a.d, &b.d)
}

func (r *Scalar) sub(a, b *Scalar) {
	groupN.sub(&r.d, &a.d, &b.d)
}

func (r *Scalar) mul(a, b *Scalar) {
	groupN.mul(&r.d, &a.d, &b.d)
}

func (r *Scalar) negate(a *Scalar) {
	groupN.neg(&r.d, &a.d)
}

// inverse sets r = a^-1 mod n.
func (r *Scalar) inverse(a *Scalar) {
	groupN.inv(&r.d, &a.d)
}

func (r *Scalar) isZero() bool {
	return isZero256(&r.d)
}

// isHigh reports whether the scalar is greater than n/2.
func (r *Scalar) isHigh() bool {
	return cmp256(&r.d, &halfOrder) > 0
}

func (r *Scalar) equal(a *Scalar) bool {
	return (r.d[0]^a.d[0])|(r.d[1]^a.d[1])|(r.d[2]^a.d[2])|(r.d[3]^a.d[3]) == 0
}

// bit returns bit i of the scalar.
func (r *Scalar) bit(i uint) uint64 {
	return (r.d[i>>6] >> (i & 63)) & 1
}

// clear clears a scalar to prevent leaking sensitive information
func (r *Scalar) clear() {
	memclear(unsafe.Pointer(r), unsafe.Sizeof(*r))
}

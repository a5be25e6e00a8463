package p256k1

import (
	"errors"
	"unsafe"
)

// FieldElement represents an element of the secp256k1 base field GF(p).
// The value is kept fully reduced in 4 little-endian 64-bit limbs.
type FieldElement struct {
	n [4]uint64
}

// ErrFieldOverflow is returned when a 32-byte encoding is not below p.
var ErrFieldOverflow = errors.New("field element overflow")

// sqrtExp is (p+1)/4, valid because p ≡ 3 (mod 4).
var sqrtExp = func() [4]uint64 {
	var one, t [4]uint64
	one[0] = 1
	add256(&t, &fieldP.m, &one)
	return [4]uint64{
		t[0]>>2 | t[1]<<62,
		t[1]>>2 | t[2]<<62,
		t[2]>>2 | t[3]<<62,
		t[3] >> 2,
	}
}()

// Field element constants
var (
	FieldElementZero = FieldElement{}
	FieldElementOne  = FieldElement{n: [4]uint64{1, 0, 0, 0}}

	// fieldSeven is the curve constant b in y^2 = x^3 + 7.
	fieldSeven = FieldElement{n: [4]uint64{7, 0, 0, 0}}
)

// setB32 sets a field element from a 32-byte big-endian array. Values that
// are not below p are rejected and leave r holding the raw limbs reduced.
func (r *FieldElement) setB32(b []byte) error {
	if len(b) != 32 {
		return errors.New("field element byte array must be 32 bytes")
	}
	var raw [4]uint64
	readBE256(&raw, b)
	fieldP.reduce(&r.n, &raw)
	if cmp256(&raw, &fieldP.m) >= 0 {
		return ErrFieldOverflow
	}
	return nil
}

// getB32 writes the element as 32 big-endian bytes.
func (r *FieldElement) getB32(b []byte) {
	if len(b) != 32 {
		panic("field element byte array must be 32 bytes")
	}
	writeBE256(b, &r.n)
}

func (r *FieldElement) setInt(a uint64) {
	r.n = [4]uint64{a, 0, 0, 0}
}

func (r *FieldElement) isZero() bool {
	return isZero256(&r.n)
}

func (r *FieldElement) isOdd() bool {
	return r.n[0]&1 == 1
}

func (r *FieldElement) equal(a *FieldElement) bool {
	return (r.n[0]^a.n[0])|(r.n[1]^a.n[1])|(r.n[2]^a.n[2])|(r.n[3]^a.n[3]) == 0
}

func (r *FieldElement) add(a, b *FieldElement) {
	fieldP.add(&r.n, &a.n, &b.n)
}

func (r *FieldElement) sub(a, b *FieldElement) {
	fieldP.sub(&r.n, &a.n, &b.n)
}

func (r *FieldElement) negate(a *FieldElement) {
	fieldP.neg(&r.n, &a.n)
}

func (r *FieldElement) mul(a, b *FieldElement) {
	fieldP.mul(&r.n, &a.n, &b.n)
}

func (r *FieldElement) sqr(a *FieldElement) {
	fieldP.mul(&r.n, &a.n, &a.n)
}

// inv sets r = a^-1. The inverse of zero is zero.
func (r *FieldElement) inv(a *FieldElement) {
	fieldP.inv(&r.n, &a.n)
}

// sqrt sets r to a square root of a and reports whether a is a quadratic
// residue. When it is not, r holds an unspecified value.
func (r *FieldElement) sqrt(a *FieldElement) bool {
	var root, check FieldElement
	fieldP.exp(&root.n, &a.n, &sqrtExp)
	check.sqr(&root)
	*r = root
	return check.equal(a)
}

// clear clears a field element to prevent leaking sensitive information
func (r *FieldElement) clear() {
	memclear(unsafe.Pointer(r), unsafe.Sizeof(*r))
}

package p256k1

import (
	"encoding/binary"
	"math/bits"
	"unsafe"
)

// modulus holds one of the two secp256k1 prime moduli (the field prime p and
// the group order n) together with the constants its arithmetic needs.
//
// All 256-bit values are stored as 4 uint64 limbs, least significant limb
// first. Every public operation returns a value reduced into [0, m).
type modulus struct {
	// m is the prime itself.
	m [4]uint64

	// c is 2^256 - m. Both moduli sit just below 2^256, so c is small
	// (33 bits for p, 129 bits for n) and 2^256 ≡ c (mod m) folds the
	// upper half of a wide product back into the lower half.
	c [4]uint64

	// mMinus2 is the Fermat exponent used for inversion.
	mMinus2 [4]uint64
}

// wideFolds is the number of hi*c folds applied to a 512-bit product. Four
// folds drive the upper half to zero for any product of two reduced values
// under either modulus (three suffice for p), so the loop runs a fixed
// number of times regardless of the operands.
const wideFolds = 4

var (
	// fieldP is the secp256k1 field prime 2^256 - 2^32 - 977.
	fieldP = newModulus([4]uint64{
		0xFFFFFFFEFFFFFC2F, 0xFFFFFFFFFFFFFFFF,
		0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF,
	})

	// groupN is the secp256k1 group order.
	groupN = newModulus([4]uint64{
		scalarN0, scalarN1, scalarN2, scalarN3,
	})
)

func newModulus(m [4]uint64) *modulus {
	md := &modulus{m: m}
	var zero, two [4]uint64
	two[0] = 2
	sub256(&md.c, &zero, &m)
	sub256(&md.mMinus2, &m, &two)
	return md
}

// readBE256 loads a 32-byte big-endian value into limbs.
func readBE256(r *[4]uint64, b []byte) {
	r[3] = binary.BigEndian.Uint64(b[0:8])
	r[2] = binary.BigEndian.Uint64(b[8:16])
	r[1] = binary.BigEndian.Uint64(b[16:24])
	r[0] = binary.BigEndian.Uint64(b[24:32])
}

// writeBE256 stores limbs as a 32-byte big-endian value.
func writeBE256(b []byte, a *[4]uint64) {
	binary.BigEndian.PutUint64(b[0:8], a[3])
	binary.BigEndian.PutUint64(b[8:16], a[2])
	binary.BigEndian.PutUint64(b[16:24], a[1])
	binary.BigEndian.PutUint64(b[24:32], a[0])
}

// cmp256 returns -1, 0 or 1 as a is less than, equal to or greater than b.
func cmp256(a, b *[4]uint64) int {
	for i := 3; i >= 0; i-- {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

func isZero256(a *[4]uint64) bool {
	return a[0]|a[1]|a[2]|a[3] == 0
}

// add256 sets r = a + b mod 2^256 and returns the carry out.
func add256(r, a, b *[4]uint64) uint64 {
	var c uint64
	r[0], c = bits.Add64(a[0], b[0], 0)
	r[1], c = bits.Add64(a[1], b[1], c)
	r[2], c = bits.Add64(a[2], b[2], c)
	r[3], c = bits.Add64(a[3], b[3], c)
	return c
}

// sub256 sets r = a - b mod 2^256 and returns the borrow out.
func sub256(r, a, b *[4]uint64) uint64 {
	var c uint64
	r[0], c = bits.Sub64(a[0], b[0], 0)
	r[1], c = bits.Sub64(a[1], b[1], c)
	r[2], c = bits.Sub64(a[2], b[2], c)
	r[3], c = bits.Sub64(a[3], b[3], c)
	return c
}

// mul256 returns the full 512-bit product a*b.
func mul256(a, b *[4]uint64) (w [8]uint64) {
	for i := 0; i < 4; i++ {
		var carry uint64
		for j := 0; j < 4; j++ {
			hi, lo := bits.Mul64(a[i], b[j])
			var c uint64
			lo, c = bits.Add64(lo, w[i+j], 0)
			hi += c
			lo, c = bits.Add64(lo, carry, 0)
			hi += c
			w[i+j] = lo
			carry = hi
		}
		w[i+4] = carry
	}
	return w
}

// selectLimbs sets r = a when mask is all ones and r = b when mask is zero.
func selectLimbs(r, a, b *[4]uint64, mask uint64) {
	r[0] = (a[0] & mask) | (b[0] &^ mask)
	r[1] = (a[1] & mask) | (b[1] &^ mask)
	r[2] = (a[2] & mask) | (b[2] &^ mask)
	r[3] = (a[3] & mask) | (b[3] &^ mask)
}

// reduce sets r = a mod m for any a < 2^256. Since m > 2^255 a single
// conditional subtraction is enough.
func (md *modulus) reduce(r, a *[4]uint64) {
	var t [4]uint64
	borrow := sub256(&t, a, &md.m)
	selectLimbs(r, &t, a, borrow-1)
}

// reduceWide sets r = w mod m for a 512-bit w.
func (md *modulus) reduceWide(r *[4]uint64, w *[8]uint64) {
	t := *w
	for i := 0; i < wideFolds; i++ {
		hi := [4]uint64{t[4], t[5], t[6], t[7]}
		p := mul256(&hi, &md.c)

		var c uint64
		t[0], c = bits.Add64(t[0], p[0], 0)
		t[1], c = bits.Add64(t[1], p[1], c)
		t[2], c = bits.Add64(t[2], p[2], c)
		t[3], c = bits.Add64(t[3], p[3], c)
		t[4], c = bits.Add64(p[4], 0, c)
		t[5], c = bits.Add64(p[5], 0, c)
		t[6], c = bits.Add64(p[6], 0, c)
		t[7], _ = bits.Add64(p[7], 0, c)
	}
	lo := [4]uint64{t[0], t[1], t[2], t[3]}
	md.reduce(r, &lo)
}

// add sets r = a + b mod m.
func (md *modulus) add(r, a, b *[4]uint64) {
	var s, t [4]uint64
	carry := add256(&s, a, b)
	borrow := sub256(&t, &s, &md.m)
	// t is correct when the sum carried out of 256 bits or is >= m.
	selectLimbs(r, &t, &s, 0-(carry|(borrow^1)))
}

// sub sets r = a - b mod m.
func (md *modulus) sub(r, a, b *[4]uint64) {
	var t, fix [4]uint64
	borrow := sub256(&t, a, b)
	mask := 0 - borrow
	fix[0] = md.m[0] & mask
	fix[1] = md.m[1] & mask
	fix[2] = md.m[2] & mask
	fix[3] = md.m[3] & mask
	add256(r, &t, &fix)
}

// neg sets r = -a mod m.
func (md *modulus) neg(r, a *[4]uint64) {
	var zero [4]uint64
	md.sub(r, &zero, a)
}

// mul sets r = a * b mod m.
func (md *modulus) mul(r, a, b *[4]uint64) {
	w := mul256(a, b)
	md.reduceWide(r, &w)
}

// exp sets r = a^e mod m using right-to-left binary exponentiation. Both
// branches of every step are computed and the result is picked by mask.
func (md *modulus) exp(r, a, e *[4]uint64) {
	result := [4]uint64{1, 0, 0, 0}
	base := *a
	for i := 0; i < 4; i++ {
		limb := e[i]
		for j := 0; j < 64; j++ {
			var prod [4]uint64
			md.mul(&prod, &result, &base)
			selectLimbs(&result, &prod, &result, 0-(limb&1))
			md.mul(&base, &base, &base)
			limb >>= 1
		}
	}
	*r = result
}

// inv sets r = a^-1 mod m via Fermat's little theorem. The inverse of zero
// is reported as zero.
func (md *modulus) inv(r, a *[4]uint64) {
	md.exp(r, a, &md.mMinus2)
}

// memclear clears memory to prevent leaking sensitive information
func memclear(ptr unsafe.Pointer, n uintptr) {
	for i := uintptr(0); i < n; i++ {
		*(*byte)(unsafe.Pointer(uintptr(ptr) + i)) = 0
	}
}

// ZeroBytes overwrites b with zeros. It is used for secret key buffers.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	memclear(unsafe.Pointer(&b[0]), uintptr(len(b)))
}

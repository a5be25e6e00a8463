// Package ripemd160 implements the RIPEMD-160 hash algorithm used by
// Bitcoin's HASH160 (RIPEMD160(SHA256(x))).
package ripemd160

import (
	"encoding/binary"
	"hash"
	"math/bits"
)

// Size is the size of a RIPEMD-160 checksum in bytes.
const Size = 20

// BlockSize is the block size of RIPEMD-160 in bytes.
const BlockSize = 64

const (
	init0 = 0x67452301
	init1 = 0xEFCDAB89
	init2 = 0x98BADCFE
	init3 = 0x10325476
	init4 = 0xC3D2E1F0
)

type digest struct {
	s  [5]uint32
	x  [BlockSize]byte
	nx int
	tc uint64
}

// New returns a new hash.Hash computing the RIPEMD-160 checksum.
func New() hash.Hash {
	d := new(digest)
	d.Reset()
	return d
}

// Sum returns the RIPEMD-160 checksum of data.
func Sum(data []byte) [Size]byte {
	var d digest
	d.Reset()
	d.Write(data)
	var out [Size]byte
	d.checkSum(&out)
	return out
}

func (d *digest) Reset() {
	d.s = [5]uint32{init0, init1, init2, init3, init4}
	d.nx = 0
	d.tc = 0
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return BlockSize }

func (d *digest) Write(p []byte) (int, error) {
	nn := len(p)
	d.tc += uint64(nn)
	if d.nx > 0 {
		n := copy(d.x[d.nx:], p)
		d.nx += n
		p = p[n:]
		if d.nx == BlockSize {
			d.block(d.x[:])
			d.nx = 0
		}
	}
	for len(p) >= BlockSize {
		d.block(p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		d.nx = copy(d.x[:], p)
	}
	return nn, nil
}

// Sum appends the current checksum to in without changing the state.
func (d *digest) Sum(in []byte) []byte {
	d0 := *d
	var out [Size]byte
	d0.checkSum(&out)
	return append(in, out[:]...)
}

func (d *digest) checkSum(out *[Size]byte) {
	// Pad with 0x80 then zeros to 56 mod 64, then the bit length as a
	// little-endian uint64.
	tc := d.tc
	var tmp [BlockSize]byte
	tmp[0] = 0x80
	if tc%BlockSize < 56 {
		d.Write(tmp[:56-tc%BlockSize])
	} else {
		d.Write(tmp[:BlockSize+56-tc%BlockSize])
	}
	binary.LittleEndian.PutUint64(tmp[:8], tc<<3)
	d.Write(tmp[:8])

	for i, v := range d.s {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
}

// Message word selection for the left (n) and right (r) lines.
var (
	wordN = [80]uint8{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
		7, 4, 13, 1, 10, 6, 15, 3, 12, 0, 9, 5, 2, 14, 11, 8,
		3, 10, 14, 4, 9, 15, 8, 1, 2, 7, 0, 6, 13, 11, 5, 12,
		1, 9, 11, 10, 0, 8, 12, 4, 13, 3, 7, 15, 14, 5, 6, 2,
		4, 0, 5, 9, 7, 12, 2, 10, 14, 1, 3, 8, 11, 6, 15, 13,
	}
	wordR = [80]uint8{
		5, 14, 7, 0, 9, 2, 11, 4, 13, 6, 15, 8, 1, 10, 3, 12,
		6, 11, 3, 7, 0, 13, 5, 10, 14, 15, 8, 12, 4, 9, 1, 2,
		15, 5, 1, 3, 7, 14, 6, 9, 11, 8, 12, 2, 10, 0, 4, 13,
		8, 6, 4, 1, 3, 11, 15, 0, 5, 12, 2, 13, 9, 7, 10, 14,
		12, 15, 10, 4, 1, 5, 8, 7, 6, 2, 13, 14, 0, 3, 9, 11,
	}

	// Rotation amounts for the left and right lines.
	rotN = [80]uint8{
		11, 14, 15, 12, 5, 8, 7, 9, 11, 13, 14, 15, 6, 7, 9, 8,
		7, 6, 8, 13, 11, 9, 7, 15, 7, 12, 15, 9, 11, 7, 13, 12,
		11, 13, 6, 7, 14, 9, 13, 15, 14, 8, 13, 6, 5, 12, 7, 5,
		11, 12, 14, 15, 14, 15, 9, 8, 9, 14, 5, 6, 8, 6, 5, 12,
		9, 15, 5, 11, 6, 8, 13, 12, 5, 12, 13, 14, 11, 8, 5, 6,
	}
	rotR = [80]uint8{
		8, 9, 9, 11, 13, 15, 15, 5, 7, 7, 8, 11, 14, 14, 12, 6,
		9, 13, 15, 7, 12, 8, 9, 11, 7, 7, 12, 7, 6, 15, 13, 11,
		9, 7, 15, 11, 8, 6, 6, 14, 12, 13, 5, 14, 13, 13, 7, 5,
		15, 5, 8, 11, 14, 14, 6, 14, 6, 9, 12, 9, 12, 5, 15, 8,
		8, 5, 12, 9, 12, 5, 14, 6, 8, 13, 6, 5, 15, 13, 11, 11,
	}

	constN = [5]uint32{0x00000000, 0x5A827999, 0x6ED9EBA1, 0x8F1BBCDC, 0xA953FD4E}
	constR = [5]uint32{0x50A28BE6, 0x5C4DD124, 0x6D703EF3, 0x7A6D76E9, 0x00000000}
)

// f is the round function for round group j/16 (0..4).
func f(round int, x, y, z uint32) uint32 {
	switch round {
	case 0:
		return x ^ y ^ z
	case 1:
		return (x & y) | (^x & z)
	case 2:
		return (x | ^y) ^ z
	case 3:
		return (x & z) | (y &^ z)
	default:
		return x ^ (y | ^z)
	}
}

func (d *digest) block(p []byte) {
	var x [16]uint32
	for i := range x {
		x[i] = binary.LittleEndian.Uint32(p[i*4:])
	}

	a, b, c, dd, e := d.s[0], d.s[1], d.s[2], d.s[3], d.s[4]
	ar, br, cr, dr, er := a, b, c, dd, e

	for j := 0; j < 80; j++ {
		round := j / 16

		t := bits.RotateLeft32(a+f(round, b, c, dd)+x[wordN[j]]+constN[round], int(rotN[j])) + e
		a, e, dd, c, b = e, dd, bits.RotateLeft32(c, 10), b, t

		t = bits.RotateLeft32(ar+f(4-round, br, cr, dr)+x[wordR[j]]+constR[round], int(rotR[j])) + er
		ar, er, dr, cr, br = er, dr, bits.RotateLeft32(cr, 10), br, t
	}

	t := d.s[1] + c + dr
	d.s[1] = d.s[2] + dd + er
	d.s[2] = d.s[3] + e + ar
	d.s[3] = d.s[4] + a + br
	d.s[4] = d.s[0] + b + cr
	d.s[0] = t
}

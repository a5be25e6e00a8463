package p256k1

import (
	"sync"
)

var (
	// genTable holds 2^i * G for every bit position of a scalar. It is
	// built once on first use and never written again.
	genTable     [256]GroupElementAffine
	genTableOnce sync.Once
)

func initGenTable() {
	p := Generator
	for i := range genTable {
		genTable[i] = p
		p.double(&p)
	}
}

// Ecmult sets r = k * a using binary double-and-add, consuming k from the
// least significant bit upwards.
func Ecmult(r *GroupElementAffine, k *Scalar, a *GroupElementAffine) {
	var acc GroupElementAffine
	acc.setInfinity()
	addend := *a
	for i := uint(0); i < 256; i++ {
		if k.bit(i) == 1 {
			acc.add(&acc, &addend)
		}
		if i < 255 {
			addend.double(&addend)
		}
	}
	*r = acc
	addend.clear()
}

// EcmultGen sets r = k * G. The doublings of G come from a shared table so
// only the additions are performed per call.
func EcmultGen(r *GroupElementAffine, k *Scalar) {
	genTableOnce.Do(initGenTable)
	var acc GroupElementAffine
	acc.setInfinity()
	for i := uint(0); i < 256; i++ {
		if k.bit(i) == 1 {
			acc.add(&acc, &genTable[i])
		}
	}
	*r = acc
}

// ecmultDouble sets r = na*a + ng*G, the combination needed by both
// signature verifiers.
func ecmultDouble(r *GroupElementAffine, na *Scalar, a *GroupElementAffine, ng *Scalar) {
	var pa, pg GroupElementAffine
	Ecmult(&pa, na, a)
	EcmultGen(&pg, ng)
	r.add(&pa, &pg)
}

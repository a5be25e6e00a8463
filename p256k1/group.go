package p256k1

// GroupElementAffine represents a point on the secp256k1 curve in affine
// coordinates (x, y), or the point at infinity.
type GroupElementAffine struct {
	x, y     FieldElement
	infinity bool
}

// Generator point G for secp256k1 curve
var (
	GeneratorX FieldElement
	GeneratorY FieldElement
	Generator  GroupElementAffine
)

func init() {
	gxBytes := []byte{
		0x79, 0xBE, 0x66, 0x7E, 0xF9, 0xDC, 0xBB, 0xAC, 0x55, 0xA0, 0x62, 0x95, 0xCE, 0x87, 0x0B, 0x07,
		0x02, 0x9B, 0xFC, 0xDB, 0x2D, 0xCE, 0x28, 0xD9, 0x59, 0xF2, 0x81, 0x5B, 0x16, 0xF8, 0x17, 0x98,
	}
	gyBytes := []byte{
		0x48, 0x3A, 0xDA, 0x77, 0x26, 0xA3, 0xC4, 0x65, 0x5D, 0xA4, 0xFB, 0xFC, 0x0E, 0x11, 0x08, 0xA8,
		0xFD, 0x17, 0xB4, 0x48, 0xA6, 0x85, 0x54, 0x19, 0x9C, 0x47, 0xD0, 0x8F, 0xFB, 0x10, 0xD4, 0xB8,
	}
	if err := GeneratorX.setB32(gxBytes); err != nil {
		panic(err)
	}
	if err := GeneratorY.setB32(gyBytes); err != nil {
		panic(err)
	}
	Generator = GroupElementAffine{x: GeneratorX, y: GeneratorY}
}

// setXY sets a group element to the point with given coordinates
func (r *GroupElementAffine) setXY(x, y *FieldElement) {
	r.x = *x
	r.y = *y
	r.infinity = false
}

func (r *GroupElementAffine) setInfinity() {
	r.x = FieldElementZero
	r.y = FieldElementZero
	r.infinity = true
}

func (r *GroupElementAffine) isInfinity() bool {
	return r.infinity
}

// curveRHS sets r = x^3 + 7.
func curveRHS(r, x *FieldElement) {
	var x2 FieldElement
	x2.sqr(x)
	r.mul(&x2, x)
	r.add(r, &fieldSeven)
}

// setXOVar sets r to the point with the given x coordinate and the requested
// y parity. It returns false when x is not the abscissa of a curve point.
func (r *GroupElementAffine) setXOVar(x *FieldElement, odd bool) bool {
	var rhs, y FieldElement
	curveRHS(&rhs, x)
	if !y.sqrt(&rhs) {
		return false
	}
	if y.isOdd() != odd {
		y.negate(&y)
	}
	r.setXY(x, &y)
	return true
}

// isValid reports whether the point satisfies y^2 = x^3 + 7.
func (r *GroupElementAffine) isValid() bool {
	if r.infinity {
		return false
	}
	var lhs, rhs FieldElement
	lhs.sqr(&r.y)
	curveRHS(&rhs, &r.x)
	return lhs.equal(&rhs)
}

func (r *GroupElementAffine) negate(a *GroupElementAffine) {
	if a.infinity {
		r.setInfinity()
		return
	}
	r.x = a.x
	r.y.negate(&a.y)
	r.infinity = false
}

func (r *GroupElementAffine) equal(a *GroupElementAffine) bool {
	if r.infinity || a.infinity {
		return r.infinity == a.infinity
	}
	return r.x.equal(&a.x) && r.y.equal(&a.y)
}

// double sets r = 2a.
func (r *GroupElementAffine) double(a *GroupElementAffine) {
	if a.infinity || a.y.isZero() {
		r.setInfinity()
		return
	}

	// lambda = 3x^2 / 2y
	var num, den, lambda, t FieldElement
	num.sqr(&a.x)
	t.add(&num, &num)
	num.add(&t, &num)
	den.add(&a.y, &a.y)
	den.inv(&den)
	lambda.mul(&num, &den)

	var x3, y3 FieldElement
	x3.sqr(&lambda)
	x3.sub(&x3, &a.x)
	x3.sub(&x3, &a.x)
	t.sub(&a.x, &x3)
	y3.mul(&lambda, &t)
	y3.sub(&y3, &a.y)
	r.setXY(&x3, &y3)
}

// add sets r = a + b, handling infinity, doubling and P + (-P).
func (r *GroupElementAffine) add(a, b *GroupElementAffine) {
	if a.infinity {
		*r = *b
		return
	}
	if b.infinity {
		*r = *a
		return
	}
	if a.x.equal(&b.x) {
		if a.y.equal(&b.y) {
			r.double(a)
		} else {
			r.setInfinity()
		}
		return
	}

	// lambda = (y2 - y1) / (x2 - x1)
	var num, den, lambda FieldElement
	num.sub(&b.y, &a.y)
	den.sub(&b.x, &a.x)
	den.inv(&den)
	lambda.mul(&num, &den)

	var x3, y3, t FieldElement
	x3.sqr(&lambda)
	x3.sub(&x3, &a.x)
	x3.sub(&x3, &b.x)
	t.sub(&a.x, &x3)
	y3.mul(&lambda, &t)
	y3.sub(&y3, &a.y)
	r.setXY(&x3, &y3)
}

// toBytes writes the point as x || y (64 bytes).
func (r *GroupElementAffine) toBytes(buf []byte) {
	if len(buf) != 64 {
		panic("buffer must be 64 bytes")
	}
	r.x.getB32(buf[:32])
	r.y.getB32(buf[32:])
}

// fromBytes loads a point stored as x || y. An all-zero buffer or
// coordinates outside the field yield infinity.
func (r *GroupElementAffine) fromBytes(buf []byte) {
	if len(buf) != 64 {
		panic("buffer must be 64 bytes")
	}
	if r.x.setB32(buf[:32]) != nil || r.y.setB32(buf[32:]) != nil {
		r.setInfinity()
		return
	}
	r.infinity = r.x.isZero() && r.y.isZero()
}

func (r *GroupElementAffine) clear() {
	r.x.clear()
	r.y.clear()
	r.infinity = true
}

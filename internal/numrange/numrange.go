// Package numrange provides interval arithmetic on arbitrary-precision
// integers, used by the bounds prover (internal/sema) to compute a sound
// numeric range for every typed expression.
//
// For example, if x is in the range [3, 6] and y is in the range [10,
// 15] then x+y is in the range [13, 21]. Ranges may have infinite
// bounds: if x is in [3, +∞) and y is in [-4, -2], then x*y is in
// (-∞, -6].
package numrange

import "math/big"

func bigIntMul(i, j *big.Int) *big.Int { return big.NewInt(0).Mul(i, j) }
func bigIntQuo(i, j *big.Int) *big.Int { return big.NewInt(0).Quo(i, j) }

func bigIntLsh(i, j *big.Int) *big.Int {
	if j.IsUint64() {
		if u := j.Uint64(); u <= 0xFFFFFFFF {
			return big.NewInt(0).Lsh(i, uint(u))
		}
	}
	k := big.NewInt(2)
	k.Exp(k, j, nil)
	k.Mul(i, k)
	return k
}

func bigIntRsh(i, j *big.Int) *big.Int {
	if j.IsUint64() {
		if u := j.Uint64(); u <= 0xFFFFFFFF {
			return big.NewInt(0).Rsh(i, uint(u))
		}
	}
	k := big.NewInt(2)
	k.Exp(k, j, nil)
	k.Div(i, k) // Explicitly Div, not Quo.
	return k
}

// extremum is either a non-nil *big.Int or ±∞.
type extremum struct {
	// sign < 0 means -∞, sign > 0 means +∞, sign == 0 means the value is
	// i, which must then be a non-nil pointer.
	sign int32
	i    *big.Int
}

type extremumPair [2]extremum

// newExtremumPair returns {+∞, -∞}, the identity for lowerMin/raiseMax.
func newExtremumPair() extremumPair { return extremumPair{{sign: +1}, {sign: -1}} }

func (x *extremumPair) lowerMin(y extremum) {
	if x[0].sign > 0 || y.sign < 0 ||
		(x[0].sign == 0 && y.sign == 0 && x[0].i.Cmp(y.i) > 0) {
		x[0] = y
	}
}

func (x *extremumPair) raiseMax(y extremum) {
	if x[1].sign < 0 || y.sign > 0 ||
		(x[1].sign == 0 && y.sign == 0 && x[1].i.Cmp(y.i) < 0) {
		x[1] = y
	}
}

func (x *extremumPair) toRange() Range {
	if x[0].sign > 0 || x[1].sign < 0 {
		return Empty()
	}
	return Range{x[0].i, x[1].i}
}

func (x *extremumPair) fromRange(y Range) {
	if y[0] != nil {
		x[0] = extremum{i: big.NewInt(0).Set(y[0])}
	} else {
		x[0] = extremum{sign: -1}
	}
	if y[1] != nil {
		x[1] = extremum{i: big.NewInt(0).Set(y[1])}
	} else {
		x[1] = extremum{sign: +1}
	}
}

// Range is a closed integer interval [min, max]. A nil element means
// unbounded (negative or positive infinity, respectively). The zero
// value is the unbounded, infinite range. A range whose min exceeds its
// max is empty; there is more than one representation of an empty
// range.
type Range [2]*big.Int

// String renders x for diagnostics.
func (x Range) String() string {
	if x.Empty() {
		return "<empty>"
	}
	var buf []byte
	if x[0] == nil {
		buf = append(buf, "(-inf, "...)
	} else {
		buf = append(buf, '[')
		buf = x[0].Append(buf, 10)
		buf = append(buf, ", "...)
	}
	if x[1] == nil {
		buf = append(buf, "+inf)"...)
	} else {
		buf = x[1].Append(buf, 10)
		buf = append(buf, ']')
	}
	return string(buf)
}

// Empty returns an empty Range.
func Empty() Range { return Range{big.NewInt(+1), big.NewInt(-1)} }

func (x Range) ContainsNegative() bool {
	if x[0] == nil {
		return true
	}
	if x[0].Sign() >= 0 {
		return false
	}
	return x[1] == nil || x[0].Cmp(x[1]) <= 0
}

func (x Range) ContainsPositive() bool {
	if x[1] == nil {
		return true
	}
	if x[1].Sign() <= 0 {
		return false
	}
	return x[0] == nil || x[0].Cmp(x[1]) <= 0
}

func (x Range) ContainsZero() bool {
	return (x[0] == nil || x[0].Sign() <= 0) && (x[1] == nil || x[1].Sign() >= 0)
}

func (x Range) Eq(y Range) bool {
	if xe, ye := x.Empty(), y.Empty(); xe || ye {
		return xe == ye
	}
	if x0, y0 := x[0] != nil, y[0] != nil; x0 != y0 {
		return false
	} else if x0 && x[0].Cmp(y[0]) != 0 {
		return false
	}
	if x1, y1 := x[1] != nil, y[1] != nil; x1 != y1 {
		return false
	} else if x1 && x[1].Cmp(y[1]) != 0 {
		return false
	}
	return true
}

func (x Range) Empty() bool {
	return x[0] != nil && x[1] != nil && x[0].Cmp(x[1]) > 0
}

func (x Range) justZero() bool {
	return x[0] != nil && x[1] != nil && x[0].Sign() == 0 && x[1].Sign() == 0
}

// split splits x into its negative and positive sub-ranges (each may be
// empty), also reporting whether x contains zero.
func (x Range) split() (neg, pos Range, negEmpty, hasZero, posEmpty bool) {
	if x[0] != nil && x[0].Sign() > 0 {
		return Empty(), x, true, false, x.Empty()
	}
	if x[1] != nil && x[1].Sign() < 0 {
		return x, Empty(), x.Empty(), false, true
	}

	neg[0] = x[0]
	neg[1] = big.NewInt(-1)
	if x[1] != nil && x[1].Cmp(neg[1]) < 0 {
		neg[1] = x[1]
	}

	pos[0] = big.NewInt(+1)
	if x[0] != nil && x[0].Cmp(pos[0]) > 0 {
		pos[0] = x[0]
	}
	pos[1] = x[1]

	return neg, pos, neg.Empty(), x.ContainsZero(), pos.Empty()
}

// Add returns x + y.
func (x Range) Add(y Range) (z Range) {
	if x.Empty() || y.Empty() {
		return Empty()
	}
	if x[0] != nil && y[0] != nil {
		z[0] = big.NewInt(0).Add(x[0], y[0])
	}
	if x[1] != nil && y[1] != nil {
		z[1] = big.NewInt(0).Add(x[1], y[1])
	}
	return z
}

// Sub returns x - y.
func (x Range) Sub(y Range) (z Range) {
	if x.Empty() || y.Empty() {
		return Empty()
	}
	if x[0] != nil && y[1] != nil && (x[1] != nil || y[0] != nil) {
		z[0] = big.NewInt(0).Sub(x[0], y[1])
	}
	if x[1] != nil && y[0] != nil && (x[0] != nil || y[1] != nil) {
		z[1] = big.NewInt(0).Sub(x[1], y[0])
	}
	return z
}

// Mul returns x * y.
func (x Range) Mul(y Range) (z Range) { return x.mulLsh(y, false) }

// Lsh returns x << y. ok is false if x is non-empty and y may be
// negative (shifting by a negative count is invalid).
func (x Range) Lsh(y Range) (z Range, ok bool) {
	if !x.Empty() && y.ContainsNegative() {
		return Range{}, false
	}
	return x.mulLsh(y, true), true
}

func (x Range) mulLsh(y Range, shift bool) (z Range) {
	if x.Empty() || y.Empty() {
		return Empty()
	}
	if x.justZero() || (!shift && y.justZero()) {
		return Range{big.NewInt(0), big.NewInt(0)}
	}

	combine := bigIntMul
	if shift {
		combine = bigIntLsh
	}

	ret := newExtremumPair()
	negX, posX, negXEmpty, zeroX, posXEmpty := x.split()
	negY, posY, negYEmpty, zeroY, posYEmpty := y.split()

	if zeroY && shift {
		ret.fromRange(x)
	} else if (zeroY && !shift) || zeroX {
		ret[0] = extremum{i: big.NewInt(0)}
		ret[1] = extremum{i: big.NewInt(0)}
	}

	if !negXEmpty {
		if !negYEmpty {
			ret.lowerMin(extremum{i: combine(negX[1], negY[1])})
			if negX[0] == nil || negY[0] == nil {
				ret.raiseMax(extremum{sign: +1})
			} else {
				ret.raiseMax(extremum{i: combine(negX[0], negY[0])})
			}
		}
		if !posYEmpty {
			if negX[0] == nil || posY[1] == nil {
				ret.lowerMin(extremum{sign: -1})
			} else {
				ret.lowerMin(extremum{i: combine(negX[0], posY[1])})
			}
			ret.raiseMax(extremum{i: combine(negX[1], posY[0])})
		}
	}

	if !posXEmpty {
		if !negYEmpty {
			if posX[1] == nil || negY[0] == nil {
				ret.lowerMin(extremum{sign: -1})
			} else {
				ret.lowerMin(extremum{i: combine(posX[1], negY[0])})
			}
			ret.raiseMax(extremum{i: combine(posX[0], negY[1])})
		}
		if !posYEmpty {
			ret.lowerMin(extremum{i: combine(posX[0], posY[0])})
			if posX[1] == nil || posY[1] == nil {
				ret.raiseMax(extremum{sign: +1})
			} else {
				ret.raiseMax(extremum{i: combine(posX[1], posY[1])})
			}
		}
	}

	return ret.toRange()
}

// Quo returns x / y, truncating towards zero. ok is false if x is
// non-empty and y may contain zero.
func (x Range) Quo(y Range) (z Range, ok bool) {
	if x.Empty() || y.Empty() {
		return Empty(), true
	}
	if y.ContainsZero() {
		return Range{}, false
	}
	if x.justZero() {
		return Range{big.NewInt(0), big.NewInt(0)}, true
	}

	ret := newExtremumPair()
	negX, posX, negXEmpty, zeroX, posXEmpty := x.split()
	negY, posY, negYEmpty, _, posYEmpty := y.split()

	if zeroX {
		ret[0] = extremum{i: big.NewInt(0)}
		ret[1] = extremum{i: big.NewInt(0)}
	}

	if !negXEmpty {
		if !negYEmpty {
			if negX[0] == nil {
				ret.raiseMax(extremum{sign: +1})
			} else {
				ret.raiseMax(extremum{i: bigIntQuo(negX[0], negY[1])})
			}
			if negY[0] == nil {
				ret.lowerMin(extremum{i: big.NewInt(0)})
			} else {
				ret.lowerMin(extremum{i: bigIntQuo(negX[1], negY[0])})
			}
		}
		if !posYEmpty {
			if negX[0] == nil {
				ret.lowerMin(extremum{sign: -1})
			} else {
				ret.lowerMin(extremum{i: bigIntQuo(negX[0], posY[0])})
			}
			if posY[1] == nil {
				ret.raiseMax(extremum{i: big.NewInt(0)})
			} else {
				ret.raiseMax(extremum{i: bigIntQuo(negX[1], posY[1])})
			}
		}
	}

	if !posXEmpty {
		if !negYEmpty {
			if posX[1] == nil {
				ret.lowerMin(extremum{sign: -1})
			} else {
				ret.lowerMin(extremum{i: bigIntQuo(posX[1], negY[1])})
			}
			if negY[0] == nil {
				ret.raiseMax(extremum{i: big.NewInt(0)})
			} else {
				ret.raiseMax(extremum{i: bigIntQuo(posX[0], negY[0])})
			}
		}
		if !posYEmpty {
			if posX[1] == nil {
				ret.raiseMax(extremum{sign: +1})
			} else {
				ret.raiseMax(extremum{i: bigIntQuo(posX[1], posY[0])})
			}
			if posY[1] == nil {
				ret.lowerMin(extremum{i: big.NewInt(0)})
			} else {
				ret.lowerMin(extremum{i: bigIntQuo(posX[0], posY[1])})
			}
		}
	}

	return ret.toRange(), true
}

// Rsh returns x >> y. ok is false if x is non-empty and y may be
// negative.
func (x Range) Rsh(y Range) (z Range, ok bool) {
	if x.Empty() || y.Empty() {
		return Empty(), true
	}
	if y.ContainsNegative() {
		return Range{}, false
	}
	if x.justZero() {
		return Range{big.NewInt(0), big.NewInt(0)}, true
	}

	ret := newExtremumPair()
	negX, posX, negXEmpty, zeroX, posXEmpty := x.split()

	if zeroX {
		ret[0] = extremum{i: big.NewInt(0)}
		ret[1] = extremum{i: big.NewInt(0)}
	}

	if !negXEmpty {
		if negX[0] == nil {
			ret.lowerMin(extremum{sign: -1})
		} else {
			ret.lowerMin(extremum{i: bigIntRsh(negX[0], y[0])})
		}
		if y[1] == nil {
			ret.raiseMax(extremum{i: big.NewInt(-1)})
		} else {
			ret.raiseMax(extremum{i: bigIntRsh(negX[1], y[1])})
		}
	}

	if !posXEmpty {
		if y[1] == nil {
			ret.lowerMin(extremum{i: big.NewInt(0)})
		} else {
			ret.lowerMin(extremum{i: bigIntRsh(posX[0], y[1])})
		}
		if posX[1] == nil {
			ret.raiseMax(extremum{sign: +1})
		} else {
			ret.raiseMax(extremum{i: bigIntRsh(posX[1], y[0])})
		}
	}

	return ret.toRange(), true
}

// And returns a sound (but not necessarily tight) range for x & y,
// assuming both operands are non-negative: [0, nextPow2Minus1(max)].
func (x Range) And(y Range) Range {
	return Range{big.NewInt(0), nextPow2Minus1(biggerMax(x[1], y[1]))}
}

// Or returns a sound range for x | y (same bound as And: both operands
// non-negative).
func (x Range) Or(y Range) Range { return x.And(y) }

// Xor returns a sound range for x ^ y.
func (x Range) Xor(y Range) Range { return x.And(y) }

func biggerMax(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return nil
	}
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// nextPow2Minus1 returns the smallest (2^n)-1 that is >= n, or nil if n
// is nil (unbounded).
func nextPow2Minus1(n *big.Int) *big.Int {
	if n == nil {
		return nil
	}
	if n.Sign() <= 0 {
		return big.NewInt(0)
	}
	result := big.NewInt(1)
	one := big.NewInt(1)
	for result.Cmp(n) <= 0 {
		result.Lsh(result, 1)
	}
	return result.Sub(result, one)
}

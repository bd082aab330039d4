// Copyright (C) 2019-2021 Algorand, Inc.
// This file is part of go-muse
//
// go-muse is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-muse is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-muse.  If not, see <https://www.gnu.org/licenses/>.

package basics

import (
	"math"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// OverflowTracker is used to track when an operation causes an overflow
type OverflowTracker struct {
	Overflowed bool
}

// OAdd adds 2 values with overflow detection
func OAdd[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	res = a + b
	overflowed = res < a
	return
}

// OSub subtracts b from a with overflow detection
func OSub[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	res = a - b
	overflowed = res > a
	return
}

// OMul multiplies 2 values with overflow detection
func OMul[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	if b == 0 {
		return 0, false
	}

	c := a * b
	if c/b != a {
		return 0, true
	}
	return c, false
}

// OAddS adds 2 signed values with overflow detection
func OAddS[T constraints.Signed](a, b T) (res T, overflowed bool) {
	res = a + b
	overflowed = (b > 0 && res < a) || (b < 0 && res > a)
	return
}

// OSubS subtracts b from a with overflow detection
func OSubS[T constraints.Signed](a, b T) (res T, overflowed bool) {
	res = a - b
	overflowed = (b > 0 && res > a) || (b < 0 && res < a)
	return
}

// AddSaturate adds 2 values with saturation on overflow
func AddSaturate[T constraints.Unsigned](a, b T) T {
	res, overflowed := OAdd(a, b)
	if overflowed {
		var defaultT T
		return ^defaultT
	}
	return res
}

// SubSaturate subtracts 2 values with saturation on underflow
func SubSaturate[T constraints.Unsigned](a, b T) T {
	res, overflowed := OSub(a, b)
	if overflowed {
		return 0
	}
	return res
}

// Add adds 2 amounts with overflow detection
func (t *OverflowTracker) Add(a, b int64) int64 {
	res, overflowed := OAddS(a, b)
	if overflowed {
		t.Overflowed = true
	}
	return res
}

// Sub subtracts b from a with overflow detection
func (t *OverflowTracker) Sub(a, b int64) int64 {
	res, overflowed := OSubS(a, b)
	if overflowed {
		t.Overflowed = true
	}
	return res
}

// Muldiv computes a*b/c.  The overflow flag indicates that the result was 2^64
// or greater. `c` is not generic, because most call sites use a constant.
func Muldiv[A ~uint64, B ~uint64](a A, b B, c uint64) (A, bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if c <= hi {
		return 0, true
	}
	quo, _ := bits.Div64(hi, lo, c)
	return A(quo), false
}

// MuldivAmount computes a*b/c on non-negative amounts, truncating, with the
// intermediate product held in 128 bits. It reports overflow when any input
// is negative, c is zero, or the result does not fit an int64.
func MuldivAmount(a, b, c int64) (int64, bool) {
	if a < 0 || b < 0 || c <= 0 {
		return 0, true
	}
	res, overflowed := Muldiv(uint64(a), uint64(b), uint64(c))
	if overflowed || res > math.MaxInt64 {
		return 0, true
	}
	return int64(res), false
}

// MulPercent returns amount*bp/Percent100 truncated. amount must be
// non-negative and bp at most Percent100, so the result cannot overflow.
func MulPercent(amount int64, bp uint32) int64 {
	res, _ := MuldivAmount(amount, int64(bp), Percent100)
	return res
}

// DivCeil provides `math.Ceil` semantics using integer division.  The technique
// avoids slower floating point operations as suggested in https://stackoverflow.com/a/2745086.
//
// The method assumes both numbers are positive and does _not_ check for divide-by-zero.
func DivCeil[T constraints.Integer](numerator, denominator T) T {
	return (numerator + denominator - 1) / denominator
}

// ISqrt returns the integer square root of x, rounded down.
func ISqrt(x uint64) uint64 {
	if x < 2 {
		return x
	}
	r := uint64(math.Sqrt(float64(x)))
	// float64 may be off by one in either direction near 2^64
	for r*r > x || (r > math.MaxUint32) {
		r--
	}
	for (r+1) <= math.MaxUint32 && (r+1)*(r+1) <= x {
		r++
	}
	return r
}

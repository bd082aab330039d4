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
	"fmt"
	"math"
	"math/bits"
)

// Uint128 is an unsigned 128-bit integer used by the witness virtual-time
// scheduler, where vote-weighted positions exceed 64 bits.
type Uint128 struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Hi uint64 `codec:"h"`
	Lo uint64 `codec:"l"`
}

// MaxUint128 is the largest representable value.
var MaxUint128 = Uint128{Hi: math.MaxUint64, Lo: math.MaxUint64}

// U128 widens a uint64.
func U128(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// IsZero reports whether u == 0.
func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Cmp compares u and v and returns -1, 0 or +1.
func (u Uint128) Cmp(v Uint128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}
	return 0
}

// Less reports u < v.
func (u Uint128) Less(v Uint128) bool {
	return u.Cmp(v) < 0
}

// Add returns u+v and whether the sum wrapped.
func (u Uint128) Add(v Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, carry := bits.Add64(u.Hi, v.Hi, carry)
	return Uint128{Hi: hi, Lo: lo}, carry != 0
}

// Sub returns u-v and whether the difference wrapped.
func (u Uint128) Sub(v Uint128) (Uint128, bool) {
	lo, borrow := bits.Sub64(u.Lo, v.Lo, 0)
	hi, borrow := bits.Sub64(u.Hi, v.Hi, borrow)
	return Uint128{Hi: hi, Lo: lo}, borrow != 0
}

// MulUint64 returns u*v and whether the product overflowed 128 bits.
func (u Uint128) MulUint64(v uint64) (Uint128, bool) {
	hiLo, lo := bits.Mul64(u.Lo, v)
	hiHi, hiFromHi := bits.Mul64(u.Hi, v)
	hi, carry := bits.Add64(hiFromHi, hiLo, 0)
	return Uint128{Hi: hi, Lo: lo}, hiHi != 0 || carry != 0
}

// DivUint64 returns u/v truncated. v must be non-zero.
func (u Uint128) DivUint64(v uint64) Uint128 {
	hiQ, r := bits.Div64(0, u.Hi, v)
	loQ, _ := bits.Div64(r, u.Lo, v)
	return Uint128{Hi: hiQ, Lo: loQ}
}

// ShiftIn shifts u left by one bit, dropping the top bit, and sets the low
// bit to bit. It returns the bit shifted out.
func (u Uint128) ShiftIn(bit bool) (Uint128, bool) {
	out := u.Hi>>63 == 1
	res := Uint128{Hi: u.Hi<<1 | u.Lo>>63, Lo: u.Lo << 1}
	if bit {
		res.Lo |= 1
	}
	return res, out
}

// String prints the value in hex; it is only used in logs and errors.
func (u Uint128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%d", u.Lo)
	}
	return fmt.Sprintf("0x%x%016x", u.Hi, u.Lo)
}

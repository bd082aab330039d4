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
	"strconv"
	"strings"
)

// Symbol identifies an asset. The three core symbols are reserved; any other
// symbol names a user-issued asset.
type Symbol string

// Core asset symbols.
const (
	MUSE  Symbol = "MUSE"
	MBD   Symbol = "MBD"
	VESTS Symbol = "VESTS"
)

// Percent100 is 100% expressed in basis points.
const Percent100 = 10000

// Precision is the number of decimal places of every core asset.
const Precision = 6

// IsCore reports whether s is one of the chain's native assets.
func (s Symbol) IsCore() bool {
	return s == MUSE || s == MBD || s == VESTS
}

// Validate checks that s is 3 to 7 upper case letters.
func (s Symbol) Validate() error {
	if len(s) < 3 || len(s) > 7 {
		return fmt.Errorf("asset symbol %q must be 3 to 7 characters", string(s))
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("asset symbol %q must be upper case letters", string(s))
		}
	}
	return nil
}

// Asset is an amount of some symbol, in the symbol's smallest unit.
type Asset struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Amount int64  `codec:"a"`
	Symbol Symbol `codec:"s"`
}

// MakeAsset builds an Asset.
func MakeAsset(amount int64, sym Symbol) Asset {
	return Asset{Amount: amount, Symbol: sym}
}

// Muse returns an amount of MUSE.
func Muse(amount int64) Asset { return MakeAsset(amount, MUSE) }

// Mbd returns an amount of MBD.
func Mbd(amount int64) Asset { return MakeAsset(amount, MBD) }

// Vests returns an amount of VESTS.
func Vests(amount int64) Asset { return MakeAsset(amount, VESTS) }

// Plus adds o to a. Both must have the same symbol.
func (a Asset) Plus(o Asset) (Asset, error) {
	if a.Symbol != o.Symbol {
		return Asset{}, fmt.Errorf("cannot add %s to %s", o.Symbol, a.Symbol)
	}
	sum, overflowed := OAddS(a.Amount, o.Amount)
	if overflowed {
		return Asset{}, fmt.Errorf("overflow adding %v to %v", o, a)
	}
	return MakeAsset(sum, a.Symbol), nil
}

// Minus subtracts o from a. Both must have the same symbol.
func (a Asset) Minus(o Asset) (Asset, error) {
	if a.Symbol != o.Symbol {
		return Asset{}, fmt.Errorf("cannot subtract %s from %s", o.Symbol, a.Symbol)
	}
	diff, overflowed := OSubS(a.Amount, o.Amount)
	if overflowed {
		return Asset{}, fmt.Errorf("overflow subtracting %v from %v", o, a)
	}
	return MakeAsset(diff, a.Symbol), nil
}

// Neg returns -a.
func (a Asset) Neg() Asset {
	return MakeAsset(-a.Amount, a.Symbol)
}

// IsZero reports whether the amount is zero.
func (a Asset) IsZero() bool {
	return a.Amount == 0
}

// String formats the asset as "1.000000 MUSE".
func (a Asset) String() string {
	sign := ""
	v := a.Amount
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d %s", sign, v/1000000, v%1000000, a.Symbol)
}

// ParseAsset parses the format produced by String.
func ParseAsset(s string) (Asset, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("malformed asset %q", s)
	}
	num := parts[0]
	neg := strings.HasPrefix(num, "-")
	num = strings.TrimPrefix(num, "-")
	whole, frac, _ := strings.Cut(num, ".")
	if len(frac) > Precision {
		return Asset{}, fmt.Errorf("asset %q has more than %d decimals", s, Precision)
	}
	frac += strings.Repeat("0", Precision-len(frac))
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("malformed asset %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("malformed asset %q: %w", s, err)
	}
	if w > math.MaxInt64/1000000 {
		return Asset{}, fmt.Errorf("asset %q out of range", s)
	}
	var ot OverflowTracker
	amt := ot.Add(w*1000000, f)
	if ot.Overflowed {
		return Asset{}, fmt.Errorf("asset %q out of range", s)
	}
	if neg {
		amt = -amt
	}
	sym := Symbol(parts[1])
	if err := sym.Validate(); err != nil {
		return Asset{}, err
	}
	return MakeAsset(amt, sym), nil
}

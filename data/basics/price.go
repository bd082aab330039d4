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
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrPriceOverflow is returned when a price conversion does not fit an amount.
var ErrPriceOverflow = errors.New("price conversion overflow")

// Price is the exchange rate Base/Quote: Base.Amount units of Base.Symbol
// buy Quote.Amount units of Quote.Symbol.
type Price struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Base  Asset `codec:"b"`
	Quote Asset `codec:"q"`
}

// MakePrice builds a Price.
func MakePrice(base, quote Asset) Price {
	return Price{Base: base, Quote: quote}
}

// IsNull reports whether the price is unset.
func (p Price) IsNull() bool {
	return p.Base.Amount == 0 && p.Quote.Amount == 0
}

// Validate checks that both sides are positive and of different symbols.
func (p Price) Validate() error {
	if p.Base.Amount <= 0 || p.Quote.Amount <= 0 {
		return fmt.Errorf("price %v must have positive base and quote", p)
	}
	if p.Base.Symbol == p.Quote.Symbol {
		return fmt.Errorf("price %v must be between different assets", p)
	}
	return nil
}

// Invert swaps base and quote.
func (p Price) Invert() Price {
	return Price{Base: p.Quote, Quote: p.Base}
}

// Mul converts a into the other side of the price, truncating. a must be
// denominated in either the base or the quote symbol.
func (p Price) Mul(a Asset) (Asset, error) {
	var num, den int64
	var sym Symbol
	switch a.Symbol {
	case p.Base.Symbol:
		num, den, sym = p.Quote.Amount, p.Base.Amount, p.Quote.Symbol
	case p.Quote.Symbol:
		num, den, sym = p.Base.Amount, p.Quote.Amount, p.Base.Symbol
	default:
		return Asset{}, fmt.Errorf("cannot convert %v with price %v", a, p)
	}
	res, overflowed := MuldivAmount(a.Amount, num, den)
	if overflowed {
		return Asset{}, ErrPriceOverflow
	}
	return MakeAsset(res, sym), nil
}

// Less compares two prices over the same symbol pair: p < o iff
// p.Base/p.Quote < o.Base/o.Quote.
func (p Price) Less(o Price) bool {
	if p.Base.Symbol != o.Base.Symbol {
		return p.Base.Symbol < o.Base.Symbol
	}
	if p.Quote.Symbol != o.Quote.Symbol {
		return p.Quote.Symbol < o.Quote.Symbol
	}
	lh, ll := bits.Mul64(uint64(p.Base.Amount), uint64(o.Quote.Amount))
	rh, rl := bits.Mul64(uint64(o.Base.Amount), uint64(p.Quote.Amount))
	return lh < rh || (lh == rh && ll < rl)
}

// Equal compares prices as exact fractions.
func (p Price) Equal(o Price) bool {
	return !p.Less(o) && !o.Less(p)
}

// MaxPrice is the highest representable price for a symbol pair.
func MaxPrice(base, quote Symbol) Price {
	return MakePrice(MakeAsset(math.MaxInt64, base), MakeAsset(1, quote))
}

// MinPrice is the lowest representable price for a symbol pair.
func MinPrice(base, quote Symbol) Price {
	return MakePrice(MakeAsset(1, base), MakeAsset(math.MaxInt64, quote))
}

// String formats the price as "base/quote".
func (p Price) String() string {
	return p.Base.String() + "/" + p.Quote.String()
}

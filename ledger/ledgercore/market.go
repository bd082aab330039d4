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

package ledgercore

import (
	"cmp"

	"github.com/algorand/go-muse/data/basics"
)

// LimitOrder is a resting offer to sell ForSale units of SellPrice.Base
// for SellPrice.Quote at SellPrice.
type LimitOrder struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Seller     basics.AccountName `codec:"seller"`
	OrderID    uint32             `codec:"id"`
	Created    basics.Timestamp   `codec:"created"`
	Expiration basics.Timestamp   `codec:"exp"`
	ForSale    int64              `codec:"forsale"`
	SellPrice  basics.Price       `codec:"price"`
}

// Clone returns a copy.
func (o LimitOrder) Clone() LimitOrder { return o }

// Key returns the primary key.
func (o LimitOrder) Key() OwnedKey {
	return OwnedKey{Owner: o.Seller, ID: o.OrderID}
}

// AmountForSale is the remaining offer.
func (o LimitOrder) AmountForSale() basics.Asset {
	return basics.MakeAsset(o.ForSale, o.SellPrice.Base.Symbol)
}

// AmountToReceive is what the remaining offer buys at the order's price.
// An overflow yields zero, which culls the order.
func (o LimitOrder) AmountToReceive() basics.Asset {
	r, err := o.SellPrice.Mul(o.AmountForSale())
	if err != nil {
		return basics.MakeAsset(0, o.SellPrice.Quote.Symbol)
	}
	return r
}

// CompareOrderPrice orders the book by symbol pair, best (highest) price
// first.
func CompareOrderPrice(a, b LimitOrder) int {
	if c := cmp.Compare(a.SellPrice.Base.Symbol, b.SellPrice.Base.Symbol); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SellPrice.Quote.Symbol, b.SellPrice.Quote.Symbol); c != 0 {
		return c
	}
	switch {
	case b.SellPrice.Less(a.SellPrice):
		return -1
	case a.SellPrice.Less(b.SellPrice):
		return 1
	}
	return 0
}

// CompareOrderExpiration orders orders by expiration.
func CompareOrderExpiration(a, b LimitOrder) int {
	return cmp.Compare(a.Expiration, b.Expiration)
}

// ConvertRequest is a pending MBD to MUSE conversion.
type ConvertRequest struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner          basics.AccountName `codec:"owner"`
	RequestID      uint32             `codec:"id"`
	Amount         int64              `codec:"amt"`
	ConversionDate basics.Timestamp   `codec:"date"`
}

// Clone returns a copy.
func (r ConvertRequest) Clone() ConvertRequest { return r }

// CompareConversionDate orders requests by maturity.
func CompareConversionDate(a, b ConvertRequest) int {
	return cmp.Compare(a.ConversionDate, b.ConversionDate)
}

// AssetObject describes a user-issued asset.
type AssetObject struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Symbol        basics.Symbol      `codec:"sym"`
	Issuer        basics.AccountName `codec:"issuer"`
	MaxSupply     int64              `codec:"max"`
	CurrentSupply int64              `codec:"supply"`
	Description   string             `codec:"desc"`
	Created       basics.Timestamp   `codec:"created"`
}

// Clone returns a copy.
func (a AssetObject) Clone() AssetObject { return a }

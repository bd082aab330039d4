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

package transactions

import (
	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/protocol"
)

func checkTradable(op protocol.OpType, a basics.Asset) error {
	if a.Symbol == basics.VESTS {
		return validationErrorf(op, "vesting shares cannot be traded")
	}
	if !a.Symbol.IsCore() {
		if err := a.Symbol.Validate(); err != nil {
			return validationErrorf(op, "%v", err)
		}
	}
	return nil
}

// LimitOrderCreateOp places an order selling AmountToSell for at least
// MinToReceive.
type LimitOrderCreateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner        basics.AccountName `codec:"owner"`
	OrderID      uint32             `codec:"id"`
	AmountToSell basics.Asset       `codec:"sell"`
	MinToReceive basics.Asset       `codec:"recv"`
	FillOrKill   bool               `codec:"fok"`
	Expiration   basics.Timestamp   `codec:"exp"`
}

// OpType implements OpBody.
func (*LimitOrderCreateOp) OpType() protocol.OpType { return protocol.LimitOrderCreateOp }

// Price is the order's sell price.
func (op *LimitOrderCreateOp) Price() basics.Price {
	return basics.MakePrice(op.AmountToSell, op.MinToReceive)
}

// Validate implements OpBody.
func (op *LimitOrderCreateOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Owner); err != nil {
		return err
	}
	if err := checkTradable(op.OpType(), op.AmountToSell); err != nil {
		return err
	}
	if err := checkTradable(op.OpType(), op.MinToReceive); err != nil {
		return err
	}
	if err := op.Price().Validate(); err != nil {
		return validationErrorf(op.OpType(), "%v", err)
	}
	return nil
}

// Authorities implements OpBody.
func (op *LimitOrderCreateOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Owner) }

// LimitOrderCreate2Op places an order at an explicit exchange rate, whose
// base must be the symbol being sold.
type LimitOrderCreate2Op struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner        basics.AccountName `codec:"owner"`
	OrderID      uint32             `codec:"id"`
	AmountToSell basics.Asset       `codec:"sell"`
	ExchangeRate basics.Price       `codec:"rate"`
	FillOrKill   bool               `codec:"fok"`
	Expiration   basics.Timestamp   `codec:"exp"`
}

// OpType implements OpBody.
func (*LimitOrderCreate2Op) OpType() protocol.OpType { return protocol.LimitOrderCreate2Op }

// Validate implements OpBody.
func (op *LimitOrderCreate2Op) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Owner); err != nil {
		return err
	}
	if err := checkTradable(op.OpType(), op.AmountToSell); err != nil {
		return err
	}
	if err := checkTradable(op.OpType(), op.ExchangeRate.Quote); err != nil {
		return err
	}
	if err := op.ExchangeRate.Validate(); err != nil {
		return validationErrorf(op.OpType(), "%v", err)
	}
	if op.ExchangeRate.Base.Symbol != op.AmountToSell.Symbol {
		return validationErrorf(op.OpType(), "exchange rate base must be the symbol being sold")
	}
	if op.AmountToSell.Amount <= 0 {
		return validationErrorf(op.OpType(), "amount to sell must be positive")
	}
	recv, err := op.ExchangeRate.Mul(op.AmountToSell)
	if err != nil || recv.Amount <= 0 {
		return validationErrorf(op.OpType(), "order would receive nothing")
	}
	return nil
}

// Authorities implements OpBody.
func (op *LimitOrderCreate2Op) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Owner) }

// LimitOrderCancelOp cancels an order, refunding what is left for sale.
type LimitOrderCancelOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner   basics.AccountName `codec:"owner"`
	OrderID uint32             `codec:"id"`
}

// OpType implements OpBody.
func (*LimitOrderCancelOp) OpType() protocol.OpType { return protocol.LimitOrderCancelOp }

// Validate implements OpBody.
func (op *LimitOrderCancelOp) Validate(proto config.ConsensusParams) error {
	return checkName(op.OpType(), op.Owner)
}

// Authorities implements OpBody.
func (op *LimitOrderCancelOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Owner) }

// AssetCreateOp defines a user-issued asset.
type AssetCreateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Issuer      basics.AccountName `codec:"issuer"`
	Symbol      basics.Symbol      `codec:"sym"`
	MaxSupply   int64              `codec:"max"`
	Description string             `codec:"desc"`
}

// OpType implements OpBody.
func (*AssetCreateOp) OpType() protocol.OpType { return protocol.AssetCreateOp }

// Validate implements OpBody.
func (op *AssetCreateOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Issuer); err != nil {
		return err
	}
	if err := op.Symbol.Validate(); err != nil {
		return validationErrorf(op.OpType(), "%v", err)
	}
	if op.Symbol.IsCore() {
		return validationErrorf(op.OpType(), "symbol %s is reserved", op.Symbol)
	}
	if op.MaxSupply <= 0 {
		return validationErrorf(op.OpType(), "maximum supply must be positive")
	}
	if len(op.Description) > proto.MaxMemoSize {
		return validationErrorf(op.OpType(), "description is longer than %d bytes", proto.MaxMemoSize)
	}
	return nil
}

// Authorities implements OpBody.
func (op *AssetCreateOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Issuer) }

// AssetIssueOp mints units of a user-issued asset to an account.
type AssetIssueOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Issuer         basics.AccountName `codec:"issuer"`
	AssetToIssue   basics.Asset       `codec:"amt"`
	IssueToAccount basics.AccountName `codec:"to"`
}

// OpType implements OpBody.
func (*AssetIssueOp) OpType() protocol.OpType { return protocol.AssetIssueOp }

// Validate implements OpBody.
func (op *AssetIssueOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.Issuer, op.IssueToAccount); err != nil {
		return err
	}
	if op.AssetToIssue.Symbol.IsCore() {
		return validationErrorf(op.OpType(), "cannot issue %s", op.AssetToIssue.Symbol)
	}
	if op.AssetToIssue.Amount <= 0 {
		return validationErrorf(op.OpType(), "amount to issue must be positive")
	}
	return nil
}

// Authorities implements OpBody.
func (op *AssetIssueOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Issuer) }

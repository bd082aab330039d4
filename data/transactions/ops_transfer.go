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

func checkName(op protocol.OpType, name basics.AccountName) error {
	if err := name.Validate(); err != nil {
		return ValidationError{Op: op, Reason: err.Error()}
	}
	return nil
}

func checkNames(op protocol.OpType, names ...basics.AccountName) error {
	for _, n := range names {
		if err := checkName(op, n); err != nil {
			return err
		}
	}
	return nil
}

func checkJSON(op protocol.OpType, proto config.ConsensusParams, s string) error {
	if len(s) > proto.MaxJSONMetadataLength {
		return validationErrorf(op, "json metadata is longer than %d bytes", proto.MaxJSONMetadataLength)
	}
	if !protocol.IsValidJSON(s) {
		return validationErrorf(op, "json metadata is not valid JSON")
	}
	return nil
}

// TransferOp moves liquid MUSE, MBD or a user-issued asset.
type TransferOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	From   basics.AccountName `codec:"from"`
	To     basics.AccountName `codec:"to"`
	Amount basics.Asset       `codec:"amt"`
	Memo   string             `codec:"memo"`
}

// OpType implements OpBody.
func (*TransferOp) OpType() protocol.OpType { return protocol.TransferOp }

// Validate implements OpBody.
func (op *TransferOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.From, op.To); err != nil {
		return err
	}
	if op.Amount.Amount <= 0 {
		return validationErrorf(op.OpType(), "cannot transfer a non-positive amount")
	}
	if op.Amount.Symbol == basics.VESTS {
		return validationErrorf(op.OpType(), "vesting shares cannot be transferred")
	}
	if len(op.Memo) > proto.MaxMemoSize {
		return validationErrorf(op.OpType(), "memo is longer than %d bytes", proto.MaxMemoSize)
	}
	return nil
}

// Authorities implements OpBody.
func (op *TransferOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.From) }

// TransferToVestingOp converts liquid MUSE into vesting shares of To
// (or of From when To is empty).
type TransferToVestingOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	From   basics.AccountName `codec:"from"`
	To     basics.AccountName `codec:"to"`
	Amount basics.Asset       `codec:"amt"`
}

// OpType implements OpBody.
func (*TransferToVestingOp) OpType() protocol.OpType { return protocol.TransferToVestingOp }

// Validate implements OpBody.
func (op *TransferToVestingOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.From); err != nil {
		return err
	}
	if op.To != "" {
		if err := checkName(op.OpType(), op.To); err != nil {
			return err
		}
	}
	if op.Amount.Symbol != basics.MUSE || op.Amount.Amount <= 0 {
		return validationErrorf(op.OpType(), "amount must be positive MUSE")
	}
	return nil
}

// Authorities implements OpBody.
func (op *TransferToVestingOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.From) }

// WithdrawVestingOp starts (or, with zero, stops) a power-down of vesting shares.
type WithdrawVestingOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account       basics.AccountName `codec:"acct"`
	VestingShares basics.Asset       `codec:"vests"`
}

// OpType implements OpBody.
func (*WithdrawVestingOp) OpType() protocol.OpType { return protocol.WithdrawVestingOp }

// Validate implements OpBody.
func (op *WithdrawVestingOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Account); err != nil {
		return err
	}
	if op.VestingShares.Symbol != basics.VESTS || op.VestingShares.Amount < 0 {
		return validationErrorf(op.OpType(), "amount must be non-negative VESTS")
	}
	return nil
}

// Authorities implements OpBody.
func (op *WithdrawVestingOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Account) }

// SetWithdrawVestingRouteOp redirects a share of each withdrawal interval.
type SetWithdrawVestingRouteOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	FromAccount basics.AccountName `codec:"from"`
	ToAccount   basics.AccountName `codec:"to"`
	Percent     uint16             `codec:"pct"`
	AutoVest    bool               `codec:"vest"`
}

// OpType implements OpBody.
func (*SetWithdrawVestingRouteOp) OpType() protocol.OpType { return protocol.SetWithdrawRouteOp }

// Validate implements OpBody.
func (op *SetWithdrawVestingRouteOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.FromAccount, op.ToAccount); err != nil {
		return err
	}
	if op.Percent > basics.Percent100 {
		return validationErrorf(op.OpType(), "percent %d exceeds 100%%", op.Percent)
	}
	return nil
}

// Authorities implements OpBody.
func (op *SetWithdrawVestingRouteOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.FromAccount)
}

// DelegateVestingSharesOp sets the amount of vesting shares Delegator lends
// to Delegatee. Zero removes the delegation.
type DelegateVestingSharesOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Delegator     basics.AccountName `codec:"from"`
	Delegatee     basics.AccountName `codec:"to"`
	VestingShares basics.Asset       `codec:"vests"`
}

// OpType implements OpBody.
func (*DelegateVestingSharesOp) OpType() protocol.OpType { return protocol.DelegateVestingOp }

// Validate implements OpBody.
func (op *DelegateVestingSharesOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.Delegator, op.Delegatee); err != nil {
		return err
	}
	if op.Delegator == op.Delegatee {
		return validationErrorf(op.OpType(), "cannot delegate to yourself")
	}
	if op.VestingShares.Symbol != basics.VESTS || op.VestingShares.Amount < 0 {
		return validationErrorf(op.OpType(), "delegation must be non-negative VESTS")
	}
	return nil
}

// Authorities implements OpBody.
func (op *DelegateVestingSharesOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.Delegator)
}

// ConvertOp requests conversion of MBD into MUSE at the median feed price
// after the conversion delay.
type ConvertOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner     basics.AccountName `codec:"owner"`
	RequestID uint32             `codec:"id"`
	Amount    basics.Asset       `codec:"amt"`
}

// OpType implements OpBody.
func (*ConvertOp) OpType() protocol.OpType { return protocol.ConvertOp }

// Validate implements OpBody.
func (op *ConvertOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Owner); err != nil {
		return err
	}
	if op.Amount.Symbol != basics.MBD || op.Amount.Amount <= 0 {
		return validationErrorf(op.OpType(), "can only convert a positive amount of MBD")
	}
	return nil
}

// Authorities implements OpBody.
func (op *ConvertOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Owner) }

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
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/protocol"
)

func checkAuthority(op protocol.OpType, what string, a basics.Authority) error {
	if err := a.Validate(); err != nil {
		return validationErrorf(op, "%s authority: %v", what, err)
	}
	if a.IsImpossible() {
		return validationErrorf(op, "%s authority can never be satisfied", what)
	}
	return nil
}

// AccountCreateOp registers a new account. The fee is debited from Creator
// and vested into the new account.
type AccountCreateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Fee            basics.Asset       `codec:"fee"`
	Creator        basics.AccountName `codec:"creator"`
	NewAccountName basics.AccountName `codec:"name"`
	Owner          basics.Authority   `codec:"owner"`
	Active         basics.Authority   `codec:"active"`
	Basic          basics.Authority   `codec:"basic"`
	MemoKey        crypto.PublicKey   `codec:"memo"`
	JSONMetadata   string             `codec:"json"`
}

// OpType implements OpBody.
func (*AccountCreateOp) OpType() protocol.OpType { return protocol.AccountCreateOp }

func validateNewAccount(op protocol.OpType, proto config.ConsensusParams, creator, name basics.AccountName, owner, active, basic basics.Authority, json string) error {
	if err := checkNames(op, creator, name); err != nil {
		return err
	}
	if err := checkAuthority(op, "owner", owner); err != nil {
		return err
	}
	if err := checkAuthority(op, "active", active); err != nil {
		return err
	}
	if err := checkAuthority(op, "basic", basic); err != nil {
		return err
	}
	return checkJSON(op, proto, json)
}

// Validate implements OpBody.
func (op *AccountCreateOp) Validate(proto config.ConsensusParams) error {
	if op.Fee.Symbol != basics.MUSE || op.Fee.Amount < 0 {
		return validationErrorf(op.OpType(), "account creation fee must be non-negative MUSE")
	}
	return validateNewAccount(op.OpType(), proto, op.Creator, op.NewAccountName, op.Owner, op.Active, op.Basic, op.JSONMetadata)
}

// Authorities implements OpBody.
func (op *AccountCreateOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Creator) }

// AccountCreateWithDelegationOp registers a new account, paying part of the
// creation fee with a vesting delegation that is locked for a while.
type AccountCreateWithDelegationOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Fee            basics.Asset       `codec:"fee"`
	Delegation     basics.Asset       `codec:"deleg"`
	Creator        basics.AccountName `codec:"creator"`
	NewAccountName basics.AccountName `codec:"name"`
	Owner          basics.Authority   `codec:"owner"`
	Active         basics.Authority   `codec:"active"`
	Basic          basics.Authority   `codec:"basic"`
	MemoKey        crypto.PublicKey   `codec:"memo"`
	JSONMetadata   string             `codec:"json"`
}

// OpType implements OpBody.
func (*AccountCreateWithDelegationOp) OpType() protocol.OpType {
	return protocol.AccountCreateDelegationOp
}

// Validate implements OpBody.
func (op *AccountCreateWithDelegationOp) Validate(proto config.ConsensusParams) error {
	if op.Fee.Symbol != basics.MUSE || op.Fee.Amount < 0 {
		return validationErrorf(op.OpType(), "account creation fee must be non-negative MUSE")
	}
	if op.Delegation.Symbol != basics.VESTS || op.Delegation.Amount < 0 {
		return validationErrorf(op.OpType(), "delegation must be non-negative VESTS")
	}
	return validateNewAccount(op.OpType(), proto, op.Creator, op.NewAccountName, op.Owner, op.Active, op.Basic, op.JSONMetadata)
}

// Authorities implements OpBody.
func (op *AccountCreateWithDelegationOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.Creator)
}

// AccountUpdateOp replaces any of an account's authorities, its memo key or
// its metadata. Changing the owner authority requires the owner authority.
type AccountUpdateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account      basics.AccountName `codec:"acct"`
	Owner        *basics.Authority  `codec:"owner"`
	Active       *basics.Authority  `codec:"active"`
	Basic        *basics.Authority  `codec:"basic"`
	MemoKey      crypto.PublicKey   `codec:"memo"`
	JSONMetadata string             `codec:"json"`
}

// OpType implements OpBody.
func (*AccountUpdateOp) OpType() protocol.OpType { return protocol.AccountUpdateOp }

// Validate implements OpBody.
func (op *AccountUpdateOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Account); err != nil {
		return err
	}
	for _, a := range []struct {
		what string
		auth *basics.Authority
	}{{"owner", op.Owner}, {"active", op.Active}, {"basic", op.Basic}} {
		if a.auth == nil {
			continue
		}
		if err := checkAuthority(op.OpType(), a.what, *a.auth); err != nil {
			return err
		}
	}
	return checkJSON(op.OpType(), proto, op.JSONMetadata)
}

// Authorities implements OpBody.
func (op *AccountUpdateOp) Authorities(req *RequiredAuthorities) {
	if op.Owner != nil {
		req.Owner.Add(op.Account)
	} else {
		req.Active.Add(op.Account)
	}
}

// RequestAccountRecoveryOp is issued by an account's recovery partner to
// start recovery with a proposed new owner authority. An impossible
// authority cancels a pending request.
type RequestAccountRecoveryOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	RecoveryAccount   basics.AccountName `codec:"recovery"`
	AccountToRecover  basics.AccountName `codec:"acct"`
	NewOwnerAuthority basics.Authority   `codec:"owner"`
}

// OpType implements OpBody.
func (*RequestAccountRecoveryOp) OpType() protocol.OpType { return protocol.RequestAccountRecoveryOp }

// Validate implements OpBody.
func (op *RequestAccountRecoveryOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.RecoveryAccount, op.AccountToRecover); err != nil {
		return err
	}
	if err := op.NewOwnerAuthority.Validate(); err != nil {
		return validationErrorf(op.OpType(), "new owner authority: %v", err)
	}
	return nil
}

// Authorities implements OpBody.
func (op *RequestAccountRecoveryOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.RecoveryAccount)
}

// RecoverAccountOp completes recovery. It must be signed by both the new
// owner authority and an owner authority the account held recently.
type RecoverAccountOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	AccountToRecover     basics.AccountName `codec:"acct"`
	NewOwnerAuthority    basics.Authority   `codec:"owner"`
	RecentOwnerAuthority basics.Authority   `codec:"recent"`
}

// OpType implements OpBody.
func (*RecoverAccountOp) OpType() protocol.OpType { return protocol.RecoverAccountOp }

// Validate implements OpBody.
func (op *RecoverAccountOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.AccountToRecover); err != nil {
		return err
	}
	if op.NewOwnerAuthority.Equal(op.RecentOwnerAuthority) {
		return validationErrorf(op.OpType(), "cannot recover to the same owner authority")
	}
	if err := checkAuthority(op.OpType(), "new owner", op.NewOwnerAuthority); err != nil {
		return err
	}
	return checkAuthority(op.OpType(), "recent owner", op.RecentOwnerAuthority)
}

// Authorities implements OpBody.
func (op *RecoverAccountOp) Authorities(req *RequiredAuthorities) {
	req.Other = append(req.Other, op.NewOwnerAuthority, op.RecentOwnerAuthority)
}

// ChangeRecoveryAccountOp schedules a change of the recovery partner. The
// change takes effect after the owner recovery period.
type ChangeRecoveryAccountOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	AccountToRecover   basics.AccountName `codec:"acct"`
	NewRecoveryAccount basics.AccountName `codec:"recovery"`
}

// OpType implements OpBody.
func (*ChangeRecoveryAccountOp) OpType() protocol.OpType { return protocol.ChangeRecoveryAccountOp }

// Validate implements OpBody.
func (op *ChangeRecoveryAccountOp) Validate(proto config.ConsensusParams) error {
	return checkNames(op.OpType(), op.AccountToRecover, op.NewRecoveryAccount)
}

// Authorities implements OpBody.
func (op *ChangeRecoveryAccountOp) Authorities(req *RequiredAuthorities) {
	req.Owner.Add(op.AccountToRecover)
}

// FriendshipOp asks Whom for friendship, or accepts a pending request.
type FriendshipOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Who  basics.AccountName `codec:"who"`
	Whom basics.AccountName `codec:"whom"`
}

// OpType implements OpBody.
func (*FriendshipOp) OpType() protocol.OpType { return protocol.FriendshipOp }

// Validate implements OpBody.
func (op *FriendshipOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.Who, op.Whom); err != nil {
		return err
	}
	if op.Who == op.Whom {
		return validationErrorf(op.OpType(), "cannot befriend yourself")
	}
	return nil
}

// Authorities implements OpBody.
func (op *FriendshipOp) Authorities(req *RequiredAuthorities) { req.Basic.Add(op.Who) }

// UnfriendOp ends a friendship.
type UnfriendOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Who  basics.AccountName `codec:"who"`
	Whom basics.AccountName `codec:"whom"`
}

// OpType implements OpBody.
func (*UnfriendOp) OpType() protocol.OpType { return protocol.UnfriendOp }

// Validate implements OpBody.
func (op *UnfriendOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.Who, op.Whom); err != nil {
		return err
	}
	if op.Who == op.Whom {
		return validationErrorf(op.OpType(), "cannot unfriend yourself")
	}
	return nil
}

// Authorities implements OpBody.
func (op *UnfriendOp) Authorities(req *RequiredAuthorities) { req.Basic.Add(op.Who) }

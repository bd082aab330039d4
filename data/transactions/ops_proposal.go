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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/protocol"
)

// ProposalCreateOp stores a batch of operations that executes once every
// authority it requires has approved.
type ProposalCreateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Author           basics.AccountName `codec:"author"`
	ProposedOps      []Operation        `codec:"ops"`
	ExpirationTime   basics.Timestamp   `codec:"exp"`
	ReviewPeriodTime *basics.Timestamp  `codec:"review"`
}

// OpType implements OpBody.
func (*ProposalCreateOp) OpType() protocol.OpType { return protocol.ProposalCreateOp }

// Validate implements OpBody.
func (op *ProposalCreateOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Author); err != nil {
		return err
	}
	if len(op.ProposedOps) == 0 {
		return validationErrorf(op.OpType(), "a proposal needs at least one operation")
	}
	if op.ReviewPeriodTime != nil && *op.ReviewPeriodTime >= op.ExpirationTime {
		return validationErrorf(op.OpType(), "review period must end before the proposal expires")
	}
	for _, pop := range op.ProposedOps {
		if pop.Type == protocol.ProposalCreateOp {
			return validationErrorf(op.OpType(), "proposals cannot be nested")
		}
		if err := pop.Validate(proto); err != nil {
			return err
		}
	}
	return nil
}

// Authorities implements OpBody.
func (op *ProposalCreateOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Author) }

// ProposalUpdateOp adds or removes approvals of a proposal. Each named
// account must sign with the corresponding authority; each key must sign
// directly.
type ProposalUpdateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ProposalID uint64 `codec:"id"`

	ActiveApprovalsToAdd    []basics.AccountName `codec:"aadd"`
	ActiveApprovalsToRemove []basics.AccountName `codec:"arem"`
	OwnerApprovalsToAdd     []basics.AccountName `codec:"oadd"`
	OwnerApprovalsToRemove  []basics.AccountName `codec:"orem"`
	BasicApprovalsToAdd     []basics.AccountName `codec:"badd"`
	BasicApprovalsToRemove  []basics.AccountName `codec:"brem"`
	KeyApprovalsToAdd       []crypto.PublicKey   `codec:"kadd"`
	KeyApprovalsToRemove    []crypto.PublicKey   `codec:"krem"`
}

// OpType implements OpBody.
func (*ProposalUpdateOp) OpType() protocol.OpType { return protocol.ProposalUpdateOp }

func checkApprovalLists(op protocol.OpType, add, remove []basics.AccountName) error {
	seen := mapset.NewThreadUnsafeSet[basics.AccountName]()
	for _, n := range add {
		if err := checkName(op, n); err != nil {
			return err
		}
		if !seen.Add(n) {
			return validationErrorf(op, "approval of %s listed twice", n)
		}
	}
	for _, n := range remove {
		if err := checkName(op, n); err != nil {
			return err
		}
		if !seen.Add(n) {
			return validationErrorf(op, "approval of %s both added and removed", n)
		}
	}
	return nil
}

// Validate implements OpBody.
func (op *ProposalUpdateOp) Validate(proto config.ConsensusParams) error {
	if len(op.ActiveApprovalsToAdd)+len(op.ActiveApprovalsToRemove)+
		len(op.OwnerApprovalsToAdd)+len(op.OwnerApprovalsToRemove)+
		len(op.BasicApprovalsToAdd)+len(op.BasicApprovalsToRemove)+
		len(op.KeyApprovalsToAdd)+len(op.KeyApprovalsToRemove) == 0 {
		return validationErrorf(op.OpType(), "proposal update changes nothing")
	}
	if err := checkApprovalLists(op.OpType(), op.ActiveApprovalsToAdd, op.ActiveApprovalsToRemove); err != nil {
		return err
	}
	if err := checkApprovalLists(op.OpType(), op.OwnerApprovalsToAdd, op.OwnerApprovalsToRemove); err != nil {
		return err
	}
	if err := checkApprovalLists(op.OpType(), op.BasicApprovalsToAdd, op.BasicApprovalsToRemove); err != nil {
		return err
	}
	keys := mapset.NewThreadUnsafeSet[crypto.PublicKey]()
	for _, k := range append(append([]crypto.PublicKey(nil), op.KeyApprovalsToAdd...), op.KeyApprovalsToRemove...) {
		if k.IsZero() {
			return validationErrorf(op.OpType(), "key approval with an empty key")
		}
		if !keys.Add(k) {
			return validationErrorf(op.OpType(), "key approval %v listed twice", k)
		}
	}
	return nil
}

// Authorities implements OpBody.
func (op *ProposalUpdateOp) Authorities(req *RequiredAuthorities) {
	req.Active.Append(op.ActiveApprovalsToAdd...)
	req.Active.Append(op.ActiveApprovalsToRemove...)
	req.Owner.Append(op.OwnerApprovalsToAdd...)
	req.Owner.Append(op.OwnerApprovalsToRemove...)
	req.Basic.Append(op.BasicApprovalsToAdd...)
	req.Basic.Append(op.BasicApprovalsToRemove...)
	for _, k := range op.KeyApprovalsToAdd {
		req.Other = append(req.Other, basics.KeyAuthority(k))
	}
	for _, k := range op.KeyApprovalsToRemove {
		req.Other = append(req.Other, basics.KeyAuthority(k))
	}
}

// ProposalDeleteOp vetoes a proposal. Vetoer must be among the accounts the
// proposal requires.
type ProposalDeleteOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Vetoer              basics.AccountName `codec:"vetoer"`
	UsingOwnerAuthority bool               `codec:"owner"`
	ProposalID          uint64             `codec:"id"`
}

// OpType implements OpBody.
func (*ProposalDeleteOp) OpType() protocol.OpType { return protocol.ProposalDeleteOp }

// Validate implements OpBody.
func (op *ProposalDeleteOp) Validate(proto config.ConsensusParams) error {
	return checkName(op.OpType(), op.Vetoer)
}

// Authorities implements OpBody.
func (op *ProposalDeleteOp) Authorities(req *RequiredAuthorities) {
	if op.UsingOwnerAuthority {
		req.Owner.Add(op.Vetoer)
	} else {
		req.Active.Add(op.Vetoer)
	}
}

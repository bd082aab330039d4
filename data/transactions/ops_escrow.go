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

// EscrowTransferOp places funds under the control of an escrow agent.
// Escrow operations decode and validate but are not evaluated.
type EscrowTransferOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	From                 basics.AccountName `codec:"from"`
	To                   basics.AccountName `codec:"to"`
	Agent                basics.AccountName `codec:"agent"`
	EscrowID             uint32             `codec:"id"`
	MbdAmount            basics.Asset       `codec:"mbd"`
	MuseAmount           basics.Asset       `codec:"muse"`
	Fee                  basics.Asset       `codec:"fee"`
	RatificationDeadline basics.Timestamp   `codec:"ratify"`
	EscrowExpiration     basics.Timestamp   `codec:"exp"`
	JSONMetadata         string             `codec:"json"`
}

// OpType implements OpBody.
func (*EscrowTransferOp) OpType() protocol.OpType { return protocol.EscrowTransferOp }

// Validate implements OpBody.
func (op *EscrowTransferOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.From, op.To, op.Agent); err != nil {
		return err
	}
	if op.Agent == op.From || op.Agent == op.To {
		return validationErrorf(op.OpType(), "agent must be a third party")
	}
	if op.MbdAmount.Symbol != basics.MBD || op.MuseAmount.Symbol != basics.MUSE {
		return validationErrorf(op.OpType(), "escrow amounts must be MBD and MUSE")
	}
	if op.MbdAmount.Amount < 0 || op.MuseAmount.Amount < 0 || op.Fee.Amount < 0 {
		return validationErrorf(op.OpType(), "escrow amounts must be non-negative")
	}
	if op.MbdAmount.Amount+op.MuseAmount.Amount <= 0 {
		return validationErrorf(op.OpType(), "escrow must transfer a positive amount")
	}
	if op.Fee.Symbol != basics.MUSE && op.Fee.Symbol != basics.MBD {
		return validationErrorf(op.OpType(), "fee must be MUSE or MBD")
	}
	if op.RatificationDeadline >= op.EscrowExpiration {
		return validationErrorf(op.OpType(), "ratification deadline must precede escrow expiration")
	}
	return checkJSON(op.OpType(), proto, op.JSONMetadata)
}

// Authorities implements OpBody.
func (op *EscrowTransferOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.From) }

// EscrowDisputeOp raises a dispute on an escrow.
type EscrowDisputeOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	From     basics.AccountName `codec:"from"`
	To       basics.AccountName `codec:"to"`
	Agent    basics.AccountName `codec:"agent"`
	Who      basics.AccountName `codec:"who"`
	EscrowID uint32             `codec:"id"`
}

// OpType implements OpBody.
func (*EscrowDisputeOp) OpType() protocol.OpType { return protocol.EscrowDisputeOp }

// Validate implements OpBody.
func (op *EscrowDisputeOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.From, op.To, op.Agent, op.Who); err != nil {
		return err
	}
	if op.Who != op.From && op.Who != op.To {
		return validationErrorf(op.OpType(), "only the sender or the receiver may dispute")
	}
	return nil
}

// Authorities implements OpBody.
func (op *EscrowDisputeOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Who) }

// EscrowReleaseOp releases escrowed funds to Receiver.
type EscrowReleaseOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	From       basics.AccountName `codec:"from"`
	To         basics.AccountName `codec:"to"`
	Agent      basics.AccountName `codec:"agent"`
	Who        basics.AccountName `codec:"who"`
	Receiver   basics.AccountName `codec:"recv"`
	EscrowID   uint32             `codec:"id"`
	MbdAmount  basics.Asset       `codec:"mbd"`
	MuseAmount basics.Asset       `codec:"muse"`
}

// OpType implements OpBody.
func (*EscrowReleaseOp) OpType() protocol.OpType { return protocol.EscrowReleaseOp }

// Validate implements OpBody.
func (op *EscrowReleaseOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.From, op.To, op.Agent, op.Who, op.Receiver); err != nil {
		return err
	}
	if op.Who != op.From && op.Who != op.To && op.Who != op.Agent {
		return validationErrorf(op.OpType(), "only a party to the escrow may release it")
	}
	if op.Receiver != op.From && op.Receiver != op.To {
		return validationErrorf(op.OpType(), "funds may only be released to the sender or the receiver")
	}
	if op.MbdAmount.Symbol != basics.MBD || op.MuseAmount.Symbol != basics.MUSE {
		return validationErrorf(op.OpType(), "release amounts must be MBD and MUSE")
	}
	if op.MbdAmount.Amount < 0 || op.MuseAmount.Amount < 0 || op.MbdAmount.Amount+op.MuseAmount.Amount <= 0 {
		return validationErrorf(op.OpType(), "release must be a positive amount")
	}
	return nil
}

// Authorities implements OpBody.
func (op *EscrowReleaseOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Who) }

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
	"github.com/algorand/go-muse/protocol"
)

// OpBody is implemented by every operation payload.
type OpBody interface {
	// OpType returns the tag of the payload.
	OpType() protocol.OpType
	// Validate checks operation-local well-formedness without any state.
	Validate(proto config.ConsensusParams) error
	// Authorities declares which authorities must approve the operation.
	Authorities(req *RequiredAuthorities)
}

// Operation is a tagged union: Type names the single payload field that is
// set. Unknown tags and mismatched payloads fail validation.
type Operation struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Type protocol.OpType `codec:"type"`

	Transfer                *TransferOp                    `codec:"transfer"`
	TransferToVesting       *TransferToVestingOp           `codec:"xfervest"`
	WithdrawVesting         *WithdrawVestingOp             `codec:"withdraw"`
	SetWithdrawRoute        *SetWithdrawVestingRouteOp     `codec:"wroute"`
	DelegateVesting         *DelegateVestingSharesOp       `codec:"delegate"`
	Convert                 *ConvertOp                     `codec:"convert"`
	AccountCreate           *AccountCreateOp               `codec:"acreate"`
	AccountCreateDelegation *AccountCreateWithDelegationOp `codec:"acreated"`
	AccountUpdate           *AccountUpdateOp               `codec:"aupdate"`
	RequestAccountRecovery  *RequestAccountRecoveryOp      `codec:"reqrecover"`
	RecoverAccount          *RecoverAccountOp              `codec:"recover"`
	ChangeRecoveryAccount   *ChangeRecoveryAccountOp       `codec:"chrecover"`
	AccountWitnessVote      *AccountWitnessVoteOp          `codec:"wvote"`
	AccountWitnessProxy     *AccountWitnessProxyOp         `codec:"wproxy"`
	WitnessUpdate           *WitnessUpdateOp               `codec:"witness"`
	FeedPublish             *FeedPublishOp                 `codec:"feed"`
	ReportOverProduction    *ReportOverProductionOp        `codec:"overprod"`
	LimitOrderCreate        *LimitOrderCreateOp            `codec:"ocreate"`
	LimitOrderCreate2       *LimitOrderCreate2Op           `codec:"ocreate2"`
	LimitOrderCancel        *LimitOrderCancelOp            `codec:"ocancel"`
	EscrowTransfer          *EscrowTransferOp              `codec:"escrow"`
	EscrowDispute           *EscrowDisputeOp               `codec:"edispute"`
	EscrowRelease           *EscrowReleaseOp               `codec:"erelease"`
	ProposalCreate          *ProposalCreateOp              `codec:"pcreate"`
	ProposalUpdate          *ProposalUpdateOp              `codec:"pupdate"`
	ProposalDelete          *ProposalDeleteOp              `codec:"pdelete"`
	AssetCreate             *AssetCreateOp                 `codec:"asset"`
	AssetIssue              *AssetIssueOp                  `codec:"aissue"`
	StreamingPlatformUpdate *StreamingPlatformUpdateOp     `codec:"spupdate"`
	StreamingPlatformVote   *StreamingPlatformVoteOp       `codec:"spvote"`
	StreamingPlatformReport *StreamingPlatformReportOp     `codec:"spreport"`
	SetReportingDelegate    *SetReportingDelegateOp        `codec:"spdelegate"`
	Content                 *ContentOp                     `codec:"content"`
	ContentUpdate           *ContentUpdateOp               `codec:"cupdate"`
	ContentDisable          *ContentDisableOp              `codec:"cdisable"`
	Friendship              *FriendshipOp                  `codec:"friend"`
	Unfriend                *UnfriendOp                    `codec:"unfriend"`
}

// MakeOperation wraps a payload into an Operation.
func MakeOperation(body OpBody) Operation {
	op := Operation{Type: body.OpType()}
	switch b := body.(type) {
	case *TransferOp:
		op.Transfer = b
	case *TransferToVestingOp:
		op.TransferToVesting = b
	case *WithdrawVestingOp:
		op.WithdrawVesting = b
	case *SetWithdrawVestingRouteOp:
		op.SetWithdrawRoute = b
	case *DelegateVestingSharesOp:
		op.DelegateVesting = b
	case *ConvertOp:
		op.Convert = b
	case *AccountCreateOp:
		op.AccountCreate = b
	case *AccountCreateWithDelegationOp:
		op.AccountCreateDelegation = b
	case *AccountUpdateOp:
		op.AccountUpdate = b
	case *RequestAccountRecoveryOp:
		op.RequestAccountRecovery = b
	case *RecoverAccountOp:
		op.RecoverAccount = b
	case *ChangeRecoveryAccountOp:
		op.ChangeRecoveryAccount = b
	case *AccountWitnessVoteOp:
		op.AccountWitnessVote = b
	case *AccountWitnessProxyOp:
		op.AccountWitnessProxy = b
	case *WitnessUpdateOp:
		op.WitnessUpdate = b
	case *FeedPublishOp:
		op.FeedPublish = b
	case *ReportOverProductionOp:
		op.ReportOverProduction = b
	case *LimitOrderCreateOp:
		op.LimitOrderCreate = b
	case *LimitOrderCreate2Op:
		op.LimitOrderCreate2 = b
	case *LimitOrderCancelOp:
		op.LimitOrderCancel = b
	case *EscrowTransferOp:
		op.EscrowTransfer = b
	case *EscrowDisputeOp:
		op.EscrowDispute = b
	case *EscrowReleaseOp:
		op.EscrowRelease = b
	case *ProposalCreateOp:
		op.ProposalCreate = b
	case *ProposalUpdateOp:
		op.ProposalUpdate = b
	case *ProposalDeleteOp:
		op.ProposalDelete = b
	case *AssetCreateOp:
		op.AssetCreate = b
	case *AssetIssueOp:
		op.AssetIssue = b
	case *StreamingPlatformUpdateOp:
		op.StreamingPlatformUpdate = b
	case *StreamingPlatformVoteOp:
		op.StreamingPlatformVote = b
	case *StreamingPlatformReportOp:
		op.StreamingPlatformReport = b
	case *SetReportingDelegateOp:
		op.SetReportingDelegate = b
	case *ContentOp:
		op.Content = b
	case *ContentUpdateOp:
		op.ContentUpdate = b
	case *ContentDisableOp:
		op.ContentDisable = b
	case *FriendshipOp:
		op.Friendship = b
	case *UnfriendOp:
		op.Unfriend = b
	}
	return op
}

// payloads lists every set payload field.
func (op Operation) payloads() []OpBody {
	var res []OpBody
	add := func(present bool, b OpBody) {
		if present {
			res = append(res, b)
		}
	}
	add(op.Transfer != nil, op.Transfer)
	add(op.TransferToVesting != nil, op.TransferToVesting)
	add(op.WithdrawVesting != nil, op.WithdrawVesting)
	add(op.SetWithdrawRoute != nil, op.SetWithdrawRoute)
	add(op.DelegateVesting != nil, op.DelegateVesting)
	add(op.Convert != nil, op.Convert)
	add(op.AccountCreate != nil, op.AccountCreate)
	add(op.AccountCreateDelegation != nil, op.AccountCreateDelegation)
	add(op.AccountUpdate != nil, op.AccountUpdate)
	add(op.RequestAccountRecovery != nil, op.RequestAccountRecovery)
	add(op.RecoverAccount != nil, op.RecoverAccount)
	add(op.ChangeRecoveryAccount != nil, op.ChangeRecoveryAccount)
	add(op.AccountWitnessVote != nil, op.AccountWitnessVote)
	add(op.AccountWitnessProxy != nil, op.AccountWitnessProxy)
	add(op.WitnessUpdate != nil, op.WitnessUpdate)
	add(op.FeedPublish != nil, op.FeedPublish)
	add(op.ReportOverProduction != nil, op.ReportOverProduction)
	add(op.LimitOrderCreate != nil, op.LimitOrderCreate)
	add(op.LimitOrderCreate2 != nil, op.LimitOrderCreate2)
	add(op.LimitOrderCancel != nil, op.LimitOrderCancel)
	add(op.EscrowTransfer != nil, op.EscrowTransfer)
	add(op.EscrowDispute != nil, op.EscrowDispute)
	add(op.EscrowRelease != nil, op.EscrowRelease)
	add(op.ProposalCreate != nil, op.ProposalCreate)
	add(op.ProposalUpdate != nil, op.ProposalUpdate)
	add(op.ProposalDelete != nil, op.ProposalDelete)
	add(op.AssetCreate != nil, op.AssetCreate)
	add(op.AssetIssue != nil, op.AssetIssue)
	add(op.StreamingPlatformUpdate != nil, op.StreamingPlatformUpdate)
	add(op.StreamingPlatformVote != nil, op.StreamingPlatformVote)
	add(op.StreamingPlatformReport != nil, op.StreamingPlatformReport)
	add(op.SetReportingDelegate != nil, op.SetReportingDelegate)
	add(op.Content != nil, op.Content)
	add(op.ContentUpdate != nil, op.ContentUpdate)
	add(op.ContentDisable != nil, op.ContentDisable)
	add(op.Friendship != nil, op.Friendship)
	add(op.Unfriend != nil, op.Unfriend)
	return res
}

// Body returns the payload selected by Type, or nil when the operation is
// malformed.
func (op Operation) Body() OpBody {
	p := op.payloads()
	if len(p) != 1 || p[0].OpType() != op.Type {
		return nil
	}
	return p[0]
}

// Validate checks the tag and the payload.
func (op Operation) Validate(proto config.ConsensusParams) error {
	if !op.Type.IsKnown() {
		return validationErrorf(op.Type, "unknown operation type %q", string(op.Type))
	}
	body := op.Body()
	if body == nil {
		return validationErrorf(op.Type, "operation payload does not match its type")
	}
	return body.Validate(proto)
}

// Authorities declares the payload's required authorities. Malformed
// operations declare nothing; they never pass Validate.
func (op Operation) Authorities(req *RequiredAuthorities) {
	if body := op.Body(); body != nil {
		body.Authorities(req)
	}
}

// IsMarket reports whether the operation is subject to the stricter market
// bandwidth allowance.
func (op Operation) IsMarket() bool {
	switch op.Type {
	case protocol.LimitOrderCreateOp, protocol.LimitOrderCreate2Op, protocol.LimitOrderCancelOp,
		protocol.TransferOp, protocol.TransferToVestingOp:
		return true
	}
	return false
}

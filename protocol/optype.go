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

package protocol

// OpType is the tag of an operation in a transaction.
type OpType string

// Operation tags. The set is closed: decoding an unknown tag is an error.
const (
	UnknownOp OpType = ""

	TransferOp          OpType = "transfer"
	TransferToVestingOp OpType = "transfer_to_vesting"
	WithdrawVestingOp   OpType = "withdraw_vesting"
	SetWithdrawRouteOp  OpType = "set_withdraw_vesting_route"
	DelegateVestingOp   OpType = "delegate_vesting_shares"
	ConvertOp           OpType = "convert"

	AccountCreateOp           OpType = "account_create"
	AccountCreateDelegationOp OpType = "account_create_with_delegation"
	AccountUpdateOp           OpType = "account_update"
	RequestAccountRecoveryOp  OpType = "request_account_recovery"
	RecoverAccountOp          OpType = "recover_account"
	ChangeRecoveryAccountOp   OpType = "change_recovery_account"
	AccountWitnessVoteOp      OpType = "account_witness_vote"
	AccountWitnessProxyOp     OpType = "account_witness_proxy"
	WitnessUpdateOp           OpType = "witness_update"
	FeedPublishOp             OpType = "feed_publish"
	ReportOverProductionOp    OpType = "report_over_production"
	LimitOrderCreateOp        OpType = "limit_order_create"
	LimitOrderCreate2Op       OpType = "limit_order_create2"
	LimitOrderCancelOp        OpType = "limit_order_cancel"
	EscrowTransferOp          OpType = "escrow_transfer"
	EscrowDisputeOp           OpType = "escrow_dispute"
	EscrowReleaseOp           OpType = "escrow_release"
	ProposalCreateOp          OpType = "proposal_create"
	ProposalUpdateOp          OpType = "proposal_update"
	ProposalDeleteOp          OpType = "proposal_delete"
	AssetCreateOp             OpType = "asset_create"
	AssetIssueOp              OpType = "asset_issue"
	StreamingPlatformUpdateOp OpType = "streaming_platform_update"
	StreamingPlatformVoteOp   OpType = "account_streaming_platform_vote"
	StreamingPlatformReportOp OpType = "streaming_platform_report"
	SetReportingDelegateOp    OpType = "set_reporting_delegate"
	ContentOp                 OpType = "content"
	ContentUpdateOp           OpType = "content_update"
	ContentDisableOp          OpType = "content_disable"
	FriendshipOp              OpType = "friendship"
	UnfriendOp                OpType = "unfriend"
)

// OpTypes lists every known operation tag.
var OpTypes = []OpType{
	TransferOp, TransferToVestingOp, WithdrawVestingOp, SetWithdrawRouteOp,
	DelegateVestingOp, ConvertOp, AccountCreateOp, AccountCreateDelegationOp,
	AccountUpdateOp, RequestAccountRecoveryOp, RecoverAccountOp,
	ChangeRecoveryAccountOp, AccountWitnessVoteOp, AccountWitnessProxyOp,
	WitnessUpdateOp, FeedPublishOp, ReportOverProductionOp, LimitOrderCreateOp,
	LimitOrderCreate2Op, LimitOrderCancelOp, EscrowTransferOp, EscrowDisputeOp,
	EscrowReleaseOp, ProposalCreateOp, ProposalUpdateOp, ProposalDeleteOp,
	AssetCreateOp, AssetIssueOp, StreamingPlatformUpdateOp,
	StreamingPlatformVoteOp, StreamingPlatformReportOp, SetReportingDelegateOp,
	ContentOp, ContentUpdateOp, ContentDisableOp, FriendshipOp, UnfriendOp,
}

// IsKnown reports whether t is one of the defined operation tags.
func (t OpType) IsKnown() bool {
	for _, k := range OpTypes {
		if k == t {
			return true
		}
	}
	return false
}

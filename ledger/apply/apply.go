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

// Package apply holds the operation evaluators and the per-block sweeps
// that mutate the chain state outside of operations.
package apply

import (
	"fmt"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// Env carries what an evaluator needs beyond the state and the operation.
type Env struct {
	// ProposalDepth is the number of proposal executions the operation is
	// nested in.
	ProposalDepth int
}

// RequiredHardfork returns the hardfork an operation needs to be active.
func RequiredHardfork(op transactions.Operation) int {
	switch op.Type {
	case protocol.AccountCreateDelegationOp, protocol.DelegateVestingOp, protocol.LimitOrderCreate2Op:
		return config.HardforkDelegation
	case protocol.SetReportingDelegateOp:
		return config.HardforkSpinning
	case protocol.StreamingPlatformReportOp:
		if op.StreamingPlatformReport != nil && op.StreamingPlatformReport.SpinningPlatform != "" {
			return config.HardforkSpinning
		}
	}
	return config.HardforkGenesis
}

// CheckHardfork fails when op is not yet active on st. Proposals run it on
// every embedded operation at creation time.
func CheckHardfork(st *chainstate.State, op transactions.Operation) error {
	if hf := RequiredHardfork(op); !st.HasHardfork(hf) {
		return ledgercore.Assertf(op.Type, "operation requires hardfork %d", hf)
	}
	return nil
}

// Apply runs the evaluator of op against st. The caller owns the undo
// session that discards the changes on error.
func Apply(st *chainstate.State, op transactions.Operation, env Env) error {
	if err := CheckHardfork(st, op); err != nil {
		return err
	}
	switch op.Type {
	case protocol.TransferOp:
		return Transfer(st, op.Transfer)
	case protocol.TransferToVestingOp:
		return TransferToVesting(st, op.TransferToVesting)
	case protocol.WithdrawVestingOp:
		return WithdrawVesting(st, op.WithdrawVesting)
	case protocol.SetWithdrawRouteOp:
		return SetWithdrawVestingRoute(st, op.SetWithdrawRoute)
	case protocol.DelegateVestingOp:
		return DelegateVestingShares(st, op.DelegateVesting)
	case protocol.ConvertOp:
		return Convert(st, op.Convert)

	case protocol.AccountCreateOp:
		return AccountCreate(st, op.AccountCreate)
	case protocol.AccountCreateDelegationOp:
		return AccountCreateWithDelegation(st, op.AccountCreateDelegation)
	case protocol.AccountUpdateOp:
		return AccountUpdate(st, op.AccountUpdate)
	case protocol.RequestAccountRecoveryOp:
		return RequestAccountRecovery(st, op.RequestAccountRecovery)
	case protocol.RecoverAccountOp:
		return RecoverAccount(st, op.RecoverAccount)
	case protocol.ChangeRecoveryAccountOp:
		return ChangeRecoveryAccount(st, op.ChangeRecoveryAccount)
	case protocol.FriendshipOp:
		return Friendship(st, op.Friendship)
	case protocol.UnfriendOp:
		return Unfriend(st, op.Unfriend)

	case protocol.WitnessUpdateOp:
		return WitnessUpdate(st, op.WitnessUpdate)
	case protocol.AccountWitnessVoteOp:
		return AccountWitnessVote(st, op.AccountWitnessVote)
	case protocol.AccountWitnessProxyOp:
		return AccountWitnessProxy(st, op.AccountWitnessProxy)
	case protocol.FeedPublishOp:
		return FeedPublish(st, op.FeedPublish)

	case protocol.LimitOrderCreateOp:
		return LimitOrderCreate(st, op.LimitOrderCreate)
	case protocol.LimitOrderCreate2Op:
		return LimitOrderCreate2(st, op.LimitOrderCreate2)
	case protocol.LimitOrderCancelOp:
		return LimitOrderCancel(st, op.LimitOrderCancel)
	case protocol.AssetCreateOp:
		return AssetCreate(st, op.AssetCreate)
	case protocol.AssetIssueOp:
		return AssetIssue(st, op.AssetIssue)

	case protocol.StreamingPlatformUpdateOp:
		return StreamingPlatformUpdate(st, op.StreamingPlatformUpdate)
	case protocol.StreamingPlatformVoteOp:
		return StreamingPlatformVote(st, op.StreamingPlatformVote)
	case protocol.StreamingPlatformReportOp:
		return StreamingPlatformReport(st, op.StreamingPlatformReport)
	case protocol.SetReportingDelegateOp:
		return SetReportingDelegate(st, op.SetReportingDelegate)
	case protocol.ContentOp:
		return Content(st, op.Content)
	case protocol.ContentUpdateOp:
		return ContentUpdate(st, op.ContentUpdate)
	case protocol.ContentDisableOp:
		return ContentDisable(st, op.ContentDisable)

	case protocol.ProposalCreateOp:
		return ProposalCreate(st, op.ProposalCreate)
	case protocol.ProposalUpdateOp:
		return ProposalUpdate(st, op.ProposalUpdate, env)
	case protocol.ProposalDeleteOp:
		return ProposalDelete(st, op.ProposalDelete)

	case protocol.EscrowTransferOp, protocol.EscrowDisputeOp, protocol.EscrowReleaseOp,
		protocol.ReportOverProductionOp:
		return Disabled(op.Type)
	default:
		return fmt.Errorf("no evaluator for operation type %q", string(op.Type))
	}
}

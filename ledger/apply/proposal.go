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

package apply

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/data/transactions/verify"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// ProposalCreate stores a set of operations for execution once the
// accounts they need have approved.
func ProposalCreate(st *chainstate.State, op *transactions.ProposalCreateOp) error {
	t := protocol.ProposalCreateOp
	now := st.HeadBlockTime()
	if op.ExpirationTime <= now {
		return ledgercore.Assertf(t, "proposal has already expired on creation")
	}
	if op.ExpirationTime > now.Add(st.Params.MaxProposalLifetime) {
		return ledgercore.Assertf(t, "proposal expiration time is too far in the future")
	}
	if op.ReviewPeriodTime != nil && *op.ReviewPeriodTime <= now {
		return ledgercore.Assertf(t, "proposal review period must start in the future")
	}
	if err := st.RequireAccount(t, op.Author); err != nil {
		return err
	}

	req := transactions.MakeRequiredAuthorities()
	for _, pop := range op.ProposedOps {
		if pop.Type == protocol.ProposalCreateOp {
			return ledgercore.Assertf(t, "proposals cannot be nested")
		}
		if err := CheckHardfork(st, pop); err != nil {
			return err
		}
		pop.Authorities(req)
	}
	if len(req.Other) > 0 {
		return ledgercore.Assertf(t, "proposed operations may not require literal authorities")
	}

	// Owner approval implies active approval, and either implies basic.
	active := req.Active.Difference(req.Owner)
	basic := req.Basic.Difference(req.Owner).Difference(req.Active)
	if basic.Cardinality() > 0 && (active.Cardinality() > 0 || req.Owner.Cardinality() > 0) {
		return ledgercore.Assertf(t, "%v", verify.ErrMixedAuthorityTiers)
	}

	p := ledgercore.Proposal{
		Author:                  op.Author,
		ProposedOps:             slices.Clone(op.ProposedOps),
		Expiration:              op.ExpirationTime,
		RequiredOwnerApprovals:  sortedNames(req.Owner),
		RequiredActiveApprovals: sortedNames(active),
		RequiredBasicApprovals:  sortedNames(basic),
		RequiredMasterContent:   sortedStrings(req.MasterContent),
		RequiredCompContent:     sortedStrings(req.CompContent),
	}
	if op.ReviewPeriodTime != nil {
		p.ReviewPeriodTime = *op.ReviewPeriodTime
	}
	p.ID = st.Proposals.NextID()
	return st.Proposals.Create(p.ID, p)
}

func sortedStrings(s mapset.Set[string]) []string {
	out := s.ToSlice()
	slices.Sort(out)
	return out
}

// ProposalUpdate adds and removes approvals and executes the proposal as
// soon as it is authorized, unless it has a review period. A failed
// execution leaves the proposal in place for another attempt.
func ProposalUpdate(st *chainstate.State, op *transactions.ProposalUpdateOp, env Env) error {
	t := protocol.ProposalUpdateOp
	p, ok := st.Proposals.Get(op.ProposalID)
	if !ok {
		return ledgercore.Assertf(t, "proposal %d does not exist", op.ProposalID)
	}
	now := st.HeadBlockTime()
	if p.HasReviewPeriod() && now >= p.ReviewPeriodTime {
		if len(op.ActiveApprovalsToAdd)+len(op.OwnerApprovalsToAdd)+len(op.BasicApprovalsToAdd)+len(op.KeyApprovalsToAdd) > 0 {
			return ledgercore.Assertf(t, "proposal %d is in its review period, no new approvals may be added", p.ID)
		}
	}

	for _, rm := range []struct {
		names []basics.AccountName
		have  ledgercore.NameList
		tier  string
	}{
		{op.ActiveApprovalsToRemove, p.AvailableActiveApprovals, "active"},
		{op.OwnerApprovalsToRemove, p.AvailableOwnerApprovals, "owner"},
		{op.BasicApprovalsToRemove, p.AvailableBasicApprovals, "basic"},
	} {
		for _, n := range rm.names {
			if !rm.have.Has(n) {
				return ledgercore.Assertf(t, "%s approval of %s is not present", rm.tier, n)
			}
		}
	}
	for _, k := range op.KeyApprovalsToRemove {
		if !p.HasKeyApproval(k) {
			return ledgercore.Assertf(t, "key approval %v is not present", k)
		}
	}
	for _, lst := range []struct {
		names []basics.AccountName
		have  ledgercore.NameList
		tier  string
	}{
		{op.ActiveApprovalsToAdd, p.AvailableActiveApprovals, "active"},
		{op.OwnerApprovalsToAdd, p.AvailableOwnerApprovals, "owner"},
		{op.BasicApprovalsToAdd, p.AvailableBasicApprovals, "basic"},
	} {
		for _, n := range lst.names {
			if lst.have.Has(n) {
				return ledgercore.Assertf(t, "%s approval of %s is already present", lst.tier, n)
			}
		}
	}
	for _, k := range op.KeyApprovalsToAdd {
		if p.HasKeyApproval(k) {
			return ledgercore.Assertf(t, "key approval %v is already present", k)
		}
	}

	err := st.Proposals.Modify(p.ID, func(p *ledgercore.Proposal) error {
		for _, n := range op.ActiveApprovalsToAdd {
			p.AvailableActiveApprovals.Add(n)
		}
		for _, n := range op.OwnerApprovalsToAdd {
			p.AvailableOwnerApprovals.Add(n)
		}
		for _, n := range op.BasicApprovalsToAdd {
			p.AvailableBasicApprovals.Add(n)
		}
		for _, n := range op.ActiveApprovalsToRemove {
			p.AvailableActiveApprovals.Remove(n)
		}
		for _, n := range op.OwnerApprovalsToRemove {
			p.AvailableOwnerApprovals.Remove(n)
		}
		for _, n := range op.BasicApprovalsToRemove {
			p.AvailableBasicApprovals.Remove(n)
		}
		p.AvailableKeyApprovals = slices.DeleteFunc(p.AvailableKeyApprovals, func(k crypto.PublicKey) bool {
			return slices.Contains(op.KeyApprovalsToRemove, k)
		})
		p.AvailableKeyApprovals = append(p.AvailableKeyApprovals, op.KeyApprovalsToAdd...)
		return nil
	})
	if err != nil {
		return err
	}

	p, _ = st.Proposals.Get(p.ID)
	if p.HasReviewPeriod() || !IsAuthorizedToExecute(st, p) {
		return nil
	}
	if err := PushProposal(st, p, env); err != nil {
		st.Log.Infof("proposal %d failed to execute: %v", p.ID, err)
	}
	return nil
}

// ProposalDelete removes a proposal on the veto of an account it requires.
func ProposalDelete(st *chainstate.State, op *transactions.ProposalDeleteOp) error {
	t := protocol.ProposalDeleteOp
	p, ok := st.Proposals.Get(op.ProposalID)
	if !ok {
		return ledgercore.Assertf(t, "proposal %d does not exist", op.ProposalID)
	}
	var standing bool
	if op.UsingOwnerAuthority {
		standing = p.RequiredOwnerApprovals.Has(op.Vetoer)
	} else {
		standing = p.RequiredActiveApprovals.Has(op.Vetoer) || p.RequiredBasicApprovals.Has(op.Vetoer)
	}
	if !standing {
		return ledgercore.Assertf(t, "%s is not authoritative for proposal %d", op.Vetoer, p.ID)
	}
	st.Proposals.Remove(p.ID)
	return nil
}

// IsAuthorizedToExecute reports whether the approvals a proposal collected
// satisfy every authority its operations need.
func IsAuthorizedToExecute(st *chainstate.State, p ledgercore.Proposal) bool {
	req := transactions.MakeRequiredAuthorities()
	for _, op := range p.ProposedOps {
		op.Authorities(req)
	}
	approvals := &verify.Approvals{
		Owner:  mapset.NewThreadUnsafeSet[basics.AccountName](p.AvailableOwnerApprovals...),
		Active: mapset.NewThreadUnsafeSet[basics.AccountName](p.AvailableActiveApprovals...),
		Basic:  mapset.NewThreadUnsafeSet[basics.AccountName](p.AvailableBasicApprovals...),
	}
	keys := mapset.NewThreadUnsafeSet(p.AvailableKeyApprovals...)
	err := verify.VerifyAuthority(req, keys, st, verify.Options{
		MaxDepth:        st.Params.MaxSigCheckDepth,
		Approvals:       approvals,
		AllowUnusedKeys: true,
	})
	return err == nil
}

// PushProposal executes a proposal's operations in their own undo session
// and removes the proposal. On error nothing the operations did survives.
func PushProposal(st *chainstate.State, p ledgercore.Proposal, env Env) error {
	if env.ProposalDepth >= st.Params.MaxProposalNestingDepth {
		return ledgercore.Assertf(protocol.ProposalUpdateOp, "maximum proposal nesting depth of %d exceeded", st.Params.MaxProposalNestingDepth)
	}
	session := st.DB.StartUndoSession(true)
	defer session.Undo()

	inner := Env{ProposalDepth: env.ProposalDepth + 1}
	for _, op := range p.ProposedOps {
		if err := Apply(st, op, inner); err != nil {
			return err
		}
	}
	if st.Proposals.Has(p.ID) {
		st.Proposals.Remove(p.ID)
	}
	session.Squash()
	return nil
}

// ClearExpiredProposals executes every expired proposal that is
// authorized and discards the rest.
func ClearExpiredProposals(st *chainstate.State) {
	now := st.HeadBlockTime()
	for {
		_, p, ok := st.ProposalsByExpiration.First()
		if !ok || p.Expiration > now {
			return
		}
		if IsAuthorizedToExecute(st, p) {
			err := PushProposal(st, p, Env{})
			if err == nil {
				continue
			}
			st.Log.Infof("failed to apply proposal %d on its expiration, deleting it: %v", p.ID, err)
		}
		st.Proposals.Remove(p.ID)
	}
}

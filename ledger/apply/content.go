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

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// StreamingPlatformUpdate registers a streaming platform, burning the
// creation fee, or changes the url of an existing one.
func StreamingPlatformUpdate(st *chainstate.State, op *transactions.StreamingPlatformUpdateOp) error {
	t := protocol.StreamingPlatformUpdateOp
	if err := st.RequireAccount(t, op.Owner); err != nil {
		return err
	}
	if st.Platforms.Has(op.Owner) {
		return st.Platforms.Modify(op.Owner, func(p *ledgercore.StreamingPlatform) error {
			p.URL = op.URL
			return nil
		})
	}
	if op.Fee.Amount < st.Params.StreamingPlatformCreationFee {
		return ledgercore.Assertf(t, "streaming platform creation fee is %v, %v provided",
			basics.Muse(st.Params.StreamingPlatformCreationFee), op.Fee)
	}
	if err := st.AdjustBalance(op.Owner, op.Fee.Neg()); err != nil {
		return err
	}
	st.AdjustSupply(op.Fee.Neg())
	return st.Platforms.Create(op.Owner, ledgercore.StreamingPlatform{
		Owner:   op.Owner,
		URL:     op.URL,
		Created: st.HeadBlockTime(),
	})
}

// StreamingPlatformVote approves or withdraws approval of a streaming
// platform with the voter's effective vesting.
func StreamingPlatformVote(st *chainstate.State, op *transactions.StreamingPlatformVoteOp) error {
	t := protocol.StreamingPlatformVoteOp
	voter, err := st.Account(t, op.Account)
	if err != nil {
		return err
	}
	if !st.Platforms.Has(op.StreamingPlatform) {
		return ledgercore.Assertf(t, "streaming platform %s does not exist", op.StreamingPlatform)
	}
	key := ledgercore.PairKey{First: op.Account, Second: op.StreamingPlatform}
	weight := voter.EffectiveVestingShares()

	if !st.PlatformVotes.Has(key) {
		if !op.Approve {
			return ledgercore.Assertf(t, "vote does not exist, user must indicate a desire to approve the platform")
		}
		if int(voter.StreamingPlatformVotes) >= st.Params.MaxStreamingPlatformVotes {
			return ledgercore.Assertf(t, "account %s has voted for too many streaming platforms", op.Account)
		}
		err = st.PlatformVotes.Create(key, ledgercore.StreamingPlatformVote{Account: op.Account, Platform: op.StreamingPlatform})
		if err != nil {
			return err
		}
		st.Platforms.Modify(op.StreamingPlatform, func(p *ledgercore.StreamingPlatform) error {
			p.Votes += weight
			return nil
		})
		return st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
			a.StreamingPlatformVotes++
			return nil
		})
	}

	if op.Approve {
		return ledgercore.Assertf(t, "vote currently exists, user must indicate a desire to reject the platform")
	}
	st.Platforms.Modify(op.StreamingPlatform, func(p *ledgercore.StreamingPlatform) error {
		p.Votes -= weight
		return nil
	})
	st.PlatformVotes.Remove(key)
	return st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
		a.StreamingPlatformVotes--
		return nil
	})
}

// StreamingPlatformReport records a play for the next content cashout and
// updates the listening statistics.
func StreamingPlatformReport(st *chainstate.State, op *transactions.StreamingPlatformReportOp) error {
	t := protocol.StreamingPlatformReportOp
	if !st.Platforms.Has(op.StreamingPlatform) {
		return ledgercore.Assertf(t, "streaming platform %s does not exist", op.StreamingPlatform)
	}
	if op.SpinningPlatform != "" {
		key := ledgercore.PairKey{First: op.StreamingPlatform, Second: op.SpinningPlatform}
		if !st.ReportingDelegations.Has(key) {
			return ledgercore.Assertf(t, "%s is not a reporting delegate of %s", op.SpinningPlatform, op.StreamingPlatform)
		}
	}
	consumer, err := st.Account(t, op.Consumer)
	if err != nil {
		return err
	}
	c, ok := st.Contents.Get(op.Content)
	if !ok {
		return ledgercore.Assertf(t, "content %s does not exist", op.Content)
	}
	if c.Disabled {
		return ledgercore.Assertf(t, "content %s is disabled", op.Content)
	}

	play := int64(op.PlayTime)
	id := st.Reports.NextID()
	err = st.Reports.Create(id, ledgercore.Report{
		ID:                id,
		StreamingPlatform: op.StreamingPlatform,
		SpinningPlatform:  op.SpinningPlatform,
		Consumer:          op.Consumer,
		Content:           op.Content,
		PlayTime:          op.PlayTime,
		Created:           st.HeadBlockTime(),
	})
	if err != nil {
		return err
	}
	st.Contents.Modify(op.Content, func(c *ledgercore.Content) error {
		c.TimesPlayed++
		return nil
	})
	st.Platforms.Modify(op.StreamingPlatform, func(p *ledgercore.StreamingPlatform) error {
		p.ListeningTime += play
		return nil
	})
	st.ModifyAccount(op.Consumer, func(a *ledgercore.Account) error {
		a.ListeningTime += play
		return nil
	})
	AdjustListeningStats(st, consumer.ListeningTime, consumer.ListeningTime+play)
	return nil
}

// AdjustListeningStats moves the global listening statistics for one
// consumer whose listening time changed from before to after.
func AdjustListeningStats(st *chainstate.State, before, after int64) {
	threshold := st.Params.FullTimeListeningThreshold
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.TotalListeningTime += after - before
		switch {
		case before == 0 && after > 0:
			d.ActiveUsers++
		case before > 0 && after == 0:
			d.ActiveUsers--
		}
		wasFull, isFull := before >= threshold, after >= threshold
		switch {
		case wasFull && isFull:
			d.FullTimeListeningTime += after - before
		case !wasFull && isFull:
			d.FullTimeUsers++
			d.FullTimeListeningTime += after
		case wasFull && !isFull:
			d.FullTimeUsers--
			d.FullTimeListeningTime -= before
		}
	})
}

// SetReportingDelegate grants, changes or (with both percentages zero)
// revokes a reporting delegation. The platform's redelegations are
// re-split at once.
func SetReportingDelegate(st *chainstate.State, op *transactions.SetReportingDelegateOp) error {
	t := protocol.SetReportingDelegateOp
	for _, p := range []basics.AccountName{op.Platform, op.Reporter} {
		if !st.Platforms.Has(p) {
			return ledgercore.Assertf(t, "streaming platform %s does not exist", p)
		}
	}
	key := ledgercore.PairKey{First: op.Platform, Second: op.Reporter}
	revoke := op.RewardPct == 0 && op.RedelegatePct == 0
	existing, ok := st.ReportingDelegations.Get(key)
	if !ok && revoke {
		return ledgercore.Assertf(t, "%s is not a reporting delegate of %s", op.Reporter, op.Platform)
	}
	if ok {
		existing.RewardPct = op.RewardPct
		existing.RedelegatePct = op.RedelegatePct
	} else {
		existing = ledgercore.ReportingDelegation{
			Platform:      op.Platform,
			Reporter:      op.Reporter,
			RewardPct:     op.RewardPct,
			RedelegatePct: op.RedelegatePct,
		}
	}
	st.ReportingDelegations.Put(key, existing)

	var total uint32
	st.ReportingDelegations.ScanFrom(ledgercore.PairKey{First: op.Platform}, func(k ledgercore.PairKey, d ledgercore.ReportingDelegation) bool {
		if k.First != op.Platform {
			return false
		}
		total += uint32(d.RedelegatePct)
		return true
	})
	if total > basics.Percent100 {
		return ledgercore.Assertf(t, "%s would redelegate more than 100%% of its received vesting", op.Platform)
	}
	if err := st.ResplitRedelegations(op.Platform); err != nil {
		return err
	}
	if revoke {
		st.ReportingDelegations.Remove(key)
	}
	return nil
}

func requirePayees(st *chainstate.State, t protocol.OpType, dists []transactions.Distribution) error {
	for _, d := range dists {
		if err := st.RequireAccount(t, d.Payee); err != nil {
			return err
		}
	}
	return nil
}

// Content registers a piece of content with its payees and managers.
func Content(st *chainstate.State, op *transactions.ContentOp) error {
	t := protocol.ContentOp
	if err := st.RequireAccount(t, op.Uploader); err != nil {
		return err
	}
	if st.Contents.Has(op.URL) {
		return ledgercore.Assertf(t, "content %s already exists", op.URL)
	}
	if err := requirePayees(st, t, op.DistributionsMaster); err != nil {
		return err
	}
	if err := requirePayees(st, t, op.DistributionsComp); err != nil {
		return err
	}
	if err := requireAuthorityAccounts(st, t, op.ManagementMaster, op.ManagementComp); err != nil {
		return err
	}
	now := st.HeadBlockTime()
	return st.Contents.Create(op.URL, ledgercore.Content{
		URL:                 op.URL,
		Uploader:            op.Uploader,
		JSONMetadata:        op.JSONMetadata,
		Created:             now,
		LastUpdate:          now,
		DistributionsMaster: slices.Clone(op.DistributionsMaster),
		ManagementMaster:    op.ManagementMaster.Clone(),
		DistributionsComp:   slices.Clone(op.DistributionsComp),
		ManagementComp:      op.ManagementComp.Clone(),
		PlayingReward:       op.PlayingReward,
		PublishersShare:     op.PublishersShare,
	})
}

// ContentUpdate changes one side of a content: its payees, managers and,
// for the master side, the reward percentages.
func ContentUpdate(st *chainstate.State, op *transactions.ContentUpdateOp) error {
	t := protocol.ContentUpdateOp
	c, ok := st.Contents.Get(op.URL)
	if !ok {
		return ledgercore.Assertf(t, "content %s does not exist", op.URL)
	}
	if c.Disabled {
		return ledgercore.Assertf(t, "content %s is disabled", op.URL)
	}
	if err := requirePayees(st, t, op.NewDistributions); err != nil {
		return err
	}
	if op.NewManagement != nil {
		if err := requireAuthorityAccounts(st, t, *op.NewManagement); err != nil {
			return err
		}
	}
	now := st.HeadBlockTime()
	return st.Contents.Modify(op.URL, func(c *ledgercore.Content) error {
		if op.JSONMetadata != "" {
			c.JSONMetadata = op.JSONMetadata
		}
		switch op.Side {
		case transactions.MasterSide:
			if len(op.NewDistributions) > 0 {
				c.DistributionsMaster = slices.Clone(op.NewDistributions)
			}
			if op.NewManagement != nil {
				c.ManagementMaster = op.NewManagement.Clone()
			}
		case transactions.CompositionSide:
			if len(op.NewDistributions) > 0 {
				c.DistributionsComp = slices.Clone(op.NewDistributions)
			}
			if op.NewManagement != nil {
				c.ManagementComp = op.NewManagement.Clone()
			}
		}
		if op.NewPlayingReward != nil {
			c.PlayingReward = *op.NewPlayingReward
		}
		if op.NewPublishersShare != nil {
			c.PublishersShare = *op.NewPublishersShare
		}
		c.LastUpdate = now
		return nil
	})
}

// ContentDisable stops a content from receiving reports.
func ContentDisable(st *chainstate.State, op *transactions.ContentDisableOp) error {
	t := protocol.ContentDisableOp
	c, ok := st.Contents.Get(op.URL)
	if !ok {
		return ledgercore.Assertf(t, "content %s does not exist", op.URL)
	}
	if c.Disabled {
		return ledgercore.Assertf(t, "content %s is already disabled", op.URL)
	}
	return st.Contents.Modify(op.URL, func(c *ledgercore.Content) error {
		c.Disabled = true
		c.LastUpdate = st.HeadBlockTime()
		return nil
	})
}

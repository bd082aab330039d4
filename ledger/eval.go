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

package ledger

import (
	"context"
	"fmt"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions/verify"
	"github.com/algorand/go-muse/ledger/apply"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/ledger/rewards"
	"github.com/algorand/go-muse/ledger/schedule"
	"github.com/algorand/go-muse/ledger/store"
)

func headerError(blk bookkeeping.Block, format string, args ...interface{}) error {
	return ledgercore.BlockHeaderError{Num: blk.Num(), Reason: fmt.Sprintf(format, args...)}
}

// applyBlock runs blk against the head state. With undo set the block gets
// its own undo state, left on the stack on success; the caller commits it
// once the block is irreversible. On error the state is as before.
func (c *Chain) applyBlock(blk bookkeeping.Block, policy config.ValidationPolicy, undo bool) error {
	session := c.st.DB.StartUndoSession(undo)
	defer session.Undo()

	if err := c.evalBlock(blk, policy); err != nil {
		return err
	}
	session.Push()

	blocksApplied.Inc()
	txnsApplied.AddUint64(uint64(len(blk.Transactions)))
	c.notifyChanges()
	for _, fn := range c.blockHooks {
		fn(blk)
	}
	return nil
}

func (c *Chain) evalBlock(blk bookkeeping.Block, policy config.ValidationPolicy) error {
	st := c.st
	signer, err := c.validateHeader(blk, policy)
	if err != nil {
		return err
	}

	size := blk.Size()
	if !policy.SkipBlockSizeCheck && size > int(st.DGP().MaximumBlockSize) {
		return headerError(blk, "size %d exceeds the maximum of %d", size, st.DGP().MaximumBlockSize)
	}
	if !policy.SkipMerkleCheck {
		if root := blk.CalculateMerkleRoot(); root != blk.TransactionMerkleRoot {
			return headerError(blk, "transaction merkle root %v does not match %v", blk.TransactionMerkleRoot, root)
		}
	}

	if err := c.processHeaderExtensions(blk, signer); err != nil {
		return err
	}

	if !policy.SkipTransactionSignatures {
		if err := verify.CheckSignatures(context.Background(), blk.Transactions, c.chainID); err != nil {
			return fmt.Errorf("block %d: %w", blk.Num(), err)
		}
	}
	// Signatures were checked for the whole block at once above.
	txPolicy := policy
	txPolicy.SkipTransactionSignatures = true
	for i, stx := range blk.Transactions {
		if err := c.applyTransactionSession(stx, txPolicy); err != nil {
			return fmt.Errorf("block %d transaction %d: %w", blk.Num(), i, err)
		}
	}

	if err := c.updateGlobalDynamicData(blk, size, policy); err != nil {
		return err
	}
	schedule.UpdateSigningWitness(st, blk.Witness, blk.Num())
	schedule.UpdateLastIrreversibleBlock(st)
	st.BlockSummaries.Put(uint16(blk.Num()), ledgercore.BlockSummary{BlockID: crypto.Digest(blk.ID())})

	return c.runMaintenance(blk, policy)
}

// validateHeader checks linkage, time, signer and schedule, and returns
// the signing witness.
func (c *Chain) validateHeader(blk bookkeeping.Block, policy config.ValidationPolicy) (ledgercore.Witness, error) {
	st := c.st
	d := st.DGP()
	if blk.Previous != bookkeeping.BlockID(d.HeadBlockID) {
		return ledgercore.Witness{}, headerError(blk, "previous block %v is not the head %v", blk.Previous, bookkeeping.BlockID(d.HeadBlockID))
	}
	if blk.Timestamp <= d.Time {
		return ledgercore.Witness{}, headerError(blk, "timestamp %v is not after the head block time %v", blk.Timestamp, d.Time)
	}
	w, ok := st.Witnesses.Get(blk.Witness)
	if !ok {
		return w, headerError(blk, "witness %s does not exist", blk.Witness)
	}
	if !policy.SkipWitnessSignature && !blk.ValidateSignee(w.SigningKey) {
		return w, headerError(blk, "signature does not match the signing key of %s", blk.Witness)
	}
	if !policy.SkipWitnessScheduleCheck {
		slot := schedule.SlotAtTime(st, blk.Timestamp)
		if slot == 0 {
			return w, headerError(blk, "timestamp %v is in the slot of the head block", blk.Timestamp)
		}
		if scheduled := schedule.ScheduledWitness(st, slot); scheduled != blk.Witness {
			return w, headerError(blk, "witness %s produced in the slot of %s", blk.Witness, scheduled)
		}
	}
	return w, nil
}

// processHeaderExtensions records the version and hardfork vote the
// signing witness announces.
func (c *Chain) processHeaderExtensions(blk bookkeeping.Block, signer ledgercore.Witness) error {
	if err := blk.ValidateExtensions(); err != nil {
		return headerError(blk, "%v", err)
	}
	if len(blk.Extensions) == 0 {
		return nil
	}
	return c.st.Witnesses.Modify(signer.Owner, func(w *ledgercore.Witness) error {
		for _, ext := range blk.Extensions {
			switch ext.Type {
			case bookkeeping.VersionExtension:
				w.RunningVersion = ext.Version
			case bookkeeping.HardforkVoteExtension:
				w.HardforkVersionVote = ext.Version
				w.HardforkTimeVote = ext.HardforkTime
			}
		}
		return nil
	})
}

// updateGlobalDynamicData charges missed slots, advances the head and the
// absolute slot, and re-tunes the reserve ratio.
func (c *Chain) updateGlobalDynamicData(blk bookkeeping.Block, size int, policy config.ValidationPolicy) error {
	st := c.st
	p := st.Params
	missed := schedule.ProcessMissedSlots(st, blk.Timestamp, blk.Witness)

	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		// Past 128 shifts every bit of the window is known.
		for i := uint64(0); i <= min(missed, 128); i++ {
			filled, out := d.RecentSlotsFilled.ShiftIn(i == 0)
			if out {
				d.ParticipationCount--
			}
			if i == 0 {
				d.ParticipationCount++
			}
			d.RecentSlotsFilled = filled
		}

		d.HeadBlockNumber = blk.Num()
		d.HeadBlockID = crypto.Digest(blk.ID())
		d.Time = blk.Timestamp
		d.CurrentWitness = blk.Witness
		d.CurrentAslot += missed + 1

		d.AverageBlockSize = uint32((99*uint64(d.AverageBlockSize) + uint64(size)) / 100)
		if d.HeadBlockNumber%p.ReserveRatioCheckBlocks == 0 {
			if d.AverageBlockSize > d.MaximumBlockSize/4 {
				d.CurrentReserveRatio = max(d.CurrentReserveRatio/2, 1)
			} else {
				d.CurrentReserveRatio = min(d.CurrentReserveRatio+1, uint64(p.MaxReserveRatio))
			}
		}
		d.MaxVirtualBandwidth = chainstate.MaxVirtualBandwidth(p, d.MaximumBlockSize, d.CurrentReserveRatio)
	})

	if !policy.SkipUndoHistoryCheck {
		d := st.DGP()
		if err := store.CheckUndoHistory(d.HeadBlockNumber, d.LastIrreversibleBlockNum, c.cfg.MaxUndoHistory); err != nil {
			return fmt.Errorf("block %d: %w", blk.Num(), err)
		}
	}
	return nil
}

// runMaintenance runs the per-block sweeps after the transactions, in
// consensus order.
func (c *Chain) runMaintenance(blk bookkeeping.Block, policy config.ValidationPolicy) error {
	st := c.st
	apply.ClearExpiredTransactions(st)
	if err := apply.ClearExpiredOrders(st); err != nil {
		return err
	}
	apply.ClearExpiredProposals(st)

	schedule.UpdateWitnessSchedule(st)
	schedule.UpdateMedianFeed(st)

	if err := rewards.ProcessFunds(st); err != nil {
		return err
	}
	if err := apply.ProcessConversions(st); err != nil {
		return err
	}
	if err := rewards.ProcessContentCashout(st); err != nil {
		return err
	}
	if err := apply.ProcessVestingWithdrawals(st); err != nil {
		return err
	}
	apply.AccountRecoveryProcessing(st)
	if err := apply.ClearExpiredDelegations(st); err != nil {
		return err
	}
	schedule.ProcessHardforks(st)

	if !policy.SkipValidateInvariants && c.cfg.ValidateInvariantsEveryBlock {
		if err := c.validateInvariants(); err != nil {
			c.log.Errorf("block %d failed the invariant audit: %v", blk.Num(), err)
			return err
		}
	}
	return nil
}

// archiveIrreversible appends newly irreversible blocks to the block log,
// commits their undo states and shrinks the fork database to the
// reversible range.
func (c *Chain) archiveIrreversible() error {
	d := c.st.DGP()
	lib := d.LastIrreversibleBlockNum
	last, err := c.blocks.LastID()
	if err != nil {
		return err
	}
	for num := last.Num() + 1; num <= lib; num++ {
		blk, err := c.fetchOnMainBranch(num)
		if err != nil {
			return fmt.Errorf("irreversible block %d is not on the current branch: %w", num, err)
		}
		if err := c.blocks.Append(blk); err != nil {
			return err
		}
	}
	c.st.DB.Commit(int64(lib))
	c.forks.SetMaxSize(d.HeadBlockNumber - lib + 1)
	irreversibleLib.Set(uint64(lib))
	return nil
}

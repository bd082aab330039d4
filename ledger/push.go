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
	"fmt"
	"slices"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/forkdb"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/ledger/schedule"
)

// PushBlock applies blk on top of the head, or records it and switches to
// its branch once that branch is longer than the current one. It reports
// whether the chain switched forks. Pending transactions are re-applied on
// top of the new head; those that no longer apply are dropped.
func (c *Chain) PushBlock(blk bookkeeping.Block, policy config.ValidationPolicy) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return false, err
	}

	pending := c.clearPending()
	switched, popped, err := c.pushBlock(blk, policy)
	if err != nil {
		blocksRejected.Inc()
		c.log.Infof("rejected %v: %v", blk, err)
	}
	c.restorePending(slices.Concat(popped, pending))
	c.publishHead()
	return switched, err
}

// pushBlock returns the transactions of blocks popped by a fork switch.
func (c *Chain) pushBlock(blk bookkeeping.Block, policy config.ValidationPolicy) (switched bool, popped []transactions.SignedTransaction, err error) {
	if !policy.SkipForkDB {
		newHead, err := c.forks.Push(blk)
		if err != nil {
			return false, nil, err
		}
		head := bookkeeping.BlockID(c.st.DGP().HeadBlockID)
		if newHead.Previous() != head {
			if newHead.Num <= c.st.HeadBlockNum() {
				// A competing block that does not make its branch longer.
				c.log.Debugf("recorded %v on a side branch", blk)
				return false, nil, nil
			}
			popped, err = c.switchForks(newHead, policy)
			return err == nil, popped, err
		}
	}

	if err := c.applyBlock(blk, policy, true); err != nil {
		if !policy.SkipForkDB {
			c.forks.Remove(blk.ID())
			c.resetForkHead()
		}
		return false, nil, err
	}
	if !policy.SkipForkDB {
		if err := c.archiveIrreversible(); err != nil {
			return false, nil, err
		}
	}
	return false, nil, nil
}

// resetForkHead points the fork database back at the head of the state.
func (c *Chain) resetForkHead() {
	if it, ok := c.forks.FetchBlock(bookkeeping.BlockID(c.st.DGP().HeadBlockID)); ok {
		c.forks.SetHead(it)
	}
}

// switchForks pops back to the common ancestor of the head and newHead and
// applies newHead's branch under the caller's policy. If a block of the
// new branch fails, it and its descendants are dropped and the old branch
// is restored; the switch then has no visible effect.
func (c *Chain) switchForks(newHead *forkdb.Item, policy config.ValidationPolicy) ([]transactions.SignedTransaction, error) {
	oldHead := bookkeeping.BlockID(c.st.DGP().HeadBlockID)
	newBranch, oldBranch, err := c.forks.FetchBranchFrom(newHead.ID, oldHead)
	if err != nil {
		c.resetForkHead()
		return nil, err
	}
	ancestor := newBranch[len(newBranch)-1].Previous()
	if lib := c.st.DGP().LastIrreversibleBlockNum; ancestor.Num() < lib {
		for _, it := range newBranch {
			c.forks.Remove(it.ID)
		}
		c.resetForkHead()
		return nil, fmt.Errorf("fork at %v branches off below the last irreversible block %d", newHead.ID, lib)
	}
	c.log.Warnf("switching from %v to the fork at %v, common ancestor %d", oldHead, newHead.ID, ancestor.Num())
	forkSwitches.Inc()

	var popped []transactions.SignedTransaction
	for bookkeeping.BlockID(c.st.DGP().HeadBlockID) != ancestor {
		txns, err := c.popBlock()
		if err != nil {
			c.irrecoverable = true
			return nil, fmt.Errorf("%w: %v", ErrIrrecoverable, err)
		}
		popped = slices.Concat(txns, popped)
	}

	for i := len(newBranch) - 1; i >= 0; i-- {
		it := newBranch[i]
		applyErr := c.applyBlock(it.Block, policy, true)
		if applyErr == nil {
			continue
		}

		c.log.Warnf("fork switch failed at %v: %v", it.Block, applyErr)
		for j := i; j >= 0; j-- {
			c.forks.Remove(newBranch[j].ID)
		}
		for bookkeeping.BlockID(c.st.DGP().HeadBlockID) != ancestor {
			if _, err := c.popBlock(); err != nil {
				c.irrecoverable = true
				return nil, fmt.Errorf("%w: %v", ErrIrrecoverable, err)
			}
		}
		for k := len(oldBranch) - 1; k >= 0; k-- {
			if err := c.applyBlock(oldBranch[k].Block, policy, true); err != nil {
				c.irrecoverable = true
				return nil, fmt.Errorf("%w: restoring %v: %v", ErrIrrecoverable, oldBranch[k].Block, err)
			}
		}
		c.resetForkHead()
		return nil, applyErr
	}

	c.forks.SetHead(newHead)
	if err := c.archiveIrreversible(); err != nil {
		return nil, err
	}
	return popped, nil
}

// PopBlock removes the head block, returning its transactions to the
// pending list.
func (c *Chain) PopBlock() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return err
	}
	pending := c.clearPending()
	txns, err := c.popBlock()
	if err == nil {
		if _, ferr := c.forks.PopBlock(); ferr != nil {
			c.log.Debugf("fork database head not moved: %v", ferr)
		}
	}
	c.restorePending(slices.Concat(txns, pending))
	c.publishHead()
	return err
}

// popBlock undoes the head block's undo state. It does not move the fork
// database head.
func (c *Chain) popBlock() ([]transactions.SignedTransaction, error) {
	head := bookkeeping.BlockID(c.st.DGP().HeadBlockID)
	if head.IsZero() {
		return nil, fmt.Errorf("cannot pop the genesis state")
	}
	if head.Num() <= c.st.DGP().LastIrreversibleBlockNum {
		return nil, fmt.Errorf("cannot pop irreversible block %d", head.Num())
	}
	it, ok := c.forks.FetchBlock(head)
	if !ok {
		return nil, forkdb.UnknownBlockError{ID: head}
	}
	if err := c.st.DB.Undo(); err != nil {
		return nil, err
	}
	c.st.DB.TakeChanges()
	return it.Block.Transactions, nil
}

// PushTransaction applies stx to the pending state. The transaction is
// kept for the next generated block only if it applies.
func (c *Chain) PushTransaction(stx transactions.SignedTransaction, policy config.ValidationPolicy) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return err
	}
	if c.pendingSession == nil {
		c.pendingSession = c.st.DB.StartUndoSession(true)
	}
	if err := c.applyTransactionSession(stx, policy); err != nil {
		txnsRejected.Inc()
		return err
	}
	c.pending = append(c.pending, stx)
	c.notifyChanges()
	return nil
}

// clearPending undoes the pending state and hands back the pending
// transactions.
func (c *Chain) clearPending() []transactions.SignedTransaction {
	if c.pendingSession != nil {
		c.pendingSession.Undo()
		c.pendingSession = nil
		c.st.DB.TakeChanges()
	}
	pending := c.pending
	c.pending = nil
	return pending
}

// restorePending re-applies txns on top of the head, dropping the ones
// that no longer apply.
func (c *Chain) restorePending(txns []transactions.SignedTransaction) {
	if len(txns) == 0 || c.irrecoverable {
		return
	}
	c.pendingSession = c.st.DB.StartUndoSession(true)
	policy := c.cfg.DefaultPolicy
	for _, stx := range txns {
		if err := c.applyTransactionSession(stx, policy); err != nil {
			c.log.Debugf("dropping pending transaction %v: %v", stx.ID(), err)
			continue
		}
		c.pending = append(c.pending, stx)
	}
	c.st.DB.TakeChanges()
}

// GenerateBlock builds a block for the slot at when from the pending
// transactions that still apply, up to the maximum block size, signs it
// with secrets, and pushes it.
func (c *Chain) GenerateBlock(when basics.Timestamp, witness basics.AccountName, secrets *crypto.SignatureSecrets, policy config.ValidationPolicy) (bookkeeping.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return bookkeeping.Block{}, err
	}
	st := c.st

	slot := schedule.SlotAtTime(st, when)
	if slot == 0 {
		return bookkeeping.Block{}, fmt.Errorf("time %v is not after the head block slot", when)
	}
	if scheduled := schedule.ScheduledWitness(st, slot); scheduled != witness {
		return bookkeeping.Block{}, fmt.Errorf("slot at %v belongs to %s, not %s", when, scheduled, witness)
	}
	w, ok := st.Witnesses.Get(witness)
	if !ok {
		return bookkeeping.Block{}, fmt.Errorf("witness %s does not exist", witness)
	}
	if w.SigningKey != secrets.SignatureVerifier {
		return bookkeeping.Block{}, fmt.Errorf("key does not match the signing key of %s", witness)
	}

	pending := c.clearPending()
	blk := bookkeeping.Block{
		BlockHeader: bookkeeping.BlockHeader{
			Previous:  bookkeeping.BlockID(st.DGP().HeadBlockID),
			Timestamp: when,
			Witness:   witness,
		},
	}
	blk.Extensions = c.headerExtensions(w, when)

	maxSize := int(st.DGP().MaximumBlockSize)
	total := blk.Size()
	postponed := 0
	session := st.DB.StartUndoSession(true)
	for _, stx := range pending {
		if stx.Txn.Expiration < when {
			continue
		}
		size := stx.Size()
		if total+size >= maxSize {
			postponed++
			continue
		}
		if err := c.applyTransactionSession(stx, policy); err != nil {
			c.log.Debugf("leaving transaction %v out of the block: %v", stx.ID(), err)
			continue
		}
		total += size
		blk.Transactions = append(blk.Transactions, stx)
	}
	session.Undo()
	st.DB.TakeChanges()
	if postponed > 0 {
		c.log.Infof("postponed %d transactions that did not fit block %d", postponed, blk.Num())
	}

	blk.TransactionMerkleRoot = blk.CalculateMerkleRoot()
	blk.Sign(secrets)

	_, _, err := c.pushBlock(blk, config.GenerationPolicy(policy))
	if err != nil {
		blocksRejected.Inc()
	}
	c.restorePending(pending)
	c.publishHead()
	if err != nil {
		return bookkeeping.Block{}, err
	}
	return blk, nil
}

// headerExtensions announces the software version when the witness has
// not yet, and votes for the next hardfork this software knows.
func (c *Chain) headerExtensions(w ledgercore.Witness, when basics.Timestamp) []bookkeeping.Extension {
	var exts []bookkeeping.Extension
	if w.RunningVersion != config.SoftwareVersion {
		exts = append(exts, bookkeeping.MakeVersionExtension(config.SoftwareVersion))
	}
	h := c.st.HardforkProperties()
	if int(h.LastHardfork) < config.NumHardforks {
		next := int(h.LastHardfork) + 1
		t := when
		if next <= len(h.GenesisSchedule) {
			t = h.GenesisSchedule[next-1]
		}
		if w.HardforkVersionVote != config.HardforkVersions[next] || w.HardforkTimeVote != t {
			exts = append(exts, bookkeeping.MakeHardforkVoteExtension(config.HardforkVersions[next], t))
		}
	}
	return exts
}

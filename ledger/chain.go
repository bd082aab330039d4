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

// Package ledger drives the chain state: it applies blocks and pending
// transactions, switches forks, archives irreversible blocks, and audits
// the supply invariants.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/algorand/go-deadlock"
	"github.com/gofrs/flock"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/forkdb"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/ledger/schedule"
	"github.com/algorand/go-muse/ledger/store"
	"github.com/algorand/go-muse/ledger/store/blockdb"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/util/metrics"
)

// ErrIrrecoverable is returned once a fork switch failed to restore the
// previous branch. The state is unknown and the chain refuses further work.
var ErrIrrecoverable = errors.New("chain state is irrecoverable")

// ErrClosed is returned by a chain after Close.
var ErrClosed = errors.New("chain is closed")

const lockFilename = "muse.lock"

var (
	blocksApplied   = metrics.MakeCounter(metrics.LedgerBlocksApplied)
	txnsApplied     = metrics.MakeCounter(metrics.LedgerTransactionsApplied)
	txnsRejected    = metrics.MakeCounter(metrics.LedgerTransactionsRejected)
	blocksRejected  = metrics.MakeCounter(metrics.LedgerBlocksRejected)
	forkSwitches    = metrics.MakeCounter(metrics.LedgerForkSwitches)
	headBlockGauge  = metrics.MakeGauge(metrics.LedgerHeadBlock)
	irreversibleLib = metrics.MakeGauge(metrics.LedgerIrreversibleBlock)
)

// ChangeHook receives the ids of the rows changed and removed by a
// committed transaction or block.
type ChangeHook func(changed, removed []store.ObjectID)

// BlockHook receives every block once it has been applied.
type BlockHook func(blk bookkeeping.Block)

// Chain is the single writer of a chain state. All of its methods are safe
// for concurrent use; they are serialized on one mutex.
type Chain struct {
	mu deadlock.Mutex

	st      *chainstate.State
	genesis bookkeeping.Genesis
	chainID crypto.Digest
	cfg     config.Local
	log     logging.Logger

	blocks blockdb.BlockLog
	forks  *forkdb.ForkDB
	lock   *flock.Flock

	// pending transactions are applied on top of the head inside
	// pendingSession, which is discarded whenever the head changes.
	pending        []transactions.SignedTransaction
	pendingSession *store.Session

	changeHooks []ChangeHook
	blockHooks  []BlockHook

	irrecoverable bool
	closed        bool
}

// Open locks dataDir, opens its block log, and builds the chain state:
// from genesis for an empty log, by replaying the log otherwise.
func Open(dataDir string, genesis bookkeeping.Genesis, cfg config.Local, log logging.Logger) (c *Chain, err error) {
	if err = genesis.Validate(); err != nil {
		return nil, fmt.Errorf("ledger.Open: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ledger.Open: %w", err)
	}
	if err = os.MkdirAll(dataDir, 0700); err != nil {
		return nil, err
	}

	c = &Chain{
		genesis: genesis,
		chainID: genesis.ChainID(),
		cfg:     cfg,
		log:     log,
		forks:   forkdb.MakeForkDB(cfg.ForkDBSize, log),
	}
	c.lock = flock.New(filepath.Join(dataDir, lockFilename))
	locked, err := c.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("ledger.Open: cannot lock %s: %w", dataDir, err)
	}
	if !locked {
		return nil, fmt.Errorf("ledger.Open: data directory %s is in use", dataDir)
	}
	defer func() {
		if err != nil {
			c.closeLocked()
		}
	}()

	c.blocks, err = blockdb.Open(cfg.BlockLogBackend, dataDir, false, log)
	if err != nil {
		return nil, fmt.Errorf("ledger.Open: %w", err)
	}

	c.st = chainstate.New(config.Consensus, log)
	if err = c.st.InitGenesis(genesis); err != nil {
		return nil, fmt.Errorf("ledger.Open: %w", err)
	}
	if err = c.replay(); err != nil {
		return nil, fmt.Errorf("ledger.Open: %w", err)
	}
	c.publishHead()
	return c, nil
}

// replay reapplies every block of the block log without undo states.
func (c *Chain) replay() error {
	last, err := c.blocks.LastID()
	if err != nil {
		return err
	}
	if last.IsZero() {
		return nil
	}
	policy := config.ReplayPolicy()
	c.log.Infof("replaying %d blocks from the block log", last.Num())
	var head bookkeeping.Block
	for num := uint32(1); num <= last.Num(); num++ {
		head, err = c.blocks.FetchByNumber(num)
		if err != nil {
			return err
		}
		if err = c.applyBlock(head, policy, false); err != nil {
			return fmt.Errorf("replay of block %d: %w", num, err)
		}
		if num%10000 == 0 {
			c.log.Infof("replayed %d of %d blocks", num, last.Num())
		}
	}
	if err = c.st.DB.SetRevision(int64(head.Num())); err != nil {
		return err
	}
	c.forks.Reset(head)
	c.st.DB.TakeChanges()
	return nil
}

// Close discards pending transactions, closes the block log and unlocks
// the data directory.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.clearPending()
	return c.closeLocked()
}

func (c *Chain) closeLocked() error {
	c.closed = true
	var err error
	if c.blocks != nil {
		err = c.blocks.Close()
	}
	if c.lock != nil {
		if uerr := c.lock.Unlock(); err == nil {
			err = uerr
		}
	}
	return err
}

func (c *Chain) usable() error {
	if c.closed {
		return ErrClosed
	}
	if c.irrecoverable {
		return ErrIrrecoverable
	}
	return nil
}

// RegisterChangeHook adds fn to the hooks run after every committed
// transaction or block.
func (c *Chain) RegisterChangeHook(fn ChangeHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changeHooks = append(c.changeHooks, fn)
}

// RegisterBlockHook adds fn to the hooks run after every applied block.
func (c *Chain) RegisterBlockHook(fn BlockHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockHooks = append(c.blockHooks, fn)
}

func (c *Chain) notifyChanges() {
	changed, removed := c.st.DB.TakeChanges()
	if len(changed) == 0 && len(removed) == 0 {
		return
	}
	for _, fn := range c.changeHooks {
		fn(changed, removed)
	}
}

func (c *Chain) publishHead() {
	d := c.st.DGP()
	headBlockGauge.Set(uint64(d.HeadBlockNumber))
	irreversibleLib.Set(uint64(d.LastIrreversibleBlockNum))
}

// ChainID is the id signatures on this chain are bound to.
func (c *Chain) ChainID() crypto.Digest {
	return c.chainID
}

// State returns the chain state. Callers must not use it concurrently
// with the chain.
func (c *Chain) State() *chainstate.State {
	return c.st
}

// HeadBlockNum is the number of the head block.
func (c *Chain) HeadBlockNum() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.HeadBlockNum()
}

// HeadBlockID is the id of the head block, zero at genesis.
func (c *Chain) HeadBlockID() bookkeeping.BlockID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bookkeeping.BlockID(c.st.DGP().HeadBlockID)
}

// HeadBlockTime is the timestamp of the head block.
func (c *Chain) HeadBlockTime() basics.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.HeadBlockTime()
}

// LastIrreversibleBlockNum is the newest block that can no longer be
// undone.
func (c *Chain) LastIrreversibleBlockNum() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.DGP().LastIrreversibleBlockNum
}

// DGP returns the dynamic global properties.
func (c *Chain) DGP() ledgercore.DynamicGlobalProperties {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.DGP()
}

// Account looks up an account, pending transactions included.
func (c *Chain) Account(name basics.AccountName) (ledgercore.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Accounts.Get(name)
}

// Witness looks up a witness.
func (c *Chain) Witness(name basics.AccountName) (ledgercore.Witness, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Witnesses.Get(name)
}

// ScheduledWitness returns the witness of the slot-th slot after the head
// block.
func (c *Chain) ScheduledWitness(slot uint64) basics.AccountName {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schedule.ScheduledWitness(c.st, slot)
}

// SlotTime returns the time of the slot-th slot after the head block.
func (c *Chain) SlotTime(slot uint64) basics.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schedule.SlotTime(c.st, slot)
}

// PendingTransactions returns the transactions waiting for a block.
func (c *Chain) PendingTransactions() []transactions.SignedTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transactions.SignedTransaction(nil), c.pending...)
}

// FetchBlockByNumber returns the block at num on the current branch.
func (c *Chain) FetchBlockByNumber(num uint32) (bookkeeping.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchOnMainBranch(num)
}

// FetchBlockByID returns a known block, reversible or not.
func (c *Chain) FetchBlockByID(id bookkeeping.BlockID) (bookkeeping.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.forks.FetchBlock(id); ok {
		return it.Block, nil
	}
	return c.blocks.FetchByID(id)
}

// fetchOnMainBranch looks num up on the branch ending at the head of the
// state, falling back to the block log for irreversible blocks.
func (c *Chain) fetchOnMainBranch(num uint32) (bookkeeping.Block, error) {
	head := bookkeeping.BlockID(c.st.DGP().HeadBlockID)
	if num > head.Num() {
		return bookkeeping.Block{}, blockdb.ErrNoEntry{Num: num}
	}
	for id := head; !id.IsZero() && id.Num() >= num; {
		it, ok := c.forks.FetchBlock(id)
		if !ok {
			break
		}
		if it.Num == num {
			return it.Block, nil
		}
		id = it.Previous()
	}
	return c.blocks.FetchByNumber(num)
}

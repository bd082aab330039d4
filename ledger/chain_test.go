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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/ledger/ledgertest"
	"github.com/algorand/go-muse/ledger/store"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/test/partitiontest"
)

func TestOpenGenesis(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir())
	require.Zero(t, c.HeadBlockNum())
	require.True(t, c.HeadBlockID().IsZero())
	require.Equal(t, ledgertest.GenesisTime, c.HeadBlockTime())
	require.Equal(t, ledgertest.Genesis().ChainID(), c.ChainID())
	require.NoError(t, c.ValidateInvariants())

	_, err := c.FetchBlockByNumber(1)
	require.Error(t, err)
}

func TestOpenLocksDataDir(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	c := openTestChain(t, dir)
	_, err := Open(dir, ledgertest.Genesis(), ledgertest.Config(), logging.TestingLog(t))
	require.ErrorContains(t, err, "in use")

	require.NoError(t, c.Close())
	c2, err := Open(dir, ledgertest.Genesis(), ledgertest.Config(), logging.TestingLog(t))
	require.NoError(t, err)
	require.NoError(t, c2.Close())

	require.ErrorIs(t, c.PopBlock(), ErrClosed)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	partitiontest.PartitionTest(t)

	cfg := ledgertest.Config()
	cfg.BlockLogBackend = "tape"
	_, err := Open(t.TempDir(), ledgertest.Genesis(), cfg, logging.TestingLog(t))
	require.Error(t, err)

	g := ledgertest.Genesis()
	g.Witnesses = nil
	_, err = Open(t.TempDir(), g, ledgertest.Config(), logging.TestingLog(t))
	require.Error(t, err)
}

func TestGenerateBlocks(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir())
	blocks := produce(t, c, 12)

	require.Equal(t, uint32(12), c.HeadBlockNum())
	require.Equal(t, blocks[11].ID(), c.HeadBlockID())
	require.Equal(t, blocks[11].Timestamp, c.HeadBlockTime())
	for i, blk := range blocks {
		require.Equal(t, uint32(i+1), blk.Num())
		got, err := c.FetchBlockByNumber(blk.Num())
		require.NoError(t, err)
		require.Equal(t, blk.ID(), got.ID())
	}

	lib := c.LastIrreversibleBlockNum()
	require.NotZero(t, lib)
	require.Less(t, lib, c.HeadBlockNum())
	last, err := c.blocks.LastID()
	require.NoError(t, err)
	require.Equal(t, lib, last.Num())

	// Every witness produced, so none missed a slot.
	for _, name := range ledgertest.Witnesses {
		w, ok := c.Witness(name)
		require.True(t, ok)
		require.Zero(t, w.TotalMissed, "witness %s", name)
		require.Equal(t, config.SoftwareVersion, w.RunningVersion)
	}
	require.NoError(t, c.ValidateInvariants())
}

func TestGenerateBlockChecksWitness(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir())
	when := c.SlotTime(1)
	scheduled := c.ScheduledWitness(1)
	for _, name := range ledgertest.Witnesses {
		if name == scheduled {
			continue
		}
		_, err := c.GenerateBlock(when, name, ledgertest.Secrets(name), config.ValidationPolicy{})
		require.Error(t, err)
	}
	_, err := c.GenerateBlock(when, scheduled, crypto.SecretsFromPassphrase("not the key"), config.ValidationPolicy{})
	require.Error(t, err)
	_, err = c.GenerateBlock(c.HeadBlockTime(), scheduled, ledgertest.Secrets(scheduled), config.ValidationPolicy{})
	require.Error(t, err)
	require.Zero(t, c.HeadBlockNum())
}

func TestMissedSlots(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir())
	produce(t, c, 3)
	skipped := c.ScheduledWitness(1)
	blk := produceAt(t, c, 2)
	require.NotEqual(t, skipped, blk.Witness)

	w, ok := c.Witness(skipped)
	require.True(t, ok)
	require.Equal(t, uint32(1), w.TotalMissed)
	d := c.DGP()
	require.Equal(t, uint64(5), d.CurrentAslot)
	require.Equal(t, uint8(127), d.ParticipationCount)
}

func TestPushBlockFromPeer(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := openTestChain(t, t.TempDir())
	b := openTestChain(t, t.TempDir())
	blocks := produce(t, a, 8)
	pushAll(t, b, blocks)

	require.Equal(t, a.HeadBlockID(), b.HeadBlockID())
	require.Equal(t, a.LastIrreversibleBlockNum(), b.LastIrreversibleBlockNum())
	require.Empty(t, cmp.Diff(a.State().DB.SnapshotDigest(), b.State().DB.SnapshotDigest()))

	// A known block is ignored.
	switched, err := b.PushBlock(blocks[7], config.ValidationPolicy{})
	require.NoError(t, err)
	require.False(t, switched)
	require.Equal(t, a.HeadBlockID(), b.HeadBlockID())
}

func TestPushBlockRejects(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := openTestChain(t, t.TempDir())
	b := openTestChain(t, t.TempDir())
	blk := produce(t, a, 1)[0]

	tampered := blk
	tampered.Timestamp = tampered.Timestamp.Add(1)
	_, err := b.PushBlock(tampered, config.ValidationPolicy{})
	require.Error(t, err)

	badRoot := blk
	badRoot.TransactionMerkleRoot = crypto.Digest{1}
	badRoot.Sign(ledgertest.Secrets(blk.Witness))
	_, err = b.PushBlock(badRoot, config.ValidationPolicy{})
	require.Error(t, err)

	forged := blk
	forged.Sign(crypto.SecretsFromPassphrase("forger"))
	_, err = b.PushBlock(forged, config.ValidationPolicy{})
	require.Error(t, err)
	require.Zero(t, b.HeadBlockNum())
	_, err = b.FetchBlockByID(forged.ID())
	require.Error(t, err)

	orphan := produce(t, a, 1)[0]
	_, err = b.PushBlock(orphan, config.ValidationPolicy{})
	require.Error(t, err)

	_, err = b.PushBlock(blk, config.ValidationPolicy{})
	require.NoError(t, err)
	require.Equal(t, blk.ID(), b.HeadBlockID())
}

func TestPopBlockRestoresState(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir())
	produce(t, c, 3)
	before := c.State().DB.Snapshot()
	head := c.HeadBlockID()

	produce(t, c, 1)
	require.NotEqual(t, head, c.HeadBlockID())
	require.NoError(t, c.PopBlock())
	require.Equal(t, head, c.HeadBlockID())
	require.Empty(t, cmp.Diff(before, c.State().DB.Snapshot()))

	// The same block can be produced again after the pop.
	produce(t, c, 2)
	require.Equal(t, uint32(5), c.HeadBlockNum())
}

func TestPopBlockReturnsTransactions(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir(), "dave")
	produce(t, c, 2)
	stx := ledgertest.Transfer(c.ChainID(), headRef(c), "alice", "dave", 100, "pop")
	require.NoError(t, c.PushTransaction(stx, config.ValidationPolicy{}))
	blk := produce(t, c, 1)[0]
	require.Len(t, blk.Transactions, 1)
	require.Empty(t, c.PendingTransactions())
	require.Equal(t, int64(1000100), balance(t, c, "dave"))

	require.NoError(t, c.PopBlock())
	pending := c.PendingTransactions()
	require.Len(t, pending, 1)
	require.Equal(t, stx.ID(), pending[0].ID())
	// The transaction is pending again, so its effect stays visible.
	require.Equal(t, int64(1000100), balance(t, c, "dave"))
}

func TestPopBlockStopsAtIrreversible(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir())
	produce(t, c, 10)
	lib := c.LastIrreversibleBlockNum()
	require.NotZero(t, lib)
	for c.HeadBlockNum() > lib {
		require.NoError(t, c.PopBlock())
	}
	require.Error(t, c.PopBlock())
	require.Equal(t, lib, c.HeadBlockNum())
}

func TestTransactionsInBlocks(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir(), "dave", "erin")
	produce(t, c, 2)

	ref := headRef(c)
	stxs := []transactions.SignedTransaction{
		ledgertest.Transfer(c.ChainID(), ref, "alice", "dave", 10, "one"),
		ledgertest.Transfer(c.ChainID(), ref, "bob", "dave", 20, "two"),
		ledgertest.Transfer(c.ChainID(), ref, "alice", "erin", 30, "three"),
	}
	for _, stx := range stxs {
		require.NoError(t, c.PushTransaction(stx, config.ValidationPolicy{}))
	}
	require.Len(t, c.PendingTransactions(), 3)

	blk := produce(t, c, 1)[0]
	require.Len(t, blk.Transactions, 3)
	for i, stx := range blk.Transactions {
		require.Equal(t, stxs[i].ID(), stx.ID())
	}
	require.Equal(t, int64(1000030), balance(t, c, "dave"))
	require.Equal(t, int64(1000030), balance(t, c, "erin"))

	// A peer accepts the block with full validation.
	peer := openTestChain(t, t.TempDir(), "dave", "erin")
	for n := uint32(1); n <= c.HeadBlockNum(); n++ {
		b, err := c.FetchBlockByNumber(n)
		require.NoError(t, err)
		pushAll(t, peer, []bookkeeping.Block{b})
	}
	require.Equal(t, int64(1000030), balance(t, peer, "dave"))
	require.Equal(t, c.State().DB.SnapshotDigest(), peer.State().DB.SnapshotDigest())
}

func TestExpiredPendingTransactionLeftOut(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir(), "dave")
	produce(t, c, 1)
	stx := ledgertest.Transfer(c.ChainID(), headRef(c), "alice", "dave", 10, "late")
	stx.Txn.Expiration = c.HeadBlockTime().Add(4)
	stx.Signatures = nil
	stx.Sign(c.ChainID(), ledgertest.Secrets("alice"))
	require.NoError(t, c.PushTransaction(stx, config.ValidationPolicy{}))

	// Two slots later the transaction has expired.
	blk := produceAt(t, c, 3)
	require.Empty(t, blk.Transactions)
	require.Empty(t, c.PendingTransactions())
	require.Equal(t, int64(1000000), balance(t, c, "dave"))
}

func TestHooks(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir(), "dave")
	var applied []uint32
	var changes int
	c.RegisterBlockHook(func(blk bookkeeping.Block) {
		applied = append(applied, blk.Num())
	})
	c.RegisterChangeHook(func(changed, removed []store.ObjectID) {
		require.NotEmpty(t, append(changed, removed...))
		changes++
	})

	produce(t, c, 2)
	require.Equal(t, []uint32{1, 2}, applied)
	require.Equal(t, 2, changes)

	stx := ledgertest.Transfer(c.ChainID(), headRef(c), "alice", "dave", 1, "hook")
	require.NoError(t, c.PushTransaction(stx, config.ValidationPolicy{}))
	require.Equal(t, 3, changes)
}

func TestInvariantAuditDetectsCorruption(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir())
	produce(t, c, 3)
	require.NoError(t, c.ValidateInvariants())

	c.State().Accounts.Modify("alice", func(a *ledgercore.Account) error {
		a.Balance++
		return nil
	})
	err := c.ValidateInvariants()
	require.ErrorAs(t, err, &ledgercore.InvariantError{})
	require.ErrorContains(t, err, "MUSE supply")

	// The audit runs after every block, so the next block is refused.
	when := c.SlotTime(1)
	w := c.ScheduledWitness(1)
	_, err = c.GenerateBlock(when, w, ledgertest.Secrets(w), config.ValidationPolicy{})
	require.ErrorAs(t, err, &ledgercore.InvariantError{})
	require.Equal(t, uint32(3), c.HeadBlockNum())
}

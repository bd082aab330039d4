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
	"github.com/algorand/go-muse/ledger/ledgertest"
	"github.com/algorand/go-muse/test/partitiontest"
)

func TestSwitchToLongerFork(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := openTestChain(t, t.TempDir(), "dave")
	b := openTestChain(t, t.TempDir(), "dave")
	common := produce(t, a, 5)
	pushAll(t, b, common)

	// b takes a transaction into its own block at a later slot.
	stx := ledgertest.Transfer(b.ChainID(), headRef(b), "alice", "dave", 500, "fork")
	require.NoError(t, b.PushTransaction(stx, config.ValidationPolicy{}))
	side := produceAt(t, b, 2)
	require.Len(t, side.Transactions, 1)
	require.Equal(t, int64(1000500), balance(t, b, "dave"))

	longer := produce(t, a, 2)
	switched, err := b.PushBlock(longer[0], config.ValidationPolicy{})
	require.NoError(t, err)
	require.False(t, switched)
	require.Equal(t, side.ID(), b.HeadBlockID())

	switched, err = b.PushBlock(longer[1], config.ValidationPolicy{})
	require.NoError(t, err)
	require.True(t, switched)
	require.Equal(t, a.HeadBlockID(), b.HeadBlockID())

	// The transaction of the abandoned block is pending again.
	pending := b.PendingTransactions()
	require.Len(t, pending, 1)
	require.Equal(t, stx.ID(), pending[0].ID())

	// Without pending transactions both chains hold the same state.
	b.mu.Lock()
	b.clearPending()
	b.mu.Unlock()
	require.Empty(t, cmp.Diff(a.State().DB.Snapshot(), b.State().DB.Snapshot()))
	require.NoError(t, b.ValidateInvariants())

	got, err := b.FetchBlockByNumber(6)
	require.NoError(t, err)
	require.Equal(t, longer[0].ID(), got.ID())
	// The side block is still known.
	_, err = b.FetchBlockByID(side.ID())
	require.NoError(t, err)
}

func TestBadForkReverts(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := openTestChain(t, t.TempDir())
	b := openTestChain(t, t.TempDir())
	common := produce(t, a, 5)
	pushAll(t, b, common)

	own := produce(t, b, 1)[0]
	before := b.State().DB.Snapshot()

	good := produceAt(t, a, 2)
	bad := produce(t, a, 1)[0]
	bad.TransactionMerkleRoot = crypto.Digest{7}
	bad.Sign(ledgertest.Secrets(bad.Witness))

	switched, err := b.PushBlock(good, config.ValidationPolicy{})
	require.NoError(t, err)
	require.False(t, switched)

	switched, err = b.PushBlock(bad, config.ValidationPolicy{})
	require.Error(t, err)
	require.False(t, switched)
	require.Equal(t, own.ID(), b.HeadBlockID())
	require.Empty(t, cmp.Diff(before, b.State().DB.Snapshot()))

	// The failed block is forgotten, its valid parent is kept.
	_, err = b.FetchBlockByID(bad.ID())
	require.Error(t, err)
	_, err = b.FetchBlockByID(good.ID())
	require.NoError(t, err)

	// The chain keeps working on its own branch.
	next := produce(t, b, 1)[0]
	require.Equal(t, own.ID(), next.Previous)
	require.NoError(t, b.ValidateInvariants())
}

func TestForkSwitchKeepsCallerPolicy(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := openTestChain(t, t.TempDir())
	b := openTestChain(t, t.TempDir())
	common := produce(t, a, 5)
	pushAll(t, b, common)
	produce(t, b, 1)

	good := produceAt(t, a, 2)
	unchecked := produce(t, a, 1)[0]
	unchecked.TransactionMerkleRoot = crypto.Digest{7}
	unchecked.Sign(ledgertest.Secrets(unchecked.Witness))

	trusted := config.ValidationPolicy{SkipMerkleCheck: true}
	switched, err := b.PushBlock(good, trusted)
	require.NoError(t, err)
	require.False(t, switched)

	switched, err = b.PushBlock(unchecked, trusted)
	require.NoError(t, err)
	require.True(t, switched)
	require.Equal(t, unchecked.ID(), b.HeadBlockID())
}

func TestForkBelowIrreversibleRejected(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := openTestChain(t, t.TempDir())
	b := openTestChain(t, t.TempDir())
	common := produce(t, a, 2)
	pushAll(t, b, common)

	produce(t, b, 12)
	lib := b.LastIrreversibleBlockNum()
	require.Greater(t, lib, uint32(4))
	head := b.HeadBlockID()

	fork := produce(t, a, 14)
	for _, blk := range fork {
		b.PushBlock(blk, config.ValidationPolicy{})
	}
	require.Equal(t, head, b.HeadBlockID())
	require.NoError(t, b.ValidateInvariants())
}

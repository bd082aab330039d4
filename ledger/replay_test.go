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

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/ledger/ledgertest"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/test/partitiontest"
)

func testReplay(t *testing.T, backend string) {
	dir := t.TempDir()
	cfg := ledgertest.Config()
	cfg.BlockLogBackend = backend
	g := ledgertest.Genesis("dave")

	c, err := Open(dir, g, cfg, logging.TestingLog(t))
	require.NoError(t, err)
	produce(t, c, 3)
	stx := ledgertest.Transfer(c.ChainID(), headRef(c), "alice", "dave", 42, "replay")
	require.NoError(t, c.PushTransaction(stx, config.ValidationPolicy{}))
	produce(t, c, 9)
	lib := c.LastIrreversibleBlockNum()
	require.Greater(t, lib, uint32(4))
	var blocks = make(map[uint32]string)
	for n := uint32(1); n <= lib; n++ {
		blk, err := c.FetchBlockByNumber(n)
		require.NoError(t, err)
		blocks[n] = blk.ID().String()
	}
	require.NoError(t, c.Close())

	// Reversible blocks are not persisted; the reopened chain resumes at
	// the last irreversible block.
	c, err = Open(dir, g, cfg, logging.TestingLog(t))
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, lib, c.HeadBlockNum())
	require.Equal(t, lib, c.LastIrreversibleBlockNum())
	require.Equal(t, int64(1000042), balance(t, c, "dave"))
	for n, id := range blocks {
		blk, err := c.FetchBlockByNumber(n)
		require.NoError(t, err)
		require.Equal(t, id, blk.ID().String())
	}

	// A chain fed the same blocks reaches the same state.
	peer := openTestChain(t, t.TempDir(), "dave")
	for n := uint32(1); n <= lib; n++ {
		blk, err := c.FetchBlockByNumber(n)
		require.NoError(t, err)
		_, err = peer.PushBlock(blk, config.ValidationPolicy{})
		require.NoError(t, err)
	}
	require.Equal(t, peer.State().DB.SnapshotDigest(), c.State().DB.SnapshotDigest())
	require.NoError(t, c.ValidateInvariants())

	// Production continues on top of the replayed head.
	produce(t, c, 2)
	require.Equal(t, lib+2, c.HeadBlockNum())
}

func TestReplaySQLite(t *testing.T) {
	partitiontest.PartitionTest(t)
	testReplay(t, config.BlockLogSQLite)
}

func TestReplayPebble(t *testing.T) {
	partitiontest.PartitionTest(t)
	testReplay(t, config.BlockLogPebble)
}

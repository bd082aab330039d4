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
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/ledger/ledgertest"
	"github.com/algorand/go-muse/logging"
)

func openTestChain(t *testing.T, dir string, extra ...basics.AccountName) *Chain {
	c, err := Open(dir, ledgertest.Genesis(extra...), ledgertest.Config(), logging.TestingLog(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// produceAt generates the block of the slot-th slot after the head.
func produceAt(t *testing.T, c *Chain, slot uint64) bookkeeping.Block {
	when := c.SlotTime(slot)
	witness := c.ScheduledWitness(slot)
	blk, err := c.GenerateBlock(when, witness, ledgertest.Secrets(witness), config.ValidationPolicy{})
	require.NoError(t, err)
	return blk
}

func produce(t *testing.T, c *Chain, n int) []bookkeeping.Block {
	var blocks []bookkeeping.Block
	for i := 0; i < n; i++ {
		blocks = append(blocks, produceAt(t, c, 1))
	}
	return blocks
}

func pushAll(t *testing.T, c *Chain, blocks []bookkeeping.Block) {
	for _, blk := range blocks {
		_, err := c.PushBlock(blk, config.ValidationPolicy{})
		require.NoError(t, err, "block %d", blk.Num())
	}
}

func headRef(c *Chain) ledgertest.Ref {
	return ledgertest.Ref{Num: c.HeadBlockNum(), ID: c.HeadBlockID(), Time: c.HeadBlockTime()}
}

func balance(t *testing.T, c *Chain, name basics.AccountName) int64 {
	a, ok := c.Account(name)
	require.True(t, ok, "account %s", name)
	return a.Balance
}

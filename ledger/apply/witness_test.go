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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/test/partitiontest"
)

func witnessVotes(t *testing.T, st *chainstate.State, name basics.AccountName) int64 {
	w, ok := st.Witnesses.Get(name)
	require.True(t, ok)
	return w.Votes
}

func TestAccountWitnessVote(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	vote := &transactions.AccountWitnessVoteOp{Account: "alice", Witness: "bob", Approve: true}
	require.NoError(t, applyOp(st, vote))
	require.Equal(t, int64(1000000000), witnessVotes(t, st, "bob"))
	require.Equal(t, uint16(1), account(t, st, "alice").WitnessesVotedFor)
	require.ErrorContains(t, applyOp(st, vote), "currently exists")

	// Stake changes follow the vote.
	require.NoError(t, applyOp(st, &transactions.TransferToVestingOp{From: "alice", Amount: basics.Muse(10)}))
	require.Equal(t, int64(1000010000), witnessVotes(t, st, "bob"))

	vote.Approve = false
	require.NoError(t, applyOp(st, vote))
	require.Zero(t, witnessVotes(t, st, "bob"))
	require.Zero(t, account(t, st, "alice").WitnessesVotedFor)
	require.ErrorContains(t, applyOp(st, vote), "does not exist")

	require.Error(t, applyOp(st, &transactions.AccountWitnessVoteOp{Account: "alice", Witness: "nobody", Approve: true}))
}

func TestAccountWitnessProxy(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob", "carol")
	const stake = 1000000000
	require.NoError(t, applyOp(st, &transactions.AccountWitnessVoteOp{Account: "alice", Witness: "carol", Approve: true}))
	require.Equal(t, int64(stake), witnessVotes(t, st, "carol"))

	// Setting a proxy drops direct votes.
	require.NoError(t, applyOp(st, &transactions.AccountWitnessProxyOp{Account: "alice", Proxy: "bob"}))
	require.Zero(t, witnessVotes(t, st, "carol"))
	require.Zero(t, account(t, st, "alice").WitnessesVotedFor)
	require.Equal(t, int64(stake), account(t, st, "bob").ProxiedVsfVotes[0])

	require.ErrorContains(t, applyOp(st, &transactions.AccountWitnessVoteOp{Account: "alice", Witness: "carol", Approve: true}), "proxy")

	require.NoError(t, applyOp(st, &transactions.AccountWitnessVoteOp{Account: "bob", Witness: "carol", Approve: true}))
	require.Equal(t, int64(2*stake), witnessVotes(t, st, "carol"))

	err := applyOp(st, &transactions.AccountWitnessProxyOp{Account: "bob", Proxy: "alice"})
	require.ErrorContains(t, err, "cycle")
	require.Empty(t, account(t, st, "bob").Proxy)
	require.Equal(t, int64(2*stake), witnessVotes(t, st, "carol"))

	require.ErrorContains(t, applyOp(st, &transactions.AccountWitnessProxyOp{Account: "alice", Proxy: "bob"}), "must change")

	require.NoError(t, applyOp(st, &transactions.AccountWitnessProxyOp{Account: "alice"}))
	require.Equal(t, int64(stake), witnessVotes(t, st, "carol"))
	require.Zero(t, account(t, st, "bob").ProxiedVsfVotes[0])
}

func TestProxyChainDepth(t *testing.T) {
	partitiontest.PartitionTest(t)

	names := []basics.AccountName{"a1", "a2", "a3", "a4", "a5"}
	st := newTestState(t, names...)
	for i := len(names) - 2; i > 0; i-- {
		require.NoError(t, applyOp(st, &transactions.AccountWitnessProxyOp{Account: names[i], Proxy: names[i+1]}))
	}
	require.ErrorContains(t, applyOp(st, &transactions.AccountWitnessProxyOp{Account: "a1", Proxy: "a2"}), "too long")
}

func TestWitnessUpdate(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	require.NoError(t, applyOp(st, createOp("alice", "dave", st.Params.DefaultAccountCreationFee)))
	st.ModifyAccount("dave", func(a *ledgercore.Account) error {
		a.Balance = 1000
		return nil
	})
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.CurrentSupply += 1000
		d.VirtualSupply += 1000
	})

	key := bookkeeping.DevGenesisSecrets("dave").SignatureVerifier
	op := &transactions.WitnessUpdateOp{
		Owner:           "dave",
		URL:             "https://dave.example",
		BlockSigningKey: key,
		Props:           transactions.DefaultChainProperties(st.Params),
		Fee:             basics.Muse(100),
	}
	op.Props.MaximumBlockSize = st.Params.MinBlockSizeLimit - 1
	require.ErrorContains(t, applyOp(st, op), "maximum block size")

	op.Props.MaximumBlockSize = st.Params.MinBlockSizeLimit
	supply := st.DGP().CurrentSupply
	require.NoError(t, applyOp(st, op))
	w, ok := st.Witnesses.Get("dave")
	require.True(t, ok)
	require.Equal(t, key, w.SigningKey)
	require.Equal(t, basics.MaxUint128, w.VirtualScheduledTime)
	require.Equal(t, supply-100, st.DGP().CurrentSupply)
	require.Equal(t, int64(900), account(t, st, "dave").Balance)

	op.URL = "https://dave.example/v2"
	op.Fee = basics.Muse(0)
	require.NoError(t, applyOp(st, op))
	w, _ = st.Witnesses.Get("dave")
	require.Equal(t, "https://dave.example/v2", w.URL)
}

func TestFeedPublish(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice")
	require.NoError(t, applyOp(st, createOp("alice", "dave", st.Params.DefaultAccountCreationFee)))

	rate := basics.MakePrice(basics.Muse(2), basics.Mbd(1))
	require.NoError(t, applyOp(st, &transactions.FeedPublishOp{Publisher: "alice", ExchangeRate: rate}))
	w, _ := st.Witnesses.Get("alice")
	require.Equal(t, rate.Invert(), w.MbdExchangeRate)
	require.Equal(t, genesisTime, w.LastMbdExchangeUpdate)

	require.ErrorContains(t, applyOp(st, &transactions.FeedPublishOp{Publisher: "dave", ExchangeRate: rate}), "not a witness")
	require.Error(t, applyOp(st, &transactions.FeedPublishOp{
		Publisher: "alice", ExchangeRate: basics.MakePrice(basics.Muse(2), basics.MakeAsset(1, "GOLD")),
	}))
}

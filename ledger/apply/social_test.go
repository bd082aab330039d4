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
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/test/partitiontest"
)

func befriend(t *testing.T, st *chainstate.State, a, b basics.AccountName) {
	require.NoError(t, applyOp(st, &transactions.FriendshipOp{Who: a, Whom: b}))
	require.NoError(t, applyOp(st, &transactions.FriendshipOp{Who: b, Whom: a}))
}

func TestFriendship(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob", "carol")
	// isqrt of one genesis account's vesting shares
	const one = 31622

	require.NoError(t, applyOp(st, &transactions.FriendshipOp{Who: "alice", Whom: "bob"}))
	require.Equal(t, ledgercore.NameList{"alice"}, account(t, st, "bob").WaitingFriends)
	require.ErrorContains(t, applyOp(st, &transactions.FriendshipOp{Who: "alice", Whom: "bob"}), "pending")

	require.NoError(t, applyOp(st, &transactions.FriendshipOp{Who: "bob", Whom: "alice"}))
	alice := account(t, st, "alice")
	bob := account(t, st, "bob")
	require.Equal(t, ledgercore.NameList{"bob"}, alice.Friends)
	require.Equal(t, ledgercore.NameList{"alice"}, bob.Friends)
	require.Empty(t, bob.WaitingFriends)
	require.Equal(t, int64(one), alice.Score)
	require.Equal(t, int64(one), bob.Score)
	require.ErrorContains(t, applyOp(st, &transactions.FriendshipOp{Who: "alice", Whom: "bob"}), "already friends")

	befriend(t, st, "carol", "bob")
	alice = account(t, st, "alice")
	require.Equal(t, ledgercore.NameList{"carol"}, alice.SecondDegree)
	require.Equal(t, int64(one+one/2), alice.Score)
	require.Equal(t, int64(basics.ISqrt(2000000000)), account(t, st, "bob").Score)

	require.NoError(t, applyOp(st, &transactions.UnfriendOp{Who: "bob", Whom: "carol"}))
	require.Empty(t, account(t, st, "carol").Friends)
	require.Zero(t, account(t, st, "carol").Score)
	alice = account(t, st, "alice")
	require.Empty(t, alice.SecondDegree)
	require.Equal(t, int64(one), alice.Score)

	require.ErrorContains(t, applyOp(st, &transactions.UnfriendOp{Who: "bob", Whom: "carol"}), "not friends")
}

func TestFriendRequestWithdrawn(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	require.NoError(t, applyOp(st, &transactions.FriendshipOp{Who: "alice", Whom: "bob"}))
	require.NoError(t, applyOp(st, &transactions.UnfriendOp{Who: "alice", Whom: "bob"}))
	require.Empty(t, account(t, st, "bob").WaitingFriends)
	require.Empty(t, account(t, st, "alice").Friends)
}

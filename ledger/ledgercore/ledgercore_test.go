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

package ledgercore

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/test/partitiontest"
)

func TestNameList(t *testing.T) {
	partitiontest.PartitionTest(t)

	var l NameList
	require.True(t, l.Add("carol"))
	require.True(t, l.Add("alice"))
	require.True(t, l.Add("bob"))
	require.False(t, l.Add("bob"))
	require.Equal(t, NameList{"alice", "bob", "carol"}, l)
	require.True(t, l.Has("alice"))
	require.True(t, l.Remove("alice"))
	require.False(t, l.Remove("alice"))
	require.False(t, l.Has("alice"))
}

func TestAccountCloneIsDeep(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := Account{Name: "alice", ProxiedVsfVotes: []int64{1, 2}, Friends: NameList{"bob"}}
	a.Owner.AddAccount("bob", 1)
	c := a.Clone()
	c.ProxiedVsfVotes[0] = 10
	c.Friends[0] = "carol"
	c.Owner.AccountAuths[0].Weight = 5
	require.Equal(t, int64(1), a.ProxiedVsfVotes[0])
	require.Equal(t, basics.AccountName("bob"), a.Friends[0])
	require.Equal(t, uint16(1), a.Owner.AccountAuths[0].Weight)
}

func TestEffectiveVestingShares(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := Account{
		VestingShares:            1000,
		DelegatedVestingShares:   300,
		ReceivedVestingShares:    200,
		RedelegatedVestingShares: 50,
		RereceivedVestingShares:  25,
		ProxiedVsfVotes:          []int64{7, 3},
	}
	require.Equal(t, int64(875), a.EffectiveVestingShares())
	require.Equal(t, int64(10), a.ProxiedVsfVotesTotal())
	require.Equal(t, int64(885), a.WitnessVoteWeight())
}

func TestAssetBalances(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := Account{Balance: 5, MbdBalance: 6, VestingShares: 7}
	require.Equal(t, int64(5), a.AssetBalance(basics.MUSE))
	require.Equal(t, int64(6), a.AssetBalance(basics.MBD))
	require.Equal(t, int64(7), a.AssetBalance(basics.VESTS))

	a.SetAssetBalance("ZZZ", 3)
	a.SetAssetBalance("AAA", 4)
	require.Equal(t, int64(3), a.AssetBalance("ZZZ"))
	require.Equal(t, int64(4), a.AssetBalance("AAA"))
	require.True(t, slices.IsSortedFunc(a.Assets, func(x, y basics.Asset) int {
		return bySymbol(x, y.Symbol)
	}))

	a.SetAssetBalance("AAA", 0)
	require.Len(t, a.Assets, 1)
	require.Zero(t, a.AssetBalance("AAA"))
}

func TestOrderBookOrdering(t *testing.T) {
	partitiontest.PartitionTest(t)

	mk := func(base, quote int64) LimitOrder {
		return LimitOrder{SellPrice: basics.MakePrice(basics.Muse(base), basics.Mbd(quote))}
	}
	orders := []LimitOrder{mk(1, 2), mk(3, 1), mk(1, 1)}
	slices.SortFunc(orders, CompareOrderPrice)
	require.Equal(t, int64(3), orders[0].SellPrice.Base.Amount)
	require.Equal(t, int64(1), orders[1].SellPrice.Quote.Amount)
	require.Equal(t, int64(2), orders[2].SellPrice.Quote.Amount)

	o := LimitOrder{ForSale: 100, SellPrice: basics.MakePrice(basics.Muse(3), basics.Mbd(2))}
	require.Equal(t, basics.Mbd(66), o.AmountToReceive())
}

func TestComparePairKey(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.Negative(t, ComparePairKey(PairKey{"alice", "zed"}, PairKey{"bob", "abe"}))
	require.Positive(t, ComparePairKey(PairKey{"bob", "zed"}, PairKey{"bob", "abe"}))
	require.Zero(t, CompareOwnedKey(OwnedKey{"bob", 1}, OwnedKey{"bob", 1}))
}

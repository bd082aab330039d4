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
	"pgregory.net/rapid"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/test/partitiontest"
)

const gold basics.Symbol = "GOLD"

// newMarketState issues 10000 GOLD to bob.
func newMarketState(t *testing.T) *chainstate.State {
	st := newTestState(t, "alice", "bob")
	require.NoError(t, applyOp(st, &transactions.AssetCreateOp{Issuer: "bob", Symbol: gold, MaxSupply: 1000000}))
	require.NoError(t, applyOp(st, &transactions.AssetIssueOp{Issuer: "bob", AssetToIssue: basics.MakeAsset(10000, gold), IssueToAccount: "bob"}))
	return st
}

func sell(owner basics.AccountName, id uint32, amount basics.Asset, receive basics.Asset) *transactions.LimitOrderCreateOp {
	return &transactions.LimitOrderCreateOp{Owner: owner, OrderID: id, AmountToSell: amount, MinToReceive: receive}
}

func TestAssetIssue(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newMarketState(t)
	require.Equal(t, int64(10000), account(t, st, "bob").AssetBalance(gold))
	a, ok := st.Assets.Get(gold)
	require.True(t, ok)
	require.Equal(t, int64(10000), a.CurrentSupply)

	require.ErrorContains(t, applyOp(st, &transactions.AssetCreateOp{Issuer: "alice", Symbol: gold, MaxSupply: 1}), "already exists")
	require.ErrorContains(t, applyOp(st, &transactions.AssetCreateOp{Issuer: "alice", Symbol: basics.MUSE, MaxSupply: 1}), "reserved")
	require.ErrorContains(t, applyOp(st, &transactions.AssetIssueOp{
		Issuer: "alice", AssetToIssue: basics.MakeAsset(1, gold), IssueToAccount: "alice",
	}), "not the issuer")
	require.ErrorContains(t, applyOp(st, &transactions.AssetIssueOp{
		Issuer: "bob", AssetToIssue: basics.MakeAsset(990001, gold), IssueToAccount: "alice",
	}), "maximum supply")
}

func TestLimitOrderFullMatch(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newMarketState(t)
	require.NoError(t, applyOp(st, sell("alice", 1, basics.Muse(1000), basics.MakeAsset(500, gold))))
	require.Equal(t, 1, st.Orders.Len())
	require.Equal(t, int64(999000), account(t, st, "alice").Balance)

	require.NoError(t, applyOp(st, sell("bob", 7, basics.MakeAsset(500, gold), basics.Muse(1000))))
	require.Zero(t, st.Orders.Len())

	alice := account(t, st, "alice")
	require.Equal(t, int64(999000), alice.Balance)
	require.Equal(t, int64(500), alice.AssetBalance(gold))
	bob := account(t, st, "bob")
	require.Equal(t, int64(1001000), bob.Balance)
	require.Equal(t, int64(9500), bob.AssetBalance(gold))
}

func TestLimitOrderPartialFill(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newMarketState(t)
	require.NoError(t, applyOp(st, sell("alice", 1, basics.Muse(1000), basics.MakeAsset(500, gold))))
	require.NoError(t, applyOp(st, sell("bob", 1, basics.MakeAsset(200, gold), basics.Muse(400))))

	o, ok := st.Orders.Get(ledgercore.OwnedKey{Owner: "alice", ID: 1})
	require.True(t, ok)
	require.Equal(t, int64(600), o.ForSale)
	require.False(t, st.Orders.Has(ledgercore.OwnedKey{Owner: "bob", ID: 1}))
	require.Equal(t, int64(200), account(t, st, "alice").AssetBalance(gold))
	require.Equal(t, int64(1000400), account(t, st, "bob").Balance)

	// The resting order trades at its own price even against a worse bid.
	require.NoError(t, applyOp(st, sell("bob", 2, basics.MakeAsset(100, gold), basics.Muse(100))))
	require.Equal(t, int64(1000600), account(t, st, "bob").Balance)
	o, _ = st.Orders.Get(ledgercore.OwnedKey{Owner: "alice", ID: 1})
	require.Equal(t, int64(400), o.ForSale)

	require.NoError(t, applyOp(st, &transactions.LimitOrderCancelOp{Owner: "alice", OrderID: 1}))
	require.Equal(t, int64(999400), account(t, st, "alice").Balance)
	require.Zero(t, st.Orders.Len())
	require.Error(t, applyOp(st, &transactions.LimitOrderCancelOp{Owner: "alice", OrderID: 1}))
}

func TestLimitOrderNoCross(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newMarketState(t)
	require.NoError(t, applyOp(st, sell("alice", 1, basics.Muse(1000), basics.MakeAsset(500, gold))))
	// bob asks 3 MUSE per GOLD, alice bids only 2.
	require.NoError(t, applyOp(st, sell("bob", 1, basics.MakeAsset(100, gold), basics.Muse(300))))
	require.Equal(t, 2, st.Orders.Len())
	require.Equal(t, int64(9900), account(t, st, "bob").AssetBalance(gold))
}

func TestLimitOrderFillOrKill(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newMarketState(t)
	op := sell("alice", 1, basics.Muse(1000), basics.MakeAsset(500, gold))
	op.FillOrKill = true
	require.ErrorContains(t, applyOp(st, op), "not filled")
	require.Zero(t, st.Orders.Len())
	require.Equal(t, int64(1000000), account(t, st, "alice").Balance)

	require.NoError(t, applyOp(st, sell("bob", 1, basics.MakeAsset(500, gold), basics.Muse(1000))))
	require.NoError(t, applyOp(st, op))
	require.Zero(t, st.Orders.Len())
	require.Equal(t, int64(500), account(t, st, "alice").AssetBalance(gold))
}

func TestLimitOrderChecks(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newMarketState(t)
	require.ErrorContains(t, applyOp(st, sell("alice", 1, basics.Muse(2000000), basics.MakeAsset(1, gold))), "sufficient funds")
	require.ErrorContains(t, applyOp(st, sell("alice", 1, basics.Muse(1), basics.MakeAsset(1, "SILVER"))), "does not exist")

	op := sell("alice", 1, basics.Muse(10), basics.MakeAsset(1, gold))
	op.Expiration = genesisTime
	require.ErrorContains(t, applyOp(st, op), "expire after")
	op.Expiration = genesisTime.Add(st.Params.MaxLimitOrderExpiration + 1)
	require.Error(t, applyOp(st, op))

	op.Expiration = genesisTime.Add(60)
	require.NoError(t, applyOp(st, op))
	require.ErrorContains(t, applyOp(st, op), "already exists")

	// An unset expiration means the longest allowed.
	require.NoError(t, applyOp(st, sell("alice", 2, basics.Muse(10), basics.MakeAsset(1, gold))))
	o, _ := st.Orders.Get(ledgercore.OwnedKey{Owner: "alice", ID: 2})
	require.Equal(t, genesisTime.Add(st.Params.MaxLimitOrderExpiration), o.Expiration)

	advanceTime(st, 60)
	require.NoError(t, ClearExpiredOrders(st))
	require.False(t, st.Orders.Has(ledgercore.OwnedKey{Owner: "alice", ID: 1}))
	require.True(t, st.Orders.Has(ledgercore.OwnedKey{Owner: "alice", ID: 2}))
	require.Equal(t, int64(999990), account(t, st, "alice").Balance)
}

func TestLimitOrderCreate2(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newMarketState(t)
	require.NoError(t, applyOp(st, &transactions.LimitOrderCreate2Op{
		Owner:        "alice",
		OrderID:      1,
		AmountToSell: basics.Muse(1000),
		ExchangeRate: basics.MakePrice(basics.Muse(2), basics.MakeAsset(1, gold)),
	}))
	o, ok := st.Orders.Get(ledgercore.OwnedKey{Owner: "alice", ID: 1})
	require.True(t, ok)
	require.Equal(t, basics.MakeAsset(500, gold), o.AmountToReceive())
}

// TestLimitOrderMatchingConservesFunds places random orders from both
// sides of the MUSE/GOLD book. Funds only move between accounts and
// resting orders, and each trade retires at least one order.
func TestLimitOrderMatchingConservesFunds(t *testing.T) {
	partitiontest.PartitionTest(t)

	traders := []basics.AccountName{"alice", "bob"}
	holdings := func(st *chainstate.State) map[basics.Symbol]int64 {
		total := make(map[basics.Symbol]int64)
		for _, name := range traders {
			a, _ := st.Accounts.Get(name)
			total[basics.MUSE] += a.Balance
			total[gold] += a.AssetBalance(gold)
		}
		st.Orders.Scan(func(_ ledgercore.OwnedKey, o ledgercore.LimitOrder) bool {
			total[o.SellPrice.Base.Symbol] += o.ForSale
			return true
		})
		return total
	}

	rapid.Check(t, func(rt *rapid.T) {
		st := newMarketState(t)
		require.NoError(rt, applyOp(st, &transactions.AssetIssueOp{Issuer: "bob", AssetToIssue: basics.MakeAsset(10000, gold), IssueToAccount: "alice"}))
		want := holdings(st)

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			owner := traders[rapid.IntRange(0, 1).Draw(rt, "owner")]
			amount := rapid.Int64Range(1, 300).Draw(rt, "amount")
			receive := rapid.Int64Range(1, 300).Draw(rt, "receive")
			op := sell(owner, uint32(i), basics.Muse(amount), basics.MakeAsset(receive, gold))
			if rapid.Bool().Draw(rt, "sellsGold") {
				op = sell(owner, uint32(i), basics.MakeAsset(amount, gold), basics.Muse(receive))
			}

			before := st.Orders.Len()
			require.NoError(rt, applyOp(st, op))
			require.Equal(rt, want, holdings(st))

			placed, ok := st.Orders.Get(ledgercore.OwnedKey{Owner: owner, ID: uint32(i)})
			if ok && placed.ForSale == amount {
				require.Equal(rt, before+1, st.Orders.Len())
			} else {
				require.LessOrEqual(rt, st.Orders.Len(), before)
			}

			var resting []ledgercore.LimitOrder
			st.Orders.Scan(func(_ ledgercore.OwnedKey, o ledgercore.LimitOrder) bool {
				require.Positive(rt, o.ForSale)
				resting = append(resting, o)
				return true
			})
			for _, a := range resting {
				for _, b := range resting {
					if a.SellPrice.Base.Symbol != b.SellPrice.Base.Symbol {
						require.True(rt, b.SellPrice.Less(a.SellPrice.Invert()), "%v crosses %v", a.Key(), b.Key())
					}
				}
			}
		}
	})
}

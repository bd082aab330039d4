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

package schedule

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/test/partitiontest"
)

const genesisTime basics.Timestamp = 1600000000

var testWitnesses = []basics.AccountName{"alice", "bob", "carol"}

func newTestState(t testing.TB, mod func(g *bookkeeping.Genesis)) *chainstate.State {
	st := chainstate.New(config.Consensus, logging.TestingLog(t))
	g := bookkeeping.MakeDevGenesis("schedule-test", genesisTime, testWitnesses, 1000000, 1000000)
	if mod != nil {
		mod(&g)
	}
	require.NoError(t, st.InitGenesis(g))
	return st
}

func setHead(st *chainstate.State, num uint32, when basics.Timestamp) {
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.HeadBlockNumber = num
		d.Time = when
	})
}

func modifyWitness(st *chainstate.State, name basics.AccountName, fn func(w *ledgercore.Witness)) {
	st.Witnesses.Modify(name, func(w *ledgercore.Witness) error {
		fn(w)
		return nil
	})
}

func witness(t *testing.T, st *chainstate.State, name basics.AccountName) ledgercore.Witness {
	w, ok := st.Witnesses.Get(name)
	require.True(t, ok, "witness %s", name)
	return w
}

func TestShuffle(t *testing.T) {
	partitiontest.PartitionTest(t)

	names := []basics.AccountName{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9"}
	first := slices.Clone(names)
	second := slices.Clone(names)
	Shuffle(first, genesisTime)
	Shuffle(second, genesisTime)
	require.Equal(t, first, second)

	sorted := slices.Clone(first)
	slices.Sort(sorted)
	require.Equal(t, names, sorted)

	one := []basics.AccountName{"solo"}
	Shuffle(one, genesisTime)
	require.Equal(t, []basics.AccountName{"solo"}, one)
}

func TestSlots(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	require.Equal(t, basics.Timestamp(0), SlotTime(st, 0))
	require.Equal(t, genesisTime+3, SlotTime(st, 1))
	require.Equal(t, uint64(0), SlotAtTime(st, genesisTime))
	require.Equal(t, uint64(1), SlotAtTime(st, genesisTime+3))
	require.Equal(t, uint64(1), SlotAtTime(st, genesisTime+5))
	require.Equal(t, uint64(2), SlotAtTime(st, genesisTime+6))

	// Past genesis, slots are aligned to the block interval.
	setHead(st, 5, 1600000016)
	require.Equal(t, basics.Timestamp(1600000017), SlotTime(st, 1))
	require.Equal(t, basics.Timestamp(1600000023), SlotTime(st, 3))
	require.Equal(t, uint64(0), SlotAtTime(st, 1600000016))
	require.Equal(t, uint64(3), SlotAtTime(st, 1600000025))

	names := st.WitnessSchedule().CurrentShuffledWitnesses
	require.Equal(t, names[1], ScheduledWitness(st, 1))
	require.Equal(t, names[0], ScheduledWitness(st, 3))
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.CurrentAslot = 4
	})
	require.Equal(t, names[2], ScheduledWitness(st, 1))
}

func TestUpdateWitnessScheduleResetsAtGenesis(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	require.Equal(t, uint32(3), st.WitnessSchedule().NextShuffleBlockNum)

	setHead(st, 2, genesisTime+6)
	before := st.WitnessSchedule()
	UpdateWitnessSchedule(st)
	require.Equal(t, before, st.WitnessSchedule())

	// Genesis witnesses start at the end of virtual time, so the first
	// round overflows and restarts the virtual schedule.
	setHead(st, 3, genesisTime+9)
	UpdateWitnessSchedule(st)
	sched := st.WitnessSchedule()
	require.Equal(t, uint32(6), sched.NextShuffleBlockNum)
	require.True(t, sched.CurrentVirtualTime.IsZero())
	require.ElementsMatch(t, testWitnesses, sched.CurrentShuffledWitnesses)
	for _, name := range testWitnesses {
		w := witness(t, st, name)
		require.Equal(t, ledgercore.TopScheduled, w.Schedule)
		require.Equal(t, chainstate.VirtualScheduleLapLength, w.VirtualScheduledTime)
	}
}

func TestRunnersUpRotate(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	st.Params.MaxVotedWitnesses = 1
	st.Params.MaxWitnesses = 2
	for name, votes := range map[basics.AccountName]int64{"alice": 300, "bob": 200, "carol": 100} {
		modifyWitness(st, name, func(w *ledgercore.Witness) { w.Votes = votes })
	}
	ResetVirtualSchedule(st)
	lap := chainstate.VirtualScheduleLapLength

	setHead(st, 3, genesisTime+9)
	UpdateWitnessSchedule(st)
	sched := st.WitnessSchedule()
	require.ElementsMatch(t, []basics.AccountName{"alice", "bob"}, sched.CurrentShuffledWitnesses)
	require.Equal(t, lap.DivUint64(201), sched.CurrentVirtualTime)
	require.Equal(t, uint32(5), sched.NextShuffleBlockNum)
	require.Equal(t, ledgercore.TopScheduled, witness(t, st, "alice").Schedule)
	require.Equal(t, ledgercore.RunnerScheduled, witness(t, st, "bob").Schedule)
	require.Equal(t, ledgercore.NotScheduled, witness(t, st, "carol").Schedule)

	bob := witness(t, st, "bob")
	require.True(t, bob.VirtualPosition.IsZero())
	require.Equal(t, sched.CurrentVirtualTime, bob.VirtualLastUpdate)

	// carol's lap now ends before bob's second one.
	setHead(st, 5, genesisTime+15)
	UpdateWitnessSchedule(st)
	sched = st.WitnessSchedule()
	require.ElementsMatch(t, []basics.AccountName{"alice", "carol"}, sched.CurrentShuffledWitnesses)
	require.Equal(t, ledgercore.NotScheduled, witness(t, st, "bob").Schedule)
	require.Equal(t, ledgercore.RunnerScheduled, witness(t, st, "carol").Schedule)
}

func TestKeylessWitnessesSkipped(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	modifyWitness(st, "bob", func(w *ledgercore.Witness) { w.SigningKey = crypto.PublicKey{} })
	setHead(st, 3, genesisTime+9)
	UpdateWitnessSchedule(st)
	require.ElementsMatch(t, []basics.AccountName{"alice", "carol"}, st.WitnessSchedule().CurrentShuffledWitnesses)
	require.Equal(t, uint32(5), st.WitnessSchedule().NextShuffleBlockNum)
}

func TestVirtualTimeNeverGoesBack(t *testing.T) {
	partitiontest.PartitionTest(t)

	rapid.Check(t, func(rt *rapid.T) {
		st := newTestState(t, nil)
		st.Params.MaxVotedWitnesses = 1
		st.Params.MaxWitnesses = 2
		for _, name := range testWitnesses {
			votes := rapid.Int64Range(0, 1000000).Draw(rt, "votes")
			modifyWitness(st, name, func(w *ledgercore.Witness) { w.Votes = votes })
		}
		ResetVirtualSchedule(st)

		head := uint32(0)
		last := basics.Uint128{}
		rounds := rapid.IntRange(1, 30).Draw(rt, "rounds")
		for i := 0; i < rounds; i++ {
			head = st.WitnessSchedule().NextShuffleBlockNum
			setHead(st, head, genesisTime.Add(int64(head)*3))
			UpdateWitnessSchedule(st)

			sched := st.WitnessSchedule()
			require.Len(rt, sched.CurrentShuffledWitnesses, 2)
			require.NotEqual(rt, sched.CurrentShuffledWitnesses[0], sched.CurrentShuffledWitnesses[1])
			if !sched.CurrentVirtualTime.IsZero() {
				require.False(rt, sched.CurrentVirtualTime.Less(last))
			}
			last = sched.CurrentVirtualTime
		}
	})
}

func TestUpdateMedianWitnessProps(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	props := map[basics.AccountName][2]int64{
		"alice": {300, 70000},
		"bob":   {100, 90000},
		"carol": {200, 80000},
	}
	for name, p := range props {
		modifyWitness(st, name, func(w *ledgercore.Witness) {
			w.Props.AccountCreationFee = basics.Muse(p[0])
			w.Props.MaximumBlockSize = uint32(p[1])
		})
	}
	UpdateMedianWitnessProps(st)
	median := st.WitnessSchedule().MedianProps
	require.Equal(t, basics.Muse(200), median.AccountCreationFee)
	require.Equal(t, uint32(80000), median.MaximumBlockSize)
	require.Equal(t, uint32(80000), st.DGP().MaximumBlockSize)
}

func TestUpdateMedianFeed(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	st.Params.MinFeeds = 2
	now := genesisTime.Add(3600)
	setHead(st, st.Params.FeedIntervalBlocks-1, now)

	modifyWitness(st, "alice", func(w *ledgercore.Witness) {
		w.MbdExchangeRate = basics.MakePrice(basics.Mbd(1), basics.Muse(2))
		w.LastMbdExchangeUpdate = now
	})
	modifyWitness(st, "bob", func(w *ledgercore.Witness) {
		w.MbdExchangeRate = basics.MakePrice(basics.Mbd(1), basics.Muse(3))
		w.LastMbdExchangeUpdate = now.Add(-st.Params.MaxFeedAge)
	})

	UpdateMedianFeed(st)
	require.True(t, st.FeedHistory().CurrentMedianHistory.IsNull())

	// bob's feed is stale, leaving one feed.
	setHead(st, st.Params.FeedIntervalBlocks, now)
	UpdateMedianFeed(st)
	require.Empty(t, st.FeedHistory().PriceHistory)

	modifyWitness(st, "bob", func(w *ledgercore.Witness) { w.LastMbdExchangeUpdate = now })
	UpdateMedianFeed(st)
	f := st.FeedHistory()
	half := basics.MakePrice(basics.Mbd(1), basics.Muse(2))
	require.Len(t, f.PriceHistory, 1)
	require.Equal(t, half, f.CurrentMedianHistory)
	require.Equal(t, half, f.RawMedianHistory)
}

func TestMedianFeedCapsMbd(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	st.Params.MinFeeds = 1
	now := genesisTime.Add(3600)
	setHead(st, st.Params.FeedIntervalBlocks, now)
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.CurrentMbdSupply = 1000000
	})
	half := basics.MakePrice(basics.Mbd(1), basics.Muse(2))
	modifyWitness(st, "alice", func(w *ledgercore.Witness) {
		w.MbdExchangeRate = half
		w.LastMbdExchangeUpdate = now
	})

	UpdateMedianFeed(st)
	f := st.FeedHistory()
	require.Equal(t, half, f.RawMedianHistory)
	// 1000000 MBD may be worth at most a ninth of the 6000000 MUSE supply.
	require.Equal(t, basics.MakePrice(basics.Mbd(9000000), basics.Muse(6000000)), f.CurrentMedianHistory)
	require.Equal(t, int64(6666666), st.DGP().VirtualSupply)
}

func TestMedianFeedWindow(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	st.Params.MinFeeds = 1
	st.Params.FeedHistoryWindow = 3
	interval := st.Params.FeedIntervalBlocks
	for i := int64(1); i <= 5; i++ {
		now := genesisTime.Add(i * 3600)
		setHead(st, uint32(i)*interval, now)
		modifyWitness(st, "alice", func(w *ledgercore.Witness) {
			w.MbdExchangeRate = basics.MakePrice(basics.Mbd(1), basics.Muse(i))
			w.LastMbdExchangeUpdate = now
		})
		UpdateMedianFeed(st)
	}
	f := st.FeedHistory()
	require.Len(t, f.PriceHistory, 3)
	require.Equal(t, basics.MakePrice(basics.Mbd(1), basics.Muse(3)), f.PriceHistory[0])
	require.Equal(t, basics.MakePrice(basics.Mbd(1), basics.Muse(4)), f.CurrentMedianHistory)
}

func TestLastIrreversibleBlock(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	setHead(st, 10, genesisTime+30)
	for name, num := range map[basics.AccountName]uint32{"alice": 5, "bob": 7, "carol": 9} {
		modifyWitness(st, name, func(w *ledgercore.Witness) { w.LastConfirmedBlockNum = num })
	}
	lib, moved := UpdateLastIrreversibleBlock(st)
	require.True(t, moved)
	require.Equal(t, uint32(5), lib)

	modifyWitness(st, "alice", func(w *ledgercore.Witness) { w.LastConfirmedBlockNum = 8 })
	lib, moved = UpdateLastIrreversibleBlock(st)
	require.True(t, moved)
	require.Equal(t, uint32(7), lib)
	require.Equal(t, uint32(7), st.DGP().LastIrreversibleBlockNum)

	modifyWitness(st, "bob", func(w *ledgercore.Witness) { w.LastConfirmedBlockNum = 3 })
	lib, moved = UpdateLastIrreversibleBlock(st)
	require.False(t, moved)
	require.Equal(t, uint32(7), lib)
}

func TestMissedSlots(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, nil)
	setHead(st, 30000, genesisTime.Add(90000))
	for _, name := range testWitnesses {
		modifyWitness(st, name, func(w *ledgercore.Witness) { w.LastConfirmedBlockNum = 29999 })
	}
	signer := ScheduledWitness(st, 3)
	first, second := ScheduledWitness(st, 1), ScheduledWitness(st, 2)
	modifyWitness(st, first, func(w *ledgercore.Witness) { w.LastConfirmedBlockNum = 100 })

	missed := ProcessMissedSlots(st, SlotTime(st, 3), signer)
	require.Equal(t, uint64(2), missed)
	require.Equal(t, uint32(1), witness(t, st, first).TotalMissed)
	require.Equal(t, uint32(1), witness(t, st, second).TotalMissed)
	require.Zero(t, witness(t, st, signer).TotalMissed)

	require.True(t, witness(t, st, first).SigningKey.IsZero())
	require.False(t, witness(t, st, second).SigningKey.IsZero())

	require.Equal(t, uint64(0), ProcessMissedSlots(st, SlotTime(st, 1), ScheduledWitness(st, 1)))

	UpdateSigningWitness(st, signer, 30001)
	require.Equal(t, uint32(30001), witness(t, st, signer).LastConfirmedBlockNum)
}

func TestHardforkVotes(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, func(g *bookkeeping.Genesis) {
		g.HardforkTimes = g.HardforkTimes[:config.HardforkDelegation]
	})
	require.True(t, st.HasHardfork(config.HardforkDelegation))
	require.False(t, st.HasHardfork(config.HardforkSpinning))

	target := config.HardforkVersions[config.HardforkSpinning]
	activation := genesisTime.Add(100)
	for _, name := range testWitnesses[:2] {
		modifyWitness(st, name, func(w *ledgercore.Witness) {
			w.RunningVersion = target
			w.HardforkVersionVote = target
			w.HardforkTimeVote = activation
		})
	}

	// Two of three is not a qualified majority.
	ProcessHardforkVotes(st)
	h := st.HardforkProperties()
	require.Equal(t, h.CurrentHardforkVersion, h.NextHardfork)
	require.Equal(t, config.HardforkVersions[config.HardforkDelegation], st.WitnessSchedule().MajorityVersion)

	modifyWitness(st, "carol", func(w *ledgercore.Witness) {
		w.RunningVersion = target
		w.HardforkVersionVote = target
		w.HardforkTimeVote = activation
	})
	ProcessHardforkVotes(st)
	h = st.HardforkProperties()
	require.Equal(t, target, h.NextHardfork)
	require.Equal(t, activation, h.NextHardforkTime)
	require.Equal(t, target, st.WitnessSchedule().MajorityVersion)

	setHead(st, 30, genesisTime.Add(99))
	ProcessHardforks(st)
	require.False(t, st.HasHardfork(config.HardforkSpinning))

	setHead(st, 33, activation)
	ProcessHardforks(st)
	require.True(t, st.HasHardfork(config.HardforkSpinning))
	h = st.HardforkProperties()
	require.Equal(t, target, h.CurrentHardforkVersion)
	require.Len(t, h.ProcessedHardforks, config.HardforkSpinning+1)
	require.Equal(t, activation, h.ProcessedHardforks[config.HardforkSpinning])
}

func TestGenesisScheduledHardfork(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, func(g *bookkeeping.Genesis) {
		g.HardforkTimes = []basics.Timestamp{genesisTime, genesisTime.Add(50)}
	})
	require.False(t, st.HasHardfork(config.HardforkSpinning))

	setHead(st, 16, genesisTime.Add(49))
	ProcessHardforks(st)
	require.False(t, st.HasHardfork(config.HardforkSpinning))

	setHead(st, 17, genesisTime.Add(51))
	ProcessHardforks(st)
	require.True(t, st.HasHardfork(config.HardforkSpinning))
}

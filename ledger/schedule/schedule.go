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

// Package schedule decides which witness produces each block slot. Every
// round the top-voted witnesses are scheduled outright and the remaining
// slots go to the runners-up in virtual-time order, a vote-weighted round
// robin. It also derives the values witnesses vote on: the median chain
// properties, the median price feed and the active hardfork.
package schedule

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// shuffleMultiplier is the xorshift* constant of the schedule permutation.
const shuffleMultiplier = 2685821657736338717

// ActiveWitnesses returns the witness records of the current round in
// schedule order.
func ActiveWitnesses(st *chainstate.State) []ledgercore.Witness {
	names := st.WitnessSchedule().CurrentShuffledWitnesses
	out := make([]ledgercore.Witness, 0, len(names))
	for _, name := range names {
		if w, ok := st.Witnesses.Get(name); ok {
			out = append(out, w)
		}
	}
	return out
}

func canSign(st *chainstate.State, w ledgercore.Witness) bool {
	return !st.HasHardfork(config.HardforkSpinning) || !w.SigningKey.IsZero()
}

// UpdateWitnessSchedule builds the next round once the current one has been
// produced. Top-voted witnesses are picked first; runners-up fill the
// remaining slots in order of virtual scheduled time, and every runner-up
// walked over restarts its lap at the new virtual time.
func UpdateWitnessSchedule(st *chainstate.State) {
	sched := st.WitnessSchedule()
	head := st.HeadBlockNum()
	if head < sched.NextShuffleBlockNum {
		return
	}
	p := st.Params

	active := make([]basics.AccountName, 0, p.MaxWitnesses)
	top := mapset.NewThreadUnsafeSet[basics.AccountName]()
	st.WitnessesByVotes.Scan(func(name basics.AccountName, w ledgercore.Witness) bool {
		if top.Cardinality() >= p.MaxVotedWitnesses {
			return false
		}
		if !canSign(st, w) {
			return true
		}
		top.Add(name)
		active = append(active, name)
		return true
	})

	vtime := sched.CurrentVirtualTime
	var walked []ledgercore.Witness
	var runners []basics.AccountName
	st.WitnessesByTime.Scan(func(name basics.AccountName, w ledgercore.Witness) bool {
		if len(active)+len(runners) >= p.MaxWitnesses {
			return false
		}
		vtime = w.VirtualScheduledTime
		walked = append(walked, w)
		if canSign(st, w) && !top.Contains(name) {
			runners = append(runners, name)
		}
		return true
	})

	reset := false
	for _, w := range walked {
		next, overflow := vtime.Add(chainstate.VirtualScheduleLapLength.DivUint64(uint64(w.Votes) + 1))
		if overflow {
			reset = true
			break
		}
		st.Witnesses.Modify(w.Owner, func(w *ledgercore.Witness) error {
			w.VirtualPosition = basics.Uint128{}
			w.VirtualLastUpdate = vtime
			w.VirtualScheduledTime = next
			return nil
		})
	}
	if reset {
		vtime = basics.Uint128{}
		ResetVirtualSchedule(st)
	}

	for _, name := range sched.CurrentShuffledWitnesses {
		setScheduleKind(st, name, ledgercore.NotScheduled)
	}
	for _, name := range active {
		setScheduleKind(st, name, ledgercore.TopScheduled)
	}
	for _, name := range runners {
		setScheduleKind(st, name, ledgercore.RunnerScheduled)
	}
	active = append(active, runners...)

	if len(active) == 0 {
		st.Log.Errorf("no witness can be scheduled at block %d, keeping the previous round", head)
		st.ModifyWitnessSchedule(func(s *ledgercore.WitnessSchedule) {
			s.CurrentVirtualTime = vtime
			s.NextShuffleBlockNum = head + 1
		})
		return
	}

	Shuffle(active, st.HeadBlockTime())
	st.ModifyWitnessSchedule(func(s *ledgercore.WitnessSchedule) {
		s.CurrentShuffledWitnesses = active
		s.CurrentVirtualTime = vtime
		s.NextShuffleBlockNum = head + uint32(len(active))
	})
	st.Log.Debugf("block %d: scheduled %d witnesses (%d runners-up)", head, len(active), len(runners))

	UpdateMedianWitnessProps(st)
	ProcessHardforkVotes(st)
}

func setScheduleKind(st *chainstate.State, name basics.AccountName, kind ledgercore.ScheduleKind) {
	if !st.Witnesses.Has(name) {
		return
	}
	st.Witnesses.Modify(name, func(w *ledgercore.Witness) error {
		w.Schedule = kind
		return nil
	})
}

// ResetVirtualSchedule restarts virtual time at zero. Every witness begins
// a fresh lap.
func ResetVirtualSchedule(st *chainstate.State) {
	st.Log.Infof("resetting the virtual schedule at block %d", st.HeadBlockNum())
	st.ModifyWitnessSchedule(func(s *ledgercore.WitnessSchedule) {
		s.CurrentVirtualTime = basics.Uint128{}
	})
	st.Witnesses.Scan(func(name basics.AccountName, _ ledgercore.Witness) bool {
		st.Witnesses.Modify(name, func(w *ledgercore.Witness) error {
			w.VirtualPosition = basics.Uint128{}
			w.VirtualLastUpdate = basics.Uint128{}
			w.VirtualScheduledTime = chainstate.VirtualScheduleLapLength.DivUint64(uint64(w.Votes) + 1)
			return nil
		})
		return true
	})
}

// Shuffle permutes names in place, seeded by the block time so every node
// derives the same order.
func Shuffle(names []basics.AccountName, now basics.Timestamp) {
	nowHi := uint64(now) << 32
	for i := range names {
		k := nowHi + uint64(i)*shuffleMultiplier
		k ^= k >> 12
		k ^= k << 25
		k ^= k >> 27
		k *= shuffleMultiplier

		j := i + int(k%uint64(len(names)-i))
		names[i], names[j] = names[j], names[i]
	}
}

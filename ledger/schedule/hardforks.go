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
	"cmp"
	"fmt"
	"slices"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

type hardforkVote struct {
	version config.Version
	time    basics.Timestamp
}

// ProcessHardforkVotes tallies the software versions and hardfork votes of
// the scheduled witnesses. The majority version is the highest version run
// by a qualified majority; a hardfork vote backed by a qualified majority
// becomes the next hardfork, and without one the next hardfork falls back to
// the current version.
func ProcessHardforkVotes(st *chainstate.State) {
	ws := ActiveWitnesses(st)
	if len(ws) == 0 {
		return
	}
	required := st.Params.RequiredWitnessMajority(len(ws))

	running := make(map[config.Version]int)
	votes := make(map[hardforkVote]int)
	for _, w := range ws {
		running[w.RunningVersion]++
		votes[hardforkVote{version: w.HardforkVersionVote, time: w.HardforkTimeVote}]++
	}

	versions := make([]config.Version, 0, len(running))
	for v := range running {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	majority := versions[0]
	total := 0
	for i := len(versions) - 1; i >= 0; i-- {
		total += running[versions[i]]
		if total >= required {
			majority = versions[i]
			break
		}
	}
	st.ModifyWitnessSchedule(func(s *ledgercore.WitnessSchedule) {
		s.MajorityVersion = majority
	})

	candidates := make([]hardforkVote, 0, len(votes))
	for v, n := range votes {
		if n >= required {
			candidates = append(candidates, v)
		}
	}
	slices.SortFunc(candidates, func(a, b hardforkVote) int {
		if c := cmp.Compare(a.version, b.version); c != 0 {
			return c
		}
		return cmp.Compare(a.time, b.time)
	})
	st.ModifyHardforkProperties(func(h *ledgercore.HardforkProperties) {
		if len(candidates) == 0 {
			h.NextHardfork = h.CurrentHardforkVersion
			h.NextHardforkTime = basics.MaxTimestamp
			return
		}
		h.NextHardfork = candidates[0].version
		h.NextHardforkTime = candidates[0].time
	})
}

// ProcessHardforks applies, in order, every hardfork that is due: either
// voted in by the witnesses with a time that has passed, or scheduled at
// genesis for a time that has passed.
func ProcessHardforks(st *chainstate.State) {
	now := st.HeadBlockTime()
	for {
		h := st.HardforkProperties()
		if int(h.LastHardfork) >= config.NumHardforks {
			return
		}
		next := int(h.LastHardfork) + 1
		voted := config.HardforkVersions[h.LastHardfork] < h.NextHardfork && h.NextHardforkTime <= now
		scheduled := next <= len(h.GenesisSchedule) && h.GenesisSchedule[next-1] <= now
		if !voted && !scheduled {
			return
		}
		ApplyHardfork(st, next)
	}
}

// ApplyHardfork activates hardfork hf, which must be the one after the
// last applied hardfork.
func ApplyHardfork(st *chainstate.State, hf int) {
	h := st.HardforkProperties()
	if hf != int(h.LastHardfork)+1 || hf > config.NumHardforks {
		msg := fmt.Sprintf("hardfork %d applied out of order after %d", hf, h.LastHardfork)
		st.Log.Error(msg)
		panic(msg)
	}
	st.Log.Infof("applying hardfork %d (%v) at block %d", hf, config.HardforkVersions[hf], st.HeadBlockNum())

	switch hf {
	case config.HardforkSpinning:
		// Witnesses without a signing key leave the schedule from now on.
		ResetVirtualSchedule(st)
	}

	now := st.HeadBlockTime()
	st.ModifyHardforkProperties(func(h *ledgercore.HardforkProperties) {
		h.ProcessedHardforks = append(h.ProcessedHardforks, now)
		h.LastHardfork = uint32(hf)
		h.CurrentHardforkVersion = config.HardforkVersions[hf]
		if h.NextHardfork < h.CurrentHardforkVersion {
			h.NextHardfork = h.CurrentHardforkVersion
		}
	})
}

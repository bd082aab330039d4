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

package chainstate

import (
	"math"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// VirtualScheduleLapLength is the virtual distance a witness with one vote
// covers per lap of the schedule.
var VirtualScheduleLapLength = basics.U128(math.MaxUint64)

// AdjustProxiedWitnessVotes propagates a change of voting weight of name up
// its proxy chain. delta[0] is the change of name's own weight and
// delta[i] the change of weight proxied to name from i levels below. The
// account at the end of the chain applies the total to its witnesses.
func (s *State) AdjustProxiedWitnessVotes(name basics.AccountName, delta []int64) error {
	maxDepth := s.Params.MaxProxyRecursionDepth
	cur, ok := s.Accounts.Get(name)
	if !ok {
		return ledgercore.Assertf(protocol.UnknownOp, "account %s does not exist", name)
	}
	for hop := 0; ; hop++ {
		if cur.Proxy == "" {
			var total int64
			for i, d := range delta {
				if i+hop <= maxDepth {
					total += d
				}
			}
			if total == 0 {
				return nil
			}
			return s.adjustWitnessVotesOf(cur.Name, total)
		}
		if hop >= maxDepth {
			return nil
		}
		proxy := cur.Proxy
		err := s.Accounts.Modify(proxy, func(p *ledgercore.Account) error {
			if len(p.ProxiedVsfVotes) < maxDepth {
				p.ProxiedVsfVotes = append(p.ProxiedVsfVotes, make([]int64, maxDepth-len(p.ProxiedVsfVotes))...)
			}
			for i, d := range delta {
				if i+hop < maxDepth {
					p.ProxiedVsfVotes[i+hop] += d
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		cur, _ = s.Accounts.Get(proxy)
	}
}

// adjustWitnessVotesOf applies delta to every witness name votes for.
func (s *State) adjustWitnessVotesOf(name basics.AccountName, delta int64) error {
	var witnesses []basics.AccountName
	s.WitnessVotes.ScanFrom(ledgercore.PairKey{First: name}, func(k ledgercore.PairKey, _ ledgercore.WitnessVote) bool {
		if k.First != name {
			return false
		}
		witnesses = append(witnesses, k.Second)
		return true
	})
	for _, w := range witnesses {
		if err := s.AdjustWitnessVote(w, delta); err != nil {
			return err
		}
	}
	return nil
}

// AdjustWitnessVote changes a witness's votes. The witness's virtual
// position is advanced to the current virtual time at its old vote count
// before its next scheduled time is recomputed with the new one.
func (s *State) AdjustWitnessVote(name basics.AccountName, delta int64) error {
	vtime := s.WitnessSchedule().CurrentVirtualTime
	totalVesting := s.DGP().TotalVestingShares
	return s.Witnesses.Modify(name, func(w *ledgercore.Witness) error {
		w.VirtualPosition, _ = AdvanceVirtualPosition(*w, vtime)
		w.VirtualLastUpdate = vtime
		w.Votes += delta
		if w.Votes < 0 {
			return ledgercore.Assertf(protocol.UnknownOp, "witness %s votes would become negative", name)
		}
		if w.Votes > totalVesting {
			return ledgercore.Assertf(protocol.UnknownOp, "witness %s votes exceed the total vesting shares", name)
		}
		w.VirtualScheduledTime = NextScheduledTime(*w, vtime)
		return nil
	})
}

// AdvanceVirtualPosition returns the witness's position after moving
// from its last update to vtime at its current votes. The second result
// reports overflow.
func AdvanceVirtualPosition(w ledgercore.Witness, vtime basics.Uint128) (basics.Uint128, bool) {
	elapsed, underflow := vtime.Sub(w.VirtualLastUpdate)
	if underflow {
		return w.VirtualPosition, true
	}
	step, overflow := elapsed.MulUint64(uint64(w.Votes))
	if overflow {
		return basics.MaxUint128, true
	}
	pos, overflow := w.VirtualPosition.Add(step)
	if overflow {
		return basics.MaxUint128, true
	}
	return pos, false
}

// NextScheduledTime is the virtual time at which the witness completes its
// lap: last_update + (lap - position) / (votes + 1). A lap that cannot be
// represented schedules the witness never.
func NextScheduledTime(w ledgercore.Witness, vtime basics.Uint128) basics.Uint128 {
	remaining, underflow := VirtualScheduleLapLength.Sub(w.VirtualPosition)
	if underflow {
		return basics.MaxUint128
	}
	t, overflow := w.VirtualLastUpdate.Add(remaining.DivUint64(uint64(w.Votes) + 1))
	if overflow || t.Less(vtime) {
		return basics.MaxUint128
	}
	return t
}

// AdjustPlatformVotes applies delta to every streaming platform name
// approves.
func (s *State) AdjustPlatformVotes(name basics.AccountName, delta int64) {
	var platforms []basics.AccountName
	s.PlatformVotes.ScanFrom(ledgercore.PairKey{First: name}, func(k ledgercore.PairKey, _ ledgercore.StreamingPlatformVote) bool {
		if k.First != name {
			return false
		}
		platforms = append(platforms, k.Second)
		return true
	})
	for _, p := range platforms {
		s.Platforms.Modify(p, func(sp *ledgercore.StreamingPlatform) error {
			sp.Votes += delta
			return nil
		})
	}
}

// ClearWitnessVotes removes every witness vote of name without adjusting
// the witnesses; callers take the weight away first.
func (s *State) ClearWitnessVotes(name basics.AccountName) {
	var keys []ledgercore.PairKey
	s.WitnessVotes.ScanFrom(ledgercore.PairKey{First: name}, func(k ledgercore.PairKey, _ ledgercore.WitnessVote) bool {
		if k.First != name {
			return false
		}
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		s.WitnessVotes.Remove(k)
	}
	s.Accounts.Modify(name, func(a *ledgercore.Account) error {
		a.WitnessesVotedFor = 0
		return nil
	})
}

// VoteWeights returns the change vector that removes (or, negated, adds)
// all voting weight name contributes: its effective vesting and each level
// of proxied vesting.
func VoteWeights(a ledgercore.Account, maxDepth int) []int64 {
	w := make([]int64, maxDepth+1)
	w[0] = a.EffectiveVestingShares()
	for i := 0; i < maxDepth && i < len(a.ProxiedVsfVotes); i++ {
		w[i+1] = a.ProxiedVsfVotes[i]
	}
	return w
}

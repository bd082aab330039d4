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

package rewards

import (
	"maps"
	"slices"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/apply"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// cashoutStats are the listening statistics a cashout pays against, read
// before anything is drained.
type cashoutStats struct {
	activeUsers   int64
	totalTime     int64
	consumerTime  map[basics.AccountName]int64
	platformTime  map[basics.AccountName]int64
	platformStake map[basics.AccountName]int64
	totalStake    int64
}

// ProcessContentCashout pays out every report older than one
// ContentRewardInterval, once per interval. Half of the content reward pool
// is shared evenly between the active listeners; the other half goes to
// platforms by stake and, within a platform, by play time.
func ProcessContentCashout(st *chainstate.State) error {
	p := st.Params
	now := st.HeadBlockTime()
	d := st.DGP()
	if now.Sub(d.LastContentCashout) < p.ContentRewardInterval {
		return nil
	}
	cutoff := now.Add(-p.ContentRewardInterval)

	byPlatform := make(map[basics.AccountName][]ledgercore.Report)
	var drained []ledgercore.Report
	st.Reports.Scan(func(_ uint64, r ledgercore.Report) bool {
		if r.Created > cutoff {
			return false
		}
		byPlatform[r.StreamingPlatform] = append(byPlatform[r.StreamingPlatform], r)
		drained = append(drained, r)
		return true
	})
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.LastContentCashout = now
	})
	if len(drained) == 0 {
		return nil
	}

	stats := cashoutStats{
		activeUsers:   int64(d.ActiveUsers),
		totalTime:     d.TotalListeningTime,
		consumerTime:  make(map[basics.AccountName]int64),
		platformTime:  make(map[basics.AccountName]int64),
		platformStake: make(map[basics.AccountName]int64),
	}
	for _, r := range drained {
		if _, ok := stats.consumerTime[r.Consumer]; !ok {
			a, _ := st.Accounts.Get(r.Consumer)
			stats.consumerTime[r.Consumer] = a.ListeningTime
		}
	}
	platforms := slices.Sorted(maps.Keys(byPlatform))
	for _, name := range platforms {
		sp, _ := st.Platforms.Get(name)
		stats.platformTime[name] = sp.ListeningTime
		a, _ := st.Accounts.Get(name)
		stake := max(a.EffectiveVestingShares(), 0)
		stats.platformStake[name] = stake
		stats.totalStake += stake
	}

	pool := d.TotalRewardFund
	even := pool / 2
	timed := pool - even

	var paid int64
	for _, name := range platforms {
		timedShare := platformShare(stats, name, timed)
		for _, r := range byPlatform[name] {
			reward := reportReward(stats, r, even, timedShare)
			if reward == 0 {
				continue
			}
			if err := payReport(st, r, reward); err != nil {
				return err
			}
			paid += reward
		}
	}
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.TotalRewardFund -= paid
	})

	for _, r := range drained {
		st.Reports.Remove(r.ID)
	}
	drainListeningTime(st, drained)
	st.Log.Debugf("content cashout at %v: %d reports on %d platforms, paid %d of %d", now, len(drained), len(platforms), paid, pool)
	return nil
}

// platformShare is the part of the timed pool owed to one platform.
func platformShare(stats cashoutStats, name basics.AccountName, timed int64) int64 {
	if stats.totalStake > 0 {
		share, _ := basics.MuldivAmount(timed, stats.platformStake[name], stats.totalStake)
		return share
	}
	if stats.totalTime <= 0 {
		return 0
	}
	share, _ := basics.MuldivAmount(timed, stats.platformTime[name], stats.totalTime)
	return share
}

func reportReward(stats cashoutStats, r ledgercore.Report, even, timedShare int64) int64 {
	play := int64(r.PlayTime)
	var reward int64
	if ct := stats.consumerTime[r.Consumer]; ct > 0 && stats.activeUsers > 0 {
		den, overflowed := basics.OMul(uint64(ct), uint64(stats.activeUsers))
		if !overflowed && even > 0 {
			part, _ := basics.Muldiv(uint64(even), uint64(play), den)
			reward += int64(part)
		}
	}
	if pt := stats.platformTime[r.StreamingPlatform]; pt > 0 {
		part, _ := basics.MuldivAmount(timedShare, play, pt)
		reward += part
	}
	return reward
}

// payReport splits one report's reward between the platform side, paid in
// vesting, and the content side, paid liquid to its distributions.
func payReport(st *chainstate.State, r ledgercore.Report, reward int64) error {
	c, ok := st.Contents.Get(r.Content)
	if !ok {
		return nil
	}
	platformCut := basics.MulPercent(reward, uint32(c.PlayingReward))
	contentCut := reward - platformCut

	toPlatform := platformCut
	if r.SpinningPlatform != "" {
		key := ledgercore.PairKey{First: r.StreamingPlatform, Second: r.SpinningPlatform}
		if del, ok := st.ReportingDelegations.Get(key); ok {
			toReporter := basics.MulPercent(platformCut, uint32(del.RewardPct))
			if toReporter > 0 {
				if _, err := st.CreateVesting(r.SpinningPlatform, toReporter); err != nil {
					return err
				}
			}
			toPlatform -= toReporter
		}
	}
	if toPlatform > 0 {
		if _, err := st.CreateVesting(r.StreamingPlatform, toPlatform); err != nil {
			return err
		}
	}

	var compCut int64
	if len(c.DistributionsComp) > 0 {
		compCut = basics.MulPercent(contentCut, uint32(c.PublishersShare))
	}
	masterCut := contentCut - compCut

	masterLeft, err := distribute(st, c.DistributionsMaster, masterCut)
	if err != nil {
		return err
	}
	compLeft, err := distribute(st, c.DistributionsComp, compCut)
	if err != nil {
		return err
	}
	return st.Contents.Modify(r.Content, func(c *ledgercore.Content) error {
		c.AccumulatedBalanceMaster += masterLeft
		c.AccumulatedBalanceComp += compLeft
		return nil
	})
}

// distribute pays each payee its share of amount and returns what is left.
func distribute(st *chainstate.State, dists []transactions.Distribution, amount int64) (int64, error) {
	left := amount
	for _, d := range dists {
		share := basics.MulPercent(amount, uint32(d.Bp))
		if share == 0 {
			continue
		}
		if err := st.AdjustBalance(d.Payee, basics.Muse(share)); err != nil {
			return 0, err
		}
		left -= share
	}
	return left, nil
}

// drainListeningTime takes the drained play time off each consumer and
// platform in one pass and moves the global statistics along.
func drainListeningTime(st *chainstate.State, drained []ledgercore.Report) {
	consumers := make(map[basics.AccountName]int64)
	platforms := make(map[basics.AccountName]int64)
	for _, r := range drained {
		consumers[r.Consumer] += int64(r.PlayTime)
		platforms[r.StreamingPlatform] += int64(r.PlayTime)
	}
	for _, name := range slices.Sorted(maps.Keys(consumers)) {
		a, ok := st.Accounts.Get(name)
		if !ok {
			continue
		}
		after := max(a.ListeningTime-consumers[name], 0)
		st.ModifyAccount(name, func(a *ledgercore.Account) error {
			a.ListeningTime = after
			return nil
		})
		apply.AdjustListeningStats(st, a.ListeningTime, after)
	}
	for _, name := range slices.Sorted(maps.Keys(platforms)) {
		if !st.Platforms.Has(name) {
			continue
		}
		st.Platforms.Modify(name, func(p *ledgercore.StreamingPlatform) error {
			p.ListeningTime = max(p.ListeningTime-platforms[name], 0)
			return nil
		})
	}
}

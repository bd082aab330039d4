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
	"fmt"
	"math"
	"slices"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// MaxVirtualBandwidth is the network bandwidth allowance at a block size
// limit and reserve ratio, saturating at the largest uint64.
func MaxVirtualBandwidth(params config.ConsensusParams, maxBlockSize uint32, reserveRatio uint64) uint64 {
	perBlock, overflowed := basics.OMul(uint64(maxBlockSize), reserveRatio)
	if overflowed {
		return math.MaxUint64
	}
	window := uint64(params.BandwidthPrecision * params.BandwidthAverageWindow)
	res, overflowed := basics.Muldiv(perBlock, window, uint64(params.BlockInterval))
	if overflowed {
		return math.MaxUint64
	}
	return res
}

// InitGenesis fills an empty state from a genesis definition. Hardforks
// scheduled at or before the genesis time are active from the start.
func (s *State) InitGenesis(g bookkeeping.Genesis) error {
	if s.Globals.Len() != 0 {
		return fmt.Errorf("chainstate: genesis applied to a non-empty state")
	}
	p := s.Params
	props := transactions.DefaultChainProperties(p)

	s.Globals.Create(ledgercore.Singleton, ledgercore.DynamicGlobalProperties{
		Time:                g.Timestamp,
		GenesisTime:         g.Timestamp,
		MaximumBlockSize:    props.MaximumBlockSize,
		RecentSlotsFilled:   basics.MaxUint128,
		ParticipationCount:  128,
		CurrentReserveRatio: 1,
		MaxVirtualBandwidth: MaxVirtualBandwidth(p, props.MaximumBlockSize, 1),
		MbdInterestRate:     props.MbdInterestRate,
		LastContentCashout:  g.Timestamp,
	})
	s.Feed.Create(ledgercore.Singleton, ledgercore.FeedHistory{})

	hf := ledgercore.HardforkProperties{
		ProcessedHardforks:     []basics.Timestamp{g.Timestamp},
		CurrentHardforkVersion: config.HardforkVersions[config.HardforkGenesis],
		GenesisSchedule:        slices.Clone(g.HardforkTimes),
	}
	for i, t := range g.HardforkTimes {
		if t > g.Timestamp {
			break
		}
		hf.LastHardfork = uint32(i + 1)
		hf.CurrentHardforkVersion = config.HardforkVersions[i+1]
		hf.ProcessedHardforks = append(hf.ProcessedHardforks, t)
	}
	hf.NextHardfork = hf.CurrentHardforkVersion
	hf.NextHardforkTime = basics.MaxTimestamp
	s.Hardforks.Create(ledgercore.Singleton, hf)

	var supply, mbdSupply int64
	for _, ga := range g.Accounts {
		acct := ledgercore.Account{
			Name:                   ga.Name,
			Owner:                  basics.KeyAuthority(ga.OwnerKey),
			Active:                 basics.KeyAuthority(ga.ActiveKey),
			Basic:                  basics.KeyAuthority(ga.BasicKey),
			MemoKey:                ga.MemoKey,
			Created:                g.Timestamp,
			Balance:                ga.Balance,
			MbdBalance:             ga.MbdBalance,
			MbdSecondsLastUpdate:   g.Timestamp,
			MbdLastInterestPayment: g.Timestamp,
			LastBandwidthUpdate:    g.Timestamp,
			NextVestingWithdrawal:  basics.MaxTimestamp,
		}
		if err := s.Accounts.Create(ga.Name, acct); err != nil {
			return err
		}
		supply += ga.Balance
		mbdSupply += ga.MbdBalance
	}
	s.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.CurrentSupply = supply
		d.VirtualSupply = supply
		d.CurrentMbdSupply = mbdSupply
	})
	for _, ga := range g.Accounts {
		if ga.Vesting == 0 {
			continue
		}
		if _, err := s.CreateVesting(ga.Name, ga.Vesting); err != nil {
			return err
		}
		s.AdjustSupply(basics.Muse(ga.Vesting))
	}

	sched := ledgercore.WitnessSchedule{
		MedianProps:     props,
		MajorityVersion: hf.CurrentHardforkVersion,
	}
	for _, gw := range g.Witnesses {
		w := ledgercore.Witness{
			Owner:                gw.Owner,
			Created:              g.Timestamp,
			URL:                  gw.URL,
			SigningKey:           gw.SigningKey,
			Props:                props,
			Schedule:             ledgercore.TopScheduled,
			VirtualScheduledTime: basics.MaxUint128,
			RunningVersion:       hf.CurrentHardforkVersion,
			HardforkVersionVote:  hf.CurrentHardforkVersion,
		}
		if err := s.Witnesses.Create(gw.Owner, w); err != nil {
			return err
		}
		sched.CurrentShuffledWitnesses = append(sched.CurrentShuffledWitnesses, gw.Owner)
	}
	sched.NextShuffleBlockNum = uint32(len(sched.CurrentShuffledWitnesses))
	s.Schedule.Create(ledgercore.Singleton, sched)
	return nil
}

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
	"cmp"
	"slices"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
)

// ScheduleKind records how a witness got into the current schedule.
type ScheduleKind uint8

// Schedule kinds.
const (
	NotScheduled ScheduleKind = iota
	TopScheduled
	RunnerScheduled
)

// Witness is a block producer candidate.
type Witness struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner      basics.AccountName           `codec:"owner"`
	Created    basics.Timestamp             `codec:"created"`
	URL        string                       `codec:"url"`
	SigningKey crypto.PublicKey             `codec:"key"`
	Props      transactions.ChainProperties `codec:"props"`

	MbdExchangeRate       basics.Price     `codec:"rate"`
	LastMbdExchangeUpdate basics.Timestamp `codec:"rateupd"`

	Votes                int64          `codec:"votes"`
	Schedule             ScheduleKind   `codec:"sched"`
	VirtualLastUpdate    basics.Uint128 `codec:"vlast"`
	VirtualPosition      basics.Uint128 `codec:"vpos"`
	VirtualScheduledTime basics.Uint128 `codec:"vtime"`

	TotalMissed           uint32 `codec:"missed"`
	LastAslot             uint64 `codec:"aslot"`
	LastConfirmedBlockNum uint32 `codec:"lastblock"`

	RunningVersion      config.Version   `codec:"ver"`
	HardforkVersionVote config.Version   `codec:"hfver"`
	HardforkTimeVote    basics.Timestamp `codec:"hftime"`
}

// Clone returns a copy.
func (w Witness) Clone() Witness {
	return w
}

// CompareWitnessVotes orders witnesses by votes, most first.
func CompareWitnessVotes(a, b Witness) int {
	return cmp.Compare(b.Votes, a.Votes)
}

// CompareWitnessScheduleTime orders witnesses by virtual scheduled time.
func CompareWitnessScheduleTime(a, b Witness) int {
	return a.VirtualScheduledTime.Cmp(b.VirtualScheduledTime)
}

// WitnessVote is an account's approval of a witness, keyed by
// PairKey{Account, Witness}.
type WitnessVote struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account basics.AccountName `codec:"a"`
	Witness basics.AccountName `codec:"w"`
}

// Clone returns a copy.
func (v WitnessVote) Clone() WitnessVote { return v }

// WitnessSchedule is the singleton holding the current round of producers.
type WitnessSchedule struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	CurrentVirtualTime       basics.Uint128               `codec:"vtime"`
	NextShuffleBlockNum      uint32                       `codec:"nextshuffle"`
	CurrentShuffledWitnesses []basics.AccountName         `codec:"shuffled"`
	MedianProps              transactions.ChainProperties `codec:"median"`
	MajorityVersion          config.Version               `codec:"majority"`
}

// Clone returns a deep copy.
func (s WitnessSchedule) Clone() WitnessSchedule {
	s.CurrentShuffledWitnesses = slices.Clone(s.CurrentShuffledWitnesses)
	return s
}

// NumScheduled is the number of producers in the current round.
func (s WitnessSchedule) NumScheduled() int {
	return len(s.CurrentShuffledWitnesses)
}

// HardforkProperties tracks which hardforks are active.
type HardforkProperties struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// ProcessedHardforks holds the activation time of each applied hardfork.
	ProcessedHardforks     []basics.Timestamp `codec:"processed"`
	LastHardfork           uint32             `codec:"last"`
	CurrentHardforkVersion config.Version     `codec:"current"`
	NextHardfork           config.Version     `codec:"next"`
	NextHardforkTime       basics.Timestamp   `codec:"nexttime"`

	// GenesisSchedule[i], when present, activates hardfork i+1 at that
	// time regardless of witness votes.
	GenesisSchedule []basics.Timestamp `codec:"gsched"`
}

// Clone returns a deep copy.
func (h HardforkProperties) Clone() HardforkProperties {
	h.ProcessedHardforks = slices.Clone(h.ProcessedHardforks)
	h.GenesisSchedule = slices.Clone(h.GenesisSchedule)
	return h
}

// FeedHistory is the rolling window of witness price feeds, as MBD/MUSE
// prices. CurrentMedianHistory is the price conversions and the virtual
// supply use; once the MBD cap applies it may differ from the raw median of
// PriceHistory, kept in RawMedianHistory.
type FeedHistory struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	CurrentMedianHistory basics.Price   `codec:"median"`
	RawMedianHistory     basics.Price   `codec:"raw"`
	PriceHistory         []basics.Price `codec:"history"`
}

// Clone returns a deep copy.
func (f FeedHistory) Clone() FeedHistory {
	f.PriceHistory = slices.Clone(f.PriceHistory)
	return f
}

// DynamicGlobalProperties is the singleton of per-block chain state.
type DynamicGlobalProperties struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	HeadBlockNumber uint32             `codec:"head"`
	HeadBlockID     crypto.Digest      `codec:"headid"`
	Time            basics.Timestamp   `codec:"time"`
	GenesisTime     basics.Timestamp   `codec:"genesis"`
	CurrentWitness  basics.AccountName `codec:"witness"`

	CurrentSupply      int64  `codec:"supply"`
	VirtualSupply      int64  `codec:"vsupply"`
	CurrentMbdSupply   int64  `codec:"mbdsupply"`
	TotalVestingFund   int64  `codec:"vfund"`
	TotalVestingShares int64  `codec:"vshares"`
	TotalRewardFund    int64  `codec:"rfund"`
	MbdInterestRate    uint16 `codec:"mbdrate"`

	MaximumBlockSize   uint32         `codec:"maxblock"`
	AverageBlockSize   uint32         `codec:"avgblock"`
	CurrentAslot       uint64         `codec:"aslot"`
	RecentSlotsFilled  basics.Uint128 `codec:"filled"`
	ParticipationCount uint8          `codec:"participation"`

	LastIrreversibleBlockNum uint32 `codec:"lib"`

	MaxVirtualBandwidth uint64 `codec:"maxvbw"`
	CurrentReserveRatio uint64 `codec:"reserve"`

	ActiveUsers           uint32           `codec:"active"`
	FullTimeUsers         uint32           `codec:"fulltime"`
	TotalListeningTime    int64            `codec:"listen"`
	FullTimeListeningTime int64            `codec:"fulllisten"`
	LastContentCashout    basics.Timestamp `codec:"cashout"`
}

// Clone returns a copy.
func (d DynamicGlobalProperties) Clone() DynamicGlobalProperties { return d }

// VestingSharePrice is the MUSE/VESTS price. Before any vesting exists it
// is the initial price.
func (d DynamicGlobalProperties) VestingSharePrice(proto config.ConsensusParams) basics.Price {
	if d.TotalVestingFund == 0 || d.TotalVestingShares == 0 {
		return basics.MakePrice(basics.Muse(1), basics.Vests(proto.InitialVestingPerMuse))
	}
	return basics.MakePrice(basics.Muse(d.TotalVestingFund), basics.Vests(d.TotalVestingShares))
}

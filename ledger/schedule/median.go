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
	"slices"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// UpdateMedianWitnessProps sets each chain property to the median of the
// values voted by the scheduled witnesses.
func UpdateMedianWitnessProps(st *chainstate.State) {
	ws := ActiveWitnesses(st)
	if len(ws) == 0 {
		return
	}
	mid := len(ws) / 2

	slices.SortFunc(ws, func(a, b ledgercore.Witness) int {
		return cmp.Compare(a.Props.AccountCreationFee.Amount, b.Props.AccountCreationFee.Amount)
	})
	fee := ws[mid].Props.AccountCreationFee
	slices.SortFunc(ws, func(a, b ledgercore.Witness) int {
		return cmp.Compare(a.Props.MaximumBlockSize, b.Props.MaximumBlockSize)
	})
	blockSize := ws[mid].Props.MaximumBlockSize
	slices.SortFunc(ws, func(a, b ledgercore.Witness) int {
		return cmp.Compare(a.Props.MbdInterestRate, b.Props.MbdInterestRate)
	})
	rate := ws[mid].Props.MbdInterestRate

	st.ModifyWitnessSchedule(func(s *ledgercore.WitnessSchedule) {
		s.MedianProps = transactions.ChainProperties{
			AccountCreationFee: fee,
			MaximumBlockSize:   blockSize,
			MbdInterestRate:    rate,
		}
	})
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.MaximumBlockSize = blockSize
		d.MbdInterestRate = rate
	})
}

func comparePrice(a, b basics.Price) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// UpdateMedianFeed folds the median of the fresh witness feeds into the
// price history every FeedIntervalBlocks blocks and re-derives the median
// price. Once reporting delegation is active the price in force is limited
// so that the MBD supply is worth at most MbdPercentCap of the virtual
// supply.
func UpdateMedianFeed(st *chainstate.State) {
	p := st.Params
	head := st.HeadBlockNum()
	if p.FeedIntervalBlocks == 0 || head%p.FeedIntervalBlocks != 0 {
		return
	}
	now := st.HeadBlockTime()

	var feeds []basics.Price
	for _, w := range ActiveWitnesses(st) {
		if w.MbdExchangeRate.IsNull() || now.Sub(w.LastMbdExchangeUpdate) >= p.MaxFeedAge {
			continue
		}
		feeds = append(feeds, w.MbdExchangeRate)
	}
	if len(feeds) < p.MinFeeds || len(feeds) == 0 {
		return
	}
	slices.SortFunc(feeds, comparePrice)
	median := feeds[len(feeds)/2]

	d := st.DGP()
	clamp := st.HasHardfork(config.HardforkSpinning)
	st.ModifyFeedHistory(func(f *ledgercore.FeedHistory) {
		f.PriceHistory = append(f.PriceHistory, median)
		if extra := len(f.PriceHistory) - p.FeedHistoryWindow; extra > 0 {
			f.PriceHistory = slices.Delete(f.PriceHistory, 0, extra)
		}
		sorted := slices.Clone(f.PriceHistory)
		slices.SortFunc(sorted, comparePrice)
		f.RawMedianHistory = sorted[len(sorted)/2]
		f.CurrentMedianHistory = f.RawMedianHistory
		if clamp {
			if floor, ok := minMbdPrice(p, d); ok && f.CurrentMedianHistory.Less(floor) {
				f.CurrentMedianHistory = floor
			}
		}
	})

	price := st.FeedHistory().CurrentMedianHistory
	virtual := d.CurrentSupply
	if mbd, err := price.Mul(basics.Mbd(d.CurrentMbdSupply)); err == nil {
		virtual += mbd.Amount
	}
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.VirtualSupply = virtual
	})
}

// minMbdPrice is the MBD/MUSE price at which the MBD supply is worth
// exactly MbdPercentCap of the combined supply.
func minMbdPrice(p config.ConsensusParams, d ledgercore.DynamicGlobalProperties) (basics.Price, bool) {
	if d.CurrentMbdSupply <= 0 || d.CurrentSupply <= 0 || p.MbdPercentCap <= 0 || p.MbdPercentCap >= basics.Percent100 {
		return basics.Price{}, false
	}
	base, overflowed := basics.MuldivAmount(d.CurrentMbdSupply, basics.Percent100-p.MbdPercentCap, p.MbdPercentCap)
	if overflowed || base == 0 {
		return basics.Price{}, false
	}
	return basics.MakePrice(basics.Mbd(base), basics.Muse(d.CurrentSupply)), true
}

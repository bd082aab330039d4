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

package ledger

import (
	"fmt"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// ValidateInvariants recomputes the supplies, vesting totals and vote
// tallies from every record and compares them with the cached aggregates.
func (c *Chain) ValidateInvariants() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return err
	}
	return c.validateInvariants()
}

func invariantf(format string, args ...interface{}) error {
	return ledgercore.InvariantError{Reason: fmt.Sprintf(format, args...)}
}

type auditTotals struct {
	muse          int64
	mbd           int64
	vestingShares int64
	delegated     int64
	received      int64
	redelegated   int64
	rereceived    int64
	assets        map[basics.Symbol]int64
	witnessVotes  map[basics.AccountName]int64
	platformVotes map[basics.AccountName]int64
}

func (c *Chain) validateInvariants() error {
	st := c.st
	t := auditTotals{
		assets:        make(map[basics.Symbol]int64),
		witnessVotes:  make(map[basics.AccountName]int64),
		platformVotes: make(map[basics.AccountName]int64),
	}
	var err error
	fail := func(e error) bool {
		err = e
		return false
	}

	st.Accounts.Scan(func(name basics.AccountName, a ledgercore.Account) bool {
		switch {
		case a.Balance < 0 || a.MbdBalance < 0 || a.VestingShares < 0:
			return fail(invariantf("account %s has a negative balance", name))
		case a.EffectiveVestingShares() < 0:
			return fail(invariantf("account %s has negative effective vesting %d", name, a.EffectiveVestingShares()))
		}
		t.muse += a.Balance
		t.mbd += a.MbdBalance
		t.vestingShares += a.VestingShares
		t.delegated += a.DelegatedVestingShares
		t.received += a.ReceivedVestingShares
		t.redelegated += a.RedelegatedVestingShares
		t.rereceived += a.RereceivedVestingShares
		for _, h := range a.Assets {
			if h.Amount < 0 {
				return fail(invariantf("account %s holds a negative %s balance", name, h.Symbol))
			}
			t.assets[h.Symbol] += h.Amount
		}
		return true
	})
	if err != nil {
		return err
	}

	st.Orders.Scan(func(k ledgercore.OwnedKey, o ledgercore.LimitOrder) bool {
		if o.ForSale <= 0 {
			return fail(invariantf("order %s/%d has nothing for sale", k.Owner, k.ID))
		}
		switch sym := o.SellPrice.Base.Symbol; sym {
		case basics.MUSE:
			t.muse += o.ForSale
		case basics.MBD:
			t.mbd += o.ForSale
		default:
			t.assets[sym] += o.ForSale
		}
		return true
	})
	if err != nil {
		return err
	}

	st.Conversions.Scan(func(_ ledgercore.OwnedKey, r ledgercore.ConvertRequest) bool {
		t.mbd += r.Amount
		return true
	})
	st.Contents.Scan(func(_ string, ct ledgercore.Content) bool {
		t.muse += ct.AccumulatedBalanceMaster + ct.AccumulatedBalanceComp
		return true
	})
	st.DelegationExpirations.Scan(func(_ uint64, e ledgercore.VestingDelegationExpiration) bool {
		t.received += e.VestingShares
		return true
	})

	st.WitnessVotes.Scan(func(k ledgercore.PairKey, _ ledgercore.WitnessVote) bool {
		voter, ok := st.Accounts.Get(k.First)
		if !ok {
			return fail(invariantf("witness vote by unknown account %s", k.First))
		}
		t.witnessVotes[k.Second] += voter.WitnessVoteWeight()
		return true
	})
	if err != nil {
		return err
	}
	st.PlatformVotes.Scan(func(k ledgercore.PairKey, _ ledgercore.StreamingPlatformVote) bool {
		voter, ok := st.Accounts.Get(k.First)
		if !ok {
			return fail(invariantf("platform vote by unknown account %s", k.First))
		}
		t.platformVotes[k.Second] += voter.EffectiveVestingShares()
		return true
	})
	if err != nil {
		return err
	}

	d := st.DGP()
	t.muse += d.TotalVestingFund + d.TotalRewardFund
	switch {
	case t.muse != d.CurrentSupply:
		return invariantf("MUSE supply is %d, records hold %d", d.CurrentSupply, t.muse)
	case t.mbd != d.CurrentMbdSupply:
		return invariantf("MBD supply is %d, records hold %d", d.CurrentMbdSupply, t.mbd)
	case t.vestingShares != d.TotalVestingShares:
		return invariantf("total vesting shares are %d, accounts hold %d", d.TotalVestingShares, t.vestingShares)
	case t.delegated != t.received:
		return invariantf("%d vesting shares delegated, %d received or returning", t.delegated, t.received)
	case t.redelegated != t.rereceived:
		return invariantf("%d vesting shares redelegated, %d rereceived", t.redelegated, t.rereceived)
	}

	st.Assets.Scan(func(sym basics.Symbol, a ledgercore.AssetObject) bool {
		if held := t.assets[sym]; held != a.CurrentSupply {
			return fail(invariantf("asset %s supply is %d, records hold %d", sym, a.CurrentSupply, held))
		}
		if a.CurrentSupply > a.MaxSupply {
			return fail(invariantf("asset %s supply %d exceeds its maximum %d", sym, a.CurrentSupply, a.MaxSupply))
		}
		delete(t.assets, sym)
		return true
	})
	if err != nil {
		return err
	}
	for sym, held := range t.assets {
		if held != 0 {
			return invariantf("records hold %d of unknown asset %s", held, sym)
		}
	}

	st.Witnesses.Scan(func(name basics.AccountName, w ledgercore.Witness) bool {
		if w.Votes != t.witnessVotes[name] {
			return fail(invariantf("witness %s has %d votes, voters weigh %d", name, w.Votes, t.witnessVotes[name]))
		}
		return true
	})
	if err != nil {
		return err
	}
	st.Platforms.Scan(func(name basics.AccountName, p ledgercore.StreamingPlatform) bool {
		if p.Votes != t.platformVotes[name] {
			return fail(invariantf("platform %s has %d votes, voters weigh %d", name, p.Votes, t.platformVotes[name]))
		}
		return true
	})
	return err
}

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

// Package rewards mints the per-block inflation and pays the content
// reward pool out to the content, platforms and reporters behind the
// plays reported during the last interval.
package rewards

import (
	"fmt"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// Inflation is the MUSE minted for one block at the given supply: at least
// one unit while the supply is positive.
func Inflation(st *chainstate.State, supply int64) (int64, error) {
	if supply <= 0 {
		return 0, nil
	}
	p := st.Params
	amount, overflowed := basics.MuldivAmount(supply, p.InflationRateBP, basics.Percent100*p.BlocksPerYear)
	if overflowed {
		return 0, fmt.Errorf("inflation of supply %d overflows", supply)
	}
	return max(amount, 1), nil
}

// ProcessFunds mints the block's inflation and splits it between the
// content reward pool, the vesting fund and the producing witness, who is
// paid in vesting shares.
func ProcessFunds(st *chainstate.State) error {
	d := st.DGP()
	inflation, err := Inflation(st, d.CurrentSupply)
	if err != nil || inflation == 0 {
		return err
	}
	p := st.Params
	content := basics.MulPercent(inflation, uint32(p.ContentRewardPercent))
	vesting := basics.MulPercent(inflation, uint32(p.VestingFundPercent))
	witnessPay := inflation - content - vesting

	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.TotalRewardFund += content
		d.TotalVestingFund += vesting
	})
	st.AdjustSupply(basics.Muse(inflation))

	if witnessPay == 0 {
		return nil
	}
	if d.CurrentWitness == "" || !st.Accounts.Has(d.CurrentWitness) {
		// Nobody to pay: the witness share goes to the vesting fund.
		st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
			d.TotalVestingFund += witnessPay
		})
		return nil
	}
	_, err = st.CreateVesting(d.CurrentWitness, witnessPay)
	return err
}

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

	"github.com/algorand/go-muse/data/basics"
)

// VestingDelegation lends the voting and bandwidth weight of vesting
// shares from Delegator to Delegatee.
type VestingDelegation struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Delegator         basics.AccountName `codec:"from"`
	Delegatee         basics.AccountName `codec:"to"`
	VestingShares     int64              `codec:"vests"`
	MinDelegationTime basics.Timestamp   `codec:"mintime"`
}

// Clone returns a copy.
func (d VestingDelegation) Clone() VestingDelegation { return d }

// VestingDelegationExpiration holds undelegated shares until they return
// to the delegator.
type VestingDelegationExpiration struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ID            uint64             `codec:"id"`
	Delegator     basics.AccountName `codec:"from"`
	VestingShares int64              `codec:"vests"`
	Expiration    basics.Timestamp   `codec:"exp"`
}

// Clone returns a copy.
func (e VestingDelegationExpiration) Clone() VestingDelegationExpiration { return e }

// CompareDelegationExpiration orders expirations by maturity.
func CompareDelegationExpiration(a, b VestingDelegationExpiration) int {
	return cmp.Compare(a.Expiration, b.Expiration)
}

// WithdrawVestingRoute sends Percent of each withdrawal of From to To.
type WithdrawVestingRoute struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	From     basics.AccountName `codec:"from"`
	To       basics.AccountName `codec:"to"`
	Percent  uint16             `codec:"pct"`
	AutoVest bool               `codec:"vest"`
}

// Clone returns a copy.
func (r WithdrawVestingRoute) Clone() WithdrawVestingRoute { return r }

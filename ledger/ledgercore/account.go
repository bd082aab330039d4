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

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
)

// NameList is a sorted list of distinct account names.
type NameList []basics.AccountName

// Has reports whether n is in the list.
func (l NameList) Has(n basics.AccountName) bool {
	_, found := slices.BinarySearch(l, n)
	return found
}

// Add inserts n, keeping the list sorted. It reports whether n was new.
func (l *NameList) Add(n basics.AccountName) bool {
	i, found := slices.BinarySearch(*l, n)
	if found {
		return false
	}
	*l = slices.Insert(*l, i, n)
	return true
}

// Remove deletes n. It reports whether n was present.
func (l *NameList) Remove(n basics.AccountName) bool {
	i, found := slices.BinarySearch(*l, n)
	if !found {
		return false
	}
	*l = slices.Delete(*l, i, i+1)
	return true
}

// Account is the state of one account.
type Account struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Name         basics.AccountName `codec:"name"`
	Owner        basics.Authority   `codec:"owner"`
	Active       basics.Authority   `codec:"active"`
	Basic        basics.Authority   `codec:"basic"`
	MemoKey      crypto.PublicKey   `codec:"memo"`
	JSONMetadata string             `codec:"json"`
	Proxy        basics.AccountName `codec:"proxy"`

	Created           basics.Timestamp `codec:"created"`
	LastOwnerUpdate   basics.Timestamp `codec:"lastowner"`
	LastAccountUpdate basics.Timestamp `codec:"lastupdate"`

	RecoveryAccount     basics.AccountName `codec:"recovery"`
	LastAccountRecovery basics.Timestamp   `codec:"lastrecovery"`

	// A challenged authority stays flagged until its holder proves it;
	// an account update counts as proof.
	OwnerChallenged  bool             `codec:"ownerchal"`
	ActiveChallenged bool             `codec:"activechal"`
	LastOwnerProved  basics.Timestamp `codec:"ownerproved"`
	LastActiveProved basics.Timestamp `codec:"activeproved"`

	// Balance is liquid MUSE.
	Balance int64 `codec:"bal"`

	// MbdBalance earns interest: MbdSeconds accumulates balance*seconds
	// and is paid out every compound interval.
	MbdBalance             int64            `codec:"mbd"`
	MbdSeconds             basics.Uint128   `codec:"mbdsec"`
	MbdSecondsLastUpdate   basics.Timestamp `codec:"mbdsecupd"`
	MbdLastInterestPayment basics.Timestamp `codec:"mbdint"`

	// Assets holds user-issued asset balances, sorted by symbol.
	Assets []basics.Asset `codec:"assets"`

	VestingShares            int64 `codec:"vests"`
	DelegatedVestingShares   int64 `codec:"delegated"`
	ReceivedVestingShares    int64 `codec:"received"`
	RedelegatedVestingShares int64 `codec:"redelegated"`
	RereceivedVestingShares  int64 `codec:"rereceived"`

	VestingWithdrawRate   int64            `codec:"wrate"`
	NextVestingWithdrawal basics.Timestamp `codec:"wnext"`
	Withdrawn             int64            `codec:"withdrawn"`
	ToWithdraw            int64            `codec:"towithdraw"`
	WithdrawRoutes        uint16           `codec:"wroutes"`

	// ProxiedVsfVotes[i] is the vesting proxied to this account from i+1
	// levels below it.
	ProxiedVsfVotes        []int64 `codec:"proxied"`
	WitnessesVotedFor      uint16  `codec:"wvotes"`
	StreamingPlatformVotes uint16  `codec:"spvotes"`

	AverageBandwidth          uint64           `codec:"bw"`
	LifetimeBandwidth         uint64           `codec:"bwlife"`
	LastBandwidthUpdate       basics.Timestamp `codec:"bwupd"`
	AverageMarketBandwidth    uint64           `codec:"mbw"`
	LastMarketBandwidthUpdate basics.Timestamp `codec:"mbwupd"`

	Friends        NameList `codec:"friends"`
	SecondDegree   NameList `codec:"second"`
	WaitingFriends NameList `codec:"waiting"`
	Score          int64    `codec:"score"`

	// ListeningTime is the play time reported for this consumer and not
	// yet cashed out.
	ListeningTime int64 `codec:"listen"`
}

// Clone returns a deep copy.
func (a Account) Clone() Account {
	c := a
	c.Owner = a.Owner.Clone()
	c.Active = a.Active.Clone()
	c.Basic = a.Basic.Clone()
	c.Assets = slices.Clone(a.Assets)
	c.ProxiedVsfVotes = slices.Clone(a.ProxiedVsfVotes)
	c.Friends = slices.Clone(a.Friends)
	c.SecondDegree = slices.Clone(a.SecondDegree)
	c.WaitingFriends = slices.Clone(a.WaitingFriends)
	return c
}

// EffectiveVestingShares is the stake the account votes and transacts with.
func (a Account) EffectiveVestingShares() int64 {
	return a.VestingShares - a.DelegatedVestingShares + a.ReceivedVestingShares -
		a.RedelegatedVestingShares + a.RereceivedVestingShares
}

// WitnessVoteWeight is the account's own effective vesting plus everything
// proxied to it.
func (a Account) WitnessVoteWeight() int64 {
	w := a.EffectiveVestingShares()
	for _, v := range a.ProxiedVsfVotes {
		w += v
	}
	return w
}

// ProxiedVsfVotesTotal sums the proxied vesting of every level.
func (a Account) ProxiedVsfVotesTotal() int64 {
	var total int64
	for _, v := range a.ProxiedVsfVotes {
		total += v
	}
	return total
}

func bySymbol(x basics.Asset, s basics.Symbol) int {
	return cmp.Compare(x.Symbol, s)
}

// AssetBalance returns the balance of any symbol the account can hold
// liquid: MUSE, MBD or a user-issued asset.
func (a Account) AssetBalance(sym basics.Symbol) int64 {
	switch sym {
	case basics.MUSE:
		return a.Balance
	case basics.MBD:
		return a.MbdBalance
	case basics.VESTS:
		return a.VestingShares
	}
	i, found := slices.BinarySearchFunc(a.Assets, sym, bySymbol)
	if !found {
		return 0
	}
	return a.Assets[i].Amount
}

// SetAssetBalance sets the balance of a user-issued asset. A zero balance
// removes the entry.
func (a *Account) SetAssetBalance(sym basics.Symbol, amount int64) {
	i, found := slices.BinarySearchFunc(a.Assets, sym, bySymbol)
	switch {
	case found && amount == 0:
		a.Assets = slices.Delete(a.Assets, i, i+1)
	case found:
		a.Assets[i].Amount = amount
	case amount != 0:
		a.Assets = slices.Insert(a.Assets, i, basics.MakeAsset(amount, sym))
	}
}

// CompareNextWithdrawal orders accounts by their next vesting withdrawal.
func CompareNextWithdrawal(a, b Account) int {
	return cmp.Compare(a.NextVestingWithdrawal, b.NextVestingWithdrawal)
}

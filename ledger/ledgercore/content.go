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
	"slices"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
)

// Content is a royalty-bearing work.
type Content struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	URL          string             `codec:"url"`
	Uploader     basics.AccountName `codec:"uploader"`
	JSONMetadata string             `codec:"json"`
	Created      basics.Timestamp   `codec:"created"`
	LastUpdate   basics.Timestamp   `codec:"updated"`

	DistributionsMaster []transactions.Distribution `codec:"dmaster"`
	ManagementMaster    basics.Authority            `codec:"mmaster"`
	DistributionsComp   []transactions.Distribution `codec:"dcomp"`
	ManagementComp      basics.Authority            `codec:"mcomp"`

	PlayingReward   uint16 `codec:"playrew"`
	PublishersShare uint16 `codec:"pubshare"`

	// AccumulatedBalanceMaster and AccumulatedBalanceComp hold the MUSE
	// left over after paying the distributions of each side.
	AccumulatedBalanceMaster int64 `codec:"accmaster"`
	AccumulatedBalanceComp   int64 `codec:"acccomp"`

	TimesPlayed uint64 `codec:"played"`
	Disabled    bool   `codec:"disabled"`
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	c.DistributionsMaster = slices.Clone(c.DistributionsMaster)
	c.DistributionsComp = slices.Clone(c.DistributionsComp)
	c.ManagementMaster = c.ManagementMaster.Clone()
	c.ManagementComp = c.ManagementComp.Clone()
	return c
}

// Management returns the management authority of a side.
func (c Content) Management(side transactions.ContentSide) basics.Authority {
	if side == transactions.MasterSide {
		return c.ManagementMaster
	}
	return c.ManagementComp
}

// StreamingPlatform is a reporting agent for play time.
type StreamingPlatform struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner   basics.AccountName `codec:"owner"`
	URL     string             `codec:"url"`
	Created basics.Timestamp   `codec:"created"`
	Votes   int64              `codec:"votes"`

	// ListeningTime is the play time reported by this platform and not
	// yet cashed out.
	ListeningTime int64 `codec:"listen"`
}

// Clone returns a copy.
func (p StreamingPlatform) Clone() StreamingPlatform { return p }

// StreamingPlatformVote is an approval of a platform, keyed by
// PairKey{Account, Platform}.
type StreamingPlatformVote struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account  basics.AccountName `codec:"acct"`
	Platform basics.AccountName `codec:"platform"`
}

// Clone returns a copy.
func (v StreamingPlatformVote) Clone() StreamingPlatformVote { return v }

// Report is play time awaiting cashout. IDs grow with creation time.
type Report struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ID                uint64             `codec:"id"`
	StreamingPlatform basics.AccountName `codec:"platform"`
	SpinningPlatform  basics.AccountName `codec:"spinner"`
	Consumer          basics.AccountName `codec:"consumer"`
	Content           string             `codec:"content"`
	PlayTime          uint32             `codec:"play"`
	Created           basics.Timestamp   `codec:"created"`
}

// Clone returns a copy.
func (r Report) Clone() Report { return r }

// ReportingDelegation lets Reporter file reports for Platform, keyed by
// PairKey{Platform, Reporter}. Redelegated is the part of Platform's
// received vesting currently passed on to Reporter.
type ReportingDelegation struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Platform      basics.AccountName `codec:"platform"`
	Reporter      basics.AccountName `codec:"reporter"`
	RewardPct     uint16             `codec:"rewardpct"`
	RedelegatePct uint16             `codec:"redelegpct"`
	Redelegated   int64              `codec:"redelegated"`
}

// Clone returns a copy.
func (d ReportingDelegation) Clone() ReportingDelegation { return d }

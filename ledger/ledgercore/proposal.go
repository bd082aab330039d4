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
	"github.com/algorand/go-muse/data/transactions"
)

// Proposal is a stored batch of operations waiting for approvals.
type Proposal struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ID               uint64                   `codec:"id"`
	Author           basics.AccountName       `codec:"author"`
	ProposedOps      []transactions.Operation `codec:"ops"`
	Expiration       basics.Timestamp         `codec:"exp"`
	ReviewPeriodTime basics.Timestamp         `codec:"review"`

	RequiredOwnerApprovals  NameList `codec:"rowner"`
	RequiredActiveApprovals NameList `codec:"ractive"`
	RequiredBasicApprovals  NameList `codec:"rbasic"`
	RequiredMasterContent   []string `codec:"rmaster"`
	RequiredCompContent     []string `codec:"rcomp"`

	AvailableOwnerApprovals  NameList           `codec:"aowner"`
	AvailableActiveApprovals NameList           `codec:"aactive"`
	AvailableBasicApprovals  NameList           `codec:"abasic"`
	AvailableKeyApprovals    []crypto.PublicKey `codec:"akeys"`
}

// Clone returns a deep copy. Operation bodies are never modified in
// place, so they are shared.
func (p Proposal) Clone() Proposal {
	p.ProposedOps = slices.Clone(p.ProposedOps)
	p.RequiredOwnerApprovals = slices.Clone(p.RequiredOwnerApprovals)
	p.RequiredActiveApprovals = slices.Clone(p.RequiredActiveApprovals)
	p.RequiredBasicApprovals = slices.Clone(p.RequiredBasicApprovals)
	p.RequiredMasterContent = slices.Clone(p.RequiredMasterContent)
	p.RequiredCompContent = slices.Clone(p.RequiredCompContent)
	p.AvailableOwnerApprovals = slices.Clone(p.AvailableOwnerApprovals)
	p.AvailableActiveApprovals = slices.Clone(p.AvailableActiveApprovals)
	p.AvailableBasicApprovals = slices.Clone(p.AvailableBasicApprovals)
	p.AvailableKeyApprovals = slices.Clone(p.AvailableKeyApprovals)
	return p
}

// HasReviewPeriod reports whether approvals close before expiration.
func (p Proposal) HasReviewPeriod() bool {
	return p.ReviewPeriodTime != 0
}

// HasKeyApproval reports whether k approved the proposal.
func (p Proposal) HasKeyApproval(k crypto.PublicKey) bool {
	return slices.Contains(p.AvailableKeyApprovals, k)
}

// CompareProposalExpiration orders proposals by expiration.
func CompareProposalExpiration(a, b Proposal) int {
	return cmp.Compare(a.Expiration, b.Expiration)
}

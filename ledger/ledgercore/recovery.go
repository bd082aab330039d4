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
	"github.com/algorand/go-muse/data/basics"
)

// AccountRecoveryRequest is a recovery account's offer of a new owner
// authority, keyed by the account to recover.
type AccountRecoveryRequest struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	AccountToRecover  basics.AccountName `codec:"acct"`
	NewOwnerAuthority basics.Authority   `codec:"owner"`
	Expires           basics.Timestamp   `codec:"exp"`
}

// Clone returns a deep copy.
func (r AccountRecoveryRequest) Clone() AccountRecoveryRequest {
	r.NewOwnerAuthority = r.NewOwnerAuthority.Clone()
	return r
}

// OwnerAuthorityHistory remembers a replaced owner authority.
type OwnerAuthorityHistory struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	ID                     uint64             `codec:"id"`
	Account                basics.AccountName `codec:"acct"`
	PreviousOwnerAuthority basics.Authority   `codec:"prev"`
	LastValidTime          basics.Timestamp   `codec:"valid"`
}

// Clone returns a deep copy.
func (h OwnerAuthorityHistory) Clone() OwnerAuthorityHistory {
	h.PreviousOwnerAuthority = h.PreviousOwnerAuthority.Clone()
	return h
}

// ChangeRecoveryAccountRequest is a pending change of recovery account,
// keyed by the account.
type ChangeRecoveryAccountRequest struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	AccountToRecover basics.AccountName `codec:"acct"`
	RecoveryAccount  basics.AccountName `codec:"recovery"`
	EffectiveOn      basics.Timestamp   `codec:"effective"`
}

// Clone returns a copy.
func (r ChangeRecoveryAccountRequest) Clone() ChangeRecoveryAccountRequest { return r }

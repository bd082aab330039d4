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

package transactions

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/data/basics"
)

// RequiredAuthorities collects what a set of operations needs signed.
// Account tiers are satisfied by the named account's owner, active or basic
// authority; Other lists literal authorities; the content sets name content
// urls whose master or composer management authority must approve.
type RequiredAuthorities struct {
	Owner  mapset.Set[basics.AccountName]
	Active mapset.Set[basics.AccountName]
	Basic  mapset.Set[basics.AccountName]
	Other  []basics.Authority

	MasterContent mapset.Set[string]
	CompContent   mapset.Set[string]
}

// MakeRequiredAuthorities returns an empty collection.
func MakeRequiredAuthorities() *RequiredAuthorities {
	return &RequiredAuthorities{
		Owner:         mapset.NewThreadUnsafeSet[basics.AccountName](),
		Active:        mapset.NewThreadUnsafeSet[basics.AccountName](),
		Basic:         mapset.NewThreadUnsafeSet[basics.AccountName](),
		MasterContent: mapset.NewThreadUnsafeSet[string](),
		CompContent:   mapset.NewThreadUnsafeSet[string](),
	}
}

// IsEmpty reports whether nothing is required.
func (r *RequiredAuthorities) IsEmpty() bool {
	return r.Owner.Cardinality() == 0 && r.Active.Cardinality() == 0 && r.Basic.Cardinality() == 0 &&
		len(r.Other) == 0 && r.MasterContent.Cardinality() == 0 && r.CompContent.Cardinality() == 0
}

// Merge adds every requirement of o.
func (r *RequiredAuthorities) Merge(o *RequiredAuthorities) {
	r.Owner.Append(o.Owner.ToSlice()...)
	r.Active.Append(o.Active.ToSlice()...)
	r.Basic.Append(o.Basic.ToSlice()...)
	r.Other = append(r.Other, o.Other...)
	r.MasterContent.Append(o.MasterContent.ToSlice()...)
	r.CompContent.Append(o.CompContent.ToSlice()...)
}

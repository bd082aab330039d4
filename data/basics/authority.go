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

package basics

import (
	"fmt"
	"sort"

	"github.com/algorand/go-muse/crypto"
)

// AccountWeight is a weighted reference to another account's authority.
type AccountWeight struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Name   AccountName `codec:"n"`
	Weight uint16      `codec:"w"`
}

// KeyWeight is a weighted public key.
type KeyWeight struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Key    crypto.PublicKey `codec:"k"`
	Weight uint16           `codec:"w"`
}

// Authority is a weighted threshold over keys and other accounts. It is
// satisfied when the weights of the satisfied entries reach WeightThreshold.
// Both lists are kept sorted and free of duplicates.
type Authority struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	WeightThreshold uint32          `codec:"t"`
	AccountAuths    []AccountWeight `codec:"a"`
	KeyAuths        []KeyWeight     `codec:"k"`
}

// KeyAuthority returns a threshold-1 authority over a single key.
func KeyAuthority(pk crypto.PublicKey) Authority {
	return Authority{WeightThreshold: 1, KeyAuths: []KeyWeight{{Key: pk, Weight: 1}}}
}

// AccountAuthority returns a threshold-1 authority over a single account.
func AccountAuthority(name AccountName) Authority {
	return Authority{WeightThreshold: 1, AccountAuths: []AccountWeight{{Name: name, Weight: 1}}}
}

// AddKey sets the weight of pk, keeping the key list sorted.
func (a *Authority) AddKey(pk crypto.PublicKey, w uint16) {
	i := sort.Search(len(a.KeyAuths), func(i int) bool { return !a.KeyAuths[i].Key.Less(pk) })
	if i < len(a.KeyAuths) && a.KeyAuths[i].Key == pk {
		a.KeyAuths[i].Weight = w
		return
	}
	a.KeyAuths = append(a.KeyAuths, KeyWeight{})
	copy(a.KeyAuths[i+1:], a.KeyAuths[i:])
	a.KeyAuths[i] = KeyWeight{Key: pk, Weight: w}
}

// AddAccount sets the weight of name, keeping the account list sorted.
func (a *Authority) AddAccount(name AccountName, w uint16) {
	i := sort.Search(len(a.AccountAuths), func(i int) bool { return a.AccountAuths[i].Name >= name })
	if i < len(a.AccountAuths) && a.AccountAuths[i].Name == name {
		a.AccountAuths[i].Weight = w
		return
	}
	a.AccountAuths = append(a.AccountAuths, AccountWeight{})
	copy(a.AccountAuths[i+1:], a.AccountAuths[i:])
	a.AccountAuths[i] = AccountWeight{Name: name, Weight: w}
}

// NumAuths counts the entries of both lists.
func (a Authority) NumAuths() int {
	return len(a.AccountAuths) + len(a.KeyAuths)
}

// IsImpossible reports whether all weights together cannot reach the threshold.
func (a Authority) IsImpossible() bool {
	var total uint64
	for _, aw := range a.AccountAuths {
		total += uint64(aw.Weight)
	}
	for _, kw := range a.KeyAuths {
		total += uint64(kw.Weight)
	}
	return total < uint64(a.WeightThreshold)
}

// Validate checks names, ordering and weights.
func (a Authority) Validate() error {
	for i, aw := range a.AccountAuths {
		if err := aw.Name.Validate(); err != nil {
			return err
		}
		if aw.Weight == 0 {
			return fmt.Errorf("authority account %s has zero weight", aw.Name)
		}
		if i > 0 && a.AccountAuths[i-1].Name >= aw.Name {
			return fmt.Errorf("authority accounts are not sorted and unique at %s", aw.Name)
		}
	}
	for i, kw := range a.KeyAuths {
		if kw.Weight == 0 {
			return fmt.Errorf("authority key %v has zero weight", kw.Key)
		}
		if i > 0 && !a.KeyAuths[i-1].Key.Less(kw.Key) {
			return fmt.Errorf("authority keys are not sorted and unique at %v", kw.Key)
		}
	}
	return nil
}

// Equal compares two authorities entry by entry.
func (a Authority) Equal(o Authority) bool {
	if a.WeightThreshold != o.WeightThreshold || len(a.AccountAuths) != len(o.AccountAuths) || len(a.KeyAuths) != len(o.KeyAuths) {
		return false
	}
	for i := range a.AccountAuths {
		if a.AccountAuths[i].Name != o.AccountAuths[i].Name || a.AccountAuths[i].Weight != o.AccountAuths[i].Weight {
			return false
		}
	}
	for i := range a.KeyAuths {
		if a.KeyAuths[i].Key != o.KeyAuths[i].Key || a.KeyAuths[i].Weight != o.KeyAuths[i].Weight {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (a Authority) Clone() Authority {
	c := a
	c.AccountAuths = append([]AccountWeight(nil), a.AccountAuths...)
	c.KeyAuths = append([]KeyWeight(nil), a.KeyAuths...)
	return c
}

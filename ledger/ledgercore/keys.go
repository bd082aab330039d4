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

// Singleton is the key of the tables holding exactly one row.
const Singleton uint8 = 0

// PairKey keys records that relate two accounts, such as a vote or a
// delegation. First is the acting account.
type PairKey struct {
	First  basics.AccountName
	Second basics.AccountName
}

// ComparePairKey orders by First, then Second.
func ComparePairKey(a, b PairKey) int {
	if c := cmp.Compare(a.First, b.First); c != 0 {
		return c
	}
	return cmp.Compare(a.Second, b.Second)
}

// OwnedKey keys records numbered per owner: limit orders and conversion
// requests.
type OwnedKey struct {
	Owner basics.AccountName
	ID    uint32
}

// CompareOwnedKey orders by Owner, then ID.
func CompareOwnedKey(a, b OwnedKey) int {
	if c := cmp.Compare(a.Owner, b.Owner); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

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

package store

import (
	"slices"
)

// Index is a secondary ordering of a table's rows. It is derived from the
// rows and kept current on every mutation and rollback; it is never a
// source of truth.
type Index[K comparable, V Record[V]] struct {
	t       *Table[K, V]
	name    string
	compare func(a, b V) int
	keys    []K
}

// NewIndex adds an index ordered by compare, ties broken by primary key.
// Indexes must be added before any rows are created.
func NewIndex[K comparable, V Record[V]](t *Table[K, V], name string, compare func(a, b V) int) *Index[K, V] {
	if len(t.rows) != 0 {
		panic("store: index " + name + " added to a non-empty table " + t.name)
	}
	idx := &Index[K, V]{t: t, name: name, compare: compare}
	t.indexes = append(t.indexes, idx)
	return idx
}

func (idx *Index[K, V]) search(k K, v V) (int, bool) {
	return slices.BinarySearchFunc(idx.keys, k, func(ek K, k K) int {
		if c := idx.compare(idx.t.rows[ek], v); c != 0 {
			return c
		}
		return idx.t.compare(ek, k)
	})
}

func (idx *Index[K, V]) insert(k K, v V) {
	i, _ := idx.search(k, v)
	idx.keys = slices.Insert(idx.keys, i, k)
}

// remove runs while t.rows[k] still holds v.
func (idx *Index[K, V]) remove(k K, v V) {
	if i, found := idx.search(k, v); found {
		idx.keys = slices.Delete(idx.keys, i, i+1)
	}
}

// Len returns the number of indexed rows.
func (idx *Index[K, V]) Len() int { return len(idx.keys) }

// First returns the lowest row in index order.
func (idx *Index[K, V]) First() (K, V, bool) {
	if len(idx.keys) == 0 {
		var k K
		var v V
		return k, v, false
	}
	k := idx.keys[0]
	return k, idx.t.rows[k].Clone(), true
}

// Last returns the highest row in index order.
func (idx *Index[K, V]) Last() (K, V, bool) {
	if len(idx.keys) == 0 {
		var k K
		var v V
		return k, v, false
	}
	k := idx.keys[len(idx.keys)-1]
	return k, idx.t.rows[k].Clone(), true
}

// Scan visits rows in index order until fn returns false. As with
// Table.Scan, fn may mutate the table.
func (idx *Index[K, V]) Scan(fn func(k K, v V) bool) {
	idx.t.scanKeys(slices.Clone(idx.keys), fn)
}

// ScanFrom visits rows starting at the first one not less than bound.
func (idx *Index[K, V]) ScanFrom(bound V, fn func(k K, v V) bool) {
	i := idx.lowerBound(bound)
	idx.t.scanKeys(slices.Clone(idx.keys[i:]), fn)
}

// LowerBound returns the first row not less than bound.
func (idx *Index[K, V]) LowerBound(bound V) (K, V, bool) {
	i := idx.lowerBound(bound)
	if i == len(idx.keys) {
		var k K
		var v V
		return k, v, false
	}
	k := idx.keys[i]
	return k, idx.t.rows[k].Clone(), true
}

func (idx *Index[K, V]) lowerBound(bound V) int {
	i, _ := slices.BinarySearchFunc(idx.keys, bound, func(ek K, bound V) int {
		if c := idx.compare(idx.t.rows[ek], bound); c != 0 {
			return c
		}
		return 1
	})
	return i
}

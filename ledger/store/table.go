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
	"fmt"
	"slices"
)

// DuplicateKeyError is returned by Create for a key already present.
type DuplicateKeyError struct {
	Table string
	Key   string
}

func (err DuplicateKeyError) Error() string {
	return fmt.Sprintf("store: %s already has a row %s", err.Table, err.Key)
}

// MissingRowError is the panic value of Modify and Remove on a missing key.
// Callers check existence first; reaching it is a bug, not bad input.
type MissingRowError struct {
	Table string
	Key   string
}

func (err MissingRowError) Error() string {
	return fmt.Sprintf("store: %s has no row %s", err.Table, err.Key)
}

type undoLevel[K comparable, V Record[V]] struct {
	oldValues map[K]V
	removed   map[K]V
	created   map[K]struct{}
	oldNextID uint64
}

func newUndoLevel[K comparable, V Record[V]](nextID uint64) *undoLevel[K, V] {
	return &undoLevel[K, V]{
		oldValues: make(map[K]V),
		removed:   make(map[K]V),
		created:   make(map[K]struct{}),
		oldNextID: nextID,
	}
}

// Table is an ordered map from K to V with undo support. Values returned
// from a table are clones; the only way to change a row is through Create,
// Modify, Put and Remove.
type Table[K comparable, V Record[V]] struct {
	db      *Database
	name    string
	compare func(a, b K) int

	rows   map[K]V
	keys   []K
	nextID uint64

	levels  []*undoLevel[K, V]
	indexes []*Index[K, V]
}

// NewTable registers a table on db. compare orders the primary keys; use
// cmp.Compare for ordered key types.
func NewTable[K comparable, V Record[V]](db *Database, name string, compare func(a, b K) int) *Table[K, V] {
	t := &Table[K, V]{
		db:      db,
		name:    name,
		compare: compare,
		rows:    make(map[K]V),
	}
	db.register(t)
	return t
}

func (t *Table[K, V]) tableName() string { return t.name }

// Name returns the table's name.
func (t *Table[K, V]) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table[K, V]) Len() int { return len(t.rows) }

// Has reports whether k is present.
func (t *Table[K, V]) Has(k K) bool {
	_, ok := t.rows[k]
	return ok
}

// Get returns a clone of the row at k.
func (t *Table[K, V]) Get(k K) (V, bool) {
	v, ok := t.rows[k]
	if !ok {
		var zero V
		return zero, false
	}
	return v.Clone(), true
}

// NextID hands out the next auto-increment id. Undo restores the counter.
func (t *Table[K, V]) NextID() uint64 {
	id := t.nextID
	t.nextID++
	return id
}

// PeekNextID returns the id NextID would return without consuming it.
func (t *Table[K, V]) PeekNextID() uint64 { return t.nextID }

func (t *Table[K, V]) top() *undoLevel[K, V] {
	if len(t.levels) == 0 {
		return nil
	}
	return t.levels[len(t.levels)-1]
}

func (t *Table[K, V]) onCreate(k K) {
	l := t.top()
	if l == nil {
		return
	}
	if old, ok := l.removed[k]; ok {
		delete(l.removed, k)
		l.oldValues[k] = old
		return
	}
	l.created[k] = struct{}{}
}

func (t *Table[K, V]) onModify(k K, old V) {
	l := t.top()
	if l == nil {
		return
	}
	if _, ok := l.created[k]; ok {
		return
	}
	if _, ok := l.oldValues[k]; ok {
		return
	}
	l.oldValues[k] = old.Clone()
}

func (t *Table[K, V]) onRemove(k K, old V) {
	l := t.top()
	if l == nil {
		return
	}
	if _, ok := l.created[k]; ok {
		delete(l.created, k)
		return
	}
	if prev, ok := l.oldValues[k]; ok {
		delete(l.oldValues, k)
		l.removed[k] = prev
		return
	}
	l.removed[k] = old.Clone()
}

// Create inserts a new row.
func (t *Table[K, V]) Create(k K, v V) error {
	if _, ok := t.rows[k]; ok {
		return DuplicateKeyError{Table: t.name, Key: fmt.Sprint(k)}
	}
	t.onCreate(k)
	t.insertRow(k, v.Clone())
	t.db.recordChange(t.name, k, false)
	return nil
}

// Modify applies fn to a clone of the row at k and stores the result. An
// error from fn leaves the row untouched. Modify panics if k is missing.
func (t *Table[K, V]) Modify(k K, fn func(*V) error) error {
	old, ok := t.rows[k]
	if !ok {
		panic(MissingRowError{Table: t.name, Key: fmt.Sprint(k)})
	}
	nv := old.Clone()
	if err := fn(&nv); err != nil {
		return err
	}
	t.onModify(k, old)
	t.replaceRow(k, old, nv)
	t.db.recordChange(t.name, k, false)
	return nil
}

// Put creates or replaces the row at k.
func (t *Table[K, V]) Put(k K, v V) {
	old, ok := t.rows[k]
	if !ok {
		t.onCreate(k)
		t.insertRow(k, v.Clone())
	} else {
		t.onModify(k, old)
		t.replaceRow(k, old, v.Clone())
	}
	t.db.recordChange(t.name, k, false)
}

// Remove deletes the row at k. It panics if k is missing.
func (t *Table[K, V]) Remove(k K) {
	old, ok := t.rows[k]
	if !ok {
		panic(MissingRowError{Table: t.name, Key: fmt.Sprint(k)})
	}
	t.onRemove(k, old)
	t.deleteRow(k, old)
	t.db.recordChange(t.name, k, true)
}

func (t *Table[K, V]) insertRow(k K, v V) {
	i, _ := slices.BinarySearchFunc(t.keys, k, t.compare)
	t.keys = slices.Insert(t.keys, i, k)
	t.rows[k] = v
	for _, idx := range t.indexes {
		idx.insert(k, v)
	}
}

func (t *Table[K, V]) replaceRow(k K, old, v V) {
	for _, idx := range t.indexes {
		idx.remove(k, old)
	}
	t.rows[k] = v
	for _, idx := range t.indexes {
		idx.insert(k, v)
	}
}

func (t *Table[K, V]) deleteRow(k K, old V) {
	for _, idx := range t.indexes {
		idx.remove(k, old)
	}
	if i, found := slices.BinarySearchFunc(t.keys, k, t.compare); found {
		t.keys = slices.Delete(t.keys, i, i+1)
	}
	delete(t.rows, k)
}

// Scan visits rows in ascending key order until fn returns false. Rows
// may be changed or removed from inside fn; removed rows are skipped.
func (t *Table[K, V]) Scan(fn func(k K, v V) bool) {
	t.scanKeys(slices.Clone(t.keys), fn)
}

// ScanFrom is Scan starting at the first key not less than start.
func (t *Table[K, V]) ScanFrom(start K, fn func(k K, v V) bool) {
	i, _ := slices.BinarySearchFunc(t.keys, start, t.compare)
	t.scanKeys(slices.Clone(t.keys[i:]), fn)
}

func (t *Table[K, V]) scanKeys(keys []K, fn func(k K, v V) bool) {
	for _, k := range keys {
		v, ok := t.rows[k]
		if !ok {
			continue
		}
		if !fn(k, v.Clone()) {
			return
		}
	}
}

func (t *Table[K, V]) pushLevel() {
	t.levels = append(t.levels, newUndoLevel[K, V](t.nextID))
}

func (t *Table[K, V]) undoLevel() {
	l := t.top()
	t.levels = t.levels[:len(t.levels)-1]
	for k, old := range l.oldValues {
		t.replaceRow(k, t.rows[k], old)
	}
	for k := range l.created {
		t.deleteRow(k, t.rows[k])
	}
	for k, old := range l.removed {
		t.insertRow(k, old)
	}
	t.nextID = l.oldNextID
}

func (t *Table[K, V]) squashLevel() {
	top := t.levels[len(t.levels)-1]
	prev := t.levels[len(t.levels)-2]
	t.levels = t.levels[:len(t.levels)-1]

	for k, old := range top.oldValues {
		if _, ok := prev.created[k]; ok {
			continue
		}
		if _, ok := prev.oldValues[k]; ok {
			continue
		}
		prev.oldValues[k] = old
	}
	for k := range top.created {
		if old, ok := prev.removed[k]; ok {
			delete(prev.removed, k)
			prev.oldValues[k] = old
			continue
		}
		prev.created[k] = struct{}{}
	}
	for k, old := range top.removed {
		if _, ok := prev.created[k]; ok {
			delete(prev.created, k)
			continue
		}
		if pold, ok := prev.oldValues[k]; ok {
			delete(prev.oldValues, k)
			prev.removed[k] = pold
			continue
		}
		prev.removed[k] = old
	}
}

func (t *Table[K, V]) dropOldest() {
	t.levels = t.levels[1:]
}

func (t *Table[K, V]) snapshot(w *snapshotWriter) {
	w.write(t.name)
	w.write(uint64(len(t.keys)))
	w.write(t.nextID)
	for _, k := range t.keys {
		w.write(k)
		w.write(t.rows[k])
	}
}

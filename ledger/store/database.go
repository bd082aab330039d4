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

// Package store is the versioned object store every piece of chain state
// lives in. Tables hold cloneable records keyed by a primary key; undo
// sessions record enough of every create, modify and remove to roll them
// back, and nest so that a block, each of its transactions and each nested
// proposal execution get their own checkpoint.
package store

import (
	"errors"
	"fmt"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/protocol"
)

// ErrUndoHistoryExhausted means the reversible part of the chain grew past
// the configured undo history.
var ErrUndoHistoryExhausted = errors.New("undo history exhausted")

// ErrNoUndoState is returned by Undo and Squash when no session is open.
var ErrNoUndoState = errors.New("no undo state")

// Record is implemented by every value stored in a Table. Clone must return
// a deep copy: the store hands out clones and keeps its own copy private.
type Record[V any] interface {
	Clone() V
}

// ObjectID names a row for change notifications.
type ObjectID struct {
	Table string
	Key   string
}

type change struct {
	id      ObjectID
	removed bool
}

// table is the type-erased side of Table that the Database drives.
type table interface {
	tableName() string
	pushLevel()
	undoLevel()
	squashLevel()
	dropOldest()
	snapshot(w *snapshotWriter)
}

type undoMark struct {
	revision int64
	changes  int
}

// Database owns a set of tables and their shared undo stack.
type Database struct {
	tables   []table
	names    map[string]bool
	revision int64
	stack    []undoMark
	changes  []change
}

// NewDatabase returns an empty database at revision 0.
func NewDatabase() *Database {
	return &Database{names: make(map[string]bool)}
}

func (db *Database) register(t table) {
	if db.names[t.tableName()] {
		panic(fmt.Sprintf("store: table %s registered twice", t.tableName()))
	}
	if len(db.stack) != 0 {
		panic(fmt.Sprintf("store: table %s registered with open undo sessions", t.tableName()))
	}
	db.names[t.tableName()] = true
	db.tables = append(db.tables, t)
}

func (db *Database) undoEnabled() bool {
	return len(db.stack) > 0
}

func (db *Database) recordChange(tableName string, key interface{}, removed bool) {
	db.changes = append(db.changes, change{id: ObjectID{Table: tableName, Key: fmt.Sprint(key)}, removed: removed})
}

// Revision is the number of the newest undo state.
func (db *Database) Revision() int64 {
	return db.revision
}

// SetRevision sets the revision of a database with no undo states, as
// happens after replaying irreversible blocks.
func (db *Database) SetRevision(rev int64) error {
	if len(db.stack) != 0 {
		return fmt.Errorf("cannot set revision to %d with %d undo states", rev, len(db.stack))
	}
	db.revision = rev
	return nil
}

// UndoDepth is the number of undo states on the stack.
func (db *Database) UndoDepth() int {
	return len(db.stack)
}

// StartUndoSession opens a checkpoint. With enabled false nothing is
// recorded and the session's methods do nothing, which is how trusted
// replay skips the undo bookkeeping.
func (db *Database) StartUndoSession(enabled bool) *Session {
	if !enabled {
		return &Session{db: db}
	}
	db.revision++
	db.stack = append(db.stack, undoMark{revision: db.revision, changes: len(db.changes)})
	for _, t := range db.tables {
		t.pushLevel()
	}
	return &Session{db: db, apply: true, revision: db.revision}
}

// Undo rolls back the newest undo state.
func (db *Database) Undo() error {
	if len(db.stack) == 0 {
		return ErrNoUndoState
	}
	for i := len(db.tables) - 1; i >= 0; i-- {
		db.tables[i].undoLevel()
	}
	top := db.stack[len(db.stack)-1]
	db.stack = db.stack[:len(db.stack)-1]
	if top.changes < len(db.changes) {
		db.changes = db.changes[:top.changes]
	}
	db.revision--
	return nil
}

// Squash merges the newest undo state into the one below it. With a
// single state the changes become permanent.
func (db *Database) Squash() error {
	if len(db.stack) == 0 {
		return ErrNoUndoState
	}
	if len(db.stack) == 1 {
		for _, t := range db.tables {
			t.dropOldest()
		}
		db.stack = db.stack[:0]
		db.revision--
		return nil
	}
	for _, t := range db.tables {
		t.squashLevel()
	}
	db.stack = db.stack[:len(db.stack)-1]
	db.revision--
	return nil
}

// Commit makes every undo state at or below rev permanent.
func (db *Database) Commit(rev int64) {
	n := 0
	for n < len(db.stack) && db.stack[n].revision <= rev {
		n++
	}
	for i := 0; i < n; i++ {
		for _, t := range db.tables {
			t.dropOldest()
		}
	}
	db.stack = append(db.stack[:0], db.stack[n:]...)
}

// UndoAll rolls back every undo state.
func (db *Database) UndoAll() {
	for len(db.stack) > 0 {
		db.Undo()
	}
}

// TakeChanges drains the ids touched since the last call. An id appears
// once, in the list matching its latest state. Every open level's mark
// drops to zero with the drained records, so a later Undo discards only
// records made after the call.
func (db *Database) TakeChanges() (changed []ObjectID, removed []ObjectID) {
	last := make(map[ObjectID]int, len(db.changes))
	for i, c := range db.changes {
		last[c.id] = i
	}
	for i, c := range db.changes {
		if last[c.id] != i {
			continue
		}
		if c.removed {
			removed = append(removed, c.id)
		} else {
			changed = append(changed, c.id)
		}
	}
	db.changes = db.changes[:0]
	for i := range db.stack {
		db.stack[i].changes = 0
	}
	return
}

// CheckUndoHistory fails once the reversible range reaches max blocks.
func CheckUndoHistory(head, lib, max uint32) error {
	if head >= lib && head-lib >= max {
		return fmt.Errorf("%w: head %d, last irreversible %d, max %d", ErrUndoHistoryExhausted, head, lib, max)
	}
	return nil
}

// Session is a handle on one undo state. Exactly one of Push, Squash or
// Undo takes effect; the usual pattern is
//
//	s := db.StartUndoSession(true)
//	defer s.Undo()
//	...
//	s.Push()
type Session struct {
	db       *Database
	apply    bool
	revision int64
}

// Revision is the revision this session created, or 0 when disabled.
func (s *Session) Revision() int64 {
	return s.revision
}

// Push keeps the undo state on the stack for a later Undo or Commit.
func (s *Session) Push() {
	s.apply = false
}

// Squash merges the session into the enclosing one.
func (s *Session) Squash() {
	if s.apply {
		s.db.Squash()
	}
	s.apply = false
}

// Undo rolls the session back unless it was pushed or squashed.
func (s *Session) Undo() {
	if s.apply {
		s.db.Undo()
	}
	s.apply = false
}

type snapshotWriter struct {
	buf []byte
}

func (w *snapshotWriter) write(obj interface{}) {
	w.buf = append(w.buf, protocol.Encode(obj)...)
}

// Snapshot returns a canonical encoding of every row of every table. Two
// databases with the same tables hold the same state iff their snapshots
// are byte-identical.
func (db *Database) Snapshot() []byte {
	var w snapshotWriter
	for _, t := range db.tables {
		t.snapshot(&w)
	}
	return w.buf
}

type snapshotBytes []byte

func (s snapshotBytes) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.StoreSnapshot, []byte(s)
}

// SnapshotDigest hashes Snapshot.
func (db *Database) SnapshotDigest() crypto.Digest {
	return crypto.HashObj(snapshotBytes(db.Snapshot()))
}

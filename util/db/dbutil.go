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

// Package db wraps a sqlite handle with serializable, retrying
// transactions. It is only tested against sqlite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/algorand/go-muse/logging"
)

const (
	// busyTimeout is how long sqlite waits on another process's lock, in ms,
	// before reporting SQLITE_BUSY.
	busyTimeout = 1000

	warnRetries = 100
	maxRetries  = 1000

	slowTxn = time.Second
)

// ErrTooManyRetries wraps the last contention error once maxRetries is hit.
var ErrTooManyRetries = errors.New("db: too many retries")

// TxFn runs inside a transaction. It may be called more than once.
type TxFn func(tx *sqlx.Tx) error

// Accessor is a sqlite handle opened for reading or for writing.
type Accessor struct {
	Handle   *sqlx.DB
	readOnly bool
	log      logging.Logger
}

// MakeAccessor opens filename. An in-memory database lives as long as one
// handle to it is open.
func MakeAccessor(filename string, readOnly bool, inMemory bool) (Accessor, error) {
	handle, err := sqlx.Open("sqlite3", URI(filename, readOnly, inMemory))
	if err != nil {
		return Accessor{}, err
	}
	return Accessor{Handle: handle, readOnly: readOnly, log: logging.Base().With("db", filename)}, nil
}

// URI builds the sqlite connection string for filename.
func URI(filename string, readOnly bool, memory bool) string {
	uri := fmt.Sprintf("file:%s?_busy_timeout=%d&_synchronous=full&_journal_mode=wal", filename, busyTimeout)
	if !readOnly {
		uri += "&_txlock=immediate"
	}
	if memory {
		uri += "&mode=memory&cache=shared"
	}
	return uri
}

// Close releases the handle.
func (db Accessor) Close() {
	db.Handle.Close()
}

// Migrate runs each schema statement in a single transaction. Statements
// must be idempotent.
func (db Accessor) Migrate(schema []string) error {
	return db.Atomic("migrate", func(tx *sqlx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i, err)
			}
		}
		return nil
	})
}

// Atomic is AtomicContext with a background context.
func (db Accessor) Atomic(descr string, fn TxFn) error {
	return db.AtomicContext(context.Background(), descr, fn)
}

// AtomicContext runs fn in a serializable transaction, retrying on lock
// contention. A panic in fn rolls back and comes back as the error.
func (db Accessor) AtomicContext(ctx context.Context, descr string, fn TxFn) error {
	start := time.Now()
	defer func() {
		if took := time.Since(start); took > slowTxn {
			db.log.With("txn", descr).Warnf("slow transaction: %v", took)
		}
	}()

	opts := &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: db.readOnly}
	return retry(db.log.With("txn", descr), func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx, err := db.Handle.BeginTxx(ctx, opts)
		if err != nil {
			return err
		}
		if err := guarded(tx, fn); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Retry calls fn until it succeeds or fails with something other than lock
// contention.
func Retry(fn func() error) error {
	return retry(logging.Base(), fn)
}

func retry(log logging.Logger, fn func() error) error {
	for i := 0; ; i++ {
		err := fn()
		if !contended(err) {
			return err
		}
		if i+1 >= maxRetries {
			return fmt.Errorf("%w: %d attempts: %v", ErrTooManyRetries, i+1, err)
		}
		if (i+1)%warnRetries == 0 {
			log.Warnf("retrying after contention (attempt %d): %v", i+1, err)
		}
	}
}

// guarded keeps a panic in fn from escaping the transaction, which the sql
// package would otherwise leave open.
func guarded(tx *sqlx.Tx, fn TxFn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	return fn(tx)
}

func contended(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == sqlite3.ErrLocked || serr.Code == sqlite3.ErrBusy
}

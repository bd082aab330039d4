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

package blockdb

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/protocol"
	"github.com/algorand/go-muse/util/db"
)

var blockSchema = []string{
	`CREATE TABLE IF NOT EXISTS blocks (
		num integer primary key,
		id blob unique,
		hdrdata blob,
		blkdata blob)`,
}

type sqliteLog struct {
	acc db.Accessor
	log logging.Logger
}

// OpenSQLite opens or creates a sqlite block log.
func OpenSQLite(filename string, inMem bool, log logging.Logger) (BlockLog, error) {
	acc, err := db.MakeAccessor(filename, false, inMem)
	if err != nil {
		return nil, err
	}
	err = acc.Migrate(blockSchema)
	if err != nil {
		acc.Close()
		return nil, err
	}
	return &sqliteLog{acc: acc, log: log}, nil
}

func blockLatest(tx *sqlx.Tx) (uint32, error) {
	var max sql.NullInt64
	if err := tx.Get(&max, "SELECT MAX(num) FROM blocks"); err != nil {
		return 0, err
	}
	if max.Valid {
		return uint32(max.Int64), nil
	}
	return 0, nil
}

func (l *sqliteLog) Append(blk bookkeeping.Block) error {
	return l.acc.Atomic("blockdb append", func(tx *sqlx.Tx) error {
		latest, err := blockLatest(tx)
		if err != nil {
			return err
		}
		if blk.Num() != latest+1 {
			return OutOfOrderError{Num: blk.Num(), Expected: latest + 1}
		}
		id := blk.ID()
		_, err = tx.Exec("INSERT INTO blocks (num, id, hdrdata, blkdata) VALUES (?, ?, ?, ?)",
			blk.Num(),
			id[:],
			protocol.Encode(&blk.BlockHeader),
			protocol.Encode(&blk),
		)
		if err == nil {
			l.log.Debugf("blockdb: appended block %d", blk.Num())
		}
		return err
	})
}

func (l *sqliteLog) fetch(query string, arg interface{}, notFound ErrNoEntry) (blk bookkeeping.Block, err error) {
	var buf []byte
	err = l.acc.Atomic("blockdb fetch", func(tx *sqlx.Tx) error {
		return tx.Get(&buf, query, arg)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return blk, notFound
	}
	if err != nil {
		return blk, err
	}
	err = protocol.Decode(buf, &blk)
	return
}

func (l *sqliteLog) FetchByNumber(num uint32) (bookkeeping.Block, error) {
	return l.fetch("SELECT blkdata FROM blocks WHERE num=?", num, ErrNoEntry{Num: num})
}

func (l *sqliteLog) FetchByID(id bookkeeping.BlockID) (bookkeeping.Block, error) {
	return l.fetch("SELECT blkdata FROM blocks WHERE id=?", id[:], ErrNoEntry{ID: id})
}

func (l *sqliteLog) LastID() (id bookkeeping.BlockID, err error) {
	var buf []byte
	err = l.acc.Atomic("blockdb last id", func(tx *sqlx.Tx) error {
		return tx.Get(&buf, "SELECT id FROM blocks ORDER BY num DESC LIMIT 1")
	})
	if errors.Is(err, sql.ErrNoRows) {
		return id, nil
	}
	if err != nil {
		return id, err
	}
	copy(id[:], buf)
	return id, nil
}

func (l *sqliteLog) Head() (bookkeeping.Block, error) {
	blk, err := l.fetch("SELECT blkdata FROM blocks ORDER BY num DESC LIMIT ?", 1, ErrNoEntry{})
	var noEntry ErrNoEntry
	if errors.As(err, &noEntry) {
		return blk, ErrEmptyLog
	}
	return blk, err
}

func (l *sqliteLog) Close() error {
	l.acc.Close()
	return nil
}

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

// Package blockdb is the persistent log of irreversible blocks.
package blockdb

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/logging"
)

// ErrEmptyLog is returned by Head on a log with no blocks.
var ErrEmptyLog = errors.New("block log is empty")

// ErrNoEntry is returned when a block is not in the log.
type ErrNoEntry struct {
	Num uint32
	ID  bookkeeping.BlockID
}

func (err ErrNoEntry) Error() string {
	if !err.ID.IsZero() {
		return fmt.Sprintf("block %v not found in the block log", err.ID)
	}
	return fmt.Sprintf("block %d not found in the block log", err.Num)
}

// OutOfOrderError is returned by Append for anything but the next block.
type OutOfOrderError struct {
	Num      uint32
	Expected uint32
}

func (err OutOfOrderError) Error() string {
	return fmt.Sprintf("inserting block %d but expected %d", err.Num, err.Expected)
}

// BlockLog stores blocks by number and id. Blocks are appended strictly
// in order starting at block 1.
type BlockLog interface {
	Append(blk bookkeeping.Block) error
	FetchByNumber(num uint32) (bookkeeping.Block, error)
	FetchByID(id bookkeeping.BlockID) (bookkeeping.Block, error)
	// LastID is the id of the newest block, zero for an empty log.
	LastID() (bookkeeping.BlockID, error)
	Head() (bookkeeping.Block, error)
	Close() error
}

// Open opens the block log of a data directory with the configured backend.
func Open(backend string, dataDir string, inMem bool, log logging.Logger) (BlockLog, error) {
	switch backend {
	case config.BlockLogSQLite:
		return OpenSQLite(filepath.Join(dataDir, "blocks.sqlite"), inMem, log)
	case config.BlockLogPebble:
		return OpenPebble(filepath.Join(dataDir, "blocks"), inMem, log)
	}
	return nil, fmt.Errorf("unknown block log backend %q", backend)
}

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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/snappy"

	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/protocol"
	"github.com/algorand/go-muse/util/kvstore"
)

// key prefixes
const (
	prefixBlock = 'b'
	prefixID    = 'i'
)

var headKey = []byte("head")

func blockKey(num uint32) []byte {
	k := make([]byte, 5)
	k[0] = prefixBlock
	binary.BigEndian.PutUint32(k[1:], num)
	return k
}

func idKey(id bookkeeping.BlockID) []byte {
	return append([]byte{prefixID}, id[:]...)
}

type pebbleLog struct {
	kv  kvstore.KVStore
	log logging.Logger
}

// OpenPebble opens or creates a pebble block log. Block bodies are stored
// snappy-compressed under their number; ids map to numbers.
func OpenPebble(dbdir string, inMem bool, log logging.Logger) (BlockLog, error) {
	kv, err := kvstore.NewKVStore("pebble", dbdir, inMem)
	if err != nil {
		return nil, err
	}
	return &pebbleLog{kv: kv, log: log}, nil
}

func (l *pebbleLog) latest() (uint32, error) {
	v, err := l.kv.Get(headKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("blockdb: corrupt head record of %d bytes", len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

func (l *pebbleLog) Append(blk bookkeeping.Block) error {
	latest, err := l.latest()
	if err != nil {
		return err
	}
	if blk.Num() != latest+1 {
		return OutOfOrderError{Num: blk.Num(), Expected: latest + 1}
	}
	num := make([]byte, 4)
	binary.BigEndian.PutUint32(num, blk.Num())

	b := l.kv.NewBatch()
	if err := b.Set(blockKey(blk.Num()), snappy.Encode(nil, protocol.Encode(&blk))); err != nil {
		b.Cancel()
		return err
	}
	if err := b.Set(idKey(blk.ID()), num); err != nil {
		b.Cancel()
		return err
	}
	if err := b.Set(headKey, num); err != nil {
		b.Cancel()
		return err
	}
	if err := b.Commit(); err != nil {
		return err
	}
	l.log.Debugf("blockdb: appended block %d", blk.Num())
	return nil
}

func (l *pebbleLog) FetchByNumber(num uint32) (blk bookkeeping.Block, err error) {
	v, err := l.kv.Get(blockKey(num))
	if errors.Is(err, kvstore.ErrNotFound) {
		return blk, ErrNoEntry{Num: num}
	}
	if err != nil {
		return blk, err
	}
	raw, err := snappy.Decode(nil, v)
	if err != nil {
		return blk, fmt.Errorf("blockdb: block %d: %w", num, err)
	}
	err = protocol.Decode(raw, &blk)
	return blk, err
}

func (l *pebbleLog) FetchByID(id bookkeeping.BlockID) (bookkeeping.Block, error) {
	v, err := l.kv.Get(idKey(id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return bookkeeping.Block{}, ErrNoEntry{ID: id}
	}
	if err != nil {
		return bookkeeping.Block{}, err
	}
	return l.FetchByNumber(binary.BigEndian.Uint32(v))
}

func (l *pebbleLog) LastID() (bookkeeping.BlockID, error) {
	latest, err := l.latest()
	if err != nil || latest == 0 {
		return bookkeeping.BlockID{}, err
	}
	blk, err := l.FetchByNumber(latest)
	if err != nil {
		return bookkeeping.BlockID{}, err
	}
	return blk.ID(), nil
}

func (l *pebbleLog) Head() (bookkeeping.Block, error) {
	latest, err := l.latest()
	if err != nil {
		return bookkeeping.Block{}, err
	}
	if latest == 0 {
		return bookkeeping.Block{}, ErrEmptyLog
	}
	return l.FetchByNumber(latest)
}

func (l *pebbleLog) Close() error {
	return l.kv.Close()
}

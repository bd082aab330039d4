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

package kvstore

import (
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/cockroachdb/pebble/vfs"
)

func init() {
	kvImpls["pebble"] = pebbleDBFactory{}
	kvImpls["pebbledb"] = pebbleDBFactory{}
}

type pebbleDBFactory struct{}

func (pebbleDBFactory) New(dbdir string, inMem bool) (KVStore, error) {
	return NewPebbleDB(dbdir, inMem)
}

// PebbleDB implements KVStore
type PebbleDB struct {
	Pdb *pebble.DB
	wo  *pebble.WriteOptions
}

// NewPebbleDB opens a PebbleDB in the specified directory. Blocks are
// append-mostly and read back sequentially on replay, so the tables are
// tuned for large sequential scans.
func NewPebbleDB(dbdir string, inMem bool) (*PebbleDB, error) {
	cacheSize := int64(256 << 20)
	if inMem {
		cacheSize = 8 << 20
	}
	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()
	opts := &pebble.Options{
		Cache:                       cache,
		L0CompactionThreshold:       2,
		L0StopWritesThreshold:       1000,
		LBaseMaxBytes:               64 << 20, // 64 MB
		Levels:                      make([]pebble.LevelOptions, 7),
		MaxConcurrentCompactions:    func() int { return 3 },
		MemTableSize:                64 << 20, // 64 MB
		MemTableStopWritesThreshold: 4,
	}
	opts.Experimental.ReadSamplingMultiplier = -1
	for i := 0; i < len(opts.Levels); i++ {
		l := &opts.Levels[i]
		l.BlockSize = 32 << 10       // 32 KB
		l.IndexBlockSize = 256 << 10 // 256 KB
		l.FilterPolicy = bloom.FilterPolicy(10)
		l.FilterType = pebble.TableFilter
		if i > 0 {
			l.TargetFileSize = opts.Levels[i-1].TargetFileSize * 2
		}
		l.EnsureDefaults()
	}
	opts.Levels[6].FilterPolicy = nil
	if inMem {
		opts.FS = vfs.NewMem()
		opts.MemTableSize = 4 << 20
	}
	db, err := pebble.Open(dbdir+".pebbledb", opts)
	if err != nil {
		return nil, err
	}
	return &PebbleDB{Pdb: db, wo: pebble.Sync}, nil
}

// Close closes the database
func (db *PebbleDB) Close() error { return db.Pdb.Close() }

// Get a key
func (db *PebbleDB) Get(key []byte) ([]byte, error) {
	val, closer, err := db.Pdb.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := make([]byte, len(val))
	copy(ret, val)
	closer.Close()
	return ret, nil
}

// Set a key to value
func (db *PebbleDB) Set(key, value []byte) error { return db.Pdb.Set(key, value, db.wo) }

// Delete a key
func (db *PebbleDB) Delete(key []byte) error { return db.Pdb.Delete(key, db.wo) }

// pebbleBatch is a batch of writes using the pebble.Batch API
type pebbleBatch struct {
	wb *pebble.Batch
	wo *pebble.WriteOptions
}

// NewBatch creates a batch writer
func (db *PebbleDB) NewBatch() BatchWriter { return &pebbleBatch{wb: db.Pdb.NewBatch(), wo: db.wo} }

func (b *pebbleBatch) Set(key, value []byte) error { return b.wb.Set(key, value, b.wo) }
func (b *pebbleBatch) Delete(key []byte) error     { return b.wb.Delete(key, b.wo) }
func (b *pebbleBatch) Commit() error               { return b.wb.Commit(b.wo) }
func (b *pebbleBatch) Cancel()                     { b.wb.Close() }

type pebbleIterator struct {
	iter *pebble.Iterator
}

// NewIterator scans a range: start and end are optional (set to nil/empty otherwise)
func (db *PebbleDB) NewIterator(start, end []byte) Iterator {
	iter := db.Pdb.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	iter.First()
	return &pebbleIterator{iter: iter}
}

func (i *pebbleIterator) Next()        { i.iter.Next() }
func (i *pebbleIterator) Valid() bool  { return i.iter.Valid() }
func (i *pebbleIterator) Close() error { return i.iter.Close() }

func (i *pebbleIterator) Key() []byte {
	k := i.iter.Key()
	ret := make([]byte, len(k))
	copy(ret, k)
	return ret
}

func (i *pebbleIterator) Value() ([]byte, error) {
	v := i.iter.Value()
	ret := make([]byte, len(v))
	copy(ret, v)
	return ret, nil
}

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

// Package forkdb keeps the reversible blocks of every competing branch so
// the chain can switch to a longer fork.
package forkdb

import (
	"errors"
	"fmt"

	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/logging"
)

// ErrUnlinkableBlock is returned for a block whose parent is unknown.
var ErrUnlinkableBlock = errors.New("unlinkable block")

// ErrEmpty is returned when popping past the oldest known block.
var ErrEmpty = errors.New("fork database has no previous block")

// UnknownBlockError is returned when a branch walk reaches a block the
// database no longer has.
type UnknownBlockError struct {
	ID bookkeeping.BlockID
}

func (err UnknownBlockError) Error() string {
	return fmt.Sprintf("fork database does not know block %v", err.ID)
}

// Item is a block in the fork tree.
type Item struct {
	ID    bookkeeping.BlockID
	Num   uint32
	Block bookkeeping.Block
}

// Previous is the parent block id.
func (it *Item) Previous() bookkeeping.BlockID {
	return it.Block.Previous
}

// ForkDB is a bounded tree of recent blocks. The head is the first-seen
// block of the greatest height.
type ForkDB struct {
	byID    map[bookkeeping.BlockID]*Item
	byNum   map[uint32][]*Item
	head    *Item
	maxSize uint32
	log     logging.Logger
}

// MakeForkDB returns an empty fork database keeping up to maxSize blocks
// below the head.
func MakeForkDB(maxSize uint32, log logging.Logger) *ForkDB {
	return &ForkDB{
		byID:    make(map[bookkeeping.BlockID]*Item),
		byNum:   make(map[uint32][]*Item),
		maxSize: maxSize,
		log:     log,
	}
}

// Reset forgets every block and starts over from blk.
func (f *ForkDB) Reset(blk bookkeeping.Block) *Item {
	f.byID = make(map[bookkeeping.BlockID]*Item)
	f.byNum = make(map[uint32][]*Item)
	f.head = nil
	it := f.insert(blk)
	f.head = it
	return it
}

// Clear forgets every block.
func (f *ForkDB) Clear() {
	f.byID = make(map[bookkeeping.BlockID]*Item)
	f.byNum = make(map[uint32][]*Item)
	f.head = nil
}

func (f *ForkDB) insert(blk bookkeeping.Block) *Item {
	it := &Item{ID: blk.ID(), Num: blk.Num(), Block: blk}
	f.byID[it.ID] = it
	f.byNum[it.Num] = append(f.byNum[it.Num], it)
	return it
}

// Push adds blk and returns the new head. A block already known is
// ignored. The parent must be known unless the block is the first of the
// chain.
func (f *ForkDB) Push(blk bookkeeping.Block) (*Item, error) {
	id := blk.ID()
	if _, ok := f.byID[id]; ok {
		return f.head, nil
	}
	if !blk.Previous.IsZero() {
		if _, ok := f.byID[blk.Previous]; !ok {
			return f.head, fmt.Errorf("%w: block %d (%v) has unknown parent %v", ErrUnlinkableBlock, blk.Num(), id, blk.Previous)
		}
	}
	it := f.insert(blk)
	if f.head == nil || it.Num > f.head.Num {
		f.head = it
		f.prune()
	}
	return f.head, nil
}

func (f *ForkDB) prune() {
	if f.head.Num <= f.maxSize {
		return
	}
	floor := f.head.Num - f.maxSize
	for num, items := range f.byNum {
		if num >= floor {
			continue
		}
		for _, it := range items {
			delete(f.byID, it.ID)
		}
		delete(f.byNum, num)
	}
}

// SetMaxSize changes how many blocks below the head are retained.
func (f *ForkDB) SetMaxSize(n uint32) {
	f.maxSize = n
	if f.head != nil {
		f.prune()
	}
}

// Head returns the best block, or nil when empty.
func (f *ForkDB) Head() *Item {
	return f.head
}

// SetHead makes it the head.
func (f *ForkDB) SetHead(it *Item) {
	f.head = it
}

// PopBlock moves the head to its parent and returns the old head.
func (f *ForkDB) PopBlock() (*Item, error) {
	if f.head == nil {
		return nil, ErrEmpty
	}
	prev, ok := f.byID[f.head.Previous()]
	if !ok {
		return nil, ErrEmpty
	}
	old := f.head
	f.head = prev
	return old, nil
}

// IsKnown reports whether id is in the database.
func (f *ForkDB) IsKnown(id bookkeeping.BlockID) bool {
	_, ok := f.byID[id]
	return ok
}

// FetchBlock returns the item for id.
func (f *ForkDB) FetchBlock(id bookkeeping.BlockID) (*Item, bool) {
	it, ok := f.byID[id]
	return it, ok
}

// FetchBlocksByNumber returns every known block at a height, first seen first.
func (f *ForkDB) FetchBlocksByNumber(num uint32) []*Item {
	return append([]*Item(nil), f.byNum[num]...)
}

// Remove drops id and every block descending from it.
func (f *ForkDB) Remove(id bookkeeping.BlockID) {
	it, ok := f.byID[id]
	if !ok {
		return
	}
	doomed := map[bookkeeping.BlockID]bool{id: true}
	f.drop(it)
	for num := it.Num + 1; ; num++ {
		items, ok := f.byNum[num]
		if !ok {
			break
		}
		for _, child := range items {
			if doomed[child.Previous()] {
				doomed[child.ID] = true
				f.drop(child)
			}
		}
	}
	if f.head != nil && doomed[f.head.ID] {
		f.head = f.bestRemaining()
	}
}

func (f *ForkDB) drop(it *Item) {
	delete(f.byID, it.ID)
	items := f.byNum[it.Num]
	for i, other := range items {
		if other == it {
			items = append(items[:i:i], items[i+1:]...)
			break
		}
	}
	if len(items) == 0 {
		delete(f.byNum, it.Num)
	} else {
		f.byNum[it.Num] = items
	}
}

func (f *ForkDB) bestRemaining() *Item {
	var best *Item
	for num, items := range f.byNum {
		if best == nil || num > best.Num {
			best = items[0]
		}
	}
	return best
}

// FetchBranchFrom walks back from first and second to their common
// ancestor. Each branch runs from its tip down to the block whose parent
// is the common ancestor; the ancestor itself is not included.
func (f *ForkDB) FetchBranchFrom(first, second bookkeeping.BlockID) (firstBranch, secondBranch []*Item, err error) {
	a, ok := f.byID[first]
	if !ok {
		return nil, nil, UnknownBlockError{ID: first}
	}
	b, ok := f.byID[second]
	if !ok {
		return nil, nil, UnknownBlockError{ID: second}
	}
	for a.Num > b.Num {
		firstBranch = append(firstBranch, a)
		if a, ok = f.byID[a.Previous()]; !ok {
			return nil, nil, UnknownBlockError{ID: firstBranch[len(firstBranch)-1].Previous()}
		}
	}
	for b.Num > a.Num {
		secondBranch = append(secondBranch, b)
		if b, ok = f.byID[b.Previous()]; !ok {
			return nil, nil, UnknownBlockError{ID: secondBranch[len(secondBranch)-1].Previous()}
		}
	}
	for a.ID != b.ID {
		firstBranch = append(firstBranch, a)
		secondBranch = append(secondBranch, b)
		pa, pb := a.Previous(), b.Previous()
		if pa.IsZero() && pb.IsZero() {
			break
		}
		if a, ok = f.byID[pa]; !ok {
			return nil, nil, UnknownBlockError{ID: pa}
		}
		if b, ok = f.byID[pb]; !ok {
			return nil, nil, UnknownBlockError{ID: pb}
		}
	}
	return firstBranch, secondBranch, nil
}

// Walk returns the chain from the head back through its ancestors, newest first,
// as far as the database knows.
func (f *ForkDB) Walk() []*Item {
	var res []*Item
	for it := f.head; it != nil; {
		res = append(res, it)
		next, ok := f.byID[it.Previous()]
		if !ok {
			break
		}
		it = next
	}
	return res
}

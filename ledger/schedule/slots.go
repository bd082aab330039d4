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

package schedule

import (
	"slices"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// SlotTime returns the time of the slot-th slot after the head block. Slot
// 0 is the head block itself and has no time.
func SlotTime(st *chainstate.State, slot uint64) basics.Timestamp {
	if slot == 0 {
		return 0
	}
	interval := st.Params.BlockInterval
	d := st.DGP()
	if d.HeadBlockNumber == 0 {
		return d.GenesisTime.Add(int64(slot) * interval)
	}
	headSlotTime := int64(d.Time) / interval * interval
	return basics.Timestamp(headSlotTime + int64(slot)*interval)
}

// SlotAtTime returns the slot, relative to the head block, that when falls
// into, or 0 if when is not after the head block's slot.
func SlotAtTime(st *chainstate.State, when basics.Timestamp) uint64 {
	first := SlotTime(st, 1)
	if when < first {
		return 0
	}
	return uint64(when.Sub(first)/st.Params.BlockInterval) + 1
}

// ScheduledWitness returns the witness that owns the slot-th slot after the
// head block.
func ScheduledWitness(st *chainstate.State, slot uint64) basics.AccountName {
	names := st.WitnessSchedule().CurrentShuffledWitnesses
	if len(names) == 0 {
		return ""
	}
	aslot := st.DGP().CurrentAslot + slot
	return names[aslot%uint64(len(names))]
}

// ProcessMissedSlots charges a missed block to the owner of every slot
// skipped before a block at when, other than signer, and returns how many
// slots were skipped. Once reporting delegation is active, a witness that
// has not produced for a day has its signing key cleared.
func ProcessMissedSlots(st *chainstate.State, when basics.Timestamp, signer basics.AccountName) uint64 {
	slot := SlotAtTime(st, when)
	if slot == 0 {
		return 0
	}
	missed := slot - 1
	head := st.HeadBlockNum()
	shutdownBlocks := uint32(st.Params.MissedBlocksShutdown / st.Params.BlockInterval)
	shutdown := st.HasHardfork(config.HardforkSpinning)
	for i := uint64(0); i < missed; i++ {
		name := ScheduledWitness(st, i+1)
		if name == signer || !st.Witnesses.Has(name) {
			continue
		}
		st.Witnesses.Modify(name, func(w *ledgercore.Witness) error {
			w.TotalMissed++
			if shutdown && !w.SigningKey.IsZero() && head-w.LastConfirmedBlockNum > shutdownBlocks {
				st.Log.Infof("shutting down witness %s: no block since %d", name, w.LastConfirmedBlockNum)
				w.SigningKey = crypto.PublicKey{}
			}
			return nil
		})
	}
	return missed
}

// UpdateSigningWitness records that name produced block num in the current
// absolute slot. It runs after the global properties have advanced to the
// new block.
func UpdateSigningWitness(st *chainstate.State, name basics.AccountName, num uint32) {
	aslot := st.DGP().CurrentAslot
	st.Witnesses.Modify(name, func(w *ledgercore.Witness) error {
		w.LastAslot = aslot
		w.LastConfirmedBlockNum = num
		return nil
	})
}

// UpdateLastIrreversibleBlock advances the last irreversible block to the
// highest block confirmed by the irreversibility threshold of the scheduled
// witnesses. It returns the new value and whether it moved.
func UpdateLastIrreversibleBlock(st *chainstate.State) (uint32, bool) {
	d := st.DGP()
	ws := ActiveWitnesses(st)
	if len(ws) == 0 {
		return d.LastIrreversibleBlockNum, false
	}
	confirmed := make([]uint32, len(ws))
	for i, w := range ws {
		confirmed[i] = w.LastConfirmedBlockNum
	}
	slices.Sort(confirmed)
	offset := int((basics.Percent100 - st.Params.IrreversibleThreshold) * int64(len(ws)) / basics.Percent100)
	lib := min(confirmed[offset], d.HeadBlockNumber)
	if lib <= d.LastIrreversibleBlockNum {
		return d.LastIrreversibleBlockNum, false
	}
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.LastIrreversibleBlockNum = lib
	})
	return lib, true
}

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

package ledger

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/data/transactions/verify"
	"github.com/algorand/go-muse/ledger/apply"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
)

// applyTransactionSession applies stx in a nested undo state that is
// squashed into the enclosing one on success and discarded otherwise.
func (c *Chain) applyTransactionSession(stx transactions.SignedTransaction, policy config.ValidationPolicy) error {
	session := c.st.DB.StartUndoSession(true)
	defer session.Undo()
	if err := c.applyTransaction(stx, policy); err != nil {
		return err
	}
	session.Squash()
	return nil
}

func (c *Chain) applyTransaction(stx transactions.SignedTransaction, policy config.ValidationPolicy) error {
	st := c.st
	tx := stx.Txn
	if err := tx.Validate(st.Params); err != nil {
		return err
	}

	id := stx.ID()
	if !policy.SkipTransactionDupeCheck && st.Transactions.Has(id) {
		return ledgercore.TransactionInLedgerError{Txid: id}
	}

	now := st.HeadBlockTime()
	if tx.Expiration <= now {
		return ledgercore.TxnExpiredError{Txid: id, Expiration: tx.Expiration, Now: now}
	}
	if tx.Expiration > now.Add(st.Params.MaxTimeUntilExpiration) {
		return ledgercore.TxnExpiredError{Txid: id, Expiration: tx.Expiration, Now: now, TooFar: true}
	}

	if !policy.SkipTaposCheck {
		summary, _ := st.BlockSummaries.Get(tx.RefBlockNum)
		if transactions.RefBlockPrefix(summary.BlockID) != tx.RefBlockPrefix {
			return ledgercore.TaposError{Txid: id, RefBlockNum: tx.RefBlockNum, RefBlockPrefix: tx.RefBlockPrefix}
		}
	}

	var keys mapset.Set[crypto.PublicKey]
	var err error
	if policy.SkipTransactionSignatures {
		keys, err = stx.SignatureKeys()
	} else {
		keys, err = verify.CheckSignature(stx, c.chainID)
	}
	if err != nil {
		return err
	}

	req := tx.RequiredAuthorities()
	if !policy.SkipAuthorityCheck {
		err = verify.VerifyAuthority(req, keys, st, verify.Options{MaxDepth: st.Params.MaxSigCheckDepth})
		if err != nil {
			return err
		}
	}

	size := stx.Size()
	market := tx.IsMarket()
	for _, name := range bandwidthAccounts(req) {
		if !st.Accounts.Has(name) {
			continue
		}
		if err := updateBandwidth(st, name, size, false, !policy.SkipAuthorityCheck); err != nil {
			return err
		}
		if market {
			if err := updateBandwidth(st, name, size, true, !policy.SkipAuthorityCheck); err != nil {
				return err
			}
		}
	}

	st.Transactions.Put(id, ledgercore.TransactionObject{Txid: id, Expiration: tx.Expiration})

	for i, op := range tx.Operations {
		if err := apply.Apply(st, op, apply.Env{}); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return nil
}

// bandwidthAccounts are the accounts whose authority a transaction needs,
// in name order.
func bandwidthAccounts(req *transactions.RequiredAuthorities) []basics.AccountName {
	names := req.Owner.Union(req.Active).Union(req.Basic).ToSlice()
	slices.Sort(names)
	return names
}

// decayBandwidth ages an average linearly to zero over window seconds.
func decayBandwidth(avg uint64, elapsed, window int64) uint64 {
	if elapsed >= window {
		return 0
	}
	res, _ := basics.Muldiv(avg, uint64(window-elapsed), uint64(window))
	return res
}

// updateBandwidth charges size bytes to name's average bandwidth, or its
// market bandwidth, and with enforce set fails once the average exceeds the
// account's share of the network allowance: the share of the total vesting
// the account holds, of MaxVirtualBandwidth for ordinary transactions and of
// a fraction of it for market transactions.
func updateBandwidth(st *chainstate.State, name basics.AccountName, size int, market, enforce bool) error {
	d := st.DGP()
	if d.TotalVestingShares <= 0 {
		return nil
	}
	p := st.Params
	now := st.HeadBlockTime()
	charge := uint64(size) * uint64(p.BandwidthPrecision)

	var avg uint64
	var vshares int64
	st.Accounts.Modify(name, func(a *ledgercore.Account) error {
		if market {
			avg = decayBandwidth(a.AverageMarketBandwidth, now.Sub(a.LastMarketBandwidthUpdate), p.BandwidthAverageWindow) + charge
			a.AverageMarketBandwidth = avg
			a.LastMarketBandwidthUpdate = now
		} else {
			avg = decayBandwidth(a.AverageBandwidth, now.Sub(a.LastBandwidthUpdate), p.BandwidthAverageWindow) + charge
			a.AverageBandwidth = avg
			a.LifetimeBandwidth += charge
			a.LastBandwidthUpdate = now
		}
		vshares = a.EffectiveVestingShares()
		return nil
	})
	if !enforce {
		return nil
	}

	allowance := d.MaxVirtualBandwidth
	if market {
		allowance /= uint64(p.MarketBandwidthDivisor)
	}
	stake := uint64(max(vshares, 0))
	have, _ := basics.U128(stake).MulUint64(allowance)
	used, _ := basics.U128(avg).MulUint64(uint64(d.TotalVestingShares))
	if !used.Less(have) {
		allowed, _ := basics.Muldiv(allowance, stake, uint64(d.TotalVestingShares))
		return ledgercore.BandwidthError{Account: name, Market: market, Used: avg, Allowed: allowed}
	}
	return nil
}

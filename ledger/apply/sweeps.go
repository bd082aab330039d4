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

package apply

import (
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// ProcessVestingWithdrawals pays out every withdrawal interval that is due.
// Auto-vest routes are paid first in shares, then liquid routes, and the
// rest goes to the account as MUSE.
func ProcessVestingWithdrawals(st *chainstate.State) error {
	now := st.HeadBlockTime()
	var due []basics.AccountName
	st.AccountsByNextWithdrawal.Scan(func(name basics.AccountName, a ledgercore.Account) bool {
		if a.NextVestingWithdrawal > now {
			return false
		}
		due = append(due, name)
		return true
	})

	for _, name := range due {
		from, _ := st.Accounts.Get(name)
		if from.VestingWithdrawRate == 0 {
			st.ModifyAccount(name, func(a *ledgercore.Account) error {
				a.NextVestingWithdrawal = basics.MaxTimestamp
				return nil
			})
			continue
		}
		available := max(from.VestingShares-from.DelegatedVestingShares, 0)
		var toWithdraw int64
		if from.ToWithdraw-from.Withdrawn < from.VestingWithdrawRate {
			// The last interval pays ToWithdraw modulo the rate, not what is
			// left. After a payout clamped by available shares this can be
			// zero, and the withdrawal keeps rescheduling until it is reset.
			toWithdraw = min(available, from.ToWithdraw%from.VestingWithdrawRate)
		} else {
			toWithdraw = min(available, from.VestingWithdrawRate)
		}

		routes := withdrawRoutes(st, name)
		var depositedAsVests, depositedAsMuse int64
		for _, r := range routes {
			if !r.AutoVest {
				continue
			}
			amount := basics.MulPercent(toWithdraw, uint32(r.Percent))
			depositedAsVests += amount
			if amount == 0 {
				continue
			}
			err := st.ModifyStake(r.To, func(a *ledgercore.Account) error {
				a.VestingShares += amount
				return nil
			})
			if err != nil {
				return err
			}
		}
		for _, r := range routes {
			if r.AutoVest {
				continue
			}
			amount := basics.MulPercent(toWithdraw, uint32(r.Percent))
			depositedAsMuse += amount
			if amount == 0 {
				continue
			}
			muse, err := st.VestingSharePrice().Mul(basics.Vests(amount))
			if err != nil {
				return err
			}
			if err := st.AdjustBalance(r.To, muse); err != nil {
				return err
			}
			st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
				d.TotalVestingFund -= muse.Amount
				d.TotalVestingShares -= amount
			})
		}

		toConvert := toWithdraw - depositedAsVests - depositedAsMuse
		if toConvert < 0 {
			return ledgercore.Assertf(protocol.UnknownOp, "deposited more vests than were supposed to be withdrawn")
		}
		muse, err := st.VestingSharePrice().Mul(basics.Vests(toConvert))
		if err != nil {
			return err
		}
		err = st.ModifyStake(name, func(a *ledgercore.Account) error {
			a.VestingShares -= toWithdraw
			a.Withdrawn += toWithdraw
			if a.Withdrawn >= a.ToWithdraw || a.VestingShares == 0 {
				a.VestingWithdrawRate = 0
				a.NextVestingWithdrawal = basics.MaxTimestamp
			} else {
				a.NextVestingWithdrawal = a.NextVestingWithdrawal.Add(st.Params.VestingWithdrawIntervalSeconds)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := st.AdjustBalance(name, muse); err != nil {
			return err
		}
		st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
			d.TotalVestingFund -= muse.Amount
			d.TotalVestingShares -= toConvert
		})
	}
	return nil
}

// ClearExpiredDelegations returns delegated shares whose return period has
// passed to their delegators.
func ClearExpiredDelegations(st *chainstate.State) error {
	now := st.HeadBlockTime()
	var expired []ledgercore.VestingDelegationExpiration
	st.ExpirationsByTime.Scan(func(_ uint64, e ledgercore.VestingDelegationExpiration) bool {
		if e.Expiration >= now {
			return false
		}
		expired = append(expired, e)
		return true
	})
	for _, e := range expired {
		err := st.ModifyStake(e.Delegator, func(a *ledgercore.Account) error {
			a.DelegatedVestingShares -= e.VestingShares
			return nil
		})
		if err != nil {
			return err
		}
		st.DelegationExpirations.Remove(e.ID)
	}
	return nil
}

// AccountRecoveryProcessing expires recovery requests, drops owner history
// older than the recovery period and applies matured changes of recovery
// partner.
func AccountRecoveryProcessing(st *chainstate.State) {
	now := st.HeadBlockTime()

	var expiredRequests []basics.AccountName
	st.RecoveryRequests.Scan(func(name basics.AccountName, r ledgercore.AccountRecoveryRequest) bool {
		if r.Expires <= now {
			expiredRequests = append(expiredRequests, name)
		}
		return true
	})
	for _, name := range expiredRequests {
		st.RecoveryRequests.Remove(name)
	}

	var staleHistory []uint64
	st.OwnerHistory.Scan(func(id uint64, h ledgercore.OwnerAuthorityHistory) bool {
		if now.Sub(h.LastValidTime) <= st.Params.OwnerAuthRecoveryPeriod {
			return false
		}
		staleHistory = append(staleHistory, id)
		return true
	})
	for _, id := range staleHistory {
		st.OwnerHistory.Remove(id)
	}

	var matured []ledgercore.ChangeRecoveryAccountRequest
	st.RecoveryAccountChanges.Scan(func(_ basics.AccountName, r ledgercore.ChangeRecoveryAccountRequest) bool {
		if r.EffectiveOn <= now {
			matured = append(matured, r)
		}
		return true
	})
	for _, r := range matured {
		if st.Accounts.Has(r.AccountToRecover) {
			st.ModifyAccount(r.AccountToRecover, func(a *ledgercore.Account) error {
				a.RecoveryAccount = r.RecoveryAccount
				return nil
			})
		}
		st.RecoveryAccountChanges.Remove(r.AccountToRecover)
	}
}

// ProcessConversions settles every conversion request that is due at the
// current median price.
func ProcessConversions(st *chainstate.State) error {
	now := st.HeadBlockTime()
	median := st.FeedHistory().CurrentMedianHistory
	if median.IsNull() {
		return nil
	}
	var due []ledgercore.ConvertRequest
	st.ConversionsByDate.Scan(func(_ ledgercore.OwnedKey, r ledgercore.ConvertRequest) bool {
		if r.ConversionDate > now {
			return false
		}
		due = append(due, r)
		return true
	})

	var netMbd, netMuse int64
	for _, r := range due {
		muse, err := median.Mul(basics.Mbd(r.Amount))
		if err != nil {
			return err
		}
		if err := st.AdjustBalance(r.Owner, muse); err != nil {
			return err
		}
		netMbd += r.Amount
		netMuse += muse.Amount
		st.Conversions.Remove(ledgercore.OwnedKey{Owner: r.Owner, ID: r.RequestID})
	}
	if len(due) > 0 {
		st.AdjustSupply(basics.Muse(netMuse))
		st.AdjustSupply(basics.Mbd(-netMbd))
	}
	return nil
}

// ClearExpiredTransactions forgets the ids of transactions that expired,
// since they can no longer be replayed.
func ClearExpiredTransactions(st *chainstate.State) {
	now := st.HeadBlockTime()
	var expired []transactions.Txid
	st.TransactionsByExpiration.Scan(func(id transactions.Txid, tx ledgercore.TransactionObject) bool {
		if tx.Expiration >= now {
			return false
		}
		expired = append(expired, id)
		return true
	})
	for _, id := range expired {
		st.Transactions.Remove(id)
	}
}

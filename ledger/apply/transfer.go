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
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

func sortedNames(s mapset.Set[basics.AccountName]) []basics.AccountName {
	names := s.ToSlice()
	slices.Sort(names)
	return names
}

// requireAsset fails for a user-issued symbol that was never created.
func requireAsset(st *chainstate.State, t protocol.OpType, sym basics.Symbol) error {
	if !sym.IsCore() && !st.Assets.Has(sym) {
		return ledgercore.Assertf(t, "asset %s does not exist", sym)
	}
	return nil
}

// Transfer moves a liquid balance between accounts.
func Transfer(st *chainstate.State, op *transactions.TransferOp) error {
	t := protocol.TransferOp
	from, err := st.Account(t, op.From)
	if err != nil {
		return err
	}
	if err := st.RequireAccount(t, op.To); err != nil {
		return err
	}
	if err := requireAsset(st, t, op.Amount.Symbol); err != nil {
		return err
	}
	if op.Amount.Symbol == basics.VESTS {
		return ledgercore.Assertf(t, "vesting shares cannot be transferred")
	}
	if from.AssetBalance(op.Amount.Symbol) < op.Amount.Amount {
		return ledgercore.Assertf(t, "account %s does not have sufficient funds for transfer", op.From)
	}
	if err := st.AdjustBalance(op.From, op.Amount.Neg()); err != nil {
		return err
	}
	return st.AdjustBalance(op.To, op.Amount)
}

// TransferToVesting converts liquid MUSE of From into vesting shares of To
// (or From) at the current share price.
func TransferToVesting(st *chainstate.State, op *transactions.TransferToVestingOp) error {
	t := protocol.TransferToVestingOp
	from, err := st.Account(t, op.From)
	if err != nil {
		return err
	}
	to := op.To
	if to == "" {
		to = op.From
	}
	if err := st.RequireAccount(t, to); err != nil {
		return err
	}
	if from.Balance < op.Amount.Amount {
		return ledgercore.Assertf(t, "account %s does not have sufficient MUSE for transfer", op.From)
	}
	if err := st.AdjustBalance(op.From, op.Amount.Neg()); err != nil {
		return err
	}
	_, err = st.CreateVesting(to, op.Amount.Amount)
	return err
}

// WithdrawVesting starts, changes or (with zero shares) stops a linear
// power-down over VestingWithdrawIntervals weekly payouts.
func WithdrawVesting(st *chainstate.State, op *transactions.WithdrawVestingOp) error {
	t := protocol.WithdrawVestingOp
	acct, err := st.Account(t, op.Account)
	if err != nil {
		return err
	}
	if acct.VestingShares-acct.DelegatedVestingShares < op.VestingShares.Amount {
		return ledgercore.Assertf(t, "account %s does not have sufficient vesting shares for withdraw", op.Account)
	}
	if op.VestingShares.Amount == 0 {
		if acct.VestingWithdrawRate == 0 {
			return ledgercore.Assertf(t, "this operation would not change the vesting withdraw rate")
		}
		return st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
			a.VestingWithdrawRate = 0
			a.NextVestingWithdrawal = basics.MaxTimestamp
			a.ToWithdraw = 0
			a.Withdrawn = 0
			return nil
		})
	}

	rate := op.VestingShares.Amount / st.Params.VestingWithdrawIntervals
	if rate == 0 {
		rate = 1
	}
	if rate == acct.VestingWithdrawRate {
		return ledgercore.Assertf(t, "this operation would not change the vesting withdraw rate")
	}
	next := st.HeadBlockTime().Add(st.Params.VestingWithdrawIntervalSeconds)
	return st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
		a.VestingWithdrawRate = rate
		a.NextVestingWithdrawal = next
		a.ToWithdraw = op.VestingShares.Amount
		a.Withdrawn = 0
		return nil
	})
}

// SetWithdrawVestingRoute creates, changes or (at 0%) removes a route that
// sends part of every withdrawal payout to another account.
func SetWithdrawVestingRoute(st *chainstate.State, op *transactions.SetWithdrawVestingRouteOp) error {
	t := protocol.SetWithdrawRouteOp
	from, err := st.Account(t, op.FromAccount)
	if err != nil {
		return err
	}
	if err := st.RequireAccount(t, op.ToAccount); err != nil {
		return err
	}
	key := ledgercore.PairKey{First: op.FromAccount, Second: op.ToAccount}
	switch {
	case !st.WithdrawRoutes.Has(key):
		if op.Percent == 0 {
			return ledgercore.Assertf(t, "cannot create a 0%% destination")
		}
		if int(from.WithdrawRoutes) >= st.Params.MaxWithdrawRoutes {
			return ledgercore.Assertf(t, "account %s already has the maximum number of routes", op.FromAccount)
		}
		err = st.WithdrawRoutes.Create(key, ledgercore.WithdrawVestingRoute{
			From:     op.FromAccount,
			To:       op.ToAccount,
			Percent:  op.Percent,
			AutoVest: op.AutoVest,
		})
		if err != nil {
			return err
		}
		st.ModifyAccount(op.FromAccount, func(a *ledgercore.Account) error {
			a.WithdrawRoutes++
			return nil
		})
	case op.Percent == 0:
		st.WithdrawRoutes.Remove(key)
		st.ModifyAccount(op.FromAccount, func(a *ledgercore.Account) error {
			a.WithdrawRoutes--
			return nil
		})
	default:
		st.WithdrawRoutes.Modify(key, func(r *ledgercore.WithdrawVestingRoute) error {
			r.Percent = op.Percent
			r.AutoVest = op.AutoVest
			return nil
		})
	}

	var total uint32
	for _, r := range withdrawRoutes(st, op.FromAccount) {
		total += uint32(r.Percent)
	}
	if total > basics.Percent100 {
		return ledgercore.Assertf(t, "more than 100%% of vesting withdrawals allocated to destinations")
	}
	return nil
}

// withdrawRoutes lists the routes of an account in destination order.
func withdrawRoutes(st *chainstate.State, from basics.AccountName) []ledgercore.WithdrawVestingRoute {
	var routes []ledgercore.WithdrawVestingRoute
	st.WithdrawRoutes.ScanFrom(ledgercore.PairKey{First: from}, func(k ledgercore.PairKey, r ledgercore.WithdrawVestingRoute) bool {
		if k.First != from {
			return false
		}
		routes = append(routes, r)
		return true
	})
	return routes
}

// DelegateVestingShares sets the amount Delegator delegates to Delegatee.
// Increases take effect at once; decreases reach the delegatee at once but
// return to the delegator only after the return period.
func DelegateVestingShares(st *chainstate.State, op *transactions.DelegateVestingSharesOp) error {
	t := protocol.DelegateVestingOp
	p := st.Params
	delegator, err := st.Account(t, op.Delegator)
	if err != nil {
		return err
	}
	if err := st.RequireAccount(t, op.Delegatee); err != nil {
		return err
	}

	available := delegator.VestingShares - delegator.DelegatedVestingShares - (delegator.ToWithdraw - delegator.Withdrawn)
	fee := st.WitnessSchedule().MedianProps.AccountCreationFee.Amount
	price := st.VestingSharePrice()
	minUpdate, err := price.Mul(basics.Muse(fee))
	if err != nil {
		return ledgercore.Assertf(t, "minimum delegation: %v", err)
	}
	minDelegation, overflowed := basics.MuldivAmount(minUpdate.Amount, p.MinDelegationMultiplier, 1)
	if overflowed {
		return ledgercore.Assertf(t, "minimum delegation overflows")
	}

	key := ledgercore.PairKey{First: op.Delegator, Second: op.Delegatee}
	delegation, exists := st.Delegations.Get(key)
	amount := op.VestingShares.Amount

	switch {
	case !exists:
		if available < amount {
			return ledgercore.Assertf(t, "account %s does not have enough vesting shares to delegate", op.Delegator)
		}
		if amount < minDelegation {
			return ledgercore.Assertf(t, "account must delegate a minimum of %v", basics.Vests(minDelegation))
		}
		err = st.Delegations.Create(key, ledgercore.VestingDelegation{
			Delegator:         op.Delegator,
			Delegatee:         op.Delegatee,
			VestingShares:     amount,
			MinDelegationTime: st.HeadBlockTime(),
		})
		if err != nil {
			return err
		}
		return moveDelegation(st, op.Delegator, op.Delegatee, amount)

	case amount >= delegation.VestingShares:
		delta := amount - delegation.VestingShares
		if delta < minUpdate.Amount {
			return ledgercore.Assertf(t, "delegation increase %v is below the minimum of %v", basics.Vests(delta), minUpdate)
		}
		if available < delta {
			return ledgercore.Assertf(t, "account %s does not have enough vesting shares to delegate", op.Delegator)
		}
		st.Delegations.Modify(key, func(d *ledgercore.VestingDelegation) error {
			d.VestingShares = amount
			return nil
		})
		return moveDelegation(st, op.Delegator, op.Delegatee, delta)

	default:
		delta := delegation.VestingShares - amount
		if amount > 0 {
			if delta < minUpdate.Amount {
				return ledgercore.Assertf(t, "delegation decrease %v is below the minimum of %v", basics.Vests(delta), minUpdate)
			}
			if amount < minDelegation {
				return ledgercore.Assertf(t, "delegation must be at least %v or zero", basics.Vests(minDelegation))
			}
		}
		expiration := st.HeadBlockTime().Add(p.DelegationReturnPeriod)
		if delegation.MinDelegationTime > expiration {
			expiration = delegation.MinDelegationTime
		}
		id := st.DelegationExpirations.NextID()
		err = st.DelegationExpirations.Create(id, ledgercore.VestingDelegationExpiration{
			ID:            id,
			Delegator:     op.Delegator,
			VestingShares: delta,
			Expiration:    expiration,
		})
		if err != nil {
			return err
		}
		if err := st.AdjustReceivedVesting(op.Delegatee, -delta); err != nil {
			return err
		}
		if amount > 0 {
			st.Delegations.Modify(key, func(d *ledgercore.VestingDelegation) error {
				d.VestingShares = amount
				return nil
			})
		} else {
			st.Delegations.Remove(key)
		}
		return nil
	}
}

// moveDelegation moves delta delegated shares from delegator to delegatee.
func moveDelegation(st *chainstate.State, delegator, delegatee basics.AccountName, delta int64) error {
	err := st.ModifyStake(delegator, func(a *ledgercore.Account) error {
		a.DelegatedVestingShares += delta
		return nil
	})
	if err != nil {
		return err
	}
	return st.AdjustReceivedVesting(delegatee, delta)
}

// Convert locks MBD in a request that pays MUSE at the median price once
// ConversionDelay has passed.
func Convert(st *chainstate.State, op *transactions.ConvertOp) error {
	t := protocol.ConvertOp
	owner, err := st.Account(t, op.Owner)
	if err != nil {
		return err
	}
	if owner.AssetBalance(op.Amount.Symbol) < op.Amount.Amount {
		return ledgercore.Assertf(t, "account %s does not have sufficient balance for conversion", op.Owner)
	}
	if st.FeedHistory().CurrentMedianHistory.IsNull() {
		return ledgercore.Assertf(t, "cannot convert MBD because there is no price feed")
	}
	key := ledgercore.OwnedKey{Owner: op.Owner, ID: op.RequestID}
	if st.Conversions.Has(key) {
		return ledgercore.Assertf(t, "conversion request %d of %s already exists", op.RequestID, op.Owner)
	}
	if err := st.AdjustBalance(op.Owner, op.Amount.Neg()); err != nil {
		return err
	}
	return st.Conversions.Create(key, ledgercore.ConvertRequest{
		Owner:          op.Owner,
		RequestID:      op.RequestID,
		Amount:         op.Amount.Amount,
		ConversionDate: st.HeadBlockTime().Add(st.Params.ConversionDelay),
	})
}

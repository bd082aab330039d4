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

// requireAuthorityAccounts fails unless every account an authority refers
// to exists.
func requireAuthorityAccounts(st *chainstate.State, op protocol.OpType, auths ...basics.Authority) error {
	for _, a := range auths {
		for _, aw := range a.AccountAuths {
			if !st.Accounts.Has(aw.Name) {
				return ledgercore.Assertf(op, "account %s in authority does not exist", aw.Name)
			}
		}
	}
	return nil
}

// newAccount is the record of a freshly created account.
func newAccount(st *chainstate.State, name, creator basics.AccountName, owner, active, basic basics.Authority) ledgercore.Account {
	now := st.HeadBlockTime()
	return ledgercore.Account{
		Name:                      name,
		Owner:                     owner.Clone(),
		Active:                    active.Clone(),
		Basic:                     basic.Clone(),
		Created:                   now,
		LastOwnerUpdate:           now,
		RecoveryAccount:           creator,
		MbdSecondsLastUpdate:      now,
		MbdLastInterestPayment:    now,
		NextVestingWithdrawal:     basics.MaxTimestamp,
		LastBandwidthUpdate:       now,
		LastMarketBandwidthUpdate: now,
	}
}

func checkCreationFee(st *chainstate.State, op protocol.OpType, creator ledgercore.Account, fee basics.Asset, minFee int64) error {
	if creator.Balance < fee.Amount {
		return ledgercore.Assertf(op, "insufficient balance to create account: %d < %v", creator.Balance, fee)
	}
	if fee.Amount < minFee {
		return ledgercore.Assertf(op, "insufficient fee: %v required, %v provided", basics.Muse(minFee), fee)
	}
	return nil
}

// AccountCreate creates an account paid for by the creator. The whole fee is
// vested for the new account.
func AccountCreate(st *chainstate.State, op *transactions.AccountCreateOp) error {
	t := protocol.AccountCreateOp
	creator, err := st.Account(t, op.Creator)
	if err != nil {
		return err
	}
	minFee := st.WitnessSchedule().MedianProps.AccountCreationFee.Amount
	if err := checkCreationFee(st, t, creator, op.Fee, minFee); err != nil {
		return err
	}
	if st.Accounts.Has(op.NewAccountName) {
		return ledgercore.Assertf(t, "account %s already exists", op.NewAccountName)
	}
	if err := requireAuthorityAccounts(st, t, op.Owner, op.Active, op.Basic); err != nil {
		return err
	}
	if err := st.AdjustBalance(op.Creator, op.Fee.Neg()); err != nil {
		return err
	}
	acct := newAccount(st, op.NewAccountName, op.Creator, op.Owner, op.Active, op.Basic)
	acct.MemoKey = op.MemoKey
	acct.JSONMetadata = op.JSONMetadata
	if err := st.Accounts.Create(acct.Name, acct); err != nil {
		return err
	}
	if op.Fee.Amount > 0 {
		_, err = st.CreateVesting(op.NewAccountName, op.Fee.Amount)
	}
	return err
}

// AccountCreateWithDelegation creates an account whose creation fee is
// partly covered by a vesting delegation from the creator. The delegation
// cannot be reduced before CreateAccountDelegationTime has passed.
func AccountCreateWithDelegation(st *chainstate.State, op *transactions.AccountCreateWithDelegationOp) error {
	t := protocol.AccountCreateDelegationOp
	p := st.Params
	creator, err := st.Account(t, op.Creator)
	if err != nil {
		return err
	}
	medianFee := st.WitnessSchedule().MedianProps.AccountCreationFee.Amount
	if err := checkCreationFee(st, t, creator, op.Fee, medianFee/p.CreateAccountWithMuseModifier); err != nil {
		return err
	}

	price := st.VestingSharePrice()
	targetMuse, overflowed := basics.MuldivAmount(medianFee, p.CreateAccountWithMuseModifier*p.CreateAccountDelegationRatio, 1)
	if overflowed {
		return ledgercore.Assertf(t, "delegation target overflows")
	}
	target, err := price.Mul(basics.Muse(targetMuse))
	if err != nil {
		return ledgercore.Assertf(t, "delegation target: %v", err)
	}
	feeAsVests, err := price.Mul(basics.Muse(op.Fee.Amount * p.CreateAccountDelegationRatio))
	if err != nil {
		return ledgercore.Assertf(t, "fee conversion: %v", err)
	}
	if feeAsVests.Amount+op.Delegation.Amount < target.Amount {
		return ledgercore.Assertf(t, "insufficient delegation: %v required, %v provided",
			basics.Vests(target.Amount-feeAsVests.Amount), op.Delegation)
	}
	available := creator.VestingShares - creator.DelegatedVestingShares - (creator.ToWithdraw - creator.Withdrawn)
	if available < op.Delegation.Amount {
		return ledgercore.Assertf(t, "insufficient vesting shares to delegate to new account")
	}
	if st.Accounts.Has(op.NewAccountName) {
		return ledgercore.Assertf(t, "account %s already exists", op.NewAccountName)
	}
	if err := requireAuthorityAccounts(st, t, op.Owner, op.Active, op.Basic); err != nil {
		return err
	}

	if err := st.AdjustBalance(op.Creator, op.Fee.Neg()); err != nil {
		return err
	}
	err = st.ModifyStake(op.Creator, func(a *ledgercore.Account) error {
		a.DelegatedVestingShares += op.Delegation.Amount
		return nil
	})
	if err != nil {
		return err
	}
	acct := newAccount(st, op.NewAccountName, op.Creator, op.Owner, op.Active, op.Basic)
	acct.MemoKey = op.MemoKey
	acct.JSONMetadata = op.JSONMetadata
	acct.ReceivedVestingShares = op.Delegation.Amount
	if err := st.Accounts.Create(acct.Name, acct); err != nil {
		return err
	}
	if op.Delegation.Amount > 0 {
		key := ledgercore.PairKey{First: op.Creator, Second: op.NewAccountName}
		err = st.Delegations.Create(key, ledgercore.VestingDelegation{
			Delegator:         op.Creator,
			Delegatee:         op.NewAccountName,
			VestingShares:     op.Delegation.Amount,
			MinDelegationTime: st.HeadBlockTime().Add(p.CreateAccountDelegationTime),
		})
		if err != nil {
			return err
		}
	}
	if op.Fee.Amount > 0 {
		_, err = st.CreateVesting(op.NewAccountName, op.Fee.Amount)
	}
	return err
}

// AccountUpdate replaces authorities, the memo key and metadata. Owner
// changes are rate limited and archived for account recovery.
func AccountUpdate(st *chainstate.State, op *transactions.AccountUpdateOp) error {
	t := protocol.AccountUpdateOp
	acct, err := st.Account(t, op.Account)
	if err != nil {
		return err
	}
	now := st.HeadBlockTime()
	if op.Owner != nil {
		if now.Sub(acct.LastOwnerUpdate) <= st.Params.OwnerUpdateLimit {
			return ledgercore.Assertf(t, "owner authority can only be updated once every %d seconds", st.Params.OwnerUpdateLimit)
		}
		if err := requireAuthorityAccounts(st, t, *op.Owner); err != nil {
			return err
		}
	}
	for _, a := range []*basics.Authority{op.Active, op.Basic} {
		if a != nil {
			if err := requireAuthorityAccounts(st, t, *a); err != nil {
				return err
			}
		}
	}

	if op.Owner != nil {
		if err := st.UpdateOwnerAuthority(op.Account, *op.Owner); err != nil {
			return err
		}
	}
	return st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
		if op.Active != nil {
			a.Active = op.Active.Clone()
		}
		if op.Basic != nil {
			a.Basic = op.Basic.Clone()
		}
		if !op.MemoKey.IsZero() {
			a.MemoKey = op.MemoKey
		}
		if op.JSONMetadata != "" {
			a.JSONMetadata = op.JSONMetadata
		}
		if a.OwnerChallenged {
			a.OwnerChallenged = false
			a.LastOwnerProved = now
		}
		if a.ActiveChallenged {
			a.ActiveChallenged = false
			a.LastActiveProved = now
		}
		a.LastAccountUpdate = now
		return nil
	})
}

// RequestAccountRecovery opens, replaces or (with an open authority)
// cancels a recovery request. Only the account's recovery partner may
// file it; accounts without one are recovered by the top witness.
func RequestAccountRecovery(st *chainstate.State, op *transactions.RequestAccountRecoveryOp) error {
	t := protocol.RequestAccountRecoveryOp
	acct, err := st.Account(t, op.AccountToRecover)
	if err != nil {
		return err
	}
	partner := acct.RecoveryAccount
	if partner == "" {
		if top, _, ok := st.WitnessesByVotes.First(); ok {
			partner = top
		}
	}
	if partner != op.RecoveryAccount {
		return ledgercore.Assertf(t, "%s is not the recovery partner of %s", op.RecoveryAccount, op.AccountToRecover)
	}
	if err := requireAuthorityAccounts(st, t, op.NewOwnerAuthority); err != nil {
		return err
	}

	expires := st.HeadBlockTime().Add(st.Params.AccountRecoveryRequestExpiration)
	if !st.RecoveryRequests.Has(op.AccountToRecover) {
		if op.NewOwnerAuthority.IsImpossible() {
			return ledgercore.Assertf(t, "cannot recover using an impossible authority")
		}
		if op.NewOwnerAuthority.WeightThreshold == 0 {
			return ledgercore.Assertf(t, "cannot recover using an open authority")
		}
		return st.RecoveryRequests.Create(op.AccountToRecover, ledgercore.AccountRecoveryRequest{
			AccountToRecover:  op.AccountToRecover,
			NewOwnerAuthority: op.NewOwnerAuthority.Clone(),
			Expires:           expires,
		})
	}
	if op.NewOwnerAuthority.WeightThreshold == 0 {
		st.RecoveryRequests.Remove(op.AccountToRecover)
		return nil
	}
	if op.NewOwnerAuthority.IsImpossible() {
		return ledgercore.Assertf(t, "cannot recover using an impossible authority")
	}
	return st.RecoveryRequests.Modify(op.AccountToRecover, func(r *ledgercore.AccountRecoveryRequest) error {
		r.NewOwnerAuthority = op.NewOwnerAuthority.Clone()
		r.Expires = expires
		return nil
	})
}

// RecoverAccount installs the requested owner authority once the holder
// proves an owner authority the account had within the recovery period.
func RecoverAccount(st *chainstate.State, op *transactions.RecoverAccountOp) error {
	t := protocol.RecoverAccountOp
	acct, err := st.Account(t, op.AccountToRecover)
	if err != nil {
		return err
	}
	now := st.HeadBlockTime()
	if now.Sub(acct.LastAccountRecovery) <= st.Params.OwnerUpdateLimit {
		return ledgercore.Assertf(t, "owner authority can only be updated once every %d seconds", st.Params.OwnerUpdateLimit)
	}
	req, ok := st.RecoveryRequests.Get(op.AccountToRecover)
	if !ok {
		return ledgercore.Assertf(t, "there are no active recovery requests for %s", op.AccountToRecover)
	}
	if !req.NewOwnerAuthority.Equal(op.NewOwnerAuthority) {
		return ledgercore.Assertf(t, "new owner authority does not match recovery request")
	}

	found := false
	st.OwnerHistory.Scan(func(_ uint64, h ledgercore.OwnerAuthorityHistory) bool {
		if h.Account == op.AccountToRecover && h.PreviousOwnerAuthority.Equal(op.RecentOwnerAuthority) {
			found = true
			return false
		}
		return true
	})
	if !found {
		return ledgercore.Assertf(t, "recent authority not found in authority history")
	}

	st.RecoveryRequests.Remove(op.AccountToRecover)
	if err := st.UpdateOwnerAuthority(op.AccountToRecover, op.NewOwnerAuthority); err != nil {
		return err
	}
	return st.ModifyAccount(op.AccountToRecover, func(a *ledgercore.Account) error {
		a.LastAccountRecovery = now
		return nil
	})
}

// ChangeRecoveryAccount schedules a new recovery partner, effective after
// the owner recovery period. Changing back to the current partner cancels
// the pending change.
func ChangeRecoveryAccount(st *chainstate.State, op *transactions.ChangeRecoveryAccountOp) error {
	t := protocol.ChangeRecoveryAccountOp
	if err := st.RequireAccount(t, op.NewRecoveryAccount); err != nil {
		return err
	}
	acct, err := st.Account(t, op.AccountToRecover)
	if err != nil {
		return err
	}
	effective := st.HeadBlockTime().Add(st.Params.OwnerAuthRecoveryPeriod)
	if !st.RecoveryAccountChanges.Has(op.AccountToRecover) {
		return st.RecoveryAccountChanges.Create(op.AccountToRecover, ledgercore.ChangeRecoveryAccountRequest{
			AccountToRecover: op.AccountToRecover,
			RecoveryAccount:  op.NewRecoveryAccount,
			EffectiveOn:      effective,
		})
	}
	if acct.RecoveryAccount == op.NewRecoveryAccount {
		st.RecoveryAccountChanges.Remove(op.AccountToRecover)
		return nil
	}
	return st.RecoveryAccountChanges.Modify(op.AccountToRecover, func(r *ledgercore.ChangeRecoveryAccountRequest) error {
		r.RecoveryAccount = op.NewRecoveryAccount
		r.EffectiveOn = effective
		return nil
	})
}

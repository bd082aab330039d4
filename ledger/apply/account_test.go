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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/test/partitiontest"
)

func devAuthority(name string) basics.Authority {
	return basics.KeyAuthority(bookkeeping.DevGenesisSecrets(basics.AccountName(name)).SignatureVerifier)
}

func createOp(creator, name basics.AccountName, fee int64) *transactions.AccountCreateOp {
	auth := devAuthority(string(name))
	return &transactions.AccountCreateOp{
		Fee:            basics.Muse(fee),
		Creator:        creator,
		NewAccountName: name,
		Owner:          auth,
		Active:         auth,
		Basic:          auth,
	}
}

func TestAccountCreate(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	fee := st.WitnessSchedule().MedianProps.AccountCreationFee.Amount
	require.Equal(t, st.Params.DefaultAccountCreationFee, fee)

	err := applyOp(st, createOp("alice", "dave", fee-1))
	require.ErrorContains(t, err, "insufficient fee")
	require.False(t, st.Accounts.Has("dave"))

	require.NoError(t, applyOp(st, createOp("alice", "dave", fee)))
	dave := account(t, st, "dave")
	require.Equal(t, fee*st.Params.InitialVestingPerMuse, dave.VestingShares)
	require.Zero(t, dave.Balance)
	require.Equal(t, basics.AccountName("alice"), dave.RecoveryAccount)
	require.Equal(t, genesisTime, dave.Created)
	require.Equal(t, basics.MaxTimestamp, dave.NextVestingWithdrawal)
	require.Equal(t, int64(1000000)-fee, account(t, st, "alice").Balance)

	require.ErrorContains(t, applyOp(st, createOp("bob", "dave", fee)), "already exists")

	op := createOp("alice", "erin", fee)
	op.Owner = basics.AccountAuthority("nobody")
	require.Error(t, applyOp(st, op))
}

func TestAccountCreateWithDelegation(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	st.ModifyWitnessSchedule(func(w *ledgercore.WitnessSchedule) {
		w.MedianProps.AccountCreationFee = basics.Muse(3000)
	})
	auth := devAuthority("erin")
	op := &transactions.AccountCreateWithDelegationOp{
		Fee:            basics.Muse(100),
		Delegation:     basics.Vests(100000000),
		Creator:        "alice",
		NewAccountName: "erin",
		Owner:          auth,
		Active:         auth,
		Basic:          auth,
	}
	// 3000 * 30 * 5 MUSE worth of shares, less five times the fee.
	require.ErrorContains(t, applyOp(st, op), "insufficient delegation")

	op.Fee = basics.Muse(99)
	op.Delegation = basics.Vests(450000000)
	require.ErrorContains(t, applyOp(st, op), "insufficient fee")

	op.Fee = basics.Muse(100)
	require.NoError(t, applyOp(st, op))
	erin := account(t, st, "erin")
	require.Equal(t, int64(100000), erin.VestingShares)
	require.Equal(t, int64(450000000), erin.ReceivedVestingShares)
	require.Equal(t, int64(450000000), account(t, st, "alice").DelegatedVestingShares)

	d, ok := st.Delegations.Get(ledgercore.PairKey{First: "alice", Second: "erin"})
	require.True(t, ok)
	require.Equal(t, genesisTime.Add(st.Params.CreateAccountDelegationTime), d.MinDelegationTime)

	// Taking the delegation back waits for the minimum delegation time.
	require.NoError(t, applyOp(st, &transactions.DelegateVestingSharesOp{
		Delegator: "alice", Delegatee: "erin", VestingShares: basics.Vests(0),
	}))
	_, e, ok := st.ExpirationsByTime.First()
	require.True(t, ok)
	require.Equal(t, d.MinDelegationTime, e.Expiration)
	require.Equal(t, int64(450000000), e.VestingShares)
}

func TestAccountCreateWithDelegationAtSharePrice(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	st.ModifyWitnessSchedule(func(w *ledgercore.WitnessSchedule) {
		w.MedianProps.AccountCreationFee = basics.Muse(3000)
	})
	// 500 VESTS per MUSE instead of the initial 1000.
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.TotalVestingFund = 1000000
		d.TotalVestingShares = 500000000
	})
	auth := devAuthority("erin")
	op := &transactions.AccountCreateWithDelegationOp{
		Fee:            basics.Muse(100),
		Delegation:     basics.Vests(224749999),
		Creator:        "alice",
		NewAccountName: "erin",
		Owner:          auth,
		Active:         auth,
		Basic:          auth,
	}
	// 3000 * 30 * 5 * 500 shares, less 100 * 5 * 500 covered by the fee.
	require.ErrorContains(t, applyOp(st, op), "insufficient delegation")

	op.Delegation = basics.Vests(224750000)
	require.NoError(t, applyOp(st, op))
	erin := account(t, st, "erin")
	require.Equal(t, int64(50000), erin.VestingShares)
	require.Equal(t, int64(224750000), erin.ReceivedVestingShares)
}

func TestAccountUpdate(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	newOwner := devAuthority("alice-2")
	update := &transactions.AccountUpdateOp{Account: "alice", Owner: &newOwner, JSONMetadata: `{"a":1}`}

	// Genesis counts as the last owner update.
	st.ModifyAccount("alice", func(a *ledgercore.Account) error {
		a.LastOwnerUpdate = genesisTime
		return nil
	})
	require.ErrorContains(t, applyOp(st, update), "once every")

	advanceTime(st, st.Params.OwnerUpdateLimit+1)
	require.NoError(t, applyOp(st, update))
	a := account(t, st, "alice")
	require.True(t, a.Owner.Equal(newOwner))
	require.Equal(t, `{"a":1}`, a.JSONMetadata)
	require.Equal(t, st.HeadBlockTime(), a.LastOwnerUpdate)
	require.Equal(t, 1, st.OwnerHistory.Len())

	basic := basics.AccountAuthority("bob")
	require.NoError(t, applyOp(st, &transactions.AccountUpdateOp{Account: "alice", Basic: &basic}))
	require.True(t, account(t, st, "alice").Basic.Equal(basic))
	require.Equal(t, `{"a":1}`, account(t, st, "alice").JSONMetadata)
}

func TestAccountUpdateClearsChallenge(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	require.NoError(t, st.ModifyAccount("alice", func(a *ledgercore.Account) error {
		a.OwnerChallenged = true
		a.ActiveChallenged = true
		return nil
	}))
	advanceTime(st, 60)

	require.NoError(t, applyOp(st, &transactions.AccountUpdateOp{Account: "alice", JSONMetadata: `{}`}))
	a := account(t, st, "alice")
	require.False(t, a.OwnerChallenged)
	require.False(t, a.ActiveChallenged)
	require.Equal(t, st.HeadBlockTime(), a.LastOwnerProved)
	require.Equal(t, st.HeadBlockTime(), a.LastActiveProved)

	// An unchallenged authority keeps its last proof time.
	advanceTime(st, 60)
	require.NoError(t, applyOp(st, &transactions.AccountUpdateOp{Account: "alice", JSONMetadata: `{"b":2}`}))
	require.Equal(t, a.LastOwnerProved, account(t, st, "alice").LastOwnerProved)
}

func TestAccountRecovery(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	fee := st.Params.DefaultAccountCreationFee
	require.NoError(t, applyOp(st, createOp("alice", "dave", fee)))

	original := devAuthority("dave")
	stolen := devAuthority("thief")
	recovered := devAuthority("dave-recovered")

	advanceTime(st, st.Params.OwnerUpdateLimit+1)
	require.NoError(t, applyOp(st, &transactions.AccountUpdateOp{Account: "dave", Owner: &stolen}))

	require.ErrorContains(t, applyOp(st, &transactions.RequestAccountRecoveryOp{
		RecoveryAccount: "bob", AccountToRecover: "dave", NewOwnerAuthority: recovered,
	}), "not the recovery partner")
	require.NoError(t, applyOp(st, &transactions.RequestAccountRecoveryOp{
		RecoveryAccount: "alice", AccountToRecover: "dave", NewOwnerAuthority: recovered,
	}))

	require.ErrorContains(t, applyOp(st, &transactions.RecoverAccountOp{
		AccountToRecover: "dave", NewOwnerAuthority: original, RecentOwnerAuthority: original,
	}), "does not match")
	require.ErrorContains(t, applyOp(st, &transactions.RecoverAccountOp{
		AccountToRecover: "dave", NewOwnerAuthority: recovered, RecentOwnerAuthority: devAuthority("other"),
	}), "history")

	require.NoError(t, applyOp(st, &transactions.RecoverAccountOp{
		AccountToRecover: "dave", NewOwnerAuthority: recovered, RecentOwnerAuthority: original,
	}))
	dave := account(t, st, "dave")
	require.True(t, dave.Owner.Equal(recovered))
	require.Equal(t, st.HeadBlockTime(), dave.LastAccountRecovery)
	require.False(t, st.RecoveryRequests.Has("dave"))

	// History expires after the recovery period.
	require.Equal(t, 2, st.OwnerHistory.Len())
	advanceTime(st, st.Params.OwnerAuthRecoveryPeriod+1)
	AccountRecoveryProcessing(st)
	require.Zero(t, st.OwnerHistory.Len())
}

func TestRecoveryRequestExpires(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	require.NoError(t, applyOp(st, &transactions.AccountWitnessVoteOp{Account: "alice", Witness: "bob", Approve: true}))

	// alice has no recovery partner, so the top witness acts for her.
	req := &transactions.RequestAccountRecoveryOp{RecoveryAccount: "bob", AccountToRecover: "alice", NewOwnerAuthority: devAuthority("x")}
	require.NoError(t, applyOp(st, req))
	require.True(t, st.RecoveryRequests.Has("alice"))

	advanceTime(st, st.Params.AccountRecoveryRequestExpiration-1)
	AccountRecoveryProcessing(st)
	require.True(t, st.RecoveryRequests.Has("alice"))
	advanceTime(st, 1)
	AccountRecoveryProcessing(st)
	require.False(t, st.RecoveryRequests.Has("alice"))

	// An open authority cancels.
	require.NoError(t, applyOp(st, req))
	require.NoError(t, applyOp(st, &transactions.RequestAccountRecoveryOp{RecoveryAccount: "bob", AccountToRecover: "alice"}))
	require.False(t, st.RecoveryRequests.Has("alice"))
}

func TestChangeRecoveryAccount(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob", "carol")
	require.NoError(t, applyOp(st, createOp("alice", "dave", st.Params.DefaultAccountCreationFee)))
	require.NoError(t, applyOp(st, &transactions.ChangeRecoveryAccountOp{AccountToRecover: "dave", NewRecoveryAccount: "bob"}))
	require.NoError(t, applyOp(st, &transactions.ChangeRecoveryAccountOp{AccountToRecover: "dave", NewRecoveryAccount: "carol"}))

	AccountRecoveryProcessing(st)
	require.Equal(t, basics.AccountName("alice"), account(t, st, "dave").RecoveryAccount)

	advanceTime(st, st.Params.OwnerAuthRecoveryPeriod)
	AccountRecoveryProcessing(st)
	require.Equal(t, basics.AccountName("carol"), account(t, st, "dave").RecoveryAccount)
	require.Zero(t, st.RecoveryAccountChanges.Len())

	// Changing back to the current partner cancels a pending change.
	require.NoError(t, applyOp(st, &transactions.ChangeRecoveryAccountOp{AccountToRecover: "dave", NewRecoveryAccount: "bob"}))
	require.NoError(t, applyOp(st, &transactions.ChangeRecoveryAccountOp{AccountToRecover: "dave", NewRecoveryAccount: "carol"}))
	require.Zero(t, st.RecoveryAccountChanges.Len())
}

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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/data/transactions/verify"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/ledger/ledgertest"
	"github.com/algorand/go-muse/test/partitiontest"
)

func TestPushTransactionRejects(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir(), "dave")
	produce(t, c, 2)
	chainID := c.ChainID()
	ref := headRef(c)
	policy := config.ValidationPolicy{}

	resign := func(stx transactions.SignedTransaction, signers ...basics.AccountName) transactions.SignedTransaction {
		stx.Signatures = nil
		for _, name := range signers {
			stx.Sign(chainID, ledgertest.Secrets(name))
		}
		return stx
	}

	ok := ledgertest.Transfer(chainID, ref, "alice", "bob", 5, "first")
	require.NoError(t, c.PushTransaction(ok, policy))
	err := c.PushTransaction(ok, policy)
	require.ErrorAs(t, err, &ledgercore.TransactionInLedgerError{})

	expired := ledgertest.Transfer(chainID, ref, "alice", "bob", 5, "expired")
	expired.Txn.Expiration = ref.Time
	err = c.PushTransaction(resign(expired, "alice"), policy)
	var expErr ledgercore.TxnExpiredError
	require.ErrorAs(t, err, &expErr)
	require.False(t, expErr.TooFar)

	far := ledgertest.Transfer(chainID, ref, "alice", "bob", 5, "far")
	far.Txn.Expiration = ref.Time.Add(config.Consensus.MaxTimeUntilExpiration + 1)
	err = c.PushTransaction(resign(far, "alice"), policy)
	require.ErrorAs(t, err, &expErr)
	require.True(t, expErr.TooFar)

	tapos := ledgertest.Transfer(chainID, ref, "alice", "bob", 5, "tapos")
	tapos.Txn.RefBlockPrefix++
	err = c.PushTransaction(resign(tapos, "alice"), policy)
	require.ErrorAs(t, err, &ledgercore.TaposError{})

	unsigned := ledgertest.Transfer(chainID, ref, "alice", "bob", 5, "wrong key")
	err = c.PushTransaction(resign(unsigned, "bob"), policy)
	require.ErrorAs(t, err, &verify.MissingAuthorityError{})

	extra := ledgertest.Transfer(chainID, ref, "alice", "bob", 5, "extra key")
	err = c.PushTransaction(resign(extra, "alice", "carol"), policy)
	require.ErrorAs(t, err, &verify.IrrelevantSignatureError{})

	otherChain := ledgertest.Transfer(chainID, ref, "alice", "bob", 5, "other chain")
	otherChain.Signatures = nil
	otherChain.Sign(ledgertest.Genesis("erin").ChainID(), ledgertest.Secrets("alice"))
	require.Error(t, c.PushTransaction(otherChain, policy))

	// Without vesting an account has no bandwidth.
	broke := ledgertest.Transfer(chainID, ref, "dave", "bob", 5, "no stake")
	err = c.PushTransaction(broke, policy)
	require.ErrorAs(t, err, &ledgercore.BandwidthError{})

	// A failing operation leaves nothing behind.
	overdraft := ledgertest.Transfer(chainID, ref, "alice", "bob", 5000000, "overdraft")
	require.Error(t, c.PushTransaction(overdraft, policy))

	require.Len(t, c.PendingTransactions(), 1)
	require.Equal(t, int64(1000005), balance(t, c, "bob"))
	require.NoError(t, c.ValidateInvariants())
}

func TestBandwidthAccounting(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := openTestChain(t, t.TempDir(), "dave")
	produce(t, c, 1)
	before, ok := c.Account("alice")
	require.True(t, ok)

	stx := ledgertest.Transfer(c.ChainID(), headRef(c), "alice", "dave", 1, "bandwidth")
	require.NoError(t, c.PushTransaction(stx, config.ValidationPolicy{}))
	after, ok := c.Account("alice")
	require.True(t, ok)

	charge := uint64(stx.Size()) * uint64(config.Consensus.BandwidthPrecision)
	require.Equal(t, before.LifetimeBandwidth+charge, after.LifetimeBandwidth)
	require.Equal(t, c.HeadBlockTime(), after.LastBandwidthUpdate)
	require.GreaterOrEqual(t, after.AverageBandwidth, charge)
	require.Zero(t, after.AverageMarketBandwidth)

	// The recipient does not pay.
	dave, ok := c.Account("dave")
	require.True(t, ok)
	require.Zero(t, dave.LifetimeBandwidth)
}

func TestDecayBandwidth(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.Equal(t, uint64(1000), decayBandwidth(1000, 0, 100))
	require.Equal(t, uint64(750), decayBandwidth(1000, 25, 100))
	require.Zero(t, decayBandwidth(1000, 100, 100))
	require.Zero(t, decayBandwidth(1000, 1000, 100))
}

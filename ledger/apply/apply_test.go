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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/protocol"
	"github.com/algorand/go-muse/test/partitiontest"
)

const genesisTime basics.Timestamp = 1600000000

// Every genesis account holds 1000000 MUSE liquid and 1000000 MUSE worth
// of vesting, so the share price stays at 1000 VESTS per MUSE.
func newTestState(t testing.TB, names ...basics.AccountName) *chainstate.State {
	st := chainstate.New(config.Consensus, logging.TestingLog(t))
	g := bookkeeping.MakeDevGenesis("apply-test", genesisTime, names, 1000000, 1000000)
	require.NoError(t, st.InitGenesis(g))
	return st
}

// applyOp runs one operation in its own undo session, the way a
// transaction does, so a failed operation leaves no trace.
func applyOp(st *chainstate.State, body transactions.OpBody) error {
	session := st.DB.StartUndoSession(true)
	defer session.Undo()
	if err := Apply(st, transactions.MakeOperation(body), Env{}); err != nil {
		return err
	}
	session.Squash()
	return nil
}

func advanceTime(st *chainstate.State, secs int64) {
	st.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.Time = d.Time.Add(secs)
	})
}

func account(t *testing.T, st *chainstate.State, name basics.AccountName) ledgercore.Account {
	a, ok := st.Accounts.Get(name)
	require.True(t, ok, "account %s", name)
	return a
}

func TestDisabledOperations(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice", "bob")
	for _, body := range []transactions.OpBody{
		&transactions.EscrowTransferOp{From: "alice", To: "bob", Agent: "bob", MuseAmount: basics.Muse(1)},
		&transactions.EscrowDisputeOp{From: "alice", To: "bob", Agent: "bob", Who: "alice"},
		&transactions.EscrowReleaseOp{From: "alice", To: "bob", Agent: "bob", Who: "alice", Receiver: "bob"},
		&transactions.ReportOverProductionOp{Reporter: "alice"},
	} {
		err := applyOp(st, body)
		require.Error(t, err)
		require.True(t, errors.Is(err, ledgercore.ErrOperationDisabled), "%v", err)
	}
	require.Equal(t, int64(1000000), account(t, st, "alice").Balance)
}

func TestRequiredHardfork(t *testing.T) {
	partitiontest.PartitionTest(t)

	delegate := transactions.MakeOperation(&transactions.DelegateVestingSharesOp{Delegator: "alice", Delegatee: "bob"})
	require.Equal(t, config.HardforkDelegation, RequiredHardfork(delegate))

	report := transactions.MakeOperation(&transactions.StreamingPlatformReportOp{StreamingPlatform: "p", Consumer: "c"})
	require.Equal(t, config.HardforkGenesis, RequiredHardfork(report))
	report.StreamingPlatformReport.SpinningPlatform = "s"
	require.Equal(t, config.HardforkSpinning, RequiredHardfork(report))

	st := newTestState(t, "alice", "bob")
	require.NoError(t, CheckHardfork(st, delegate))
	st.ModifyHardforkProperties(func(h *ledgercore.HardforkProperties) {
		h.LastHardfork = config.HardforkGenesis
	})
	err := CheckHardfork(st, delegate)
	require.ErrorAs(t, err, &ledgercore.AssertionError{})
	require.Error(t, applyOp(st, &transactions.DelegateVestingSharesOp{
		Delegator: "alice", Delegatee: "bob", VestingShares: basics.Vests(1000000000),
	}))
	require.Zero(t, account(t, st, "bob").ReceivedVestingShares)
}

func TestApplyUnknownType(t *testing.T) {
	partitiontest.PartitionTest(t)

	st := newTestState(t, "alice")
	err := Apply(st, transactions.Operation{Type: protocol.OpType("bogus")}, Env{})
	require.ErrorContains(t, err, "no evaluator")
}

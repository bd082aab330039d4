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

// Package ledgertest builds genesis definitions, configs and signed
// transactions for tests that drive a chain.
package ledgertest

import (
	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/data/transactions"
)

// GenesisTime is the timestamp of every test genesis.
const GenesisTime basics.Timestamp = 1600000000

// Witnesses are the genesis witnesses of Genesis.
var Witnesses = []basics.AccountName{"alice", "bob", "carol"}

// Genesis returns a development genesis with Witnesses, each holding
// 1000000 MUSE liquid and as much again vesting, plus the extra accounts,
// which hold 1000000 MUSE and nothing vesting.
func Genesis(extra ...basics.AccountName) bookkeeping.Genesis {
	g := bookkeeping.MakeDevGenesis("ledger-test", GenesisTime, Witnesses, 1000000, 1000000)
	for _, name := range extra {
		pk := Secrets(name).SignatureVerifier
		g.Accounts = append(g.Accounts, bookkeeping.GenesisAccount{
			Name:      name,
			OwnerKey:  pk,
			ActiveKey: pk,
			BasicKey:  pk,
			MemoKey:   pk,
			Balance:   1000000,
		})
	}
	return g
}

// Secrets returns the key of a development account.
func Secrets(name basics.AccountName) *crypto.SignatureSecrets {
	return bookkeeping.DevGenesisSecrets(name)
}

// Config is the default local config with the invariant audit run after
// every block.
func Config() config.Local {
	cfg := config.GetDefaultLocal()
	cfg.ValidateInvariantsEveryBlock = true
	cfg.ForkDBSize = 64
	return cfg
}

// Ref is the block a transaction refers to and the time it is built at.
type Ref struct {
	Num  uint32
	ID   bookkeeping.BlockID
	Time basics.Timestamp
}

// Sign builds a transaction of ops referring to ref, valid for a minute,
// and signs it with the key of every name in signers.
func Sign(chainID crypto.Digest, ref Ref, signers []basics.AccountName, ops ...transactions.OpBody) transactions.SignedTransaction {
	var stx transactions.SignedTransaction
	stx.Txn.SetReferenceBlock(ref.Num, crypto.Digest(ref.ID))
	stx.Txn.Expiration = ref.Time.Add(60)
	for _, body := range ops {
		stx.Txn.Operations = append(stx.Txn.Operations, transactions.MakeOperation(body))
	}
	for _, name := range signers {
		stx.Sign(chainID, Secrets(name))
	}
	return stx
}

// Transfer is a MUSE transfer signed by from.
func Transfer(chainID crypto.Digest, ref Ref, from, to basics.AccountName, amount int64, memo string) transactions.SignedTransaction {
	return Sign(chainID, ref, []basics.AccountName{from}, &transactions.TransferOp{
		From:   from,
		To:     to,
		Amount: basics.Muse(amount),
		Memo:   memo,
	})
}

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

package bookkeeping

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/protocol"
	"github.com/algorand/go-muse/test/partitiontest"
)

func makeTxns(n int) []transactions.SignedTransaction {
	txns := make([]transactions.SignedTransaction, n)
	for i := range txns {
		txns[i].Txn.Expiration = basics.Timestamp(i + 1)
		txns[i].Txn.Operations = []transactions.Operation{transactions.MakeOperation(&transactions.TransferOp{
			From: "alice", To: "bob", Amount: basics.Muse(int64(i + 1)),
		})}
	}
	return txns
}

func TestBlockIDCarriesNumber(t *testing.T) {
	partitiontest.PartitionTest(t)

	var prev BlockHeader
	var id BlockID
	for i := uint32(1); i <= 5; i++ {
		h := BlockHeader{Previous: id, Timestamp: basics.Timestamp(i * 3), Witness: "initminer"}
		require.Equal(t, i, h.Num())
		id = h.ID()
		require.Equal(t, i, id.Num())
		require.NotEqual(t, prev.ID(), id)
		prev = h
	}
}

func TestBlockSignature(t *testing.T) {
	partitiontest.PartitionTest(t)

	s := crypto.SecretsFromPassphrase("witness")
	b := Block{BlockHeader: BlockHeader{Timestamp: 3, Witness: "initminer"}, Transactions: makeTxns(3)}
	b.TransactionMerkleRoot = b.CalculateMerkleRoot()
	b.Sign(s)
	require.True(t, b.ValidateSignee(s.SignatureVerifier))
	require.False(t, b.ValidateSignee(crypto.SecretsFromPassphrase("other").SignatureVerifier))

	id := b.ID()
	b.Timestamp++
	require.NotEqual(t, id, b.ID())
	require.False(t, b.ValidateSignee(s.SignatureVerifier))
}

func TestMerkleRoot(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.True(t, TxnMerkleRoot(nil).IsZero())

	txns := makeTxns(3)
	one := TxnMerkleRoot(txns[:1])
	require.Equal(t, txnMerkleLeaf(&txns[0]), one)

	l0, l1, l2 := txnMerkleLeaf(&txns[0]), txnMerkleLeaf(&txns[1]), txnMerkleLeaf(&txns[2])
	require.Equal(t, merkleNode(merkleNode(l0, l1), l2), TxnMerkleRoot(txns))

	swapped := []transactions.SignedTransaction{txns[1], txns[0], txns[2]}
	require.NotEqual(t, TxnMerkleRoot(txns), TxnMerkleRoot(swapped))

	signed := makeTxns(1)
	signed[0].Sign(crypto.Digest{}, crypto.SecretsFromPassphrase("alice"))
	require.NotEqual(t, TxnMerkleRoot(makeTxns(1)), TxnMerkleRoot(signed))
}

func TestExtensions(t *testing.T) {
	partitiontest.PartitionTest(t)

	h := BlockHeader{Extensions: []Extension{
		MakeVersionExtension(config.SoftwareVersion),
		MakeHardforkVoteExtension(config.HardforkVersions[1], 100),
	}}
	require.NoError(t, h.ValidateExtensions())

	h.Extensions = append(h.Extensions, Extension{Type: 9})
	require.True(t, errors.Is(h.ValidateExtensions(), ErrUnknownExtension))
}

func TestBlockEncoding(t *testing.T) {
	partitiontest.PartitionTest(t)

	b := Block{BlockHeader: BlockHeader{Timestamp: 3, Witness: "initminer"}, Transactions: makeTxns(2)}
	b.Sign(crypto.SecretsFromPassphrase("witness"))
	var back Block
	require.NoError(t, protocol.Decode(protocol.Encode(&b), &back))
	require.Equal(t, b.ID(), back.ID())
	require.Equal(t, b.Size(), back.Size())
}

func TestGenesis(t *testing.T) {
	partitiontest.PartitionTest(t)

	g := MakeDevGenesis("testnet", 1000, []basics.AccountName{"initminer", "witness-b"}, 1000000, 500000)
	require.NoError(t, g.Validate())

	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, g.SaveToFile(path))
	back, err := LoadGenesisFromFile(path)
	require.NoError(t, err)
	require.Equal(t, g.ChainID(), back.ChainID())

	other := g
	other.ChainName = "other"
	require.NotEqual(t, g.ChainID(), other.ChainID())

	bad := g
	bad.Witnesses = append([]GenesisWitness(nil), g.Witnesses...)
	bad.Witnesses = append(bad.Witnesses, GenesisWitness{Owner: "nobody", SigningKey: g.Witnesses[0].SigningKey})
	require.Error(t, bad.Validate())

	dup := g
	dup.Accounts = append(append([]GenesisAccount(nil), g.Accounts...), g.Accounts[0])
	require.Error(t, dup.Validate())
}

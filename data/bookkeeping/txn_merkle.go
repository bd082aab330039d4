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
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/protocol"
)

// txnMerkleLeaf commits to both the transaction id and its signatures.
func txnMerkleLeaf(stx *transactions.SignedTransaction) crypto.Digest {
	txid := stx.ID()
	full := crypto.Hash(protocol.Encode(stx))

	var buf [len(protocol.TxnMerkleLeaf) + 2*crypto.DigestSize]byte
	s := buf[:0]
	s = append(s, protocol.TxnMerkleLeaf...)
	s = append(s, txid[:]...)
	s = append(s, full[:]...)
	return crypto.Hash(s)
}

func merkleNode(left, right crypto.Digest) crypto.Digest {
	var buf [len(protocol.MerkleNode) + 2*crypto.DigestSize]byte
	s := buf[:0]
	s = append(s, protocol.MerkleNode...)
	s = append(s, left[:]...)
	s = append(s, right[:]...)
	return crypto.Hash(s)
}

// TxnMerkleRoot hashes the transactions pairwise, level by level. An odd
// node is promoted unchanged; there is no padding. The root of an empty
// list is the zero digest.
func TxnMerkleRoot(txns []transactions.SignedTransaction) crypto.Digest {
	if len(txns) == 0 {
		return crypto.Digest{}
	}
	level := make([]crypto.Digest, len(txns))
	for i := range txns {
		level[i] = txnMerkleLeaf(&txns[i])
	}
	for len(level) > 1 {
		next := level[:0]
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, merkleNode(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}

// CalculateMerkleRoot computes the transaction merkle root of the block.
func (b Block) CalculateMerkleRoot() crypto.Digest {
	return TxnMerkleRoot(b.Transactions)
}

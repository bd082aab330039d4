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

package ledgercore

import (
	"bytes"
	"cmp"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
)

// TransactionObject records an applied transaction until it expires.
type TransactionObject struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Txid       transactions.Txid `codec:"txid"`
	Expiration basics.Timestamp  `codec:"exp"`
}

// Clone returns a copy.
func (t TransactionObject) Clone() TransactionObject { return t }

// CompareTxExpiration orders transactions by expiration.
func CompareTxExpiration(a, b TransactionObject) int {
	return cmp.Compare(a.Expiration, b.Expiration)
}

// CompareTxid orders transaction ids bytewise.
func CompareTxid(a, b transactions.Txid) int {
	return bytes.Compare(a[:], b[:])
}

// BlockSummary is a recent block id, keyed by the low 16 bits of its
// number. TaPoS references resolve against it.
type BlockSummary struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	BlockID crypto.Digest `codec:"id"`
}

// Clone returns a copy.
func (b BlockSummary) Clone() BlockSummary { return b }

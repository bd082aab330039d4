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

package protocol

// HashID is a domain separation prefix for an object type that might be hashed
// This ensures, for example, the hash of a transaction will never collide with the hash of a block header
type HashID string

// Hash IDs for specific object types, in lexicographic order to avoid dups.
const (
	BlockHeader     HashID = "BH"
	ChainID         HashID = "CI"
	Genesis         HashID = "GE"
	MerkleNode      HashID = "MN"
	StoreSnapshot   HashID = "SS"
	TestHashable    HashID = "TE"
	TxnMerkleLeaf   HashID = "TL"
	Transaction     HashID = "TX"
	TransactionSign HashID = "TXS"
	WitnessSchedule HashID = "WS"
)

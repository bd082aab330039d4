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
	"encoding/binary"
	"fmt"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/protocol"
)

// BlockID identifies a block. The first four bytes hold the block number,
// big-endian; the rest is the header hash.
type BlockID crypto.Digest

// String returns the id in hex.
func (id BlockID) String() string {
	return crypto.Digest(id).String()
}

// IsZero reports whether the id is unset; the genesis parent is zero.
func (id BlockID) IsZero() bool {
	return id == BlockID{}
}

// Num extracts the block number.
func (id BlockID) Num() uint32 {
	return binary.BigEndian.Uint32(id[:4])
}

// RefPrefix is the TaPoS prefix transactions use to reference this block.
func (id BlockID) RefPrefix() uint32 {
	return transactions.RefBlockPrefix(crypto.Digest(id))
}

// BlockHeader is the signed part of a block, minus the signature.
type BlockHeader struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Previous              BlockID            `codec:"prev"`
	Timestamp             basics.Timestamp   `codec:"ts"`
	Witness               basics.AccountName `codec:"witness"`
	TransactionMerkleRoot crypto.Digest      `codec:"txroot"`
	Extensions            []Extension        `codec:"ext"`
}

// Block is a header, its witness signature, and its transactions in
// application order.
type Block struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	BlockHeader
	WitnessSignature crypto.Signature                 `codec:"wsig"`
	Transactions     []transactions.SignedTransaction `codec:"txns"`
}

// ToBeHashed implements the crypto.Hashable interface.
func (bh BlockHeader) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.BlockHeader, protocol.Encode(&bh)
}

// Num is the height of the block.
func (bh BlockHeader) Num() uint32 {
	return bh.Previous.Num() + 1
}

// Digest is the hash the witness signs.
func (bh BlockHeader) Digest() crypto.Digest {
	return crypto.HashObj(bh)
}

// ID returns the block id.
func (bh BlockHeader) ID() BlockID {
	id := BlockID(bh.Digest())
	binary.BigEndian.PutUint32(id[:4], bh.Num())
	return id
}

// Sign sets the witness signature.
func (b *Block) Sign(secrets *crypto.SignatureSecrets) {
	d := b.Digest()
	b.WitnessSignature = secrets.SignBytes(d[:])
}

// ValidateSignee reports whether the block was signed by pk.
func (b Block) ValidateSignee(pk crypto.PublicKey) bool {
	d := b.Digest()
	return pk.VerifyBytes(d[:], b.WitnessSignature)
}

// Size is the encoded length of the block.
func (b Block) Size() int {
	return protocol.EncodedLen(&b)
}

// String is a short description for logs.
func (b Block) String() string {
	return fmt.Sprintf("block %d (%v) by %s with %d txns", b.Num(), b.ID(), b.Witness, len(b.Transactions))
}

// ValidateExtensions decodes every extension, rejecting unknown ones.
func (bh BlockHeader) ValidateExtensions() error {
	for i, ext := range bh.Extensions {
		if err := ext.Validate(); err != nil {
			return fmt.Errorf("extension %d: %w", i, err)
		}
	}
	return nil
}

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

package transactions

import (
	"encoding/binary"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/protocol"
)

// Txid is the hash of a transaction without its signatures.
type Txid crypto.Digest

// String returns the id in hex.
func (txid Txid) String() string {
	return crypto.Digest(txid).String()
}

// Transaction is an ordered batch of operations bound to a recent block
// (TaPoS) and valid until Expiration.
type Transaction struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	RefBlockNum    uint16           `codec:"refnum"`
	RefBlockPrefix uint32           `codec:"refpfx"`
	Expiration     basics.Timestamp `codec:"exp"`
	Operations     []Operation      `codec:"ops"`
}

// TxSignature is a signature together with the key that produced it.
type TxSignature struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Signer crypto.PublicKey `codec:"pk"`
	Sig    crypto.Signature `codec:"sig"`
}

// SignedTransaction is a transaction with its signatures.
type SignedTransaction struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Txn        Transaction   `codec:"txn"`
	Signatures []TxSignature `codec:"sigs"`
}

// ID returns the id of the unsigned transaction.
func (stx SignedTransaction) ID() Txid {
	return stx.Txn.ID()
}

// ToBeHashed implements the crypto.Hashable interface.
func (tx Transaction) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.Transaction, protocol.Encode(&tx)
}

// ID returns the transaction id.
func (tx Transaction) ID() Txid {
	return Txid(crypto.HashObj(tx))
}

type signingMessage struct {
	chainID crypto.Digest
	tx      *Transaction
}

func (m signingMessage) ToBeHashed() (protocol.HashID, []byte) {
	return protocol.TransactionSign, append(append([]byte(nil), m.chainID[:]...), protocol.Encode(m.tx)...)
}

// SigningDigest is what signers sign. It binds the transaction to a chain.
func (tx *Transaction) SigningDigest(chainID crypto.Digest) crypto.Digest {
	return crypto.HashObj(signingMessage{chainID: chainID, tx: tx})
}

// SetReferenceBlock binds the transaction to a block (TaPoS).
func (tx *Transaction) SetReferenceBlock(num uint32, id crypto.Digest) {
	tx.RefBlockNum = uint16(num)
	tx.RefBlockPrefix = RefBlockPrefix(id)
}

// RefBlockPrefix extracts the TaPoS prefix of a block id.
func RefBlockPrefix(id crypto.Digest) uint32 {
	return binary.LittleEndian.Uint32(id[4:8])
}

// Sign appends a signature by secrets.
func (stx *SignedTransaction) Sign(chainID crypto.Digest, secrets *crypto.SignatureSecrets) {
	d := stx.Txn.SigningDigest(chainID)
	stx.Signatures = append(stx.Signatures, TxSignature{
		Signer: secrets.SignatureVerifier,
		Sig:    secrets.SignBytes(d[:]),
	})
}

// Validate runs the stateless checks: size, a non-empty operation list, and
// every operation's own validation.
func (tx Transaction) Validate(proto config.ConsensusParams) error {
	if len(tx.Operations) == 0 {
		return validationErrorf(protocol.UnknownOp, "transaction has no operations")
	}
	if sz := len(protocol.Encode(&tx)); sz > proto.MaxTransactionSize {
		return validationErrorf(protocol.UnknownOp, "transaction size %d exceeds %d", sz, proto.MaxTransactionSize)
	}
	for _, op := range tx.Operations {
		if err := op.Validate(proto); err != nil {
			return err
		}
	}
	return nil
}

// RequiredAuthorities collects the authorities of every operation.
func (tx Transaction) RequiredAuthorities() *RequiredAuthorities {
	req := MakeRequiredAuthorities()
	for _, op := range tx.Operations {
		op.Authorities(req)
	}
	return req
}

// IsMarket reports whether any operation is a market operation.
func (tx Transaction) IsMarket() bool {
	for _, op := range tx.Operations {
		if op.IsMarket() {
			return true
		}
	}
	return false
}

// SignatureKeys returns the signing keys, rejecting a key that signed twice.
func (stx SignedTransaction) SignatureKeys() (mapset.Set[crypto.PublicKey], error) {
	keys := mapset.NewThreadUnsafeSetWithSize[crypto.PublicKey](len(stx.Signatures))
	for _, s := range stx.Signatures {
		if !keys.Add(s.Signer) {
			return nil, DuplicateSignatureError{Key: s.Signer}
		}
	}
	return keys, nil
}

// Size is the encoded length of the signed transaction, the unit of
// bandwidth accounting.
func (stx SignedTransaction) Size() int {
	return protocol.EncodedLen(&stx)
}

// DuplicateSignatureError is returned when a key signed a transaction twice.
type DuplicateSignatureError struct {
	Key crypto.PublicKey
}

func (err DuplicateSignatureError) Error() string {
	return "duplicate signature by " + err.Key.String()
}

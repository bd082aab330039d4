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

package crypto

import (
	"errors"

	"github.com/hdevalence/ed25519consensus"
)

// ErrBatchHasFailedSigs is returned by Verify when at least one signature in the batch is invalid.
var ErrBatchHasFailedSigs = errors.New("At least one signature didn't pass verification")

// ErrZeroTransactionInBatch is returned when verifying an empty batch.
var ErrZeroTransactionInBatch = errors.New("could not validate empty signature set")

const minBatchVerifierAlloc = 16

type batchEntry struct {
	message   []byte
	publicKey PublicKey
	signature Signature
}

// BatchVerifier enqueues signatures to be validated in batch.
type BatchVerifier struct {
	entries []batchEntry
	bv      ed25519consensus.BatchVerifier
	zeroKey bool
}

// MakeBatchVerifier creates a BatchVerifier instance sized for hint signatures.
func MakeBatchVerifier(hint int) *BatchVerifier {
	if hint <= 0 {
		hint = minBatchVerifierAlloc
	}
	return &BatchVerifier{
		entries: make([]batchEntry, 0, hint),
		bv:      ed25519consensus.NewPreallocatedBatchVerifier(hint),
	}
}

// EnqueueSignature enqueues a signature over an already domain-separated message.
func (b *BatchVerifier) EnqueueSignature(pk PublicKey, message []byte, sig Signature) {
	b.entries = append(b.entries, batchEntry{message: message, publicKey: pk, signature: sig})
	if pk.IsZero() {
		b.zeroKey = true
		return
	}
	b.bv.Add(pk[:], message, sig[:])
}

// GetNumberOfEnqueuedSignatures returns the number of signatures currently enqueued into the BatchVerifier
func (b *BatchVerifier) GetNumberOfEnqueuedSignatures() int {
	return len(b.entries)
}

// Verify verifies that all the signatures are valid.
func (b *BatchVerifier) Verify() error {
	if len(b.entries) == 0 {
		return nil
	}
	if b.zeroKey || !b.bv.Verify() {
		return ErrBatchHasFailedSigs
	}
	return nil
}

// VerifyWithFeedback verifies the batch and, if it fails, reports which
// entries were invalid by checking each one individually.
func (b *BatchVerifier) VerifyWithFeedback() (failed []bool, err error) {
	if err = b.Verify(); err == nil {
		return nil, nil
	}
	failed = make([]bool, len(b.entries))
	for i, e := range b.entries {
		failed[i] = !e.publicKey.VerifyBytes(e.message, e.signature)
	}
	return failed, err
}

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

package verify

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/util/metrics"
)

var sigsChecked = metrics.MakeCounter(metrics.VerifySignaturesChecked)
var sigsFailed = metrics.MakeCounter(metrics.VerifySignaturesFailed)

// txnPerWorkset is how many transactions one goroutine batch-verifies.
const txnPerWorkset = 32

// ErrNoSignatures is returned for a transaction without any signature.
var ErrNoSignatures = errors.New("transaction has no signatures")

// SignatureError reports a transaction whose signatures failed to verify.
type SignatureError struct {
	Index int
	Txid  transactions.Txid
}

func (err SignatureError) Error() string {
	return fmt.Sprintf("transaction %d (%v) has an invalid signature", err.Index, err.Txid)
}

// CheckSignature verifies every signature of a single transaction and
// returns its signing keys.
func CheckSignature(stx transactions.SignedTransaction, chainID crypto.Digest) (mapset.Set[crypto.PublicKey], error) {
	keys, err := stx.SignatureKeys()
	if err != nil {
		return nil, err
	}
	if len(stx.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	d := stx.Txn.SigningDigest(chainID)
	sigsChecked.AddUint64(uint64(len(stx.Signatures)))
	for _, s := range stx.Signatures {
		if !s.Signer.VerifyBytes(d[:], s.Sig) {
			sigsFailed.Inc()
			return nil, SignatureError{Txid: stx.ID()}
		}
	}
	return keys, nil
}

// CheckSignatures verifies the signatures of a block's transactions in
// parallel worksets. It only checks cryptography; authority is verified
// against state when each transaction is applied.
func CheckSignatures(ctx context.Context, txns []transactions.SignedTransaction, chainID crypto.Digest) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for start := 0; start < len(txns); start += txnPerWorkset {
		end := start + txnPerWorkset
		if end > len(txns) {
			end = len(txns)
		}
		start := start
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return checkWorkset(txns[start:end], start, chainID)
		})
	}
	return g.Wait()
}

func checkWorkset(txns []transactions.SignedTransaction, offset int, chainID crypto.Digest) error {
	bv := crypto.MakeBatchVerifier(len(txns))
	owner := make([]int, 0, len(txns))
	for i, stx := range txns {
		if _, err := stx.SignatureKeys(); err != nil {
			return fmt.Errorf("transaction %d: %w", offset+i, err)
		}
		if len(stx.Signatures) == 0 {
			return fmt.Errorf("transaction %d: %w", offset+i, ErrNoSignatures)
		}
		d := stx.Txn.SigningDigest(chainID)
		for _, s := range stx.Signatures {
			bv.EnqueueSignature(s.Signer, d[:], s.Sig)
			owner = append(owner, i)
		}
	}
	sigsChecked.AddUint64(uint64(bv.GetNumberOfEnqueuedSignatures()))
	failed, err := bv.VerifyWithFeedback()
	if err == nil {
		return nil
	}
	for j, bad := range failed {
		if bad {
			sigsFailed.Inc()
			i := owner[j]
			return SignatureError{Index: offset + i, Txid: txns[i].ID()}
		}
	}
	return err
}

func sortedNames(set mapset.Set[basics.AccountName]) []basics.AccountName {
	names := set.ToSlice()
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func sortedStrings(set mapset.Set[string]) []string {
	s := set.ToSlice()
	sort.Strings(s)
	return s
}

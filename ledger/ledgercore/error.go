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
	"errors"
	"fmt"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/protocol"
)

// ErrOperationDisabled is returned by evaluators of operations that are
// part of the wire format but not active on this chain.
var ErrOperationDisabled = errors.New("operation is disabled")

// AssertionError is a failed state precondition inside an evaluator. It
// aborts the enclosing checkpoint only.
type AssertionError struct {
	Op     protocol.OpType
	Reason string
}

// Error satisfies builtin interface `error`
func (err AssertionError) Error() string {
	if err.Op == protocol.UnknownOp {
		return err.Reason
	}
	return fmt.Sprintf("%s: %s", err.Op, err.Reason)
}

// Assertf builds an AssertionError.
func Assertf(op protocol.OpType, format string, args ...interface{}) error {
	return AssertionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// TransactionInLedgerError is returned when a transaction cannot be added because it has already been done
type TransactionInLedgerError struct {
	Txid transactions.Txid
}

// Error satisfies builtin interface `error`
func (tile TransactionInLedgerError) Error() string {
	return fmt.Sprintf("transaction already in ledger: %v", tile.Txid)
}

// TxnExpiredError is returned for a transaction outside its validity window.
type TxnExpiredError struct {
	Txid       transactions.Txid
	Expiration basics.Timestamp
	Now        basics.Timestamp
	TooFar     bool
}

// Error satisfies builtin interface `error`
func (err TxnExpiredError) Error() string {
	if err.TooFar {
		return fmt.Sprintf("transaction %v expiration %v is too far in the future of %v", err.Txid, err.Expiration, err.Now)
	}
	return fmt.Sprintf("transaction %v expired at %v, now %v", err.Txid, err.Expiration, err.Now)
}

// TaposError is returned when a transaction references a block that is not
// part of this chain.
type TaposError struct {
	Txid           transactions.Txid
	RefBlockNum    uint16
	RefBlockPrefix uint32
}

// Error satisfies builtin interface `error`
func (err TaposError) Error() string {
	return fmt.Sprintf("transaction %v references unknown block %d/%08x", err.Txid, err.RefBlockNum, err.RefBlockPrefix)
}

// BandwidthError is returned when an account exceeds its bandwidth allowance.
type BandwidthError struct {
	Account basics.AccountName
	Market  bool
	Used    uint64
	Allowed uint64
}

// Error satisfies builtin interface `error`
func (err BandwidthError) Error() string {
	kind := "bandwidth"
	if err.Market {
		kind = "market bandwidth"
	}
	return fmt.Sprintf("account %s exceeded %s: %d used, %d allowed", err.Account, kind, err.Used, err.Allowed)
}

// BlockHeaderError makes a block unacceptable.
type BlockHeaderError struct {
	Num    uint32
	Reason string
}

// Error satisfies builtin interface `error`
func (err BlockHeaderError) Error() string {
	return fmt.Sprintf("block %d rejected: %s", err.Num, err.Reason)
}

// InvariantError is an audit mismatch between cached aggregates and the
// totals recomputed from every record.
type InvariantError struct {
	Reason string
}

// Error satisfies builtin interface `error`
func (err InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s", err.Reason)
}

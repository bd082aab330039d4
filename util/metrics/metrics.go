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

package metrics

// MetricName describes the name and description of a single metric
type MetricName struct {
	Name        string
	Description string
}

var (
	// LedgerBlocksApplied counts blocks applied to the head state, including
	// blocks re-applied during fork switches.
	LedgerBlocksApplied = MetricName{Name: "muse_ledger_blocks_applied_total", Description: "Total number of blocks applied"}
	// LedgerTransactionsApplied counts transactions applied inside blocks.
	LedgerTransactionsApplied = MetricName{Name: "muse_ledger_transactions_applied_total", Description: "Total number of transactions applied in blocks"}
	// LedgerTransactionsRejected counts pushed transactions that failed.
	LedgerTransactionsRejected = MetricName{Name: "muse_ledger_transactions_rejected_total", Description: "Total number of pushed transactions rejected"}
	// LedgerBlocksRejected counts pushed blocks that failed to apply.
	LedgerBlocksRejected = MetricName{Name: "muse_ledger_blocks_rejected_total", Description: "Total number of pushed blocks rejected"}
	// LedgerForkSwitches counts switches to a longer fork.
	LedgerForkSwitches = MetricName{Name: "muse_ledger_fork_switches_total", Description: "Total number of fork switches"}
	// LedgerHeadBlock is the head block number.
	LedgerHeadBlock = MetricName{Name: "muse_ledger_head_block", Description: "Head block number"}
	// LedgerIrreversibleBlock is the last irreversible block number.
	LedgerIrreversibleBlock = MetricName{Name: "muse_ledger_irreversible_block", Description: "Last irreversible block number"}
	// VerifySignaturesChecked counts transaction signatures checked.
	VerifySignaturesChecked = MetricName{Name: "muse_verify_signatures_total", Description: "Total number of transaction signatures checked"}
	// VerifySignaturesFailed counts transaction signatures that failed.
	VerifySignaturesFailed = MetricName{Name: "muse_verify_signatures_failed_total", Description: "Total number of transaction signatures that failed to verify"}
)

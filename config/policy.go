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

package config

// ValidationPolicy selects which checks run when pushing blocks and
// transactions. Skipping a check never changes evaluation results on
// valid input; it only trusts the input instead of verifying it.
type ValidationPolicy struct {
	SkipWitnessSignature      bool
	SkipTransactionSignatures bool
	SkipTransactionDupeCheck  bool
	SkipForkDB                bool
	SkipBlockSizeCheck        bool
	SkipTaposCheck            bool
	SkipAuthorityCheck        bool
	SkipMerkleCheck           bool
	SkipUndoHistoryCheck      bool
	SkipWitnessScheduleCheck  bool
	SkipValidateInvariants    bool
}

// ReplayPolicy trusts blocks read back from our own block log.
func ReplayPolicy() ValidationPolicy {
	return ValidationPolicy{
		SkipWitnessSignature:      true,
		SkipTransactionSignatures: true,
		SkipTransactionDupeCheck:  true,
		SkipForkDB:                true,
		SkipBlockSizeCheck:        true,
		SkipTaposCheck:            true,
		SkipAuthorityCheck:        true,
		SkipMerkleCheck:           true,
		SkipUndoHistoryCheck:      true,
		SkipWitnessScheduleCheck:  true,
		SkipValidateInvariants:    true,
	}
}

// GenerationPolicy is used when producing our own block: transactions were
// already checked when they entered the pending pool.
func GenerationPolicy(base ValidationPolicy) ValidationPolicy {
	base.SkipWitnessSignature = true
	base.SkipTransactionSignatures = true
	base.SkipTaposCheck = true
	base.SkipAuthorityCheck = true
	base.SkipTransactionDupeCheck = true
	return base
}

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

package apply

import (
	"fmt"

	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// Disabled is the evaluator of operations that are part of the wire format
// but not active: escrow transfer, dispute and release, and
// report_over_production.
func Disabled(t protocol.OpType) error {
	return fmt.Errorf("%s: %w", t, ledgercore.ErrOperationDisabled)
}

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
	"fmt"

	"github.com/algorand/go-muse/protocol"
)

// ValidationError is returned by the stateless Validate checks of an
// operation or transaction. It is raised before any state is touched.
type ValidationError struct {
	Op     protocol.OpType
	Reason string
}

func (err ValidationError) Error() string {
	if err.Op == protocol.UnknownOp {
		return fmt.Sprintf("invalid transaction: %s", err.Reason)
	}
	return fmt.Sprintf("invalid %s operation: %s", err.Op, err.Reason)
}

func validationErrorf(op protocol.OpType, format string, args ...interface{}) error {
	return ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

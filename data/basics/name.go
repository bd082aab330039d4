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

package basics

import (
	"fmt"
	"strings"
)

// Account name length bounds.
const (
	MinAccountNameLength = 3
	MaxAccountNameLength = 16
)

// AccountName names an account. Names are the primary key of accounts and
// the unit of authority delegation.
type AccountName string

// String implements fmt.Stringer.
func (n AccountName) String() string {
	return string(n)
}

// Validate checks the name: 3 to 16 characters made of dot-separated labels,
// each at least 3 characters long, starting with a letter, ending with a
// letter or digit, and containing only lower case letters, digits and
// single dashes.
func (n AccountName) Validate() error {
	s := string(n)
	if len(s) < MinAccountNameLength || len(s) > MaxAccountNameLength {
		return fmt.Errorf("account name %q must be %d to %d characters", s, MinAccountNameLength, MaxAccountNameLength)
	}
	for _, label := range strings.Split(s, ".") {
		if len(label) < MinAccountNameLength {
			return fmt.Errorf("account name %q has a label shorter than %d characters", s, MinAccountNameLength)
		}
		if label[0] < 'a' || label[0] > 'z' {
			return fmt.Errorf("account name %q has a label not starting with a letter", s)
		}
		last := label[len(label)-1]
		if !(last >= 'a' && last <= 'z') && !(last >= '0' && last <= '9') {
			return fmt.Errorf("account name %q has a label ending with %q", s, last)
		}
		for i := 1; i < len(label)-1; i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			case c == '-':
				if label[i-1] == '-' {
					return fmt.Errorf("account name %q has consecutive dashes", s)
				}
			default:
				return fmt.Errorf("account name %q contains %q", s, c)
			}
		}
	}
	return nil
}

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
	"errors"
	"fmt"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
)

// ErrUnknownExtension is returned for an extension tag this software does
// not know.
var ErrUnknownExtension = errors.New("unknown block header extension")

// ExtensionType tags a block header extension.
type ExtensionType uint8

// Known extension tags.
const (
	// VersionExtension announces the software version of the witness.
	VersionExtension ExtensionType = 1
	// HardforkVoteExtension votes for a hardfork version to activate at a time.
	HardforkVoteExtension ExtensionType = 2
)

// Extension is a tagged block header extension.
type Extension struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Type         ExtensionType    `codec:"t"`
	Version      config.Version   `codec:"v"`
	HardforkTime basics.Timestamp `codec:"hft"`
}

// MakeVersionExtension announces v.
func MakeVersionExtension(v config.Version) Extension {
	return Extension{Type: VersionExtension, Version: v}
}

// MakeHardforkVoteExtension votes for hardfork version v at time t.
func MakeHardforkVoteExtension(v config.Version, t basics.Timestamp) Extension {
	return Extension{Type: HardforkVoteExtension, Version: v, HardforkTime: t}
}

// Validate checks the tag.
func (e Extension) Validate() error {
	switch e.Type {
	case VersionExtension:
		if e.HardforkTime != 0 {
			return fmt.Errorf("version extension carries a hardfork time")
		}
		return nil
	case HardforkVoteExtension:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownExtension, e.Type)
	}
}

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

import "fmt"

// Version is a software or hardfork version packed as major.minor.patch.
type Version uint32

// MakeVersion packs a version.
func MakeVersion(major, minor, patch uint8) Version {
	return Version(uint32(major)<<16 | uint32(minor)<<8 | uint32(patch))
}

// String formats the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", uint8(v>>16), uint8(v>>8), uint8(v))
}

// Hardfork numbers.
const (
	// HardforkGenesis is always active.
	HardforkGenesis = 0
	// HardforkDelegation enables vesting delegation, account creation with
	// delegation and limit_order_create2.
	HardforkDelegation = 1
	// HardforkSpinning enables reporting delegates and redelegation, skips
	// witnesses without a signing key when scheduling, shuts down witnesses
	// that miss a day of blocks, and clamps the effective median feed.
	HardforkSpinning = 2

	NumHardforks = 2
)

// HardforkVersions maps each hardfork number to the version that enables it.
var HardforkVersions = [NumHardforks + 1]Version{
	MakeVersion(0, 0, 0),
	MakeVersion(0, 1, 0),
	MakeVersion(0, 2, 0),
}

// SoftwareVersion is the version a witness running this code announces.
var SoftwareVersion = HardforkVersions[NumHardforks]

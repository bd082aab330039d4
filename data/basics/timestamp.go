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
	"math"
	"time"
)

// Timestamp is a point in chain time, in whole seconds since the Unix epoch.
// Chain time only advances with head block timestamps.
type Timestamp int64

// MaxTimestamp stands for "never".
const MaxTimestamp Timestamp = math.MaxInt64

// TimestampFromTime truncates t to seconds.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

// Add returns ts advanced by secs, saturating at MaxTimestamp.
func (ts Timestamp) Add(secs int64) Timestamp {
	res, overflowed := OAddS(int64(ts), secs)
	if overflowed {
		return MaxTimestamp
	}
	return Timestamp(res)
}

// Sub returns the number of seconds from o to ts.
func (ts Timestamp) Sub(o Timestamp) int64 {
	return int64(ts) - int64(o)
}

// Time converts to a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

// String formats the timestamp as ISO 8601.
func (ts Timestamp) String() string {
	if ts == MaxTimestamp {
		return "never"
	}
	return ts.Time().Format("2006-01-02T15:04:05")
}

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

package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/test/partitiontest"
)

type helperStruct struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	A uint64            `codec:"a"`
	B string            `codec:"b"`
	C []byte            `codec:"c"`
	M map[string]uint32 `codec:"m"`
}

func TestEncodeOmitsEmpty(t *testing.T) {
	partitiontest.PartitionTest(t)

	var x helperStruct
	require.Len(t, Encode(&x), 1)
	require.Equal(t, 1, EncodedLen(&x))
}

func TestEncodeIsCanonical(t *testing.T) {
	partitiontest.PartitionTest(t)

	var a struct {
		X int    `codec:"x"`
		Y string `codec:"y"`
	}
	var b struct {
		Y string `codec:"y"`
		X int    `codec:"x"`
	}
	a.X, a.Y = 1, "foo"
	b.X, b.Y = 1, "foo"
	require.Equal(t, Encode(&a), Encode(&b))

	m1 := helperStruct{M: map[string]uint32{"z": 1, "a": 2, "m": 3}}
	m2 := helperStruct{M: map[string]uint32{"m": 3, "z": 1, "a": 2}}
	for i := 0; i < 10; i++ {
		require.Equal(t, Encode(&m1), Encode(&m2))
	}
}

func TestEncodeDoesNotAlias(t *testing.T) {
	partitiontest.PartitionTest(t)

	first := Encode(&helperStruct{A: 1, B: "first"})
	saved := append([]byte(nil), first...)
	Encode(&helperStruct{A: 2, B: "second, which is longer"})
	require.Equal(t, saved, first)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	partitiontest.PartitionTest(t)

	in := helperStruct{A: 7, B: "x", C: []byte{1, 2}}
	var out helperStruct
	require.NoError(t, Decode(Encode(&in), &out))
	require.Equal(t, in, out)

	var extra struct {
		A uint64 `codec:"a"`
		Z uint64 `codec:"z"`
	}
	extra.A, extra.Z = 1, 2
	require.Error(t, Decode(Encode(&extra), &out))

	require.Error(t, Decode([]byte{0xc1}, &out))
}

func TestJSONRoundTrip(t *testing.T) {
	partitiontest.PartitionTest(t)

	in := helperStruct{A: 3, B: "<b>", M: map[string]uint32{"k": 1}}
	enc := EncodeJSON(&in)
	require.Contains(t, string(enc), `"<b>"`)

	var out helperStruct
	require.NoError(t, DecodeJSON(enc, &out))
	require.Equal(t, in, out)
	require.Error(t, DecodeJSON([]byte(`{"a":1,"nope":2}`), &out))
}

func TestIsValidJSON(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.True(t, IsValidJSON(""))
	require.True(t, IsValidJSON(`{"genre":"jazz"}`))
	require.True(t, IsValidJSON(`[1,2]`))
	require.False(t, IsValidJSON(`{"genre":`))
	require.False(t, IsValidJSON(`{} {}`))
}

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
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/test/partitiontest"
)

func TestSubSaturate(t *testing.T) {
	partitiontest.PartitionTest(t)

	a := uint64(1)
	b := uint64(2)
	require.Equal(t, uint64(0), SubSaturate(a, b))
	require.Equal(t, uint64(1), SubSaturate(b, a))
	require.Equal(t, uint64(math.MaxUint64), AddSaturate(uint64(math.MaxUint64), a))
}

func TestSignedOverflow(t *testing.T) {
	partitiontest.PartitionTest(t)

	_, o := OAddS(int64(math.MaxInt64), int64(1))
	require.True(t, o)
	_, o = OSubS(int64(math.MinInt64), int64(1))
	require.True(t, o)
	r, o := OAddS(int64(-5), int64(3))
	require.False(t, o)
	require.Equal(t, int64(-2), r)

	var ot OverflowTracker
	ot.Add(math.MaxInt64, 1)
	require.True(t, ot.Overflowed)
}

func TestMuldivAmount(t *testing.T) {
	partitiontest.PartitionTest(t)

	r, o := MuldivAmount(math.MaxInt64, 2, 4)
	require.False(t, o)
	require.Equal(t, int64(math.MaxInt64/2), r)

	_, o = MuldivAmount(math.MaxInt64, 4, 2)
	require.True(t, o)
	_, o = MuldivAmount(-1, 1, 1)
	require.True(t, o)
	_, o = MuldivAmount(1, 1, 0)
	require.True(t, o)

	require.Equal(t, int64(333), MulPercent(1000, 3333))
}

func TestISqrt(t *testing.T) {
	partitiontest.PartitionTest(t)

	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Uint64().Draw(t, "x")
		r := ISqrt(x)
		require.LessOrEqual(t, r*r, x)
		if r < math.MaxUint32 {
			require.Greater(t, (r+1)*(r+1), x)
		}
	})
	require.Equal(t, uint64(math.MaxUint32), ISqrt(math.MaxUint64))
}

func TestUint128(t *testing.T) {
	partitiontest.PartitionTest(t)

	lap := U128(math.MaxUint64)
	one := U128(1)
	sum, o := lap.Add(one)
	require.False(t, o)
	require.Equal(t, Uint128{Hi: 1}, sum)

	_, o = MaxUint128.Add(one)
	require.True(t, o)

	diff, o := sum.Sub(one)
	require.False(t, o)
	require.Equal(t, lap, diff)
	_, o = U128(0).Sub(one)
	require.True(t, o)

	p, o := lap.MulUint64(math.MaxUint64)
	require.False(t, o)
	require.Equal(t, lap, p.DivUint64(math.MaxUint64))
	_, o = MaxUint128.MulUint64(2)
	require.True(t, o)

	require.True(t, lap.Less(sum))
	require.Equal(t, 0, sum.Cmp(Uint128{Hi: 1}))

	shifted, out := lap.ShiftIn(true)
	require.False(t, out)
	require.Equal(t, Uint128{Hi: 1, Lo: math.MaxUint64}, shifted)
	shifted, out = MaxUint128.ShiftIn(false)
	require.True(t, out)
	require.Equal(t, Uint128{Hi: math.MaxUint64, Lo: math.MaxUint64 - 1}, shifted)
}

func TestPriceMul(t *testing.T) {
	partitiontest.PartitionTest(t)

	p := MakePrice(Mbd(1000), Muse(3000))
	got, err := p.Mul(Mbd(10))
	require.NoError(t, err)
	require.Equal(t, Muse(30), got)

	got, err = p.Mul(Muse(10))
	require.NoError(t, err)
	require.Equal(t, Mbd(3), got)

	_, err = p.Mul(Vests(10))
	require.Error(t, err)

	_, err = MaxPrice(MUSE, MBD).Mul(Mbd(2))
	require.ErrorIs(t, err, ErrPriceOverflow)
}

func TestPriceOrdering(t *testing.T) {
	partitiontest.PartitionTest(t)

	cheap := MakePrice(Muse(1), Mbd(2))
	dear := MakePrice(Muse(2), Mbd(2))
	require.True(t, cheap.Less(dear))
	require.False(t, dear.Less(cheap))
	require.True(t, MakePrice(Muse(2), Mbd(4)).Equal(cheap))
	require.True(t, MinPrice(MUSE, MBD).Less(cheap))
	require.True(t, dear.Less(MaxPrice(MUSE, MBD)))
	require.Error(t, MakePrice(Muse(1), Muse(1)).Validate())
}

func TestAccountNames(t *testing.T) {
	partitiontest.PartitionTest(t)

	for _, good := range []string{"alice", "initminer", "a-b", "abc.def", "abc123", "x-y.a1c"} {
		require.NoError(t, AccountName(good).Validate(), good)
	}
	for _, bad := range []string{"", "ab", "Alice", "1abc", "abc-", "a--b", "abc.de", "thisnameiswaytoolong", "ab_c"} {
		require.Error(t, AccountName(bad).Validate(), bad)
	}
}

func TestParseAsset(t *testing.T) {
	partitiontest.PartitionTest(t)

	a, err := ParseAsset("1.5 MUSE")
	require.NoError(t, err)
	require.Equal(t, Muse(1500000), a)
	require.Equal(t, "1.500000 MUSE", a.String())

	a, err = ParseAsset("-0.000001 MBD")
	require.NoError(t, err)
	require.Equal(t, Mbd(-1), a)

	_, err = ParseAsset("1.0000001 MUSE")
	require.Error(t, err)
	_, err = ParseAsset("1 muse")
	require.Error(t, err)
}

func TestAuthorityOrdering(t *testing.T) {
	partitiontest.PartitionTest(t)

	var auth Authority
	auth.WeightThreshold = 2
	auth.AddAccount("carol", 1)
	auth.AddAccount("alice", 1)
	auth.AddAccount("carol", 3)
	require.Equal(t, []AccountWeight{{Name: "alice", Weight: 1}, {Name: "carol", Weight: 3}}, auth.AccountAuths)

	k1 := crypto.SecretsFromPassphrase("k1").SignatureVerifier
	k2 := crypto.SecretsFromPassphrase("k2").SignatureVerifier
	auth.AddKey(k1, 1)
	auth.AddKey(k2, 1)
	require.NoError(t, auth.Validate())
	require.False(t, auth.IsImpossible())

	auth.WeightThreshold = 100
	require.True(t, auth.IsImpossible())

	c := auth.Clone()
	c.KeyAuths[0].Weight = 9
	require.False(t, c.Equal(auth))
}

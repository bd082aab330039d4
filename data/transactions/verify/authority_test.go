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

package verify

import (
	"context"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/test/partitiontest"
)

type fakeLookup struct {
	accounts map[basics.AccountName]AccountAuthorities
	content  map[string][2]basics.Authority
}

func (f *fakeLookup) AccountAuthorities(name basics.AccountName) (AccountAuthorities, bool) {
	a, ok := f.accounts[name]
	return a, ok
}

func (f *fakeLookup) ContentManagement(url string) (basics.Authority, basics.Authority, bool) {
	c, ok := f.content[url]
	return c[0], c[1], ok
}

type keyring map[string]*crypto.SignatureSecrets

func (k keyring) pk(name string) crypto.PublicKey {
	if _, ok := k[name]; !ok {
		k[name] = crypto.SecretsFromPassphrase(name)
	}
	return k[name].SignatureVerifier
}

func (k keyring) set(names ...string) mapset.Set[crypto.PublicKey] {
	s := mapset.NewThreadUnsafeSet[crypto.PublicKey]()
	for _, n := range names {
		s.Add(k.pk(n))
	}
	return s
}

func newFixture() (*fakeLookup, keyring) {
	k := keyring{}
	l := &fakeLookup{accounts: map[basics.AccountName]AccountAuthorities{}, content: map[string][2]basics.Authority{}}
	for _, n := range []string{"alice", "bob", "carol"} {
		l.accounts[basics.AccountName(n)] = AccountAuthorities{
			Owner:  basics.KeyAuthority(k.pk(n + "-owner")),
			Active: basics.KeyAuthority(k.pk(n + "-active")),
			Basic:  basics.KeyAuthority(k.pk(n + "-basic")),
		}
	}
	return l, k
}

func opts() Options {
	return Options{MaxDepth: 2}
}

func activeReq(names ...basics.AccountName) *transactions.RequiredAuthorities {
	req := transactions.MakeRequiredAuthorities()
	req.Active.Append(names...)
	return req
}

func TestTierOrdering(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	require.NoError(t, VerifyAuthority(activeReq("alice"), k.set("alice-active"), l, opts()))
	require.NoError(t, VerifyAuthority(activeReq("alice"), k.set("alice-owner"), l, opts()))
	require.ErrorAs(t, VerifyAuthority(activeReq("alice"), k.set("alice-basic"), l, opts()), &MissingAuthorityError{})

	basic := transactions.MakeRequiredAuthorities()
	basic.Basic.Add("alice")
	for _, key := range []string{"alice-basic", "alice-active", "alice-owner"} {
		require.NoError(t, VerifyAuthority(basic, k.set(key), l, opts()), key)
	}

	owner := transactions.MakeRequiredAuthorities()
	owner.Owner.Add("alice")
	require.Error(t, VerifyAuthority(owner, k.set("alice-active"), l, opts()))
	require.NoError(t, VerifyAuthority(owner, k.set("alice-owner"), l, opts()))
}

func TestIrrelevantSignature(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	err := VerifyAuthority(activeReq("alice"), k.set("alice-active", "bob-active"), l, opts())
	var irr IrrelevantSignatureError
	require.ErrorAs(t, err, &irr)
	require.Equal(t, []crypto.PublicKey{k.pk("bob-active")}, irr.Keys)

	o := opts()
	o.AllowUnusedKeys = true
	require.NoError(t, VerifyAuthority(activeReq("alice"), k.set("alice-active", "bob-active"), l, o))
}

func TestMixedTiersRejected(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	req := activeReq("alice")
	req.Basic.Add("bob")
	require.ErrorIs(t, VerifyAuthority(req, k.set("alice-active", "bob-basic"), l, opts()), ErrMixedAuthorityTiers)
}

func TestAccountAuthorityDepth(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	// dave's active is delegated to erin, whose active is delegated to carol.
	l.accounts["dave"] = AccountAuthorities{Active: basics.AccountAuthority("erin"), Owner: basics.AccountAuthority("erin")}
	l.accounts["erin"] = AccountAuthorities{Active: basics.AccountAuthority("carol"), Owner: basics.KeyAuthority(k.pk("erin-owner"))}

	require.NoError(t, VerifyAuthority(activeReq("erin"), k.set("carol-active"), l, opts()))
	require.NoError(t, VerifyAuthority(activeReq("dave"), k.set("carol-active"), l, opts()))

	o := opts()
	o.MaxDepth = 1
	require.Error(t, VerifyAuthority(activeReq("dave"), k.set("carol-active"), l, o))
}

func TestCyclicAuthorityTerminates(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	l.accounts["xxx"] = AccountAuthorities{Active: basics.AccountAuthority("yyy"), Owner: basics.AccountAuthority("yyy")}
	l.accounts["yyy"] = AccountAuthorities{Active: basics.AccountAuthority("xxx"), Owner: basics.AccountAuthority("xxx")}
	o := opts()
	o.MaxDepth = 10
	require.Error(t, VerifyAuthority(activeReq("xxx"), k.set("alice-active"), l, o))
}

func TestWeightedThreshold(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	multi := basics.Authority{WeightThreshold: 2}
	multi.AddKey(k.pk("k1"), 1)
	multi.AddKey(k.pk("k2"), 1)
	multi.AddAccount("bob", 1)
	l.accounts["multi"] = AccountAuthorities{Owner: multi, Active: multi, Basic: multi}

	require.Error(t, VerifyAuthority(activeReq("multi"), k.set("k1"), l, opts()))
	require.NoError(t, VerifyAuthority(activeReq("multi"), k.set("k1", "k2"), l, opts()))
	require.NoError(t, VerifyAuthority(activeReq("multi"), k.set("k1", "bob-active"), l, opts()))
}

func TestApprovalsShortCircuit(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	o := opts()
	o.Approvals = &Approvals{Active: mapset.NewThreadUnsafeSet[basics.AccountName]("alice")}
	require.NoError(t, VerifyAuthority(activeReq("alice"), k.set(), l, o))

	owner := transactions.MakeRequiredAuthorities()
	owner.Owner.Add("alice")
	require.Error(t, VerifyAuthority(owner, k.set(), l, o))
}

func TestContentManagement(t *testing.T) {
	partitiontest.PartitionTest(t)

	l, k := newFixture()
	mgmt := basics.AccountAuthority("alice")
	mgmt.AddAccount("bob", 1)
	mgmt.WeightThreshold = 2
	l.content["ipfs://song"] = [2]basics.Authority{mgmt, basics.AccountAuthority("carol")}

	req := transactions.MakeRequiredAuthorities()
	req.MasterContent.Add("ipfs://song")
	require.Error(t, VerifyAuthority(req, k.set("alice-basic"), l, opts()))
	require.NoError(t, VerifyAuthority(req, k.set("alice-basic", "bob-owner"), l, opts()))

	req = transactions.MakeRequiredAuthorities()
	req.CompContent.Add("ipfs://song")
	require.NoError(t, VerifyAuthority(req, k.set("carol-active"), l, opts()))

	req = transactions.MakeRequiredAuthorities()
	req.CompContent.Add("ipfs://missing")
	require.Error(t, VerifyAuthority(req, k.set("carol-active"), l, opts()))
}

func TestCheckSignatures(t *testing.T) {
	partitiontest.PartitionTest(t)

	chainID := crypto.Hash([]byte("chain"))
	var txns []transactions.SignedTransaction
	for i := 0; i < 70; i++ {
		var stx transactions.SignedTransaction
		stx.Txn.Expiration = basics.Timestamp(i + 1)
		stx.Txn.Operations = []transactions.Operation{transactions.MakeOperation(&transactions.TransferOp{
			From: "alice", To: "bob", Amount: basics.Muse(int64(i + 1)),
		})}
		stx.Sign(chainID, crypto.SecretsFromPassphrase("alice"))
		txns = append(txns, stx)
	}
	require.NoError(t, CheckSignatures(context.Background(), txns, chainID))

	keys, err := CheckSignature(txns[0], chainID)
	require.NoError(t, err)
	require.Equal(t, 1, keys.Cardinality())

	require.Error(t, CheckSignatures(context.Background(), txns, crypto.Hash([]byte("other"))))

	txns[65].Signatures[0].Sig[3] ^= 0xff
	err = CheckSignatures(context.Background(), txns, chainID)
	var serr SignatureError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, 65, serr.Index)

	txns[65].Signatures = nil
	require.ErrorIs(t, CheckSignatures(context.Background(), txns, chainID), ErrNoSignatures)
}

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
	"errors"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
)

// AccountAuthorities are the three authority tiers of an account.
type AccountAuthorities struct {
	Owner  basics.Authority
	Active basics.Authority
	Basic  basics.Authority
}

// Lookup resolves the authorities an authority walk may visit.
type Lookup interface {
	AccountAuthorities(name basics.AccountName) (AccountAuthorities, bool)
	// ContentManagement returns the master and composition management
	// authorities of a content.
	ContentManagement(url string) (master, comp basics.Authority, ok bool)
}

// Approvals are accounts that already approved, by tier. Proposals verify
// their operations against the approvals they collected.
type Approvals struct {
	Owner  mapset.Set[basics.AccountName]
	Active mapset.Set[basics.AccountName]
	Basic  mapset.Set[basics.AccountName]
}

// Options tunes VerifyAuthority.
type Options struct {
	MaxDepth int
	// Approvals may be nil.
	Approvals *Approvals
	// AllowUnusedKeys accepts keys that did not contribute to any authority.
	AllowUnusedKeys bool
}

// ErrMixedAuthorityTiers is returned when basic-only operations are mixed
// with operations that need active or owner authority.
var ErrMixedAuthorityTiers = errors.New("basic authority operations cannot be combined with active or owner authority operations")

// MissingAuthorityError names an authority that the signatures do not satisfy.
type MissingAuthorityError struct {
	Tier    string
	Account basics.AccountName
	URL     string
}

func (err MissingAuthorityError) Error() string {
	switch {
	case err.URL != "":
		return fmt.Sprintf("missing %s management authority of content %s", err.Tier, err.URL)
	case err.Account != "":
		return fmt.Sprintf("missing %s authority of %s", err.Tier, err.Account)
	default:
		return fmt.Sprintf("missing %s authority", err.Tier)
	}
}

// IrrelevantSignatureError lists keys that signed but were not needed.
type IrrelevantSignatureError struct {
	Keys []crypto.PublicKey
}

func (err IrrelevantSignatureError) Error() string {
	return fmt.Sprintf("%d irrelevant signature(s) included", len(err.Keys))
}

// resolver lists the authorities, in order of preference, through which a
// referenced account may satisfy an account authority entry.
type resolver func(name basics.AccountName) []basics.Authority

// signState tracks which keys were provided and used, and which accounts
// are known to have approved.
type signState struct {
	provided mapset.Set[crypto.PublicKey]
	used     mapset.Set[crypto.PublicKey]
	approved mapset.Set[basics.AccountName]
	maxDepth int
}

func makeSignState(keys mapset.Set[crypto.PublicKey], maxDepth int) *signState {
	return &signState{
		provided: keys,
		used:     mapset.NewThreadUnsafeSet[crypto.PublicKey](),
		approved: mapset.NewThreadUnsafeSet[basics.AccountName](),
		maxDepth: maxDepth,
	}
}

// fork shares the provided and used keys but not the approved accounts, so
// approvals found through a different resolver do not leak back.
func (s *signState) fork() *signState {
	return &signState{
		provided: s.provided,
		used:     s.used,
		approved: mapset.NewThreadUnsafeSet[basics.AccountName](),
		maxDepth: s.maxDepth,
	}
}

func (s *signState) keyWeight(a basics.Authority) uint64 {
	var total uint64
	for _, kw := range a.KeyAuths {
		if s.provided.Contains(kw.Key) {
			s.used.Add(kw.Key)
			total += uint64(kw.Weight)
		}
	}
	return total
}

// frame is one authority under evaluation: either the root authority or
// the resolved authorities of an account entry.
type frame struct {
	name     basics.AccountName
	alts     []basics.Authority
	alt      int
	depth    int
	total    uint64
	next     int
	awaiting bool
}

func (s *signState) initFrame(f *frame) {
	f.total = s.keyWeight(f.alts[f.alt])
	f.next = 0
	f.awaiting = false
}

// check evaluates auth without recursion. Account entries are resolved
// through resolve up to maxDepth levels; an account already on the walk is
// skipped, so cyclic authorities terminate.
func (s *signState) check(auth basics.Authority, resolve resolver) bool {
	stack := []*frame{{alts: []basics.Authority{auth}}}
	s.initFrame(stack[0])
	onPath := mapset.NewThreadUnsafeSet[basics.AccountName]()
	var result bool

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		cur := f.alts[f.alt]

		if f.awaiting {
			if result {
				child := cur.AccountAuths[f.next]
				s.approved.Add(child.Name)
				f.total += uint64(child.Weight)
			}
			f.awaiting = false
			f.next++
		}

		done := f.total >= uint64(cur.WeightThreshold)
		if !done && f.next < len(cur.AccountAuths) {
			aw := cur.AccountAuths[f.next]
			if s.approved.Contains(aw.Name) {
				f.total += uint64(aw.Weight)
				f.next++
				continue
			}
			if f.depth >= s.maxDepth || onPath.Contains(aw.Name) {
				f.next++
				continue
			}
			alts := resolve(aw.Name)
			if len(alts) == 0 {
				f.next++
				continue
			}
			f.awaiting = true
			child := &frame{name: aw.Name, alts: alts, depth: f.depth + 1}
			s.initFrame(child)
			onPath.Add(aw.Name)
			stack = append(stack, child)
			continue
		}

		if !done && f.alt+1 < len(f.alts) {
			f.alt++
			s.initFrame(f)
			continue
		}

		result = done
		stack = stack[:len(stack)-1]
		if f.name != "" {
			onPath.Remove(f.name)
		}
	}
	return result
}

func (s *signState) unused() []crypto.PublicKey {
	keys := s.provided.Difference(s.used).ToSlice()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// VerifyAuthority checks that keys satisfy every requirement in req, using
// the lowest sufficient tier: an owner signature satisfies an active
// requirement and both satisfy a basic one.
func VerifyAuthority(req *transactions.RequiredAuthorities, keys mapset.Set[crypto.PublicKey], lookup Lookup, opts Options) error {
	approvals := opts.Approvals
	if approvals == nil {
		approvals = &Approvals{}
	}
	approvedBy := func(set mapset.Set[basics.AccountName], name basics.AccountName) bool {
		return set != nil && set.Contains(name)
	}

	if req.Basic.Cardinality() > 0 && (req.Active.Cardinality() > 0 || req.Owner.Cardinality() > 0 || len(req.Other) > 0) {
		return ErrMixedAuthorityTiers
	}

	s := makeSignState(keys, opts.MaxDepth)
	if approvals.Active != nil {
		s.approved.Append(approvals.Active.ToSlice()...)
	}

	auths := func(name basics.AccountName) (AccountAuthorities, bool) {
		return lookup.AccountAuthorities(name)
	}
	activeOf := func(name basics.AccountName) []basics.Authority {
		a, ok := auths(name)
		if !ok {
			return nil
		}
		return []basics.Authority{a.Active}
	}
	anyTier := func(name basics.AccountName) []basics.Authority {
		a, ok := auths(name)
		if !ok {
			return nil
		}
		return []basics.Authority{a.Basic, a.Active, a.Owner}
	}

	for _, name := range sortedNames(req.Basic) {
		if approvedBy(approvals.Basic, name) || approvedBy(approvals.Active, name) || approvedBy(approvals.Owner, name) {
			continue
		}
		a, ok := auths(name)
		if !ok || !(s.check(a.Basic, activeOf) || s.check(a.Active, activeOf) || s.check(a.Owner, activeOf)) {
			return MissingAuthorityError{Tier: "basic", Account: name}
		}
	}

	for _, url := range sortedStrings(req.MasterContent) {
		master, _, ok := lookup.ContentManagement(url)
		if !ok || !s.fork().check(master, anyTier) {
			return MissingAuthorityError{Tier: "master", URL: url}
		}
	}
	for _, url := range sortedStrings(req.CompContent) {
		_, comp, ok := lookup.ContentManagement(url)
		if !ok || !s.fork().check(comp, anyTier) {
			return MissingAuthorityError{Tier: "composition", URL: url}
		}
	}

	for _, auth := range req.Other {
		if !s.check(auth, activeOf) {
			return MissingAuthorityError{Tier: "other"}
		}
	}

	for _, name := range sortedNames(req.Active) {
		if s.approved.Contains(name) || approvedBy(approvals.Owner, name) {
			continue
		}
		a, ok := auths(name)
		if !ok || !(s.check(a.Active, activeOf) || s.check(a.Owner, activeOf)) {
			return MissingAuthorityError{Tier: "active", Account: name}
		}
	}

	for _, name := range sortedNames(req.Owner) {
		if approvedBy(approvals.Owner, name) {
			continue
		}
		a, ok := auths(name)
		if !ok || !s.check(a.Owner, activeOf) {
			return MissingAuthorityError{Tier: "owner", Account: name}
		}
	}

	if !opts.AllowUnusedKeys {
		if unused := s.unused(); len(unused) > 0 {
			return IrrelevantSignatureError{Keys: unused}
		}
	}
	return nil
}

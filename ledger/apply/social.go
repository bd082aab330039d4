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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// Friendship files a friend request from Who to Whom, or accepts the
// request Whom already filed.
func Friendship(st *chainstate.State, op *transactions.FriendshipOp) error {
	t := protocol.FriendshipOp
	who, err := st.Account(t, op.Who)
	if err != nil {
		return err
	}
	whom, err := st.Account(t, op.Whom)
	if err != nil {
		return err
	}
	if who.Friends.Has(op.Whom) {
		return ledgercore.Assertf(t, "%s and %s are already friends", op.Who, op.Whom)
	}
	if !who.WaitingFriends.Has(op.Whom) {
		if whom.WaitingFriends.Has(op.Who) {
			return ledgercore.Assertf(t, "friend request from %s to %s is already pending", op.Who, op.Whom)
		}
		return st.ModifyAccount(op.Whom, func(a *ledgercore.Account) error {
			a.WaitingFriends.Add(op.Who)
			return nil
		})
	}

	limit := st.Params.MaxSocialFriends
	if len(who.Friends) >= limit || len(whom.Friends) >= limit {
		return ledgercore.Assertf(t, "an account may have at most %d friends", limit)
	}
	st.ModifyAccount(op.Who, func(a *ledgercore.Account) error {
		a.WaitingFriends.Remove(op.Whom)
		a.Friends.Add(op.Whom)
		return nil
	})
	st.ModifyAccount(op.Whom, func(a *ledgercore.Account) error {
		a.Friends.Add(op.Who)
		return nil
	})
	updateSocialCircle(st, op.Who, op.Whom)
	return nil
}

// Unfriend ends a friendship, or withdraws a pending request.
func Unfriend(st *chainstate.State, op *transactions.UnfriendOp) error {
	t := protocol.UnfriendOp
	who, err := st.Account(t, op.Who)
	if err != nil {
		return err
	}
	whom, err := st.Account(t, op.Whom)
	if err != nil {
		return err
	}
	if whom.WaitingFriends.Has(op.Who) {
		return st.ModifyAccount(op.Whom, func(a *ledgercore.Account) error {
			a.WaitingFriends.Remove(op.Who)
			return nil
		})
	}
	if !who.Friends.Has(op.Whom) {
		return ledgercore.Assertf(t, "%s and %s are not friends", op.Who, op.Whom)
	}
	st.ModifyAccount(op.Who, func(a *ledgercore.Account) error {
		a.Friends.Remove(op.Whom)
		return nil
	})
	st.ModifyAccount(op.Whom, func(a *ledgercore.Account) error {
		a.Friends.Remove(op.Who)
		return nil
	})
	updateSocialCircle(st, op.Who, op.Whom, append(who.Friends, whom.Friends...)...)
	return nil
}

// updateSocialCircle recomputes the second degree and score of a and b,
// their current friends, and any extra accounts that were their friends
// before the change.
func updateSocialCircle(st *chainstate.State, a, b basics.AccountName, extra ...basics.AccountName) {
	affected := mapset.NewThreadUnsafeSet(a, b)
	affected.Append(extra...)
	for _, n := range []basics.AccountName{a, b} {
		acct, _ := st.Accounts.Get(n)
		affected.Append(acct.Friends...)
	}
	for _, n := range sortedNames(affected) {
		if st.Accounts.Has(n) {
			recomputeScore(st, n)
		}
	}
}

// recomputeScore sets the second degree and the score of name:
// isqrt(sum of friends' stake) + isqrt(sum of second-degree stake)/2.
func recomputeScore(st *chainstate.State, name basics.AccountName) {
	acct, _ := st.Accounts.Get(name)
	second := mapset.NewThreadUnsafeSet[basics.AccountName]()
	var friendsStake uint64
	for _, f := range acct.Friends {
		fa, ok := st.Accounts.Get(f)
		if !ok {
			continue
		}
		friendsStake += stakeOf(fa)
		second.Append(fa.Friends...)
	}
	second.Remove(name)
	second.RemoveAll(acct.Friends...)

	var secondStake uint64
	names := sortedNames(second)
	for _, s := range names {
		if sa, ok := st.Accounts.Get(s); ok {
			secondStake += stakeOf(sa)
		}
	}
	score := basics.ISqrt(friendsStake) + basics.ISqrt(secondStake)/2
	st.ModifyAccount(name, func(a *ledgercore.Account) error {
		a.SecondDegree = ledgercore.NameList(names)
		a.Score = int64(score)
		return nil
	})
}

func stakeOf(a ledgercore.Account) uint64 {
	if v := a.EffectiveVestingShares(); v > 0 {
		return uint64(v)
	}
	return 0
}

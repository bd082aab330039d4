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
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

var errProxyCycle = errors.New("proxy would create a cycle")
var errProxyTooDeep = errors.New("proxy chain is too long")

// WitnessUpdate registers a witness or changes its url, signing key and
// proposed chain properties. A fee, when given, is burned.
func WitnessUpdate(st *chainstate.State, op *transactions.WitnessUpdateOp) error {
	t := protocol.WitnessUpdateOp
	if err := st.RequireAccount(t, op.Owner); err != nil {
		return err
	}
	if op.Props.MaximumBlockSize < st.Params.MinBlockSizeLimit {
		return ledgercore.Assertf(t, "maximum block size %d is below the minimum of %d", op.Props.MaximumBlockSize, st.Params.MinBlockSizeLimit)
	}
	if op.Fee.Amount > 0 {
		if err := st.AdjustBalance(op.Owner, op.Fee.Neg()); err != nil {
			return err
		}
		st.AdjustSupply(op.Fee.Neg())
	}

	if st.Witnesses.Has(op.Owner) {
		return st.Witnesses.Modify(op.Owner, func(w *ledgercore.Witness) error {
			w.URL = op.URL
			w.SigningKey = op.BlockSigningKey
			w.Props = op.Props
			return nil
		})
	}
	return st.Witnesses.Create(op.Owner, ledgercore.Witness{
		Owner:                op.Owner,
		Created:              st.HeadBlockTime(),
		URL:                  op.URL,
		SigningKey:           op.BlockSigningKey,
		Props:                op.Props,
		VirtualLastUpdate:    st.WitnessSchedule().CurrentVirtualTime,
		VirtualScheduledTime: basics.MaxUint128,
		HardforkTimeVote:     st.DGP().GenesisTime,
	})
}

// AccountWitnessVote approves or withdraws approval of a witness with the
// voter's full weight, including what is proxied to it.
func AccountWitnessVote(st *chainstate.State, op *transactions.AccountWitnessVoteOp) error {
	t := protocol.AccountWitnessVoteOp
	voter, err := st.Account(t, op.Account)
	if err != nil {
		return err
	}
	if voter.Proxy != "" {
		return ledgercore.Assertf(t, "a proxy is currently set, clear the proxy before voting for a witness")
	}
	if !st.Witnesses.Has(op.Witness) {
		return ledgercore.Assertf(t, "witness %s does not exist", op.Witness)
	}
	key := ledgercore.PairKey{First: op.Account, Second: op.Witness}
	weight := voter.WitnessVoteWeight()

	if !st.WitnessVotes.Has(key) {
		if !op.Approve {
			return ledgercore.Assertf(t, "vote does not exist, user must indicate a desire to approve the witness")
		}
		if int(voter.WitnessesVotedFor) >= st.Params.MaxAccountWitnessVotes {
			return ledgercore.Assertf(t, "account %s has voted for too many witnesses", op.Account)
		}
		if err := st.WitnessVotes.Create(key, ledgercore.WitnessVote{Account: op.Account, Witness: op.Witness}); err != nil {
			return err
		}
		if err := st.AdjustWitnessVote(op.Witness, weight); err != nil {
			return err
		}
		return st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
			a.WitnessesVotedFor++
			return nil
		})
	}

	if op.Approve {
		return ledgercore.Assertf(t, "vote currently exists, user must indicate a desire to reject the witness")
	}
	if err := st.AdjustWitnessVote(op.Witness, -weight); err != nil {
		return err
	}
	st.WitnessVotes.Remove(key)
	return st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
		a.WitnessesVotedFor--
		return nil
	})
}

// AccountWitnessProxy sets or clears the account's witness voting proxy.
// The account's weight and everything proxied to it leaves its old chain
// and joins the new one; its direct witness votes are dropped.
func AccountWitnessProxy(st *chainstate.State, op *transactions.AccountWitnessProxyOp) error {
	t := protocol.AccountWitnessProxyOp
	acct, err := st.Account(t, op.Account)
	if err != nil {
		return err
	}
	if acct.Proxy == op.Proxy {
		return ledgercore.Assertf(t, "proxy must change")
	}
	maxDepth := st.Params.MaxProxyRecursionDepth

	if op.Proxy != "" {
		if err := st.RequireAccount(t, op.Proxy); err != nil {
			return err
		}
		if err := checkProxyChain(st, op.Account, op.Proxy, maxDepth); err != nil {
			return ledgercore.Assertf(t, "%v", err)
		}
	}

	weights := chainstate.VoteWeights(acct, maxDepth)
	if err := st.AdjustProxiedWitnessVotes(op.Account, negate(weights)); err != nil {
		return err
	}
	if op.Proxy != "" {
		st.ClearWitnessVotes(op.Account)
	}
	err = st.ModifyAccount(op.Account, func(a *ledgercore.Account) error {
		a.Proxy = op.Proxy
		return nil
	})
	if err != nil {
		return err
	}
	return st.AdjustProxiedWitnessVotes(op.Account, weights)
}

// checkProxyChain walks the chain starting at proxy and fails if it leads
// back to account or is longer than maxDepth.
func checkProxyChain(st *chainstate.State, account, proxy basics.AccountName, maxDepth int) error {
	visited := mapset.NewThreadUnsafeSet(account)
	for cur := proxy; cur != ""; {
		if !visited.Add(cur) {
			return fmt.Errorf("%w: %s", errProxyCycle, cur)
		}
		if visited.Cardinality() > maxDepth {
			return errProxyTooDeep
		}
		next, ok := st.Accounts.Get(cur)
		if !ok {
			break
		}
		cur = next.Proxy
	}
	return nil
}

func negate(v []int64) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

// FeedPublish records a witness's MBD/MUSE quote. Quotes are stored with
// MBD as the base.
func FeedPublish(st *chainstate.State, op *transactions.FeedPublishOp) error {
	t := protocol.FeedPublishOp
	if !st.Witnesses.Has(op.Publisher) {
		return ledgercore.Assertf(t, "%s is not a witness", op.Publisher)
	}
	rate := op.ExchangeRate
	if rate.Base.Symbol == basics.MUSE {
		rate = rate.Invert()
	}
	if rate.Base.Symbol != basics.MBD || rate.Quote.Symbol != basics.MUSE {
		return ledgercore.Assertf(t, "feed must be an MBD/MUSE price, got %v", op.ExchangeRate)
	}
	now := st.HeadBlockTime()
	return st.Witnesses.Modify(op.Publisher, func(w *ledgercore.Witness) error {
		w.MbdExchangeRate = rate
		w.LastMbdExchangeUpdate = now
		return nil
	})
}

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

package chainstate

import (
	"math"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// AdjustBalance adds delta to the liquid balance of an account. MBD
// balances accrue interest first. A balance never goes negative.
func (s *State) AdjustBalance(name basics.AccountName, delta basics.Asset) error {
	if delta.Symbol == basics.VESTS {
		return ledgercore.Assertf(protocol.UnknownOp, "vesting shares are not a liquid balance")
	}
	var interest int64
	err := s.Accounts.Modify(name, func(a *ledgercore.Account) error {
		if delta.Symbol == basics.MBD {
			interest = s.accrueMbdInterest(a)
		}
		bal, overflowed := basics.OAddS(a.AssetBalance(delta.Symbol), delta.Amount)
		if overflowed {
			return ledgercore.Assertf(protocol.UnknownOp, "balance of %s overflows", name)
		}
		if bal < 0 {
			return ledgercore.Assertf(protocol.UnknownOp, "insufficient %s balance of %s: %d, need %d",
				delta.Symbol, name, a.AssetBalance(delta.Symbol), -delta.Amount)
		}
		switch delta.Symbol {
		case basics.MUSE:
			a.Balance = bal
		case basics.MBD:
			a.MbdBalance = bal
		default:
			a.SetAssetBalance(delta.Symbol, bal)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if interest > 0 {
		s.AdjustSupply(basics.Mbd(interest))
	}
	return nil
}

// accrueMbdInterest advances the account's MBD-seconds to now and, once a
// compound interval has passed, pays the interest into the balance. It
// returns the interest paid.
func (s *State) accrueMbdInterest(a *ledgercore.Account) int64 {
	now := s.HeadBlockTime()
	if a.MbdSecondsLastUpdate == now {
		return 0
	}
	if elapsed := now.Sub(a.MbdSecondsLastUpdate); elapsed > 0 && a.MbdBalance > 0 {
		add, _ := basics.U128(uint64(a.MbdBalance)).MulUint64(uint64(elapsed))
		a.MbdSeconds, _ = a.MbdSeconds.Add(add)
	}
	a.MbdSecondsLastUpdate = now
	if a.MbdSeconds.IsZero() || now.Sub(a.MbdLastInterestPayment) <= s.Params.MbdInterestCompoundInterval {
		return 0
	}
	secondsPerYear := uint64(s.Params.BlocksPerYear * s.Params.BlockInterval)
	interest := a.MbdSeconds.DivUint64(secondsPerYear)
	interest, overflowed := interest.MulUint64(uint64(s.DGP().MbdInterestRate))
	a.MbdSeconds = basics.Uint128{}
	a.MbdLastInterestPayment = now
	if overflowed {
		return 0
	}
	paid := interest.DivUint64(basics.Percent100)
	if paid.Hi != 0 || paid.Lo > math.MaxInt64 {
		return 0
	}
	a.MbdBalance += int64(paid.Lo)
	return int64(paid.Lo)
}

// AdjustSupply changes the recorded supply of an asset. MBD also moves the
// virtual supply at the current median price.
func (s *State) AdjustSupply(delta basics.Asset) {
	switch delta.Symbol {
	case basics.MUSE:
		s.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
			d.CurrentSupply += delta.Amount
			d.VirtualSupply += delta.Amount
		})
	case basics.MBD:
		median := s.FeedHistory().CurrentMedianHistory
		s.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
			d.CurrentMbdSupply += delta.Amount
			if !median.IsNull() {
				d.VirtualSupply += mbdToMuse(median, delta.Amount)
			}
		})
	default:
		if s.Assets.Has(delta.Symbol) {
			s.Assets.Modify(delta.Symbol, func(o *ledgercore.AssetObject) error {
				o.CurrentSupply += delta.Amount
				return nil
			})
		}
	}
}

// mbdToMuse converts a signed MBD amount at price.
func mbdToMuse(price basics.Price, amount int64) int64 {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	m, err := price.Mul(basics.Mbd(amount))
	if err != nil {
		return 0
	}
	if neg {
		return -m.Amount
	}
	return m.Amount
}

// ModifyStake changes an account and propagates the resulting change of
// its effective vesting to the witnesses it votes for, directly or through
// proxies, and to the streaming platforms it approves.
func (s *State) ModifyStake(name basics.AccountName, fn func(a *ledgercore.Account) error) error {
	var delta int64
	err := s.Accounts.Modify(name, func(a *ledgercore.Account) error {
		before := a.EffectiveVestingShares()
		if err := fn(a); err != nil {
			return err
		}
		if a.VestingShares < 0 || a.DelegatedVestingShares < 0 || a.ReceivedVestingShares < 0 ||
			a.RedelegatedVestingShares < 0 || a.RereceivedVestingShares < 0 {
			return ledgercore.Assertf(protocol.UnknownOp, "vesting shares of %s would become negative", name)
		}
		after := a.EffectiveVestingShares()
		if after < 0 {
			return ledgercore.Assertf(protocol.UnknownOp, "effective vesting shares of %s would become negative", name)
		}
		delta = after - before
		return nil
	})
	if err != nil || delta == 0 {
		return err
	}
	if err := s.AdjustProxiedWitnessVotes(name, []int64{delta}); err != nil {
		return err
	}
	s.AdjustPlatformVotes(name, delta)
	return nil
}

// CreateVesting converts amount MUSE into vesting shares for name at the
// current share price and returns the shares created.
func (s *State) CreateVesting(name basics.AccountName, amount int64) (int64, error) {
	shares, err := s.VestingSharePrice().Mul(basics.Muse(amount))
	if err != nil {
		return 0, ledgercore.Assertf(protocol.UnknownOp, "vesting %d MUSE: %v", amount, err)
	}
	err = s.ModifyStake(name, func(a *ledgercore.Account) error {
		a.VestingShares += shares.Amount
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.ModifyDGP(func(d *ledgercore.DynamicGlobalProperties) {
		d.TotalVestingFund += amount
		d.TotalVestingShares += shares.Amount
	})
	return shares.Amount, nil
}

// AdjustReceivedVesting changes the vesting an account receives through
// delegations. Once reporting delegation is active, the account's
// redelegations to reporters follow.
func (s *State) AdjustReceivedVesting(name basics.AccountName, delta int64) error {
	err := s.ModifyStake(name, func(a *ledgercore.Account) error {
		a.ReceivedVestingShares += delta
		return nil
	})
	if err != nil {
		return err
	}
	return s.ResplitRedelegations(name)
}

// ResplitRedelegations recomputes every redelegation of platform from its
// received vesting and moves the differences between the platform and its
// reporters.
func (s *State) ResplitRedelegations(platform basics.AccountName) error {
	if !s.HasHardfork(config.HardforkSpinning) {
		return nil
	}
	acct, ok := s.Accounts.Get(platform)
	if !ok {
		return nil
	}
	var deltas []ledgercore.ReportingDelegation
	s.ReportingDelegations.ScanFrom(ledgercore.PairKey{First: platform}, func(k ledgercore.PairKey, d ledgercore.ReportingDelegation) bool {
		if k.First != platform {
			return false
		}
		target := basics.MulPercent(acct.ReceivedVestingShares, uint32(d.RedelegatePct))
		if target != d.Redelegated {
			d.Redelegated = target - d.Redelegated
			deltas = append(deltas, d)
		}
		return true
	})
	for _, d := range deltas {
		delta := d.Redelegated
		s.ReportingDelegations.Modify(ledgercore.PairKey{First: platform, Second: d.Reporter}, func(r *ledgercore.ReportingDelegation) error {
			r.Redelegated += delta
			return nil
		})
		if err := s.ModifyStake(platform, func(a *ledgercore.Account) error {
			a.RedelegatedVestingShares += delta
			return nil
		}); err != nil {
			return err
		}
		if err := s.ModifyStake(d.Reporter, func(a *ledgercore.Account) error {
			a.RereceivedVestingShares += delta
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

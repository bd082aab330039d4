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

// Package chainstate bundles the tables of the chain state and the
// mutations shared between operation evaluators and per-block
// maintenance.
package chainstate

import (
	"cmp"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/data/transactions/verify"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/ledger/store"
	"github.com/algorand/go-muse/logging"
	"github.com/algorand/go-muse/protocol"
)

// State is the chain state: one store.Database and the typed tables in it.
type State struct {
	DB     *store.Database
	Params config.ConsensusParams
	Log    logging.Logger

	Accounts                 *store.Table[basics.AccountName, ledgercore.Account]
	AccountsByNextWithdrawal *store.Index[basics.AccountName, ledgercore.Account]
	Witnesses                *store.Table[basics.AccountName, ledgercore.Witness]
	WitnessesByVotes         *store.Index[basics.AccountName, ledgercore.Witness]
	WitnessesByTime          *store.Index[basics.AccountName, ledgercore.Witness]
	WitnessVotes             *store.Table[ledgercore.PairKey, ledgercore.WitnessVote]

	Globals   *store.Table[uint8, ledgercore.DynamicGlobalProperties]
	Schedule  *store.Table[uint8, ledgercore.WitnessSchedule]
	Hardforks *store.Table[uint8, ledgercore.HardforkProperties]
	Feed      *store.Table[uint8, ledgercore.FeedHistory]

	Delegations           *store.Table[ledgercore.PairKey, ledgercore.VestingDelegation]
	DelegationExpirations *store.Table[uint64, ledgercore.VestingDelegationExpiration]
	ExpirationsByTime     *store.Index[uint64, ledgercore.VestingDelegationExpiration]
	WithdrawRoutes        *store.Table[ledgercore.PairKey, ledgercore.WithdrawVestingRoute]

	Orders             *store.Table[ledgercore.OwnedKey, ledgercore.LimitOrder]
	OrdersByPrice      *store.Index[ledgercore.OwnedKey, ledgercore.LimitOrder]
	OrdersByExpiration *store.Index[ledgercore.OwnedKey, ledgercore.LimitOrder]
	Conversions        *store.Table[ledgercore.OwnedKey, ledgercore.ConvertRequest]
	ConversionsByDate  *store.Index[ledgercore.OwnedKey, ledgercore.ConvertRequest]
	Assets             *store.Table[basics.Symbol, ledgercore.AssetObject]

	Proposals             *store.Table[uint64, ledgercore.Proposal]
	ProposalsByExpiration *store.Index[uint64, ledgercore.Proposal]

	Contents             *store.Table[string, ledgercore.Content]
	Platforms            *store.Table[basics.AccountName, ledgercore.StreamingPlatform]
	PlatformVotes        *store.Table[ledgercore.PairKey, ledgercore.StreamingPlatformVote]
	Reports              *store.Table[uint64, ledgercore.Report]
	ReportingDelegations *store.Table[ledgercore.PairKey, ledgercore.ReportingDelegation]

	RecoveryRequests       *store.Table[basics.AccountName, ledgercore.AccountRecoveryRequest]
	OwnerHistory           *store.Table[uint64, ledgercore.OwnerAuthorityHistory]
	RecoveryAccountChanges *store.Table[basics.AccountName, ledgercore.ChangeRecoveryAccountRequest]

	Transactions             *store.Table[transactions.Txid, ledgercore.TransactionObject]
	TransactionsByExpiration *store.Index[transactions.Txid, ledgercore.TransactionObject]
	BlockSummaries           *store.Table[uint16, ledgercore.BlockSummary]
}

// New creates an empty state with every table registered.
func New(params config.ConsensusParams, log logging.Logger) *State {
	db := store.NewDatabase()
	s := &State{DB: db, Params: params, Log: log}

	s.Accounts = store.NewTable[basics.AccountName, ledgercore.Account](db, "account", cmp.Compare[basics.AccountName])
	s.AccountsByNextWithdrawal = store.NewIndex(s.Accounts, "by_next_vesting_withdrawal", ledgercore.CompareNextWithdrawal)
	s.Witnesses = store.NewTable[basics.AccountName, ledgercore.Witness](db, "witness", cmp.Compare[basics.AccountName])
	s.WitnessesByVotes = store.NewIndex(s.Witnesses, "by_vote", ledgercore.CompareWitnessVotes)
	s.WitnessesByTime = store.NewIndex(s.Witnesses, "by_schedule_time", ledgercore.CompareWitnessScheduleTime)
	s.WitnessVotes = store.NewTable[ledgercore.PairKey, ledgercore.WitnessVote](db, "witness_vote", ledgercore.ComparePairKey)

	s.Globals = store.NewTable[uint8, ledgercore.DynamicGlobalProperties](db, "dynamic_global_properties", cmp.Compare[uint8])
	s.Schedule = store.NewTable[uint8, ledgercore.WitnessSchedule](db, "witness_schedule", cmp.Compare[uint8])
	s.Hardforks = store.NewTable[uint8, ledgercore.HardforkProperties](db, "hardfork_property", cmp.Compare[uint8])
	s.Feed = store.NewTable[uint8, ledgercore.FeedHistory](db, "feed_history", cmp.Compare[uint8])

	s.Delegations = store.NewTable[ledgercore.PairKey, ledgercore.VestingDelegation](db, "vesting_delegation", ledgercore.ComparePairKey)
	s.DelegationExpirations = store.NewTable[uint64, ledgercore.VestingDelegationExpiration](db, "vesting_delegation_expiration", cmp.Compare[uint64])
	s.ExpirationsByTime = store.NewIndex(s.DelegationExpirations, "by_expiration", ledgercore.CompareDelegationExpiration)
	s.WithdrawRoutes = store.NewTable[ledgercore.PairKey, ledgercore.WithdrawVestingRoute](db, "withdraw_vesting_route", ledgercore.ComparePairKey)

	s.Orders = store.NewTable[ledgercore.OwnedKey, ledgercore.LimitOrder](db, "limit_order", ledgercore.CompareOwnedKey)
	s.OrdersByPrice = store.NewIndex(s.Orders, "by_price", ledgercore.CompareOrderPrice)
	s.OrdersByExpiration = store.NewIndex(s.Orders, "by_expiration", ledgercore.CompareOrderExpiration)
	s.Conversions = store.NewTable[ledgercore.OwnedKey, ledgercore.ConvertRequest](db, "convert_request", ledgercore.CompareOwnedKey)
	s.ConversionsByDate = store.NewIndex(s.Conversions, "by_conversion_date", ledgercore.CompareConversionDate)
	s.Assets = store.NewTable[basics.Symbol, ledgercore.AssetObject](db, "asset", cmp.Compare[basics.Symbol])

	s.Proposals = store.NewTable[uint64, ledgercore.Proposal](db, "proposal", cmp.Compare[uint64])
	s.ProposalsByExpiration = store.NewIndex(s.Proposals, "by_expiration", ledgercore.CompareProposalExpiration)

	s.Contents = store.NewTable[string, ledgercore.Content](db, "content", cmp.Compare[string])
	s.Platforms = store.NewTable[basics.AccountName, ledgercore.StreamingPlatform](db, "streaming_platform", cmp.Compare[basics.AccountName])
	s.PlatformVotes = store.NewTable[ledgercore.PairKey, ledgercore.StreamingPlatformVote](db, "streaming_platform_vote", ledgercore.ComparePairKey)
	s.Reports = store.NewTable[uint64, ledgercore.Report](db, "report", cmp.Compare[uint64])
	s.ReportingDelegations = store.NewTable[ledgercore.PairKey, ledgercore.ReportingDelegation](db, "reporting_delegation", ledgercore.ComparePairKey)

	s.RecoveryRequests = store.NewTable[basics.AccountName, ledgercore.AccountRecoveryRequest](db, "account_recovery_request", cmp.Compare[basics.AccountName])
	s.OwnerHistory = store.NewTable[uint64, ledgercore.OwnerAuthorityHistory](db, "owner_authority_history", cmp.Compare[uint64])
	s.RecoveryAccountChanges = store.NewTable[basics.AccountName, ledgercore.ChangeRecoveryAccountRequest](db, "change_recovery_account_request", cmp.Compare[basics.AccountName])

	s.Transactions = store.NewTable[transactions.Txid, ledgercore.TransactionObject](db, "transaction", ledgercore.CompareTxid)
	s.TransactionsByExpiration = store.NewIndex(s.Transactions, "by_expiration", ledgercore.CompareTxExpiration)
	s.BlockSummaries = store.NewTable[uint16, ledgercore.BlockSummary](db, "block_summary", cmp.Compare[uint16])
	return s
}

// DGP returns the dynamic global properties.
func (s *State) DGP() ledgercore.DynamicGlobalProperties {
	d, _ := s.Globals.Get(ledgercore.Singleton)
	return d
}

// ModifyDGP changes the dynamic global properties.
func (s *State) ModifyDGP(fn func(d *ledgercore.DynamicGlobalProperties)) {
	s.Globals.Modify(ledgercore.Singleton, func(d *ledgercore.DynamicGlobalProperties) error {
		fn(d)
		return nil
	})
}

// WitnessSchedule returns the current schedule.
func (s *State) WitnessSchedule() ledgercore.WitnessSchedule {
	w, _ := s.Schedule.Get(ledgercore.Singleton)
	return w
}

// ModifyWitnessSchedule changes the current schedule.
func (s *State) ModifyWitnessSchedule(fn func(w *ledgercore.WitnessSchedule)) {
	s.Schedule.Modify(ledgercore.Singleton, func(w *ledgercore.WitnessSchedule) error {
		fn(w)
		return nil
	})
}

// HardforkProperties returns the hardfork state.
func (s *State) HardforkProperties() ledgercore.HardforkProperties {
	h, _ := s.Hardforks.Get(ledgercore.Singleton)
	return h
}

// ModifyHardforkProperties changes the hardfork state.
func (s *State) ModifyHardforkProperties(fn func(h *ledgercore.HardforkProperties)) {
	s.Hardforks.Modify(ledgercore.Singleton, func(h *ledgercore.HardforkProperties) error {
		fn(h)
		return nil
	})
}

// FeedHistory returns the price feed state.
func (s *State) FeedHistory() ledgercore.FeedHistory {
	f, _ := s.Feed.Get(ledgercore.Singleton)
	return f
}

// ModifyFeedHistory changes the price feed state.
func (s *State) ModifyFeedHistory(fn func(f *ledgercore.FeedHistory)) {
	s.Feed.Modify(ledgercore.Singleton, func(f *ledgercore.FeedHistory) error {
		fn(f)
		return nil
	})
}

// HeadBlockTime is chain time: every timeout is measured against it.
func (s *State) HeadBlockTime() basics.Timestamp {
	return s.DGP().Time
}

// HeadBlockNum is the number of the last applied block.
func (s *State) HeadBlockNum() uint32 {
	return s.DGP().HeadBlockNumber
}

// HasHardfork reports whether hardfork hf is active.
func (s *State) HasHardfork(hf int) bool {
	return int(s.HardforkProperties().LastHardfork) >= hf
}

// VestingSharePrice is the current MUSE/VESTS price.
func (s *State) VestingSharePrice() basics.Price {
	return s.DGP().VestingSharePrice(s.Params)
}

// Account returns the named account.
func (s *State) Account(op protocol.OpType, name basics.AccountName) (ledgercore.Account, error) {
	a, ok := s.Accounts.Get(name)
	if !ok {
		return a, ledgercore.Assertf(op, "account %s does not exist", name)
	}
	return a, nil
}

// RequireAccount fails unless the named account exists.
func (s *State) RequireAccount(op protocol.OpType, name basics.AccountName) error {
	if !s.Accounts.Has(name) {
		return ledgercore.Assertf(op, "account %s does not exist", name)
	}
	return nil
}

// ModifyAccount changes an account that is known to exist. Use ModifyStake
// for changes to effective vesting.
func (s *State) ModifyAccount(name basics.AccountName, fn func(a *ledgercore.Account) error) error {
	return s.Accounts.Modify(name, fn)
}

// AccountAuthorities implements verify.Lookup.
func (s *State) AccountAuthorities(name basics.AccountName) (verify.AccountAuthorities, bool) {
	a, ok := s.Accounts.Get(name)
	if !ok {
		return verify.AccountAuthorities{}, false
	}
	return verify.AccountAuthorities{Owner: a.Owner, Active: a.Active, Basic: a.Basic}, true
}

// ContentManagement implements verify.Lookup.
func (s *State) ContentManagement(url string) (master, comp basics.Authority, ok bool) {
	c, ok := s.Contents.Get(url)
	if !ok {
		return
	}
	return c.ManagementMaster, c.ManagementComp, true
}

// UpdateOwnerAuthority replaces an account's owner authority and archives
// the old one for account recovery.
func (s *State) UpdateOwnerAuthority(name basics.AccountName, owner basics.Authority) error {
	now := s.HeadBlockTime()
	a, ok := s.Accounts.Get(name)
	if !ok {
		return ledgercore.Assertf(protocol.UnknownOp, "account %s does not exist", name)
	}
	id := s.OwnerHistory.NextID()
	err := s.OwnerHistory.Create(id, ledgercore.OwnerAuthorityHistory{
		ID:                     id,
		Account:                name,
		PreviousOwnerAuthority: a.Owner,
		LastValidTime:          now,
	})
	if err != nil {
		return err
	}
	return s.Accounts.Modify(name, func(a *ledgercore.Account) error {
		a.Owner = owner.Clone()
		a.LastOwnerUpdate = now
		return nil
	})
}

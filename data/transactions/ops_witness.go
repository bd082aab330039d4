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

package transactions

import (
	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/crypto"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/protocol"
)

// ChainProperties are the chain parameters each witness votes on. The
// schedule applies the median of the active witnesses' votes.
type ChainProperties struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	AccountCreationFee basics.Asset `codec:"fee"`
	MaximumBlockSize   uint32       `codec:"maxblk"`
	MbdInterestRate    uint16       `codec:"mbdint"`
}

// DefaultChainProperties returns the properties a witness starts with.
func DefaultChainProperties(proto config.ConsensusParams) ChainProperties {
	return ChainProperties{
		AccountCreationFee: basics.Muse(proto.DefaultAccountCreationFee),
		MaximumBlockSize:   proto.InitialMaxBlockSize,
		MbdInterestRate:    proto.DefaultMbdInterestRate,
	}
}

// Validate checks the property ranges.
func (p ChainProperties) Validate(op protocol.OpType, proto config.ConsensusParams) error {
	if p.AccountCreationFee.Symbol != basics.MUSE || p.AccountCreationFee.Amount < proto.MinAccountCreationFee {
		return validationErrorf(op, "account creation fee must be at least %d MUSE units", proto.MinAccountCreationFee)
	}
	if p.MaximumBlockSize < proto.MinBlockSizeLimit || p.MaximumBlockSize > proto.MaxBlockSizeLimit {
		return validationErrorf(op, "maximum block size %d outside [%d, %d]", p.MaximumBlockSize, proto.MinBlockSizeLimit, proto.MaxBlockSizeLimit)
	}
	if p.MbdInterestRate > basics.Percent100 {
		return validationErrorf(op, "interest rate %d exceeds 100%%", p.MbdInterestRate)
	}
	return nil
}

// WitnessUpdateOp creates or updates the witness object owned by Owner. A
// zero BlockSigningKey takes the witness out of the schedule.
type WitnessUpdateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner           basics.AccountName `codec:"owner"`
	URL             string             `codec:"url"`
	BlockSigningKey crypto.PublicKey   `codec:"key"`
	Props           ChainProperties    `codec:"props"`
	Fee             basics.Asset       `codec:"fee"`
}

// OpType implements OpBody.
func (*WitnessUpdateOp) OpType() protocol.OpType { return protocol.WitnessUpdateOp }

// Validate implements OpBody.
func (op *WitnessUpdateOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Owner); err != nil {
		return err
	}
	if op.URL == "" || len(op.URL) > proto.MaxURLLength {
		return validationErrorf(op.OpType(), "url must be 1 to %d bytes", proto.MaxURLLength)
	}
	if op.Fee.Symbol != basics.MUSE || op.Fee.Amount < 0 {
		return validationErrorf(op.OpType(), "fee must be non-negative MUSE")
	}
	return op.Props.Validate(op.OpType(), proto)
}

// Authorities implements OpBody.
func (op *WitnessUpdateOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Owner) }

// AccountWitnessVoteOp adds or removes a vote of Account for Witness.
type AccountWitnessVoteOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account basics.AccountName `codec:"acct"`
	Witness basics.AccountName `codec:"witness"`
	Approve bool               `codec:"approve"`
}

// OpType implements OpBody.
func (*AccountWitnessVoteOp) OpType() protocol.OpType { return protocol.AccountWitnessVoteOp }

// Validate implements OpBody.
func (op *AccountWitnessVoteOp) Validate(proto config.ConsensusParams) error {
	return checkNames(op.OpType(), op.Account, op.Witness)
}

// Authorities implements OpBody.
func (op *AccountWitnessVoteOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Account) }

// AccountWitnessProxyOp makes Proxy vote on behalf of Account. An empty
// Proxy clears the proxy.
type AccountWitnessProxyOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account basics.AccountName `codec:"acct"`
	Proxy   basics.AccountName `codec:"proxy"`
}

// OpType implements OpBody.
func (*AccountWitnessProxyOp) OpType() protocol.OpType { return protocol.AccountWitnessProxyOp }

// Validate implements OpBody.
func (op *AccountWitnessProxyOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Account); err != nil {
		return err
	}
	if op.Proxy == "" {
		return nil
	}
	if err := checkName(op.OpType(), op.Proxy); err != nil {
		return err
	}
	if op.Proxy == op.Account {
		return validationErrorf(op.OpType(), "cannot proxy to yourself")
	}
	return nil
}

// Authorities implements OpBody.
func (op *AccountWitnessProxyOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Account) }

// FeedPublishOp publishes a witness's MBD/MUSE exchange rate.
type FeedPublishOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Publisher    basics.AccountName `codec:"pub"`
	ExchangeRate basics.Price       `codec:"rate"`
}

// OpType implements OpBody.
func (*FeedPublishOp) OpType() protocol.OpType { return protocol.FeedPublishOp }

// Validate implements OpBody.
func (op *FeedPublishOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Publisher); err != nil {
		return err
	}
	r := op.ExchangeRate
	if (r.Base.Symbol != basics.MBD || r.Quote.Symbol != basics.MUSE) &&
		(r.Base.Symbol != basics.MUSE || r.Quote.Symbol != basics.MBD) {
		return validationErrorf(op.OpType(), "price feed must be an MBD/MUSE price")
	}
	if err := r.Validate(); err != nil {
		return validationErrorf(op.OpType(), "%v", err)
	}
	return nil
}

// Authorities implements OpBody.
func (op *FeedPublishOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Publisher) }

// ReportOverProductionOp proves that a witness signed two blocks for the same
// slot. It is accepted on the wire but rejected by evaluation.
type ReportOverProductionOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Reporter    basics.AccountName `codec:"reporter"`
	FirstBlock  []byte             `codec:"first"`
	SecondBlock []byte             `codec:"second"`
}

// OpType implements OpBody.
func (*ReportOverProductionOp) OpType() protocol.OpType { return protocol.ReportOverProductionOp }

// Validate implements OpBody.
func (op *ReportOverProductionOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Reporter); err != nil {
		return err
	}
	if len(op.FirstBlock) == 0 || len(op.SecondBlock) == 0 {
		return validationErrorf(op.OpType(), "both block headers are required")
	}
	return nil
}

// Authorities implements OpBody.
func (op *ReportOverProductionOp) Authorities(req *RequiredAuthorities) { req.Active.Add(op.Reporter) }

// StreamingPlatformUpdateOp registers a streaming platform (paying the
// creation fee) or updates its url.
type StreamingPlatformUpdateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Owner basics.AccountName `codec:"owner"`
	URL   string             `codec:"url"`
	Fee   basics.Asset       `codec:"fee"`
}

// OpType implements OpBody.
func (*StreamingPlatformUpdateOp) OpType() protocol.OpType {
	return protocol.StreamingPlatformUpdateOp
}

// Validate implements OpBody.
func (op *StreamingPlatformUpdateOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Owner); err != nil {
		return err
	}
	if op.URL == "" || len(op.URL) > proto.MaxURLLength {
		return validationErrorf(op.OpType(), "url must be 1 to %d bytes", proto.MaxURLLength)
	}
	if op.Fee.Symbol != basics.MUSE || op.Fee.Amount < 0 {
		return validationErrorf(op.OpType(), "fee must be non-negative MUSE")
	}
	return nil
}

// Authorities implements OpBody.
func (op *StreamingPlatformUpdateOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.Owner)
}

// StreamingPlatformVoteOp adds or removes Account's vote for a platform.
type StreamingPlatformVoteOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Account           basics.AccountName `codec:"acct"`
	StreamingPlatform basics.AccountName `codec:"platform"`
	Approve           bool               `codec:"approve"`
}

// OpType implements OpBody.
func (*StreamingPlatformVoteOp) OpType() protocol.OpType { return protocol.StreamingPlatformVoteOp }

// Validate implements OpBody.
func (op *StreamingPlatformVoteOp) Validate(proto config.ConsensusParams) error {
	return checkNames(op.OpType(), op.Account, op.StreamingPlatform)
}

// Authorities implements OpBody.
func (op *StreamingPlatformVoteOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.Account)
}

// StreamingPlatformReportOp reports that Consumer listened to Content for
// PlayTime seconds on StreamingPlatform. When SpinningPlatform is set the
// report is filed by that platform as StreamingPlatform's reporting
// delegate.
type StreamingPlatformReportOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	StreamingPlatform basics.AccountName `codec:"platform"`
	SpinningPlatform  basics.AccountName `codec:"spinner"`
	Consumer          basics.AccountName `codec:"consumer"`
	Content           string             `codec:"content"`
	PlayTime          uint32             `codec:"play"`
}

// OpType implements OpBody.
func (*StreamingPlatformReportOp) OpType() protocol.OpType {
	return protocol.StreamingPlatformReportOp
}

// Reporter is the account that must sign the report.
func (op *StreamingPlatformReportOp) Reporter() basics.AccountName {
	if op.SpinningPlatform != "" {
		return op.SpinningPlatform
	}
	return op.StreamingPlatform
}

// Validate implements OpBody.
func (op *StreamingPlatformReportOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.StreamingPlatform, op.Consumer); err != nil {
		return err
	}
	if op.SpinningPlatform != "" {
		if err := checkName(op.OpType(), op.SpinningPlatform); err != nil {
			return err
		}
		if op.SpinningPlatform == op.StreamingPlatform {
			return validationErrorf(op.OpType(), "a platform cannot spin for itself")
		}
	}
	if op.Content == "" || len(op.Content) > proto.MaxURLLength {
		return validationErrorf(op.OpType(), "content url must be 1 to %d bytes", proto.MaxURLLength)
	}
	if op.PlayTime == 0 || int64(op.PlayTime) > proto.MaxReportPlayTime {
		return validationErrorf(op.OpType(), "play time must be 1 to %d seconds", proto.MaxReportPlayTime)
	}
	return nil
}

// Authorities implements OpBody.
func (op *StreamingPlatformReportOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.Reporter())
}

// SetReportingDelegateOp lets Platform authorize Reporter to file reports on
// its behalf. RewardPct of each such report's platform cut goes to the
// reporter; RedelegatePct of every vesting delegation Platform receives is
// redelegated to the reporter. Zero for both removes the grant.
type SetReportingDelegateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Platform      basics.AccountName `codec:"platform"`
	Reporter      basics.AccountName `codec:"reporter"`
	RewardPct     uint16             `codec:"rewardpct"`
	RedelegatePct uint16             `codec:"redelegpct"`
}

// OpType implements OpBody.
func (*SetReportingDelegateOp) OpType() protocol.OpType { return protocol.SetReportingDelegateOp }

// Validate implements OpBody.
func (op *SetReportingDelegateOp) Validate(proto config.ConsensusParams) error {
	if err := checkNames(op.OpType(), op.Platform, op.Reporter); err != nil {
		return err
	}
	if op.Platform == op.Reporter {
		return validationErrorf(op.OpType(), "a platform cannot delegate reporting to itself")
	}
	if op.RewardPct > basics.Percent100 || op.RedelegatePct > basics.Percent100 {
		return validationErrorf(op.OpType(), "percentages must not exceed 100%%")
	}
	return nil
}

// Authorities implements OpBody.
func (op *SetReportingDelegateOp) Authorities(req *RequiredAuthorities) {
	req.Active.Add(op.Platform)
}

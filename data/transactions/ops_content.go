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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/protocol"
)

// Distribution is a payee's share of a content side's revenue, in basis points.
type Distribution struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Payee basics.AccountName `codec:"payee"`
	Bp    uint16             `codec:"bp"`
}

func checkDistributions(op protocol.OpType, ds []Distribution) error {
	var total int
	seen := mapset.NewThreadUnsafeSet[basics.AccountName]()
	for _, d := range ds {
		if err := checkName(op, d.Payee); err != nil {
			return err
		}
		if d.Bp == 0 {
			return validationErrorf(op, "payee %s has a zero share", d.Payee)
		}
		if !seen.Add(d.Payee) {
			return validationErrorf(op, "payee %s listed twice", d.Payee)
		}
		total += int(d.Bp)
	}
	if total > basics.Percent100 {
		return validationErrorf(op, "distributions add up to more than 100%%")
	}
	return nil
}

// ContentSide selects which half of a content's rights an update touches.
type ContentSide uint8

// Content sides.
const (
	MasterSide ContentSide = iota
	CompositionSide
)

// ContentOp registers a royalty-bearing work. The master side holds the
// recording rights, the composition side the publishing rights.
type ContentOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Uploader     basics.AccountName `codec:"uploader"`
	URL          string             `codec:"url"`
	JSONMetadata string             `codec:"json"`

	DistributionsMaster []Distribution   `codec:"dmaster"`
	ManagementMaster    basics.Authority `codec:"mmaster"`
	DistributionsComp   []Distribution   `codec:"dcomp"`
	ManagementComp      basics.Authority `codec:"mcomp"`

	// PlayingReward is the platform's cut of each report reward.
	PlayingReward uint16 `codec:"playrew"`
	// PublishersShare is the composition side's cut of the content's share.
	PublishersShare uint16 `codec:"pubshare"`
}

// OpType implements OpBody.
func (*ContentOp) OpType() protocol.OpType { return protocol.ContentOp }

// Validate implements OpBody.
func (op *ContentOp) Validate(proto config.ConsensusParams) error {
	if err := checkName(op.OpType(), op.Uploader); err != nil {
		return err
	}
	if op.URL == "" || len(op.URL) > proto.MaxURLLength {
		return validationErrorf(op.OpType(), "url must be 1 to %d bytes", proto.MaxURLLength)
	}
	if err := checkJSON(op.OpType(), proto, op.JSONMetadata); err != nil {
		return err
	}
	if err := checkDistributions(op.OpType(), op.DistributionsMaster); err != nil {
		return err
	}
	if err := checkDistributions(op.OpType(), op.DistributionsComp); err != nil {
		return err
	}
	if err := checkAuthority(op.OpType(), "master management", op.ManagementMaster); err != nil {
		return err
	}
	if len(op.DistributionsComp) > 0 || op.ManagementComp.NumAuths() > 0 {
		if err := checkAuthority(op.OpType(), "composition management", op.ManagementComp); err != nil {
			return err
		}
	}
	if op.PlayingReward > basics.Percent100 || op.PublishersShare > basics.Percent100 {
		return validationErrorf(op.OpType(), "percentages must not exceed 100%%")
	}
	return nil
}

// Authorities implements OpBody.
func (op *ContentOp) Authorities(req *RequiredAuthorities) { req.Basic.Add(op.Uploader) }

// ContentUpdateOp changes one side of a content. Only the master side may
// change the reward percentages.
type ContentUpdateOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Side         ContentSide `codec:"side"`
	URL          string      `codec:"url"`
	JSONMetadata string      `codec:"json"`

	NewDistributions   []Distribution    `codec:"dist"`
	NewManagement      *basics.Authority `codec:"mgmt"`
	NewPlayingReward   *uint16           `codec:"playrew"`
	NewPublishersShare *uint16           `codec:"pubshare"`
}

// OpType implements OpBody.
func (*ContentUpdateOp) OpType() protocol.OpType { return protocol.ContentUpdateOp }

// Validate implements OpBody.
func (op *ContentUpdateOp) Validate(proto config.ConsensusParams) error {
	if op.Side != MasterSide && op.Side != CompositionSide {
		return validationErrorf(op.OpType(), "unknown content side %d", op.Side)
	}
	if op.URL == "" || len(op.URL) > proto.MaxURLLength {
		return validationErrorf(op.OpType(), "url must be 1 to %d bytes", proto.MaxURLLength)
	}
	if err := checkJSON(op.OpType(), proto, op.JSONMetadata); err != nil {
		return err
	}
	if err := checkDistributions(op.OpType(), op.NewDistributions); err != nil {
		return err
	}
	if op.NewManagement != nil {
		if err := checkAuthority(op.OpType(), "management", *op.NewManagement); err != nil {
			return err
		}
	}
	if op.Side != MasterSide && (op.NewPlayingReward != nil || op.NewPublishersShare != nil) {
		return validationErrorf(op.OpType(), "only the master side may change reward percentages")
	}
	if (op.NewPlayingReward != nil && *op.NewPlayingReward > basics.Percent100) ||
		(op.NewPublishersShare != nil && *op.NewPublishersShare > basics.Percent100) {
		return validationErrorf(op.OpType(), "percentages must not exceed 100%%")
	}
	return nil
}

// Authorities implements OpBody.
func (op *ContentUpdateOp) Authorities(req *RequiredAuthorities) {
	if op.Side == MasterSide {
		req.MasterContent.Add(op.URL)
	} else {
		req.CompContent.Add(op.URL)
	}
}

// ContentDisableOp stops a content from accruing rewards.
type ContentDisableOp struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	URL string `codec:"url"`
}

// OpType implements OpBody.
func (*ContentDisableOp) OpType() protocol.OpType { return protocol.ContentDisableOp }

// Validate implements OpBody.
func (op *ContentDisableOp) Validate(proto config.ConsensusParams) error {
	if op.URL == "" || len(op.URL) > proto.MaxURLLength {
		return validationErrorf(op.OpType(), "url must be 1 to %d bytes", proto.MaxURLLength)
	}
	return nil
}

// Authorities implements OpBody.
func (op *ContentDisableOp) Authorities(req *RequiredAuthorities) { req.MasterContent.Add(op.URL) }

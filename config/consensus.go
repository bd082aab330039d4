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

package config

// ConsensusParams specifies the chain constants every node must agree on.
// Durations are in seconds of chain time.
type ConsensusParams struct {
	// BlockInterval is the slot length.
	BlockInterval int64
	BlocksPerDay  int64
	BlocksPerYear int64

	// Witness scheduling. A schedule holds MaxVotedWitnesses top-voted
	// witnesses plus runners filling up to MaxWitnesses. A witness-majority
	// decision needs HardforkRequiredWitnesses of MaxWitnesses, scaled to
	// the number actually scheduled.
	MaxWitnesses              int
	MaxVotedWitnesses         int
	HardforkRequiredWitnesses int

	// IrreversibleThreshold is the share, in basis points, of scheduled
	// witnesses that must confirm a block before it becomes irreversible.
	IrreversibleThreshold int64

	MaxTimeUntilExpiration int64
	MaxTransactionSize     int
	InitialMaxBlockSize    uint32
	MinBlockSizeLimit      uint32
	MaxBlockSizeLimit      uint32
	MaxMemoSize            int
	MaxURLLength           int
	MaxJSONMetadataLength  int

	// Bandwidth. Average usage decays linearly over BandwidthAverageWindow;
	// the network-wide allowance is MaxBlockSize * reserve ratio, re-tuned
	// every ReserveRatioCheckBlocks blocks.
	BandwidthAverageWindow  int64
	BandwidthPrecision      int64
	MaxReserveRatio         int64
	ReserveRatioCheckBlocks uint32
	MarketBandwidthDivisor  int64

	VestingWithdrawIntervals       int64
	VestingWithdrawIntervalSeconds int64
	MaxWithdrawRoutes              int

	MaxProxyRecursionDepth int
	MaxAccountWitnessVotes int
	MaxSigCheckDepth       int

	OwnerUpdateLimit                 int64
	OwnerAuthRecoveryPeriod          int64
	AccountRecoveryRequestExpiration int64

	// Vesting delegation.
	DelegationReturnPeriod        int64
	CreateAccountWithMuseModifier int64
	CreateAccountDelegationRatio  int64
	CreateAccountDelegationTime   int64
	MinDelegationMultiplier       int64

	// Price feed and conversions.
	ConversionDelay    int64
	FeedIntervalBlocks uint32
	FeedHistoryWindow  int
	// MinFeeds is how many fresh witness feeds a median needs.
	MinFeeds   int
	MaxFeedAge int64
	// MbdPercentCap bounds, in basis points of the virtual supply, the MBD
	// supply valued at the effective median price.
	MbdPercentCap int64

	MaxLimitOrderExpiration int64

	MaxProposalLifetime     int64
	MaxProposalNestingDepth int

	// Rewards.
	InflationRateBP             int64
	ContentRewardPercent        int64
	VestingFundPercent          int64
	ContentRewardInterval       int64
	FullTimeListeningThreshold  int64
	MaxReportPlayTime           int64
	MbdInterestCompoundInterval int64
	InitialVestingPerMuse       int64

	// Fees and defaults.
	MinAccountCreationFee        int64
	DefaultAccountCreationFee    int64
	DefaultMbdInterestRate       uint16
	StreamingPlatformCreationFee int64
	MaxStreamingPlatformVotes    int
	MaxSocialFriends             int

	// MissedBlocksShutdown is how long a witness may miss its slots before
	// its signing key is cleared.
	MissedBlocksShutdown int64
}

// Consensus holds the default chain constants.
var Consensus = ConsensusParams{
	BlockInterval: 3,
	BlocksPerDay:  28800,
	BlocksPerYear: 10512000,

	MaxWitnesses:              21,
	MaxVotedWitnesses:         19,
	HardforkRequiredWitnesses: 17,

	IrreversibleThreshold: 7500,

	MaxTimeUntilExpiration: 3600,
	MaxTransactionSize:     64 * 1024,
	InitialMaxBlockSize:    128 * 1024,
	MinBlockSizeLimit:      64 * 1024,
	MaxBlockSizeLimit:      2 * 1024 * 1024,
	MaxMemoSize:            2048,
	MaxURLLength:           127,
	MaxJSONMetadataLength:  8192,

	BandwidthAverageWindow:  7 * 24 * 3600,
	BandwidthPrecision:      1000000,
	MaxReserveRatio:         20000,
	ReserveRatioCheckBlocks: 20,
	MarketBandwidthDivisor:  10,

	VestingWithdrawIntervals:       13,
	VestingWithdrawIntervalSeconds: 7 * 24 * 3600,
	MaxWithdrawRoutes:              10,

	MaxProxyRecursionDepth: 4,
	MaxAccountWitnessVotes: 30,
	MaxSigCheckDepth:       2,

	OwnerUpdateLimit:                 3600,
	OwnerAuthRecoveryPeriod:          30 * 24 * 3600,
	AccountRecoveryRequestExpiration: 24 * 3600,

	DelegationReturnPeriod:        5 * 24 * 3600,
	CreateAccountWithMuseModifier: 30,
	CreateAccountDelegationRatio:  5,
	CreateAccountDelegationTime:   30 * 24 * 3600,
	MinDelegationMultiplier:       10,

	ConversionDelay:    302400,
	FeedIntervalBlocks: 1200,
	FeedHistoryWindow:  84,
	MinFeeds:           7,
	MaxFeedAge:         7 * 24 * 3600,
	MbdPercentCap:      1000,

	MaxLimitOrderExpiration: 28 * 24 * 3600,

	MaxProposalLifetime:     28 * 24 * 3600,
	MaxProposalNestingDepth: 2,

	InflationRateBP:             950,
	ContentRewardPercent:        5000,
	VestingFundPercent:          4000,
	ContentRewardInterval:       24 * 3600,
	FullTimeListeningThreshold:  3600,
	MaxReportPlayTime:           3600,
	MbdInterestCompoundInterval: 30 * 24 * 3600,
	InitialVestingPerMuse:       1000,

	MinAccountCreationFee:        1,
	DefaultAccountCreationFee:    100000,
	DefaultMbdInterestRate:       1000,
	StreamingPlatformCreationFee: 10000,
	MaxStreamingPlatformVotes:    10,
	MaxSocialFriends:             1000,

	MissedBlocksShutdown: 24 * 3600,
}

// RequiredWitnessMajority returns how many of n scheduled witnesses must
// agree for a witness-majority decision, rounding up.
func (p ConsensusParams) RequiredWitnessMajority(n int) int {
	if n <= 0 {
		return 0
	}
	return (n*p.HardforkRequiredWitnesses + p.MaxWitnesses - 1) / p.MaxWitnesses
}

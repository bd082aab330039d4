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

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the head block and global properties",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		chain, done := openChain(false)
		defer done()

		d := chain.DGP()
		reportInfof("Chain %v", chain.ChainID())
		fmt.Printf("Head block:            %d (%v)\n", d.HeadBlockNumber, chain.HeadBlockID())
		fmt.Printf("Head block time:       %v\n", d.Time)
		fmt.Printf("Last irreversible:     %d\n", d.LastIrreversibleBlockNum)
		fmt.Printf("Current witness:       %s\n", d.CurrentWitness)
		fmt.Printf("MUSE supply:           %d\n", d.CurrentSupply)
		fmt.Printf("MBD supply:            %d\n", d.CurrentMbdSupply)
		fmt.Printf("Vesting fund:          %d MUSE / %d VESTS\n", d.TotalVestingFund, d.TotalVestingShares)
		fmt.Printf("Content reward fund:   %d\n", d.TotalRewardFund)
		fmt.Printf("Maximum block size:    %d\n", d.MaximumBlockSize)
		fmt.Printf("Reserve ratio:         %d\n", d.CurrentReserveRatio)
		fmt.Printf("Participation:         %d/128\n", d.ParticipationCount)
		if d.ParticipationCount < 64 {
			reportWarnf("Fewer than half of the recent slots were filled")
		}
	},
}

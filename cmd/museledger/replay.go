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
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/algorand/go-muse/util/metrics"
)

var printMetrics bool

func init() {
	replayCmd.Flags().BoolVarP(&printMetrics, "metrics", "m", false, "Print the ledger counters after the audit")
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the chain state from the block log and audit it",
	Long:  "Rebuild the chain state by replaying every block of the block log with the replay validation policy, then recompute every supply and vote tally and compare them with the cached totals",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		start := time.Now()
		chain, done := openChain(false)
		defer done()
		reportInfof("Replayed %d blocks in %v", chain.HeadBlockNum(), time.Since(start).Round(time.Millisecond))

		if err := chain.ValidateInvariants(); err != nil {
			done()
			reportErrorf("Audit failed at block %d: %v", chain.HeadBlockNum(), err)
		}
		reportInfof("Audit passed at block %d (%v)", chain.HeadBlockNum(), chain.HeadBlockID())

		if printMetrics {
			var buf strings.Builder
			if err := metrics.DefaultRegistry().WriteMetrics(&buf); err != nil {
				reportWarnf("Cannot gather metrics: %v", err)
				return
			}
			fmt.Print(buf.String())
		}
	},
}

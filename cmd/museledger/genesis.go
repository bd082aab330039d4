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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/bookkeeping"
)

var (
	genesisChainName string
	genesisWitnesses string
	genesisBalance   int64
	genesisVesting   int64
	genesisTime      int64
	genesisOut       string
)

func init() {
	genesisCmd.Flags().StringVarP(&genesisChainName, "chain", "c", "musedev", "Chain name")
	genesisCmd.Flags().StringVarP(&genesisWitnesses, "witnesses", "w", "initwitness", "Comma-separated witness account names")
	genesisCmd.Flags().Int64Var(&genesisBalance, "balance", 1000000000, "Liquid MUSE of every witness account, in base units")
	genesisCmd.Flags().Int64Var(&genesisVesting, "vesting", 1000000000, "MUSE vested to every witness account, in base units")
	genesisCmd.Flags().Int64Var(&genesisTime, "time", 0, "Genesis timestamp in unix seconds (default now)")
	genesisCmd.Flags().StringVarP(&genesisOut, "output", "o", "", "Output file (default <datadir>/genesis.json)")
}

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Write a development genesis file",
	Long:  "Write a development genesis file. Every witness gets an account whose keys derive from its name, and every hardfork is active from the start",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := genesisOut
		if out == "" {
			if dataDir == "" {
				reportErrorf("Either an output file (-o) or a data directory (-d) is required")
			}
			if err := os.MkdirAll(dataDir, 0700); err != nil {
				reportErrorf("Cannot create %s: %v", dataDir, err)
			}
			out = filepath.Join(dataDir, defaultGenesisFilename)
		}

		var names []basics.AccountName
		for _, n := range strings.Split(genesisWitnesses, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, basics.AccountName(n))
			}
		}
		ts := genesisTime
		if ts == 0 {
			ts = time.Now().Unix()
		}
		g := bookkeeping.MakeDevGenesis(genesisChainName, basics.Timestamp(ts), names, genesisBalance, genesisVesting)
		if err := g.Validate(); err != nil {
			reportErrorf("Invalid genesis: %v", err)
		}
		if err := g.SaveToFile(out); err != nil {
			reportErrorf("Cannot write %s: %v", out, err)
		}
		reportInfof("Wrote genesis of %s with %d witnesses to %s", genesisChainName, len(names), out)
	},
}

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
	"path/filepath"

	"github.com/algorand/go-muse/config"
	"github.com/algorand/go-muse/data/bookkeeping"
	"github.com/algorand/go-muse/ledger"
	"github.com/algorand/go-muse/logging"
)

const defaultGenesisFilename = "genesis.json"

// openChain opens the chain in dataDir, replaying its block log. The
// returned function closes the chain and then its log.
func openChain(validate bool) (*ledger.Chain, func()) {
	if dataDir == "" {
		reportErrorf("A data directory is required (-d)")
	}
	gfile := genesisFile
	if gfile == "" {
		gfile = filepath.Join(dataDir, defaultGenesisFilename)
	}
	genesis, err := bookkeeping.LoadGenesisFromFile(gfile)
	if err != nil {
		reportErrorf("Cannot load genesis from %s: %v", gfile, err)
	}
	cfg, err := config.LoadConfigFromDisk(dataDir)
	if err != nil {
		reportErrorf("Cannot load config from %s: %v", dataDir, err)
	}
	cfg.ValidateInvariantsEveryBlock = validate

	log := logging.Base()
	closeLog := func() {}
	if cfg.LogToDataDirectory {
		l, w, err := logging.NewDataDirLogger(dataDir, cfg.LogLevel, cfg.LogSizeLimit)
		if err != nil {
			reportErrorf("Cannot open the log of %s: %v", dataDir, err)
		}
		log = l
		closeLog = func() { w.Close() }
	}

	chain, err := ledger.Open(dataDir, genesis, cfg, log)
	if err != nil {
		closeLog()
		reportErrorf("Cannot open chain: %v", err)
	}
	return chain, func() {
		if err := chain.Close(); err != nil {
			reportWarnf("Closing chain: %v", err)
		}
		closeLog()
	}
}

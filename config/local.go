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

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/algorand/go-muse/protocol"
)

// ConfigFilename is the name of the node-local config file in a data directory.
const ConfigFilename = "config.json"

// Block log backends.
const (
	BlockLogSQLite = "sqlite"
	BlockLogPebble = "pebble"
)

// Local holds the per-node configuration. None of these settings change
// evaluation results.
type Local struct {
	// Version tracks the current version of the defaults so we can migrate old -> new
	Version uint32

	// BlockLogBackend selects the irreversible block log store.
	BlockLogBackend string

	// MaxUndoHistory bounds head_block_num - last_irreversible_block_num.
	MaxUndoHistory uint32

	// ForkDBSize bounds how many reversible blocks the fork tree keeps.
	ForkDBSize uint32

	// ValidateInvariantsEveryBlock runs the supply audit after each block
	// unless the validation policy skips it.
	ValidateInvariantsEveryBlock bool

	// Logging
	LogLevel           string
	LogSizeLimit       uint64
	LogToDataDirectory bool

	// DefaultPolicy is used for blocks and transactions received from peers.
	DefaultPolicy ValidationPolicy
}

var defaultLocal = Local{
	Version:                      1,
	BlockLogBackend:              BlockLogSQLite,
	MaxUndoHistory:               10000,
	ForkDBSize:                   1024,
	ValidateInvariantsEveryBlock: false,
	LogLevel:                     "info",
	LogSizeLimit:                 1 << 30,
	LogToDataDirectory:           true,
}

// GetDefaultLocal returns a copy of the current defaultLocal config
func GetDefaultLocal() Local {
	return defaultLocal
}

// LoadConfigFromDisk returns a Local config structure based on merging the defaults
// with settings loaded from the config file from the custom dir.  A missing
// file yields the defaults; a malformed one is an error.
func LoadConfigFromDisk(custom string) (c Local, err error) {
	c = defaultLocal
	data, err := os.ReadFile(filepath.Join(custom, ConfigFilename))
	if os.IsNotExist(err) {
		return defaultLocal, nil
	}
	if err != nil {
		return c, err
	}
	if err = protocol.DecodeJSON(data, &c); err != nil {
		return defaultLocal, fmt.Errorf("cannot parse %s: %w", ConfigFilename, err)
	}
	return c, c.Validate()
}

// SaveToDisk writes the Local settings into a root/ConfigFilename file
func (cfg Local) SaveToDisk(root string) error {
	return os.WriteFile(filepath.Join(root, ConfigFilename), protocol.EncodeJSON(cfg), 0644)
}

// Validate checks option values.
func (cfg Local) Validate() error {
	switch cfg.BlockLogBackend {
	case BlockLogSQLite, BlockLogPebble:
	default:
		return fmt.Errorf("unknown block log backend %q", cfg.BlockLogBackend)
	}
	if cfg.MaxUndoHistory == 0 {
		return fmt.Errorf("MaxUndoHistory must be positive")
	}
	if cfg.ForkDBSize == 0 {
		return fmt.Errorf("ForkDBSize must be positive")
	}
	return nil
}

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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/test/partitiontest"
)

func TestLoadMissingConfig(t *testing.T) {
	partitiontest.PartitionTest(t)

	c, err := LoadConfigFromDisk(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, GetDefaultLocal(), c)
}

func TestSaveLoadConfig(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	c := GetDefaultLocal()
	c.BlockLogBackend = BlockLogPebble
	c.MaxUndoHistory = 50
	c.DefaultPolicy.SkipTaposCheck = true
	require.NoError(t, c.SaveToDisk(dir))

	loaded, err := LoadConfigFromDisk(dir)
	require.NoError(t, err)
	require.Equal(t, c, loaded)
}

func TestRejectUnknownField(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(`{"NoSuchOption": 1}`), 0644))
	_, err := LoadConfigFromDisk(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(`{"BlockLogBackend": "rocks"}`), 0644))
	_, err = LoadConfigFromDisk(dir)
	require.Error(t, err)
}

func TestWitnessMajority(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.Equal(t, 17, Consensus.RequiredWitnessMajority(21))
	require.Equal(t, 1, Consensus.RequiredWitnessMajority(1))
	require.Equal(t, 9, Consensus.RequiredWitnessMajority(11))
	require.Equal(t, 0, Consensus.RequiredWitnessMajority(0))
}

func TestVersionString(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.Equal(t, "0.2.0", SoftwareVersion.String())
	require.True(t, HardforkVersions[HardforkDelegation] < HardforkVersions[HardforkSpinning])
}

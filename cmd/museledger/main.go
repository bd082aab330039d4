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
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/algorand/go-muse/config"
)

var (
	dataDir      string
	genesisFile  string
	versionCheck bool
)

var rootCmd = &cobra.Command{
	Use:   "museledger",
	Short: "Inspect and rebuild a Muse chain data directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if versionCheck {
			fmt.Println(config.SoftwareVersion)
			return
		}
		// If no arguments passed, we should fallback to help
		cmd.HelpFunc()(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "datadir", "d", "", "Data directory holding the block log")
	rootCmd.PersistentFlags().StringVarP(&genesisFile, "genesis", "g", "", "Genesis file of the chain (default <datadir>/genesis.json)")
	rootCmd.Flags().BoolVarP(&versionCheck, "version", "v", false, "Display the software version and exit")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(genesisCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func reportInfof(format string, args ...interface{}) {
	fmt.Println(color.New(color.FgGreen).Sprintf(format, args...))
}

func reportWarnf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, color.New(color.FgYellow).Sprintf(format, args...))
}

func reportErrorf(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf(format, args...))
	os.Exit(1)
}

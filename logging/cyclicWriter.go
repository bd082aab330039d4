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

package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/algorand/go-deadlock"
)

// Log file names inside a data directory.
const (
	LiveLogFilename    = "ledger.log"
	ArchiveLogFilename = "ledger.archive.log"
)

// CyclicFileWriter implements the io.Writer interface and wraps an underlying file.
// It ensures that the file never grows over a limit: when the next write
// would cross it, the live file is moved to the archive path and restarted.
type CyclicFileWriter struct {
	mu        deadlock.Mutex
	writer    *os.File
	liveLog   string
	archive   string
	nextWrite uint64
	limit     uint64
}

// MakeCyclicFileWriter opens (or creates) the live log file for appending.
func MakeCyclicFileWriter(liveLogFilePath string, archiveFilePath string, sizeLimitBytes uint64) (*CyclicFileWriter, error) {
	cyclic := &CyclicFileWriter{liveLog: liveLogFilePath, archive: archiveFilePath, limit: sizeLimitBytes}

	if fs, err := os.Stat(liveLogFilePath); err == nil {
		cyclic.nextWrite = uint64(fs.Size())
	}

	writer, err := os.OpenFile(liveLogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("CyclicFileWriter: cannot open log file: %w", err)
	}
	cyclic.writer = writer
	return cyclic, nil
}

// Write ensures the the underlying file can store an additional len(p) bytes,
// archiving the current file first when it cannot.
func (cyclic *CyclicFileWriter) Write(p []byte) (n int, err error) {
	cyclic.mu.Lock()
	defer cyclic.mu.Unlock()

	if uint64(len(p)) > cyclic.limit {
		return 0, fmt.Errorf("CyclicFileWriter: input too long to write. Len = %v", len(p))
	}

	if cyclic.nextWrite+uint64(len(p)) > cyclic.limit {
		cyclic.writer.Close()
		if err = os.Rename(cyclic.liveLog, cyclic.archive); err != nil {
			return 0, fmt.Errorf("CyclicFileWriter: cannot archive full log: %w", err)
		}
		cyclic.writer, err = os.OpenFile(cyclic.liveLog, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
		if err != nil {
			return 0, fmt.Errorf("CyclicFileWriter: cannot reopen log file: %w", err)
		}
		cyclic.nextWrite = 0
	}
	n, err = cyclic.writer.Write(p)
	cyclic.nextWrite += uint64(n)
	return
}

// Close closes the live file.
func (cyclic *CyclicFileWriter) Close() error {
	cyclic.mu.Lock()
	defer cyclic.mu.Unlock()
	return cyclic.writer.Close()
}

// NewDataDirLogger returns a logger writing to the cyclic log files of a
// data directory, at the given level name ("info", "debug", ...).
func NewDataDirLogger(dataDir string, level string, sizeLimitBytes uint64) (Logger, *CyclicFileWriter, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	w, err := MakeCyclicFileWriter(filepath.Join(dataDir, LiveLogFilename), filepath.Join(dataDir, ArchiveLogFilename), sizeLimitBytes)
	if err != nil {
		return nil, nil, err
	}
	log := NewLogger()
	log.SetOutput(w)
	log.SetLevel(lvl)
	return log, w, nil
}

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

// Package logging wraps logrus with the loggers used by the chain, the
// stores and the tools around them.
//
//	logging.Base().Infof("replayed %d blocks", n)
//	log := logging.Base().With("witness", name)
package logging

import (
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is a logging severity. Lower is more severe.
type Level uint32

// Levels, numbered as in logrus.
const (
	Error Level = Level(logrus.ErrorLevel)
	Warn  Level = Level(logrus.WarnLevel)
	Info  Level = Level(logrus.InfoLevel)
	Debug Level = Level(logrus.DebugLevel)
)

const timestampFormat = "2006-01-02T15:04:05.000000Z07:00"

var (
	baseLogger Logger
	once       sync.Once
)

// Init sets up the base logger: stderr, warnings and above.
func Init() {
	once.Do(func() {
		baseLogger = NewLogger()
		baseLogger.SetLevel(Warn)
	})
}

func init() {
	Init()
}

// Fields are structured key-value pairs attached to an entry.
type Fields = logrus.Fields

// Logger is the logging surface the rest of the module sees.
type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})
	Info(...interface{})
	Infof(string, ...interface{})
	Warn(...interface{})
	Warnf(string, ...interface{})

	// Error and Errorf attach the calling goroutine's stack.
	Error(...interface{})
	Errorf(string, ...interface{})

	With(key string, value interface{}) Logger
	WithFields(Fields) Logger

	SetLevel(Level)
	GetLevel() Level
	SetOutput(io.Writer)
	SetJSONFormatter()
}

type logger struct {
	entry *logrus.Entry
}

// NewLogger returns an Info level text logger on stderr.
func NewLogger() Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{TimestampFormat: timestampFormat, FullTimestamp: true}
	return logger{entry: logrus.NewEntry(l)}
}

// Base returns the process-wide logger.
func Base() Logger {
	return baseLogger
}

// ParseLevel converts a level name such as "info" into a Level.
func ParseLevel(name string) (Level, error) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return Info, err
	}
	if lvl < logrus.ErrorLevel {
		lvl = logrus.ErrorLevel
	}
	if lvl > logrus.DebugLevel {
		lvl = logrus.DebugLevel
	}
	return Level(lvl), nil
}

func (l logger) With(key string, value interface{}) Logger {
	return logger{l.entry.WithField(key, value)}
}

func (l logger) WithFields(fields Fields) Logger {
	return logger{l.entry.WithFields(fields)}
}

func (l logger) Debug(args ...interface{}) { l.caller().Debug(args...) }

func (l logger) Debugf(format string, args ...interface{}) { l.caller().Debugf(format, args...) }

func (l logger) Info(args ...interface{}) { l.caller().Info(args...) }

func (l logger) Infof(format string, args ...interface{}) { l.caller().Infof(format, args...) }

func (l logger) Warn(args ...interface{}) { l.caller().Warn(args...) }

func (l logger) Warnf(format string, args ...interface{}) { l.caller().Warnf(format, args...) }

func (l logger) Error(args ...interface{}) {
	l.caller().WithField("stack", string(debug.Stack())).Error(args...)
}

func (l logger) Errorf(format string, args ...interface{}) {
	l.caller().WithField("stack", string(debug.Stack())).Errorf(format, args...)
}

func (l logger) SetLevel(lvl Level) {
	l.entry.Logger.SetLevel(logrus.Level(lvl))
}

func (l logger) GetLevel() Level {
	return Level(l.entry.Logger.GetLevel())
}

func (l logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

func (l logger) SetJSONFormatter() {
	l.entry.Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
}

// caller tags the entry with the file and line of the code that logged.
func (l logger) caller() *logrus.Entry {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields{
		"file": file[strings.LastIndex(file, "/")+1:],
		"line": line,
	})
}

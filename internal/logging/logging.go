// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logging is the node-wide logging backend: a rotating log file
// plus stdout, split into per-subsystem loggers the way the rest of the
// decred/exccd family tags its subsystems ("BCHN", "LDGR", "NTWK", ...).
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// backendLog is the slog backend every subsystem logger is created from.
// It writes to logWriter, which fans out to both stdout and the rotator
// once InitLogRotator has been called; before that, it writes to stdout
// only.
var backendLog = slog.NewBackend(logWriter{})

// logRotator is nil until InitLogRotator runs, matching the teacher's own
// log.go convention of tolerating logging before the rotator is wired up
// (e.g. while parsing configuration).
var logRotator *rotator.Rotator

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// InitLogRotator opens (creating if necessary) logFile and begins writing
// every subsystem logger's output to it in addition to stdout, rolling
// over once the file exceeds 10 MiB and keeping the most recent 3 rolls.
func InitLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("logging: failed to create file rotator: %w", err)
	}
	logRotator = r
	return nil
}

// Subsystem tags define every logger a node process registers, so
// SetLogLevels has a single place to validate a requested tag against.
const (
	SubsystemBlockchain  = "BCHN"
	SubsystemLedger      = "LDGR"
	SubsystemLeadership  = "LEAD"
	SubsystemFragmentPool = "FPOL"
	SubsystemEnclave     = "ENCL"
	SubsystemNetwork     = "NTWK"
	SubsystemPeer        = "PEER"
	SubsystemRPC         = "RPCS"
	SubsystemStorage     = "STOR"
)

var subsystems = map[string]slog.Logger{
	SubsystemBlockchain:   backendLog.Logger(SubsystemBlockchain),
	SubsystemLedger:       backendLog.Logger(SubsystemLedger),
	SubsystemLeadership:   backendLog.Logger(SubsystemLeadership),
	SubsystemFragmentPool: backendLog.Logger(SubsystemFragmentPool),
	SubsystemEnclave:      backendLog.Logger(SubsystemEnclave),
	SubsystemNetwork:      backendLog.Logger(SubsystemNetwork),
	SubsystemPeer:         backendLog.Logger(SubsystemPeer),
	SubsystemRPC:          backendLog.Logger(SubsystemRPC),
	SubsystemStorage:      backendLog.Logger(SubsystemStorage),
}

// Logger returns the named subsystem's logger, creating (and registering)
// one on first use if tag is not one of the known Subsystem constants.
// This lets a package grab its logger with a plain package-level var
// without this package needing to know about every caller in advance.
func Logger(tag string) slog.Logger {
	if l, ok := subsystems[tag]; ok {
		return l
	}
	l := backendLog.Logger(tag)
	subsystems[tag] = l
	return l
}

// SetLevel sets the named subsystem's logging level ("trace", "debug",
// "info", "warn", "error", "critical", "off"), matching decred's
// --debuglevel=SUBSYS=LEVEL config syntax.
func SetLevel(tag, levelString string) error {
	level, ok := slog.LevelFromString(levelString)
	if !ok {
		return fmt.Errorf("logging: unknown log level %q", levelString)
	}
	Logger(tag).SetLevel(level)
	return nil
}

// SetLevelAll sets every registered subsystem's logging level at once,
// used for the bare --debuglevel=LEVEL form.
func SetLevelAll(levelString string) error {
	level, ok := slog.LevelFromString(levelString)
	if !ok {
		return fmt.Errorf("logging: unknown log level %q", levelString)
	}
	for _, l := range subsystems {
		l.SetLevel(level)
	}
	return nil
}

// Close flushes and closes the log rotator, if one was initialized.
func Close() {
	if logRotator != nil {
		logRotator.Close()
	}
}

var _ io.Writer = logWriter{}

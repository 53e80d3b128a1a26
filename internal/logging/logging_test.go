// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package logging

import (
	"path/filepath"
	"testing"

	"github.com/decred/slog"
)

func TestLoggerReturnsSameInstanceForKnownSubsystem(t *testing.T) {
	a := Logger(SubsystemBlockchain)
	b := Logger(SubsystemBlockchain)
	if a != b {
		t.Fatal("Logger returned different instances for the same known subsystem tag")
	}
}

func TestLoggerRegistersUnknownSubsystem(t *testing.T) {
	l := Logger("TEST")
	if l == nil {
		t.Fatal("Logger returned nil for a new tag")
	}
	if Logger("TEST") != l {
		t.Fatal("Logger did not reuse the registered instance on second call")
	}
}

func TestSetLevelRejectsUnknownLevel(t *testing.T) {
	if err := SetLevel(SubsystemBlockchain, "not-a-level"); err == nil {
		t.Fatal("SetLevel should reject an unrecognized level string")
	}
}

func TestSetLevelAppliesToSubsystem(t *testing.T) {
	if err := SetLevel(SubsystemLedger, "debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if Logger(SubsystemLedger).Level() != slog.LevelDebug {
		t.Fatalf("level = %v, want Debug", Logger(SubsystemLedger).Level())
	}
}

func TestInitLogRotatorCreatesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "node.log")
	if err := InitLogRotator(logFile); err != nil {
		t.Fatalf("InitLogRotator: %v", err)
	}
	t.Cleanup(Close)

	log := Logger(SubsystemNetwork)
	log.Info("test message")
}

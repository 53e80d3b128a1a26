// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package nodeid

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateThenLoadRoundTrips(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "identity.key")

	generated, err := Generate(keyPath)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	loaded, err := Load(keyPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !generated.Public.Equal(loaded.Public) {
		t.Fatal("loaded public key does not match the generated one")
	}
	if generated.ID() != loaded.ID() {
		t.Fatal("loaded ID does not match the generated one")
	}
}

func TestGenerateRefusesToOverwrite(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "identity.key")
	if _, err := Generate(keyPath); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := Generate(keyPath); err != ErrKeyFileExists {
		t.Fatalf("second Generate = %v, want ErrKeyFileExists", err)
	}
}

func TestLoadOrGenerateGeneratesOnFirstCall(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "identity.key")

	first, err := LoadOrGenerate(keyPath)
	if err != nil {
		t.Fatalf("LoadOrGenerate (generate): %v", err)
	}
	second, err := LoadOrGenerate(keyPath)
	if err != nil {
		t.Fatalf("LoadOrGenerate (load): %v", err)
	}
	if !first.Public.Equal(second.Public) {
		t.Fatal("LoadOrGenerate did not return a consistent identity across calls")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "identity.key")
	if err := os.WriteFile(keyPath, []byte("not a pem file"), 0600); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := Load(keyPath); err == nil {
		t.Fatal("Load should reject a non-PEM file")
	}
}

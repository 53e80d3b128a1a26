// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package nodeid manages this node's long-term Ed25519 identity keypair,
// used to authenticate the peer handshake. It plays the role the
// teacher's certgen package plays for TLS listener certificates:
// generate once, persist to disk under restrictive permissions, and load
// back on every subsequent start rather than silently rotating.
package nodeid

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/ouroboros-go/node/hash"
)

// ErrKeyFileExists is returned by Generate when keyPath already exists, to
// avoid silently clobbering a node's existing identity (and therefore its
// reputation with peers that have already seen it).
var ErrKeyFileExists = errors.New("nodeid: identity key file already exists")

const pemBlockType = "OUROBOROS NODE IDENTITY KEY"

// Identity is this node's long-term handshake keypair.
type Identity struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// ID returns the node identifier peers key their connection/address maps
// by: the hash of the public key.
func (id Identity) ID() hash.Hash {
	return hash.Sum256(id.Public)
}

// Generate creates a fresh Identity and writes it to keyPath with 0600
// permissions, refusing to overwrite an existing file.
func Generate(keyPath string) (Identity, error) {
	if _, err := os.Stat(keyPath); err == nil {
		return Identity{}, ErrKeyFileExists
	} else if !os.IsNotExist(err) {
		return Identity{}, err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("nodeid: generating key: %w", err)
	}
	id := Identity{Public: pub, Private: priv}
	if err := writeKeyFile(keyPath, id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Load reads a previously generated Identity from keyPath.
func Load(keyPath string) (Identity, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return Identity{}, fmt.Errorf("nodeid: reading key file: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemBlockType {
		return Identity{}, fmt.Errorf("nodeid: %s does not contain a %s block", keyPath, pemBlockType)
	}
	if len(block.Bytes) != ed25519.PrivateKeySize {
		return Identity{}, fmt.Errorf("nodeid: %s contains a malformed private key", keyPath)
	}
	priv := ed25519.PrivateKey(block.Bytes)
	pub := priv.Public().(ed25519.PublicKey)
	return Identity{Public: pub, Private: priv}, nil
}

// LoadOrGenerate loads the identity at keyPath, generating and persisting
// a new one if the file does not yet exist — the common path for node
// startup.
func LoadOrGenerate(keyPath string) (Identity, error) {
	id, err := Load(keyPath)
	if err == nil {
		return id, nil
	}
	if !os.IsNotExist(errors.Unwrap(err)) {
		return Identity{}, err
	}
	return Generate(keyPath)
}

func writeKeyFile(keyPath string, id Identity) error {
	block := &pem.Block{Type: pemBlockType, Bytes: id.Private}
	f, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("nodeid: creating key file: %w", err)
	}
	defer f.Close()
	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("nodeid: writing key file: %w", err)
	}
	return nil
}

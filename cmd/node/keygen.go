// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/ouroboros-go/node/bech32"
	"github.com/ouroboros-go/node/hdkeychain"
	"github.com/ouroboros-go/node/internal/vrf"
)

// key type names accepted by --type, matching the node's private key
// taxonomy: a plain Ed25519 keypair, one derived through a BIP32-style
// extended key (ed25519bip32/ed25519extended share a derivation scheme
// here, differing only in which depth a caller derives to), and the
// Curve25519_2HashDH construction internal/vrf implements for leadership
// eligibility proofs.
const (
	keyTypeEd25519         = "ed25519"
	keyTypeEd25519Bip32    = "ed25519bip32"
	keyTypeEd25519Extended = "ed25519extended"
	keyTypeCurve25519DH    = "curve25519_2hashdh"
)

const (
	hrpEd25519SecretKey    = "ed25519_sk"
	hrpEd25519PublicKey    = "ed25519_pk"
	hrpCurve25519SecretKey = "curve25519_2hashdh_sk"
	hrpCurve25519PublicKey = "curve25519_2hashdh_pk"
)

// generatePrivKeyCmd implements "node generate-priv-key".
type generatePrivKeyCmd struct {
	Type string `long:"type" description:"ed25519, ed25519bip32, ed25519extended, or curve25519_2hashdh" required:"true"`
}

func (c *generatePrivKeyCmd) Execute(args []string) error {
	sk, hrp, err := generatePrivKey(c.Type)
	if err != nil {
		return err
	}
	encoded, err := encodeKey(hrp, sk)
	if err != nil {
		return err
	}
	fmt.Println(encoded)
	return nil
}

// encodeKey converts raw key bytes to their 5-bit bech32 grouping and
// encodes them under hrp.
func encodeKey(hrp string, raw []byte) (string, error) {
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("converting key to bech32 data: %w", err)
	}
	encoded, err := bech32.Encode(hrp, data)
	if err != nil {
		return "", fmt.Errorf("bech32 encoding key: %w", err)
	}
	return encoded, nil
}

// decodeKey reverses encodeKey: it decodes a bech32 string back to its
// human-readable part and raw key bytes.
func decodeKey(encoded string) (hrp string, raw []byte, err error) {
	hrp, data, err := bech32.Decode(encoded)
	if err != nil {
		return "", nil, err
	}
	raw, err = bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("converting bech32 data to key bytes: %w", err)
	}
	return hrp, raw, nil
}

// generatePubKeyCmd implements "node generate-pub-key", reading a
// bech32-encoded private key from its argument or, if absent, from
// stdin, and printing the corresponding public key.
type generatePubKeyCmd struct {
	Positional struct {
		PrivateKey string `positional-arg-name:"PRIVATE_KEY"`
	} `positional-args:"true"`
}

func (c *generatePubKeyCmd) Execute(args []string) error {
	encoded := c.Positional.PrivateKey
	if encoded == "" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("generate-pub-key: no private key on stdin")
		}
		encoded = strings.TrimSpace(scanner.Text())
	}

	hrp, raw, err := decodeKey(encoded)
	if err != nil {
		return fmt.Errorf("decoding private key: %w", err)
	}

	var pub ed25519.PublicKey
	var pubHRP string
	switch hrp {
	case hrpEd25519SecretKey:
		pub = ed25519.PrivateKey(raw).Public().(ed25519.PublicKey)
		pubHRP = hrpEd25519PublicKey
	case hrpCurve25519SecretKey:
		pub = vrf.PrivateKey(raw).Public().(ed25519.PublicKey)
		pubHRP = hrpCurve25519PublicKey
	default:
		return fmt.Errorf("generate-pub-key: unrecognized key type %q", hrp)
	}

	out, err := encodeKey(pubHRP, pub)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func generatePrivKey(keyType string) (sk []byte, hrp string, err error) {
	switch keyType {
	case keyTypeEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, "", err
		}
		return priv, hrpEd25519SecretKey, nil

	case keyTypeEd25519Bip32, keyTypeEd25519Extended:
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return nil, "", err
		}
		master, err := hdkeychain.NewMaster(seed)
		if err != nil {
			return nil, "", fmt.Errorf("deriving extended key: %w", err)
		}
		return master.SigningKey(), hrpEd25519SecretKey, nil

	case keyTypeCurve25519DH:
		_, priv, err := vrf.GenerateKey(rand.Reader)
		if err != nil {
			return nil, "", err
		}
		return priv, hrpCurve25519SecretKey, nil

	default:
		return nil, "", fmt.Errorf("generate-priv-key: unrecognized --type %q", keyType)
	}
}

func registerKeygenCommands(parser *flags.Parser) {
	parser.AddCommand("generate-priv-key", "Generate a private key",
		"Generate a random private key of the given --type and print it to stdout, bech32-encoded.",
		&generatePrivKeyCmd{})
	parser.AddCommand("generate-pub-key", "Derive a public key",
		"Read a bech32-encoded private key (argument, or stdin if omitted) and print its public key, bech32-encoded.",
		&generatePubKeyCmd{})
}

// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vrf

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestEvaluateVerifyRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	alpha := []byte("epoch=3,slot=17")
	output, proof, err := Evaluate(priv, alpha)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	gotOutput, ok := Verify(pub, alpha, proof)
	if !ok {
		t.Fatal("Verify() = false, want true")
	}
	if gotOutput != output {
		t.Fatalf("Verify output = %v, want %v", gotOutput, output)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	_, priv, err := GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	alpha := []byte("fixed input")
	out1, proof1, err := Evaluate(priv, alpha)
	if err != nil {
		t.Fatalf("Evaluate (1): %v", err)
	}
	out2, proof2, err := Evaluate(priv, alpha)
	if err != nil {
		t.Fatalf("Evaluate (2): %v", err)
	}
	if out1 != out2 {
		t.Fatal("Evaluate produced different outputs for the same input")
	}
	if proof1.Gamma != proof2.Gamma {
		t.Fatal("Evaluate produced different gamma for the same input")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv, _ := GenerateKey(rand.Reader)
	otherPub, _, _ := GenerateKey(rand.Reader)

	alpha := []byte("input")
	_, proof, err := Evaluate(priv, alpha)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if _, ok := Verify(otherPub, alpha, proof); ok {
		t.Fatal("Verify() = true with the wrong public key, want false")
	}
}

func TestVerifyRejectsTamperedInput(t *testing.T) {
	pub, priv, _ := GenerateKey(rand.Reader)

	alpha := []byte("input")
	_, proof, err := Evaluate(priv, alpha)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if _, ok := Verify(pub, []byte("different input"), proof); ok {
		t.Fatal("Verify() = true for a tampered input, want false")
	}
}

func TestProofBytesRoundTrip(t *testing.T) {
	_, priv, _ := GenerateKey(rand.Reader)
	_, proof, err := Evaluate(priv, []byte("x"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	encoded := proof.Bytes()
	decoded, err := ProofFromBytes(encoded)
	if err != nil {
		t.Fatalf("ProofFromBytes: %v", err)
	}
	if decoded.Gamma != proof.Gamma || !bytes.Equal(decoded.Signature, proof.Signature) {
		t.Fatal("ProofFromBytes did not round-trip")
	}
}

func TestOutputIsWithinUnitInterval(t *testing.T) {
	_, priv, _ := GenerateKey(rand.Reader)
	output, _, err := Evaluate(priv, []byte("sample"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	v := Output(output)
	if v < 0 || v >= 1 {
		t.Fatalf("Output() = %v, want value in [0,1)", v)
	}
}

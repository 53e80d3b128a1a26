// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"crypto/ed25519"
	"testing"
)

func TestCommHandleNotSubscribedDropsItem(t *testing.T) {
	h := NewCommHandle[int]()
	if err := h.Send(1); err != ErrNotSubscribed {
		t.Fatalf("err = %v, want ErrNotSubscribed", err)
	}
}

func TestCommHandlePendingCoalesces(t *testing.T) {
	h := NewCommHandle[int]()
	h.Claim()
	if err := h.Send(1); err != nil {
		t.Fatalf("Send(1): %v", err)
	}
	if err := h.Send(2); err != nil {
		t.Fatalf("Send(2): %v", err)
	}

	ch := h.Subscribe(4)
	got := <-ch
	if got != 2 {
		t.Fatalf("got = %d, want 2 (coalesced)", got)
	}
}

func TestCommHandleSubscribedOverflowsWhenFull(t *testing.T) {
	h := NewCommHandle[int]()
	ch := h.Subscribe(1)
	if err := h.Send(1); err != nil {
		t.Fatalf("Send(1): %v", err)
	}
	if err := h.Send(2); err != ErrStreamOverflow {
		t.Fatalf("err = %v, want ErrStreamOverflow", err)
	}
	if <-ch != 1 {
		t.Fatal("channel did not deliver the first item")
	}
}

func TestCommHandleClosedReturnsSubscriptionClosed(t *testing.T) {
	h := NewCommHandle[int]()
	h.Subscribe(1)
	h.Close()
	if err := h.Send(1); err != ErrNotSubscribed {
		t.Fatalf("err = %v, want ErrNotSubscribed after Close", err)
	}
}

func TestTakeOverForwardsPendingItemOnce(t *testing.T) {
	old := NewCommHandle[int]()
	old.Claim()
	_ = old.Send(99)

	fresh := NewCommHandle[int]()
	ch := fresh.Subscribe(4)
	fresh.TakeOverFrom(old)

	if got := <-ch; got != 99 {
		t.Fatalf("got = %d, want 99", got)
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	nonce, err := ServerNonce()
	if err != nil {
		t.Fatalf("ServerNonce: %v", err)
	}
	sig := ClientHandshakeResponse(priv, nonce)
	if err := VerifyHandshake(pub, nonce, sig); err != nil {
		t.Fatalf("VerifyHandshake: %v", err)
	}
}

func TestHandshakeRejectsWrongSignature(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	_, otherPriv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	nonce, _ := ServerNonce()
	sig := ClientHandshakeResponse(otherPriv, nonce)
	if err := VerifyHandshake(pub, nonce, sig); err != ErrNonceMismatch {
		t.Fatalf("err = %v, want ErrNonceMismatch", err)
	}
}

// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/peer"
)

func testPeer(t *testing.T, seed byte, dir peer.Direction) *peer.Peer {
	t.Helper()
	var id hash.Hash
	id[0] = seed
	return peer.New(id, dir)
}

func TestAddRejectsDuplicateNodeID(t *testing.T) {
	m := New(Config{MaxInbound: 4, MaxOutbound: 4})
	p := testPeer(t, 1, peer.DirectionClient)
	if err := m.Add(p); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := m.Add(p); err != ErrAlreadyConnected {
		t.Fatalf("err = %v, want ErrAlreadyConnected", err)
	}
}

func TestAddEvictsOldestInactiveClientWhenFull(t *testing.T) {
	m := New(Config{MaxInbound: 0, MaxOutbound: 2})

	first := testPeer(t, 1, peer.DirectionClient)
	if err := m.Add(first); err != nil {
		t.Fatalf("Add(first): %v", err)
	}
	time.Sleep(time.Millisecond)
	second := testPeer(t, 2, peer.DirectionClient)
	if err := m.Add(second); err != nil {
		t.Fatalf("Add(second): %v", err)
	}

	third := testPeer(t, 3, peer.DirectionClient)
	if err := m.Add(third); err != nil {
		t.Fatalf("Add(third) should evict the oldest entry: %v", err)
	}

	if _, ok := m.Get(first.NodeID); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := m.Get(second.NodeID); !ok {
		t.Fatal("second entry should still be present")
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestAddFailsWhenNoClientEntryCanBeEvicted(t *testing.T) {
	m := New(Config{MaxInbound: 1, MaxOutbound: 0})
	serverPeer := testPeer(t, 1, peer.DirectionServer)
	if err := m.Add(serverPeer); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := m.Add(testPeer(t, 2, peer.DirectionServer)); err != ErrAtCapacity {
		t.Fatalf("err = %v, want ErrAtCapacity", err)
	}
}

type stubDialer struct {
	failuresBeforeSuccess int
	attempts              int
}

func (d *stubDialer) Dial(network, addr string) (net.Conn, error) {
	d.attempts++
	if d.attempts <= d.failuresBeforeSuccess {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	server.Close()
	return client, nil
}

func TestDialWithBackoffRetriesUntilSuccess(t *testing.T) {
	dialer := &stubDialer{failuresBeforeSuccess: 2}
	m := New(Config{Dial: dialer, RetryWait: time.Millisecond, MaxRetryWait: 4 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	conn, err := m.DialWithBackoff(ctx, "peer.example:24201")
	if err != nil {
		t.Fatalf("DialWithBackoff: %v", err)
	}
	conn.Close()
	if dialer.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", dialer.attempts)
	}
}

func TestDialWithBackoffRespectsContextCancellation(t *testing.T) {
	dialer := &stubDialer{failuresBeforeSuccess: 1000}
	m := New(Config{Dial: dialer, RetryWait: 50 * time.Millisecond, MaxRetryWait: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := m.DialWithBackoff(ctx, "peer.example:24201"); err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

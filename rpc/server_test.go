// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ouroboros-go/node/blockchain"
	"github.com/ouroboros-go/node/blockchain/storage"
	"github.com/ouroboros-go/node/connmgr"
	"github.com/ouroboros-go/node/intercom"
	"github.com/ouroboros-go/node/ledger"
	"github.com/ouroboros-go/node/wire"
)

func newTestServer(t *testing.T) (*Server, chan intercom.TransactionMsg) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "chain.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	genesisState := ledger.NewMemState(ledger.Settings{
		Consensus:     ledger.ConsensusBFT,
		SlotsPerEpoch: 100,
	}, nil, nil)
	block0 := &wire.Block{Header: wire.Header{ChainLength: 0}}
	block0.Header.ContentHash = block0.ComputeContentHash()

	chain, err := blockchain.New(store, block0, genesisState, wire.TimeFrame{})
	if err != nil {
		t.Fatalf("blockchain.New: %v", err)
	}

	conns := connmgr.New(connmgr.Config{MaxInbound: 4, MaxOutbound: 4})
	fragments := make(chan intercom.TransactionMsg, 4)

	s := New(Config{Chain: chain, Conns: conns, Fragments: fragments})
	return s, fragments
}

func postRPC(t *testing.T, s *Server, method string, params interface{}) rpcResponse {
	t.Helper()
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	body, err := json.Marshal(rpcRequest{ID: 1, Method: method, Params: paramsJSON})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)

	var resp rpcResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestHandleRPCTipReturnsGenesis(t *testing.T) {
	s, _ := newTestServer(t)
	resp := postRPC(t, s, "tip", struct{}{})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleRPCUnknownMethod(t *testing.T) {
	s, _ := newTestServer(t)
	resp := postRPC(t, s, "nonexistent", struct{}{})
	if resp.Error == nil || resp.Error.Code != errCodeMethodNotFound {
		t.Fatalf("resp.Error = %+v, want errCodeMethodNotFound", resp.Error)
	}
}

func TestHandleRPCSendFragmentDecodesAndForwards(t *testing.T) {
	s, fragments := newTestServer(t)

	fragment := &wire.Fragment{Kind: wire.FragmentTransfer, Payload: []byte{1, 2, 3}}
	var buf bytes.Buffer
	if err := fragment.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	resp := postRPC(t, s, "sendfragment", struct {
		HexFragment string `json:"HexFragment"`
	}{HexFragment: hex.EncodeToString(buf.Bytes())})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	select {
	case msg := <-fragments:
		send, ok := msg.(intercom.SendTransaction)
		if !ok || len(send.Fragments) != 1 {
			t.Fatalf("msg = %#v, want a one-fragment SendTransaction", msg)
		}
	default:
		t.Fatal("expected a SendTransaction to be forwarded")
	}
}

func TestHandleRPCPeersReportsCount(t *testing.T) {
	s, _ := newTestServer(t)
	resp := postRPC(t, s, "peers", struct{}{})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

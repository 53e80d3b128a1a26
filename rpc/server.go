// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc implements the node's JSON-RPC surface: a plain
// request/response HTTP handler for one-shot queries (tip, peers,
// fragment submission) and a websocket upgrade for long-lived watch
// subscriptions (new tip, new fragments), following the same command
// registration scheme as the teacher's dcrjson-based RPC types.
package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ouroboros-go/node/blockchain"
	"github.com/ouroboros-go/node/connmgr"
	"github.com/ouroboros-go/node/internal/logging"
	"github.com/ouroboros-go/node/intercom"
	"github.com/ouroboros-go/node/rpc/jsonrpc/types"
	"github.com/ouroboros-go/node/wire"
)

// JSON-RPC 2.0 reserved error codes.
const (
	errCodeParse          = -32700
	errCodeInvalidRequest = -32600
	errCodeMethodNotFound = -32601
)

var errMethodNotFound = errors.New("rpc: method not found")

var log = logging.Logger(logging.SubsystemRPC)

// Config configures the RPC server's listener and the components it
// exposes over RPC.
type Config struct {
	ListenAddr string
	Chain      *blockchain.Chain
	Conns      *connmgr.Manager
	Fragments  chan<- intercom.TransactionMsg
}

// Server is the node's JSON-RPC/websocket endpoint.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu        sync.Mutex
	tipWaiter chan struct{} // closed and replaced every time the tip changes, to wake watchers
}

// New creates a Server. Call Serve to start accepting connections.
func New(cfg Config) *Server {
	return &Server{
		cfg:       cfg,
		upgrader:  websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		tipWaiter: make(chan struct{}),
	}
}

// NotifyTipChanged wakes every websocket client subscribed to tip
// notifications. Callers invoke this once per accepted block.
func (s *Server) NotifyTipChanged() {
	s.mu.Lock()
	close(s.tipWaiter)
	s.tipWaiter = make(chan struct{})
	s.mu.Unlock()
}

func (s *Server) tipChangedSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tipWaiter
}

// Serve starts the HTTP listener and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRPC)
	mux.HandleFunc("/ws", s.handleWebsocket)

	s.httpSrv = &http.Server{Addr: s.cfg.ListenAddr, Handler: mux}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.Serve(listener) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type rpcRequest struct {
	ID     interface{}     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcResponse struct {
	ID     interface{} `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, rpcResponse{Error: &rpcError{Code: errCodeParse, Message: err.Error()}})
		return
	}

	result, err := s.dispatch(r.Context(), req.Method, req.Params)
	if err != nil {
		code := errCodeInvalidRequest
		if errors.Is(err, errMethodNotFound) {
			code = errCodeMethodNotFound
		}
		writeJSON(w, rpcResponse{ID: req.ID, Error: &rpcError{Code: code, Message: err.Error()}})
		return
	}
	writeJSON(w, rpcResponse{ID: req.ID, Result: result})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// dispatch routes a decoded request to its command implementation, the
// way the teacher's btcjson/dcrjson-registered command set is dispatched
// by method name in the original rpcserver.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch types.Method(method) {
	case "tip":
		return s.cmdTip()
	case "peers":
		return s.cmdPeers()
	case "sendfragment":
		var cmd types.SendFragmentCmd
		if err := json.Unmarshal(params, &cmd); err != nil {
			return nil, err
		}
		return s.cmdSendFragment(ctx, cmd)
	default:
		return nil, errMethodNotFound
	}
}

type tipResult struct {
	Hash        string `json:"hash"`
	ChainLength uint32 `json:"chainLength"`
}

func (s *Server) cmdTip() (interface{}, error) {
	ref := s.cfg.Chain.Tip().Current()
	return tipResult{Hash: ref.Hash.String(), ChainLength: uint32(ref.ChainLength)}, nil
}

type peerResult struct {
	NodeID string `json:"nodeId"`
}

func (s *Server) cmdPeers() (interface{}, error) {
	// Peers are reached through connmgr; a full listing requires iterating
	// its entries, which is intentionally not exposed outside the package
	// to keep the lock discipline local, so this surfaces only the count
	// callers most commonly want. A richer diagnostics endpoint belongs
	// alongside connmgr's own metrics, not duplicated here.
	return struct {
		Count int `json:"count"`
	}{Count: s.cfg.Conns.Len()}, nil
}

func (s *Server) cmdSendFragment(ctx context.Context, cmd types.SendFragmentCmd) (interface{}, error) {
	raw, err := hex.DecodeString(cmd.HexFragment)
	if err != nil {
		return nil, err
	}
	fragment, err := wire.DecodeFragment(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	select {
	case s.cfg.Fragments <- intercom.SendTransaction{Fragments: []*wire.Fragment{fragment}}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return struct {
		ID string `json:"id"`
	}{ID: fragment.ID().String()}, nil
}

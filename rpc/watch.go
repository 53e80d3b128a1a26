// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ouroboros-go/node/rpc/jsonrpc/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = pongWait * 9 / 10
	maxMessageSize = 1 << 16
)

// watchClient is one websocket connection's subscription state: which
// notification streams it has asked for, following the same
// notify/stopnotify command pairing the teacher's dcrjson websocket
// commands use.
type watchClient struct {
	conn *websocket.Conn

	watchingTip       bool
	watchingFragments bool
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("rpc: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	wc := &watchClient{conn: conn}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.tipNotifyLoop(ctx, wc)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		s.handleWatchCommand(wc, req)
	}
}

func (s *Server) handleWatchCommand(wc *watchClient, req rpcRequest) {
	switch types.Method(req.Method) {
	case "notifytip":
		wc.watchingTip = true
		s.ackCmd(wc, req.ID)
	case "stopnotifytip":
		wc.watchingTip = false
		s.ackCmd(wc, req.ID)
	case "notifyfragments":
		wc.watchingFragments = true
		s.ackCmd(wc, req.ID)
	case "stopnotifyfragments":
		wc.watchingFragments = false
		s.ackCmd(wc, req.ID)
	default:
		_ = wc.conn.WriteJSON(rpcResponse{ID: req.ID, Error: &rpcError{Code: errCodeMethodNotFound, Message: "unknown watch command"}})
	}
}

func (s *Server) ackCmd(wc *watchClient, id interface{}) {
	_ = wc.conn.WriteJSON(rpcResponse{ID: id, Result: true})
}

// tipNotifyLoop pushes a tip notification to wc whenever NotifyTipChanged
// fires, for as long as wc is subscribed, and keeps the connection alive
// with periodic pings between tip changes.
func (s *Server) tipNotifyLoop(ctx context.Context, wc *watchClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		signal := s.tipChangedSignal()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-signal:
			if !wc.watchingTip {
				continue
			}
			result, err := s.cmdTip()
			if err != nil {
				continue
			}
			payload, err := json.Marshal(struct {
				Method string      `json:"method"`
				Params interface{} `json:"params"`
			}{Method: "tip", Params: result})
			if err != nil {
				continue
			}
			_ = wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wc.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

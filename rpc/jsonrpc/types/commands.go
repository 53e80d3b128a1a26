// Copyright (c) 2014-2015 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package types defines the JSON-RPC command and notification types this
// node's RPC server accepts, using the same marshal/unmarshal-by-
// reflection registration scheme as the teacher's dcrjson package.
package types

import "github.com/decred/dcrd/dcrjson/v4"

// Method identifies a registered JSON-RPC command or notification name.
type Method string

// AuthenticateCmd defines the authenticate JSON-RPC command, required
// before a websocket client may issue any watch command.
type AuthenticateCmd struct {
	Username   string
	Passphrase string
}

// NewAuthenticateCmd returns a new instance which can be used to issue an
// authenticate JSON-RPC command.
func NewAuthenticateCmd(username, passphrase string) *AuthenticateCmd {
	return &AuthenticateCmd{
		Username:   username,
		Passphrase: passphrase,
	}
}

// TipCmd defines the tip JSON-RPC command, returning the node's current
// best header.
type TipCmd struct{}

// NewTipCmd returns a new instance which can be used to issue a tip
// JSON-RPC command.
func NewTipCmd() *TipCmd { return &TipCmd{} }

// PeersCmd defines the peers JSON-RPC command, returning the connected
// peer set and their stats.
type PeersCmd struct{}

// NewPeersCmd returns a new instance which can be used to issue a peers
// JSON-RPC command.
func NewPeersCmd() *PeersCmd { return &PeersCmd{} }

// SendFragmentCmd defines the sendfragment JSON-RPC command, submitting a
// hex-encoded wire-encoded fragment to the node's fragment pool.
type SendFragmentCmd struct {
	HexFragment string
}

// NewSendFragmentCmd returns a new instance which can be used to issue a
// sendfragment JSON-RPC command.
func NewSendFragmentCmd(hexFragment string) *SendFragmentCmd {
	return &SendFragmentCmd{HexFragment: hexFragment}
}

// GetHeadersCmd defines the getheaders JSON-RPC command, returning the
// header chain from one of From up to and including To.
type GetHeadersCmd struct {
	From []string
	To   string
}

// NewGetHeadersCmd returns a new instance which can be used to issue a
// getheaders JSON-RPC command.
func NewGetHeadersCmd(from []string, to string) *GetHeadersCmd {
	return &GetHeadersCmd{From: from, To: to}
}

// NotifyTipCmd defines the notifytip JSON-RPC command. A websocket client
// issuing this receives a tip notification each time the node's best
// header changes.
type NotifyTipCmd struct{}

// NewNotifyTipCmd returns a new instance which can be used to issue a
// notifytip JSON-RPC command.
func NewNotifyTipCmd() *NotifyTipCmd { return &NotifyTipCmd{} }

// StopNotifyTipCmd defines the stopnotifytip JSON-RPC command.
type StopNotifyTipCmd struct{}

// NewStopNotifyTipCmd returns a new instance which can be used to issue a
// stopnotifytip JSON-RPC command.
func NewStopNotifyTipCmd() *StopNotifyTipCmd { return &StopNotifyTipCmd{} }

// NotifyFragmentsCmd defines the notifyfragments JSON-RPC command. A
// websocket client issuing this receives a notification each time a new
// fragment is accepted into the pool.
type NotifyFragmentsCmd struct {
	Verbose *bool `jsonrpcdefault:"false"`
}

// NewNotifyFragmentsCmd returns a new instance which can be used to issue
// a notifyfragments JSON-RPC command.
//
// The parameters which are pointers indicate they are optional. Passing
// nil for optional parameters will use the default value.
func NewNotifyFragmentsCmd(verbose *bool) *NotifyFragmentsCmd {
	return &NotifyFragmentsCmd{Verbose: verbose}
}

// StopNotifyFragmentsCmd defines the stopnotifyfragments JSON-RPC
// command.
type StopNotifyFragmentsCmd struct{}

// NewStopNotifyFragmentsCmd returns a new instance which can be used to
// issue a stopnotifyfragments JSON-RPC command.
func NewStopNotifyFragmentsCmd() *StopNotifyFragmentsCmd { return &StopNotifyFragmentsCmd{} }

// SessionCmd defines the session JSON-RPC command.
type SessionCmd struct{}

// NewSessionCmd returns a new instance which can be used to issue a
// session JSON-RPC command.
func NewSessionCmd() *SessionCmd { return &SessionCmd{} }

func init() {
	flags := dcrjson.UFWebsocketOnly

	dcrjson.MustRegister(Method("authenticate"), (*AuthenticateCmd)(nil), flags)
	dcrjson.MustRegister(Method("tip"), (*TipCmd)(nil), dcrjson.UsageFlag(0))
	dcrjson.MustRegister(Method("peers"), (*PeersCmd)(nil), dcrjson.UsageFlag(0))
	dcrjson.MustRegister(Method("sendfragment"), (*SendFragmentCmd)(nil), dcrjson.UsageFlag(0))
	dcrjson.MustRegister(Method("getheaders"), (*GetHeadersCmd)(nil), dcrjson.UsageFlag(0))
	dcrjson.MustRegister(Method("notifytip"), (*NotifyTipCmd)(nil), flags)
	dcrjson.MustRegister(Method("stopnotifytip"), (*StopNotifyTipCmd)(nil), flags)
	dcrjson.MustRegister(Method("notifyfragments"), (*NotifyFragmentsCmd)(nil), flags)
	dcrjson.MustRegister(Method("stopnotifyfragments"), (*StopNotifyFragmentsCmd)(nil), flags)
	dcrjson.MustRegister(Method("session"), (*SessionCmd)(nil), flags)
}

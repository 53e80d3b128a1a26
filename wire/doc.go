// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the block, header, and fragment data structures
// exchanged between peers and persisted to storage, along with their binary
// encodings. It does not specify the framing of the underlying RPC
// transport; it only defines the logical message shapes layered over it.
package wire

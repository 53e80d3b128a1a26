// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package kes implements the binary-tree sum composition of Ed25519 key
// evolving signatures (KES).
//
// A depth-d scheme is a balanced binary tree of Ed25519 keypairs at its
// leaves, indexed by period t in [0, 2^d). The scheme public key is the
// Merkle root of the tree, where internal nodes are SHA-256(left_pk ||
// right_pk). A signature at period t carries an Ed25519 signature under the
// t-th leaf plus the sibling public keys on the path from that leaf to the
// root; verification reconstructs the root and compares it to the scheme
// public key. The secret key can be irreversibly advanced from period t to
// t+1 with Update; a compromise of the secret at period t does not permit
// forging signatures for any period less than t.
package kes

// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/wire"
)

func encodeBlock(w io.Writer, block *wire.Block) error {
	return block.Encode(w)
}

func decodeBlock(data []byte) (*wire.Block, error) {
	return wire.DecodeBlock(bytes.NewReader(data))
}

// encodeBlockInfo serializes a BlockInfo as:
// parent_hash (32B) || chain_length (4B) || has_back_link (1B) ||
// [back_link_hash (32B) || back_link_length (4B)].
func encodeBlockInfo(info BlockInfo) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(info.ParentHash[:])
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(info.ChainLength))
	buf.Write(lenBuf[:])
	if info.HasBackLink {
		buf.WriteByte(1)
		buf.Write(info.BackLinkHash[:])
		binary.BigEndian.PutUint32(lenBuf[:], uint32(info.BackLinkLength))
		buf.Write(lenBuf[:])
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes(), nil
}

func decodeBlockInfo(data []byte) (*BlockInfo, error) {
	r := bytes.NewReader(data)
	parentHash, err := readHash(r)
	if err != nil {
		return nil, err
	}
	chainLength, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, err
	}
	info := &BlockInfo{ParentHash: parentHash, ChainLength: wire.ChainLength(chainLength)}
	if flag[0] == 1 {
		backHash, err := readHash(r)
		if err != nil {
			return nil, err
		}
		backLength, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		info.BackLinkHash = backHash
		info.BackLinkLength = wire.ChainLength(backLength)
		info.HasBackLink = true
	}
	return info, nil
}

func readHash(r io.Reader) (hash.Hash, error) {
	var h hash.Hash
	_, err := io.ReadFull(r, h[:])
	return h, err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

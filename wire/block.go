// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/ouroboros-go/node/hash"
)

// Block is a header plus its ordered fragment contents.
type Block struct {
	Header   Header
	Contents []*Fragment
}

// Hash returns the block's identifier, equal to its header's hash.
func (b *Block) Hash() hash.Hash {
	return b.Header.Hash()
}

// ComputeContentHash recomputes the hash committing to Contents, the value
// that belongs in Header.ContentHash before the header is hashed or signed.
func (b *Block) ComputeContentHash() hash.Hash {
	var buf bytes.Buffer
	for _, f := range b.Contents {
		_ = f.Encode(&buf)
	}
	return hash.Sum256(buf.Bytes())
}

// FragmentIDs returns the content-addressed IDs of every fragment in the
// block, in order.
func (b *Block) FragmentIDs() []FragmentID {
	ids := make([]FragmentID, len(b.Contents))
	for i, f := range b.Contents {
		ids[i] = f.ID()
	}
	return ids
}

// Encode writes the block's wire representation (header, then a
// length-prefixed, length-counted sequence of fragments) to w.
func (b *Block) Encode(w io.Writer) error {
	if err := b.Header.Encode(w); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(b.Contents))); err != nil {
		return err
	}
	for _, f := range b.Contents {
		if err := f.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeBlock reads a block previously written by Encode.
func DecodeBlock(r io.Reader) (*Block, error) {
	header, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	contents := make([]*Fragment, n)
	for i := range contents {
		f, err := DecodeFragment(r)
		if err != nil {
			return nil, err
		}
		contents[i] = f
	}
	return &Block{Header: *header, Contents: contents}, nil
}

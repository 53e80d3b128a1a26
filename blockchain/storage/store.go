// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage persists blocks and chain metadata to a leveldb
// database, and answers ancestor queries in O(log n) via a skip-list of
// back-links rather than walking parent pointers one block at a time.
package storage

import (
	"bytes"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/ouroboros-go/node/hash"
	"github.com/ouroboros-go/node/internal/logging"
	"github.com/ouroboros-go/node/wire"
)

var log = logging.Logger(logging.SubsystemStorage)

// ErrBlockNotFound is returned when a requested block or its metadata is
// absent from the store.
var ErrBlockNotFound = errors.New("storage: block not found")

// ErrTagNotFound is returned when a requested tag has never been set.
var ErrTagNotFound = errors.New("storage: tag not found")

const (
	prefixBlock     = 'b'
	prefixBlockInfo = 'i'
	prefixTag       = 't'
)

// BlockInfo is the metadata persisted alongside each block, sufficient to
// answer ancestor queries without decoding the block itself.
type BlockInfo struct {
	ParentHash    hash.Hash
	ChainLength   wire.ChainLength
	BackLinkHash  hash.Hash
	BackLinkLength wire.ChainLength
	HasBackLink   bool
}

// Store is a leveldb-backed block store.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a leveldb database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	log.Infof("opened block store at %s", path)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	log.Info("closing block store")
	return s.db.Close()
}

func blockKey(h hash.Hash) []byte     { return append([]byte{prefixBlock}, h[:]...) }
func blockInfoKey(h hash.Hash) []byte { return append([]byte{prefixBlockInfo}, h[:]...) }
func tagKey(name string) []byte       { return append([]byte{prefixTag}, []byte(name)...) }

// backLinkDistance implements the skip-list spacing rule: a block at
// chain length h carries one extra back-link, h mod 32 levels "tall",
// jumping back (1<<(h mod 32))-1 blocks. Cycling the level through
// 0..31 as the chain grows means any two heights are connected by
// O(log n) hops through a mix of parent links (distance 1) and
// back-links (distance up to 2^31-1), the same trick Bitcoin Core's
// CBlockIndex::pskip and its relatives use under a different formula.
func backLinkDistance(h wire.ChainLength) uint32 {
	if h == 0 {
		return 0
	}
	order := uint32(h) % 32
	return (uint32(1) << order) - 1
}

// PutBlock persists the encoded block and its derived BlockInfo. parent
// may be nil only for block0.
func (s *Store) PutBlock(block *wire.Block, parent *BlockInfo) error {
	var buf bytes.Buffer
	if err := encodeBlock(&buf, block); err != nil {
		return err
	}

	h := block.Hash()
	info := BlockInfo{
		ParentHash:  block.Header.ParentHash,
		ChainLength: block.Header.ChainLength,
	}

	if dist := backLinkDistance(block.Header.ChainLength); dist > 0 && uint32(block.Header.ChainLength) >= dist {
		targetLength := block.Header.ChainLength - wire.ChainLength(dist)
		backHash, ok, err := s.findAncestorHash(block.Header.ParentHash, parent, targetLength)
		if err != nil {
			return err
		}
		if ok {
			info.BackLinkHash = backHash
			info.BackLinkLength = targetLength
			info.HasBackLink = true
		}
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(h), buf.Bytes())
	infoBytes, err := encodeBlockInfo(info)
	if err != nil {
		return err
	}
	batch.Put(blockInfoKey(h), infoBytes)
	return s.db.Write(batch, nil)
}

// findAncestorHash walks from startHash (whose BlockInfo is already known
// as startInfo, when non-nil, to save a lookup) back to targetLength
// using the skip-list jump rule.
func (s *Store) findAncestorHash(startHash hash.Hash, startInfo *BlockInfo, targetLength wire.ChainLength) (hash.Hash, bool, error) {
	cur := startHash
	info := startInfo
	for {
		if info == nil {
			var err error
			info, err = s.GetBlockInfo(cur)
			if err != nil {
				if errors.Is(err, ErrBlockNotFound) {
					return hash.Hash{}, false, nil
				}
				return hash.Hash{}, false, err
			}
		}
		if info.ChainLength == targetLength {
			return cur, true, nil
		}
		if info.ChainLength < targetLength {
			return hash.Hash{}, false, nil
		}
		if info.HasBackLink && info.BackLinkLength >= targetLength {
			cur = info.BackLinkHash
			info = nil
			continue
		}
		cur = info.ParentHash
		info = nil
	}
}

// GetNthAncestor returns the ancestor of the block identified by h that is
// n blocks back (n==0 returns h itself), using the stored skip-list
// back-links for O(log n) hops instead of O(n) parent-pointer walks.
func (s *Store) GetNthAncestor(h hash.Hash, n uint32) (hash.Hash, error) {
	info, err := s.GetBlockInfo(h)
	if err != nil {
		return hash.Hash{}, err
	}
	if uint32(info.ChainLength) < n {
		return hash.Hash{}, ErrBlockNotFound
	}
	target := info.ChainLength - wire.ChainLength(n)
	ancestorHash, ok, err := s.findAncestorHash(h, info, target)
	if err != nil {
		return hash.Hash{}, err
	}
	if !ok {
		return hash.Hash{}, ErrBlockNotFound
	}
	return ancestorHash, nil
}

// GetBlock decodes and returns the block stored under h.
func (s *Store) GetBlock(h hash.Hash) (*wire.Block, error) {
	data, err := s.db.Get(blockKey(h), nil)
	if err != nil {
		if errors.Is(err, leveldberrors.ErrNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return decodeBlock(data)
}

// GetBlockInfo returns the metadata stored under h.
func (s *Store) GetBlockInfo(h hash.Hash) (*BlockInfo, error) {
	data, err := s.db.Get(blockInfoKey(h), nil)
	if err != nil {
		if errors.Is(err, leveldberrors.ErrNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return decodeBlockInfo(data)
}

// PutTag records name as pointing at h, overwriting any previous value.
// Tags are how the node durably remembers its tip and other named
// reference points across restarts.
func (s *Store) PutTag(name string, h hash.Hash) error {
	return s.db.Put(tagKey(name), h[:], nil)
}

// GetTag returns the hash last recorded under name.
func (s *Store) GetTag(name string) (hash.Hash, error) {
	data, err := s.db.Get(tagKey(name), nil)
	if err != nil {
		if errors.Is(err, leveldberrors.ErrNotFound) {
			return hash.Hash{}, ErrTagNotFound
		}
		return hash.Hash{}, err
	}
	return hash.NewHash(data)
}

// IterateFromTo calls fn for every block from the one identified by from
// up to and including to, walking the chain forward via each block's
// parent-of relationship resolved through the ancestor index. from must
// be an ancestor of to. Iteration stops early if fn returns an error,
// which IterateFromTo then returns.
func (s *Store) IterateFromTo(from, to hash.Hash, fn func(h hash.Hash) error) error {
	toInfo, err := s.GetBlockInfo(to)
	if err != nil {
		return err
	}
	fromInfo, err := s.GetBlockInfo(from)
	if err != nil {
		return err
	}
	if fromInfo.ChainLength > toInfo.ChainLength {
		return errors.New("storage: from is not an ancestor of to")
	}

	span := uint32(toInfo.ChainLength - fromInfo.ChainLength)
	chain := make([]hash.Hash, span+1)
	cur := to
	for i := int(span); i >= 0; i-- {
		chain[i] = cur
		if i == 0 {
			break
		}
		info, err := s.GetBlockInfo(cur)
		if err != nil {
			return err
		}
		cur = info.ParentHash
	}
	if chain[0] != from {
		return errors.New("storage: from is not an ancestor of to")
	}
	for _, h := range chain {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ouroboros-go/node/hash"
)

// MaxFragmentPayloadSize bounds an individual fragment's canonical payload,
// guarding decoders against a hostile or corrupt length prefix.
const MaxFragmentPayloadSize = 256 * 1024

// messageError formats a decode/encode failure the way the rest of this
// package's callers expect: function name plus a human description.
func messageError(fn, desc string) error {
	return fmt.Errorf("wire: %s: %s", fn, desc)
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func writeHash(w io.Writer, h hash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

func readHash(r io.Reader) (hash.Hash, error) {
	var h hash.Hash
	_, err := io.ReadFull(r, h[:])
	return h, err
}

func writeVarBytes(w io.Writer, maxSize int, b []byte) error {
	if len(b) > maxSize {
		return messageError("writeVarBytes", fmt.Sprintf("payload size %d exceeds max %d", len(b), maxSize))
	}
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readVarBytes(r io.Reader, maxSize int) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if int(n) > maxSize {
		return nil, messageError("readVarBytes", fmt.Sprintf("payload size %d exceeds max %d", n, maxSize))
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Copyright (c) 2017-2019 The btcsuite developers
// Copyright (c) 2019-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bech32 implements the BIP-173 bech32 encoding used to render
// pool IDs, committee IDs, and other node-generated identifiers as
// human-readable, checksum-protected strings, in place of the teacher's
// base58 address family.
package bech32

import (
	"errors"
	"fmt"
	"strings"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// ErrInvalidCharacter is returned by Decode when the data part contains a
// character outside the bech32 charset.
var ErrInvalidCharacter = errors.New("bech32: invalid character")

// ErrInvalidChecksum is returned by Decode when the checksum does not
// verify against the decoded human-readable part and data.
var ErrInvalidChecksum = errors.New("bech32: invalid checksum")

// ErrMixedCase is returned by Decode when the input mixes upper and
// lower case letters, which bech32 forbids.
var ErrMixedCase = errors.New("bech32: string is mixed case")

// ErrInvalidSeparatorIndex is returned by Decode when the "1" separator
// between the human-readable part and the data part is missing or
// misplaced.
var ErrInvalidSeparatorIndex = errors.New("bech32: invalid separator index")

var charsetIndex = func() map[byte]byte {
	m := make(map[byte]byte, len(charset))
	for i := 0; i < len(charset); i++ {
		m[charset[i]] = byte(i)
	}
	return m
}()

// Encode encodes data (a slice of 5-bit groups, as produced by
// ConvertBits) under human-readable part hrp into a bech32 string, e.g.
// "pool1qyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqyqszqgpqc8gma6".
func Encode(hrp string, data []byte) (string, error) {
	if strings.ToLower(hrp) != hrp && strings.ToUpper(hrp) != hrp {
		return "", ErrMixedCase
	}
	hrp = strings.ToLower(hrp)

	checksum := createChecksum(hrp, data)
	combined := make([]byte, 0, len(data)+len(checksum))
	combined = append(combined, data...)
	combined = append(combined, checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, b := range combined {
		if int(b) >= len(charset) {
			return "", fmt.Errorf("bech32: value %d out of range for charset", b)
		}
		sb.WriteByte(charset[b])
	}
	return sb.String(), nil
}

// Decode splits a bech32 string into its human-readable part and its
// 5-bit-group data part, verifying the checksum.
func Decode(bech string) (hrp string, data []byte, err error) {
	if strings.ToLower(bech) != bech && strings.ToUpper(bech) != bech {
		return "", nil, ErrMixedCase
	}
	bech = strings.ToLower(bech)

	sep := strings.LastIndexByte(bech, '1')
	if sep < 1 || sep+7 > len(bech) {
		return "", nil, ErrInvalidSeparatorIndex
	}

	hrp = bech[:sep]
	dataPart := bech[sep+1:]

	decoded := make([]byte, len(dataPart))
	for i := 0; i < len(dataPart); i++ {
		v, ok := charsetIndex[dataPart[i]]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidCharacter, dataPart[i])
		}
		decoded[i] = v
	}

	if !verifyChecksum(hrp, decoded) {
		return "", nil, ErrInvalidChecksum
	}
	return hrp, decoded[:len(decoded)-6], nil
}

// ConvertBits regroups a slice of fromBits-wide values into a slice of
// toBits-wide values, padding the final group with zero bits when pad is
// true. It is used to convert arbitrary byte data (8-bit groups) to and
// from the 5-bit groups bech32 encodes.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	if fromBits < 1 || fromBits > 8 || toBits < 1 || toBits > 8 {
		return nil, errors.New("bech32: bit widths must be between 1 and 8")
	}

	var acc uint32
	var bits uint
	maxv := uint32(1)<<toBits - 1
	var out []byte

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("bech32: input value %d exceeds %d bits", b, fromBits)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits)&byte(maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits))&byte(maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil, errors.New("bech32: non-zero padding bits remain")
	}

	return out, nil
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ 1

	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return checksum
}

func verifyChecksum(hrp string, data []byte) bool {
	values := append(hrpExpand(hrp), data...)
	return polymod(values) == 1
}

func hrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

var generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

func polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 != 0 {
				chk ^= generator[i]
			}
		}
	}
	return chk
}

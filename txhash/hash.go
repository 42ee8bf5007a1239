// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txhash provides the BLAKE2b-256 digest used to identify and sign
// transaction bodies.
package txhash

import (
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the size in bytes of a transaction body hash.
const HashSize = blake2b.Size256

var (
	// ErrHashStrSize is returned when a hash string has the wrong length.
	ErrHashStrSize = fmt.Errorf("hash string must be %d hex characters",
		HashSize*2)

	// ErrEmptyBody is returned when asked to hash an empty body encoding.
	ErrEmptyBody = errors.New("empty transaction body")
)

// Hash is the BLAKE2b-256 digest of a transaction body's encoded bytes. It
// doubles as the transaction id.
type Hash [HashSize]byte

// String returns the hash as a lowercase hex string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsEqual returns true if target is the same as hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}

	return *h == *target
}

// CloneBytes returns a copy of the bytes which represent the hash.
func (h Hash) CloneBytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])

	return b
}

// NewHashFromStr parses a hex encoded hash string.
func NewHashFromStr(s string) (*Hash, error) {
	if len(s) != HashSize*2 {
		return nil, ErrHashStrSize
	}

	var h Hash
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return nil, fmt.Errorf("decode hash: %w", err)
	}

	return &h, nil
}

// HashB calculates BLAKE2b-256 of b and returns the resulting bytes.
func HashB(b []byte) []byte {
	h := blake2b.Sum256(b)
	return h[:]
}

// HashH calculates BLAKE2b-256 of b and returns the resulting bytes as a
// Hash.
func HashH(b []byte) Hash {
	return Hash(blake2b.Sum256(b))
}

// BodyHash hashes the encoded bytes of a transaction body. The bytes must be
// exactly the ones carried on the wire, since re-serializing a decoded body
// can produce a different encoding and therefore a different hash.
func BodyHash(body []byte) (Hash, error) {
	if len(body) == 0 {
		return Hash{}, ErrEmptyBody
	}

	return HashH(body), nil
}

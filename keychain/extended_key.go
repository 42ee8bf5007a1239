// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keychain turns bech32 encoded extended private keys into Ed25519
// signing keys.
//
// An extended private key is 96 bytes: the 64 byte extended Ed25519 secret
// (kL || kR) followed by the 32 byte chain code. Only the secret half is
// needed to sign; derivation of child keys is left to the caller.
package keychain

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// ExtendedKeySize is the size of an encoded extended private key.
	ExtendedKeySize = 96

	// SigningKeySize is the size of the extended Ed25519 secret.
	SigningKeySize = 64

	// ChainCodeSize is the size of the chain code.
	ChainCodeSize = 32

	// HRPXPrv is the human readable part used by wallets exporting a BIP32
	// style extended private key.
	HRPXPrv = "xprv"
)

var (
	// ErrUnknownHRP is returned when the bech32 prefix does not name an
	// extended private key.
	ErrUnknownHRP = errors.New("unknown extended key prefix")

	// ErrKeySize is returned when the decoded key has the wrong size.
	ErrKeySize = fmt.Errorf("extended key must be %d bytes",
		ExtendedKeySize)

	// ErrKeyWiped is returned when a zeroed key is used.
	ErrKeyWiped = errors.New("key material has been wiped")

	// ErrNilKey is returned when a nil key is used.
	ErrNilKey = errors.New("nil key")
)

// knownHRPs lists the prefixes accepted for extended private keys.
var knownHRPs = map[string]struct{}{
	HRPXPrv:     {},
	"root_xsk":  {},
	"acct_xsk":  {},
	"addr_xsk":  {},
	"stake_xsk": {},
}

// ExtendedKey is a decoded extended private key.
type ExtendedKey struct {
	hrp string
	key [ExtendedKeySize]byte
}

// NewExtendedKey builds an extended key from raw bytes. The bytes are copied.
func NewExtendedKey(hrp string, raw []byte) (*ExtendedKey, error) {
	if _, ok := knownHRPs[hrp]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHRP, hrp)
	}

	if len(raw) != ExtendedKeySize {
		return nil, fmt.Errorf("%w: got %d", ErrKeySize, len(raw))
	}

	k := &ExtendedKey{hrp: hrp}
	copy(k.key[:], raw)

	return k, nil
}

// DecodeExtendedKey parses a bech32 encoded extended private key. Extended
// keys are longer than the 90 character bech32 limit, so the limit is not
// enforced.
func DecodeExtendedKey(encoded string) (*ExtendedKey, error) {
	hrp, data, err := bech32.DecodeNoLimit(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode bech32 key: %w", err)
	}

	raw, err := convertKeyBits(data)
	if err != nil {
		return nil, err
	}
	defer zero(raw)

	return NewExtendedKey(hrp, raw)
}

// convertKeyBits regroups the 5 bit bech32 data into bytes. The input holds
// the whole secret and is zeroed before returning.
func convertKeyBits(data []byte) ([]byte, error) {
	defer zero(data)

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("convert key bits: %w", err)
	}

	return raw, nil
}

// HRP returns the bech32 prefix the key was decoded with.
func (k *ExtendedKey) HRP() string {
	return k.hrp
}

// Encode encodes the key back to bech32.
//
// NOTE: the result is secret key material.
func (k *ExtendedKey) Encode() (string, error) {
	if k == nil {
		return "", ErrNilKey
	}

	conv, err := bech32.ConvertBits(k.key[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert key bits: %w", err)
	}
	defer zero(conv)

	s, err := bech32.Encode(k.hrp, conv)
	if err != nil {
		return "", fmt.Errorf("encode bech32 key: %w", err)
	}

	return s, nil
}

// SigningKey returns the Ed25519 signing half of the key. The returned key
// owns its own copy of the secret and should be zeroed by the caller once
// done.
func (k *ExtendedKey) SigningKey() (*SigningKey, error) {
	if k == nil {
		return nil, ErrNilKey
	}

	if k.isZero() {
		return nil, ErrKeyWiped
	}

	return NewSigningKey(k.key[:SigningKeySize])
}

// Zero wipes the key material.
func (k *ExtendedKey) Zero() {
	if k == nil {
		return
	}

	zero(k.key[:])
}

// isZero returns true if the key has been wiped.
func (k *ExtendedKey) isZero() bool {
	var acc byte
	for _, b := range k.key {
		acc |= b
	}

	return acc == 0
}

// zero overwrites b with zeros.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

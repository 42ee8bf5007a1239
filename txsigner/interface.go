// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txsigner

import (
	"strings"

	"github.com/adasuite/txwitness/keychain"
	"github.com/adasuite/txwitness/txcodec"
	"github.com/adasuite/txwitness/witness"
)

// TransactionCodec decodes and encodes binary transactions.
type TransactionCodec interface {
	// Decode parses a binary transaction.
	Decode(b []byte) (*txcodec.Transaction, error)

	// Encode serializes a transaction, writing the body and auxiliary
	// data exactly as they were decoded.
	Encode(tx *txcodec.Transaction) ([]byte, error)
}

// PrivateKey is a signing key that can be wiped once it has been used.
type PrivateKey interface {
	witness.Signer

	// Zero wipes the key material.
	Zero()
}

// KeyProvider turns an encoded extended private key into a signing key.
type KeyProvider interface {
	// Decode parses the encoded extended private key.
	Decode(encoded string) (*keychain.ExtendedKey, error)

	// SigningKey returns the signing key held by an extended key. The
	// caller owns the result and must zero it.
	SigningKey(key *keychain.ExtendedKey) (PrivateKey, error)
}

// Bech32KeyProvider reads bech32 encoded extended private keys such as the
// xprv strings wallets export.
type Bech32KeyProvider struct{}

// Compile time checks to ensure the defaults implement the interfaces.
var (
	_ TransactionCodec = (*txcodec.Codec)(nil)
	_ KeyProvider      = (*Bech32KeyProvider)(nil)
	_ PrivateKey       = (*keychain.SigningKey)(nil)
)

// Decode parses the encoded key. Surrounding whitespace, as left by reading
// a key file, is ignored.
func (Bech32KeyProvider) Decode(encoded string) (*keychain.ExtendedKey,
	error) {

	return keychain.DecodeExtendedKey(strings.TrimSpace(encoded))
}

// SigningKey returns the Ed25519 signing half of key.
func (Bech32KeyProvider) SigningKey(
	key *keychain.ExtendedKey) (PrivateKey, error) {

	signingKey, err := key.SigningKey()
	if err != nil {
		return nil, err
	}

	return signingKey, nil
}

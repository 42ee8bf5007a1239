// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package witness builds verification key witnesses over a transaction body
// hash and places them into witness sets.
package witness

import (
	"errors"
	"fmt"

	"github.com/adasuite/txwitness/keychain"
	"github.com/adasuite/txwitness/txcodec"
	"github.com/adasuite/txwitness/txhash"
)

var (
	// ErrNilSigner is returned when no signer is given.
	ErrNilSigner = errors.New("nil signer")

	// ErrBadPubKey is returned when a signer yields a verification key of
	// the wrong size.
	ErrBadPubKey = fmt.Errorf("verification key must be %d bytes",
		txcodec.VKeySize)

	// ErrBadSignature is returned when a signer yields a signature of the
	// wrong size.
	ErrBadSignature = fmt.Errorf("signature must be %d bytes",
		txcodec.SignatureSize)

	// ErrInvalidWitness is returned when a witness does not verify
	// against the body hash.
	ErrInvalidWitness = errors.New("vkey witness does not verify")
)

// Signer is the capability the builder needs from a key: the verification
// key and a signature over a digest.
type Signer interface {
	// PubKey returns the Ed25519 verification key.
	PubKey() ([]byte, error)

	// Sign returns an Ed25519 signature over digest.
	Sign(digest []byte) ([]byte, error)
}

// A compile time check to ensure that keychain.SigningKey implements the
// interface.
var _ Signer = (*keychain.SigningKey)(nil)

// MakeVKeyWitness signs the body hash and packages the verification key and
// signature. The signer is not retained.
func MakeVKeyWitness(hash txhash.Hash, s Signer) (txcodec.VKeyWitness,
	error) {

	var vw txcodec.VKeyWitness
	if s == nil {
		return vw, ErrNilSigner
	}

	pubKey, err := s.PubKey()
	if err != nil {
		return vw, fmt.Errorf("derive verification key: %w", err)
	}
	if len(pubKey) != txcodec.VKeySize {
		return vw, fmt.Errorf("%w: got %d", ErrBadPubKey, len(pubKey))
	}

	sig, err := s.Sign(hash[:])
	if err != nil {
		return vw, fmt.Errorf("sign body hash: %w", err)
	}
	if len(sig) != txcodec.SignatureSize {
		return vw, fmt.Errorf("%w: got %d", ErrBadSignature, len(sig))
	}

	copy(vw.VKey[:], pubKey)
	copy(vw.Signature[:], sig)

	return vw, nil
}

// Verify checks a single witness against the body hash.
func Verify(hash txhash.Hash, vw txcodec.VKeyWitness) bool {
	return keychain.Verify(vw.VKey[:], hash[:], vw.Signature[:])
}

// VerifySet checks every vkey witness in the set against the body hash. The
// error names the first witness that fails.
func VerifySet(hash txhash.Hash, ws *txcodec.WitnessSet) error {
	if ws == nil {
		return nil
	}

	for i, vw := range ws.VKeyWitnesses {
		if !Verify(hash, vw) {
			return fmt.Errorf("%w: index %d, vkey %x",
				ErrInvalidWitness, i, vw.VKey)
		}
	}

	return nil
}

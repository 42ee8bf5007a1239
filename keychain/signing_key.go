// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// PubKeySize is the size of an Ed25519 verification key.
	PubKeySize = ed25519.PublicKeySize

	// SignatureSize is the size of an Ed25519 signature.
	SignatureSize = ed25519.SignatureSize

	// scalarSize is the size of kL and kR.
	scalarSize = 32
)

// SigningKey is an extended Ed25519 secret key: the scalar kL followed by the
// nonce prefix kR. Unlike a crypto/ed25519 key it is not derived from a seed,
// which is what hierarchical derivation produces.
type SigningKey struct {
	key   [SigningKeySize]byte
	wiped bool
}

// NewSigningKey builds a signing key from the 64 byte kL || kR secret. The
// bytes are copied.
func NewSigningKey(raw []byte) (*SigningKey, error) {
	if len(raw) != SigningKeySize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d",
			SigningKeySize, len(raw))
	}

	k := &SigningKey{}
	copy(k.key[:], raw)

	return k, nil
}

// NewSigningKeyFromSeed expands an RFC 8032 seed into its extended form.
// Keys built this way sign exactly like crypto/ed25519.
func NewSigningKeyFromSeed(seed []byte) (*SigningKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d",
			ed25519.SeedSize, len(seed))
	}

	h := sha512.Sum512(seed)
	defer zero(h[:])

	h[0] &= 248
	h[31] &= 127
	h[31] |= 64

	return NewSigningKey(h[:])
}

// scalar returns kL reduced modulo the group order.
func (k *SigningKey) scalar() (*edwards25519.Scalar, error) {
	var wide [64]byte
	defer zero(wide[:])

	copy(wide[:], k.key[:scalarSize])

	s, err := edwards25519.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return nil, fmt.Errorf("reduce scalar: %w", err)
	}

	return s, nil
}

// PubKey derives the verification key kL·B.
func (k *SigningKey) PubKey() ([]byte, error) {
	if k.wiped {
		return nil, ErrKeyWiped
	}

	a, err := k.scalar()
	if err != nil {
		return nil, err
	}
	defer a.Set(edwards25519.NewScalar())

	return new(edwards25519.Point).ScalarBaseMult(a).Bytes(), nil
}

// Sign produces a deterministic Ed25519 signature over msg.
func (k *SigningKey) Sign(msg []byte) ([]byte, error) {
	if k.wiped {
		return nil, ErrKeyWiped
	}

	a, err := k.scalar()
	if err != nil {
		return nil, err
	}
	defer a.Set(edwards25519.NewScalar())

	pub := new(edwards25519.Point).ScalarBaseMult(a).Bytes()

	// The nonce is derived from the second half of the secret and the
	// message, so the same key and message always give the same
	// signature.
	var digest [sha512.Size]byte
	defer zero(digest[:])

	h := sha512.New()
	h.Write(k.key[scalarSize:])
	h.Write(msg)
	h.Sum(digest[:0])

	r, err := edwards25519.NewScalar().SetUniformBytes(digest[:])
	if err != nil {
		return nil, fmt.Errorf("nonce scalar: %w", err)
	}
	defer r.Set(edwards25519.NewScalar())

	R := new(edwards25519.Point).ScalarBaseMult(r).Bytes()

	h.Reset()
	h.Write(R)
	h.Write(pub)
	h.Write(msg)
	h.Sum(digest[:0])

	c, err := edwards25519.NewScalar().SetUniformBytes(digest[:])
	if err != nil {
		return nil, fmt.Errorf("challenge scalar: %w", err)
	}

	S := edwards25519.NewScalar().MultiplyAdd(c, a, r)

	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, R...)
	sig = append(sig, S.Bytes()...)

	return sig, nil
}

// Zero wipes the key. Any later PubKey or Sign call fails with ErrKeyWiped.
func (k *SigningKey) Zero() {
	zero(k.key[:])
	k.wiped = true
}

// Verify checks an Ed25519 signature over msg.
func Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != PubKeySize || len(sig) != SignatureSize {
		return false
	}

	return ed25519.Verify(pubKey, msg, sig)
}

// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txsigner attaches verification key witnesses to unsigned or
// partially signed transactions.
//
// Signing is a straight pipeline: decode the transaction, hash the body,
// derive the signing key, build the witness, splice it into the witness set
// and encode. Each stage either completes or the call fails with an Error
// naming the stage, and no partially signed output is ever returned. A
// Signer holds no mutable state and is safe for concurrent use.
package txsigner

import (
	"encoding/hex"
	"errors"

	"github.com/adasuite/txwitness/txcodec"
	"github.com/adasuite/txwitness/txhash"
	"github.com/adasuite/txwitness/witness"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoKeys is returned when SignMulti is called without keys.
	ErrNoKeys = errors.New("no signing keys given")

	// ErrDuplicateKeys is returned when SignMulti is given the same
	// encoded key more than once.
	ErrDuplicateKeys = errors.New("signing keys contain duplicates")

	// ErrUnknownPolicy is returned when the configured witness policy is
	// not known.
	ErrUnknownPolicy = errors.New("unknown witness policy")
)

// Config holds the collaborators used by a Signer. Nil fields fall back to
// the defaults.
type Config struct {
	// Codec decodes and encodes transactions. Defaults to txcodec.Codec.
	Codec TransactionCodec

	// Keys decodes encoded private keys. Defaults to Bech32KeyProvider.
	Keys KeyProvider

	// Policy decides whether vkey witnesses already on the transaction
	// are kept. Defaults to witness.PolicyMerge.
	Policy witness.Policy
}

// DefaultConfig returns a config using the bundled codec and key provider
// that keeps existing witnesses.
func DefaultConfig() *Config {
	return &Config{
		Codec:  txcodec.Codec{},
		Keys:   Bech32KeyProvider{},
		Policy: witness.PolicyMerge,
	}
}

// Signer adds vkey witnesses to transactions.
type Signer struct {
	cfg Config
}

// New creates a Signer. A nil config uses DefaultConfig.
func New(cfg *Config) (*Signer, error) {
	c := *DefaultConfig()
	if cfg != nil {
		c.Policy = cfg.Policy
		if cfg.Codec != nil {
			c.Codec = cfg.Codec
		}
		if cfg.Keys != nil {
			c.Keys = cfg.Keys
		}
	}

	switch c.Policy {
	case witness.PolicyMerge, witness.PolicyReplace:

	default:
		return nil, newError(ErrConfig, "invalid signer config",
			ErrUnknownPolicy)
	}

	return &Signer{cfg: c}, nil
}

// Sign adds one vkey witness made with encodedKey to the binary transaction
// rawTx and returns the encoded signed transaction. The body and auxiliary
// data in the result are byte for byte those of rawTx.
func (s *Signer) Sign(rawTx []byte, encodedKey string) ([]byte, error) {
	tx, hash, err := s.decode(rawTx)
	if err != nil {
		return nil, err
	}

	vw, err := s.witnessFor(hash, encodedKey)
	if err != nil {
		return nil, err
	}

	signed := s.assemble(tx, vw)
	if signed.WitnessSet.Equal(tx.WitnessSet) {
		log.Debugf("Transaction %v already carries witness for vkey "+
			"%x", hash, vw.VKey)
	}

	log.Debugf("Signed transaction %v, vkey witnesses=%d, policy=%v",
		hash, len(signed.WitnessSet.VKeyWitnesses), s.cfg.Policy)

	return s.encode(signed)
}

// SignHex is Sign for hex encoded transactions.
func (s *Signer) SignHex(txHex, encodedKey string) (string, error) {
	rawTx, err := hex.DecodeString(txHex)
	if err != nil {
		return "", newError(ErrDecode, "unable to decode transaction "+
			"hex", err)
	}

	signed, err := s.Sign(rawTx, encodedKey)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(signed), nil
}

// SignMulti adds one vkey witness per encoded key in a single pass. The
// witnesses are produced concurrently and added in key order.
func (s *Signer) SignMulti(rawTx []byte, encodedKeys ...string) ([]byte,
	error) {

	if len(encodedKeys) == 0 {
		return nil, newError(ErrKeyDecode, "unable to sign", ErrNoKeys)
	}

	dedupKeys := fn.NewSet(encodedKeys...)
	if len(dedupKeys) != len(encodedKeys) {
		return nil, newError(ErrKeyDecode, "unable to sign",
			ErrDuplicateKeys)
	}

	tx, hash, err := s.decode(rawTx)
	if err != nil {
		return nil, err
	}

	witnesses := make([]txcodec.VKeyWitness, len(encodedKeys))

	var g errgroup.Group
	for i, encodedKey := range encodedKeys {
		i, encodedKey := i, encodedKey
		g.Go(func() error {
			vw, err := s.witnessFor(hash, encodedKey)
			if err != nil {
				return err
			}

			witnesses[i] = vw

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	signed := s.assemble(tx, witnesses...)

	log.Debugf("Signed transaction %v with %d keys, vkey witnesses=%d, "+
		"policy=%v", hash, len(encodedKeys),
		len(signed.WitnessSet.VKeyWitnesses), s.cfg.Policy)

	return s.encode(signed)
}

// SignTx adds a vkey witness made by key to an already decoded transaction
// and returns the new transaction. The input transaction is not modified and
// key is not zeroed.
func (s *Signer) SignTx(tx *txcodec.Transaction,
	key witness.Signer) (*txcodec.Transaction, error) {

	if tx == nil {
		return nil, newError(ErrDecode, "unable to sign",
			txcodec.ErrNilTx)
	}

	hash, err := txhash.BodyHash(tx.Body)
	if err != nil {
		return nil, newError(ErrDecode, "unable to hash transaction "+
			"body", err)
	}

	vw, err := makeWitness(hash, key)
	if err != nil {
		return nil, err
	}

	return s.assemble(tx, vw), nil
}

// TxID returns the transaction id, the hash of the encoded body.
func (s *Signer) TxID(rawTx []byte) (txhash.Hash, error) {
	_, hash, err := s.decode(rawTx)
	return hash, err
}

// Verify checks every vkey witness on rawTx against the body hash and
// returns how many there are.
func (s *Signer) Verify(rawTx []byte) (int, error) {
	tx, hash, err := s.decode(rawTx)
	if err != nil {
		return 0, err
	}

	if err := witness.VerifySet(hash, tx.WitnessSet); err != nil {
		return 0, newError(ErrVerify, "transaction "+hash.String()+
			" has an invalid witness", err)
	}

	return len(tx.WitnessSet.VKeyWitnesses), nil
}

// decode parses rawTx and hashes its body.
func (s *Signer) decode(rawTx []byte) (*txcodec.Transaction, txhash.Hash,
	error) {

	tx, err := s.cfg.Codec.Decode(rawTx)
	if err != nil {
		return nil, txhash.Hash{}, newError(ErrDecode, "unable to "+
			"decode transaction", err)
	}
	if tx == nil {
		return nil, txhash.Hash{}, newError(ErrDecode, "unable to "+
			"decode transaction", txcodec.ErrNilTx)
	}

	hash, err := txhash.BodyHash(tx.Body)
	if err != nil {
		return nil, txhash.Hash{}, newError(ErrDecode, "unable to "+
			"hash transaction body", err)
	}

	return tx, hash, nil
}

// witnessFor decodes encodedKey and signs hash with it. Both the extended key
// and the signing key are zeroed before returning, on success and on error.
func (s *Signer) witnessFor(hash txhash.Hash,
	encodedKey string) (txcodec.VKeyWitness, error) {

	ext, err := s.cfg.Keys.Decode(encodedKey)
	if err != nil {
		return txcodec.VKeyWitness{}, newError(ErrKeyDecode, "unable "+
			"to decode private key", err)
	}
	defer ext.Zero()

	log.Tracef("Signing transaction %v with %s key", hash, ext.HRP())

	key, err := s.cfg.Keys.SigningKey(ext)
	if err != nil {
		return txcodec.VKeyWitness{}, newError(ErrKeyDecode, "unable "+
			"to derive signing key", err)
	}
	defer key.Zero()

	return makeWitness(hash, key)
}

// makeWitness builds a witness and checks it before it can be attached.
func makeWitness(hash txhash.Hash,
	key witness.Signer) (txcodec.VKeyWitness, error) {

	vw, err := witness.MakeVKeyWitness(hash, key)
	if err != nil {
		return vw, newError(ErrSigning, "unable to create witness", err)
	}

	if !witness.Verify(hash, vw) {
		return txcodec.VKeyWitness{}, newError(ErrSigning, "unable to "+
			"create witness", witness.ErrInvalidWitness)
	}

	return vw, nil
}

// assemble builds the signed transaction from a copy of the original body,
// the original validity flag and auxiliary data and the updated witness set.
func (s *Signer) assemble(tx *txcodec.Transaction,
	ws ...txcodec.VKeyWitness) *txcodec.Transaction {

	return &txcodec.Transaction{
		Body:          tx.BodyBytes(),
		WitnessSet:    witness.Apply(tx.WitnessSet, s.cfg.Policy, ws...),
		IsValid:       tx.IsValid,
		AuxiliaryData: tx.AuxiliaryData,
	}
}

// encode serializes the signed transaction.
func (s *Signer) encode(tx *txcodec.Transaction) ([]byte, error) {
	b, err := s.cfg.Codec.Encode(tx)
	if err != nil {
		return nil, newError(ErrEncode, "unable to encode signed "+
			"transaction", err)
	}

	return b, nil
}

// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txsigner

import (
	"github.com/adasuite/txwitness/keychain"
	"github.com/adasuite/txwitness/txcodec"
	"github.com/stretchr/testify/mock"
)

var (
	_ TransactionCodec = (*mockCodec)(nil)
	_ KeyProvider      = (*mockKeyProvider)(nil)
	_ PrivateKey       = (*mockPrivateKey)(nil)
)

// mockCodec is a mock implementation of the TransactionCodec interface.
type mockCodec struct {
	mock.Mock
}

func (m *mockCodec) Decode(b []byte) (*txcodec.Transaction, error) {
	args := m.Called(b)
	return args.Get(0).(*txcodec.Transaction), args.Error(1)
}

func (m *mockCodec) Encode(tx *txcodec.Transaction) ([]byte, error) {
	args := m.Called(tx)
	return args.Get(0).([]byte), args.Error(1)
}

// mockKeyProvider is a mock implementation of the KeyProvider interface.
type mockKeyProvider struct {
	mock.Mock
}

func (m *mockKeyProvider) Decode(encoded string) (*keychain.ExtendedKey,
	error) {

	args := m.Called(encoded)
	return args.Get(0).(*keychain.ExtendedKey), args.Error(1)
}

func (m *mockKeyProvider) SigningKey(
	key *keychain.ExtendedKey) (PrivateKey, error) {

	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(PrivateKey), args.Error(1)
}

// mockPrivateKey is a mock implementation of the PrivateKey interface.
type mockPrivateKey struct {
	mock.Mock
}

func (m *mockPrivateKey) PubKey() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockPrivateKey) Sign(digest []byte) ([]byte, error) {
	args := m.Called(digest)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockPrivateKey) Zero() {
	m.Called()
}

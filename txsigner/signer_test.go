// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txsigner

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/adasuite/txwitness/keychain"
	"github.com/adasuite/txwitness/txcodec"
	"github.com/adasuite/txwitness/txhash"
	"github.com/adasuite/txwitness/witness"
	"github.com/fxamacker/cbor/v2"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	// testBodyHex is the body of testUnsignedTxHex.
	testBodyHex = "a40081825820dcac27eed284adfa6ec02a6e8fa41f886faf267bff" +
		"7a6e615df44ab8a311360d000182825839000916a5fed4589d910691b85add" +
		"f608dceee4d9d60d4c9a4d2a925026c3229b212ba7ef8643cd8f7e38d62793" +
		"36d61a40d228b036f40feed61a004c4b40825839008c5bf0f2af6f1ef08bb3" +
		"f6ec702dd16e1c514b7e1d12f7549b47db9f4d943c7af0aaec774757d4745d" +
		"1a2c8dd3220e6ec2c9df23f757a2f81a3af6f8c6021a00059d5d031a018fb2" +
		"9a"

	// testUnsignedTxHex is an unsigned transaction with an empty witness
	// set and no auxiliary data.
	testUnsignedTxHex = "83" + testBodyHex + "a0f6"

	// testTxID is the hash of testBodyHex.
	testTxID = "2613c81e723545b47e82e36342eb1e4f05c78ba053fedf5d9f187e82c4" +
		"9910b0"

	// testXPrv is the extended private key that signs testUnsignedTxHex.
	testXPrv = "xprv10zlue93vusfclwsqafhyd48v56hfg4aqtptxwzd499q64upxlef" +
		"aah3l9hw7wa3gy8p0j4a2caacpg7rd04twkypejpuvqrftqr0rh24rn8ay6" +
		"kadm00t0h878l2fwhcpw6c87v2q746d4u7x6uxsnn84ugncknq"

	// testVKey and testSig are the witness testXPrv produces over
	// testTxID.
	testVKey = "9518c18103cbdab9c6e60b58ecc3e2eb439fef6519bb22570f391327" +
		"381900a8"
	testSig = "10aecddc3995348817224e7a72b86b9227cf29f7a7c4b8a740a521beb2" +
		"2dc8780920b50ddf0b08218dc6bd803d009b968eb99c1885e1fe7f2e728b6a" +
		"b77d7f0e"

	// testVKey2 and testSig2 are the witness of secondKey over testTxID.
	testVKey2 = "6e7a1cdd29b0b78fd13af4c5598feff4ef2a97166e3ca6f2e4fbfccd8" +
		"0505bf1"
	testSig2 = "c9425372eee6b183ae45241a33920fc4a801664001574187b088c60fb" +
		"ba4c8aa67c2c84abf49ba90bb12d65ccadf384913a3f3ea9cbff1f305a2e10" +
		"d854b0703"

	// testSignedTxHex is testUnsignedTxHex signed by testXPrv.
	testSignedTxHex = "83" + testBodyHex + "a10081825820" + testVKey +
		"5840" + testSig + "f6"
)

var (
	// errEncodeMock is a mock error for transaction encoding.
	errEncodeMock = errors.New("encode error")

	// errSignMock is a mock error for signing operations.
	errSignMock = errors.New("sign error")
)

// mustHex decodes a hex string or fails the test.
func mustHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)

	return b
}

// secondKey returns a bech32 extended key whose signing half is the RFC 8032
// expansion of a seed of 0x05 bytes.
func secondKey(t *testing.T) string {
	t.Helper()

	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = 0x05
	}

	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64

	raw := append(h[:], make([]byte, keychain.ChainCodeSize)...)
	key, err := keychain.NewExtendedKey(keychain.HRPXPrv, raw)
	require.NoError(t, err)

	encoded, err := key.Encode()
	require.NoError(t, err)

	return encoded
}

// testSigner returns a signer with the default config and the given policy.
func testSigner(t *testing.T, policy witness.Policy) *Signer {
	t.Helper()

	s, err := New(&Config{Policy: policy})
	require.NoError(t, err)

	return s
}

// TestSignFixture signs the unsigned transaction and checks the exact
// output, the preserved body and the witness.
func TestSignFixture(t *testing.T) {
	t.Parallel()

	// Arrange: a default signer and the unsigned transaction.
	s := testSigner(t, witness.PolicyMerge)
	rawTx := mustHex(t, testUnsignedTxHex)

	// Act: sign with the wallet key.
	signed, err := s.Sign(rawTx, testXPrv)

	// Assert: the output matches byte for byte.
	require.NoError(t, err)
	require.Equal(t, testSignedTxHex, hex.EncodeToString(signed))

	// The input buffer is untouched.
	require.Equal(t, testUnsignedTxHex, hex.EncodeToString(rawTx))

	// The body decoded from the output is the input body and the single
	// witness verifies against its hash with its own key.
	tx, err := txcodec.Decode(signed)
	require.NoError(t, err)
	require.Equal(t, testBodyHex, hex.EncodeToString(tx.Body))
	require.Len(t, tx.WitnessSet.VKeyWitnesses, 1)
	require.True(t, tx.AuxiliaryData.IsNone())

	hash := txhash.HashH(tx.Body)
	require.Equal(t, testTxID, hash.String())
	require.True(t, witness.Verify(hash, tx.WitnessSet.VKeyWitnesses[0]))

	n, err := s.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

// TestSignDeterministic checks that signing twice gives identical bytes.
func TestSignDeterministic(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)
	rawTx := mustHex(t, testUnsignedTxHex)

	first, err := s.Sign(rawTx, testXPrv)
	require.NoError(t, err)

	second, err := s.Sign(rawTx, testXPrv)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

// TestSignConcurrent signs from several goroutines with one signer.
func TestSignConcurrent(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)

	const workers = 8
	results := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			results[i], errs[i] = s.SignHex(testUnsignedTxHex, testXPrv)
		}()
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, testSignedTxHex, results[i])
	}
}

// TestSignMergesWitnesses checks that a second signer is added next to the
// first and that signing again with a key that already signed is a no-op.
func TestSignMergesWitnesses(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)

	// Arrange: a transaction already signed by the wallet key.
	signedOnce := mustHex(t, testSignedTxHex)

	// Act: sign with a second key.
	signedTwice, err := s.Sign(signedOnce, secondKey(t))
	require.NoError(t, err)

	// Assert: both witnesses are present in signing order.
	want := "83" + testBodyHex + "a10082825820" + testVKey + "5840" +
		testSig + "825820" + testVKey2 + "5840" + testSig2 + "f6"
	require.Equal(t, want, hex.EncodeToString(signedTwice))

	n, err := s.Verify(signedTwice)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Signing again with the first key changes nothing.
	again, err := s.Sign(signedTwice, testXPrv)
	require.NoError(t, err)
	require.Equal(t, signedTwice, again)
}

// TestSignReplacePolicy checks that the replace policy drops vkey witnesses
// already on the transaction.
func TestSignReplacePolicy(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyReplace)

	signed, err := s.Sign(mustHex(t, testSignedTxHex), secondKey(t))
	require.NoError(t, err)

	want := "83" + testBodyHex + "a10081825820" + testVKey2 + "5840" +
		testSig2 + "f6"
	require.Equal(t, want, hex.EncodeToString(signed))
}

// TestSignPreservesAlonzoFields checks that is_valid, auxiliary data and
// other witness kinds pass through signing unchanged.
func TestSignPreservesAlonzoFields(t *testing.T) {
	t.Parallel()

	// Arrange: a four element transaction with a native script witness
	// and metadata {0: {}}.
	auxHex := "a100a0"
	rawTx := mustHex(t, "84"+testBodyHex+"a10180"+"f5"+auxHex)
	s := testSigner(t, witness.PolicyMerge)

	// Act: sign.
	signed, err := s.Sign(rawTx, testXPrv)
	require.NoError(t, err)

	// Assert: every field other than the vkey witnesses is unchanged and
	// the witness still signs the same body hash.
	want := "84" + testBodyHex + "a20081825820" + testVKey + "5840" +
		testSig + "0180" + "f5" + auxHex
	require.Equal(t, want, hex.EncodeToString(signed))

	tx, err := txcodec.Decode(signed)
	require.NoError(t, err)
	require.Equal(t, fn.Some(true), tx.IsValid)
	require.Equal(t, fn.Some(cbor.RawMessage(mustHex(t, auxHex))),
		tx.AuxiliaryData)
}

// TestSignKeepsIndefiniteLengthItems checks that bodies, auxiliary data and
// witnesses using indefinite length CBOR items are written back unchanged.
func TestSignKeepsIndefiniteLengthItems(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string

		// txHex is the unsigned transaction.
		txHex string

		// keep is a part of txHex that must appear unchanged in the
		// signed transaction.
		keep string
	}{{
		name:  "indefinite body",
		txHex: "83" + "bf021a00059d5dff" + "a0f6",
		keep:  "bf021a00059d5dff",
	}, {
		name:  "indefinite auxiliary data",
		txHex: "83" + testBodyHex + "a0" + "a11902a29f626869ff",
		keep:  "a11902a29f626869ff",
	}, {
		name:  "indefinite plutus data witness",
		txHex: "84" + testBodyHex + "a1049f01ff" + "f5f6",
		keep:  "049f01ff",
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: the transaction id before signing.
			s := testSigner(t, witness.PolicyMerge)
			rawTx := mustHex(t, tc.txHex)
			id, err := s.TxID(rawTx)
			require.NoError(t, err)

			// Act: sign.
			signed, err := s.Sign(rawTx, testXPrv)

			// Assert: the indefinite item is kept byte for byte,
			// the id is unchanged and the witness verifies.
			require.NoError(t, err)
			require.Contains(t, hex.EncodeToString(signed), tc.keep)

			signedID, err := s.TxID(signed)
			require.NoError(t, err)
			require.Equal(t, id, signedID)

			n, err := s.Verify(signed)
			require.NoError(t, err)
			require.Equal(t, 1, n)
		})
	}
}

// TestSignMulti checks signing with several keys in one call.
func TestSignMulti(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)
	rawTx := mustHex(t, testUnsignedTxHex)

	signed, err := s.SignMulti(rawTx, testXPrv, secondKey(t))
	require.NoError(t, err)

	// The result equals signing one key at a time.
	want := "83" + testBodyHex + "a10082825820" + testVKey + "5840" +
		testSig + "825820" + testVKey2 + "5840" + testSig2 + "f6"
	require.Equal(t, want, hex.EncodeToString(signed))

	_, err = s.SignMulti(rawTx)
	require.True(t, IsError(err, ErrKeyDecode))
	require.ErrorIs(t, err, ErrNoKeys)

	_, err = s.SignMulti(rawTx, testXPrv, testXPrv)
	require.True(t, IsError(err, ErrKeyDecode))
	require.ErrorIs(t, err, ErrDuplicateKeys)

	_, err = s.SignMulti(rawTx, testXPrv, "xprv1bad")
	require.True(t, IsError(err, ErrKeyDecode))

	_, err = s.SignMulti(rawTx[:10], testXPrv)
	require.True(t, IsError(err, ErrDecode))
}

// TestSignTx checks signing an already decoded transaction.
func TestSignTx(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)

	tx, err := txcodec.DecodeHex(testUnsignedTxHex)
	require.NoError(t, err)

	ext, err := keychain.DecodeExtendedKey(testXPrv)
	require.NoError(t, err)

	key, err := ext.SigningKey()
	require.NoError(t, err)

	signed, err := s.SignTx(tx, key)
	require.NoError(t, err)
	require.Empty(t, tx.WitnessSet.VKeyWitnesses)
	require.Len(t, signed.WitnessSet.VKeyWitnesses, 1)
	require.Equal(t, testVKey,
		hex.EncodeToString(signed.WitnessSet.VKeyWitnesses[0].VKey[:]))

	b, err := txcodec.Encode(signed)
	require.NoError(t, err)
	require.Equal(t, testSignedTxHex, hex.EncodeToString(b))

	// The signed transaction does not share the body buffer.
	signed.Body[0] ^= 0xff
	require.Equal(t, testBodyHex, hex.EncodeToString(tx.Body))

	_, err = s.SignTx(nil, key)
	require.True(t, IsError(err, ErrDecode))

	// A wiped key cannot sign.
	key.Zero()
	_, err = s.SignTx(tx, key)
	require.True(t, IsError(err, ErrSigning))
	require.ErrorIs(t, err, keychain.ErrKeyWiped)
}

// TestTxID checks the transaction id of the fixture.
func TestTxID(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)

	id, err := s.TxID(mustHex(t, testUnsignedTxHex))
	require.NoError(t, err)
	require.Equal(t, testTxID, id.String())

	// Signing does not change the id.
	id, err = s.TxID(mustHex(t, testSignedTxHex))
	require.NoError(t, err)
	require.Equal(t, testTxID, id.String())
}

// TestVerifyRejectsTampering checks that a changed signature or body is
// reported.
func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)
	signed := mustHex(t, testSignedTxHex)

	// Flip a bit in the last byte of the signature, just before the
	// trailing null.
	badSig := append([]byte(nil), signed...)
	badSig[len(badSig)-2] ^= 0x01

	_, err := s.Verify(badSig)
	require.True(t, IsError(err, ErrVerify))
	require.ErrorIs(t, err, witness.ErrInvalidWitness)

	// Change the ttl, the last byte of the body.
	badBody := append([]byte(nil), signed...)
	badBody[len(testBodyHex)/2] ^= 0x01

	_, err = s.Verify(badBody)
	require.True(t, IsError(err, ErrVerify))
}

// TestSignDecodeErrors checks that malformed transactions fail with
// ErrDecode and never panic.
func TestSignDecodeErrors(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)

	testCases := []struct {
		name  string
		txHex string
	}{{
		name:  "empty",
		txHex: "",
	}, {
		name:  "truncated",
		txHex: testUnsignedTxHex[:len(testUnsignedTxHex)/2],
	}, {
		name:  "odd length",
		txHex: testUnsignedTxHex[:len(testUnsignedTxHex)-1],
	}, {
		name:  "not hex",
		txHex: "83zz",
	}, {
		name:  "corrupted",
		txHex: "ff" + testUnsignedTxHex[2:],
	}, {
		name:  "null witness set",
		txHex: "83" + testBodyHex + "f6f6",
	}, {
		name:  "null vkey witnesses",
		txHex: "83" + testBodyHex + "a100f6f6",
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.NotPanics(t, func() {
				_, err := s.SignHex(tc.txHex, testXPrv)
				require.True(t, IsError(err, ErrDecode), err)
			})
		})
	}
}

// TestSignKeyDecodeErrors checks that malformed keys fail with ErrKeyDecode.
func TestSignKeyDecodeErrors(t *testing.T) {
	t.Parallel()

	s := testSigner(t, witness.PolicyMerge)
	rawTx := mustHex(t, testUnsignedTxHex)

	for _, key := range []string{"", "xprv1", testXPrv[:100], "not a key"} {
		_, err := s.Sign(rawTx, key)
		require.True(t, IsError(err, ErrKeyDecode), key)
	}

	// Whitespace around a valid key, as read from a file, is accepted.
	signed, err := s.Sign(rawTx, " "+testXPrv+"\n")
	require.NoError(t, err)
	require.Equal(t, testSignedTxHex, hex.EncodeToString(signed))
}

// TestSignSigningErrorZeroesKey checks that a signing failure is reported as
// ErrSigning and that the key is still wiped.
func TestSignSigningErrorZeroesKey(t *testing.T) {
	t.Parallel()

	// Arrange: a key provider that hands out a key whose signing fails.
	keys := &mockKeyProvider{}
	key := &mockPrivateKey{}
	ext, err := keychain.DecodeExtendedKey(testXPrv)
	require.NoError(t, err)

	keys.On("Decode", "key").Return(ext, nil).Once()
	keys.On("SigningKey", ext).Return(key, nil).Once()
	key.On("PubKey").Return(mustHex(t, testVKey), nil).Once()
	key.On("Sign", mock.Anything).Return([]byte(nil), errSignMock).Once()
	key.On("Zero").Return().Once()

	s, err := New(&Config{Keys: keys})
	require.NoError(t, err)

	// Act: sign.
	_, err = s.Sign(mustHex(t, testUnsignedTxHex), "key")

	// Assert: the error is typed, wraps the cause and the keys were wiped.
	require.True(t, IsError(err, ErrSigning))
	require.ErrorIs(t, err, errSignMock)
	keys.AssertExpectations(t)
	key.AssertExpectations(t)

	_, err = ext.SigningKey()
	require.ErrorIs(t, err, keychain.ErrKeyWiped)
}

// TestSignRejectsBadSignature checks that a witness that does not verify is
// never attached.
func TestSignRejectsBadSignature(t *testing.T) {
	t.Parallel()

	keys := &mockKeyProvider{}
	key := &mockPrivateKey{}
	ext, err := keychain.DecodeExtendedKey(testXPrv)
	require.NoError(t, err)

	keys.On("Decode", "key").Return(ext, nil).Once()
	keys.On("SigningKey", ext).Return(key, nil).Once()
	key.On("PubKey").Return(mustHex(t, testVKey), nil).Once()
	key.On("Sign", mock.Anything).Return(mustHex(t, testSig2), nil).Once()
	key.On("Zero").Return().Once()

	s, err := New(&Config{Keys: keys})
	require.NoError(t, err)

	_, err = s.Sign(mustHex(t, testUnsignedTxHex), "key")
	require.True(t, IsError(err, ErrSigning))
	require.ErrorIs(t, err, witness.ErrInvalidWitness)
	key.AssertExpectations(t)
}

// TestSignEncodeError checks that an encode failure is reported as
// ErrEncode.
func TestSignEncodeError(t *testing.T) {
	t.Parallel()

	// Arrange: a codec that decodes normally but fails to encode.
	rawTx := mustHex(t, testUnsignedTxHex)
	tx, err := txcodec.Decode(rawTx)
	require.NoError(t, err)

	codec := &mockCodec{}
	codec.On("Decode", rawTx).Return(tx, nil).Once()
	codec.On("Encode", mock.Anything).
		Return([]byte(nil), errEncodeMock).Once()

	s, err := New(&Config{Codec: codec})
	require.NoError(t, err)

	// Act: sign.
	_, err = s.Sign(rawTx, testXPrv)

	// Assert: the stage and the cause are both visible.
	require.True(t, IsError(err, ErrEncode))
	require.ErrorIs(t, err, errEncodeMock)
	require.False(t, IsError(err, ErrDecode))
	codec.AssertExpectations(t)
}

// TestNewConfig checks config defaults and validation.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	s, err := New(nil)
	require.NoError(t, err)
	require.Equal(t, witness.PolicyMerge, s.cfg.Policy)
	require.NotNil(t, s.cfg.Codec)
	require.NotNil(t, s.cfg.Keys)

	_, err = New(&Config{Policy: witness.Policy(7)})
	require.True(t, IsError(err, ErrConfig))
	require.ErrorIs(t, err, ErrUnknownPolicy)
}

// TestErrorCodeString covers the error code names and message layout.
func TestErrorCodeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ErrDecode", ErrDecode.String())
	require.Equal(t, "ErrEncode", ErrEncode.String())
	require.Equal(t, "Unknown ErrorCode (42)", ErrorCode(42).String())

	err := newError(ErrSigning, "unable to sign", errSignMock)
	require.Equal(t, "unable to sign: sign error", err.Error())
	require.Equal(t, "bare", newError(ErrSigning, "bare", nil).Error())
	require.False(t, IsError(errSignMock, ErrSigning))
}

// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txcodec

import (
	"github.com/fxamacker/cbor/v2"
)

// maxNestedLevels bounds the nesting depth accepted while decoding. Plutus
// datums and scripts in the witness set can nest deeper than the library
// default.
const maxNestedLevels = 256

var (
	// decMode rejects duplicate map keys so a witness set cannot hide a
	// second vkey entry.
	decMode cbor.DecMode

	// encMode writes the parts the codec builds itself in core
	// deterministic form. Indefinite length items are allowed so raw body,
	// auxiliary data and witness values that use them are written back
	// as decoded.
	encMode cbor.EncMode
)

func init() {
	var err error

	decMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: maxNestedLevels,
	}.DecMode()
	if err != nil {
		panic(err)
	}

	encOpts := cbor.CoreDetEncOptions()
	encOpts.IndefLength = cbor.IndefLengthAllowed

	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(err)
	}
}

// Codec is the default transaction codec.
type Codec struct{}

// Decode parses a binary transaction.
func (Codec) Decode(b []byte) (*Transaction, error) {
	return Decode(b)
}

// Encode serializes a transaction.
func (Codec) Encode(tx *Transaction) ([]byte, error) {
	return Encode(tx)
}

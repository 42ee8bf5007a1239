// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txcodec decodes and encodes the binary transaction envelope:
// body, witness set, optional validity flag and auxiliary data.
//
// The body and auxiliary data are carried as raw CBOR and are never
// re-serialized. Their bytes hash to the transaction id and to the data every
// witness signs, so any change to them would invalidate the transaction.
package txcodec

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// shelleyArity is the number of elements in a pre-Alonzo transaction:
	// body, witness set and auxiliary data.
	shelleyArity = 3

	// alonzoArity is the number of elements in an Alonzo or later
	// transaction: body, witness set, is_valid and auxiliary data.
	alonzoArity = 4

	// cborMajorMap is the CBOR major type of a map.
	cborMajorMap = 5

	// cborNull is the single byte encoding of CBOR null.
	cborNull = 0xf6
)

var (
	// ErrEmptyTx is returned when asked to decode zero bytes.
	ErrEmptyTx = errors.New("empty transaction")

	// ErrTxArity is returned when the transaction array has neither three
	// nor four elements.
	ErrTxArity = errors.New("transaction must have 3 or 4 elements")

	// ErrBodyNotMap is returned when the transaction body is not a CBOR
	// map.
	ErrBodyNotMap = errors.New("transaction body is not a map")

	// ErrNilTx is returned when asked to encode a nil transaction.
	ErrNilTx = errors.New("nil transaction")

	// ErrMissingBody is returned when asked to encode a transaction
	// without a body.
	ErrMissingBody = errors.New("transaction has no body")
)

// Transaction is a decoded transaction envelope.
type Transaction struct {
	// Body is the exact encoded transaction body as found on the wire.
	Body cbor.RawMessage

	// WitnessSet holds the witnesses. It is never nil for a decoded
	// transaction.
	WitnessSet *WitnessSet

	// IsValid is the phase-2 validity flag. It is only present in
	// four-element (Alonzo and later) transactions and its presence
	// decides the arity used when encoding.
	IsValid fn.Option[bool]

	// AuxiliaryData is the exact encoded auxiliary data, if any.
	AuxiliaryData fn.Option[cbor.RawMessage]
}

// BodyBytes returns a copy of the encoded body.
func (tx *Transaction) BodyBytes() []byte {
	b := make([]byte, len(tx.Body))
	copy(b, tx.Body)

	return b
}

// Decode parses a binary transaction. Trailing data, a body that is not a
// map and malformed witnesses are all rejected.
func Decode(b []byte) (*Transaction, error) {
	if len(b) == 0 {
		return nil, ErrEmptyTx
	}

	var items []cbor.RawMessage
	if err := decMode.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}

	if len(items) != shelleyArity && len(items) != alonzoArity {
		return nil, fmt.Errorf("%w: got %d", ErrTxArity, len(items))
	}

	body := items[0]
	if majorType(body) != cborMajorMap {
		return nil, ErrBodyNotMap
	}

	ws, err := decodeWitnessSet(items[1])
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		Body:          cloneRaw(body),
		WitnessSet:    ws,
		IsValid:       fn.None[bool](),
		AuxiliaryData: fn.None[cbor.RawMessage](),
	}

	aux := items[len(items)-1]
	if len(items) == alonzoArity {
		var valid bool
		if err := decMode.Unmarshal(items[2], &valid); err != nil {
			return nil, fmt.Errorf("decode is_valid: %w", err)
		}

		tx.IsValid = fn.Some(valid)
	}

	if !(len(aux) == 1 && aux[0] == cborNull) {
		tx.AuxiliaryData = fn.Some(cloneRaw(aux))
	}

	log.Tracef("Decoded transaction: body=%d bytes, vkey witnesses=%d, "+
		"arity=%d", len(tx.Body), len(ws.VKeyWitnesses), len(items))

	return tx, nil
}

// DecodeHex parses a hex encoded binary transaction.
func DecodeHex(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode transaction hex: %w", err)
	}

	return Decode(b)
}

// Encode serializes a transaction. The body and auxiliary data are written
// verbatim, the witness set is written in deterministic form.
func Encode(tx *Transaction) ([]byte, error) {
	if tx == nil {
		return nil, ErrNilTx
	}

	if len(tx.Body) == 0 {
		return nil, ErrMissingBody
	}

	ws, err := tx.WitnessSet.toWire()
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, alonzoArity)
	items = append(items, tx.Body, ws)

	tx.IsValid.WhenSome(func(valid bool) {
		items = append(items, valid)
	})

	var aux any
	tx.AuxiliaryData.WhenSome(func(raw cbor.RawMessage) {
		aux = raw
	})
	items = append(items, aux)

	b, err := encMode.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}

	return b, nil
}

// cloneRaw copies a raw message so decoded values never alias the caller's
// input buffer.
func cloneRaw(raw cbor.RawMessage) cbor.RawMessage {
	c := make(cbor.RawMessage, len(raw))
	copy(c, raw)

	return c
}

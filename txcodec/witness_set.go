// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txcodec

import (
	"bytes"
	"errors"
	"fmt"
	"maps"

	"github.com/fxamacker/cbor/v2"
)

const (
	// VKeySize is the size of an Ed25519 verification key.
	VKeySize = 32

	// SignatureSize is the size of an Ed25519 signature.
	SignatureSize = 64

	// WitnessKeyVKey is the witness set map key holding vkey witnesses.
	// The other keys (native scripts, bootstrap witnesses, plutus scripts,
	// datums and redeemers) are carried through as raw bytes.
	WitnessKeyVKey uint64 = 0

	// setTagNumber is the CBOR tag marking a set in Conway era encodings.
	setTagNumber = 258

	// cborMajorArray and cborMajorTag are the CBOR major types of an
	// array and a tag.
	cborMajorArray = 4
	cborMajorTag   = 6
)

var (
	// ErrVKeySize is returned when a vkey witness has a verification key
	// of the wrong size.
	ErrVKeySize = fmt.Errorf("vkey must be %d bytes", VKeySize)

	// ErrSignatureSize is returned when a vkey witness has a signature of
	// the wrong size.
	ErrSignatureSize = fmt.Errorf("signature must be %d bytes",
		SignatureSize)

	// ErrUnexpectedTag is returned when the vkey witnesses are wrapped in
	// a tag other than the set tag.
	ErrUnexpectedTag = errors.New("unexpected tag on vkey witnesses")

	// ErrReservedWitnessKey is returned when Extra carries the map key
	// reserved for vkey witnesses.
	ErrReservedWitnessKey = errors.New("extra witnesses use the vkey " +
		"witness key")

	// ErrWitnessSetNotMap is returned when the witness set is not a CBOR
	// map.
	ErrWitnessSetNotMap = errors.New("witness set is not a map")

	// ErrVKeysNotArray is returned when the vkey witnesses are not a CBOR
	// array, optionally wrapped in the set tag.
	ErrVKeysNotArray = errors.New("vkey witnesses are not an array")
)

// VKeyWitness is a verification key together with its signature over a
// transaction body hash.
type VKeyWitness struct {
	VKey      [VKeySize]byte
	Signature [SignatureSize]byte
}

// wireVKeyWitness is the on-wire form of a VKeyWitness.
type wireVKeyWitness struct {
	_ struct{} `cbor:",toarray"`

	VKey      []byte
	Signature []byte
}

// WitnessSet is a decoded witness set. Only the vkey witnesses are
// interpreted.
type WitnessSet struct {
	// VKeyWitnesses are the verification key witnesses in wire order.
	VKeyWitnesses []VKeyWitness

	// Extra holds every other witness kind keyed by its map key, as raw
	// encoded values.
	Extra map[uint64]cbor.RawMessage

	// SetTag records whether the vkey witnesses were wrapped in the set
	// tag, so the same form is written back.
	SetTag bool
}

// NewWitnessSet returns an empty witness set.
func NewWitnessSet() *WitnessSet {
	return &WitnessSet{
		VKeyWitnesses: []VKeyWitness{},
		Extra:         make(map[uint64]cbor.RawMessage),
	}
}

// Copy returns a deep copy of the witness set.
func (ws *WitnessSet) Copy() *WitnessSet {
	c := NewWitnessSet()
	if ws == nil {
		return c
	}

	c.VKeyWitnesses = append(c.VKeyWitnesses, ws.VKeyWitnesses...)
	c.SetTag = ws.SetTag
	for k, v := range ws.Extra {
		c.Extra[k] = cloneRaw(v)
	}

	return c
}

// Equal reports whether two witness sets hold the same witnesses.
func (ws *WitnessSet) Equal(other *WitnessSet) bool {
	a, b := ws.Copy(), other.Copy()
	if len(a.VKeyWitnesses) != len(b.VKeyWitnesses) {
		return false
	}

	// The set tag only shows on the wire when there are vkey witnesses.
	if len(a.VKeyWitnesses) > 0 && a.SetTag != b.SetTag {
		return false
	}

	for i := range a.VKeyWitnesses {
		if a.VKeyWitnesses[i] != b.VKeyWitnesses[i] {
			return false
		}
	}

	rawEqual := func(x, y cbor.RawMessage) bool {
		return bytes.Equal(x, y)
	}

	return maps.EqualFunc(a.Extra, b.Extra, rawEqual)
}

// decodeWitnessSet parses the witness set map.
func decodeWitnessSet(raw cbor.RawMessage) (*WitnessSet, error) {
	if majorType(raw) != cborMajorMap {
		return nil, ErrWitnessSetNotMap
	}

	var entries map[uint64]cbor.RawMessage
	if err := decMode.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode witness set: %w", err)
	}

	ws := NewWitnessSet()
	for k, v := range entries {
		if k == WitnessKeyVKey {
			continue
		}
		ws.Extra[k] = v
	}

	vkeys, ok := entries[WitnessKeyVKey]
	if !ok {
		return ws, nil
	}

	// A Conway era encoding may wrap the witnesses in the set tag.
	if majorType(vkeys) == cborMajorTag {
		var tag cbor.RawTag
		if err := decMode.Unmarshal(vkeys, &tag); err != nil {
			return nil, fmt.Errorf("decode vkey witnesses: %w", err)
		}
		if tag.Number != setTagNumber {
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedTag,
				tag.Number)
		}

		ws.SetTag = true
		vkeys = tag.Content
	}

	if majorType(vkeys) != cborMajorArray {
		return nil, ErrVKeysNotArray
	}

	var wire []wireVKeyWitness
	if err := decMode.Unmarshal(vkeys, &wire); err != nil {
		return nil, fmt.Errorf("decode vkey witnesses: %w", err)
	}

	for i, w := range wire {
		vw, err := w.toVKeyWitness()
		if err != nil {
			return nil, fmt.Errorf("vkey witness %d: %w", i, err)
		}

		ws.VKeyWitnesses = append(ws.VKeyWitnesses, vw)
	}

	return ws, nil
}

// majorType returns the CBOR major type of the first item in b, or -1 when b
// is empty.
func majorType(b []byte) int {
	if len(b) == 0 {
		return -1
	}

	return int(b[0] >> 5)
}

// toVKeyWitness checks the field sizes and copies them into a VKeyWitness.
func (w wireVKeyWitness) toVKeyWitness() (VKeyWitness, error) {
	var vw VKeyWitness
	if len(w.VKey) != VKeySize {
		return vw, fmt.Errorf("%w: got %d", ErrVKeySize, len(w.VKey))
	}
	if len(w.Signature) != SignatureSize {
		return vw, fmt.Errorf("%w: got %d", ErrSignatureSize,
			len(w.Signature))
	}

	copy(vw.VKey[:], w.VKey)
	copy(vw.Signature[:], w.Signature)

	return vw, nil
}

// toWire builds the map that is encoded as the witness set. The vkey entry
// is omitted when there are no vkey witnesses.
func (ws *WitnessSet) toWire() (map[uint64]any, error) {
	out := make(map[uint64]any)
	if ws == nil {
		return out, nil
	}

	for k, v := range ws.Extra {
		if k == WitnessKeyVKey {
			return nil, ErrReservedWitnessKey
		}
		out[k] = v
	}

	if len(ws.VKeyWitnesses) == 0 {
		return out, nil
	}

	wire := make([]wireVKeyWitness, 0, len(ws.VKeyWitnesses))
	for _, vw := range ws.VKeyWitnesses {
		vw := vw
		wire = append(wire, wireVKeyWitness{
			VKey:      vw.VKey[:],
			Signature: vw.Signature[:],
		})
	}

	if ws.SetTag {
		out[WitnessKeyVKey] = cbor.Tag{
			Number:  setTagNumber,
			Content: wire,
		}
	} else {
		out[WitnessKeyVKey] = wire
	}

	return out, nil
}

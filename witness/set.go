// Copyright (c) 2025 The adasuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package witness

import (
	"fmt"

	"github.com/adasuite/txwitness/txcodec"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Policy decides what happens to vkey witnesses already present on a
// transaction when new ones are added.
type Policy uint8

const (
	// PolicyMerge keeps existing vkey witnesses and adds the new ones. A
	// new witness for a verification key that already signed replaces
	// the old entry, so signing twice with one key is idempotent.
	PolicyMerge Policy = iota

	// PolicyReplace drops existing vkey witnesses so only the new ones
	// remain. Other witness kinds are kept either way.
	PolicyReplace
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyMerge:
		return "merge"

	case PolicyReplace:
		return "replace"

	default:
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
}

// NewSet returns a fresh witness set holding the given vkey witnesses.
func NewSet(ws ...txcodec.VKeyWitness) *txcodec.WitnessSet {
	return Apply(nil, PolicyReplace, ws...)
}

// Apply returns a new witness set built from existing and the given vkey
// witnesses according to policy. The existing set is not modified.
func Apply(existing *txcodec.WitnessSet, policy Policy,
	ws ...txcodec.VKeyWitness) *txcodec.WitnessSet {

	out := existing.Copy()
	if policy == PolicyReplace {
		out.VKeyWitnesses = out.VKeyWitnesses[:0]
	}

	// Index the witnesses we keep by key so a repeated signer overwrites
	// its earlier entry in place instead of appending a duplicate.
	index := make(map[[txcodec.VKeySize]byte]int, len(out.VKeyWitnesses))
	for i, vw := range out.VKeyWitnesses {
		index[vw.VKey] = i
	}

	for _, vw := range ws {
		if i, ok := index[vw.VKey]; ok {
			out.VKeyWitnesses[i] = vw
			continue
		}

		index[vw.VKey] = len(out.VKeyWitnesses)
		out.VKeyWitnesses = append(out.VKeyWitnesses, vw)
	}

	return out
}

// Signers returns the distinct verification keys that signed the set.
func Signers(ws *txcodec.WitnessSet) fn.Set[[txcodec.VKeySize]byte] {
	signers := fn.NewSet[[txcodec.VKeySize]byte]()
	if ws == nil {
		return signers
	}

	for _, vw := range ws.VKeyWitnesses {
		signers.Add(vw.VKey)
	}

	return signers
}

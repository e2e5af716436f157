// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"github.com/commitsync/commitsyncd/internal/authset"
	"github.com/commitsync/commitsyncd/internal/field"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"lukechampine.com/blake3"
)

// commitCreationTag domain separates commit creation statement digests.
const commitCreationTag = "CommitCreation"

// NumPublicInputs is the number of field elements a commit proof exposes:
// the statement digest followed by the verifier data set root.
const NumPublicInputs = 2 * field.LimbsPerHash

// Statement is the commit creation statement a commit proof attests to: the
// item is created from inputs whose nullifiers form NullifierSetRoot, with
// the inputs proven to exist under ClaimedRoot.
type Statement struct {
	Item             chainhash.Hash
	Nullifiers       []chainhash.Hash
	NullifierSetRoot chainhash.Hash
	ClaimedRoot      chainhash.Hash
}

// NewStatement returns the statement for the provided commit contents.  The
// nullifier set root is the authenticated set commitment of exactly the
// provided nullifiers.
func NewStatement(item, claimedRoot chainhash.Hash, nullifiers []chainhash.Hash) *Statement {
	ns := make([]chainhash.Hash, len(nullifiers))
	copy(ns, nullifiers)
	return &Statement{
		Item:             item,
		Nullifiers:       ns,
		NullifierSetRoot: authset.Commit(ns),
		ClaimedRoot:      claimedRoot,
	}
}

// Digest returns the field hash committing to the statement.
func (s *Statement) Digest() chainhash.Hash {
	var buf [len(commitCreationTag) + 3*chainhash.HashSize]byte
	n := copy(buf[:], commitCreationTag)
	n += copy(buf[n:], s.Item[:])
	n += copy(buf[n:], s.NullifierSetRoot[:])
	copy(buf[n:], s.ClaimedRoot[:])
	return field.Reduce(chainhash.Hash(blake3.Sum256(buf[:])))
}

// PublicInputs returns the public inputs a proof of the statement is
// verified against.  The verifier data set root identifies the set of
// circuits the proof is allowed to originate from.
func (s *Statement) PublicInputs(vdsRoot *chainhash.Hash) []uint64 {
	digest := s.Digest()
	dl := field.Limbs(&digest)
	vl := field.Limbs(vdsRoot)
	inputs := make([]uint64, 0, NumPublicInputs)
	inputs = append(inputs, dl[:]...)
	return append(inputs, vl[:]...)
}

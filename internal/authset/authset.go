// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package authset implements an insertion-only authenticated set of hashes.
//
// The set commits to its members with a merkle tree built over the blake256
// hashes of the members in ascending byte order.  The tree root is reduced
// into the Goldilocks field so that commitments can themselves be carried as
// field hashes by the commit proof system.  The empty set commits to the zero
// hash.
package authset

import (
	"bytes"
	"sort"

	"github.com/commitsync/commitsyncd/internal/field"
	"github.com/decred/dcrd/blockchain/standalone/v2"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"
)

// leafHash returns the merkle leaf committing to the provided member.
func leafHash(member *chainhash.Hash) chainhash.Hash {
	return chainhash.Hash(blake256.Sum256(member[:]))
}

// compareHashes orders hashes by their raw bytes.
func compareHashes(a, b *chainhash.Hash) int {
	return bytes.Compare(a[:], b[:])
}

// Set is an authenticated set of hashes.
//
// The zero value is not usable.  Use New to create a set.  A Set is not safe
// for concurrent mutation; callers must provide their own synchronization.
type Set struct {
	// members houses the set members in ascending byte order and leaves
	// houses their respective merkle leaves at the same index.
	members []chainhash.Hash
	leaves  []chainhash.Hash

	// root is the reduced merkle root of the current members.  It is
	// recalculated on every insertion so readers never mutate the set.
	root chainhash.Hash
}

// New returns a set containing the provided members.  Duplicates are
// ignored.
func New(members ...chainhash.Hash) *Set {
	s := &Set{
		members: make([]chainhash.Hash, 0, len(members)),
		leaves:  make([]chainhash.Hash, 0, len(members)),
	}
	for i := range members {
		s.insert(&members[i])
	}
	s.updateRoot()
	return s
}

// search returns the index at which the member is or would be located.
func (s *Set) search(member *chainhash.Hash) (int, bool) {
	i := sort.Search(len(s.members), func(i int) bool {
		return compareHashes(&s.members[i], member) >= 0
	})
	return i, i < len(s.members) && s.members[i] == *member
}

// insert places the member at its ordered position without updating the
// root.
func (s *Set) insert(member *chainhash.Hash) bool {
	i, found := s.search(member)
	if found {
		return false
	}

	s.members = append(s.members, chainhash.Hash{})
	copy(s.members[i+1:], s.members[i:])
	s.members[i] = *member

	s.leaves = append(s.leaves, chainhash.Hash{})
	copy(s.leaves[i+1:], s.leaves[i:])
	s.leaves[i] = leafHash(member)
	return true
}

// updateRoot recalculates the commitment from the current leaves.
func (s *Set) updateRoot() {
	if len(s.leaves) == 0 {
		s.root = chainhash.Hash{}
		return
	}
	s.root = field.Reduce(s.treeRoot())
}

// Add inserts the member into the set.  It returns false without modifying
// the set when the member is already present.
func (s *Set) Add(member chainhash.Hash) bool {
	if !s.insert(&member) {
		return false
	}
	s.updateRoot()
	return true
}

// Contains returns whether the member is in the set.
func (s *Set) Contains(member *chainhash.Hash) bool {
	_, found := s.search(member)
	return found
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.members)
}

// Members returns a copy of the members in ascending byte order.
func (s *Set) Members() []chainhash.Hash {
	members := make([]chainhash.Hash, len(s.members))
	copy(members, s.members)
	return members
}

// treeRoot returns the unreduced merkle root of the set.
func (s *Set) treeRoot() chainhash.Hash {
	return standalone.CalcMerkleRoot(s.leaves)
}

// Commitment returns the root committing to the current members.
func (s *Set) Commitment() chainhash.Hash {
	return s.root
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	c := &Set{
		members: make([]chainhash.Hash, len(s.members)),
		leaves:  make([]chainhash.Hash, len(s.leaves)),
		root:    s.root,
	}
	copy(c.members, s.members)
	copy(c.leaves, s.leaves)
	return c
}

// Prove returns an inclusion proof of the member against the current
// commitment.  It returns false when the member is not in the set.
func (s *Set) Prove(member *chainhash.Hash) (*InclusionProof, bool) {
	i, found := s.search(member)
	if !found {
		return nil, false
	}

	return &InclusionProof{
		Index:    uint32(i),
		Siblings: standalone.GenerateInclusionProof(s.leaves, uint32(i)),
		TreeRoot: s.treeRoot(),
	}, true
}

// Commit returns the commitment of the set made of the provided members
// without retaining them.
func Commit(members []chainhash.Hash) chainhash.Hash {
	return New(members...).Commitment()
}

// InclusionProof proves membership of a single member relative to a set
// commitment.
type InclusionProof struct {
	// Index is the position of the member in the ordered set.
	Index uint32

	// Siblings is the merkle path from the member's leaf to the tree root.
	Siblings []chainhash.Hash

	// TreeRoot is the merkle root prior to field reduction.
	TreeRoot chainhash.Hash
}

// Verify returns whether the proof shows that member belongs to the set that
// commits to root.
func (p *InclusionProof) Verify(root, member *chainhash.Hash) bool {
	if field.Reduce(p.TreeRoot) != *root {
		return false
	}
	leaf := leafHash(member)
	return standalone.VerifyInclusionProof(&p.TreeRoot, &leaf, p.Index,
		p.Siblings)
}

// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package field provides the Goldilocks prime field checks used to validate
// hashes that are treated as field elements by the commit proof system.
//
// A field hash is a 32-byte value made of four little-endian 64-bit limbs,
// each of which must be strictly less than the field modulus.
package field

import (
	"encoding/binary"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

const (
	// Order is the Goldilocks prime 2^64 - 2^32 + 1.
	Order uint64 = 0xffffffff00000001

	// LimbsPerHash is the number of field elements packed into a hash.
	LimbsPerHash = chainhash.HashSize / 8
)

// IsCanonical returns whether the provided limb is a canonical encoding of a
// field element.
func IsCanonical(limb uint64) bool {
	return limb < Order
}

// Limbs splits the hash into its little-endian limbs.
func Limbs(h *chainhash.Hash) [LimbsPerHash]uint64 {
	var limbs [LimbsPerHash]uint64
	for i := range limbs {
		limbs[i] = binary.LittleEndian.Uint64(h[i*8:])
	}
	return limbs
}

// FromLimbs packs the limbs into a hash without performing any range checks.
func FromLimbs(limbs [LimbsPerHash]uint64) chainhash.Hash {
	var h chainhash.Hash
	for i, limb := range limbs {
		binary.LittleEndian.PutUint64(h[i*8:], limb)
	}
	return h
}

// IsFieldHash returns whether every limb of the hash is a canonical field
// element.
func IsFieldHash(h *chainhash.Hash) bool {
	for _, limb := range Limbs(h) {
		if !IsCanonical(limb) {
			return false
		}
	}
	return true
}

// Reduce maps an arbitrary hash onto a field hash by reducing each limb
// modulo the field order.  Field hashes are returned unchanged.
func Reduce(h chainhash.Hash) chainhash.Hash {
	limbs := Limbs(&h)
	for i, limb := range limbs {
		// A single subtraction suffices since 2*Order > 2^64.
		if limb >= Order {
			limbs[i] = limb - Order
		}
	}
	return FromLimbs(limbs)
}

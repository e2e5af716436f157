// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package proof defines the succinct proofs attached to commits, the
// statements they attest to and the verifier backends able to check them.
//
// Two proof kinds exist.  Plonky2 proofs are compressed proofs whose
// serialized length can only be determined with the circuit metadata, which
// is exposed to decoders through the Context interface.  Groth16 proofs are
// opaque length-prefixed byte strings verified by a gnark BN254 verifying
// key.  A Dispatcher routes each proof to the backend for its kind.
package proof

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies the proof system a proof belongs to.  It is encoded as a
// single byte on the wire.
type Kind uint8

// These constants define the recognized proof kinds.
const (
	// KindPlonky2 is a compressed plonky2 proof.
	KindPlonky2 Kind = 0

	// KindGroth16 is a groth16 proof over BN254 wrapping a plonky2 proof.
	KindGroth16 Kind = 1
)

// kindStrings is a map of proof kinds back to their constant names for
// pretty printing.
var kindStrings = map[Kind]string{
	KindPlonky2: "plonky2",
	KindGroth16: "groth16",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if s, ok := kindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Kind (%d)", uint8(k))
}

// IsKnown returns whether the kind is one of the recognized kinds.
func (k Kind) IsKnown() bool {
	_, ok := kindStrings[k]
	return ok
}

// ParseKind returns the kind with the provided case-insensitive name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindStrings {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	str := fmt.Sprintf("unrecognized proof kind %q", s)
	return 0, proofError(ErrUnknownKind, str)
}

// Proof is a proof of a particular kind.  Data is opaque past the kind.
type Proof struct {
	Kind Kind
	Data []byte
}

// Context provides the circuit metadata required to parse plonky2 proofs.
type Context interface {
	// CompressedProofLen returns the number of bytes at the start of b that
	// make up a serialized compressed proof.
	CompressedProofLen(ctx context.Context, b []byte) (int, error)
}

// Verifier checks a proof against a statement.
//
// Implementations return nil only when the proof is valid.  Errors must
// allow the caller to distinguish an invalid proof (ErrVerification,
// ErrMalformedProof) from a backend failure (ErrBackend).
type Verifier interface {
	Verify(ctx context.Context, st *Statement, p *Proof) error
}

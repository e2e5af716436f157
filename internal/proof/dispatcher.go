// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"context"
	"fmt"
)

// Dispatcher is a Verifier that routes each proof to the backend configured
// for its kind.  A nil backend disables the kind.
type Dispatcher struct {
	Plonky2 Verifier
	Groth16 Verifier
}

// Verify verifies the proof with the backend for its kind.
//
// This is part of the Verifier interface.
func (d *Dispatcher) Verify(ctx context.Context, st *Statement, p *Proof) error {
	var v Verifier
	switch p.Kind {
	case KindPlonky2:
		v = d.Plonky2
	case KindGroth16:
		v = d.Groth16
	default:
		str := fmt.Sprintf("no verifier for %v proofs", p.Kind)
		return proofError(ErrUnknownKind, str)
	}
	if v == nil {
		str := fmt.Sprintf("%v proofs are not accepted by this node", p.Kind)
		return proofError(ErrKindDisabled, str)
	}
	return v.Verify(ctx, st, p)
}

// EnabledKinds returns the kinds with a configured backend.
func (d *Dispatcher) EnabledKinds() []Kind {
	var kinds []Kind
	if d.Plonky2 != nil {
		kinds = append(kinds, KindPlonky2)
	}
	if d.Groth16 != nil {
		kinds = append(kinds, KindGroth16)
	}
	return kinds
}

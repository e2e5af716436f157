// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// Groth16Verifier verifies groth16 proofs over BN254 with a verifying key
// loaded once at startup.  It is safe for concurrent use.
type Groth16Verifier struct {
	vk      groth16.VerifyingKey
	vdsRoot chainhash.Hash
}

// NewGroth16Verifier reads a serialized gnark verifying key from r.
func NewGroth16Verifier(r io.Reader, vdsRoot chainhash.Hash) (*Groth16Verifier, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read groth16 verifying key: %w", err)
	}
	if n := vk.NbPublicWitness(); n != NumPublicInputs {
		return nil, fmt.Errorf("groth16 verifying key expects %d public "+
			"inputs instead of %d", n, NumPublicInputs)
	}
	return &Groth16Verifier{vk: vk, vdsRoot: vdsRoot}, nil
}

// LoadGroth16Verifier loads the verifying key stored at the provided path.
func LoadGroth16Verifier(path string, vdsRoot chainhash.Hash) (*Groth16Verifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := NewGroth16Verifier(f, vdsRoot)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded groth16 verifying key from %s", path)
	return v, nil
}

// publicWitness returns the public witness of the statement.
func (v *Groth16Verifier) publicWitness(st *Statement) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	inputs := st.PublicInputs(&v.vdsRoot)
	values := make(chan any, len(inputs))
	for _, input := range inputs {
		values <- input
	}
	close(values)
	if err := w.Fill(len(inputs), 0, values); err != nil {
		return nil, err
	}
	return w, nil
}

// Verify verifies the groth16 proof against the statement.
//
// This is part of the Verifier interface.
func (v *Groth16Verifier) Verify(_ context.Context, st *Statement, p *Proof) error {
	if p.Kind != KindGroth16 {
		str := fmt.Sprintf("groth16 verifier given %v proof", p.Kind)
		return proofError(ErrUnknownKind, str)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(p.Data)); err != nil {
		str := fmt.Sprintf("unable to parse groth16 proof: %v", err)
		return proofError(ErrMalformedProof, str)
	}
	w, err := v.publicWitness(st)
	if err != nil {
		str := fmt.Sprintf("unable to build public witness: %v", err)
		return proofError(ErrBackend, str)
	}
	if err := groth16.Verify(proof, v.vk, w); err != nil {
		str := fmt.Sprintf("groth16 proof does not verify: %v", err)
		return proofError(ErrVerification, str)
	}
	return nil
}

// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"context"
	"errors"
	"testing"
)

// TestParseKind ensures proof kinds parse from their names regardless of
// case and that unknown names are rejected.
func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr error
	}{
		{in: "plonky2", want: KindPlonky2},
		{in: "Groth16", want: KindGroth16},
		{in: "GROTH16", want: KindGroth16},
		{in: "stark", wantErr: ErrUnknownKind},
		{in: "", wantErr: ErrUnknownKind},
	}
	for _, test := range tests {
		got, err := ParseKind(test.in)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%q: unexpected error: got %v, want %v", test.in, err,
				test.wantErr)
			continue
		}
		if err == nil && got != test.want {
			t.Errorf("%q: got %v, want %v", test.in, got, test.want)
		}
	}

	if s := Kind(9).String(); s != "Unknown Kind (9)" {
		t.Errorf("unexpected unknown kind string %q", s)
	}
	if Kind(2).IsKnown() {
		t.Error("kind 2 reported as known")
	}
}

// recordingVerifier is a Verifier that records the proofs it was given.
type recordingVerifier struct {
	seen []*Proof
	err  error
}

func (v *recordingVerifier) Verify(_ context.Context, _ *Statement, p *Proof) error {
	v.seen = append(v.seen, p)
	return v.err
}

// TestDispatcher ensures proofs are routed to the backend for their kind and
// that disabled or unknown kinds are rejected without reaching a backend.
func TestDispatcher(t *testing.T) {
	plonky2 := &recordingVerifier{}
	groth16 := &recordingVerifier{err: proofError(ErrVerification, "bad")}
	st := NewStatement(testHash(1), testHash(2), nil)

	d := &Dispatcher{Plonky2: plonky2, Groth16: groth16}
	if err := d.Verify(context.Background(), st, &Proof{Kind: KindPlonky2}); err != nil {
		t.Fatalf("unexpected plonky2 error: %v", err)
	}
	err := d.Verify(context.Background(), st, &Proof{Kind: KindGroth16})
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("unexpected groth16 error: %v", err)
	}
	if len(plonky2.seen) != 1 || len(groth16.seen) != 1 {
		t.Fatalf("unexpected routing: %d plonky2, %d groth16",
			len(plonky2.seen), len(groth16.seen))
	}

	err = d.Verify(context.Background(), st, &Proof{Kind: Kind(7)})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("unexpected unknown kind error: %v", err)
	}

	disabled := &Dispatcher{Plonky2: plonky2}
	err = disabled.Verify(context.Background(), st, &Proof{Kind: KindGroth16})
	if !errors.Is(err, ErrKindDisabled) {
		t.Fatalf("unexpected disabled kind error: %v", err)
	}
	if kinds := disabled.EnabledKinds(); len(kinds) != 1 || kinds[0] != KindPlonky2 {
		t.Fatalf("unexpected enabled kinds %v", kinds)
	}
}

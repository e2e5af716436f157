// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package payload implements the binary codec of the commit messages carried
// in blobs.
//
// A payload is laid out as follows, with all integers little endian:
//
//	magic        u16 (0xad00)
//	proof kind   u8
//	proof body   plonky2: compressed proof sized by the proof context
//	             groth16: u64 length followed by that many bytes
//	item         4 x u64 field elements
//	claimed root 4 x u64 field elements
//	count        u8
//	nullifiers   count x (4 x u64 field elements)
//
// Bytes following the nullifiers are ignored so payloads can be decoded
// straight out of zero padded blobs.
package payload

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/commitsync/commitsyncd/internal/field"
	"github.com/commitsync/commitsyncd/internal/proof"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

const (
	// Magic identifies a commit payload.
	Magic uint16 = 0xad00

	// MaxNullifiers is the maximum number of nullifiers a payload carries.
	MaxNullifiers = math.MaxUint8

	// headerLen is the length of the magic and proof kind.
	headerLen = 3

	// groth16LenSize is the size of the groth16 proof length prefix.
	groth16LenSize = 8
)

// Payload is a commit message: a proof that Item is created from inputs
// proven to exist under ClaimedRoot and consumed by revealing Nullifiers.
type Payload struct {
	Proof       proof.Proof
	Item        chainhash.Hash
	ClaimedRoot chainhash.Hash
	Nullifiers  []chainhash.Hash
}

// SerializeSize returns the number of bytes Encode produces for the payload.
func (p *Payload) SerializeSize() int {
	n := headerLen + len(p.Proof.Data)
	if p.Proof.Kind == proof.KindGroth16 {
		n += groth16LenSize
	}
	return n + 2*chainhash.HashSize + 1 + len(p.Nullifiers)*chainhash.HashSize
}

// Statement returns the commit creation statement the payload's proof must
// attest to.
func (p *Payload) Statement() *proof.Statement {
	return proof.NewStatement(p.Item, p.ClaimedRoot, p.Nullifiers)
}

// checkFieldHash returns an error when any limb of the hash is out of the
// field range.
func checkFieldHash(h *chainhash.Hash, what string) error {
	for i, limb := range field.Limbs(h) {
		if !field.IsCanonical(limb) {
			str := fmt.Sprintf("%s limb %d (%#x) is not below the field "+
				"modulus", what, i, limb)
			return codecError(ErrFieldOutOfRange, str)
		}
	}
	return nil
}

// Encode serializes the payload.
//
// Only valid payloads are encoded: the proof kind must be known, every hash
// must be a field hash and there must be at most MaxNullifiers nullifiers.
func Encode(p *Payload) ([]byte, error) {
	if !p.Proof.Kind.IsKnown() {
		str := fmt.Sprintf("unknown proof kind %d", uint8(p.Proof.Kind))
		return nil, codecError(ErrUnknownProofKind, str)
	}
	if len(p.Nullifiers) > MaxNullifiers {
		str := fmt.Sprintf("payload has %d nullifiers which is more than "+
			"the max allowed of %d", len(p.Nullifiers), MaxNullifiers)
		return nil, codecError(ErrTooManyNullifiers, str)
	}
	if err := checkFieldHash(&p.Item, "item"); err != nil {
		return nil, err
	}
	if err := checkFieldHash(&p.ClaimedRoot, "claimed root"); err != nil {
		return nil, err
	}
	for i := range p.Nullifiers {
		what := fmt.Sprintf("nullifier %d", i)
		if err := checkFieldHash(&p.Nullifiers[i], what); err != nil {
			return nil, err
		}
	}

	b := make([]byte, 0, p.SerializeSize())
	b = binary.LittleEndian.AppendUint16(b, Magic)
	b = append(b, byte(p.Proof.Kind))
	switch p.Proof.Kind {
	case proof.KindPlonky2:
		b = append(b, p.Proof.Data...)
	case proof.KindGroth16:
		b = binary.LittleEndian.AppendUint64(b, uint64(len(p.Proof.Data)))
		b = append(b, p.Proof.Data...)
	}
	b = append(b, p.Item[:]...)
	b = append(b, p.ClaimedRoot[:]...)
	b = append(b, byte(len(p.Nullifiers)))
	for i := range p.Nullifiers {
		b = append(b, p.Nullifiers[i][:]...)
	}
	return b, nil
}

// reader consumes a payload while tracking the offset for error reporting.
type reader struct {
	b   []byte
	off int
}

// next returns the following n bytes.
func (r *reader) next(n int, what string) ([]byte, error) {
	if n < 0 || len(r.b)-r.off < n {
		str := fmt.Sprintf("%s at offset %d needs %d bytes, %d available",
			what, r.off, n, len(r.b)-r.off)
		return nil, codecError(ErrTruncated, str)
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v, nil
}

// fieldHash reads a hash and checks it is a field hash.
func (r *reader) fieldHash(what string) (chainhash.Hash, error) {
	var h chainhash.Hash
	v, err := r.next(chainhash.HashSize, what)
	if err != nil {
		return h, err
	}
	copy(h[:], v)
	return h, checkFieldHash(&h, what)
}

// proofBody reads the proof of the provided kind.
func (r *reader) proofBody(ctx context.Context, kind proof.Kind, pctx proof.Context) ([]byte, error) {
	var n int
	switch kind {
	case proof.KindPlonky2:
		if pctx == nil {
			return nil, codecError(ErrMalformedProof, "no proof context "+
				"available to size plonky2 proof")
		}
		var err error
		n, err = pctx.CompressedProofLen(ctx, r.b[r.off:])
		if errors.Is(err, proof.ErrBackend) {
			return nil, err
		}
		if err != nil {
			str := fmt.Sprintf("unable to size plonky2 proof: %v", err)
			return nil, CodecError{Err: ErrMalformedProof, Description: str}
		}

	case proof.KindGroth16:
		v, err := r.next(groth16LenSize, "groth16 proof length")
		if err != nil {
			return nil, err
		}
		declared := binary.LittleEndian.Uint64(v)
		if declared > uint64(len(r.b)-r.off) {
			str := fmt.Sprintf("groth16 proof declares %d bytes, %d "+
				"available", declared, len(r.b)-r.off)
			return nil, codecError(ErrTruncated, str)
		}
		n = int(declared)

	default:
		str := fmt.Sprintf("unknown proof kind %d", uint8(kind))
		return nil, codecError(ErrUnknownProofKind, str)
	}

	v, err := r.next(n, kind.String()+" proof")
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	copy(data, v)
	return data, nil
}

// Decode parses a payload from the start of b.  The proof context sizes
// plonky2 proofs and may be nil when only groth16 payloads are expected.
//
// Malformed payloads result in a CodecError.  A failure of the proof context
// backend is returned unchanged since it says nothing about the payload.
func Decode(ctx context.Context, b []byte, pctx proof.Context) (*Payload, error) {
	r := &reader{b: b}
	header, err := r.next(headerLen, "header")
	if err != nil {
		return nil, err
	}
	if magic := binary.LittleEndian.Uint16(header); magic != Magic {
		str := fmt.Sprintf("payload magic %#04x does not match %#04x",
			magic, Magic)
		return nil, codecError(ErrBadMagic, str)
	}
	kind := proof.Kind(header[2])
	if !kind.IsKnown() {
		str := fmt.Sprintf("unknown proof kind %d", header[2])
		return nil, codecError(ErrUnknownProofKind, str)
	}

	p := &Payload{Proof: proof.Proof{Kind: kind}}
	if p.Proof.Data, err = r.proofBody(ctx, kind, pctx); err != nil {
		return nil, err
	}
	if p.Item, err = r.fieldHash("item"); err != nil {
		return nil, err
	}
	if p.ClaimedRoot, err = r.fieldHash("claimed root"); err != nil {
		return nil, err
	}
	count, err := r.next(1, "nullifier count")
	if err != nil {
		return nil, err
	}
	if count[0] > 0 {
		p.Nullifiers = make([]chainhash.Hash, count[0])
	}
	for i := range p.Nullifiers {
		what := fmt.Sprintf("nullifier %d", i)
		if p.Nullifiers[i], err = r.fieldHash(what); err != nil {
			return nil, err
		}
	}
	return p, nil
}

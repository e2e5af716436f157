// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package beacon

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

// BlockID identifies a beacon block by slot, root or one of the named
// identifiers such as "head".
type BlockID string

// HeadID identifies the canonical head of the chain.
const HeadID BlockID = "head"

// SlotID returns the identifier of the canonical block at the slot.
func SlotID(slot uint64) BlockID {
	return BlockID(strconv.FormatUint(slot, 10))
}

// RootID returns the identifier of the block with the provided root.
func RootID(root common.Hash) BlockID {
	return BlockID(root.Hex())
}

// Header is a beacon block header.
type Header struct {
	Root          common.Hash
	Canonical     bool
	Slot          uint64
	ProposerIndex uint64
	ParentRoot    common.Hash
	StateRoot     common.Hash
	BodyRoot      common.Hash
}

// ExecutionPayload is the part of an execution payload the indexer uses.
type ExecutionPayload struct {
	BlockHash   common.Hash
	BlockNumber uint64
	Timestamp   uint64
}

// Block is the part of a beacon block the indexer uses.
type Block struct {
	Slot uint64

	// ExecutionPayload is nil for blocks without an execution payload.
	ExecutionPayload *ExecutionPayload

	BlobKZGCommitments []kzg4844.Commitment
}

// Sidecar is a blob along with its KZG commitment and proof.
type Sidecar struct {
	Index         uint64
	Blob          kzg4844.Blob
	KZGCommitment kzg4844.Commitment
	KZGProof      kzg4844.Proof
}

// VersionedHash returns the versioned hash transactions reference the blob
// by.
func (s *Sidecar) VersionedHash() common.Hash {
	return common.Hash(kzg4844.CalcBlobHashV1(sha256.New(), &s.KZGCommitment))
}

// Spec is the chain configuration reported by the node.
type Spec map[string]any

// Uint returns the named spec value as an unsigned integer.
func (s Spec) Uint(key string) (uint64, error) {
	v, ok := s[key]
	if !ok {
		return 0, fmt.Errorf("spec has no %s", key)
	}
	str, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("spec %s is a %T", key, v)
	}
	return strconv.ParseUint(str, 10, 64)
}

// The following types mirror the JSON encoding of the beacon node API.
// Integers are encoded as decimal strings.

type headerResponse struct {
	Data struct {
		Root      common.Hash `json:"root"`
		Canonical bool        `json:"canonical"`
		Header    struct {
			Message struct {
				Slot          uint64      `json:"slot,string"`
				ProposerIndex uint64      `json:"proposer_index,string"`
				ParentRoot    common.Hash `json:"parent_root"`
				StateRoot     common.Hash `json:"state_root"`
				BodyRoot      common.Hash `json:"body_root"`
			} `json:"message"`
		} `json:"header"`
	} `json:"data"`
}

type blockResponse struct {
	Version string `json:"version"`
	Data    struct {
		Message struct {
			Slot uint64 `json:"slot,string"`
			Body struct {
				ExecutionPayload *struct {
					BlockHash   common.Hash `json:"block_hash"`
					BlockNumber uint64      `json:"block_number,string"`
					Timestamp   uint64      `json:"timestamp,string"`
				} `json:"execution_payload"`
				BlobKZGCommitments []hexutil.Bytes `json:"blob_kzg_commitments"`
			} `json:"body"`
		} `json:"message"`
	} `json:"data"`
}

type sidecarJSON struct {
	Index         uint64        `json:"index,string"`
	Blob          hexutil.Bytes `json:"blob"`
	KZGCommitment hexutil.Bytes `json:"kzg_commitment"`
	KZGProof      hexutil.Bytes `json:"kzg_proof"`
}

type sidecarsResponse struct {
	Data []sidecarJSON `json:"data"`
}

type specResponse struct {
	Data Spec `json:"data"`
}

// copyFixed copies b into dst requiring the lengths to match.
func copyFixed(dst, b []byte, what string) error {
	if len(b) != len(dst) {
		return fmt.Errorf("%s is %d bytes instead of %d", what, len(b),
			len(dst))
	}
	copy(dst, b)
	return nil
}

// toHeader converts the response into a Header.
func (r *headerResponse) toHeader() *Header {
	msg := &r.Data.Header.Message
	return &Header{
		Root:          r.Data.Root,
		Canonical:     r.Data.Canonical,
		Slot:          msg.Slot,
		ProposerIndex: msg.ProposerIndex,
		ParentRoot:    msg.ParentRoot,
		StateRoot:     msg.StateRoot,
		BodyRoot:      msg.BodyRoot,
	}
}

// toBlock converts the response into a Block.
func (r *blockResponse) toBlock() (*Block, error) {
	msg := &r.Data.Message
	b := &Block{Slot: msg.Slot}
	if ep := msg.Body.ExecutionPayload; ep != nil {
		b.ExecutionPayload = &ExecutionPayload{
			BlockHash:   ep.BlockHash,
			BlockNumber: ep.BlockNumber,
			Timestamp:   ep.Timestamp,
		}
	}
	if n := len(msg.Body.BlobKZGCommitments); n > 0 {
		b.BlobKZGCommitments = make([]kzg4844.Commitment, n)
		for i, c := range msg.Body.BlobKZGCommitments {
			what := fmt.Sprintf("blob kzg commitment %d", i)
			if err := copyFixed(b.BlobKZGCommitments[i][:], c, what); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// toSidecar converts the JSON sidecar into a Sidecar.
func (s *sidecarJSON) toSidecar() (*Sidecar, error) {
	sc := &Sidecar{Index: s.Index}
	what := fmt.Sprintf("sidecar %d ", s.Index)
	if err := copyFixed(sc.Blob[:], s.Blob, what+"blob"); err != nil {
		return nil, err
	}
	if err := copyFixed(sc.KZGCommitment[:], s.KZGCommitment, what+"commitment"); err != nil {
		return nil, err
	}
	if err := copyFixed(sc.KZGProof[:], s.KZGProof, what+"proof"); err != nil {
		return nil, err
	}
	return sc, nil
}

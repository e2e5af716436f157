// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/blob"
	"github.com/commitsync/commitsyncd/internal/execution"
	"github.com/commitsync/commitsyncd/internal/field"
	"github.com/commitsync/commitsyncd/internal/payload"
	"github.com/commitsync/commitsyncd/internal/proof"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

// mockVerifier accepts every proof unless an error is set.
type mockVerifier struct {
	mtx   sync.Mutex
	err   error
	calls atomic.Int32
}

func (v *mockVerifier) Verify(_ context.Context, _ *proof.Statement, _ *proof.Proof) error {
	v.calls.Add(1)
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return v.err
}

func (v *mockVerifier) setErr(err error) {
	v.mtx.Lock()
	v.err = err
	v.mtx.Unlock()
}

// itemN returns a field hash used as an item or nullifier in tests.
func itemN(n uint64) chainhash.Hash {
	return field.FromLimbs([field.LimbsPerHash]uint64{n, 17, n * 3, 1})
}

// dataSidecar returns a sidecar carrying data whose commitment is filled
// with the seed.
func dataSidecar(t *testing.T, seed byte, data []byte) *beacon.Sidecar {
	t.Helper()
	b, err := blob.Pack(data)
	if err != nil {
		t.Fatalf("unable to pack blob: %v", err)
	}
	sc := &beacon.Sidecar{Index: uint64(seed), Blob: *b}
	for i := range sc.KZGCommitment {
		sc.KZGCommitment[i] = seed
	}
	return sc
}

// commitSidecar returns a sidecar carrying a groth16 commit.
func commitSidecar(t *testing.T, seed byte, item, root chainhash.Hash, nullifiers ...chainhash.Hash) *beacon.Sidecar {
	t.Helper()
	b, err := payload.Encode(&payload.Payload{
		Proof:       proof.Proof{Kind: proof.KindGroth16, Data: []byte{seed, 1, 2}},
		Item:        item,
		ClaimedRoot: root,
		Nullifiers:  nullifiers,
	})
	if err != nil {
		t.Fatalf("unable to encode payload: %v", err)
	}
	return dataSidecar(t, seed, b)
}

// oversizedSidecar returns a sidecar whose declared length exceeds the blob
// capacity.
func oversizedSidecar(seed byte) *beacon.Sidecar {
	sc := &beacon.Sidecar{Index: uint64(seed)}
	for i := range sc.KZGCommitment {
		sc.KZGCommitment[i] = seed
	}
	sc.Blob[4] = 0x10
	return sc
}

// fakeConsensus serves a fixed chain.  Head requests return the entries of
// heads in order, repeating the last one.
type fakeConsensus struct {
	mtx      sync.Mutex
	headers  map[uint64]*beacon.Header
	blocks   map[common.Hash]*beacon.Block
	heads    []uint64
	failures map[uint64]int
	calls    int
}

func newFakeConsensus(heads ...uint64) *fakeConsensus {
	return &fakeConsensus{
		headers:  make(map[uint64]*beacon.Header),
		blocks:   make(map[common.Hash]*beacon.Block),
		heads:    heads,
		failures: make(map[uint64]int),
	}
}

// slotRoot returns the block root used for the slot.
func slotRoot(slot uint64) common.Hash {
	var root common.Hash
	root[0] = 0xbe
	binary.BigEndian.PutUint64(root[24:], slot)
	return root
}

// addBlock adds a block at the slot.
func (f *fakeConsensus) addBlock(slot uint64, blk *beacon.Block) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	root := slotRoot(slot)
	f.headers[slot] = &beacon.Header{Root: root, Canonical: true, Slot: slot}
	blk.Slot = slot
	f.blocks[root] = blk
}

// failSlot makes the next n header requests for the slot fail.
func (f *fakeConsensus) failSlot(slot uint64, n int) {
	f.mtx.Lock()
	f.failures[slot] = n
	f.mtx.Unlock()
}

func (f *fakeConsensus) BlockHeader(_ context.Context, id beacon.BlockID) (*beacon.Header, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls++

	if id == beacon.HeadID {
		head := f.heads[0]
		if len(f.heads) > 1 {
			f.heads = f.heads[1:]
		}
		if hdr, ok := f.headers[head]; ok {
			return hdr, nil
		}
		return &beacon.Header{Root: slotRoot(head), Slot: head}, nil
	}

	slot, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad block id %q", id)
	}
	if f.failures[slot] > 0 {
		f.failures[slot]--
		return nil, errors.New("consensus node unavailable")
	}
	return f.headers[slot], nil
}

func (f *fakeConsensus) Block(_ context.Context, id beacon.BlockID) (*beacon.Block, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls++
	for root, blk := range f.blocks {
		if beacon.RootID(root) == id {
			return blk, nil
		}
	}
	return nil, nil
}

func (f *fakeConsensus) Spec(_ context.Context) (beacon.Spec, error) {
	return beacon.Spec{
		"CONFIG_NAME":      "testnet",
		"SECONDS_PER_SLOT": "12",
	}, nil
}

// fakeExecution serves fixed execution blocks.
type fakeExecution struct {
	blocks map[common.Hash]*execution.Block
	calls  atomic.Int32
}

func (f *fakeExecution) BlockByHash(_ context.Context, hash common.Hash) (*execution.Block, error) {
	f.calls.Add(1)
	return f.blocks[hash], nil
}

// fakeBlobs serves fixed sidecars and records the requested hashes.
type fakeBlobs struct {
	mtx      sync.Mutex
	sidecars map[common.Hash]*beacon.Sidecar
	required [][]common.Hash
}

func newFakeBlobs(sidecars ...*beacon.Sidecar) *fakeBlobs {
	f := &fakeBlobs{sidecars: make(map[common.Hash]*beacon.Sidecar)}
	for _, sc := range sidecars {
		f.sidecars[sc.VersionedHash()] = sc
	}
	return f
}

func (f *fakeBlobs) GetBlobs(_ context.Context, _ uint64, required []common.Hash) (map[common.Hash]*beacon.Sidecar, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.required = append(f.required, required)
	res := make(map[common.Hash]*beacon.Sidecar, len(required))
	for _, vh := range required {
		sc, ok := f.sidecars[vh]
		if !ok {
			return nil, fmt.Errorf("missing blob %v", vh)
		}
		res[vh] = sc
	}
	return res, nil
}

func (f *fakeBlobs) numCalls() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.required)
}

// execHash returns the execution block hash used for the slot.
func execHash(slot uint64) common.Hash {
	var hash common.Hash
	hash[0] = 0xee
	binary.BigEndian.PutUint64(hash[24:], slot)
	return hash
}

// commitBlock returns a consensus block with blobs and registers its
// execution block carrying the transactions.
func commitBlock(exec *fakeExecution, slot uint64, txns ...*execution.Tx) *beacon.Block {
	hash := execHash(slot)
	exec.blocks[hash] = &execution.Block{
		Hash:         hash,
		Number:       slot + 100,
		Time:         1_700_000_000 + slot*12,
		Transactions: txns,
	}
	return &beacon.Block{
		ExecutionPayload: &beacon.ExecutionPayload{
			BlockHash:   hash,
			BlockNumber: slot + 100,
			Timestamp:   1_700_000_000 + slot*12,
		},
		BlobKZGCommitments: make([]kzg4844.Commitment, 1),
	}
}

var (
	recipient = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	otherAddr = common.HexToAddress("0x0000000000000000000000000000000000000bad")
)

// blobTx returns a transaction to the address carrying the sidecars.
func blobTx(n byte, to common.Address, sidecars ...*beacon.Sidecar) *execution.Tx {
	tx := &execution.Tx{
		Hash: common.Hash{0x7a, n},
		From: common.Address{0xf0, n},
		To:   &to,
	}
	for _, sc := range sidecars {
		tx.BlobHashes = append(tx.BlobHashes, sc.VersionedHash())
	}
	return tx
}

// consensusCalls returns the number of consensus requests served.
func (h *walkerHarness) consensusCalls() int {
	h.consensus.mtx.Lock()
	defer h.consensus.mtx.Unlock()
	return h.consensus.calls
}

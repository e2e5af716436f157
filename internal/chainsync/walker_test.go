// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/execution"
	"github.com/commitsync/commitsyncd/internal/ledger"
	"github.com/commitsync/commitsyncd/internal/proof"
	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common"
)

// walkerHarness bundles a walker with its fakes.
type walkerHarness struct {
	consensus *fakeConsensus
	exec      *fakeExecution
	blobs     *fakeBlobs
	verifier  *mockVerifier
	ledger    *ledger.Ledger
	walker    *Walker
}

func newWalkerHarness(sidecars ...*beacon.Sidecar) *walkerHarness {
	h := &walkerHarness{
		consensus: newFakeConsensus(0),
		exec:      &fakeExecution{blocks: make(map[common.Hash]*execution.Block)},
		blobs:     newFakeBlobs(sidecars...),
		verifier:  &mockVerifier{},
	}
	h.ledger = ledger.New(h.verifier)
	h.walker = NewWalker(&WalkerConfig{
		Consensus: h.consensus,
		Execution: h.exec,
		Blobs:     h.blobs,
		Processor: NewProcessor(&ProcessorConfig{Ledger: h.ledger}),
		Recipient: recipient,
	})
	return h
}

// TestProcessSlotWithoutBlobs ensures slots without blobs are skipped
// without fetching any blobs.
func TestProcessSlotWithoutBlobs(t *testing.T) {
	h := newWalkerHarness()
	h.consensus.addBlock(1, &beacon.Block{
		ExecutionPayload: &beacon.ExecutionPayload{
			BlockHash: execHash(1),
			Timestamp: 1_700_000_000,
		},
	})
	h.consensus.addBlock(2, &beacon.Block{})

	for _, slot := range []uint64{0, 1, 2} {
		found, err := h.walker.ProcessSlot(context.Background(), slot)
		if err != nil {
			t.Fatalf("slot %d: unexpected error: %v", slot, err)
		}
		if found {
			t.Fatalf("slot %d: reported commit transactions", slot)
		}
	}
	if n := h.blobs.numCalls(); n != 0 {
		t.Fatalf("blobs fetched %d times", n)
	}
	if n := h.exec.calls.Load(); n != 0 {
		t.Fatalf("execution node queried %d times", n)
	}
}

// TestProcessSlotCommits ensures only blob transactions sent to the
// recipient are processed, in transaction and blob order, and that a
// discarded blob does not stop the others.
func TestProcessSlotCommits(t *testing.T) {
	genesis := chainhash.Hash{}
	first := commitSidecar(t, 1, itemN(1), genesis)
	garbage := dataSidecar(t, 2, []byte("not a payload"))
	elsewhere := commitSidecar(t, 3, itemN(3), genesis)
	dup := commitSidecar(t, 4, itemN(1), genesis)
	second := commitSidecar(t, 5, itemN(2), genesis, itemN(40))

	h := newWalkerHarness(first, garbage, elsewhere, dup, second)
	if root, _ := h.ledger.Root(0); root != genesis {
		t.Fatalf("unexpected genesis root %v", root)
	}
	h.consensus.addBlock(7, commitBlock(h.exec, 7,
		blobTx(1, recipient, first, garbage),
		blobTx(2, otherAddr, elsewhere),
		blobTx(3, recipient),
		blobTx(4, recipient, dup, second),
	))

	found, err := h.walker.ProcessSlot(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("commit transactions not reported")
	}

	want := [][]common.Hash{{
		first.VersionedHash(), garbage.VersionedHash(),
		dup.VersionedHash(), second.VersionedHash(),
	}}
	if !reflect.DeepEqual(h.blobs.required, want) {
		t.Fatalf("mismatched blob requests -- got %v, want %v",
			spew.Sdump(h.blobs.required), spew.Sdump(want))
	}
	_, items := h.ledger.Items()
	if h.ledger.Epoch() != 2 || len(items) != 2 {
		t.Fatalf("unexpected ledger state: epoch %d, %d items",
			h.ledger.Epoch(), len(items))
	}
	nullifier, skipped := itemN(40), itemN(3)
	if !h.ledger.NullifierExists(&nullifier) {
		t.Fatal("nullifier of the second commit not recorded")
	}
	if _, _, err := h.ledger.InclusionProof(&skipped); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("item sent elsewhere was accepted: %v", err)
	}

	// Processing the slot again does not verify anything twice.
	calls := h.verifier.calls.Load()
	if _, err := h.walker.ProcessSlot(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if got := h.verifier.calls.Load(); got != calls {
		t.Fatalf("verifier called %d more times", got-calls)
	}
}

// TestProcessSlotMissingExecutionBlock ensures a consensus block with blobs
// whose execution block is unknown fails the slot.
func TestProcessSlotMissingExecutionBlock(t *testing.T) {
	h := newWalkerHarness()
	blk := commitBlock(h.exec, 3)
	delete(h.exec.blocks, execHash(3))
	h.consensus.addBlock(3, blk)

	_, err := h.walker.ProcessSlot(context.Background(), 3)
	if !errors.Is(err, ErrMissingExecutionBlock) {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestProcessSlotTransient ensures a verifier outage aborts the slot and
// that processing it again once the backend recovers accepts the commit.
func TestProcessSlotTransient(t *testing.T) {
	sc := commitSidecar(t, 1, itemN(1), chainhash.Hash{})
	h := newWalkerHarness(sc)
	h.consensus.addBlock(5, commitBlock(h.exec, 5, blobTx(1, recipient, sc)))

	h.verifier.setErr(proof.ErrBackend)
	if _, err := h.walker.ProcessSlot(context.Background(), 5); !errors.Is(err, proof.ErrBackend) {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ledger.Epoch() != 0 {
		t.Fatalf("unexpected epoch %d", h.ledger.Epoch())
	}

	h.verifier.setErr(nil)
	found, err := h.walker.ProcessSlot(context.Background(), 5)
	if err != nil || !found {
		t.Fatalf("unexpected result on retry: %v %v", found, err)
	}
	if h.ledger.Epoch() != 1 {
		t.Fatalf("unexpected epoch %d", h.ledger.Epoch())
	}
}

// TestProcessHeader ensures a header already at hand is processed without
// fetching it again.
func TestProcessHeader(t *testing.T) {
	sc := commitSidecar(t, 1, itemN(1), chainhash.Hash{})
	h := newWalkerHarness(sc)
	h.consensus.addBlock(9, commitBlock(h.exec, 9, blobTx(1, recipient, sc)))
	hdr := h.consensus.headers[9]

	found, err := h.walker.ProcessHeader(context.Background(), hdr)
	if err != nil || !found {
		t.Fatalf("unexpected result: %v %v", found, err)
	}
	if h.consensus.calls != 1 {
		t.Fatalf("consensus node queried %d times", h.consensus.calls)
	}
}

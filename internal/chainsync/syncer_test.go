// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"context"
	"testing"
	"time"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/retry"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// runSyncer starts the harness walker under a sync loop and returns a
// function that stops the loop and reports its error.
func runSyncer(t *testing.T, h *walkerHarness, cfg *Config) (*Syncer, func() error) {
	t.Helper()
	cfg.Consensus = h.consensus
	cfg.Walker = h.walker
	cfg.Ledger = h.ledger
	if cfg.HeadPollDelay == 0 {
		cfg.HeadPollDelay = time.Millisecond
	}
	if cfg.HeadPollInterval == 0 {
		cfg.HeadPollInterval = time.Millisecond
	}
	s := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return s, func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("sync loop did not stop")
			return nil
		}
	}
}

// waitSynced waits until the syncer has processed the slot.
func waitSynced(t *testing.T, s *Syncer, slot uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := s.SyncedSlot(); ok && got >= slot {
			return
		}
		time.Sleep(time.Millisecond)
	}
	got, _ := s.SyncedSlot()
	t.Fatalf("slot %d not synced in time (synced %d)", slot, got)
}

// TestSyncEmptySlots ensures slots without blocks are skipped and commits in
// later slots are still accepted.
func TestSyncEmptySlots(t *testing.T) {
	sc := commitSidecar(t, 1, itemN(1), chainhash.Hash{})
	h := newWalkerHarness(sc)
	h.consensus.heads = []uint64{4}
	h.consensus.addBlock(3, commitBlock(h.exec, 3, blobTx(1, recipient, sc)))

	s, stop := runSyncer(t, h, &Config{GenesisSlot: 1})
	waitSynced(t, s, 4)
	if err := stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ledger.Epoch() != 1 {
		t.Fatalf("unexpected epoch %d", h.ledger.Epoch())
	}
	if got := s.HeadSlot(); got != 4 {
		t.Fatalf("unexpected head slot %d", got)
	}
}

// TestSyncFollowsHead ensures the loop waits for slots beyond the head and
// processes them once the head reaches them.
func TestSyncFollowsHead(t *testing.T) {
	sc := commitSidecar(t, 1, itemN(1), chainhash.Hash{})
	h := newWalkerHarness(sc)
	for slot := uint64(0); slot <= 3; slot++ {
		h.consensus.addBlock(slot, &beacon.Block{})
	}
	h.consensus.addBlock(5, commitBlock(h.exec, 5, blobTx(1, recipient, sc)))

	// Startup sees slot 1.  The head then reaches 2, 3 and 3 again while
	// slot 4 stays empty, before it jumps to 5.
	h.consensus.heads = []uint64{1, 2, 3, 3, 5}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	s, stop := runSyncer(t, h, &Config{Metrics: metrics})
	waitSynced(t, s, 5)
	if err := stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ledger.Epoch() != 1 {
		t.Fatalf("unexpected epoch %d", h.ledger.Epoch())
	}
	if got := testutil.ToFloat64(metrics.HeadSlot); got != 5 {
		t.Fatalf("unexpected head gauge %v", got)
	}
	if got := testutil.ToFloat64(metrics.SyncedSlot); got < 5 {
		t.Fatalf("unexpected synced gauge %v", got)
	}
}

// TestSyncRetriesSlot ensures a failed slot is retried rather than skipped.
func TestSyncRetriesSlot(t *testing.T) {
	sc := commitSidecar(t, 1, itemN(1), chainhash.Hash{})
	h := newWalkerHarness(sc)
	h.consensus.heads = []uint64{3}
	h.consensus.addBlock(2, commitBlock(h.exec, 2, blobTx(1, recipient, sc)))
	h.consensus.failSlot(2, 2)

	metrics := NewMetrics(prometheus.NewRegistry())
	s, stop := runSyncer(t, h, &Config{
		Retry:       retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond},
		RequestRate: 1000,
		Metrics:     metrics,
	})
	waitSynced(t, s, 3)
	if err := stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ledger.Epoch() != 1 {
		t.Fatalf("commit in retried slot not accepted: epoch %d",
			h.ledger.Epoch())
	}
	if got := testutil.ToFloat64(metrics.SlotErrors); got != 2 {
		t.Fatalf("unexpected slot error count %v", got)
	}
}

// TestSyncStopsWhileWaiting ensures cancelling the context stops a loop
// waiting for the head.
func TestSyncStopsWhileWaiting(t *testing.T) {
	h := newWalkerHarness()
	h.consensus.heads = []uint64{0}
	s, stop := runSyncer(t, h, &Config{
		GenesisSlot:   10,
		HeadPollDelay: time.Hour,
	})
	deadline := time.Now().Add(5 * time.Second)
	for s.HeadSlot() != 0 || h.consensusCalls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sync loop did not start")
		}
		time.Sleep(time.Millisecond)
	}
	if err := stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.SyncedSlot(); ok {
		t.Fatal("slot synced while waiting for the head")
	}
}

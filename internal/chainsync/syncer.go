// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/ledger"
	"github.com/commitsync/commitsyncd/internal/progresslog"
	"github.com/commitsync/commitsyncd/internal/retry"
	"golang.org/x/time/rate"
)

const (
	// requestsPerSlot is the number of consensus and execution requests
	// processing a slot typically costs.  It is the amount drawn from the
	// request budget after every slot.
	requestsPerSlot = 5

	// DefaultHeadPollDelay is the default time waited before polling the
	// head once the loop has caught up with it.
	DefaultHeadPollDelay = 5 * time.Second

	// DefaultHeadPollInterval is the default time between head polls while
	// waiting for the next slot.
	DefaultHeadPollInterval = time.Second
)

// errNoHead is returned when the consensus node reports no head block.
var errNoHead = errors.New("consensus node reported no head block")

// Config configures a Syncer.
type Config struct {
	// Consensus provides headers, the head and the chain configuration.
	Consensus ConsensusClient

	// Walker processes the slots.
	Walker *Walker

	// Ledger is only read to report the epoch.
	Ledger *ledger.Ledger

	// GenesisSlot is the first slot processed.
	GenesisSlot uint64

	// RequestRate limits the outbound requests per second.  Zero means no
	// limit.
	RequestRate float64

	// HeadPollDelay is the time waited before polling the head once the
	// loop has caught up with it.
	HeadPollDelay time.Duration

	// HeadPollInterval is the time between head polls while waiting for the
	// next slot.
	HeadPollInterval time.Duration

	// Retry provides the delay before a failed slot is retried.
	Retry retry.Policy

	// Metrics receives the synced and head slots.  It may be nil.
	Metrics *Metrics
}

// Syncer walks the chain slot by slot from the genesis slot, following the
// head once it catches up.
type Syncer struct {
	cfg      Config
	limiter  *rate.Limiter
	progress *progresslog.Logger

	// synced is one more than the last fully processed slot, or zero when
	// no slot was processed yet.  head is the latest head slot seen.
	synced atomic.Uint64
	head   atomic.Uint64
}

// New returns a sync loop for the configuration.
func New(cfg *Config) *Syncer {
	s := &Syncer{
		cfg:      *cfg,
		progress: progresslog.New("Processed", log),
	}
	if s.cfg.HeadPollDelay == 0 {
		s.cfg.HeadPollDelay = DefaultHeadPollDelay
	}
	if s.cfg.HeadPollInterval == 0 {
		s.cfg.HeadPollInterval = DefaultHeadPollInterval
	}
	if s.cfg.Retry == (retry.Policy{}) {
		s.cfg.Retry = retry.DefaultPolicy()
	}
	if cfg.RequestRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestRate),
			requestsPerSlot)
	}
	return s
}

// SyncedSlot returns the last fully processed slot.  The flag is false when
// no slot was processed yet.
func (s *Syncer) SyncedSlot() (uint64, bool) {
	v := s.synced.Load()
	if v == 0 {
		return 0, false
	}
	return v - 1, true
}

// HeadSlot returns the latest head slot reported by the consensus node.
func (s *Syncer) HeadSlot() uint64 {
	return s.head.Load()
}

// setHead records the head slot reported by the consensus node.
func (s *Syncer) setHead(slot uint64) {
	s.head.Store(slot)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.HeadSlot.Set(float64(slot))
	}
}

// setSynced records a fully processed slot.
func (s *Syncer) setSynced(slot uint64) {
	s.synced.Store(slot + 1)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SyncedSlot.Set(float64(slot))
	}
}

// sleep waits for the duration or until the context is cancelled, in which
// case it returns false.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// logSpec logs the chain configuration reported by the consensus node.
func logSpec(spec beacon.Spec) {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Debugf("Spec %s: %v", k, spec[k])
	}
	perSlot, err := spec.Uint("SECONDS_PER_SLOT")
	if err != nil {
		log.Warnf("Unable to read slot duration: %v", err)
		return
	}
	log.Infof("Consensus chain %v with %d second slots",
		spec["CONFIG_NAME"], perSlot)
}

// awaitSlot polls the head until the chain reaches the slot and then
// processes it.
func (s *Syncer) awaitSlot(ctx context.Context, slot uint64) (*progresslog.SlotSummary, error) {
	log.Debugf("Waiting for slot %d", slot)
	delay := s.cfg.HeadPollDelay
	for {
		if !sleep(ctx, delay) {
			return nil, ctx.Err()
		}
		delay = s.cfg.HeadPollInterval

		hdr, err := s.cfg.Consensus.BlockHeader(ctx, beacon.HeadID)
		if err != nil {
			return nil, err
		}
		if hdr == nil {
			return nil, errNoHead
		}
		s.setHead(hdr.Slot)
		switch {
		case hdr.Slot > slot:
			return s.cfg.Walker.processSlot(ctx, slot)
		case hdr.Slot == slot:
			return s.cfg.Walker.processHeader(ctx, hdr)
		}
	}
}

// syncSlot processes the slot, waiting for it first when it is beyond the
// head.  The returned summary is nil for slots without a block.
func (s *Syncer) syncSlot(ctx context.Context, slot uint64) (*progresslog.SlotSummary, error) {
	if slot > s.head.Load() {
		return s.awaitSlot(ctx, slot)
	}
	return s.cfg.Walker.processSlot(ctx, slot)
}

// Run processes slots until the context is cancelled.  It only returns an
// error when the consensus node cannot be queried at startup.
func (s *Syncer) Run(ctx context.Context) error {
	spec, err := s.cfg.Consensus.Spec(ctx)
	if err != nil {
		return fmt.Errorf("unable to fetch consensus spec: %w", err)
	}
	logSpec(spec)

	head, err := s.cfg.Consensus.BlockHeader(ctx, beacon.HeadID)
	if err != nil {
		return fmt.Errorf("unable to fetch consensus head: %w", err)
	}
	if head == nil {
		return errNoHead
	}
	s.setHead(head.Slot)
	log.Infof("Consensus head is slot %d (%v)", head.Slot, head.Root)
	log.Infof("Syncing from slot %d", s.cfg.GenesisSlot)

	slot := s.cfg.GenesisSlot
	var failures int
	for ctx.Err() == nil {
		summary, err := s.syncSlot(ctx, slot)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failures++
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.SlotErrors.Inc()
			}
			delay := s.cfg.Retry.Delay(failures)
			log.Errorf("Unable to process slot %d (attempt %d), retrying "+
				"in %v: %v", slot, failures, delay, err)
			if !sleep(ctx, delay) {
				break
			}
			continue
		}
		failures = 0

		if summary == nil {
			summary = &progresslog.SlotSummary{Slot: slot}
		}
		s.setSynced(slot)
		s.progress.LogProgress(summary, slot >= s.head.Load(),
			s.cfg.Ledger.Epoch())
		slot++

		if s.limiter != nil {
			if err := s.limiter.WaitN(ctx, requestsPerSlot); err != nil {
				break
			}
		}
	}
	log.Infof("Sync stopped at slot %d", slot)
	return nil
}

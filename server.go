// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/blobstore"
	"github.com/commitsync/commitsyncd/internal/chainsync"
	"github.com/commitsync/commitsyncd/internal/execution"
	"github.com/commitsync/commitsyncd/internal/ledger"
	"github.com/commitsync/commitsyncd/internal/proof"
	"github.com/commitsync/commitsyncd/internal/queryapi"
	"github.com/commitsync/commitsyncd/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// server houses the subsystems of the indexer.
type server struct {
	ledger *ledger.Ledger
	exec   *execution.Client
	syncer *chainsync.Syncer
	query  *queryapi.Server
}

// newVerifier returns the proof verifier described by the configuration along
// with the context used to size plonky2 proofs, which is nil when plonky2 is
// not enabled.
func newVerifier(ctx context.Context, cfg *config) (*proof.Dispatcher, proof.Context, error) {
	var d proof.Dispatcher
	var pctx proof.Context
	if cfg.VerifierURL != "" {
		remote, err := proof.NewRemoteVerifier(ctx, &proof.RemoteConfig{
			URL:     cfg.VerifierURL,
			Timeout: cfg.RequestTimeout,
			Retry:   cfg.retryPolicy(),
			VDSRoot: cfg.vdsRoot,
		})
		if err != nil {
			return nil, nil, err
		}
		circuit := remote.Circuit()
		csynLog.Infof("Plonky2 verifier circuit %x (degree bits %d, %d "+
			"public inputs)", []byte(circuit.Digest), circuit.DegreeBits,
			circuit.NumPublicInputs)
		d.Plonky2 = remote
		pctx = remote
	}
	if cfg.Groth16VK != "" {
		v, err := proof.LoadGroth16Verifier(cfg.Groth16VK, cfg.vdsRoot)
		if err != nil {
			return nil, nil, err
		}
		csynLog.Infof("Loaded groth16 verifying key from %s", cfg.Groth16VK)
		d.Groth16 = v
	}
	csynLog.Infof("Accepting %v proofs (commits are posted with %v proofs)",
		d.EnabledKinds(), cfg.proofKind)
	return &d, pctx, nil
}

// registerStoreMetrics exposes the blob store counters.
func registerStoreMetrics(reg prometheus.Registerer, store *blobstore.Store) {
	counter := func(name, help string, value func(blobstore.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "commitsync",
			Subsystem: "blobstore",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(value(store.Stats()))
		})
	}
	reg.MustRegister(
		counter("hits_total", "Blobs served from disk.",
			func(s blobstore.Stats) uint64 { return s.Hits }),
		counter("fetches_total", "Slots fetched from the consensus node.",
			func(s blobstore.Stats) uint64 { return s.Fetches }),
		counter("stored_total", "Blobs written to disk.",
			func(s blobstore.Stats) uint64 { return s.Stored }),
	)
}

// newServer returns a new indexer configured by cfg.  The execution client
// it dials must be released with Close.
func newServer(ctx context.Context, cfg *config) (*server, error) {
	policy := cfg.retryPolicy()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := chainsync.NewMetrics(registry)

	consensus := beacon.New(&beacon.Config{
		URL:     cfg.BeaconURL,
		Timeout: cfg.RequestTimeout,
		Retry:   policy,
	})
	store, err := blobstore.New(&blobstore.Config{
		Root:   cfg.BlobsPath,
		Source: consensus,
	})
	if err != nil {
		return nil, err
	}
	registerStoreMetrics(registry, store)

	verifier, pctx, err := newVerifier(ctx, cfg)
	if err != nil {
		return nil, err
	}
	l := ledger.New(verifier)

	exec, err := execution.Dial(ctx, &execution.Config{
		URL:     cfg.RPCURL,
		Timeout: cfg.RequestTimeout,
		Retry:   policy,
	})
	if err != nil {
		return nil, err
	}

	processor := chainsync.NewProcessor(&chainsync.ProcessorConfig{
		Ledger:             l,
		ProofContext:       pctx,
		ProcessedCacheSize: cfg.ProcessedCache,
		Metrics:            metrics,
	})
	walker := chainsync.NewWalker(&chainsync.WalkerConfig{
		Consensus: consensus,
		Execution: exec,
		Blobs:     store,
		Processor: processor,
		Recipient: cfg.toAddr,
	})
	syncer := chainsync.New(&chainsync.Config{
		Consensus:        consensus,
		Walker:           walker,
		Ledger:           l,
		GenesisSlot:      cfg.GenesisSlot,
		RequestRate:      cfg.RequestRate,
		HeadPollDelay:    cfg.HeadPollDelay,
		HeadPollInterval: cfg.HeadPollInterval,
		Retry:            policy,
		Metrics:          metrics,
	})

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		exec.Close()
		return nil, fmt.Errorf("unable to listen on %s: %w", cfg.Listen, err)
	}
	query := queryapi.New(&queryapi.Config{
		Listeners: []net.Listener{listener},
		Ledger:    l,
		Sync:      syncer,
		Gatherer:  registry,
		Version:   version.String(),
	})

	return &server{
		ledger: l,
		exec:   exec,
		syncer: syncer,
		query:  query,
	}, nil
}

// Close releases the connections of the server.
func (s *server) Close() {
	s.exec.Close()
}

// Run starts the query service and the sync loop and blocks until the context
// is cancelled.  A sync loop that fails requests shutdown.
func (s *server) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		s.query.Run(ctx)
		wg.Done()
	}()
	go func() {
		if err := s.syncer.Run(ctx); err != nil {
			csynLog.Errorf("Sync loop failed: %v", err)
			requestShutdown()
		}
		wg.Done()
	}()
	wg.Wait()

	stats := s.ledger.Stats()
	csynLog.Infof("Stopped at epoch %d with %d items and %d nullifiers",
		stats.Epoch, stats.Items, stats.Nullifiers)
}

// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/blob"
	"github.com/commitsync/commitsyncd/internal/ledger"
	"github.com/commitsync/commitsyncd/internal/payload"
	"github.com/commitsync/commitsyncd/internal/proof"
	"github.com/decred/dcrd/container/lru"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultProcessedCacheSize is the default number of processed blob hashes
// remembered by a Processor.
const DefaultProcessedCacheSize = 4096

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	// Ledger receives the commits.
	Ledger *ledger.Ledger

	// ProofContext sizes plonky2 proofs while decoding payloads.  It may be
	// nil when plonky2 proofs are not accepted.
	ProofContext proof.Context

	// ProcessedCacheSize is the number of blob hashes remembered so that
	// blobs are processed at most once.
	ProcessedCacheSize uint32

	// Metrics receives blob outcomes.  It may be nil.
	Metrics *Metrics
}

// Processor turns blobs into commits and submits them to the ledger.
type Processor struct {
	ledger  *ledger.Ledger
	pctx    proof.Context
	metrics *Metrics

	// processed holds the versioned hashes of blobs with a final verdict.
	processed *lru.Set[common.Hash]
}

// NewProcessor returns a commit processor for the configuration.
func NewProcessor(cfg *ProcessorConfig) *Processor {
	size := cfg.ProcessedCacheSize
	if size == 0 {
		size = DefaultProcessedCacheSize
	}
	return &Processor{
		ledger:    cfg.Ledger,
		pctx:      cfg.ProofContext,
		metrics:   cfg.Metrics,
		processed: lru.NewSet[common.Hash](size),
	}
}

// Processed returns whether a final verdict was already reached for the blob
// with the versioned hash.
func (p *Processor) Processed(vh common.Hash) bool {
	return p.processed.Contains(vh)
}

// decode extracts the payload embedded in the blob.
func (p *Processor) decode(ctx context.Context, sc *beacon.Sidecar) (*payload.Payload, error) {
	data, err := blob.Unpack(sc.Blob[:])
	if err != nil {
		return nil, err
	}
	pl, err := payload.Decode(ctx, data, p.pctx)
	if err != nil {
		var cerr payload.CodecError
		if !errors.As(err, &cerr) {
			return nil, err
		}
		return nil, CommitError{
			Kind:        ErrCodec,
			Err:         err,
			Description: fmt.Sprintf("unable to decode payload: %v", err),
		}
	}
	return pl, nil
}

// ProcessBlob decodes the commit embedded in the blob, builds the statement
// it proves and submits it to the ledger.
//
// A nil error means the commit was accepted.  Blob, codec and ledger rule
// errors are final: the blob is remembered and will not be processed again.
// Any other error is transient and leaves the blob eligible for a retry.
func (p *Processor) ProcessBlob(ctx context.Context, sc *beacon.Sidecar) error {
	vh := sc.VersionedHash()
	err := p.processBlob(ctx, sc)
	if err != nil && !isRejection(err) {
		return err
	}

	p.processed.Put(vh)

	if p.metrics != nil {
		result := "accepted"
		if err != nil {
			result = rejectReason(err)
		}
		p.metrics.Blobs.WithLabelValues(result).Inc()
	}
	return err
}

// processBlob performs the processing of ProcessBlob.
func (p *Processor) processBlob(ctx context.Context, sc *beacon.Sidecar) error {
	pl, err := p.decode(ctx, sc)
	if err != nil {
		return err
	}
	epoch, err := p.ledger.TryAccept(ctx, pl.Statement(), &pl.Proof)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.Epoch.Set(float64(epoch))
	}
	return nil
}

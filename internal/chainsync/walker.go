// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"context"
	"fmt"
	"time"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/execution"
	"github.com/commitsync/commitsyncd/internal/progresslog"
	"github.com/ethereum/go-ethereum/common"
)

// WalkerConfig configures a Walker.
type WalkerConfig struct {
	// Consensus provides headers and blocks.
	Consensus ConsensusClient

	// Execution provides the transactions of execution blocks.
	Execution ExecutionClient

	// Blobs provides the blobs of a slot.
	Blobs BlobStore

	// Processor receives every commit blob.
	Processor *Processor

	// Recipient is the address commit transactions are sent to.
	Recipient common.Address
}

// Walker finds the commit blobs of a slot and hands them to the processor.
type Walker struct {
	cfg WalkerConfig
}

// NewWalker returns a chain walker for the configuration.
func NewWalker(cfg *WalkerConfig) *Walker {
	return &Walker{cfg: *cfg}
}

// isCommitTx returns whether the transaction carries blobs and is sent
// directly to the recipient.
func isCommitTx(tx *execution.Tx, recipient common.Address) bool {
	return len(tx.BlobHashes) > 0 && tx.To != nil && *tx.To == recipient
}

// ProcessSlot processes the canonical block of the slot.  It returns false
// when the slot is empty or holds no commit transactions, and true when at
// least one commit transaction was found and its blobs handed to the
// processor, regardless of whether they were accepted.
func (w *Walker) ProcessSlot(ctx context.Context, slot uint64) (bool, error) {
	summary, err := w.processSlot(ctx, slot)
	if err != nil || summary == nil {
		return false, err
	}
	return summary.BlobTxns > 0, nil
}

// ProcessHeader processes the block with the provided header.  See
// ProcessSlot for the meaning of the result.
func (w *Walker) ProcessHeader(ctx context.Context, hdr *beacon.Header) (bool, error) {
	summary, err := w.processHeader(ctx, hdr)
	if err != nil {
		return false, err
	}
	return summary.BlobTxns > 0, nil
}

// processSlot fetches the header of the slot and processes its block.  The
// returned summary is nil when the slot has no block.
func (w *Walker) processSlot(ctx context.Context, slot uint64) (*progresslog.SlotSummary, error) {
	hdr, err := w.cfg.Consensus.BlockHeader(ctx, beacon.SlotID(slot))
	if err != nil {
		return nil, err
	}
	if hdr == nil {
		log.Debugf("Slot %d has no block", slot)
		return nil, nil
	}
	return w.processHeader(ctx, hdr)
}

// processHeader processes the block with the provided header and returns a
// summary of the work done.
func (w *Walker) processHeader(ctx context.Context, hdr *beacon.Header) (*progresslog.SlotSummary, error) {
	slot := hdr.Slot
	summary := &progresslog.SlotSummary{Slot: slot}

	blk, err := w.cfg.Consensus.Block(ctx, beacon.RootID(hdr.Root))
	if err != nil {
		return nil, err
	}
	if blk == nil {
		log.Debugf("Slot %d has empty block", slot)
		return summary, nil
	}
	payload := blk.ExecutionPayload
	if payload == nil {
		log.Debugf("Slot %d has no execution payload", slot)
		return summary, nil
	}
	summary.Time = time.Unix(int64(payload.Timestamp), 0)
	log.Debugf("Slot %d has execution block %v at height %d", slot,
		payload.BlockHash, payload.BlockNumber)
	if len(blk.BlobKZGCommitments) == 0 {
		log.Tracef("Slot %d has no blobs", slot)
		return summary, nil
	}
	log.Infof("Processing slot %d from %s", slot, summary.Time.UTC())

	execBlk, err := w.cfg.Execution.BlockByHash(ctx, payload.BlockHash)
	if err != nil {
		return nil, err
	}
	if execBlk == nil {
		str := fmt.Sprintf("consensus block %v at slot %d has blobs but "+
			"execution block %v is unknown", hdr.Root, slot,
			payload.BlockHash)
		return nil, walkError(ErrMissingExecutionBlock, str)
	}

	var commitTxns []*execution.Tx
	var required []common.Hash
	for _, tx := range execBlk.Transactions {
		if !isCommitTx(tx, w.cfg.Recipient) {
			continue
		}
		commitTxns = append(commitTxns, tx)
		required = append(required, tx.BlobHashes...)
	}
	if len(commitTxns) == 0 {
		return summary, nil
	}
	summary.BlobTxns = len(commitTxns)
	summary.Blobs = len(required)

	blobs, err := w.cfg.Blobs.GetBlobs(ctx, slot, required)
	if err != nil {
		return nil, err
	}

	for _, tx := range commitTxns {
		log.Tracef("Commit transaction %v from %v to %v", tx.Hash, tx.From,
			tx.To)
		for i, vh := range tx.BlobHashes {
			if w.cfg.Processor.Processed(vh) {
				log.Debugf("Skipping already processed blob %v (slot %d, "+
					"tx %v, blob %d)", vh, slot, tx.Hash, i)
				continue
			}
			sc := blobs[vh]
			err := w.cfg.Processor.ProcessBlob(ctx, sc)
			switch {
			case err == nil:
				summary.Accepted++
				log.Infof("Accepted commit blob at slot %d (tx %v, blob %d, "+
					"sidecar index %d, versioned hash %v)", slot, tx.Hash,
					i, sc.Index, vh)

			case isRejection(err):
				log.Infof("Discarded commit blob at slot %d (tx %v, blob %d, "+
					"sidecar index %d, versioned hash %v): %v", slot,
					tx.Hash, i, sc.Index, vh, err)

			default:
				return nil, fmt.Errorf("unable to process blob %v of tx "+
					"%v at slot %d: %w", vh, tx.Hash, slot, err)
			}
		}
	}
	return summary, nil
}

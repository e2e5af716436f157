// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"context"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/commitsync/commitsyncd/internal/execution"
	"github.com/ethereum/go-ethereum/common"
)

// ConsensusClient provides access to the consensus layer.  It is
// implemented by beacon.Client.
type ConsensusClient interface {
	// BlockHeader returns the identified header or nil when there is no
	// such block.
	BlockHeader(ctx context.Context, id beacon.BlockID) (*beacon.Header, error)

	// Block returns the identified block or nil when there is no such
	// block.
	Block(ctx context.Context, id beacon.BlockID) (*beacon.Block, error)

	// Spec returns the chain configuration.
	Spec(ctx context.Context) (beacon.Spec, error)
}

// ExecutionClient provides access to the execution layer.  It is
// implemented by execution.Client.
type ExecutionClient interface {
	// BlockByHash returns the block with its transactions or nil when the
	// block is unknown.
	BlockByHash(ctx context.Context, hash common.Hash) (*execution.Block, error)
}

// BlobStore provides the blobs of a slot.  It is implemented by
// blobstore.Store.
type BlobStore interface {
	GetBlobs(ctx context.Context, slot uint64, required []common.Hash) (map[common.Hash]*beacon.Sidecar, error)
}

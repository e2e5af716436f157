// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package execution implements the execution layer client used to resolve
// the blob carrying transactions of a block.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/commitsync/commitsyncd/internal/retry"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Tx is the part of a transaction the indexer uses.
type Tx struct {
	Hash common.Hash

	// From is only populated for transactions carrying blobs.
	From common.Address

	// To is nil for contract creations.
	To *common.Address

	BlobHashes []common.Hash
}

// Block is an execution block with its transactions in block order.
type Block struct {
	Hash         common.Hash
	Number       uint64
	Time         uint64
	Transactions []*Tx
}

// Config configures a Client.
type Config struct {
	// URL is the JSON-RPC endpoint of the execution node.
	URL string

	// Timeout bounds every individual request.
	Timeout time.Duration

	// Retry is the policy applied to every request.
	Retry retry.Policy
}

// Client is an execution node JSON-RPC client.  It is safe for concurrent
// use.
type Client struct {
	cfg Config
	rpc *ethclient.Client
}

// Dial connects to the configured execution node.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to execution node: %w", err)
	}
	return &Client{cfg: *cfg, rpc: rpc}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// convertTx converts the transaction, recovering the sender of blob carrying
// transactions.
func convertTx(tx *types.Transaction) *Tx {
	t := &Tx{
		Hash:       tx.Hash(),
		To:         tx.To(),
		BlobHashes: tx.BlobHashes(),
	}
	if len(t.BlobHashes) > 0 {
		signer := types.LatestSignerForChainID(tx.ChainId())
		from, err := types.Sender(signer, tx)
		if err != nil {
			log.Warnf("Unable to recover sender of transaction %v: %v",
				t.Hash, err)
		}
		t.From = from
	}
	return t
}

// BlockByHash returns the block with the provided hash along with all of its
// transactions.  It returns nil without an error when the node does not know
// the block.
func (c *Client) BlockByHash(ctx context.Context, hash common.Hash) (*Block, error) {
	var blk *types.Block
	what := fmt.Sprintf("eth_getBlockByHash %v", hash)
	err := c.cfg.Retry.Do(ctx, what, func(ctx context.Context) error {
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		var err error
		blk, err = c.rpc.BlockByHash(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return retry.Unrecoverable(err)
		}
		return err
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	txns := blk.Transactions()
	b := &Block{
		Hash:         blk.Hash(),
		Number:       blk.NumberU64(),
		Time:         blk.Time(),
		Transactions: make([]*Tx, 0, len(txns)),
	}
	for _, tx := range txns {
		b.Transactions = append(b.Transactions, convertTx(tx))
	}
	return b, nil
}

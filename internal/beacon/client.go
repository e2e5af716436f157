// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package beacon implements a client for the subset of the beacon node REST
// API used to follow the chain and retrieve blob sidecars.
package beacon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/commitsync/commitsyncd/internal/retry"
)

// maxResponseSize bounds the size of a single response.  A block with the
// maximum number of blobs hex encoded stays well below this.
const maxResponseSize = 64 << 20

// errNotFound is returned internally for 404 responses.
var errNotFound = errors.New("not found")

// Config configures a Client.
type Config struct {
	// URL is the base URL of the beacon node API.
	URL string

	// Client is the HTTP client used for requests.  http.DefaultClient is
	// used when nil.
	Client *http.Client

	// Timeout bounds every individual request.
	Timeout time.Duration

	// Retry is the policy applied to every request.
	Retry retry.Policy
}

// Client is a beacon node API client.  It is safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
}

// New returns a client for the configured beacon node.
func New(cfg *Config) *Client {
	c := &Client{cfg: *cfg, client: cfg.Client}
	c.cfg.URL = strings.TrimRight(cfg.URL, "/")
	if c.client == nil {
		c.client = http.DefaultClient
	}
	return c
}

// StatusError describes an unsuccessful response from the beacon node.
type StatusError struct {
	Path    string
	Code    int
	Message string
}

// Error satisfies the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.Path, e.Code, e.Message)
}

// get requests the path and decodes the JSON response into out.  Requests
// are retried per the configured policy except for client errors.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.cfg.Retry.Do(ctx, "GET "+path, func(ctx context.Context) error {
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.cfg.URL+path, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
			return retry.Unrecoverable(errNotFound)

		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := &StatusError{
				Path:    path,
				Code:    resp.StatusCode,
				Message: strings.TrimSpace(string(body)),
			}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
				resp.StatusCode != http.StatusTooManyRequests {
				return retry.Unrecoverable(err)
			}
			return err
		}

		dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("GET %s: malformed response: %w", path, err)
		}
		log.Tracef("GET %s took %v", path, time.Since(start))
		return nil
	})
}

// BlockHeader returns the header of the identified block.  It returns nil
// without an error when the node has no such block.
func (c *Client) BlockHeader(ctx context.Context, id BlockID) (*Header, error) {
	var resp headerResponse
	err := c.get(ctx, "/eth/v1/beacon/headers/"+string(id), &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.toHeader(), nil
}

// Block returns the identified block.  It returns nil without an error when
// the node has no such block.
func (c *Client) Block(ctx context.Context, id BlockID) (*Block, error) {
	var resp blockResponse
	err := c.get(ctx, "/eth/v2/beacon/blocks/"+string(id), &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.toBlock()
}

// BlobSidecars returns every blob sidecar of the block at the slot.  A slot
// without a block has no sidecars.
func (c *Client) BlobSidecars(ctx context.Context, slot uint64) ([]*Sidecar, error) {
	var resp sidecarsResponse
	err := c.get(ctx, "/eth/v1/beacon/blob_sidecars/"+string(SlotID(slot)), &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sidecars := make([]*Sidecar, 0, len(resp.Data))
	for i := range resp.Data {
		sc, err := resp.Data[i].toSidecar()
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", slot, err)
		}
		sidecars = append(sidecars, sc)
	}
	log.Debugf("Fetched %d blob sidecars for slot %d", len(sidecars), slot)
	return sidecars, nil
}

// Spec returns the chain configuration of the node.
func (c *Client) Spec(ctx context.Context) (Spec, error) {
	var resp specResponse
	if err := c.get(ctx, "/eth/v1/config/spec", &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("node does not serve its spec")
		}
		return nil, err
	}
	return resp.Data, nil
}

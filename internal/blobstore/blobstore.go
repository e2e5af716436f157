// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blobstore provides a per-slot disk cache of blob sidecars that is
// filled on demand from a remote source.
//
// Blobs are immutable once confirmed, so entries are never invalidated.  The
// cache for a slot lives in a directory derived from the slot number:
//
//	<root>/<slot/1e6>/<(slot%1e6)/1e3>/<slot%1e3>/blob-<versioned hash>
//
// with every directory component zero padded to three digits.  Entries are
// written to a temporary file that is renamed into place, so a crash never
// leaves a partially written entry under its final name.
package blobstore

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/commitsync/commitsyncd/internal/beacon"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

const (
	// entryPrefix prefixes the file name of every cache entry.
	entryPrefix = "blob-"

	// tmpSuffix is appended to entries while they are being written.
	tmpSuffix = ".tmp"

	// Offsets of the fields of a serialized entry.
	commitmentOffset = 8
	proofOffset      = commitmentOffset + len(kzg4844.Commitment{})
	blobOffset       = proofOffset + len(kzg4844.Proof{})

	// entrySize is the size of a serialized entry.
	entrySize = blobOffset + len(kzg4844.Blob{})
)

// BlobSource provides every blob sidecar of a slot.
type BlobSource interface {
	BlobSidecars(ctx context.Context, slot uint64) ([]*beacon.Sidecar, error)
}

// Config configures a Store.
type Config struct {
	// Root is the directory holding the cache.
	Root string

	// Source provides blobs missing from the cache.
	Source BlobSource
}

// Stats houses cache statistics.
type Stats struct {
	// Hits is the number of blobs served from disk.
	Hits uint64

	// Fetches is the number of remote fetches performed.
	Fetches uint64

	// Stored is the number of blobs written to disk.
	Stored uint64
}

// Store is a disk cache of blob sidecars.  It is safe for concurrent use,
// although concurrent fetches of the same slot duplicate work.
type Store struct {
	root   string
	source BlobSource

	hits    atomic.Uint64
	fetches atomic.Uint64
	stored  atomic.Uint64
}

// New returns a store rooted at the configured directory, creating it when
// needed.
func New(cfg *Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Root, 0700); err != nil {
		return nil, err
	}
	return &Store{root: cfg.Root, source: cfg.Source}, nil
}

// SlotPath returns the directory holding the cached blobs of the slot.
func SlotPath(root string, slot uint64) string {
	return filepath.Join(root,
		fmt.Sprintf("%03d", slot/1_000_000),
		fmt.Sprintf("%03d", (slot%1_000_000)/1_000),
		fmt.Sprintf("%03d", slot%1_000))
}

// entryName returns the file name of the entry for the versioned hash.
func entryName(vh common.Hash) string {
	return entryPrefix + hex.EncodeToString(vh[:])
}

// serializeEntry returns the on-disk form of the sidecar.
func serializeEntry(sc *beacon.Sidecar) []byte {
	b := make([]byte, entrySize)
	binary.LittleEndian.PutUint64(b, sc.Index)
	copy(b[commitmentOffset:], sc.KZGCommitment[:])
	copy(b[proofOffset:], sc.KZGProof[:])
	copy(b[blobOffset:], sc.Blob[:])
	return b
}

// loadEntry reads the entry for the versioned hash from the slot directory.
// It returns nil without an error when no entry exists.
func loadEntry(dir string, vh common.Hash) (*beacon.Sidecar, error) {
	path := filepath.Join(dir, entryName(vh))
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) != entrySize {
		str := fmt.Sprintf("cache entry %s is %d bytes instead of %d", path,
			len(b), entrySize)
		return nil, storeError(ErrCorruptEntry, str)
	}

	sc := &beacon.Sidecar{Index: binary.LittleEndian.Uint64(b)}
	copy(sc.KZGCommitment[:], b[commitmentOffset:proofOffset])
	copy(sc.KZGProof[:], b[proofOffset:blobOffset])
	copy(sc.Blob[:], b[blobOffset:])
	if got := sc.VersionedHash(); got != vh {
		str := fmt.Sprintf("cache entry %s holds blob %v", path, got)
		return nil, storeError(ErrCorruptEntry, str)
	}
	return sc, nil
}

// storeEntry atomically writes the sidecar into the slot directory.
func storeEntry(dir string, vh common.Hash, sc *beacon.Sidecar) error {
	path := filepath.Join(dir, entryName(vh))
	tmp := path + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(serializeEntry(sc)); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Stats returns the cache statistics.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:    s.hits.Load(),
		Fetches: s.fetches.Load(),
		Stored:  s.stored.Load(),
	}
}

// GetBlobs returns the sidecars of the slot with the required versioned
// hashes.
//
// The cache is consulted first.  When any required blob is missing, every
// sidecar of the slot is fetched from the source, persisted and filtered to
// the required hashes.  ErrMissingBlob is returned when the source does not
// provide every required blob.
func (s *Store) GetBlobs(ctx context.Context, slot uint64, required []common.Hash) (map[common.Hash]*beacon.Sidecar, error) {
	result := make(map[common.Hash]*beacon.Sidecar, len(required))
	if len(required) == 0 {
		return result, nil
	}

	dir := SlotPath(s.root, slot)
	complete := true
	for _, vh := range required {
		if _, ok := result[vh]; ok {
			continue
		}
		sc, err := loadEntry(dir, vh)
		if err != nil {
			if !errors.Is(err, ErrCorruptEntry) {
				return nil, err
			}
			log.Warnf("Discarding cached blob: %v", err)
		}
		if sc == nil {
			complete = false
			break
		}
		result[vh] = sc
	}
	if complete {
		s.hits.Add(uint64(len(result)))
		log.Tracef("Served %d blobs of slot %d from disk", len(result), slot)
		return result, nil
	}

	s.fetches.Add(1)
	sidecars, err := s.source.BlobSidecars(ctx, slot)
	if err != nil {
		return nil, err
	}
	fetched := make(map[common.Hash]*beacon.Sidecar, len(sidecars))
	for _, sc := range sidecars {
		fetched[sc.VersionedHash()] = sc
	}
	if len(fetched) > 0 {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
		for vh, sc := range fetched {
			if err := storeEntry(dir, vh, sc); err != nil {
				return nil, fmt.Errorf("unable to cache blob %v of slot "+
					"%d: %w", vh, slot, err)
			}
			s.stored.Add(1)
		}
		log.Debugf("Cached %d blobs of slot %d in %s", len(fetched), slot,
			dir)
	}

	clear(result)
	for _, vh := range required {
		sc, ok := fetched[vh]
		if !ok {
			str := fmt.Sprintf("blob %v of slot %d is not available", vh, slot)
			return nil, storeError(ErrMissingBlob, str)
		}
		result[vh] = sc
	}
	return result, nil
}

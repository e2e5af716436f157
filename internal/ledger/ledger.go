// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger implements the authenticated append-only state derived from
// the commits found on chain: the created items set, the nullifier set and
// the history of created items set roots indexed by epoch.
//
// A single writer drives TryAccept while any number of readers query the
// state concurrently.  Every accepted commit is applied atomically with
// respect to readers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/commitsync/commitsyncd/internal/authset"
	"github.com/commitsync/commitsyncd/internal/proof"
	"github.com/decred/dcrd/chaincfg/chainhash"
)

// Stats houses ledger statistics.
type Stats struct {
	Epoch      uint64
	Items      int
	Nullifiers int
	LatestRoot chainhash.Hash
}

// Ledger is the epoch indexed created items and nullifier state.
type Ledger struct {
	verifier proof.Verifier

	// writeMtx serializes writers so the checks performed before proof
	// verification remain valid until the state is mutated.
	writeMtx sync.Mutex

	// The following fields are protected by mtx.
	mtx        sync.RWMutex
	epoch      uint64
	roots      []chainhash.Hash
	rootEpochs map[chainhash.Hash]uint64
	items      *authset.Set
	nullifiers map[chainhash.Hash]struct{}
}

// New returns a ledger at epoch zero whose only root is the commitment of the
// empty set.  Proofs of accepted commits are checked with the verifier.
func New(verifier proof.Verifier) *Ledger {
	items := authset.New()
	genesis := items.Commitment()
	return &Ledger{
		verifier:   verifier,
		roots:      []chainhash.Hash{genesis},
		rootEpochs: map[chainhash.Hash]uint64{genesis: 0},
		items:      items,
		nullifiers: make(map[chainhash.Hash]struct{}),
	}
}

// checkStatement performs the checks of a commit that do not involve its
// proof.
//
// This function MUST be called with the state lock held (for reads).
func (l *Ledger) checkStatement(st *proof.Statement) error {
	rootEpoch, ok := l.rootEpochs[st.ClaimedRoot]
	if !ok {
		str := fmt.Sprintf("claimed root %v is not a root of any epoch "+
			"through %d", st.ClaimedRoot, l.epoch)
		return ruleError(ErrUnknownRoot, str)
	}
	if rootEpoch != l.epoch {
		log.Debugf("Commit of item %v claims the root of epoch %d (latest "+
			"epoch %d)", st.Item, rootEpoch, l.epoch)
	}

	if l.items.Contains(&st.Item) {
		str := fmt.Sprintf("item %v already exists", st.Item)
		return ruleError(ErrDuplicateItem, str)
	}

	seen := make(map[chainhash.Hash]struct{}, len(st.Nullifiers))
	for _, n := range st.Nullifiers {
		if _, ok := l.nullifiers[n]; ok {
			str := fmt.Sprintf("nullifier %v is already registered", n)
			return ruleError(ErrDuplicateNullifier, str)
		}
		if _, ok := seen[n]; ok {
			str := fmt.Sprintf("nullifier %v is revealed more than once", n)
			return ruleError(ErrDuplicateNullifier, str)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// TryAccept applies the commit described by the statement when its claimed
// root is a historical root, its item and nullifiers are new and its proof
// verifies.  It returns the epoch reached by accepting the commit.
//
// A rejected commit leaves the state untouched and results in a RuleError.
// Failures of the verifier backend itself are returned unchanged so the
// caller can retry the commit later.
//
// TryAccept must not be called concurrently with itself; concurrent calls
// are serialized.  It is safe to call concurrently with every read method.
func (l *Ledger) TryAccept(ctx context.Context, st *proof.Statement, p *proof.Proof) (uint64, error) {
	l.writeMtx.Lock()
	defer l.writeMtx.Unlock()

	l.mtx.RLock()
	err := l.checkStatement(st)
	l.mtx.RUnlock()
	if err != nil {
		return 0, err
	}

	// The state cannot change while the write mutex is held, so the proof
	// is verified without blocking readers.
	if err := l.verifier.Verify(ctx, st, p); err != nil {
		if errors.Is(err, proof.ErrBackend) {
			return 0, err
		}
		str := fmt.Sprintf("%v proof for item %v is invalid: %v", p.Kind,
			st.Item, err)
		return 0, ruleError(ErrInvalidProof, str)
	}

	// The item set is only replaced by writers, never modified in place.
	items := l.items.Clone()
	if !items.Add(st.Item) {
		panic(fmt.Sprintf("item %v inserted twice", st.Item))
	}
	root := items.Commitment()

	l.mtx.Lock()
	for _, n := range st.Nullifiers {
		l.nullifiers[n] = struct{}{}
	}
	l.items = items
	l.roots = append(l.roots, root)
	if _, ok := l.rootEpochs[root]; !ok {
		l.rootEpochs[root] = uint64(len(l.roots) - 1)
	}
	l.epoch++
	epoch := l.epoch
	if uint64(len(l.roots)) != epoch+1 {
		l.mtx.Unlock()
		panic(fmt.Sprintf("ledger has %d roots at epoch %d", len(l.roots),
			epoch))
	}
	l.mtx.Unlock()

	log.Infof("Accepted item %v at epoch %d (%d nullifiers, root %v)",
		st.Item, epoch, len(st.Nullifiers), root)
	return epoch, nil
}

// Epoch returns the current epoch.
func (l *Ledger) Epoch() uint64 {
	l.mtx.RLock()
	epoch := l.epoch
	l.mtx.RUnlock()
	return epoch
}

// Root returns the root of the created items set at the provided epoch.
func (l *Ledger) Root(epoch uint64) (chainhash.Hash, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	if epoch > l.epoch {
		str := fmt.Sprintf("epoch %d is beyond the current epoch %d", epoch,
			l.epoch)
		return chainhash.Hash{}, ruleError(ErrUnknownEpoch, str)
	}
	return l.roots[epoch], nil
}

// LatestRoot returns the current epoch along with its root.
func (l *Ledger) LatestRoot() (uint64, chainhash.Hash) {
	l.mtx.RLock()
	epoch, root := l.epoch, l.roots[l.epoch]
	l.mtx.RUnlock()
	return epoch, root
}

// InclusionProof returns the current epoch along with a proof that the item
// belongs to the created items set at that epoch.
func (l *Ledger) InclusionProof(item *chainhash.Hash) (uint64, *authset.InclusionProof, error) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	p, ok := l.items.Prove(item)
	if !ok {
		str := fmt.Sprintf("item %v does not exist", item)
		return 0, nil, ruleError(ErrNotFound, str)
	}
	return l.epoch, p, nil
}

// Items returns the current epoch along with every created item in
// ascending byte order.
func (l *Ledger) Items() (uint64, []chainhash.Hash) {
	l.mtx.RLock()
	epoch, items := l.epoch, l.items.Members()
	l.mtx.RUnlock()
	return epoch, items
}

// NullifierExists returns whether the nullifier is registered.
func (l *Ledger) NullifierExists(n *chainhash.Hash) bool {
	l.mtx.RLock()
	_, ok := l.nullifiers[*n]
	l.mtx.RUnlock()
	return ok
}

// Stats returns a consistent snapshot of the ledger statistics.
func (l *Ledger) Stats() Stats {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	return Stats{
		Epoch:      l.epoch,
		Items:      l.items.Len(),
		Nullifiers: len(l.nullifiers),
		LatestRoot: l.roots[l.epoch],
	}
}

// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/commitsync/commitsyncd/internal/retry"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// fakeSidecar emulates a plonky2 verifier sidecar.  Proofs are sized by
// their first byte and are valid when their remaining bytes equal good and
// the public inputs equal the expected ones.
type fakeSidecar struct {
	good           []byte
	inputs         []uint64
	circuitCalls   atomic.Int32
	failFirstCalls atomic.Int32
}

func (f *fakeSidecar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.failFirstCalls.Add(-1) >= 0 {
		http.Error(w, "warming up", http.StatusServiceUnavailable)
		return
	}

	switch r.URL.Path {
	case remoteCircuitPath:
		f.circuitCalls.Add(1)
		json.NewEncoder(w).Encode(CircuitInfo{
			Digest:          hexutil.Bytes{0xde, 0xad},
			DegreeBits:      12,
			NumPublicInputs: NumPublicInputs,
		})

	case remoteLengthPath:
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			http.Error(w, "empty proof", http.StatusUnprocessableEntity)
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"length": int(body[0])})

	case remoteVerifyPath:
		var req struct {
			Proof        hexutil.Bytes `json:"proof"`
			PublicInputs []uint64      `json:"public_inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		valid := string(req.Proof) == string(f.good) &&
			len(req.PublicInputs) == len(f.inputs)
		for i := 0; valid && i < len(f.inputs); i++ {
			valid = req.PublicInputs[i] == f.inputs[i]
		}
		resp := map[string]any{"valid": valid}
		if !valid {
			resp["error"] = "constraint mismatch"
		}
		json.NewEncoder(w).Encode(resp)

	default:
		http.NotFound(w, r)
	}
}

// testRemoteConfig returns a config for the provided sidecar URL with fast
// retries.
func testRemoteConfig(url string, vdsRoot chainhash.Hash) *RemoteConfig {
	return &RemoteConfig{
		URL:     url + "/",
		Timeout: time.Second,
		Retry: retry.Policy{
			MaxRetries: 3,
			BaseDelay:  time.Millisecond,
			Multiplier: 1,
		},
		VDSRoot: vdsRoot,
	}
}

// TestRemoteVerifier ensures the remote verifier loads circuit metadata once,
// retries transient failures and maps sidecar answers onto proof errors.
func TestRemoteVerifier(t *testing.T) {
	vdsRoot := testHash(42)
	st := NewStatement(testHash(1), testHash(2), []chainhash.Hash{testHash(3)})
	sidecar := &fakeSidecar{
		good:   []byte{4, 0xaa, 0xbb, 0xcc},
		inputs: st.PublicInputs(&vdsRoot),
	}
	sidecar.failFirstCalls.Store(2)
	srv := httptest.NewServer(sidecar)
	defer srv.Close()

	ctx := context.Background()
	v, err := NewRemoteVerifier(ctx, testRemoteConfig(srv.URL, vdsRoot))
	if err != nil {
		t.Fatalf("unable to create verifier: %v", err)
	}
	if got := v.Circuit().DegreeBits; got != 12 {
		t.Fatalf("unexpected degree bits %d", got)
	}

	// Sizing.
	n, err := v.CompressedProofLen(ctx, []byte{4, 0xaa, 0xbb, 0xcc, 0xff, 0xff})
	if err != nil || n != 4 {
		t.Fatalf("unexpected proof length %d (err %v)", n, err)
	}
	if _, err := v.CompressedProofLen(ctx, []byte{9, 1}); !errors.Is(err, ErrMalformedProof) {
		t.Fatalf("overlong proof length: unexpected error %v", err)
	}
	if _, err := v.CompressedProofLen(ctx, nil); !errors.Is(err, ErrMalformedProof) {
		t.Fatalf("empty proof: unexpected error %v", err)
	}

	// Verification.
	good := &Proof{Kind: KindPlonky2, Data: sidecar.good}
	if err := v.Verify(ctx, st, good); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}
	other := NewStatement(testHash(8), testHash(2), nil)
	if err := v.Verify(ctx, other, good); !errors.Is(err, ErrVerification) {
		t.Fatalf("other statement: unexpected error %v", err)
	}
	wrongKind := &Proof{Kind: KindGroth16, Data: sidecar.good}
	if err := v.Verify(ctx, st, wrongKind); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("wrong kind: unexpected error %v", err)
	}

	if calls := sidecar.circuitCalls.Load(); calls != 1 {
		t.Fatalf("circuit metadata fetched %d times", calls)
	}
}

// TestRemoteVerifierUnavailable ensures an unreachable sidecar surfaces as a
// backend error rather than an invalid proof.
func TestRemoteVerifierUnavailable(t *testing.T) {
	sidecar := &fakeSidecar{}
	srv := httptest.NewServer(sidecar)
	v, err := NewRemoteVerifier(context.Background(),
		testRemoteConfig(srv.URL, testHash(1)))
	if err != nil {
		t.Fatalf("unable to create verifier: %v", err)
	}
	srv.Close()

	st := NewStatement(testHash(1), testHash(2), nil)
	err = v.Verify(context.Background(), st, &Proof{Kind: KindPlonky2})
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("unexpected error %v", err)
	}

	_, err = NewRemoteVerifier(context.Background(),
		testRemoteConfig(srv.URL, testHash(1)))
	if err == nil {
		t.Fatal("verifier created without a sidecar")
	}
}

// TestRemoteSizingHonorsContext ensures sizing a proof stops retrying an
// unavailable sidecar once the caller's context is done.
func TestRemoteSizingHonorsContext(t *testing.T) {
	sidecar := &fakeSidecar{}
	srv := httptest.NewServer(sidecar)
	defer srv.Close()

	cfg := testRemoteConfig(srv.URL, testHash(42))
	cfg.Retry = retry.Policy{MaxRetries: 5, BaseDelay: time.Hour, Multiplier: 1}
	v, err := NewRemoteVerifier(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unable to create verifier: %v", err)
	}
	sidecar.failFirstCalls.Store(1000)

	ctx, cancel := context.WithTimeout(context.Background(),
		50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = v.CompressedProofLen(ctx, []byte{1, 2})
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("unexpected error %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("sizing took %v after the context expired", elapsed)
	}
}

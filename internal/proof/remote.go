// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/commitsync/commitsyncd/internal/retry"
	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// remoteCircuitPath returns the circuit metadata of the sidecar.
	remoteCircuitPath = "/circuit"

	// remoteLengthPath sizes a compressed proof at the start of the body.
	remoteLengthPath = "/proof/length"

	// remoteVerifyPath verifies a compressed proof with public inputs.
	remoteVerifyPath = "/proof/verify"

	// maxRemoteResponse bounds the size of sidecar responses.
	maxRemoteResponse = 1 << 20
)

// RemoteConfig configures a RemoteVerifier.
type RemoteConfig struct {
	// URL is the base URL of the plonky2 verifier sidecar.
	URL string

	// Client is the HTTP client used for requests.  http.DefaultClient is
	// used when nil.
	Client *http.Client

	// Timeout bounds every individual request.
	Timeout time.Duration

	// Retry is the policy applied to every request.
	Retry retry.Policy

	// VDSRoot is the verifier data set root appended to the public inputs.
	VDSRoot chainhash.Hash
}

// CircuitInfo describes the plonky2 circuit served by the sidecar.
type CircuitInfo struct {
	Digest          hexutil.Bytes `json:"circuit_digest"`
	DegreeBits      int           `json:"degree_bits"`
	NumPublicInputs int           `json:"num_public_inputs"`
}

// RemoteVerifier verifies plonky2 proofs by driving an external verifier
// sidecar that holds the circuit data.  The circuit metadata is fetched once
// on creation.  It is safe for concurrent use.
//
// RemoteVerifier also implements Context so payload decoding can size the
// compressed proofs it carries.
type RemoteVerifier struct {
	cfg     RemoteConfig
	client  *http.Client
	circuit CircuitInfo
}

// statusError describes an unsuccessful HTTP response.
type statusError struct {
	code int
	msg  string
}

// Error satisfies the error interface.
func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.msg)
}

// NewRemoteVerifier connects to the sidecar and loads its circuit metadata.
func NewRemoteVerifier(ctx context.Context, cfg *RemoteConfig) (*RemoteVerifier, error) {
	v := &RemoteVerifier{
		cfg:    *cfg,
		client: cfg.Client,
	}
	v.cfg.URL = strings.TrimRight(cfg.URL, "/")
	if v.client == nil {
		v.client = http.DefaultClient
	}

	err := v.call(ctx, http.MethodGet, remoteCircuitPath, "", nil, &v.circuit)
	if err != nil {
		return nil, fmt.Errorf("unable to load circuit metadata from %s: %w",
			v.cfg.URL, err)
	}
	if v.circuit.NumPublicInputs != NumPublicInputs {
		return nil, fmt.Errorf("circuit %x expects %d public inputs instead "+
			"of %d", []byte(v.circuit.Digest), v.circuit.NumPublicInputs,
			NumPublicInputs)
	}
	log.Infof("Loaded plonky2 circuit %x (degree bits %d) from %s",
		[]byte(v.circuit.Digest), v.circuit.DegreeBits, v.cfg.URL)
	return v, nil
}

// Circuit returns the metadata of the circuit proofs are verified against.
func (v *RemoteVerifier) Circuit() CircuitInfo {
	return v.circuit
}

// call performs a request with the configured retry policy and decodes the
// JSON response into out.
func (v *RemoteVerifier) call(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	return v.cfg.Retry.Do(ctx, method+" "+path, func(ctx context.Context) error {
		if v.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
			defer cancel()
		}
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, v.cfg.URL+path, r)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := v.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			err := &statusError{
				code: resp.StatusCode,
				msg:  strings.TrimSpace(string(respBody)),
			}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
				resp.StatusCode != http.StatusTooManyRequests {
				return retry.Unrecoverable(err)
			}
			return err
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return retry.Unrecoverable(fmt.Errorf("malformed response: %w", err))
		}
		return nil
	})
}

// classify maps a failed sidecar request onto a proof error.  Requests the
// sidecar refused as unprocessable blame the proof, anything else blames the
// backend.
func classify(err error, what string) error {
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusUnprocessableEntity {
		str := fmt.Sprintf("%s: %s", what, se.msg)
		return proofError(ErrMalformedProof, str)
	}
	str := fmt.Sprintf("%s: %v", what, err)
	return proofError(ErrBackend, str)
}

// CompressedProofLen asks the sidecar how many bytes at the start of b make
// up a compressed proof.
//
// This is part of the Context interface.
func (v *RemoteVerifier) CompressedProofLen(ctx context.Context, b []byte) (int, error) {
	var resp struct {
		Length int `json:"length"`
	}
	err := v.call(ctx, http.MethodPost, remoteLengthPath,
		"application/octet-stream", b, &resp)
	if err != nil {
		return 0, classify(err, "unable to size compressed proof")
	}
	if resp.Length <= 0 || resp.Length > len(b) {
		str := fmt.Sprintf("compressed proof length %d outside of the %d "+
			"available bytes", resp.Length, len(b))
		return 0, proofError(ErrMalformedProof, str)
	}
	return resp.Length, nil
}

// Verify verifies the plonky2 proof against the statement.
//
// This is part of the Verifier interface.
func (v *RemoteVerifier) Verify(ctx context.Context, st *Statement, p *Proof) error {
	if p.Kind != KindPlonky2 {
		str := fmt.Sprintf("plonky2 verifier given %v proof", p.Kind)
		return proofError(ErrUnknownKind, str)
	}

	req := struct {
		Proof        hexutil.Bytes `json:"proof"`
		PublicInputs []uint64      `json:"public_inputs"`
	}{
		Proof:        p.Data,
		PublicInputs: st.PublicInputs(&v.cfg.VDSRoot),
	}
	body, err := json.Marshal(&req)
	if err != nil {
		return proofError(ErrBackend, err.Error())
	}
	var resp struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}
	err = v.call(ctx, http.MethodPost, remoteVerifyPath, "application/json",
		body, &resp)
	if err != nil {
		return classify(err, "unable to verify plonky2 proof")
	}
	if !resp.Valid {
		str := fmt.Sprintf("plonky2 proof does not verify: %s", resp.Error)
		return proofError(ErrVerification, str)
	}
	return nil
}

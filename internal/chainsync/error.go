// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainsync

import (
	"errors"

	"github.com/commitsync/commitsyncd/internal/blob"
	"github.com/commitsync/commitsyncd/internal/ledger"
)

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrCodec indicates a blob whose payload could not be decoded.  The
	// codec error kind is available through the wrapped error.
	ErrCodec = ErrorKind("ErrCodec")

	// ErrMissingExecutionBlock indicates a consensus block with blobs whose
	// execution block is unknown to the execution node.
	ErrMissingExecutionBlock = ErrorKind("ErrMissingExecutionBlock")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// CommitError identifies a blob that was discarded.  It has full support for
// errors.Is and errors.As, so the caller can check against both the kind and
// the underlying error.
type CommitError struct {
	Kind        ErrorKind
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e CommitError) Error() string {
	return e.Description
}

// Unwrap returns the kind along with the underlying error.
func (e CommitError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// WalkError identifies a slot that could not be processed.
type WalkError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e WalkError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e WalkError) Unwrap() error {
	return e.Err
}

// walkError creates a WalkError given a set of arguments.
func walkError(kind ErrorKind, desc string) WalkError {
	return WalkError{Err: kind, Description: desc}
}

// isRejection returns whether the error from processing a blob is a final
// verdict on the blob as opposed to a transient failure.
func isRejection(err error) bool {
	var (
		cerr CommitError
		berr blob.Error
		rerr ledger.RuleError
	)
	return errors.As(err, &cerr) || errors.As(err, &berr) ||
		errors.As(err, &rerr)
}

// rejectReason returns a short label describing why a blob was rejected.
func rejectReason(err error) string {
	kinds := []error{
		blob.ErrOversizedPayload, blob.ErrBadEncoding, ErrCodec,
		ledger.ErrUnknownRoot, ledger.ErrDuplicateItem,
		ledger.ErrDuplicateNullifier, ledger.ErrInvalidProof,
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "other"
}

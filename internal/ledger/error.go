// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrUnknownRoot indicates a commit claiming a root that never was a
	// root of the created items set.
	ErrUnknownRoot = ErrorKind("ErrUnknownRoot")

	// ErrDuplicateItem indicates a commit creating an item that already
	// exists.
	ErrDuplicateItem = ErrorKind("ErrDuplicateItem")

	// ErrDuplicateNullifier indicates a commit revealing a nullifier that
	// is already registered or that it reveals more than once.
	ErrDuplicateNullifier = ErrorKind("ErrDuplicateNullifier")

	// ErrInvalidProof indicates a commit whose proof does not verify.
	ErrInvalidProof = ErrorKind("ErrInvalidProof")

	// ErrUnknownEpoch indicates a query for an epoch beyond the current
	// one.
	ErrUnknownEpoch = ErrorKind("ErrUnknownEpoch")

	// ErrNotFound indicates a query for an item that does not exist.
	ErrNotFound = ErrorKind("ErrNotFound")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
type RuleError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}

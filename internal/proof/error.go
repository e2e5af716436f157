// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrUnknownKind indicates a proof kind tag that is not recognized.
	ErrUnknownKind = ErrorKind("ErrUnknownKind")

	// ErrKindDisabled indicates a proof of a recognized kind for which no
	// verifier backend is configured.
	ErrKindDisabled = ErrorKind("ErrKindDisabled")

	// ErrMalformedProof indicates proof bytes that could not be parsed by
	// the verifier backend.
	ErrMalformedProof = ErrorKind("ErrMalformedProof")

	// ErrVerification indicates a well formed proof that does not verify
	// against the statement.
	ErrVerification = ErrorKind("ErrVerification")

	// ErrBackend indicates the verifier backend itself failed, for example
	// because a remote verifier could not be reached.
	ErrBackend = ErrorKind("ErrBackend")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a proof related error.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// proofError creates an Error given a set of arguments.
func proofError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package payload

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrBadMagic indicates the payload does not start with the payload
	// magic.
	ErrBadMagic = ErrorKind("ErrBadMagic")

	// ErrUnknownProofKind indicates an unrecognized proof kind tag.
	ErrUnknownProofKind = ErrorKind("ErrUnknownProofKind")

	// ErrTruncated indicates fewer bytes are available than the declared
	// lengths require.
	ErrTruncated = ErrorKind("ErrTruncated")

	// ErrFieldOutOfRange indicates a field element that is not below the
	// field modulus.
	ErrFieldOutOfRange = ErrorKind("ErrFieldOutOfRange")

	// ErrMalformedProof indicates a compressed proof whose length could not
	// be determined.
	ErrMalformedProof = ErrorKind("ErrMalformedProof")

	// ErrTooManyNullifiers indicates a payload with more nullifiers than the
	// count byte can represent.
	ErrTooManyNullifiers = ErrorKind("ErrTooManyNullifiers")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// CodecError identifies an error encountered while encoding or decoding a
// payload.  It has full support for errors.Is and errors.As, so the caller
// can ascertain the specific reason for the error by checking the underlying
// error.
type CodecError struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e CodecError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e CodecError) Unwrap() error {
	return e.Err
}

// codecError creates a CodecError given a set of arguments.
func codecError(kind ErrorKind, desc string) CodecError {
	return CodecError{Err: kind, Description: desc}
}

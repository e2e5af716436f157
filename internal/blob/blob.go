// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blob implements the simple packing of arbitrary bytes into blob
// field elements.
//
// A packed blob is a sequence of 32-byte field elements.  The first element
// holds a zero byte, the data length as a big endian u64 and zero padding.
// Every following element holds a zero byte and 31 data bytes, which keeps
// each element below the BLS12-381 scalar field modulus.  Unused trailing
// bytes are zero.
package blob

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

const (
	// ElementSize is the size of a blob field element.
	ElementSize = 32

	// dataPerElement is the number of data bytes carried per element.
	dataPerElement = ElementSize - 1

	// Size is the size of a full blob.
	Size = len(kzg4844.Blob{})

	// MaxDataLen is the number of bytes a full blob can carry.
	MaxDataLen = (Size/ElementSize - 1) * dataPerElement
)

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific ErrorKind.
const (
	// ErrOversizedPayload indicates a declared data length beyond what the
	// blob can carry.
	ErrOversizedPayload = ErrorKind("ErrOversizedPayload")

	// ErrBadEncoding indicates bytes that are not a sequence of whole field
	// elements with room for the length element.
	ErrBadEncoding = ErrorKind("ErrBadEncoding")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a blob packing error.  It has full support for errors.Is
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

// blobError creates an Error given a set of arguments.
func blobError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// capacity returns the number of data bytes a blob of n bytes can carry.
func capacity(n int) int {
	return (n/ElementSize - 1) * dataPerElement
}

// Unpack extracts the data packed into the blob.
func Unpack(b []byte) ([]byte, error) {
	if len(b) < ElementSize || len(b)%ElementSize != 0 {
		str := fmt.Sprintf("blob of %d bytes is not a whole number of "+
			"field elements", len(b))
		return nil, blobError(ErrBadEncoding, str)
	}

	declared := binary.BigEndian.Uint64(b[1:9])
	limit := capacity(len(b))
	if declared > uint64(limit) {
		str := fmt.Sprintf("blob of %d bytes cannot hold the declared %d "+
			"bytes (max %d)", len(b), declared, limit)
		return nil, blobError(ErrOversizedPayload, str)
	}

	n := int(declared)
	data := make([]byte, 0, n)
	for off := ElementSize; len(data) < n; off += ElementSize {
		chunk := b[off+1 : off+ElementSize]
		if remaining := n - len(data); remaining < len(chunk) {
			chunk = chunk[:remaining]
		}
		data = append(data, chunk...)
	}
	return data, nil
}

// Pack packs the data into a blob.
func Pack(data []byte) (*kzg4844.Blob, error) {
	if len(data) > MaxDataLen {
		str := fmt.Sprintf("%d bytes do not fit in a blob (max %d)",
			len(data), MaxDataLen)
		return nil, blobError(ErrOversizedPayload, str)
	}

	var blob kzg4844.Blob
	binary.BigEndian.PutUint64(blob[1:9], uint64(len(data)))
	for i, off := 0, ElementSize; i < len(data); i, off = i+dataPerElement, off+ElementSize {
		copy(blob[off+1:off+ElementSize], data[i:])
	}
	return &blob, nil
}

// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blob

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// TestPackUnpack ensures packed data unpacks to the same bytes across
// element boundaries and that every element keeps a zero leading byte.
func TestPackUnpack(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"single byte", 1},
		{"one element", dataPerElement},
		{"one element plus one", dataPerElement + 1},
		{"odd size", 1000},
		{"full", MaxDataLen},
	}

	for _, test := range tests {
		data := make([]byte, test.n)
		for i := range data {
			data[i] = byte(i*7 + 1)
		}
		blob, err := Pack(data)
		if err != nil {
			t.Errorf("%q: unexpected pack error: %v", test.name, err)
			continue
		}
		for off := 0; off < len(blob); off += ElementSize {
			if blob[off] != 0 {
				t.Errorf("%q: element at %d has nonzero leading byte",
					test.name, off)
				break
			}
		}
		got, err := Unpack(blob[:])
		if err != nil {
			t.Errorf("%q: unexpected unpack error: %v", test.name, err)
			continue
		}
		if !bytes.Equal(got, data) {
			t.Errorf("%q: unpacked data mismatch", test.name)
		}
	}

	if MaxDataLen != 126945 {
		t.Fatalf("unexpected blob capacity %d", MaxDataLen)
	}
}

// TestUnpackErrors ensures blobs declaring more data than they can hold and
// malformed blobs are rejected.
func TestUnpackErrors(t *testing.T) {
	oversized := make([]byte, Size)
	binary.BigEndian.PutUint64(oversized[1:9], uint64(MaxDataLen+1))

	huge := make([]byte, Size)
	binary.BigEndian.PutUint64(huge[1:9], ^uint64(0))

	small := make([]byte, 3*ElementSize)
	binary.BigEndian.PutUint64(small[1:9], 2*dataPerElement+1)

	tests := []struct {
		name    string
		b       []byte
		wantErr error
	}{
		{"declared length one past capacity", oversized, ErrOversizedPayload},
		{"declared length max uint64", huge, ErrOversizedPayload},
		{"short blob over capacity", small, ErrOversizedPayload},
		{"empty", nil, ErrBadEncoding},
		{"partial element", make([]byte, ElementSize+5), ErrBadEncoding},
	}
	for _, test := range tests {
		_, err := Unpack(test.b)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%q: got err %v, want %v", test.name, err, test.wantErr)
		}
	}

	if _, err := Pack(make([]byte, MaxDataLen+1)); !errors.Is(err, ErrOversizedPayload) {
		t.Fatalf("pack of oversized data: unexpected error %v", err)
	}
}

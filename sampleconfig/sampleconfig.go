// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sampleconfig provides the commented example config for commitsyncd.
package sampleconfig

import (
	_ "embed"
)

// sampleCommitsyncdConf is a string containing the commented example config
// for commitsyncd.
//
//go:embed sample-commitsyncd.conf
var sampleCommitsyncdConf string

// Commitsyncd returns a string containing the commented example config for
// commitsyncd.
func Commitsyncd() string {
	return sampleCommitsyncdConf
}

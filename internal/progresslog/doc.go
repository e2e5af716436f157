// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package progresslog provides periodic logging for slot processing.

Tests are included to ensure proper functionality.

## Feature Overview

- Maintains cumulative totals about slots between each logging interval
  - Total number of slots
  - Total number of blob transactions sent to the commit recipient
  - Total number of commit blobs
  - Total number of accepted commits
- Logs all cumulative data every 10 seconds
- Immediately logs any outstanding data when forced, such as when the sync
  reaches the chain head
*/
package progresslog

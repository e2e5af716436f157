// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"sync"
	"time"

	"github.com/decred/slog"
)

// logInterval is the minimum time between two progress messages that are
// not forced.
const logInterval = 10 * time.Second

// pickNoun returns the singular or plural form of a noun depending on the
// provided count.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// SlotSummary describes the outcome of processing a single slot.
type SlotSummary struct {
	// Slot is the processed slot.
	Slot uint64

	// Time is the timestamp of the execution block of the slot.  It is the
	// zero time for slots without an execution block.
	Time time.Time

	// BlobTxns is the number of blob transactions sent to the commit
	// recipient.
	BlobTxns int

	// Blobs is the number of blobs those transactions carry.
	Blobs int

	// Accepted is the number of blobs accepted as commits.
	Accepted int
}

// Logger provides periodic logging of progress towards some action such as
// syncing the chain.
type Logger struct {
	sync.Mutex
	subsystemLogger slog.Logger
	progressAction  string

	// lastLogTime tracks the last time a log statement was shown.
	lastLogTime time.Time

	// lastSlotTime is the most recent execution timestamp seen.
	lastSlotTime time.Time

	// These fields accumulate information about slots between log
	// statements.
	receivedSlots    uint64
	receivedBlobTxns uint64
	receivedBlobs    uint64
	acceptedCommits  uint64
}

// New returns a new slot progress logger.
func New(progressAction string, logger slog.Logger) *Logger {
	return &Logger{
		lastLogTime:     time.Now(),
		progressAction:  progressAction,
		subsystemLogger: logger,
	}
}

// LogProgress accumulates details for the provided slot and periodically
// (every 10 seconds) logs an information message to show progress to the user
// along with duration and totals included.
//
// The force flag may be used to force a log message to be shown regardless of
// the time the last one was shown.
//
// The progress message is templated as follows:
//
//	{progressAction} {numProcessed} {slots|slot} in the last {timePeriod}
//	({numBlobTxns} blob {transactions|transaction}, {numBlobs} {blobs|blob},
//	{numAccepted} accepted {commits|commit}, slot {lastSlot}, epoch {epoch},
//	{lastSlotTimeStamp})
func (l *Logger) LogProgress(summary *SlotSummary, forceLog bool, epoch uint64) {
	l.Lock()
	defer l.Unlock()

	l.receivedSlots++
	l.receivedBlobTxns += uint64(summary.BlobTxns)
	l.receivedBlobs += uint64(summary.Blobs)
	l.acceptedCommits += uint64(summary.Accepted)
	if !summary.Time.IsZero() {
		l.lastSlotTime = summary.Time
	}
	now := time.Now()
	duration := now.Sub(l.lastLogTime)
	if !forceLog && duration < logInterval {
		return
	}

	// Log information about sync progress.
	l.subsystemLogger.Infof("%s %d %s in the last %0.2fs (%d blob %s, %d %s, "+
		"%d accepted %s, slot %d, epoch %d, %s)", l.progressAction,
		l.receivedSlots, pickNoun(l.receivedSlots, "slot", "slots"),
		duration.Seconds(),
		l.receivedBlobTxns, pickNoun(l.receivedBlobTxns, "transaction",
			"transactions"),
		l.receivedBlobs, pickNoun(l.receivedBlobs, "blob", "blobs"),
		l.acceptedCommits, pickNoun(l.acceptedCommits, "commit", "commits"),
		summary.Slot, epoch, l.lastSlotTime.UTC())

	l.receivedSlots = 0
	l.receivedBlobTxns = 0
	l.receivedBlobs = 0
	l.acceptedCommits = 0
	l.lastLogTime = now
}

// SetLastLogTime updates the last time data was logged to the provided time.
func (l *Logger) SetLastLogTime(time time.Time) {
	l.Lock()
	l.lastLogTime = time
	l.Unlock()
}

package service

import "errors"

// Error taxonomy of the indexing pipeline. Callers match with errors.Is.
var (
	// ErrScanInProgress rejects a re-entrant scan call; overlapping scans
	// fail fast instead of queuing
	ErrScanInProgress = errors.New("scan already running")

	// ErrSourceUnavailable wraps permission or IO failures reading the media
	// source. A full scan aborts; an incremental scan logs and aborts
	// silently since it is best-effort.
	ErrSourceUnavailable = errors.New("media source unavailable")

	// ErrStoreWrite wraps a persistence failure for a batch. The scan aborts
	// and all previously committed batches are preserved.
	ErrStoreWrite = errors.New("store write failure")
)

package source

import (
	"context"

	"github.com/lumapix/moments-backend/internal/models"
)

// DeleteChunkSize caps how many ids go into one underlying delete call
const DeleteChunkSize = 200

// MediaSource is the external library of raw media records. Implementations
// own permission handling, metadata extraction, and deletion of the
// underlying files; the indexing pipeline only reads through this interface.
type MediaSource interface {
	// Count returns the total number of items in the source
	Count(ctx context.Context) (int, error)

	// FetchBatch returns up to limit items starting at offset, in a stable
	// source-defined order
	FetchBatch(ctx context.Context, offset, limit int) ([]*models.MediaItem, error)

	// FetchModifiedSince returns items added or changed after the ms timestamp
	FetchModifiedSince(ctx context.Context, sinceMs int64) ([]*models.MediaItem, error)

	// DeleteItems removes items from the source. Partial failure is
	// first-class: both succeeded and failed ids are reported, and failures
	// are retryable.
	DeleteItems(ctx context.Context, ids []string) (*models.DeleteResult, error)
}

// DeleteInChunks splits a deletion across calls of at most DeleteChunkSize
// ids and merges the per-chunk results
func DeleteInChunks(ctx context.Context, src MediaSource, ids []string) (*models.DeleteResult, error) {
	result := &models.DeleteResult{}
	for start := 0; start < len(ids); start += DeleteChunkSize {
		end := start + DeleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		chunk, err := src.DeleteItems(ctx, ids[start:end])
		if err != nil {
			return result, err
		}
		result.DeletedIDs = append(result.DeletedIDs, chunk.DeletedIDs...)
		result.FailedIDs = append(result.FailedIDs, chunk.FailedIDs...)
	}
	return result, nil
}

package storage

import "context"

// BlobStore is the object storage boundary for story assets. Keys are
// slash-separated paths; a story's assets all share one prefix.
type BlobStore interface {
	// Put writes data under key, overwriting any existing object, and
	// returns a stable publicly fetchable URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// DeleteByKey removes a single object. Deleting a missing key is not an
	// error.
	DeleteByKey(ctx context.Context, key string) error
	// DeleteByPrefix removes every object under prefix and returns how many
	// were deleted.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

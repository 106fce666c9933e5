// Package cache provides caches for decoded archive contents.
//
// A Reader configured with a cache keys each entry by its path, CRC32 and
// offset, and only stores data that passed its CRC32 check. Cached slices
// must not be modified by the cache or by its callers.
package cache

// Cache stores decoded file contents by key.
//
// Implementations should handle their own size limits and eviction policies.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the content stored under key.
	Get(key string) ([]byte, bool)

	// Put stores content under key. The cache may drop it immediately,
	// for example when it is larger than the cache.
	Put(key string, content []byte)

	// Delete removes key. Missing keys are a no-op.
	Delete(key string)

	// Len returns the number of cached entries.
	Len() int

	// MaxBytes returns the configured cache size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current cache size in bytes.
	SizeBytes() int64
}

package dat

import (
	"log/slog"

	"github.com/meigma/dat/cache"
)

// DefaultMaxFileSize is a per-file read limit (256MB) suited to archives
// from untrusted sources. Readers have no limit unless WithMaxFileSize is
// given.
const DefaultMaxFileSize = 256 << 20

// IntegrityPolicy decides what a read does when stored bytes do not match
// their recorded CRC32.
type IntegrityPolicy uint8

const (
	// IntegrityWarn reports the mismatch and returns the data anyway.
	IntegrityWarn IntegrityPolicy = iota

	// IntegrityStrict fails the read with ErrIntegrity.
	IntegrityStrict
)

func (p IntegrityPolicy) String() string {
	switch p {
	case IntegrityWarn:
		return "warn"
	case IntegrityStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger for reader operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// WithIntegrityPolicy sets how CRC32 mismatches are handled.
// The default is IntegrityWarn.
func WithIntegrityPolicy(p IntegrityPolicy) Option {
	return func(r *Reader) {
		r.policy = p
	}
}

// WithIntegrityHandler registers fn to receive every CRC32 mismatch found
// by a read, under either policy. fn may be called concurrently.
func WithIntegrityHandler(fn func(IntegrityWarning)) Option {
	return func(r *Reader) {
		r.onWarning = fn
	}
}

// WithMaxFileSize limits the stored and declared size of any file a read
// will allocate for. The default, 0, disables the limit.
func WithMaxFileSize(limit uint64) Option {
	return func(r *Reader) {
		r.maxFileSize = limit
	}
}

// WithCache serves repeated reads of the same entry from c.
//
// Concurrent misses on one entry are collapsed into a single read. Data
// that failed its CRC32 check is never cached.
func WithCache(c cache.Cache) Option {
	return func(r *Reader) {
		r.cache = c
	}
}

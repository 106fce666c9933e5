// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import "math"

// ToInt converts a uint64 to int, returning overflowErr if it doesn't fit.
func ToInt(size uint64, overflowErr error) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, overflowErr
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning overflowErr if it doesn't fit.
func ToInt64(size uint64, overflowErr error) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// Span returns the length of the inclusive byte range [start, end].
//
// An empty range is written as end == start-1. ok is false when end lies
// further before start than that, or when the length overflows.
func Span(start, end uint64) (n uint64, ok bool) {
	last, ok := AddUint64(end, 1)
	if !ok || last < start {
		return 0, false
	}
	return last - start, true
}

// LastByte returns the inclusive end offset of a range of n bytes that
// begins at start. For n == 0 the result is start-1.
func LastByte(start, n uint64) uint64 {
	return start + n - 1
}

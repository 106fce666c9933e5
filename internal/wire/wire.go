// Package wire holds the fixed-width integer encoding used by every
// multi-byte field in the archive format.
//
// All integers are little-endian. Nothing outside this package picks a
// byte order.
package wire

import "encoding/binary"

// Order is the byte order of every multi-byte field on disk.
var Order = binary.LittleEndian

// AppendUint32 appends v to b.
func AppendUint32(b []byte, v uint32) []byte {
	return Order.AppendUint32(b, v)
}

// AppendUint64 appends v to b.
func AppendUint64(b []byte, v uint64) []byte {
	return Order.AppendUint64(b, v)
}

// Uint32 decodes the first four bytes of b.
func Uint32(b []byte) uint32 {
	return Order.Uint32(b)
}

// Uint64 decodes the first eight bytes of b.
func Uint64(b []byte) uint64 {
	return Order.Uint64(b)
}

// PutUint64 encodes v into the first eight bytes of b.
func PutUint64(b []byte, v uint64) {
	Order.PutUint64(b, v)
}

// Package iocount counts bytes on the way through a reader or writer.
//
// The archive writer uses a Writer as its cursor into the data region, so
// entry offsets and the table offset come from the count rather than from
// seeking, and a Reader to learn a file's declared size while it streams.
package iocount

import (
	"errors"
	"io"
)

// ErrOverflow indicates a counter exceeded its maximum value.
var ErrOverflow = errors.New("counter overflow")

// Reader counts the bytes read from R. N is the total so far.
type Reader struct {
	R io.Reader
	N uint64
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.R.Read(p)
	if n > 0 {
		if r.N > ^uint64(0)-uint64(n) {
			return n, ErrOverflow
		}
		r.N += uint64(n)
	}
	return n, err
}

// Writer tracks the absolute position of the next byte written to W.
// Seed N with the position of the first write; bytes that W reports as
// written advance it, including bytes a buffered W has not yet flushed.
type Writer struct {
	W io.Writer
	N uint64
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.W.Write(p)
	if n > 0 {
		if w.N > ^uint64(0)-uint64(n) {
			return n, ErrOverflow
		}
		w.N += uint64(n)
	}
	return n, err
}

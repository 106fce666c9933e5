// Package dat reads and writes single-file archives with a trailing file
// table.
//
// An archive is a 13-byte header, a data region holding each file's stored
// bytes back to back, and a table of fixed-layout records that maps every
// logical path to its byte range, size, CRC32 and flags. The header's table
// offset is written as zero when an archive is created and patched once the
// table has been written, so an archive is only readable after
// [Writer.Finish] succeeds.
//
// Files can be stored raw or as zlib (deflate) streams. The CRC32 always
// covers the stored bytes, so integrity can be checked without inflating
// anything.
//
// # Writing
//
//	w, err := dat.Create("assets.dat", true)
//	if err != nil {
//	    return err
//	}
//	if err := w.AddFile("./a.txt", "/a.txt", false); err != nil {
//	    return err
//	}
//	return w.Finish()
//
// Adding a second file under an existing path replaces the earlier entry.
// The earlier bytes stay in the data region but are no longer reachable.
//
// # Reading
//
//	r, err := dat.Open("assets.dat")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	data, err := r.ReadFile("/a.txt")
//
// A CRC mismatch is reported as an [IntegrityWarning] and the data is still
// returned. Use [WithIntegrityPolicy] with [IntegrityStrict] to turn
// mismatches into errors instead.
package dat

package dat

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ExtractStats summarizes an Extract call.
type ExtractStats struct {
	// Files is the number of files written.
	Files int

	// Skipped is the number of files left alone because the target existed.
	Skipped int

	// Bytes is the total size of the files written.
	Bytes uint64
}

type extractJob struct {
	entry  Entry
	target string // slash-separated, relative to the destination root
}

// Extract writes files from the archive under destDir.
//
// Archive paths are mapped to relative paths by turning backslashes into
// slashes and dropping leading slashes. A path that is empty after that, or
// that contains "." or ".." elements, fails the whole call with
// ErrUnsafePath before anything is written. All writes go through an
// os.Root opened on destDir, so no file is created outside it.
//
// Each file is written to a temporary file that is renamed into place.
// Existing files are skipped unless ExtractWithOverwrite is set. The first
// error cancels the remaining work.
func (r *Reader) Extract(ctx context.Context, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	var stats ExtractStats
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	jobs, err := r.extractJobs(cfg.paths)
	if err != nil {
		return stats, err
	}
	if len(jobs) == 0 {
		return stats, nil
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return stats, fmt.Errorf("create destination: %w", err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return stats, fmt.Errorf("open destination: %w", err)
	}
	defer root.Close()

	workers := cfg.workers
	switch {
	case workers == 0:
		workers = runtime.GOMAXPROCS(0)
	case workers < 0:
		workers = 1
	}
	r.log().Info("extracting archive", "path", r.path, "dest", destDir, "files", len(jobs), "workers", workers)

	var (
		files, skipped atomic.Int64
		written        atomic.Uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, ok, err := r.extractFile(root, job, cfg.overwrite)
			if err != nil {
				return err
			}
			if !ok {
				skipped.Add(1)
				r.log().Debug("skipped existing file", "path", job.entry.Path, "target", job.target)
				return nil
			}
			done := files.Add(1)
			total := written.Add(n)
			if cfg.progress != nil {
				cfg.progress(ProgressEvent{
					Stage:      StageExtracting,
					Path:       job.entry.Path,
					BytesDone:  total,
					FilesDone:  int(done),
					FilesTotal: len(jobs),
				})
			}
			return nil
		})
	}
	err = g.Wait()
	stats = ExtractStats{Files: int(files.Load()), Skipped: int(skipped.Load()), Bytes: written.Load()}
	if err == nil && stats.Files+stats.Skipped < len(jobs) {
		err = ctx.Err()
	}
	if err != nil {
		return stats, err
	}
	r.log().Info("extracted archive", "path", r.path, "files", stats.Files, "skipped", stats.Skipped, "bytes", stats.Bytes)
	return stats, nil
}

// extractJobs resolves the entries to extract and their targets. When two
// archive paths map to the same target the later entry in table order wins.
func (r *Reader) extractJobs(paths []string) ([]extractJob, error) {
	var entries []Entry
	if len(paths) == 0 {
		entries = make([]Entry, 0, r.Len())
		for e := range r.Entries() {
			entries = append(entries, e)
		}
	} else {
		entries = make([]Entry, 0, len(paths))
		for _, p := range paths {
			e, err := r.Entry(p)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}

	jobs := make([]extractJob, 0, len(entries))
	byTarget := make(map[string]int, len(entries))
	for _, e := range entries {
		target, err := ExtractTarget(e.Path)
		if err != nil {
			return nil, err
		}
		if i, ok := byTarget[target]; ok {
			r.log().Debug("extract target collision", "target", target, "replaced", jobs[i].entry.Path, "by", e.Path)
			jobs[i].entry = e
			continue
		}
		byTarget[target] = len(jobs)
		jobs = append(jobs, extractJob{entry: e, target: target})
	}
	return jobs, nil
}

// ExtractTarget returns the slash-separated relative path Extract writes
// archivePath to, or an error wrapping ErrUnsafePath.
func ExtractTarget(archivePath string) (string, error) {
	p := strings.ReplaceAll(archivePath, `\`, "/")
	p = strings.TrimLeft(p, "/")
	if p == "" || !fs.ValidPath(p) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, archivePath)
	}
	return p, nil
}

// extractFile writes one entry through root. ok is false when the target
// already existed and overwrite is off.
func (r *Reader) extractFile(root *os.Root, job extractJob, overwrite bool) (n uint64, ok bool, err error) {
	if !overwrite {
		if _, err := root.Lstat(job.target); err == nil {
			return 0, false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return 0, false, fmt.Errorf("extract %s: %w", job.entry.Path, err)
		}
	}

	data, err := r.ReadFile(job.entry.Path)
	if err != nil {
		return 0, false, fmt.Errorf("extract %s: %w", job.entry.Path, err)
	}
	if err := writeFileAtomic(root, job.target, data, overwrite); err != nil {
		return 0, false, fmt.Errorf("extract %s: %w", job.entry.Path, err)
	}
	return uint64(len(data)), true, nil
}

// writeFileAtomic writes data to a temp file next to target then renames it
// into place.
func writeFileAtomic(root *os.Root, target string, data []byte, overwrite bool) error {
	dir := path.Dir(target)
	if dir != "." {
		if err := root.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmpPath := path.Join(dir, ".dat-"+rand.Text())
	tmp, err := root.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	success := false
	defer func() {
		if !success {
			tmp.Close()
			root.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Rename cannot replace an existing file on every platform, and must
	// never replace a directory.
	if overwrite {
		if info, err := root.Lstat(target); err == nil && info.IsDir() {
			return &fs.PathError{Op: "extract", Path: target, Err: errors.New("is a directory")}
		}
		_ = root.Remove(target) // rename reports it if removal was needed but failed
	}

	if err := root.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("renaming to destination: %w", err)
	}
	success = true
	return nil
}

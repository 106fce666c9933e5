package disk

import (
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

type cacheFile struct {
	path    string
	size    int64
	modTime time.Time
}

// walkFiles calls fn for every regular file under root except in-progress
// temp files. A missing root has no files.
func walkFiles(root string, fn func(path string, info fs.FileInfo)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fn(path, info)
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func dirSize(root string) (int64, error) {
	var total int64
	err := walkFiles(root, func(_ string, info fs.FileInfo) {
		total += info.Size()
	})
	return total, err
}

// pruneDir removes files under root, oldest modification time first, until
// their total size is at most targetBytes.
func pruneDir(root string, targetBytes int64) (freed, remaining int64, err error) {
	var files []cacheFile
	err = walkFiles(root, func(path string, info fs.FileInfo) {
		remaining += info.Size()
		files = append(files, cacheFile{path: path, size: info.Size(), modTime: info.ModTime()})
	})
	if err != nil {
		return 0, 0, err
	}
	if remaining <= targetBytes {
		return 0, remaining, nil
	}

	slices.SortFunc(files, func(a, b cacheFile) int {
		return cmp.Or(a.modTime.Compare(b.modTime), cmp.Compare(a.path, b.path))
	})

	for _, f := range files {
		if remaining <= targetBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return freed, remaining, err
		}
		remaining -= f.size
		freed += f.size
	}
	return freed, remaining, nil
}

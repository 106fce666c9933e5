package dat

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	workers   int
	overwrite bool
	paths     []string
	progress  ProgressFunc
}

// ExtractWithWorkers sets the number of files extracted in parallel.
// Values < 0 force serial extraction. Zero uses GOMAXPROCS.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithOverwrite allows replacing existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractPaths restricts extraction to the given archive paths. Every path
// must be present in the archive.
func ExtractPaths(paths ...string) ExtractOption {
	return func(c *extractConfig) {
		c.paths = append(c.paths, paths...)
	}
}

// ExtractWithProgress sets a callback that receives a StageExtracting event
// after each file.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}

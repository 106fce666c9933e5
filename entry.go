package dat

import "github.com/meigma/dat/internal/table"

type (
	// Entry is one file's record in the archive table.
	Entry = table.Entry

	// Flags are the per-entry flag bits. Encrypted is reserved and has no
	// behavior.
	Flags = table.Flags
)

const (
	// MaxPathLen is the longest path an archive can store, in bytes.
	MaxPathLen = table.MaxPathLen

	// MaxFileType is the largest file type tag.
	MaxFileType = table.MaxFileType
)

package dat

// ProgressStage identifies the current phase of an operation.
type ProgressStage string

const (
	// StageAdding is reported after each file is written to an archive.
	StageAdding ProgressStage = "adding"

	// StageFinishing is reported once the table has been written.
	StageFinishing ProgressStage = "finishing"

	// StageExtracting is reported after each file is extracted.
	StageExtracting ProgressStage = "extracting"
)

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage ProgressStage

	// Path is the file just processed, empty for StageFinishing.
	Path string

	// BytesDone is the running total of bytes written: stored bytes for
	// writers, file bytes for extraction.
	BytesDone uint64

	// BytesTotal is the expected total, or 0 when unknown.
	BytesTotal uint64

	FilesDone  int
	FilesTotal int
}

// ProgressFunc receives progress updates.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)

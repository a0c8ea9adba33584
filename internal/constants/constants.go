// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Exit codes
const (
	// ExitOK is returned on normal completion, including runs with no duplicates
	ExitOK = 0

	// ExitFailure is returned for validation errors: missing directory,
	// no qualifying images, negative threshold
	ExitFailure = 1
)

// Frame extraction constants
const (
	// FrameNamePattern names extracted frames. Six digits keep lexicographic
	// order equal to frame order for videos of up to a million frames.
	FrameNamePattern = "frame_%06d"

	// DirPerm is the permission used for created output directories
	DirPerm = 0o755
)

// Progress output constants
const (
	// ProgressDescriptionWidth caps the file name shown next to the progress bar
	ProgressDescriptionWidth = 40
)

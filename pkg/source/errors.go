package source

import "errors"

var (
	// ErrNoFrames indicates a directory without any readable frame image.
	ErrNoFrames = errors.New("source: no frames found")
	// ErrFrameSize indicates frames of differing dimensions.
	ErrFrameSize = errors.New("source: frames differ in size")
	// ErrUnsupportedFormat indicates a file type or FITS layout that cannot be read as a stack.
	ErrUnsupportedFormat = errors.New("source: unsupported format")
)

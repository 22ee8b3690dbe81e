// Package source loads image stacks from disk: FITS cubes, multi-page
// TIFF stacks, directories of frame images and single frame images.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stackview/internal/models"
)

var fitsExtensions = map[string]bool{
	".fits": true,
	".fit":  true,
	".fts":  true,
}

// Open loads the stack at path, choosing the loader from the path type
// and extension.
func Open(path string) (*models.ImageStack, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadFrameDir(path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case fitsExtensions[ext]:
		return LoadFITSFile(path)
	case tiffExtensions[ext]:
		return LoadTIFFFile(path)
	case frameExtensions[ext]:
		return LoadFrames([]string{path})
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

package source

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"stackview/internal/models"
)

// frameExtensions lists the image formats accepted as stack frames
var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// LoadFrameDir loads every PNG/JPEG file in dir as one frame of a stack.
//
// Frames are ordered by the number embedded in their file name so that
// frame_2.png precedes frame_10.png. All frames must share dimensions.
// Samples are 16-bit grayscale luminance.
func LoadFrameDir(dir string) (*models.ImageStack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}

	sort.SliceStable(paths, func(i, j int) bool {
		ni, nj := extractNumber(paths[i]), extractNumber(paths[j])
		if ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})

	return LoadFrames(paths)
}

// LoadFrames decodes the given image files, in order, into a stack
func LoadFrames(paths []string) (*models.ImageStack, error) {
	if len(paths) == 0 {
		return nil, ErrNoFrames
	}

	var data []float64
	var width, height int
	for i, path := range paths {
		img, err := loadImage(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load frame %s: %w", path, err)
		}

		bounds := img.Bounds()
		if i == 0 {
			width, height = bounds.Dx(), bounds.Dy()
			data = make([]float64, 0, width*height*len(paths))
		} else if bounds.Dx() != width || bounds.Dy() != height {
			return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d",
				ErrFrameSize, path, bounds.Dx(), bounds.Dy(), width, height)
		}

		data = append(data, imageToGray(img)...)
	}

	return models.NewImageStack(data, len(paths), height, width, models.Uint16)
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// loadImage decodes a PNG or JPEG file
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// imageToGray converts an image to 16-bit luminance samples in row-major order
func imageToGray(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			result[y*width+x] = float64(g.Y)
		}
	}

	return result
}

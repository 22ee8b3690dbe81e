package source

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/chai2010/tiff"

	"stackview/internal/models"
)

var tiffExtensions = map[string]bool{
	".tif":  true,
	".tiff": true,
}

// LoadTIFFFile opens path and reads every page as one frame
func LoadTIFFFile(path string) (*models.ImageStack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stack, err := LoadTIFF(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stack, nil
}

// LoadTIFF reads a multi-page TIFF as a stack, one frame per page.
//
// Stacks whose pages are all 8-bit grayscale keep their raw samples
// (Kind uint8); any other page layout is read as 16-bit luminance.
func LoadTIFF(r io.Reader) (*models.ImageStack, error) {
	m, errs, err := tiff.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tiff: %w", err)
	}

	pages := make([]image.Image, 0, len(m))
	for i := range m {
		if len(m[i]) == 0 {
			continue
		}
		if errs[i][0] != nil {
			return nil, fmt.Errorf("failed to decode tiff page %d: %w", i, errs[i][0])
		}
		pages = append(pages, m[i][0])
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w in tiff", ErrNoFrames)
	}

	kind := models.Uint8
	for _, page := range pages {
		if _, ok := page.(*image.Gray); !ok {
			kind = models.Uint16
			break
		}
	}

	bounds := pages[0].Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]float64, 0, width*height*len(pages))
	for i, page := range pages {
		b := page.Bounds()
		if b.Dx() != width || b.Dy() != height {
			return nil, fmt.Errorf("%w: page %d is %dx%d, want %dx%d",
				ErrFrameSize, i, b.Dx(), b.Dy(), width, height)
		}

		if gray, ok := page.(*image.Gray); ok && kind == models.Uint8 {
			data = append(data, grayPixels(gray)...)
		} else {
			data = append(data, imageToGray(page)...)
		}
	}

	return models.NewImageStack(data, len(pages), height, width, kind)
}

// grayPixels returns the raw 8-bit samples of img in row-major order
func grayPixels(img *image.Gray) []float64 {
	bounds := img.Bounds()
	result := make([]float64, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
		for _, v := range row {
			result = append(result, float64(v))
		}
	}
	return result
}

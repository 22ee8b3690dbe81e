package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"

	"stackview/internal/models"
)

// Format identifies an encoding for a rendered projection
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpg"
	FITS Format = "fits"
)

// FormatFromPath picks the format matching the file extension of path
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".fits", ".fit", ".fts":
		return FITS, nil
	}
	return "", fmt.Errorf("unsupported output format: %s (must be .png, .jpg or .fits)", path)
}

// ToImage converts a projection to a 16-bit grayscale image, mapping the
// projection's minimum to black and its maximum to white. A constant
// projection renders black; NaN samples render black.
func ToImage(p *models.Projection) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, p.Cols, p.Rows))
	lo, hi := p.Range()
	span := hi - lo

	for y := 0; y < p.Rows; y++ {
		for x := 0; x < p.Cols; x++ {
			v := p.At(y, x)
			var value uint16
			if span > 0 && !math.IsNaN(v) {
				value = uint16(math.Max(0, math.Min(65535, (v-lo)/span*65535)))
			}
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}

// Encode writes p to w in the requested format.
//
// PNG and JPEG are normalized grayscale renderings. FITS keeps the raw
// float64 samples (BITPIX -64) and records the operation in the OPERATN card.
func Encode(w io.Writer, p *models.Projection, format Format) error {
	switch format {
	case PNG:
		return png.Encode(w, ToImage(p))
	case JPEG:
		return jpeg.Encode(w, ToImage(p), &jpeg.Options{Quality: 90})
	case FITS:
		return writeFits(w, p)
	}
	return fmt.Errorf("unsupported output format: %q", format)
}

// writeFits streams a single-image fits file to w
func writeFits(w io.Writer, p *models.Projection) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	im := fitsio.NewImage(-64, []int{p.Cols, p.Rows})
	defer im.Close()
	err = im.Header().Append(
		fitsio.Card{Name: "OPERATN", Value: p.Operation, Comment: "projection operation"},
		fitsio.Card{Name: "SRCKIND", Value: p.Kind.String(), Comment: "numeric domain of samples"},
	)
	if err != nil {
		return err
	}

	data := make([]float64, len(p.Data))
	copy(data, p.Data)
	if err := im.Write(data); err != nil {
		return err
	}
	return fits.Write(im)
}

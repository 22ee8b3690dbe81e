package source

import (
	"fmt"
	"io"
	"os"

	"github.com/astrogo/fitsio"

	"stackview/internal/models"
)

// LoadFITSFile opens path and reads its primary image as a stack
func LoadFITSFile(path string) (*models.ImageStack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadFITS(f)
}

// LoadFITS reads the primary HDU of a FITS stream as a stack.
//
// A 3-axis image is read as NAXIS3 frames of NAXIS2 rows by NAXIS1
// columns; a 2-axis image is a single frame. BZERO and BSCALE are applied,
// so 16-bit data with BZERO=32768 comes back as unsigned samples.
func LoadFITS(r io.Reader) (*models.ImageStack, error) {
	fits, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open fits: %w", err)
	}
	defer fits.Close()

	if len(fits.HDUs()) == 0 {
		return nil, fmt.Errorf("%w: fits file has no HDU", ErrUnsupportedFormat)
	}
	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%w: primary HDU is not an image", ErrUnsupportedFormat)
	}

	hdr := img.Header()
	axes := hdr.Axes()
	var cols, rows, frames int
	switch len(axes) {
	case 2:
		cols, rows, frames = axes[0], axes[1], 1
	case 3:
		cols, rows, frames = axes[0], axes[1], axes[2]
	default:
		return nil, fmt.Errorf("%w: image has %d axes, want 2 or 3", ErrUnsupportedFormat, len(axes))
	}

	n := cols * rows * frames
	data, kind, err := readPixels(img, hdr.Bitpix(), n)
	if err != nil {
		return nil, err
	}

	bzero := cardFloat(hdr, "BZERO", 0)
	bscale := cardFloat(hdr, "BSCALE", 1)
	if bzero != 0 || bscale != 1 {
		for i, v := range data {
			data[i] = bzero + bscale*v
		}
		kind = scaledKind(kind, bzero, bscale)
	}

	return models.NewImageStack(data, frames, rows, cols, kind)
}

// readPixels reads n samples stored with the given BITPIX
func readPixels(img fitsio.Image, bitpix, n int) ([]float64, models.Kind, error) {
	data := make([]float64, n)
	switch bitpix {
	case 8:
		buf := make([]uint8, n)
		if err := img.Read(&buf); err != nil {
			return nil, 0, err
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
		return data, models.Uint8, nil
	case 16:
		buf := make([]int16, n)
		if err := img.Read(&buf); err != nil {
			return nil, 0, err
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
		return data, models.Int16, nil
	case 32:
		buf := make([]int32, n)
		if err := img.Read(&buf); err != nil {
			return nil, 0, err
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
		return data, models.Int32, nil
	case 64:
		buf := make([]int64, n)
		if err := img.Read(&buf); err != nil {
			return nil, 0, err
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
		return data, models.Int64, nil
	case -32:
		buf := make([]float32, n)
		if err := img.Read(&buf); err != nil {
			return nil, 0, err
		}
		for i, v := range buf {
			data[i] = float64(v)
		}
		return data, models.Float32, nil
	case -64:
		if err := img.Read(&data); err != nil {
			return nil, 0, err
		}
		return data, models.Float64, nil
	}
	return nil, 0, fmt.Errorf("%w: BITPIX %d", ErrUnsupportedFormat, bitpix)
}

// scaledKind is the kind of samples after applying BZERO/BSCALE.
// The unsigned conventions of the FITS standard map back to unsigned kinds.
func scaledKind(raw models.Kind, bzero, bscale float64) models.Kind {
	if bscale != 1 {
		return models.Float64
	}
	switch {
	case raw == models.Int16 && bzero == 32768:
		return models.Uint16
	case raw.IsInteger() && bzero == float64(int64(bzero)):
		return models.Int64
	case raw == models.Float32:
		return models.Float32
	}
	return models.Float64
}

// cardFloat returns the numeric value of a header card, or def when absent
func cardFloat(hdr *fitsio.Header, name string, def float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return def
	}
	switch v := card.Value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return def
}

// Package filter provides separable spatial filters (Gaussian, box and
// high-pass) over 2D projections. Borders are handled by half-sample
// symmetric reflection (d c b a | a b c d | d c b a).
package filter

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"stackview/internal/models"
)

// ErrInvalidParameter is returned for a negative sigma or a kernel size below one
var ErrInvalidParameter = errors.New("filter: invalid parameter")

// Truncate is the number of standard deviations a Gaussian kernel extends
// on each side of its centre.
const Truncate = 4.0

// GaussianKernel returns the normalized 1D Gaussian weights for sigma,
// with radius int(Truncate*sigma + 0.5) capped at maxRadius.
func GaussianKernel(sigma float64, maxRadius int) []float64 {
	radius := maxRadius
	if r := math.Floor(Truncate*sigma + 0.5); r < float64(maxRadius) {
		radius = int(r)
	}
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		x := float64(i - radius)
		kernel[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// BoxKernel returns size equal weights summing to one
func BoxKernel(size int) []float64 {
	kernel := make([]float64, size)
	for i := range kernel {
		kernel[i] = 1 / float64(size)
	}
	return kernel
}

// Gaussian smooths p with an isotropic Gaussian of the given sigma.
// A sigma of zero returns a copy of p. The kernel never extends past the
// larger image dimension, so a very wide sigma tends to a box mean.
func Gaussian(p *models.Projection, sigma float64) (*models.Projection, error) {
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("%w: sigma %v", ErrInvalidParameter, sigma)
	}
	if sigma == 0 {
		return clone(p), nil
	}
	return separable(p, GaussianKernel(sigma, max(p.Rows, p.Cols))), nil
}

// Uniform replaces every sample with the mean of the size x size window
// around it (low-pass).
func Uniform(p *models.Projection, size int) (*models.Projection, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: kernel size %d", ErrInvalidParameter, size)
	}
	return separable(p, BoxKernel(size)), nil
}

// HighPass subtracts the size x size box-smoothed version of p from p
func HighPass(p *models.Projection, size int) (*models.Projection, error) {
	low, err := Uniform(p, size)
	if err != nil {
		return nil, err
	}

	var diff mat.Dense
	diff.Sub(p.Dense(), low.Dense())

	out := models.NewProjection(p.Rows, p.Cols, models.Float64, p.Operation)
	copy(out.Data, diff.RawMatrix().Data)
	return out, nil
}

// separable correlates p with kernel along rows, then along columns
func separable(p *models.Projection, kernel []float64) *models.Projection {
	tmp := models.NewProjection(p.Rows, p.Cols, models.Float64, p.Operation)
	for r := 0; r < p.Rows; r++ {
		correlate1D(tmp.Data[r*p.Cols:(r+1)*p.Cols], p.Data[r*p.Cols:(r+1)*p.Cols], kernel)
	}

	out := models.NewProjection(p.Rows, p.Cols, models.Float64, p.Operation)
	col := make([]float64, p.Rows)
	res := make([]float64, p.Rows)
	for c := 0; c < p.Cols; c++ {
		for r := 0; r < p.Rows; r++ {
			col[r] = tmp.Data[r*p.Cols+c]
		}
		correlate1D(res, col, kernel)
		for r := 0; r < p.Rows; r++ {
			out.Data[r*p.Cols+c] = res[r]
		}
	}
	return out
}

// correlate1D writes dst[i] = sum_j kernel[j] * src[i+j-len(kernel)/2]
// with reflected borders.
func correlate1D(dst, src, kernel []float64) {
	n := len(src)
	origin := len(kernel) / 2
	for i := range dst {
		var acc float64
		for j, w := range kernel {
			acc += w * src[reflect(i+j-origin, n)]
		}
		dst[i] = acc
	}
}

// reflect maps an out-of-range index into [0, n) by mirroring about the
// edges, repeating with period 2n.
func reflect(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

func clone(p *models.Projection) *models.Projection {
	out := models.NewProjection(p.Rows, p.Cols, models.Float64, p.Operation)
	copy(out.Data, p.Data)
	return out
}

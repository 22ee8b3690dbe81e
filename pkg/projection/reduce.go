package projection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"stackview/internal/models"
)

// validateStack rejects stacks that cannot be reduced along the frame axis
func validateStack(s *models.ImageStack) error {
	if s == nil {
		return fmt.Errorf("%w: nil stack", ErrInvalidInput)
	}
	if s.Frames() <= 0 || s.Rows() <= 0 || s.Cols() <= 0 {
		return fmt.Errorf("%w: stack must be 3-dimensional and non-empty, got %dx%dx%d",
			ErrInvalidInput, s.Frames(), s.Rows(), s.Cols())
	}
	return nil
}

// Max computes the per-pixel maximum across the frame axis.
// The result keeps the stack's Kind since no new values are produced.
func Max(s *models.ImageStack) (*models.Projection, error) {
	if err := validateStack(s); err != nil {
		return nil, err
	}

	out := models.NewProjection(s.Rows(), s.Cols(), s.Kind(), string(MaxProjection))
	copy(out.Data, s.Frame(0))
	for f := 1; f < s.Frames(); f++ {
		for i, v := range s.Frame(f) {
			if v > out.Data[i] {
				out.Data[i] = v
			}
		}
	}
	return out, nil
}

// Sum computes the per-pixel sum across the frame axis.
//
// Samples are accumulated in float64 regardless of the source type, which
// is exact for integer data as long as every sum stays below 2^53.
func Sum(s *models.ImageStack) (*models.Projection, error) {
	if err := validateStack(s); err != nil {
		return nil, err
	}

	kind := models.Float64
	if s.Kind().IsInteger() {
		kind = models.Int64
	}
	out := models.NewProjection(s.Rows(), s.Cols(), kind, string(SumProjection))
	accumulate(out.Data, s)
	return out, nil
}

// Mean computes the per-pixel arithmetic mean across the frame axis
func Mean(s *models.ImageStack) (*models.Projection, error) {
	if err := validateStack(s); err != nil {
		return nil, err
	}

	out := models.NewProjection(s.Rows(), s.Cols(), models.Float64, string(MeanProjection))
	accumulate(out.Data, s)
	floats.Scale(1/float64(s.Frames()), out.Data)
	return out, nil
}

// StdDev computes the per-pixel population standard deviation (divisor N)
// across the frame axis using a two-pass algorithm.
func StdDev(s *models.ImageStack) (*models.Projection, error) {
	if err := validateStack(s); err != nil {
		return nil, err
	}

	mean := make([]float64, s.FrameSize())
	accumulate(mean, s)
	floats.Scale(1/float64(s.Frames()), mean)

	out := models.NewProjection(s.Rows(), s.Cols(), models.Float64, string(StdDevProjection))
	dev := make([]float64, s.FrameSize())
	for f := 0; f < s.Frames(); f++ {
		floats.SubTo(dev, s.Frame(f), mean)
		floats.Mul(dev, dev)
		floats.Add(out.Data, dev)
	}
	floats.Scale(1/float64(s.Frames()), out.Data)
	for i, v := range out.Data {
		out.Data[i] = math.Sqrt(v)
	}
	return out, nil
}

// accumulate adds every frame of s into dst
func accumulate(dst []float64, s *models.ImageStack) {
	for f := 0; f < s.Frames(); f++ {
		floats.Add(dst, s.Frame(f))
	}
}

// neighbourOffsets are the forward half of the 8-connected neighbourhood;
// each unordered pixel pair is visited once.
var neighbourOffsets = [4][2]int{
	{0, 1},  // right
	{1, -1}, // down-left
	{1, 0},  // down
	{1, 1},  // down-right
}

// Correlation computes the local correlation image: each pixel holds the
// mean Pearson correlation between its time trace and the traces of its
// in-bounds 8-connected neighbours.
//
// A pair involving a constant trace has no defined correlation and
// contributes 0. A pixel with no neighbours (1x1 frames) is 0.
func Correlation(s *models.ImageStack) (*models.Projection, error) {
	if err := validateStack(s); err != nil {
		return nil, err
	}
	if s.Frames() < 2 {
		return nil, fmt.Errorf("%w: correlation needs at least 2 frames, got %d", ErrInvalidInput, s.Frames())
	}

	rows, cols, n := s.Rows(), s.Cols(), s.Frames()

	// Pixel-major copy so every trace is contiguous
	traces := make([]float64, rows*cols*n)
	for f := 0; f < n; f++ {
		for p, v := range s.Frame(f) {
			traces[p*n+f] = v
		}
	}
	trace := func(p int) []float64 { return traces[p*n : (p+1)*n] }

	constant := make([]bool, rows*cols)
	for p := range constant {
		t := trace(p)
		constant[p] = floats.Max(t) == floats.Min(t)
	}

	out := models.NewProjection(rows, cols, models.Float64, string(CorrelationProjection))
	counts := make([]int, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p := r*cols + c
			for _, off := range neighbourOffsets {
				nr, nc := r+off[0], c+off[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				q := nr*cols + nc

				var corr float64
				if !constant[p] && !constant[q] {
					corr = stat.Correlation(trace(p), trace(q), nil)
				}
				out.Data[p] += corr
				out.Data[q] += corr
				counts[p]++
				counts[q]++
			}
		}
	}

	for p, k := range counts {
		if k > 0 {
			out.Data[p] /= float64(k)
		}
	}
	return out, nil
}

package models

import "gonum.org/v1/gonum/mat"

// Projection is a 2D array derived from reducing an ImageStack along its
// frame axis, optionally followed by a spatial filter.
type Projection struct {
	// Data holds the samples in row-major order
	Data []float64

	Rows int
	Cols int

	// Kind is the numeric domain of the result
	Kind Kind

	// Operation is the name of the operation that produced this projection
	Operation string
}

// NewProjection allocates a zeroed projection
func NewProjection(rows, cols int, kind Kind, op string) *Projection {
	return &Projection{
		Data:      make([]float64, rows*cols),
		Rows:      rows,
		Cols:      cols,
		Kind:      kind,
		Operation: op,
	}
}

// At returns the sample at (row, col)
func (p *Projection) At(row, col int) float64 {
	return p.Data[row*p.Cols+col]
}

// Range returns the minimum and maximum sample values
func (p *Projection) Range() (lo, hi float64) {
	if len(p.Data) == 0 {
		return 0, 0
	}
	lo, hi = p.Data[0], p.Data[0]
	for _, v := range p.Data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Dense returns a gonum matrix view sharing the projection's storage.
// The view must be treated as read-only.
func (p *Projection) Dense() *mat.Dense {
	return mat.NewDense(p.Rows, p.Cols, p.Data)
}

// SameShape reports whether p has the spatial extent of s
func (p *Projection) SameShape(s *ImageStack) bool {
	return p.Rows == s.rows && p.Cols == s.cols
}

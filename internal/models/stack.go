package models

import (
	"errors"
	"fmt"
)

// ErrShape is returned when stack or projection dimensions are inconsistent
var ErrShape = errors.New("models: invalid shape")

// Kind identifies the numeric domain of the samples held by a stack or projection
type Kind int

const (
	Float64 Kind = iota
	Float32
	Uint8
	Uint16
	Int16
	Int32
	Int64
)

func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsInteger reports whether samples of this kind are whole numbers
func (k Kind) IsInteger() bool {
	switch k {
	case Uint8, Uint16, Int16, Int32, Int64:
		return true
	}
	return false
}

// ImageStack represents a sequence of 2D frames forming a 3D array with
// axes (frame, row, column). It is immutable once constructed.
type ImageStack struct {
	// data holds the samples as a 1D array in frame-major, row-major order
	data []float64

	frames int
	rows   int
	cols   int

	// kind is the numeric type the samples were decoded from
	kind Kind
}

// NewImageStack wraps flat sample data into a stack. The slice is copied.
func NewImageStack(data []float64, frames, rows, cols int, kind Kind) (*ImageStack, error) {
	if frames <= 0 || rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d must be positive", ErrShape, frames, rows, cols)
	}
	if len(data) != frames*rows*cols {
		return nil, fmt.Errorf("%w: %d samples do not fill %dx%dx%d", ErrShape, len(data), frames, rows, cols)
	}

	owned := make([]float64, len(data))
	copy(owned, data)

	return &ImageStack{
		data:   owned,
		frames: frames,
		rows:   rows,
		cols:   cols,
		kind:   kind,
	}, nil
}

// StackFromFrames builds a stack from nested [frame][row][col] slices.
// Ragged input is rejected.
func StackFromFrames(frames [][][]float64, kind Kind) (*ImageStack, error) {
	if len(frames) == 0 || len(frames[0]) == 0 || len(frames[0][0]) == 0 {
		return nil, fmt.Errorf("%w: empty stack", ErrShape)
	}

	rows, cols := len(frames[0]), len(frames[0][0])
	data := make([]float64, 0, len(frames)*rows*cols)
	for f, frame := range frames {
		if len(frame) != rows {
			return nil, fmt.Errorf("%w: frame %d has %d rows, want %d", ErrShape, f, len(frame), rows)
		}
		for r, row := range frame {
			if len(row) != cols {
				return nil, fmt.Errorf("%w: frame %d row %d has %d columns, want %d", ErrShape, f, r, len(row), cols)
			}
			data = append(data, row...)
		}
	}

	return &ImageStack{
		data:   data,
		frames: len(frames),
		rows:   rows,
		cols:   cols,
		kind:   kind,
	}, nil
}

// Frames returns the extent of the frame axis
func (s *ImageStack) Frames() int { return s.frames }

// Rows returns the number of rows of every frame
func (s *ImageStack) Rows() int { return s.rows }

// Cols returns the number of columns of every frame
func (s *ImageStack) Cols() int { return s.cols }

// Kind returns the numeric type of the samples
func (s *ImageStack) Kind() Kind { return s.kind }

// FrameSize is rows*cols
func (s *ImageStack) FrameSize() int { return s.rows * s.cols }

// Frame returns a read-only view of frame i. Callers must not modify it.
func (s *ImageStack) Frame(i int) []float64 {
	size := s.FrameSize()
	return s.data[i*size : (i+1)*size : (i+1)*size]
}

// At returns the sample at (frame, row, col)
func (s *ImageStack) At(frame, row, col int) float64 {
	return s.data[frame*s.FrameSize()+row*s.cols+col]
}

package projection

import (
	"fmt"
	"math"

	"stackview/internal/models"
	"stackview/pkg/filter"
)

// Options holds the parameters of the spatial filter operations
type Options struct {
	// Sigma is the standard deviation, in pixels, of the Gaussian Filter
	Sigma float64

	// KernelSize is the box width used by the High and Low Pass Filters
	KernelSize int

	// FilterBase is the reduction the filters are applied to
	FilterBase Operation
}

// DefaultOptions returns the filter parameters used when none are configured
func DefaultOptions() Options {
	return Options{
		Sigma:      2.0,
		KernelSize: 5,
		FilterBase: MeanProjection,
	}
}

type reducer func(*models.ImageStack) (*models.Projection, error)

// reducers maps every non-filter operation to its implementation
var reducers = map[Operation]reducer{
	MaxProjection:         Max,
	MeanProjection:        Mean,
	CorrelationProjection: Correlation,
	StdDevProjection:      StdDev,
	SumProjection:         Sum,
}

// Engine evaluates operations against image stacks. It holds no state
// beyond its options and is safe to share.
type Engine struct {
	opts Options
}

// NewEngine validates opts and returns an engine using them
func NewEngine(opts Options) (*Engine, error) {
	if opts.Sigma < 0 || math.IsNaN(opts.Sigma) || math.IsInf(opts.Sigma, 0) {
		return nil, fmt.Errorf("%w: sigma must be finite and non-negative, got %v", ErrInvalidInput, opts.Sigma)
	}
	if opts.KernelSize < 1 {
		return nil, fmt.Errorf("%w: kernel size must be at least 1, got %d", ErrInvalidInput, opts.KernelSize)
	}
	if _, ok := reducers[opts.FilterBase]; !ok {
		return nil, fmt.Errorf("%w: filter base %q is not a reduction", ErrInvalidInput, opts.FilterBase)
	}
	return &Engine{opts: opts}, nil
}

// Options returns the engine's filter parameters
func (e *Engine) Options() Options { return e.opts }

// Project applies op to s and returns a newly allocated projection with
// the stack's spatial extent.
func (e *Engine) Project(s *models.ImageStack, op Operation) (*models.Projection, error) {
	var (
		out *models.Projection
		err error
	)

	if reduce, ok := reducers[op]; ok {
		out, err = reduce(s)
	} else if op.IsFilter() {
		out, err = e.applyFilter(s, op)
	} else {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, op)
	}
	if err != nil {
		return nil, err
	}

	if !out.SameShape(s) {
		return nil, fmt.Errorf("projection: %s produced %dx%d for a %dx%d stack",
			op, out.Rows, out.Cols, s.Rows(), s.Cols())
	}
	out.Operation = string(op)
	return out, nil
}

// ProjectName parses a menu label and applies it to s
func (e *Engine) ProjectName(s *models.ImageStack, name string) (*models.Projection, error) {
	op, err := ParseOperation(name)
	if err != nil {
		return nil, err
	}
	return e.Project(s, op)
}

func (e *Engine) applyFilter(s *models.ImageStack, op Operation) (*models.Projection, error) {
	reduce, ok := reducers[e.opts.FilterBase]
	if !ok {
		return nil, fmt.Errorf("%w: filter base %q is not a reduction", ErrInvalidInput, e.opts.FilterBase)
	}
	base, err := reduce(s)
	if err != nil {
		return nil, err
	}

	var out *models.Projection
	switch op {
	case GaussianFilter:
		out, err = filter.Gaussian(base, e.opts.Sigma)
	case HighPassFilter:
		out, err = filter.HighPass(base, e.opts.KernelSize)
	case LowPassFilter:
		out, err = filter.Uniform(base, e.opts.KernelSize)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return out, nil
}

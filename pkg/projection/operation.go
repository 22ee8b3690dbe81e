package projection

import "fmt"

// Operation names a reduction or spatial filter offered in the selection menu
type Operation string

const (
	MaxProjection         Operation = "Max Projection"
	MeanProjection        Operation = "Mean Projection"
	CorrelationProjection Operation = "Correlation Projection"
	StdDevProjection      Operation = "Standard Deviation Projection"
	SumProjection         Operation = "Sum Projection"
	GaussianFilter        Operation = "Gaussian Filter"
	HighPassFilter        Operation = "High Pass Filter"
	LowPassFilter         Operation = "Low Pass Filter"
)

// menu is the order operations are presented in
var menu = []Operation{
	MaxProjection,
	MeanProjection,
	CorrelationProjection,
	StdDevProjection,
	SumProjection,
	GaussianFilter,
	HighPassFilter,
	LowPassFilter,
}

// Operations returns every supported operation in menu order
func Operations() []Operation {
	out := make([]Operation, len(menu))
	copy(out, menu)
	return out
}

// ParseOperation maps a menu label to its Operation
func ParseOperation(name string) (Operation, error) {
	for _, op := range menu {
		if string(op) == name {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOperation, name)
}

// IsFilter reports whether op smooths or sharpens a base projection
// instead of reducing the stack directly.
func (op Operation) IsFilter() bool {
	switch op {
	case GaussianFilter, HighPassFilter, LowPassFilter:
		return true
	}
	return false
}

func (op Operation) String() string { return string(op) }

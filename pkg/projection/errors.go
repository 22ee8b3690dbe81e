package projection

import "errors"

var (
	// ErrInvalidInput indicates a malformed or insufficient stack, or an
	// invalid engine parameter.
	ErrInvalidInput = errors.New("projection: invalid input")
	// ErrUnsupportedOperation indicates an operation name outside the menu.
	ErrUnsupportedOperation = errors.New("projection: unsupported operation")
)

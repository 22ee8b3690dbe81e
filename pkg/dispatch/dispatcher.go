// Package dispatch connects a display's operation selector to the
// projection engine.
package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"stackview/internal/models"
	"stackview/pkg/projection"
)

var (
	// ErrUnsupportedOperation is returned when a selection names no known operation
	ErrUnsupportedOperation = projection.ErrUnsupportedOperation
	// ErrInvalidInput is returned when the stack cannot be projected
	ErrInvalidInput = projection.ErrInvalidInput
	// ErrNoDisplay is returned when New is given a nil display
	ErrNoDisplay = errors.New("dispatch: display is required")
)

// Listener receives selection changes from a display
type Listener interface {
	SelectionChanged(name string) error
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(name string) error

// SelectionChanged calls f(name)
func (f ListenerFunc) SelectionChanged(name string) error { return f(name) }

// Display is the sink a projection is rendered to. Implementations must
// invoke the registered listener at most once at a time.
type Display interface {
	// SetImage replaces the data buffer with p
	SetImage(p *models.Projection)

	// Refresh renders the current data buffer
	Refresh() error

	// OnSelectionChange registers the single listener notified with the
	// name of each newly selected operation.
	OnSelectionChange(l Listener)
}

// Workspace is the state shared by every dispatch: the loaded stack and
// the engine that projects it. The stack is never modified.
type Workspace struct {
	Stack  *models.ImageStack
	Engine *projection.Engine
}

// NewWorkspace pairs a stack with an engine using opts
func NewWorkspace(stack *models.ImageStack, opts projection.Options) (*Workspace, error) {
	if stack == nil {
		return nil, fmt.Errorf("%w: nil stack", ErrInvalidInput)
	}
	engine, err := projection.NewEngine(opts)
	if err != nil {
		return nil, err
	}
	return &Workspace{Stack: stack, Engine: engine}, nil
}

// Dispatcher recomputes the projection whenever the display's selection
// changes and forwards it to the display.
type Dispatcher struct {
	ws      *Workspace
	display Display

	mu sync.RWMutex

	// current is the operation of the last projection forwarded
	current projection.Operation
}

// New renders the projection for defaultOp on display and subscribes to
// its selection changes.
func New(ws *Workspace, display Display, defaultOp projection.Operation) (*Dispatcher, error) {
	if display == nil {
		return nil, ErrNoDisplay
	}
	if ws == nil || ws.Engine == nil {
		return nil, fmt.Errorf("%w: workspace is not initialized", ErrInvalidInput)
	}

	d := &Dispatcher{ws: ws, display: display}
	if err := d.SelectionChanged(string(defaultOp)); err != nil {
		return nil, fmt.Errorf("initial projection: %w", err)
	}
	display.OnSelectionChange(d)
	return d, nil
}

// Dispatch computes the projection named by name without touching the display
func (d *Dispatcher) Dispatch(name string) (*models.Projection, error) {
	return d.ws.Engine.ProjectName(d.ws.Stack, name)
}

// SelectionChanged implements Listener. On failure the display keeps its
// previous image and the error is returned.
func (d *Dispatcher) SelectionChanged(name string) error {
	p, err := d.Dispatch(name)
	if err != nil {
		return err
	}

	d.display.SetImage(p)
	if err := d.display.Refresh(); err != nil {
		return fmt.Errorf("refresh display: %w", err)
	}
	d.mu.Lock()
	d.current = projection.Operation(p.Operation)
	d.mu.Unlock()
	return nil
}

// Current returns the operation of the last projection forwarded to the display
func (d *Dispatcher) Current() projection.Operation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Operations lists the selectable operations in menu order
func (d *Dispatcher) Operations() []projection.Operation { return projection.Operations() }

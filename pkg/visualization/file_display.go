package visualization

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stackview/internal/models"
	"stackview/pkg/dispatch"
)

// ErrNoImage is returned when a display is refreshed before any image was set
var ErrNoImage = errors.New("visualization: no image to render")

// FileDisplay renders every refresh to a single file, overwriting it.
// Selections are made programmatically through Select.
type FileDisplay struct {
	path   string
	format Format

	current  *models.Projection
	listener dispatch.Listener

	// Writes counts successful refreshes
	Writes int
}

// NewFileDisplay creates a display writing to path; the extension selects
// PNG, JPEG or FITS output.
func NewFileDisplay(path string) (*FileDisplay, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &FileDisplay{path: path, format: format}, nil
}

// SetImage implements dispatch.Display
func (d *FileDisplay) SetImage(p *models.Projection) { d.current = p }

// Image returns the projection currently held in the data buffer
func (d *FileDisplay) Image() *models.Projection { return d.current }

// Refresh implements dispatch.Display by writing the current image
func (d *FileDisplay) Refresh() error {
	if d.current == nil {
		return ErrNoImage
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return err
	}

	file, err := os.Create(d.path)
	if err != nil {
		return err
	}
	if err := Encode(file, d.current, d.format); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", d.path, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	d.Writes++
	return nil
}

// OnSelectionChange implements dispatch.Display
func (d *FileDisplay) OnSelectionChange(l dispatch.Listener) { d.listener = l }

// Select emits a selection change for name, as a menu would
func (d *FileDisplay) Select(name string) error {
	if d.listener == nil {
		return fmt.Errorf("no listener registered for selection %q", name)
	}
	return d.listener.SelectionChanged(name)
}

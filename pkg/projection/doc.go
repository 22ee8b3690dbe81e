// Package projection reduces an image stack to a single 2D projection.
//
// Reductions (max, mean, sum, standard deviation and local correlation)
// collapse the frame axis. Filter operations first reduce the stack with a
// configurable base reduction and then smooth or sharpen the result
// spatially; see package filter. Every operation is pure and returns a new
// projection whose rows and columns match the stack's frames.
package projection

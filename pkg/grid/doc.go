// Package grid partitions a page into a uniform grid of card rectangles.
//
// # Coordinates
//
// All values are in document units (PDF points for the pdfcpu engine) in the
// page's own coordinate space: origin at the bottom-left corner, y growing
// upward. Display pixels never appear here; see package preview for the
// conversion at the drawing boundary.
//
// # Layout
//
// A [Config] describes the grid: row and column counts, four outer margins and
// the gutters between adjacent rows and columns. [Compute] divides the usable
// area (page minus margins minus gutters) into Rows×Columns equal cells:
//
//	cardWidth  = (W − Left − Right − (Columns−1)·ColumnGap) / Columns
//	cardHeight = (H − Top − Bottom − (Rows−1)·RowGap) / Rows
//
// Cells are returned row-major: row 0 is the top row, column 0 the left
// column. The order is part of the contract; package assign relies on it.
//
// Together the cells, margins and gutters tile the page exactly.
//
// # Errors
//
// Invalid input is never clamped. [Compute] and [Config.Validate] return a
// CONFIG_ERROR from package errors when rows or columns are below one, a margin
// is negative or not finite, or the margins and gutters leave no usable width
// or height.
package grid

// Package preview draws the grid of a page for interactive tuning.
//
// Document geometry stays in package grid (points, origin bottom-left).
// This package owns the only conversion to display pixels (origin top-left,
// y down) through [ToDisplay] and [ToDocument].
//
// A [Session] replaces the mutable globals of a browser preview: it holds the
// page size, the fitted canvas, the display scale, the zoom-lens position and
// the optional background raster. Sessions are values; [Session.Pan] and
// [Session.WithBackground] return updated copies.
package preview

import (
	"image"
	"math"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
)

const (
	// ZoomFactor is the magnification of the zoom view.
	ZoomFactor = 4
	// ZoomDivisor relates the zoom view to the canvas: the zoom view is one
	// ZoomDivisor-th of the canvas on each side.
	ZoomDivisor = 5

	DefaultCanvasWidth  = 600
	DefaultCanvasHeight = 800
)

// DisplayRect is a rectangle in display pixels, origin top-left.
type DisplayRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// FitScale returns the largest scale at which the page fits the canvas.
func FitScale(canvasW, canvasH float64, page grid.PageSize) float64 {
	return math.Min(canvasW/page.Width, canvasH/page.Height)
}

// ToDisplay converts a cell to display pixels.
func ToDisplay(c grid.Cell, page grid.PageSize, scale float64) DisplayRect {
	return DisplayRect{
		X: c.X0 * scale,
		Y: (page.Height - c.Y1()) * scale,
		W: c.Width * scale,
		H: c.Height * scale,
	}
}

// ToDocument converts a display rectangle back to page space. Row and Col of
// the result are zero.
func ToDocument(r DisplayRect, page grid.PageSize, scale float64) grid.Cell {
	w := r.W / scale
	h := r.H / scale
	return grid.Cell{
		X0:     r.X / scale,
		Y0:     page.Height - r.Y/scale - h,
		Width:  w,
		Height: h,
	}
}

// Session is the state of one page preview.
type Session struct {
	Page   grid.PageSize
	Width  int // canvas width in pixels
	Height int // canvas height in pixels
	Scale  float64

	// LensX and LensY are the top-left corner of the zoom lens in pixels.
	LensX float64
	LensY float64

	// Rendered reports whether Background holds a raster of the page.
	Rendered   bool
	Background image.Image
}

// NewSession fits page into a canvas of at most maxW×maxH pixels. The canvas
// takes the page's aspect ratio.
func NewSession(page grid.PageSize, maxW, maxH int) (Session, error) {
	if !(page.Width > 0) || !(page.Height > 0) {
		return Session{}, cerrors.New(cerrors.ErrCodeConfig, "page size %gx%g is not positive", page.Width, page.Height)
	}
	if maxW <= 0 || maxH <= 0 {
		return Session{}, cerrors.New(cerrors.ErrCodeInvalidInput, "canvas size %dx%d is not positive", maxW, maxH)
	}
	scale := FitScale(float64(maxW), float64(maxH), page)
	return Session{
		Page:   page,
		Width:  max(1, int(math.Round(page.Width*scale))),
		Height: max(1, int(math.Round(page.Height*scale))),
		Scale:  scale,
	}, nil
}

// Lens returns the zoom lens rectangle.
func (s Session) Lens() DisplayRect {
	return DisplayRect{X: s.LensX, Y: s.LensY, W: s.lensW(), H: s.lensH()}
}

func (s Session) lensW() float64 { return float64(s.Width) / ZoomDivisor / ZoomFactor }
func (s Session) lensH() float64 { return float64(s.Height) / ZoomDivisor / ZoomFactor }

// ZoomSize returns the pixel size of the zoom view.
func (s Session) ZoomSize() (int, int) {
	return max(1, s.Width/ZoomDivisor), max(1, s.Height/ZoomDivisor)
}

// Pan moves the lens by a drag delta and keeps it on the canvas.
func (s Session) Pan(dx, dy float64) Session {
	s.LensX = clamp(s.LensX+dx, 0, float64(s.Width)-s.lensW())
	s.LensY = clamp(s.LensY+dy, 0, float64(s.Height)-s.lensH())
	return s
}

// MoveLens places the lens at an absolute position, clamped to the canvas.
func (s Session) MoveLens(x, y float64) Session {
	return s.Pan(x-s.LensX, y-s.LensY)
}

// WithBackground attaches a page raster. A nil image clears it.
func (s Session) WithBackground(img image.Image) Session {
	s.Background = img
	s.Rendered = img != nil
	return s
}

// Cells computes the grid of the session's page in display pixels.
func (s Session) Cells(cfg grid.Config) ([]DisplayRect, error) {
	cells, err := grid.Compute(s.Page, cfg)
	if err != nil {
		return nil, err
	}
	rects := make([]DisplayRect, len(cells))
	for i, c := range cells {
		rects[i] = ToDisplay(c, s.Page, s.Scale)
	}
	return rects, nil
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}

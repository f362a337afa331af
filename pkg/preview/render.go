package preview

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/matzehuels/cardcrop/pkg/grid"
)

var (
	CellColor = color.RGBA{R: 0xff, A: 0xff}
	LensColor = color.RGBA{B: 0xff, A: 0xff}
)

// Render draws the page background (or white), the cell outlines in
// CellColor and the lens outline in LensColor.
func Render(s Session, cfg grid.Config) (*image.RGBA, error) {
	rects, err := s.Cells(cfg)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	if s.Background != nil {
		xdraw.BiLinear.Scale(img, img.Bounds(), s.Background, s.Background.Bounds(), draw.Over, nil)
	}

	raster := vector.NewRasterizer(s.Width, s.Height)
	for _, r := range rects {
		strokeRect(raster, img, r, CellColor)
	}
	strokeRect(raster, img, s.Lens(), LensColor)
	return img, nil
}

// RenderZoom returns the lens area of the rendered preview magnified
// ZoomFactor times.
func RenderZoom(s Session, cfg grid.Config) (*image.RGBA, error) {
	full, err := Render(s, cfg)
	if err != nil {
		return nil, err
	}
	w, h := s.ZoomSize()
	zoom := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(zoom, zoom.Bounds(), image.White, image.Point{}, draw.Src)

	lens := s.Lens()
	src := image.Rect(
		int(lens.X), int(lens.Y),
		int(lens.X+lens.W+0.5), int(lens.Y+lens.H+0.5),
	).Intersect(full.Bounds())
	if src.Empty() {
		return zoom, nil
	}
	dst := image.Rect(0, 0, src.Dx()*ZoomFactor, src.Dy()*ZoomFactor).Intersect(zoom.Bounds())
	xdraw.NearestNeighbor.Scale(zoom, dst, full, src, draw.Src, nil)
	return zoom, nil
}

// RenderPNG encodes Render's result as PNG.
func RenderPNG(w io.Writer, s Session, cfg grid.Config) error {
	img, err := Render(s, cfg)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// RenderZoomPNG encodes RenderZoom's result as PNG.
func RenderZoomPNG(w io.Writer, s Session, cfg grid.Config) error {
	img, err := RenderZoom(s, cfg)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// strokeRect fills a one pixel band along the inside of r.
func strokeRect(raster *vector.Rasterizer, dst draw.Image, r DisplayRect, c color.Color) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	b := dst.Bounds()
	raster.Reset(b.Dx(), b.Dy())

	x0, y0 := float32(r.X), float32(r.Y)
	x1, y1 := float32(r.X+r.W), float32(r.Y+r.H)
	raster.MoveTo(x0, y0)
	raster.LineTo(x1, y0)
	raster.LineTo(x1, y1)
	raster.LineTo(x0, y1)
	raster.ClosePath()

	if r.W > 2 && r.H > 2 {
		// Opposite winding cuts the interior out.
		raster.MoveTo(x0+1, y0+1)
		raster.LineTo(x0+1, y1-1)
		raster.LineTo(x1-1, y1-1)
		raster.LineTo(x1-1, y0+1)
		raster.ClosePath()
	}
	raster.Draw(dst, b, image.NewUniform(c), image.Point{})
}

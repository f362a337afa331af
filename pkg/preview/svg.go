package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/matzehuels/cardcrop/pkg/grid"
)

type SVGOption func(*svgRenderer)

type svgRenderer struct {
	lens   bool
	labels bool
}

// WithoutLens omits the zoom lens outline.
func WithoutLens() SVGOption { return func(r *svgRenderer) { r.lens = false } }

// WithLabels writes "row,col" into each cell.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.labels = true } }

// RenderSVG draws the same overlay as Render as an SVG document. A page
// raster, if present, is embedded as a PNG data URI.
func RenderSVG(s Session, cfg grid.Config, opts ...SVGOption) ([]byte, error) {
	r := &svgRenderer{lens: true}
	for _, opt := range opts {
		opt(r)
	}

	cells, err := grid.Compute(s.Page, cfg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		s.Width, s.Height, s.Width, s.Height)
	fmt.Fprintf(&buf, `  <rect x="0" y="0" width="%d" height="%d" fill="white"/>`+"\n", s.Width, s.Height)

	if s.Background != nil {
		var img bytes.Buffer
		if err := png.Encode(&img, s.Background); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, `  <image x="0" y="0" width="%d" height="%d" preserveAspectRatio="none" href="data:image/png;base64,%s"/>`+"\n",
			s.Width, s.Height, base64.StdEncoding.EncodeToString(img.Bytes()))
	}

	buf.WriteString(`  <g id="cells" fill="none" stroke="red" stroke-width="1">` + "\n")
	for _, c := range cells {
		d := ToDisplay(c, s.Page, s.Scale)
		fmt.Fprintf(&buf, `    <rect id="cell-%d-%d" x="%.2f" y="%.2f" width="%.2f" height="%.2f"/>`+"\n",
			c.Row, c.Col, d.X, d.Y, d.W, d.H)
	}
	buf.WriteString("  </g>\n")

	if r.labels {
		buf.WriteString(`  <g id="labels" fill="red" font-family="monospace" font-size="10" text-anchor="middle">` + "\n")
		for _, c := range cells {
			d := ToDisplay(c, s.Page, s.Scale)
			fmt.Fprintf(&buf, `    <text x="%.2f" y="%.2f">%d,%d</text>`+"\n", d.X+d.W/2, d.Y+d.H/2, c.Row, c.Col)
		}
		buf.WriteString("  </g>\n")
	}

	if r.lens {
		l := s.Lens()
		fmt.Fprintf(&buf, `  <rect id="lens" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="blue" stroke-width="1"/>`+"\n",
			l.X, l.Y, l.W, l.H)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/cardcrop/pkg/grid"
)

// Page describes one test page. X and Y are the lower-left corner of its
// media box.
type Page struct {
	X, Y float64
	Size grid.PageSize
}

// Build returns an uncompressed PDF with one page per size, each with its
// media box at the origin.
func Build(sizes ...grid.PageSize) []byte {
	pages := make([]Page, len(sizes))
	for i, size := range sizes {
		pages[i] = Page{Size: size}
	}
	return BuildPages(pages...)
}

// BuildPages returns an uncompressed PDF with the given pages. Every page
// carries a stroked rectangle along its border so content survives cropping.
func BuildPages(pages ...Page) []byte {
	var buf bytes.Buffer
	offsets := []int{0}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))

	for i, p := range pages {
		content := fmt.Sprintf("0 0 1 RG 1 w %.2f %.2f %.2f %.2f re S", p.X+1, p.Y+1, p.Size.Width-2, p.Size.Height-2)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [%.2f %.2f %.2f %.2f] /Resources << >> /Contents %d 0 R >>",
			p.X, p.Y, p.X+p.Size.Width, p.Y+p.Size.Height, 4+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)
	return buf.Bytes()
}

// Letter is a US letter page.
var Letter = grid.PageSize{Width: 612, Height: 792}

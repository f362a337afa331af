package document

import (
	"bytes"
	"errors"
	"io"
	"os"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/matzehuels/cardcrop/pkg/assign"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
)

// PDF is a validated PDF document held in memory.
type PDF struct {
	ctx *model.Context
}

// Open reads and validates a PDF. The reader is consumed entirely.
func Open(r io.ReadSeeker) (*PDF, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := pdfapi.ReadValidateAndOptimize(r, conf)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "read pdf")
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "count pages")
	}
	return &PDF{ctx: ctx}, nil
}

// OpenBytes reads a PDF from memory.
func OpenBytes(data []byte) (*PDF, error) {
	return Open(bytes.NewReader(data))
}

// OpenFile reads a PDF from disk.
func OpenFile(path string) (*PDF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cerrors.Wrap(cerrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "open %s", path)
	}
	return OpenBytes(data)
}

// PageCount returns the number of pages.
func (d *PDF) PageCount() int { return d.ctx.PageCount }

// PageSize returns the size of the page's media box. index is 0-based.
func (d *PDF) PageSize(index int) (grid.PageSize, error) {
	box, err := d.mediaBox(index)
	if err != nil {
		return grid.PageSize{}, err
	}
	return grid.PageSize{Width: box.Width(), Height: box.Height()}, nil
}

// mediaBox returns the effective media box of a page, falling back to the
// crop box when a page carries none.
func (d *PDF) mediaBox(index int) (*types.Rectangle, error) {
	if index < 0 || index >= d.ctx.PageCount {
		return nil, cerrors.New(cerrors.ErrCodeSource, "page %d out of range (document has %d pages)", index+1, d.ctx.PageCount)
	}
	_, _, inh, err := d.ctx.PageDict(index+1, false)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "read page %d", index+1)
	}
	if inh == nil {
		return nil, cerrors.New(cerrors.ErrCodeSource, "page %d has no attributes", index+1)
	}
	box := inh.MediaBox
	if box == nil {
		box = inh.CropBox
	}
	if box == nil {
		return nil, cerrors.New(cerrors.ErrCodeSource, "page %d has no media box", index+1)
	}
	return box, nil
}

// pageContent returns the decoded content stream of a page. index is 0-based.
func (d *PDF) pageContent(index int) ([]byte, error) {
	pageDict, _, _, err := d.ctx.PageDict(index+1, false)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "read page %d", index+1)
	}
	if pageDict == nil {
		return nil, cerrors.New(cerrors.ErrCodeSource, "page %d has no page dictionary", index+1)
	}
	content, err := d.ctx.PageContent(pageDict, index+1)
	if errors.Is(err, model.ErrNoContent) {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "read content of page %d", index+1)
	}
	return content, nil
}

// NewSink returns a sink that crops placements out of this document.
func (d *PDF) NewSink(mode assign.Mode) *PDFSink {
	return &PDFSink{doc: d, mode: mode}
}

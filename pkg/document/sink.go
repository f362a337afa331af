package document

import (
	"bytes"
	"context"
	"fmt"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cardcrop/pkg/assign"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
)

// PDFSink crops placements into single-page PDF segments and merges them
// per slot in Finish. It is not safe for concurrent Materialize calls.
type PDFSink struct {
	doc      *PDF
	mode     assign.Mode
	segments [2][][]byte
	done     bool
}

var _ Sink = (*PDFSink)(nil)

// Materialize crops p.Crop out of p.SourcePage into a new single-page
// segment and appends it to the segments of p.Slot.
func (s *PDFSink) Materialize(ctx context.Context, p assign.Placement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.done {
		return cerrors.New(cerrors.ErrCodeSink, "sink already finished")
	}
	segment, err := s.crop(p)
	if err != nil {
		return err
	}
	slot := s.slotFor(p.Slot)
	s.segments[slot] = append(s.segments[slot], segment)
	return nil
}

// slotFor folds every placement into the front bucket for single-sided runs.
func (s *PDFSink) slotFor(slot assign.Slot) assign.Slot {
	if !s.mode.TwoSided() {
		return assign.Front
	}
	return slot
}

func (s *PDFSink) crop(p assign.Placement) ([]byte, error) {
	box, err := s.doc.mediaBox(p.SourcePage)
	if err != nil {
		return nil, err
	}
	if p.Crop.Width <= 0 || p.Crop.Height <= 0 {
		return nil, fmt.Errorf("empty crop rectangle %gx%g", p.Crop.Width, p.Crop.Height)
	}

	// The extracted copy shares stream dicts without their raw bytes, so the
	// content is read from the source document.
	content, err := s.doc.pageContent(p.SourcePage)
	if err != nil {
		return nil, err
	}

	pageNr := p.SourcePage + 1
	ctxPage, err := pdfcpu.ExtractPages(s.doc.ctx, []int{pageNr}, false)
	if err != nil {
		return nil, fmt.Errorf("extract page: %w", err)
	}
	if err := ctxPage.EnsurePageCount(); err != nil {
		return nil, err
	}
	pageDict, _, _, err := ctxPage.PageDict(1, false)
	if err != nil {
		return nil, err
	}
	if pageDict == nil {
		return nil, fmt.Errorf("extracted page %d has no page dictionary", pageNr)
	}

	newBox := types.RectForWidthAndHeight(0, 0, p.Crop.Width, p.Crop.Height)
	pageDict["MediaBox"] = newBox.Array()
	pageDict["CropBox"] = newBox.Array()
	pageDict.Delete("Rotate")

	var buf bytes.Buffer
	buf.WriteString("q ")
	buf.WriteString(translation(box.LL.X+p.Crop.X0, box.LL.Y+p.Crop.Y0))
	buf.WriteString(" ")
	buf.Write(content)
	buf.WriteString(" Q ")

	streamDict, err := ctxPage.NewStreamDictForBuf(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if err := streamDict.Encode(); err != nil {
		return nil, err
	}
	indRef, err := ctxPage.IndRefForNewObject(*streamDict)
	if err != nil {
		return nil, err
	}
	pageDict["Contents"] = *indRef

	var out bytes.Buffer
	if err := pdfapi.WriteContext(ctxPage, &out); err != nil {
		return nil, fmt.Errorf("write segment: %w", err)
	}
	return out.Bytes(), nil
}

// translation returns the operator that moves the point (x, y) of the
// source page to the origin of the cropped page.
func translation(x, y float64) string {
	return fmt.Sprintf("1 0 0 1 %.5f %.5f cm", 0-x, 0-y)
}

// Finish merges the segments of each slot. Front and back documents are
// merged concurrently.
func (s *PDFSink) Finish(ctx context.Context) (*Output, error) {
	if s.done {
		return nil, cerrors.New(cerrors.ErrCodeSink, "sink already finished")
	}
	s.done = true

	slots := []assign.Slot{assign.Front}
	if s.mode.TwoSided() {
		slots = append(slots, assign.Back)
	}

	merged := make([][]byte, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, slot := range slots {
		segments := s.segments[slot]
		if len(segments) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := merge(segments)
			if err != nil {
				return cerrors.Wrap(cerrors.ErrCodeSink, err, "serialize %s", ArtifactName(s.mode, slot))
			}
			merged[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.segments = [2][][]byte{}
		return nil, err
	}

	out := &Output{Mode: s.mode}
	for i, slot := range slots {
		if merged[i] == nil {
			continue
		}
		out.Artifacts = append(out.Artifacts, Artifact{
			Name:  ArtifactName(s.mode, slot),
			Slot:  slot,
			Pages: len(s.segments[slot]),
			Data:  merged[i],
		})
	}
	s.segments = [2][][]byte{}
	return out, nil
}

// Abort drops all materialized segments.
func (s *PDFSink) Abort() {
	s.segments = [2][][]byte{}
	s.done = true
}

func merge(segments [][]byte) ([]byte, error) {
	if len(segments) == 1 {
		return segments[0], nil
	}
	readers := make([]io.ReadSeeker, len(segments))
	for i, data := range segments {
		readers[i] = bytes.NewReader(data)
	}
	var out bytes.Buffer
	if err := pdfapi.MergeRaw(readers, &out, false, model.NewDefaultConfiguration()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Package document defines the document engine a crop run drives and its
// pdfcpu implementation.
//
// A [Source] reports page count and per-page size. A [Sink] receives the
// placements of a run in emission order, builds a front and a back document
// from them and serializes both in [Sink.Finish]. The core packages grid and
// assign never import this package; package pipeline connects them.
//
// [Open] reads a PDF with pdfcpu and returns a [*PDF] that is both a Source and
// a factory for sinks:
//
//	doc, err := document.Open(f)
//	sink := doc.NewSink(assign.Duplex)
//	for _, p := range placements {
//	    if err := sink.Materialize(ctx, p); err != nil {
//	        sink.Abort()
//	        return err
//	    }
//	}
//	out, err := sink.Finish(ctx)
package document

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/grid"
)

// Artifact file names.
const (
	CombinedName = "cropped_cards.pdf"
	FrontName    = "front_cards.pdf"
	BackName     = "back_cards.pdf"
)

// Source is a paged input document. Indices are 0-based.
type Source interface {
	PageCount() int
	PageSize(index int) (grid.PageSize, error)
}

// Sink materializes placements into output documents.
type Sink interface {
	// Materialize appends the cropped region of one placement to the
	// document of its slot.
	Materialize(ctx context.Context, p assign.Placement) error
	// Finish serializes the output documents. Slots that received no
	// placements produce no artifact.
	Finish(ctx context.Context) (*Output, error)
	// Abort discards everything materialized so far.
	Abort()
}

// Artifact is one serialized output document.
type Artifact struct {
	Name  string      `json:"name"`
	Slot  assign.Slot `json:"slot"`
	Pages int         `json:"pages"`
	Data  []byte      `json:"-"`
}

// Output holds the artifacts of a finished crop run.
type Output struct {
	Mode      assign.Mode `json:"mode"`
	Artifacts []Artifact  `json:"artifacts"`
}

// ArtifactName returns the file name used for a slot under mode.
func ArtifactName(mode assign.Mode, slot assign.Slot) string {
	switch {
	case !mode.TwoSided():
		return CombinedName
	case slot == assign.Back:
		return BackName
	default:
		return FrontName
	}
}

// Artifact returns the artifact with the given name, if present.
func (o *Output) Artifact(name string) (Artifact, bool) {
	for _, a := range o.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Missing returns the artifact names the mode expects but the output lacks.
func (o *Output) Missing() []string {
	want := []string{CombinedName}
	if o.Mode.TwoSided() {
		want = []string{FrontName, BackName}
	}
	var missing []string
	for _, name := range want {
		if _, ok := o.Artifact(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Size returns the total byte size of all artifacts.
func (o *Output) Size() int {
	n := 0
	for _, a := range o.Artifacts {
		n += len(a.Data)
	}
	return n
}

// WriteDir writes every artifact into dir and returns the written paths.
func (o *Output) WriteDir(dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(o.Artifacts))
	for _, a := range o.Artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

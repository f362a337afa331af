package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/cardcrop/internal/pdftest"
	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/cache"
	"github.com/matzehuels/cardcrop/pkg/document"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
)

// fakeSource serves fixed page sizes; pages listed in fail return an error.
type fakeSource struct {
	sizes []grid.PageSize
	fail  map[int]error
	reads []int
}

func (s *fakeSource) PageCount() int { return len(s.sizes) }

func (s *fakeSource) PageSize(index int) (grid.PageSize, error) {
	s.reads = append(s.reads, index)
	if err := s.fail[index]; err != nil {
		return grid.PageSize{}, err
	}
	return s.sizes[index], nil
}

func pages(n int, size grid.PageSize) *fakeSource {
	s := &fakeSource{}
	for i := 0; i < n; i++ {
		s.sizes = append(s.sizes, size)
	}
	return s
}

// fakeSink records placements. failAt is the 0-based placement that fails;
// after runs once a placement has been recorded.
type fakeSink struct {
	got     []assign.Placement
	failAt  int
	after   func(n int)
	aborted bool
	mode    assign.Mode
}

func newFakeSink() *fakeSink { return &fakeSink{failAt: -1} }

func (s *fakeSink) Materialize(ctx context.Context, p assign.Placement) error {
	if len(s.got) == s.failAt {
		return errors.New("disk full")
	}
	s.got = append(s.got, p)
	if s.after != nil {
		s.after(len(s.got))
	}
	return nil
}

func (s *fakeSink) Finish(ctx context.Context) (*document.Output, error) {
	out := &document.Output{Mode: s.mode}
	front, back := assign.Split(s.got)
	if len(front) > 0 {
		out.Artifacts = append(out.Artifacts, document.Artifact{Name: document.ArtifactName(s.mode, assign.Front), Pages: len(front)})
	}
	if len(back) > 0 {
		out.Artifacts = append(out.Artifacts, document.Artifact{Name: document.ArtifactName(s.mode, assign.Back), Slot: assign.Back, Pages: len(back)})
	}
	return out, nil
}

func (s *fakeSink) Abort() { s.aborted = true }

func testRunner() *Runner {
	return NewRunner(nil, nil, log.New(io.Discard))
}

func TestPlanSingleSidedExample(t *testing.T) {
	r := testRunner()
	src := pages(1, grid.PageSize{Width: 200, Height: 300})

	plan, err := r.Plan(context.Background(), src, Options{Rows: 2, Columns: 2, NoBack: true})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []assign.Placement{
		{SourcePage: 0, Row: 0, Col: 0, Crop: grid.Cell{Row: 0, Col: 0, X0: 0, Y0: 150, Width: 100, Height: 150}, Slot: assign.Front},
		{SourcePage: 0, Row: 0, Col: 1, Crop: grid.Cell{Row: 0, Col: 1, X0: 100, Y0: 150, Width: 100, Height: 150}, Slot: assign.Front},
		{SourcePage: 0, Row: 1, Col: 0, Crop: grid.Cell{Row: 1, Col: 0, X0: 0, Y0: 0, Width: 100, Height: 150}, Slot: assign.Front},
		{SourcePage: 0, Row: 1, Col: 1, Crop: grid.Cell{Row: 1, Col: 1, X0: 100, Y0: 0, Width: 100, Height: 150}, Slot: assign.Front},
	}
	if diff := cmp.Diff(want, plan.Placements); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanDuplexAcrossPages(t *testing.T) {
	r := testRunner()
	src := pages(3, grid.PageSize{Width: 200, Height: 100})

	plan, err := r.Plan(context.Background(), src, Options{Rows: 1, Columns: 2, Duplex: true})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	type visit struct {
		page, col, cropCol int
		slot               assign.Slot
	}
	var got []visit
	for _, p := range plan.Placements {
		got = append(got, visit{p.SourcePage, p.Col, p.Crop.Col, p.Slot})
	}
	want := []visit{
		{0, 0, 0, assign.Front}, {0, 1, 1, assign.Front},
		{1, 0, 1, assign.Back}, {1, 1, 0, assign.Back},
		{2, 0, 0, assign.Front}, {2, 1, 1, assign.Front},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(visit{})); diff != "" {
		t.Errorf("visits mismatch (-want +got):\n%s", diff)
	}

	front, back := plan.Split()
	if len(front) != 4 || len(back) != 2 {
		t.Errorf("split = %d front, %d back, want 4 and 2", len(front), len(back))
	}
}

func TestPlanConfigErrorProducesNothing(t *testing.T) {
	r := testRunner()
	src := pages(2, pdftest.Letter)

	plan, err := r.Plan(context.Background(), src, Options{Rows: 2, Columns: 2, LeftMargin: 400, RightMargin: 300, NoBack: true})
	if !cerrors.Is(err, cerrors.ErrCodeConfig) {
		t.Fatalf("err = %v, want CONFIG_ERROR", err)
	}
	if plan != nil {
		t.Errorf("plan = %+v, want nil", plan)
	}
}

func TestPlanMissingModeReadsNoPages(t *testing.T) {
	r := testRunner()
	src := pages(2, pdftest.Letter)

	_, err := r.Plan(context.Background(), src, Options{Rows: 2, Columns: 2})
	if !cerrors.Is(err, cerrors.ErrCodeConfig) {
		t.Fatalf("err = %v, want CONFIG_ERROR", err)
	}
	if len(src.reads) != 0 {
		t.Errorf("source read pages %v before the mode was checked", src.reads)
	}
}

func TestPlanBadLaterPageAbortsRun(t *testing.T) {
	r := testRunner()
	src := pages(3, pdftest.Letter)
	src.fail = map[int]error{2: errors.New("broken xref")}

	plan, err := r.Plan(context.Background(), src, Options{Rows: 2, Columns: 2, NoBack: true})
	if !cerrors.Is(err, cerrors.ErrCodeSource) {
		t.Fatalf("err = %v, want SOURCE_ERROR", err)
	}
	if !strings.Contains(err.Error(), "page 3") {
		t.Errorf("error %q should name page 3", err)
	}
	if plan != nil {
		t.Error("a failed plan must not return placements")
	}
}

func TestPlanZeroPages(t *testing.T) {
	r := testRunner()
	_, err := r.Plan(context.Background(), &fakeSource{}, Options{Rows: 2, Columns: 2, NoBack: true})
	if !cerrors.Is(err, cerrors.ErrCodeSource) {
		t.Errorf("err = %v, want SOURCE_ERROR", err)
	}
}

func TestPlanStartingPage(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		wantFirst int
		wantPages int
	}{
		{"default", 0, 0, 4},
		{"second", 2, 1, 3},
		{"last", 4, 3, 1},
		{"clamped", 10, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRunner()
			plan, err := r.Plan(context.Background(), pages(4, pdftest.Letter),
				Options{Rows: 1, Columns: 1, Duplex: true, StartingPage: tt.start})
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if plan.FirstPage != tt.wantFirst || len(plan.Pages) != tt.wantPages {
				t.Fatalf("first = %d pages = %d, want %d and %d", plan.FirstPage, len(plan.Pages), tt.wantFirst, tt.wantPages)
			}
			// Parity restarts at the first planned page.
			first := plan.Placements[0]
			if first.SourcePage != tt.wantFirst || first.Slot != assign.Front {
				t.Errorf("first placement = %+v, want page %d on the front", first, tt.wantFirst)
			}
		})
	}
}

func TestPlanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testRunner().Plan(ctx, pages(2, pdftest.Letter), Options{Rows: 2, Columns: 2, NoBack: true})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMaterializeEmitsInOrder(t *testing.T) {
	r := testRunner()
	plan, err := r.Plan(context.Background(), pages(2, pdftest.Letter), Options{Rows: 2, Columns: 2, FoldVertical: true})
	if err != nil {
		t.Fatal(err)
	}

	sink := newFakeSink()
	sink.mode = plan.Mode
	out, err := r.Materialize(context.Background(), plan, sink)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if diff := cmp.Diff(plan.Placements, sink.got); diff != "" {
		t.Errorf("sink order mismatch (-plan +sink):\n%s", diff)
	}
	if sink.aborted {
		t.Error("successful run must not abort")
	}
	if len(out.Artifacts) != 2 {
		t.Errorf("got %d artifacts, want 2", len(out.Artifacts))
	}
}

func TestMaterializeSinkErrorNamesCard(t *testing.T) {
	r := testRunner()
	plan, err := r.Plan(context.Background(), pages(2, pdftest.Letter), Options{Rows: 2, Columns: 2, Duplex: true})
	if err != nil {
		t.Fatal(err)
	}

	sink := newFakeSink()
	sink.failAt = 5 // second page, row 0, visiting col 1
	_, err = r.Materialize(context.Background(), plan, sink)
	if !cerrors.Is(err, cerrors.ErrCodeSink) {
		t.Fatalf("err = %v, want SINK_ERROR", err)
	}
	if !strings.Contains(err.Error(), "page 2 row 0 col 1 (back)") {
		t.Errorf("error %q should name page 2 row 0 col 1 (back)", err)
	}
	if !sink.aborted {
		t.Error("sink should be aborted")
	}
	if len(sink.got) != 5 {
		t.Errorf("sink received %d placements, want 5", len(sink.got))
	}
}

func TestMaterializeCancelBetweenPages(t *testing.T) {
	r := testRunner()
	plan, err := r.Plan(context.Background(), pages(3, pdftest.Letter), Options{Rows: 1, Columns: 2, NoBack: true})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := newFakeSink()
	sink.after = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	_, err = r.Materialize(ctx, plan, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sink.got) != 2 {
		t.Errorf("sink received %d placements, want the 2 of the first page", len(sink.got))
	}
	if !sink.aborted {
		t.Error("sink should be aborted on cancellation")
	}
}

func TestCropSingleSided(t *testing.T) {
	r := testRunner()
	input := pdftest.Build(grid.PageSize{Width: 200, Height: 300})

	res, err := r.Crop(context.Background(), input, Options{Rows: 2, Columns: 2, NoBack: true})
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if len(res.Output.Artifacts) != 1 {
		t.Fatalf("got %d artifacts, want 1", len(res.Output.Artifacts))
	}
	a := res.Output.Artifacts[0]
	if a.Name != document.CombinedName || a.Pages != 4 {
		t.Errorf("artifact = %s/%d pages, want %s/4", a.Name, a.Pages, document.CombinedName)
	}
	if res.Stats.Placements != 4 || res.Stats.Pages != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.InputHash != cache.Hash(input) {
		t.Error("InputHash should be the hash of the input")
	}
}

func TestCropUsesCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, log.New(io.Discard))
	input := pdftest.Build(pdftest.Letter, pdftest.Letter)
	opts := Options{Rows: 2, Columns: 2, Duplex: true}

	first, err := r.Crop(context.Background(), input, opts)
	if err != nil {
		t.Fatalf("first Crop: %v", err)
	}
	if first.CacheInfo.CropHit {
		t.Error("first run should miss the cache")
	}

	second, err := r.Crop(context.Background(), input, opts)
	if err != nil {
		t.Fatalf("second Crop: %v", err)
	}
	if !second.CacheInfo.CropHit {
		t.Fatal("second run should hit the cache")
	}
	if second.Plan != nil {
		t.Error("cached result should carry no plan")
	}
	for _, name := range []string{document.FrontName, document.BackName} {
		a, ok1 := first.Output.Artifact(name)
		b, ok2 := second.Output.Artifact(name)
		if !ok1 || !ok2 || !bytes.Equal(a.Data, b.Data) || a.Pages != b.Pages {
			t.Errorf("%s differs between fresh and cached run", name)
		}
	}

	opts.Refresh = true
	third, err := r.Crop(context.Background(), input, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.CropHit {
		t.Error("refresh should bypass the cache")
	}

	changed := Options{Rows: 2, Columns: 2, FoldVertical: true}
	fourth, err := r.Crop(context.Background(), input, changed)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheInfo.CropHit {
		t.Error("a different mode must not reuse cached output")
	}
}

func TestCropRejectsGarbage(t *testing.T) {
	_, err := testRunner().Crop(context.Background(), []byte("not a pdf"), Options{Rows: 2, Columns: 2, NoBack: true})
	if !cerrors.Is(err, cerrors.ErrCodeSource) {
		t.Errorf("err = %v, want SOURCE_ERROR", err)
	}
}

type fakeRasterizer struct {
	img image.Image
	err error
}

func (f fakeRasterizer) Rasterize(ctx context.Context, pdf []byte, page, maxW, maxH int) (image.Image, error) {
	return f.img, f.err
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestPreviewPNG(t *testing.T) {
	r := testRunner()
	input := pdftest.Build(pdftest.Letter)

	data, err := r.Preview(context.Background(), input, PreviewOptions{Options: Options{Rows: 3, Columns: 3}})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	img := decodePNG(t, data)
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 776 {
		t.Errorf("preview size = %dx%d, want 600x776", b.Dx(), b.Dy())
	}
}

func TestPreviewZoom(t *testing.T) {
	r := testRunner()
	input := pdftest.Build(pdftest.Letter)

	data, err := r.Preview(context.Background(), input, PreviewOptions{Options: DefaultOptions(), Zoom: true})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	img := decodePNG(t, data)
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 155 {
		t.Errorf("zoom size = %dx%d, want 120x155", b.Dx(), b.Dy())
	}

	_, err = r.Preview(context.Background(), input, PreviewOptions{Options: DefaultOptions(), Zoom: true, Format: FormatSVG})
	if !cerrors.Is(err, cerrors.ErrCodeUnsupported) {
		t.Errorf("svg zoom err = %v, want UNSUPPORTED", err)
	}
}

func TestPreviewSVG(t *testing.T) {
	r := testRunner()
	input := pdftest.Build(pdftest.Letter)

	data, err := r.Preview(context.Background(), input, PreviewOptions{
		Options: Options{Rows: 2, Columns: 2},
		Format:  FormatSVG,
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	svg := string(data)
	for _, id := range []string{`id="cell-0-0"`, `id="cell-1-1"`, `id="lens"`} {
		if !strings.Contains(svg, id) {
			t.Errorf("svg missing %s", id)
		}
	}
}

func TestPreviewRasterBackground(t *testing.T) {
	r := testRunner()
	input := pdftest.Build(pdftest.Letter)

	bg := image.NewRGBA(image.Rect(0, 0, 600, 776))
	green := color.RGBA{G: 255, A: 255}
	for y := 0; y < 776; y++ {
		for x := 0; x < 600; x++ {
			bg.Set(x, y, green)
		}
	}
	r.Rasterizer = fakeRasterizer{img: bg}

	data, err := r.Preview(context.Background(), input, PreviewOptions{Raster: true, Options: Options{Rows: 1, Columns: 1}})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	got := color.RGBAModel.Convert(decodePNG(t, data).At(300, 388)).(color.RGBA)
	if got != green {
		t.Errorf("center pixel = %v, want the raster's green", got)
	}
}

func TestPreviewRasterFailureFallsBack(t *testing.T) {
	r := testRunner()
	r.Rasterizer = fakeRasterizer{err: cerrors.New(cerrors.ErrCodeUnsupported, "pdftoppm not found")}
	input := pdftest.Build(pdftest.Letter)

	data, err := r.Preview(context.Background(), input, PreviewOptions{Raster: true, Options: Options{Rows: 1, Columns: 1}})
	if err != nil {
		t.Fatalf("raster failure should not fail the preview: %v", err)
	}
	got := color.RGBAModel.Convert(decodePNG(t, data).At(300, 388)).(color.RGBA)
	if got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("center pixel = %v, want white", got)
	}
}

func TestPreviewPageClamp(t *testing.T) {
	r := testRunner()
	input := pdftest.Build(pdftest.Letter, grid.PageSize{Width: 800, Height: 400})

	data, err := r.Preview(context.Background(), input, PreviewOptions{Options: DefaultOptions(), Page: 9})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if b := decodePNG(t, data).Bounds(); b.Dx() != 600 || b.Dy() != 300 {
		t.Errorf("preview of last page = %dx%d, want 600x300", b.Dx(), b.Dy())
	}
}

func TestPlanPage(t *testing.T) {
	page, err := PlanPage(grid.PageSize{Width: 300, Height: 100}, Options{Rows: 1, Columns: 3, FoldVertical: true}, 4, 0)
	if err != nil {
		t.Fatalf("PlanPage: %v", err)
	}
	var slots []string
	for _, p := range page.Placements {
		slots = append(slots, fmt.Sprintf("%d:%s", p.Col, p.Slot))
	}
	want := []string{"0:front", "1:back", "2:front"}
	if diff := cmp.Diff(want, slots); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if page.Index != 4 || page.Placements[0].SourcePage != 4 {
		t.Errorf("page index not recorded: %+v", page)
	}
}

package grid

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
)

func TestComputeSingleSidedExample(t *testing.T) {
	cells, err := Compute(PageSize{Width: 200, Height: 300}, Config{Rows: 2, Columns: 2})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	want := []Cell{
		{Row: 0, Col: 0, X0: 0, Y0: 150, Width: 100, Height: 150},
		{Row: 0, Col: 1, X0: 100, Y0: 150, Width: 100, Height: 150},
		{Row: 1, Col: 0, X0: 0, Y0: 0, Width: 100, Height: 150},
		{Row: 1, Col: 1, X0: 100, Y0: 0, Width: 100, Height: 150},
	}
	if diff := cmp.Diff(want, cells); diff != "" {
		t.Errorf("Compute mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeRowMajorOrder(t *testing.T) {
	cells, err := Compute(PageSize{Width: 612, Height: 792}, Config{Rows: 2, Columns: 3})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	type pos struct{ Row, Col int }
	var got []pos
	for _, c := range cells {
		got = append(got, pos{c.Row, c.Col})
	}
	want := []pos{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	for i, c := range cells {
		if Index(c.Row, c.Col, 3) != i {
			t.Errorf("Index(%d, %d, 3) = %d, want %d", c.Row, c.Col, Index(c.Row, c.Col, 3), i)
		}
	}
}

func TestComputeMarginsAndGutters(t *testing.T) {
	cfg := Config{
		Rows: 2, Columns: 2,
		Top: 20, Bottom: 10, Left: 5, Right: 15,
		RowGap: 10, ColumnGap: 20,
	}
	cells, err := Compute(PageSize{Width: 240, Height: 330}, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// width: (240-5-15-20)/2 = 100, height: (330-20-10-10)/2 = 145
	want := []Cell{
		{Row: 0, Col: 0, X0: 5, Y0: 165, Width: 100, Height: 145},
		{Row: 0, Col: 1, X0: 125, Y0: 165, Width: 100, Height: 145},
		{Row: 1, Col: 0, X0: 5, Y0: 10, Width: 100, Height: 145},
		{Row: 1, Col: 1, X0: 125, Y0: 10, Width: 100, Height: 145},
	}
	if diff := cmp.Diff(want, cells); diff != "" {
		t.Errorf("Compute mismatch (-want +got):\n%s", diff)
	}

	// Top row ends exactly at the top margin, bottom row starts at the bottom margin.
	if got := cells[0].Y1(); got != 330-20 {
		t.Errorf("top row Y1 = %g, want %g", got, 330.0-20)
	}
	if got := cells[0].Y0 - cells[2].Y1(); got != cfg.RowGap {
		t.Errorf("row gutter = %g, want %g", got, cfg.RowGap)
	}
	if got := cells[1].X0 - cells[0].X1(); got != cfg.ColumnGap {
		t.Errorf("column gutter = %g, want %g", got, cfg.ColumnGap)
	}
}

func TestComputeTiling(t *testing.T) {
	tests := []struct {
		name string
		page PageSize
		cfg  Config
	}{
		{"letter 3x3", PageSize{612, 792}, Config{Rows: 3, Columns: 3, Top: 36, Bottom: 36, Left: 18, Right: 18, RowGap: 4, ColumnGap: 6}},
		{"a4 2x4", PageSize{595.28, 841.89}, Config{Rows: 2, Columns: 4, Top: 12.5, Bottom: 3, Left: 7.25, Right: 0, RowGap: 1.5, ColumnGap: 0.75}},
		{"single cell", PageSize{100, 100}, Config{Rows: 1, Columns: 1, Top: 10, Bottom: 10, Left: 10, Right: 10}},
		{"uneven gutters", PageSize{1000, 400}, Config{Rows: 4, Columns: 7, RowGap: 3, ColumnGap: 11}},
	}

	approx := cmpopts.EquateApprox(1e-9, 1e-9)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells, err := Compute(tt.page, tt.cfg)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if len(cells) != tt.cfg.Rows*tt.cfg.Columns {
				t.Fatalf("got %d cells, want %d", len(cells), tt.cfg.Rows*tt.cfg.Columns)
			}

			var cellArea float64
			for _, c := range cells {
				cellArea += c.Area()
			}
			c := tt.cfg
			marginArea := tt.page.Width*tt.page.Height -
				(tt.page.Width-c.Left-c.Right)*(tt.page.Height-c.Top-c.Bottom)
			usableW := tt.page.Width - c.Left - c.Right
			usableH := tt.page.Height - c.Top - c.Bottom
			gutterArea := float64(c.Columns-1)*c.ColumnGap*usableH +
				float64(c.Rows-1)*c.RowGap*usableW -
				float64((c.Columns-1)*(c.Rows-1))*c.ColumnGap*c.RowGap
			total := cellArea + marginArea + gutterArea
			if !cmp.Equal(total, tt.page.Width*tt.page.Height, approx) {
				t.Errorf("cells+margins+gutters = %g, want page area %g", total, tt.page.Width*tt.page.Height)
			}

			for i, a := range cells {
				for _, b := range cells[i+1:] {
					if overlaps(a, b) {
						t.Errorf("cells (%d,%d) and (%d,%d) overlap", a.Row, a.Col, b.Row, b.Col)
					}
				}
			}

			last := cells[len(cells)-1]
			if !cmp.Equal(last.X1(), tt.page.Width-c.Right, approx) {
				t.Errorf("last column X1 = %g, want %g", last.X1(), tt.page.Width-c.Right)
			}
			if !cmp.Equal(last.Y0, c.Bottom, approx) {
				t.Errorf("bottom row Y0 = %g, want %g", last.Y0, c.Bottom)
			}
		})
	}
}

func overlaps(a, b Cell) bool {
	const eps = 1e-9
	return a.X0 < b.X1()-eps && b.X0 < a.X1()-eps && a.Y0 < b.Y1()-eps && b.Y0 < a.Y1()-eps
}

func TestComputeConfigErrors(t *testing.T) {
	page := PageSize{Width: 200, Height: 300}
	tests := []struct {
		name string
		page PageSize
		cfg  Config
	}{
		{"zero rows", page, Config{Rows: 0, Columns: 1}},
		{"zero columns", page, Config{Rows: 1, Columns: 0}},
		{"negative columns", page, Config{Rows: 1, Columns: -2}},
		{"vertical margins consume page", page, Config{Rows: 3, Columns: 1, Top: 150, Bottom: 150}},
		{"vertical margins exceed page", page, Config{Rows: 3, Columns: 1, Top: 200, Bottom: 150}},
		{"horizontal margins consume page", page, Config{Rows: 1, Columns: 1, Left: 100, Right: 100}},
		{"gutters consume page", page, Config{Rows: 1, Columns: 5, ColumnGap: 50}},
		{"negative margin", page, Config{Rows: 1, Columns: 1, Left: -1}},
		{"nan margin", page, Config{Rows: 1, Columns: 1, Top: math.NaN()}},
		{"inf gutter", page, Config{Rows: 2, Columns: 1, RowGap: math.Inf(1)}},
		{"zero page", PageSize{}, Config{Rows: 1, Columns: 1}},
		{"negative page", PageSize{Width: -10, Height: 10}, Config{Rows: 1, Columns: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells, err := Compute(tt.page, tt.cfg)
			if err == nil {
				t.Fatalf("Compute succeeded with %d cells, want error", len(cells))
			}
			if !cerrors.Is(err, cerrors.ErrCodeConfig) {
				t.Errorf("error code = %q, want %q", cerrors.GetCode(err), cerrors.ErrCodeConfig)
			}
			if cells != nil {
				t.Errorf("cells = %v, want nil", cells)
			}
		})
	}
}

func TestComputeDeterministic(t *testing.T) {
	page := PageSize{Width: 612, Height: 792}
	cfg := Config{Rows: 3, Columns: 3, Top: 10.1, Bottom: 20.2, Left: 3.3, Right: 4.4, RowGap: 0.7, ColumnGap: 1.9}

	first, err := Compute(page, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// An unrelated computation must not affect later results.
	if _, err := Compute(PageSize{Width: 100, Height: 50}, Config{Rows: 5, Columns: 2}); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := Compute(page, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("results differ (-first +second):\n%s", diff)
	}
}

func TestCardSize(t *testing.T) {
	w, h, err := Config{Rows: 4, Columns: 2, Left: 10, Right: 10, Top: 5, Bottom: 5, RowGap: 2, ColumnGap: 4}.
		CardSize(PageSize{Width: 224, Height: 416})
	if err != nil {
		t.Fatalf("CardSize: %v", err)
	}
	if w != 100 || h != 100 {
		t.Errorf("CardSize = %gx%g, want 100x100", w, h)
	}
}

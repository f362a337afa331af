package grid

import (
	"math"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
)

// PageSize is the size of one source page in document units.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Config describes the grid laid over every page of a crop run.
type Config struct {
	Rows    int `json:"rows" toml:"rows" yaml:"rows"`
	Columns int `json:"columns" toml:"columns" yaml:"columns"`

	Top    float64 `json:"top_margin" toml:"top_margin" yaml:"top_margin"`
	Bottom float64 `json:"bottom_margin" toml:"bottom_margin" yaml:"bottom_margin"`
	Left   float64 `json:"left_margin" toml:"left_margin" yaml:"left_margin"`
	Right  float64 `json:"right_margin" toml:"right_margin" yaml:"right_margin"`

	// RowGap is the gutter between vertically adjacent cells.
	RowGap float64 `json:"row_margin" toml:"row_margin" yaml:"row_margin"`
	// ColumnGap is the gutter between horizontally adjacent cells.
	ColumnGap float64 `json:"column_margin" toml:"column_margin" yaml:"column_margin"`
}

// Cell is one card rectangle. X0/Y0 is the bottom-left corner.
type Cell struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	X0     float64 `json:"x0"`
	Y0     float64 `json:"y0"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// X1 returns the right edge of the cell.
func (c Cell) X1() float64 { return c.X0 + c.Width }

// Y1 returns the top edge of the cell.
func (c Cell) Y1() float64 { return c.Y0 + c.Height }

// Area returns the area of the cell.
func (c Cell) Area() float64 { return c.Width * c.Height }

// Validate checks the parts of the configuration that do not depend on the
// page size.
func (c Config) Validate() error {
	if c.Rows < 1 {
		return cerrors.New(cerrors.ErrCodeConfig, "rows must be at least 1, got %d", c.Rows)
	}
	if c.Columns < 1 {
		return cerrors.New(cerrors.ErrCodeConfig, "columns must be at least 1, got %d", c.Columns)
	}
	margins := []struct {
		name  string
		value float64
	}{
		{"top margin", c.Top},
		{"bottom margin", c.Bottom},
		{"left margin", c.Left},
		{"right margin", c.Right},
		{"row margin", c.RowGap},
		{"column margin", c.ColumnGap},
	}
	for _, m := range margins {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) {
			return cerrors.New(cerrors.ErrCodeConfig, "%s must be a finite number", m.name)
		}
		if m.value < 0 {
			return cerrors.New(cerrors.ErrCodeConfig, "%s must not be negative, got %g", m.name, m.value)
		}
	}
	return nil
}

// CardSize returns the width and height shared by every cell on a page of
// the given size.
func (c Config) CardSize(page PageSize) (width, height float64, err error) {
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	if !(page.Width > 0) || !(page.Height > 0) || math.IsInf(page.Width, 0) || math.IsInf(page.Height, 0) {
		return 0, 0, cerrors.New(cerrors.ErrCodeConfig, "page size %gx%g is not positive", page.Width, page.Height)
	}

	usableWidth := page.Width - c.Left - c.Right - float64(c.Columns-1)*c.ColumnGap
	if usableWidth <= 0 {
		return 0, 0, cerrors.New(cerrors.ErrCodeConfig,
			"left/right margins and column gutters (%g) leave no usable width on a %g wide page",
			c.Left+c.Right+float64(c.Columns-1)*c.ColumnGap, page.Width)
	}
	usableHeight := page.Height - c.Top - c.Bottom - float64(c.Rows-1)*c.RowGap
	if usableHeight <= 0 {
		return 0, 0, cerrors.New(cerrors.ErrCodeConfig,
			"top/bottom margins and row gutters (%g) leave no usable height on a %g high page",
			c.Top+c.Bottom+float64(c.Rows-1)*c.RowGap, page.Height)
	}

	return usableWidth / float64(c.Columns), usableHeight / float64(c.Rows), nil
}

// Compute returns the Rows×Columns cells of a page in row-major order,
// top row first.
func Compute(page PageSize, cfg Config) ([]Cell, error) {
	cardWidth, cardHeight, err := cfg.CardSize(page)
	if err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, cfg.Rows*cfg.Columns)
	for row := 0; row < cfg.Rows; row++ {
		y0 := page.Height - cfg.Top - float64(row+1)*cardHeight - float64(row)*cfg.RowGap
		for col := 0; col < cfg.Columns; col++ {
			cells = append(cells, Cell{
				Row:    row,
				Col:    col,
				X0:     cfg.Left + float64(col)*(cardWidth+cfg.ColumnGap),
				Y0:     y0,
				Width:  cardWidth,
				Height: cardHeight,
			})
		}
	}
	return cells, nil
}

// Index returns the position of the cell (row, col) in the slice returned by
// Compute for a grid with the given number of columns.
func Index(row, col, columns int) int {
	return row*columns + col
}

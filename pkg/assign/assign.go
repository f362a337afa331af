// Package assign routes grid cells to front and back output documents.
//
// [Assign] is a pure function of the page's cells, the page's 0-based
// position in the crop run and a [Mode]. It emits one [Placement] per cell in
// the cells' row-major order. Callers append the placements of consecutive
// pages without re-sorting; the front document is then the subsequence of
// placements with slot [Front], the back document likewise.
package assign

import (
	"fmt"
	"strings"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
)

// Mode selects the front/back assignment policy of a crop run.
type Mode int

const (
	// SingleSided puts every card into one combined document.
	SingleSided Mode = iota
	// Duplex alternates whole pages between front and back. Back pages read
	// their cells with mirrored columns so a duplex print lines up.
	Duplex
	// FoldVertical sends even columns to the front and odd columns to the back.
	FoldVertical
	// FoldHorizontal sends even rows to the front and odd rows to the back.
	FoldHorizontal
)

var modeNames = map[Mode]string{
	SingleSided:    "single",
	Duplex:         "duplex",
	FoldVertical:   "fold-vertical",
	FoldHorizontal: "fold-horizontal",
}

// Modes lists all layout modes in precedence order.
var Modes = []Mode{SingleSided, Duplex, FoldVertical, FoldHorizontal}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// TwoSided reports whether the mode produces separate front and back
// documents.
func (m Mode) TwoSided() bool { return m != SingleSided }

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("unknown layout mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode parses a layout mode name. Underscores are accepted in place of
// dashes, so the flag names of the web form ("fold_vertical") also parse.
func ParseMode(s string) (Mode, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch name {
	case "single", "single-sided", "no-back":
		return SingleSided, nil
	case "duplex":
		return Duplex, nil
	case "fold-vertical":
		return FoldVertical, nil
	case "fold-horizontal":
		return FoldHorizontal, nil
	}
	return SingleSided, cerrors.New(cerrors.ErrCodeConfig,
		"unknown layout mode %q (want single, duplex, fold-vertical or fold-horizontal)", s)
}

// Resolve collapses the four layout flags into a Mode. When several flags are
// set the first in the order noBack, duplex, foldVertical, foldHorizontal
// wins. Setting none is a configuration error.
func Resolve(noBack, duplex, foldVertical, foldHorizontal bool) (Mode, error) {
	switch {
	case noBack:
		return SingleSided, nil
	case duplex:
		return Duplex, nil
	case foldVertical:
		return FoldVertical, nil
	case foldHorizontal:
		return FoldHorizontal, nil
	}
	return SingleSided, cerrors.New(cerrors.ErrCodeConfig,
		"no layout mode selected (choose one of no-back, duplex, fold-vertical, fold-horizontal)")
}

// Slot is the output document a card is appended to.
type Slot int

const (
	Front Slot = iota
	Back
)

func (s Slot) String() string {
	if s == Back {
		return "back"
	}
	return "front"
}

// MarshalText implements encoding.TextMarshaler.
func (s Slot) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Slot) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "front":
		*s = Front
	case "back":
		*s = Back
	default:
		return fmt.Errorf("unknown slot %q", text)
	}
	return nil
}

// Placement is one card of the crop run.
type Placement struct {
	// SourcePage is the 0-based index of the page in the source document.
	SourcePage int `json:"source_page"`
	// Row and Col are the grid position being visited.
	Row int `json:"row"`
	Col int `json:"col"`
	// Crop is the rectangle read from the source page. It differs from the
	// cell at (Row, Col) only on mirrored duplex back pages.
	Crop grid.Cell `json:"crop"`
	Slot Slot      `json:"slot"`
}

// Assign emits the placements of one page. sourcePage is recorded on every
// placement; runIndex is the page's 0-based position relative to the
// starting page and drives the duplex alternation.
func Assign(cells []grid.Cell, sourcePage, runIndex int, mode Mode) []Placement {
	if len(cells) == 0 {
		return nil
	}
	columns := 0
	for _, c := range cells {
		if c.Col+1 > columns {
			columns = c.Col + 1
		}
	}

	placements := make([]Placement, 0, len(cells))
	for _, c := range cells {
		p := Placement{
			SourcePage: sourcePage,
			Row:        c.Row,
			Col:        c.Col,
			Crop:       c,
			Slot:       Front,
		}
		switch mode {
		case Duplex:
			if runIndex%2 == 1 {
				p.Slot = Back
				p.Crop = mirrored(cells, c, columns)
			}
		case FoldVertical:
			if c.Col%2 == 1 {
				p.Slot = Back
			}
		case FoldHorizontal:
			if c.Row%2 == 1 {
				p.Slot = Back
			}
		}
		placements = append(placements, p)
	}
	return placements
}

// mirrored returns the cell in the same row as c at column columns-1-c.Col.
// Cells are expected in row-major order; a lookup by position is used when
// the slice does not match that layout.
func mirrored(cells []grid.Cell, c grid.Cell, columns int) grid.Cell {
	col := columns - 1 - c.Col
	if i := grid.Index(c.Row, col, columns); i < len(cells) && cells[i].Row == c.Row && cells[i].Col == col {
		return cells[i]
	}
	for _, other := range cells {
		if other.Row == c.Row && other.Col == col {
			return other
		}
	}
	return c
}

// Split partitions placements by slot, preserving emission order.
func Split(placements []Placement) (front, back []Placement) {
	for _, p := range placements {
		if p.Slot == Back {
			back = append(back, p)
		} else {
			front = append(front, p)
		}
	}
	return front, back
}

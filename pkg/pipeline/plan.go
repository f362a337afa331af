package pipeline

import (
	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/grid"
)

// =============================================================================
// Plan
// =============================================================================

// Plan is the outcome of the planning pass: every placement of a run in
// emission order.
type Plan struct {
	Mode assign.Mode `json:"mode"`
	// FirstPage is the 0-based index of the first planned page.
	FirstPage  int                `json:"first_page"`
	Pages      []PagePlan         `json:"pages"`
	Placements []assign.Placement `json:"placements"`
}

// PagePlan holds the cells and placements of one source page.
type PagePlan struct {
	// Index is the 0-based page index in the source document.
	Index      int                `json:"index"`
	Size       grid.PageSize      `json:"size"`
	Cells      []grid.Cell        `json:"cells"`
	Placements []assign.Placement `json:"placements"`
}

// Split returns the front and back placements in output order.
func (p *Plan) Split() (front, back []assign.Placement) {
	return assign.Split(p.Placements)
}

// planPage computes cells and placements for one page. runIndex is the
// page's position relative to the first page of the run.
func planPage(index, runIndex int, size grid.PageSize, cfg grid.Config, mode assign.Mode) (PagePlan, error) {
	cells, err := grid.Compute(size, cfg)
	if err != nil {
		return PagePlan{}, err
	}
	return PagePlan{
		Index:      index,
		Size:       size,
		Cells:      cells,
		Placements: assign.Assign(cells, index, runIndex, mode),
	}, nil
}

// PlanPage validates opts and plans a single page in isolation. It serves
// cell listings and previews that show one page of a run.
func PlanPage(size grid.PageSize, opts Options, index, runIndex int) (PagePlan, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return PagePlan{}, err
	}
	return planPage(index, runIndex, size, opts.Grid(), opts.Mode())
}

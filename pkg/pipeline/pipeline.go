// Package pipeline provides the crop run shared by the CLI and the HTTP
// service.
//
// A run has two passes over the source document:
//
//  1. Plan: read every page size from the starting page on, compute the grid
//     cells and assign each cell to the front or back output. Configuration
//     and source errors surface here, before any output exists.
//  2. Materialize: hand each placement to a [document.Sink] in emission
//     order, then serialize the outputs.
//
// Both passes check the context between pages.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Rows: 3, Columns: 3, Duplex: true}
//	result, err := runner.Crop(ctx, pdfBytes, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := result.Output.WriteDir("out")
//
// Preview a page with the grid overlay:
//
//	img, err := runner.Preview(ctx, pdfBytes, pipeline.PreviewOptions{
//	    Options: opts,
//	    Page:    1,
//	    Format:  pipeline.FormatPNG,
//	})
package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/cache"
	"github.com/matzehuels/cardcrop/pkg/document"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
	"github.com/matzehuels/cardcrop/pkg/preview"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultRows is the grid row count when none is given.
	DefaultRows = 3

	// DefaultColumns is the grid column count when none is given.
	DefaultColumns = 3

	// DefaultStartingPage is the first page (1-based) of a run.
	DefaultStartingPage = 1

	// DefaultPreviewPage is the page (1-based) shown by a preview.
	DefaultPreviewPage = 1
)

// Format constants for preview output.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported preview formats.
var ValidFormats = map[string]bool{
	FormatPNG: true,
	FormatSVG: true,
}

// =============================================================================
// Options - Crop Configuration
// =============================================================================

// Options contains all configuration for a crop run. Field tags cover JSON
// requests and TOML/YAML preset files.
type Options struct {
	// Grid
	Rows         int     `json:"rows,omitempty" toml:"rows" yaml:"rows"`
	Columns      int     `json:"columns,omitempty" toml:"columns" yaml:"columns"`
	TopMargin    float64 `json:"top_margin,omitempty" toml:"top_margin" yaml:"top_margin"`
	BottomMargin float64 `json:"bottom_margin,omitempty" toml:"bottom_margin" yaml:"bottom_margin"`
	LeftMargin   float64 `json:"left_margin,omitempty" toml:"left_margin" yaml:"left_margin"`
	RightMargin  float64 `json:"right_margin,omitempty" toml:"right_margin" yaml:"right_margin"`
	RowMargin    float64 `json:"row_margin,omitempty" toml:"row_margin" yaml:"row_margin"`
	ColumnMargin float64 `json:"column_margin,omitempty" toml:"column_margin" yaml:"column_margin"`

	// Run
	StartingPage int `json:"starting_page,omitempty" toml:"starting_page" yaml:"starting_page"`

	// Layout mode, either as a name or as the four exclusive flags.
	Layout         string `json:"layout,omitempty" toml:"layout" yaml:"layout"`
	NoBack         bool   `json:"no_back,omitempty" toml:"no_back" yaml:"no_back"`
	Duplex         bool   `json:"duplex,omitempty" toml:"duplex" yaml:"duplex"`
	FoldVertical   bool   `json:"fold_vertical,omitempty" toml:"fold_vertical" yaml:"fold_vertical"`
	FoldHorizontal bool   `json:"fold_horizontal,omitempty" toml:"fold_horizontal" yaml:"fold_horizontal"`

	// Refresh bypasses cached artifacts.
	Refresh bool `json:"refresh,omitempty" toml:"-" yaml:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-" yaml:"-"`

	mode      assign.Mode
	validated bool
}

// PreviewOptions configures a preview of one page.
type PreviewOptions struct {
	Options

	// Page is the 1-based page to show; values past the end show the last page.
	Page         int     `json:"page,omitempty"`
	CanvasWidth  int     `json:"canvas_width,omitempty"`
	CanvasHeight int     `json:"canvas_height,omitempty"`
	LensX        float64 `json:"lens_x,omitempty"`
	LensY        float64 `json:"lens_y,omitempty"`
	Format       string  `json:"format,omitempty"`
	// Zoom renders the magnified lens view instead of the full page.
	Zoom bool `json:"zoom,omitempty"`
	// Raster draws the page itself under the overlay.
	Raster bool `json:"raster,omitempty"`
}

// Result contains the outputs of a crop run.
type Result struct {
	// Output holds the serialized front/back documents.
	Output *document.Output

	// InputHash is the SHA-256 of the source document.
	InputHash string

	// Plan is nil when the output came from the cache.
	Plan *Plan

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the run was served from cache.
	CacheInfo CacheInfo
}

// Stats contains crop run statistics.
type Stats struct {
	Pages       int
	Placements  int
	PlanTime    time.Duration
	CropTime    time.Duration
	OutputBytes int
}

// CacheInfo tracks cache hits for a run.
type CacheInfo struct {
	CropHit    bool
	PreviewHit bool
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a preview format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return cerrors.New(cerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: png, svg)", format)
	}
	return nil
}

// ValidateStartingPage checks a 1-based starting page. Zero means unset.
func ValidateStartingPage(page int) error {
	if page < 0 {
		return cerrors.New(cerrors.ErrCodeConfig, "starting page must be at least 1, got %d", page)
	}
	return nil
}

// ValidateMargins checks that every margin is finite and non-negative.
func ValidateMargins(o Options) error {
	margins := []struct {
		name  string
		value float64
	}{
		{"top_margin", o.TopMargin},
		{"bottom_margin", o.BottomMargin},
		{"left_margin", o.LeftMargin},
		{"right_margin", o.RightMargin},
		{"row_margin", o.RowMargin},
		{"column_margin", o.ColumnMargin},
	}
	for _, m := range margins {
		if math.IsNaN(m.value) || math.IsInf(m.value, 0) || m.value < 0 {
			return cerrors.New(cerrors.ErrCodeConfig, "%s must be a non-negative number, got %v", m.name, m.value)
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the grid and layout mode and applies
// defaults. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForGrid(); err != nil {
		return err
	}
	if err := ValidateStartingPage(o.StartingPage); err != nil {
		return err
	}
	if o.StartingPage == 0 {
		o.StartingPage = DefaultStartingPage
	}
	mode, err := o.resolveMode()
	if err != nil {
		return err
	}
	o.mode = mode
	o.validated = true
	return nil
}

// ValidateForGrid checks the grid alone. Previews and cell listings need no
// layout mode. Rows and columns are never defaulted here: zero is an error,
// so callers start from DefaultOptions when a field may be absent.
func (o *Options) ValidateForGrid() error {
	if err := ValidateMargins(*o); err != nil {
		return err
	}
	return o.Grid().Validate()
}

// DefaultOptions returns options with the default grid and no layout mode.
// Form, JSON and preset readers decode on top of it so absent fields keep
// their defaults while an explicit zero still fails validation.
func DefaultOptions() Options {
	return Options{Rows: DefaultRows, Columns: DefaultColumns}
}

// resolveMode prefers the Layout name and falls back to the flags.
func (o *Options) resolveMode() (assign.Mode, error) {
	if o.Layout != "" {
		return assign.ParseMode(o.Layout)
	}
	return assign.Resolve(o.NoBack, o.Duplex, o.FoldVertical, o.FoldHorizontal)
}

// HasMode reports whether a layout mode was selected by name or flag.
func (o *Options) HasMode() bool {
	return o.Layout != "" || o.NoBack || o.Duplex || o.FoldVertical || o.FoldHorizontal
}

// Mode returns the resolved layout mode. It is only meaningful after
// ValidateAndSetDefaults succeeded.
func (o *Options) Mode() assign.Mode {
	return o.mode
}

// SetMode clears the mode flags and selects m by name.
func (o *Options) SetMode(m assign.Mode) {
	o.Layout = m.String()
	o.NoBack, o.Duplex, o.FoldVertical, o.FoldHorizontal = false, false, false, false
	o.validated = false
}

// Grid returns the grid configuration described by the options.
func (o *Options) Grid() grid.Config {
	return grid.Config{
		Rows:      o.Rows,
		Columns:   o.Columns,
		Top:       o.TopMargin,
		Bottom:    o.BottomMargin,
		Left:      o.LeftMargin,
		Right:     o.RightMargin,
		RowGap:    o.RowMargin,
		ColumnGap: o.ColumnMargin,
	}
}

// CropKeyOpts returns cache key options for a crop run.
func (o *Options) CropKeyOpts() cache.CropKeyOpts {
	k := o.gridKeyOpts()
	k.StartingPage = o.StartingPage
	k.Mode = o.mode.String()
	return k
}

// gridKeyOpts holds the fields that shape the cells of a page.
func (o *Options) gridKeyOpts() cache.CropKeyOpts {
	return cache.CropKeyOpts{
		Rows:      o.Rows,
		Columns:   o.Columns,
		Top:       o.TopMargin,
		Bottom:    o.BottomMargin,
		Left:      o.LeftMargin,
		Right:     o.RightMargin,
		RowGap:    o.RowMargin,
		ColumnGap: o.ColumnMargin,
	}
}

// ValidateAndSetDefaults checks the grid and preview fields and applies
// defaults. No layout mode is required.
func (p *PreviewOptions) ValidateAndSetDefaults() error {
	if err := p.Options.ValidateForGrid(); err != nil {
		return err
	}
	if p.Page < 0 {
		return cerrors.New(cerrors.ErrCodeInvalidInput, "page must be at least 1, got %d", p.Page)
	}
	if p.Page == 0 {
		p.Page = DefaultPreviewPage
	}
	if p.CanvasWidth == 0 {
		p.CanvasWidth = preview.DefaultCanvasWidth
	}
	if p.CanvasHeight == 0 {
		p.CanvasHeight = preview.DefaultCanvasHeight
	}
	if p.Format == "" {
		p.Format = FormatPNG
	}
	return ValidateFormat(p.Format)
}

// PreviewKeyOpts returns cache key options for a preview image.
func (p *PreviewOptions) PreviewKeyOpts() cache.PreviewKeyOpts {
	return cache.PreviewKeyOpts{
		Grid:   p.Options.gridKeyOpts(),
		Page:   p.Page,
		Width:  p.CanvasWidth,
		Height: p.CanvasHeight,
		LensX:  p.LensX,
		LensY:  p.LensY,
		Format: p.Format,
		Zoom:   p.Zoom,
		Raster: p.Raster,
	}
}

// ContentType returns the MIME type of the preview format.
func (p *PreviewOptions) ContentType() string {
	if p.Format == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Describe renders options as the equivalent crop command-line flags.
func (o *Options) Describe() string {
	s := fmt.Sprintf("--rows %d --columns %d", o.Rows, o.Columns)
	add := func(flag string, v float64) {
		if v != 0 {
			s += fmt.Sprintf(" --%s %g", flag, v)
		}
	}
	add("top-margin", o.TopMargin)
	add("bottom-margin", o.BottomMargin)
	add("left-margin", o.LeftMargin)
	add("right-margin", o.RightMargin)
	add("row-margin", o.RowMargin)
	add("column-margin", o.ColumnMargin)
	if o.StartingPage > 1 {
		s += fmt.Sprintf(" --starting-page %d", o.StartingPage)
	}
	if mode, err := o.resolveMode(); err == nil {
		s += " --layout " + mode.String()
	}
	return s
}

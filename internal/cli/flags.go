package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
)

// layoutFlags binds the grid, margin and mode flags shared by crop,
// preview, cells and tune.
type layoutFlags struct {
	opts   pipeline.Options
	preset string
}

// register adds the flags to fs. withMode is false for commands that only
// need the grid.
func (f *layoutFlags) register(fs *pflag.FlagSet, withMode bool) {
	fs.StringVar(&f.preset, "preset", "", "load options from a .toml or .yaml preset (flags override it)")

	fs.IntVarP(&f.opts.Rows, "rows", "r", pipeline.DefaultRows, "card rows per page")
	fs.IntVarP(&f.opts.Columns, "columns", "c", pipeline.DefaultColumns, "card columns per page")
	fs.Float64Var(&f.opts.TopMargin, "top-margin", 0, "space above the first row (points)")
	fs.Float64Var(&f.opts.BottomMargin, "bottom-margin", 0, "space below the last row (points)")
	fs.Float64Var(&f.opts.LeftMargin, "left-margin", 0, "space left of the first column (points)")
	fs.Float64Var(&f.opts.RightMargin, "right-margin", 0, "space right of the last column (points)")
	fs.Float64Var(&f.opts.RowMargin, "row-margin", 0, "gutter between rows (points)")
	fs.Float64Var(&f.opts.ColumnMargin, "column-margin", 0, "gutter between columns (points)")

	if !withMode {
		return
	}
	fs.IntVar(&f.opts.StartingPage, "starting-page", pipeline.DefaultStartingPage, "first page (1-based) of the run")
	fs.StringVar(&f.opts.Layout, "layout", "", "layout mode: "+modeList())
	fs.BoolVar(&f.opts.NoBack, "no-back", false, "cards have no backs")
	fs.BoolVar(&f.opts.Duplex, "duplex", false, "pages alternate fronts and mirrored backs")
	fs.BoolVar(&f.opts.FoldVertical, "fold-vertical", false, "fronts left, backs right of a vertical fold")
	fs.BoolVar(&f.opts.FoldHorizontal, "fold-horizontal", false, "fronts above, backs below a horizontal fold")
}

// options returns the effective options: the preset if one is given, with
// every flag the user set on the command line applied on top.
func (f *layoutFlags) options(cmd *cobra.Command) (pipeline.Options, error) {
	if f.preset == "" {
		return f.opts, nil
	}
	opts, err := pipeline.LoadPreset(f.preset)
	if err != nil {
		return pipeline.Options{}, err
	}

	fs := cmd.Flags()
	changed := func(name string) bool { return fs.Changed(name) }
	if changed("rows") {
		opts.Rows = f.opts.Rows
	}
	if changed("columns") {
		opts.Columns = f.opts.Columns
	}
	if changed("top-margin") {
		opts.TopMargin = f.opts.TopMargin
	}
	if changed("bottom-margin") {
		opts.BottomMargin = f.opts.BottomMargin
	}
	if changed("left-margin") {
		opts.LeftMargin = f.opts.LeftMargin
	}
	if changed("right-margin") {
		opts.RightMargin = f.opts.RightMargin
	}
	if changed("row-margin") {
		opts.RowMargin = f.opts.RowMargin
	}
	if changed("column-margin") {
		opts.ColumnMargin = f.opts.ColumnMargin
	}
	if changed("starting-page") {
		opts.StartingPage = f.opts.StartingPage
	}

	// A mode given on the command line replaces the preset's mode entirely.
	if changed("layout") || changed("no-back") || changed("duplex") ||
		changed("fold-vertical") || changed("fold-horizontal") {
		opts.Layout = f.opts.Layout
		opts.NoBack = f.opts.NoBack
		opts.Duplex = f.opts.Duplex
		opts.FoldVertical = f.opts.FoldVertical
		opts.FoldHorizontal = f.opts.FoldHorizontal
	}
	return opts, nil
}

func modeList() string {
	names := make([]string, len(assign.Modes))
	for i, m := range assign.Modes {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}

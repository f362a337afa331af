package cli

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/document"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
	"github.com/matzehuels/cardcrop/pkg/preview"
)

// Tuner styles
var (
	tuneSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	tuneNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	tuneDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tuneFrontStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	tuneBackStyle     = lipgloss.NewStyle().Foreground(colorYellow)
	tuneErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	mapWidth   = 48 // page map width in characters
	marginStep = 1  // points per key press
	bigStep    = 10 // points per shifted key press
)

// tuneField is one adjustable setting of the tuner.
type tuneField int

const (
	fieldRows tuneField = iota
	fieldColumns
	fieldTop
	fieldBottom
	fieldLeft
	fieldRight
	fieldRowGap
	fieldColumnGap
	fieldMode
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Rows", "Columns", "Top", "Bottom", "Left", "Right", "Row gap", "Column gap", "Layout",
}

// Page map symbols.
const (
	symbolFront = '█'
	symbolBack  = '▒'
	symbolPage  = '·'
)

// =============================================================================
// TuneModel - Interactive grid tuning
// =============================================================================

// TuneModel is the bubbletea model for tuning the grid of one page.
type TuneModel struct {
	Path      string
	Page      grid.PageSize
	Options   pipeline.Options
	Field     tuneField
	Confirmed bool

	plan pipeline.PagePlan
	err  error
}

// NewTuneModel creates a tuner for a page of size page. The layout mode
// is normalized to a name; without one the tuner starts single-sided.
func NewTuneModel(path string, page grid.PageSize, opts pipeline.Options) TuneModel {
	opts.SetMode(modeOf(opts))
	m := TuneModel{Path: path, Page: page, Options: opts}
	m.replan()
	return m
}

// Err returns the error of the current settings, if any.
func (m TuneModel) Err() error { return m.err }

// Command returns the crop command equivalent to the current settings.
func (m TuneModel) Command() string {
	return "cardcrop crop " + m.Path + " " + m.Options.Describe()
}

func (m *TuneModel) replan() {
	m.plan, m.err = pipeline.PlanPage(m.Page, m.Options, 0, 0)
}

func (m TuneModel) Init() tea.Cmd {
	return nil
}

func (m TuneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Field > 0 {
			m.Field--
		}
	case "down", "j", "tab":
		if m.Field < fieldCount-1 {
			m.Field++
		}
	case "left", "h", "-":
		m.adjust(-marginStep)
	case "right", "l", "+", "=":
		m.adjust(marginStep)
	case "shift+left", "H":
		m.adjust(-bigStep)
	case "shift+right", "L":
		m.adjust(bigStep)
	case "enter":
		if m.err != nil {
			return m, nil
		}
		m.Confirmed = true
		return m, tea.Quit
	}
	return m, nil
}

// adjust changes the selected field by delta. Counts move by one step
// regardless of delta's size; margins never go below zero.
func (m *TuneModel) adjust(delta float64) {
	o := &m.Options
	step := 1
	if delta < 0 {
		step = -1
	}
	margin := func(v *float64) { *v = math.Max(0, *v+delta) }

	switch m.Field {
	case fieldRows:
		o.Rows = max(1, o.Rows+step)
	case fieldColumns:
		o.Columns = max(1, o.Columns+step)
	case fieldTop:
		margin(&o.TopMargin)
	case fieldBottom:
		margin(&o.BottomMargin)
	case fieldLeft:
		margin(&o.LeftMargin)
	case fieldRight:
		margin(&o.RightMargin)
	case fieldRowGap:
		margin(&o.RowMargin)
	case fieldColumnGap:
		margin(&o.ColumnMargin)
	case fieldMode:
		o.SetMode(nextMode(m.currentMode(), step))
	}
	m.replan()
}

func (m TuneModel) currentMode() assign.Mode {
	return modeOf(m.Options)
}

// modeOf resolves the mode of opts, falling back to single-sided.
func modeOf(o pipeline.Options) assign.Mode {
	var (
		mode assign.Mode
		err  error
	)
	if o.Layout != "" {
		mode, err = assign.ParseMode(o.Layout)
	} else {
		mode, err = assign.Resolve(o.NoBack, o.Duplex, o.FoldVertical, o.FoldHorizontal)
	}
	if err != nil {
		return assign.SingleSided
	}
	return mode
}

func nextMode(cur assign.Mode, step int) assign.Mode {
	n := len(assign.Modes)
	for i, m := range assign.Modes {
		if m == cur {
			return assign.Modes[((i+step)%n+n)%n]
		}
	}
	return assign.Modes[0]
}

func (m TuneModel) fieldValue(f tuneField) string {
	o := m.Options
	switch f {
	case fieldRows:
		return fmt.Sprint(o.Rows)
	case fieldColumns:
		return fmt.Sprint(o.Columns)
	case fieldTop:
		return fmt.Sprintf("%g pt", o.TopMargin)
	case fieldBottom:
		return fmt.Sprintf("%g pt", o.BottomMargin)
	case fieldLeft:
		return fmt.Sprintf("%g pt", o.LeftMargin)
	case fieldRight:
		return fmt.Sprintf("%g pt", o.RightMargin)
	case fieldRowGap:
		return fmt.Sprintf("%g pt", o.RowMargin)
	case fieldColumnGap:
		return fmt.Sprintf("%g pt", o.ColumnMargin)
	case fieldMode:
		return m.currentMode().String()
	}
	return ""
}

func (m TuneModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Tune Grid"))
	b.WriteString("  ")
	b.WriteString(tuneDimStyle.Render(fmt.Sprintf("%s · %gx%g pt", m.Path, m.Page.Width, m.Page.Height)))
	b.WriteString("\n")
	b.WriteString(tuneDimStyle.Render("↑/↓ field  ←/→ adjust  shift ×10  ⏎ done  q quit"))
	b.WriteString("\n\n")

	var fields strings.Builder
	for f := tuneField(0); f < fieldCount; f++ {
		cursor := "  "
		style := tuneNormalStyle
		if f == m.Field {
			cursor = "▸ "
			style = tuneSelectedStyle
		}
		fields.WriteString(style.Render(fmt.Sprintf("%s%-11s %s", cursor, fieldLabels[f], m.fieldValue(f))))
		fields.WriteString("\n")
	}

	pageMap := strings.Join(renderPageMap(m.Page, m.plan, mapWidth), "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, fields.String(), "    ", pageMap))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(tuneErrorStyle.Render(cerrors.UserMessage(m.err)))
	} else {
		b.WriteString(tuneFrontStyle.Render(string(symbolFront)) + tuneDimStyle.Render(" front  "))
		b.WriteString(tuneBackStyle.Render(string(symbolBack)) + tuneDimStyle.Render(" back  "))
		b.WriteString(tuneDimStyle.Render(m.Command()))
	}
	b.WriteString("\n")
	return b.String()
}

// renderPageMap draws the page as width characters across, marking each
// cell with the symbol of its slot. Terminal cells are about twice as tall
// as wide, so the map uses half as many lines as the aspect ratio suggests.
func renderPageMap(page grid.PageSize, plan pipeline.PagePlan, width int) []string {
	height := max(1, int(math.Round(float64(width)*page.Height/page.Width/2)))
	canvas := make([][]rune, height)
	for y := range canvas {
		canvas[y] = []rune(strings.Repeat(string(symbolPage), width))
	}

	sx := float64(width) / page.Width
	sy := float64(height) / page.Height
	for i, cell := range plan.Cells {
		symbol := symbolFront
		if i < len(plan.Placements) && plan.Placements[i].Slot == assign.Back {
			symbol = symbolBack
		}
		r := preview.ToDisplay(cell, page, 1)
		x0, x1 := span(r.X*sx, (r.X+r.W)*sx, width)
		y0, y1 := span(r.Y*sy, (r.Y+r.H)*sy, height)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				canvas[y][x] = symbol
			}
		}
	}

	lines := make([]string, height)
	for y, row := range canvas {
		var line strings.Builder
		for _, r := range row {
			switch r {
			case symbolFront:
				line.WriteString(tuneFrontStyle.Render(string(r)))
			case symbolBack:
				line.WriteString(tuneBackStyle.Render(string(r)))
			default:
				line.WriteString(tuneDimStyle.Render(string(r)))
			}
		}
		lines[y] = line.String()
	}
	return lines
}

// span rounds a continuous interval to character positions in [0, limit),
// keeping at least one character.
func span(lo, hi float64, limit int) (int, int) {
	a := min(limit-1, max(0, int(math.Round(lo))))
	b := min(limit, max(a+1, int(math.Round(hi))))
	return a, b
}

// tuneCommand creates the tune command.
func (c *CLI) tuneCommand() *cobra.Command {
	var (
		flags layoutFlags
		page  int
	)

	cmd := &cobra.Command{
		Use:   "tune <file.pdf>",
		Short: "Adjust the grid interactively",
		Long: `Tune shows a map of one page with the card grid on it. Change rows, columns,
margins and layout with the arrow keys; enter prints the matching crop command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			doc, err := document.OpenFile(args[0])
			if err != nil {
				return err
			}
			if page < 1 || page > doc.PageCount() {
				return cerrors.New(cerrors.ErrCodeInvalidInput, "page %d out of range (document has %d pages)", page, doc.PageCount())
			}
			size, err := doc.PageSize(page - 1)
			if err != nil {
				return err
			}

			p := tea.NewProgram(NewTuneModel(args[0], size, opts), tea.WithContext(cmd.Context()))
			finalModel, err := p.Run()
			if err != nil {
				return err
			}

			fm, ok := finalModel.(TuneModel)
			if !ok || !fm.Confirmed {
				printDetail("No settings chosen")
				return nil
			}
			printSuccess("Grid tuned")
			printNextStep("Crop with", fm.Command())
			return nil
		},
	}

	flags.register(cmd.Flags(), true)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to tune against (1-based)")

	return cmd
}

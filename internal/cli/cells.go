package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cardcrop/pkg/assign"
	"github.com/matzehuels/cardcrop/pkg/document"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/grid"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
)

// cellsReport is the JSON form of the cells command.
type cellsReport struct {
	Page       int                `json:"page"`
	Size       grid.PageSize      `json:"size"`
	Cells      []grid.Cell        `json:"cells"`
	Mode       string             `json:"mode,omitempty"`
	Placements []assign.Placement `json:"placements,omitempty"`
}

// cellsCommand creates the cells command.
func (c *CLI) cellsCommand() *cobra.Command {
	var (
		flags  layoutFlags
		page   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "cells <file.pdf>",
		Short: "Print the card rectangles of a page",
		Long: `Cells prints the grid cells of one page in PDF points (origin bottom-left).
With a layout mode the table also shows which slot each card goes to and the
rectangle that will be cropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			report, err := buildCellsReport(args[0], opts, page)
			if err != nil {
				return err
			}
			if asJSON {
				return writeCellsJSON(stdout, report)
			}
			fmt.Fprintln(stdout, renderCellsTable(report))
			return nil
		},
	}

	flags.register(cmd.Flags(), true)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to inspect (1-based)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

// buildCellsReport computes the cells of page. When opts carries a layout
// mode the placements are included, with the page's run index taken from
// the starting page.
func buildCellsReport(path string, opts pipeline.Options, page int) (*cellsReport, error) {
	doc, err := document.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > doc.PageCount() {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "page %d out of range (document has %d pages)", page, doc.PageCount())
	}
	size, err := doc.PageSize(page - 1)
	if err != nil {
		return nil, err
	}

	report := &cellsReport{Page: page, Size: size}
	if !opts.HasMode() {
		if err := opts.ValidateForGrid(); err != nil {
			return nil, err
		}
		report.Cells, err = grid.Compute(size, opts.Grid())
		return report, err
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	runIndex := page - opts.StartingPage
	if runIndex < 0 {
		return nil, cerrors.New(cerrors.ErrCodeInvalidInput, "page %d is before the starting page %d", page, opts.StartingPage)
	}
	plan, err := pipeline.PlanPage(size, opts, page-1, runIndex)
	if err != nil {
		return nil, err
	}
	report.Cells = plan.Cells
	report.Placements = plan.Placements
	report.Mode = opts.Mode().String()
	return report, nil
}

func writeCellsJSON(w io.Writer, report *cellsReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// renderCellsTable draws the report as a lipgloss table.
func renderCellsTable(report *cellsReport) string {
	headers := []string{"Row", "Col", "X0", "Y0", "Width", "Height"}
	withPlacements := len(report.Placements) > 0
	if withPlacements {
		headers = append(headers, "Slot", "Crop X0", "Crop Y0")
	}

	rows := make([][]string, 0, len(report.Cells))
	for i, cell := range report.Cells {
		row := []string{
			strconv.Itoa(cell.Row),
			strconv.Itoa(cell.Col),
			pt(cell.X0), pt(cell.Y0), pt(cell.Width), pt(cell.Height),
		}
		if withPlacements && i < len(report.Placements) {
			p := report.Placements[i]
			row = append(row, p.Slot.String(), pt(p.Crop.X0), pt(p.Crop.Y0))
		}
		rows = append(rows, row)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col < 2:
				return StyleNumber
			case col == 6 && row < len(rows) && len(rows[row]) > col:
				if rows[row][col] == assign.Back.String() {
					return StyleWarning
				}
				return StyleSuccess
			}
			return StyleValue
		})

	title := fmt.Sprintf("Page %d  %s x %s pt", report.Page, pt(report.Size.Width), pt(report.Size.Height))
	if report.Mode != "" {
		title += "  " + report.Mode
	}
	return StyleTitle.Render(title) + "\n" + t.Render()
}

func pt(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

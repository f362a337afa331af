package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives all human-facing command output. Logs go to stderr.
var stdout io.Writer = os.Stdout

// ANSI 256 palette.
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Styles shared by the commands and the tuner.
var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleMuted       = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
)

// marker is the leading symbol of a status line.
type marker struct {
	icon  string
	style lipgloss.Style
}

var (
	markDone = marker{"✓", StyleSuccess}
	markWarn = marker{"!", StyleWarning}
	markNote = marker{"›", styleMuted}
)

func (m marker) print(body string) {
	fmt.Fprintln(stdout, m.style.Render(m.icon)+" "+body)
}

func printSuccess(format string, args ...any) {
	markDone.print(fmt.Sprintf(format, args...))
}

// printWarning prints a skipped card or another non-fatal problem.
func printWarning(format string, args ...any) {
	markWarn.print(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	markNote.print(fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile lists a written artifact.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

// printStats summarizes a run, e.g. "2 pages · 18 cards · cached".
// Zero counts are left out.
func printStats(pages, cards int, cached bool) {
	var parts []string
	if pages > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d pages", pages)))
	}
	if cards > 0 {
		parts = append(parts, StyleDim.Render(fmt.Sprintf("%d cards", cards)))
	}
	if cached {
		parts = append(parts, StyleSuccess.Render("cached"))
	} else {
		parts = append(parts, styleMuted.Render("fresh"))
	}
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

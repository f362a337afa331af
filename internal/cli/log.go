// Package cli implements the cardcrop command-line interface.
//
// The commands cut print-and-play card sheets into one card per page, draw
// the grid over a page for checking margins, and serve the same pipeline
// over HTTP. The CLI is built using cobra and logs through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - crop: Write the cards of a PDF to cropped_cards.pdf or front/back PDFs
//   - preview: Render the grid overlay and zoom lens of one page to PNG or SVG
//   - cells: Print the card rectangles of a page as a table or JSON
//   - tune: Adjust the grid interactively and print the matching crop command
//   - serve: Start the HTTP API
//   - cache: Manage the crop and preview cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created,
// e.g. "Wrote 2 files (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Debugf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureStdout redirects command output for the duration of fn.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	fn()
	return buf.String()
}

func TestPrintStats(t *testing.T) {
	tests := []struct {
		name         string
		pages, cards int
		cached       bool
		want, absent []string
	}{
		{"fresh crop", 2, 18, false, []string{"2 pages", "18 cards", "fresh"}, []string{"cached"}},
		{"cached preview", 0, 0, true, []string{"cached"}, []string{"pages", "cards"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureStdout(t, func() { printStats(tt.pages, tt.cards, tt.cached) })
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestPrintWarningAndFile(t *testing.T) {
	out := captureStdout(t, func() {
		printWarning("page %d slot %d is empty", 3, 4)
		printFile("out/front_cards.pdf")
	})
	assert.Contains(t, out, "page 3 slot 4 is empty")
	assert.Contains(t, out, "out/front_cards.pdf")
}

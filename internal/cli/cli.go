package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cardcrop/pkg/buildinfo"
	"github.com/matzehuels/cardcrop/pkg/cache"
	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
)

const appName = "cardcrop"

// Log levels for main's --verbose handling.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI carries the logger shared by all commands. Each command builds its
// own runner so --no-cache stays per invocation.
type CLI struct {
	Logger *log.Logger
}

// New returns a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

func (c *CLI) SetLogLevel(level log.Level) { c.Logger.SetLevel(level) }

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Cardcrop cuts printable card sheets into one card per page",
		Long: `Cardcrop lays a grid over every page of a print-and-play PDF and writes each
card to its own page, sorted into fronts and backs for duplex or folded sheets.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.AddCommand(
		c.cropCommand(),
		c.previewCommand(),
		c.cellsCommand(),
		c.tuneCommand(),
		c.serveCommand(),
		c.cacheCommand(),
		c.completionCommand(),
	)
	return root
}

// newRunner returns a runner backed by the local file cache, or by no
// cache at all when noCache is set.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
}

// newCache falls back to no caching when there is no home directory.
func newCache(noCache bool) (cache.Cache, error) {
	dir, err := cacheDir()
	if noCache || err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir is $XDG_CACHE_HOME/cardcrop, defaulting to ~/.cache/cardcrop.
func cacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, appName), nil
}

// readInput reads the source PDF named on the command line.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, cerrors.Wrap(cerrors.ErrCodeFileNotFound, err, "input %s", path)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "read %s", path)
	}
	return data, nil
}

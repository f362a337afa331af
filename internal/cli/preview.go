package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
	"github.com/matzehuels/cardcrop/pkg/preview"
)

// previewOpts holds the preview-only flags.
type previewOpts struct {
	page         int
	canvasWidth  int
	canvasHeight int
	lensX        float64
	lensY        float64
	format       string
	raster       bool
	pdftoppm     string
	outputDir    string
	noCache      bool
}

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		flags layoutFlags
		po    previewOpts
	)

	cmd := &cobra.Command{
		Use:   "preview <file.pdf>",
		Short: "Draw the grid over one page",
		Long: `Preview writes preview.png (or preview.svg) with the card grid drawn over the
page and zoom.png with the area under the zoom lens magnified. Use it to tune
margins before running crop.`,
		Example: `  cardcrop preview deck.pdf --rows 3 --columns 3 --top-margin 18
  cardcrop preview deck.pdf --page 2 --raster --lens-x 40 --lens-y 40`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			if err := cerrors.ValidateOutputDir(po.outputDir); err != nil {
				return err
			}
			return c.runPreview(cmd, args[0], pipeline.PreviewOptions{
				Options:      opts,
				Page:         po.page,
				CanvasWidth:  po.canvasWidth,
				CanvasHeight: po.canvasHeight,
				LensX:        po.lensX,
				LensY:        po.lensY,
				Format:       po.format,
				Raster:       po.raster,
			}, po)
		},
	}

	flags.register(cmd.Flags(), false)
	cmd.Flags().IntVarP(&po.page, "page", "p", pipeline.DefaultPreviewPage, "page to preview (1-based)")
	cmd.Flags().IntVar(&po.canvasWidth, "canvas-width", preview.DefaultCanvasWidth, "maximum preview width in pixels")
	cmd.Flags().IntVar(&po.canvasHeight, "canvas-height", preview.DefaultCanvasHeight, "maximum preview height in pixels")
	cmd.Flags().Float64Var(&po.lensX, "lens-x", 0, "zoom lens left edge in pixels")
	cmd.Flags().Float64Var(&po.lensY, "lens-y", 0, "zoom lens top edge in pixels")
	cmd.Flags().StringVarP(&po.format, "format", "f", pipeline.FormatPNG, "overlay format: png, svg")
	cmd.Flags().BoolVar(&po.raster, "raster", false, "draw the page under the grid (needs pdftoppm)")
	cmd.Flags().StringVar(&po.pdftoppm, "pdftoppm", "", "path to the pdftoppm binary")
	cmd.Flags().StringVarP(&po.outputDir, "output-dir", "o", ".", "directory for the preview images")
	cmd.Flags().BoolVar(&po.noCache, "no-cache", false, "disable the preview cache")

	return cmd
}

func (c *CLI) runPreview(cmd *cobra.Command, path string, opts pipeline.PreviewOptions, po previewOpts) error {
	ctx := cmd.Context()

	input, err := readInput(path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(po.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	if po.pdftoppm != "" {
		runner.Rasterizer = preview.Poppler{Binary: po.pdftoppm}
	}

	if err := os.MkdirAll(po.outputDir, 0o755); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeInvalidPath, err, "create %s", po.outputDir)
	}

	spinner := newSpinnerWithContext(ctx, "Drawing grid overlay...")
	spinner.Start()
	defer spinner.Stop()

	var written []string
	overlay, cached, err := runner.PreviewWithCacheInfo(ctx, input, opts)
	if err != nil {
		return err
	}
	out := filepath.Join(po.outputDir, "preview."+opts.Format)
	if err := os.WriteFile(out, overlay, 0o644); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeSink, err, "write %s", out)
	}
	written = append(written, out)

	spinner.SetMessage("Drawing zoom lens...")
	zoomOpts := opts
	zoomOpts.Format = pipeline.FormatPNG
	zoomOpts.Zoom = true
	zoom, hit, err := runner.PreviewWithCacheInfo(ctx, input, zoomOpts)
	if err != nil {
		return err
	}
	cached = cached && hit
	out = filepath.Join(po.outputDir, "zoom.png")
	if err := os.WriteFile(out, zoom, 0o644); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeSink, err, "write %s", out)
	}
	written = append(written, out)
	spinner.Stop()

	printSuccess("Previewed page %d of %s", opts.Page, path)
	printStats(0, 0, cached)
	for _, p := range written {
		printFile(p)
	}
	printNextStep("Crop with these settings", "cardcrop crop "+path+" "+opts.Options.Describe())
	return nil
}

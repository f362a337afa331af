package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
)

// cropCommand creates the crop command.
func (c *CLI) cropCommand() *cobra.Command {
	var (
		flags     layoutFlags
		outputDir string
		noCache   bool
		refresh   bool
	)

	cmd := &cobra.Command{
		Use:   "crop <file.pdf>",
		Short: "Cut every card of a PDF onto its own page",
		Long: `Crop lays the grid over each page from --starting-page on and writes one page
per card. Single-sided runs produce cropped_cards.pdf; every other layout
produces front_cards.pdf and back_cards.pdf.`,
		Example: `  cardcrop crop deck.pdf --rows 3 --columns 3 --no-back
  cardcrop crop deck.pdf --duplex --top-margin 18 --bottom-margin 18
  cardcrop crop deck.pdf --preset sheet.toml --output-dir out/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd)
			if err != nil {
				return err
			}
			opts.Refresh = refresh
			if err := cerrors.ValidateOutputDir(outputDir); err != nil {
				return err
			}
			return c.runCrop(cmd, args[0], opts, outputDir, noCache)
		},
	}

	flags.register(cmd.Flags(), true)
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "directory for the output PDFs")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the crop cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute even if a cached result exists")

	return cmd
}

func (c *CLI) runCrop(cmd *cobra.Command, path string, opts pipeline.Options, outputDir string, noCache bool) error {
	ctx := cmd.Context()

	input, err := readInput(path)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Cropping %s...", path))
	spinner.Start()
	result, err := runner.Crop(ctx, input, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	paths, err := result.Output.WriteDir(outputDir)
	if err != nil {
		return cerrors.Wrap(cerrors.ErrCodeSink, err, "write output")
	}
	prog.done(fmt.Sprintf("Wrote %d files", len(paths)))

	cards := 0
	for _, a := range result.Output.Artifacts {
		cards += a.Pages
	}
	printSuccess("Cropped %d cards (%s)", cards, result.Output.Mode)
	printStats(result.Stats.Pages, cards, result.CacheInfo.CropHit)
	for _, p := range paths {
		printFile(p)
	}
	for _, name := range result.Output.Missing() {
		printWarning("No cards for %s; nothing written", name)
	}
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cardcrop/pkg/cache"
)

// cacheCommand groups the local cache subcommands. The server manages its
// own backend and is not affected by them.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local crop and preview cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "clear",
			Short: "Remove all cached crops and previews",
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return clearCache() },
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show the cache directory and its size",
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return cacheInfo() },
		},
	)
	return cmd
}

// openCacheDir opens the local file cache, or returns nil if nothing has
// been cached yet.
func openCacheDir() (*cache.FileCache, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, fmt.Errorf("locate cache: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return cache.NewFileCache(dir)
}

func clearCache() error {
	fc, err := openCacheDir()
	if err != nil || fc == nil {
		if err == nil {
			printInfo("Cache is empty")
		}
		return err
	}
	n, err := fc.Clear()
	if err != nil {
		return err
	}
	printSuccess("Cleared %d cached entries", n)
	printDetail("Directory: %s", fc.Dir())
	return nil
}

func cacheInfo() error {
	fc, err := openCacheDir()
	if err != nil {
		return err
	}
	if fc == nil {
		dir, _ := cacheDir()
		fmt.Fprintln(stdout, dir)
		printDetail("not created yet")
		return nil
	}
	entries, size, err := fc.Usage()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, fc.Dir())
	printDetail("%d entries · %s", entries, byteSize(size))
	return nil
}

// byteSize formats n with a binary unit, e.g. "1.5 MiB".
func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

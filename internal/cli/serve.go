package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cardcrop/pkg/pipeline"
	"github.com/matzehuels/cardcrop/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve starts the HTTP API. Settings come from the environment (and a .env
file if present): CARDCROP_ADDR, CARDCROP_CACHE (file, redis, s3),
CARDCROP_CACHE_DIR, REDIS_URL, S3_BUCKET and friends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg := server.LoadConfig(c.Logger)
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			store, err := cfg.OpenCache(ctx)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(store, cfg.Keyer(), c.Logger)
			defer runner.Close()

			printInfo("Serving on %s", StyleLink.Render("http://"+displayAddr(cfg.Addr)))
			printDetail("Cache: %s", cfg.Cache)
			return server.New(runner, cfg, c.Logger).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides CARDCROP_ADDR)")

	return cmd
}

// displayAddr turns a listen address like ":8080" into a browsable host.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

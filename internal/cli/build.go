package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	flagBuildDir string
	flagNoGzip   bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Export the website as static pages",
	Long:  "Render every page into a directory, with a gzipped copy of each page unless --no-gzip is set.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, owner, repo, ok := loadConfig()
		if !ok {
			return nil
		}
		srv, ok := newSite(cfg, owner, repo)
		if !ok {
			return nil
		}

		results, err := srv.Export(ctx, flagBuildDir, !flagNoGzip)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		for _, r := range results {
			if r.Compressed > 0 {
				fmt.Fprintf(os.Stdout, "%s  %s (%s gzipped, %d%% of original)\n",
					r.Path, humanize.Bytes(uint64(r.Size)), humanize.Bytes(uint64(r.Compressed)), r.Compressed*100/max(r.Size, 1))
				continue
			}
			fmt.Fprintf(os.Stdout, "%s  %s\n", r.Path, humanize.Bytes(uint64(r.Size)))
		}
		fmt.Fprintln(os.Stdout, "Build completed.")
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&flagBuildDir, "dir", "dist", "Output directory")
	buildCmd.Flags().BoolVar(&flagNoGzip, "no-gzip", false, "Skip writing .gz copies")
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/compsite/internal/github"
	"github.com/dshills/compsite/internal/markdown"
	"github.com/dshills/compsite/internal/output"
)

var flagReleasesRepo string

var readmeCmd = &cobra.Command{
	Use:   "readme",
	Short: "Fetch and render the program README",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDocument(cmd.Context(), "README", "README.md")
		return nil
	},
}

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Fetch and render the program changelog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDocument(cmd.Context(), "Changelog", "changelog.md")
		return nil
	},
}

func runDocument(ctx context.Context, title, path string) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, owner, repo, ok := loadConfig()
	if !ok {
		return
	}
	_, client := newContentClient(cfg)

	src, err := client.RawFile(ctx, owner, repo, cfg.Branch, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}

	doc := output.Document{
		Title:    title,
		Source:   fmt.Sprintf("%s/%s@%s/%s", owner, repo, cfg.Branch, path),
		Markdown: src,
		HTML:     string(markdown.Render([]byte(src), client.RawBase(owner, repo, cfg.Branch))),
	}
	if err := output.WriteDocument(doc, cfg.Format, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
	}
}

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List published releases",
	Long:  "List the newest releases of the program repository, or of another repository of the same owner with --name.",
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
		if flagReleasesRepo != "" {
			if _, repo, ok = parseSibling(owner, flagReleasesRepo); !ok {
				return nil
			}
		}
		_, client := newContentClient(cfg)

		releases, err := client.Releases(ctx, owner, repo, cfg.ReleasesPerPage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if err := output.WriteReleases(releases, cfg.Format, flagOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func parseSibling(owner, name string) (string, string, bool) {
	o, r, err := github.ParseRepo(owner + "/" + name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return "", "", false
	}
	return o, r, true
}

func init() {
	releasesCmd.Flags().StringVar(&flagReleasesRepo, "name", "", "Repository name under the same owner")
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/compsite/internal/config"
	"github.com/dshills/compsite/internal/github"
	"github.com/dshills/compsite/internal/logging"
	"github.com/dshills/compsite/internal/site"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the website",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Init("info")

		cfg, owner, repo, ok := loadConfig()
		if !ok {
			return nil
		}
		if flagAddr != "" {
			cfg.Addr = flagAddr
		}

		srv, ok := newSite(cfg, owner, repo)
		if !ok {
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

// newSite builds the site server over a fresh cache.
func newSite(cfg config.Config, owner, repo string) (*site.Server, bool) {
	sdkOwner, sdkRepo, err := github.ParseRepo(cfg.SDKRepo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return nil, false
	}

	c, client := newContentClient(cfg)
	srv, err := site.New(c, client, site.Options{
		Owner:           owner,
		Repo:            repo,
		Branch:          cfg.Branch,
		SDKOwner:        sdkOwner,
		SDKRepo:         sdkRepo,
		ReleasesPerPage: cfg.ReleasesPerPage,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitRuntimeError
		return nil, false
	}
	return srv, true
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default from config)")
}

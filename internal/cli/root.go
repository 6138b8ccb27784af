package cli

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/compsite/internal/cache"
	"github.com/dshills/compsite/internal/config"
	"github.com/dshills/compsite/internal/github"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// Global flags
var (
	flagRepo    string
	flagBranch  string
	flagAPIURL  string
	flagRawURL  string
	flagFormat  string
	flagOut     string
	flagTimeout int
)

var rootCmd = &cobra.Command{
	Use:   "compsite",
	Short: "Comp-V5 website server and content tool",
	Long: "compsite serves the Comp-V5 website, exports it as static pages, " +
		"and fetches READMEs, changelogs, releases and robot config blocks from the command line.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(readmeCmd)
	rootCmd.AddCommand(changelogCmd)
	rootCmd.AddCommand(releasesCmd)
	rootCmd.AddCommand(robotConfigCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print compsite version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "compsite version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagRepo, "repo", "", "Program repository (owner/repo)")
	pf.StringVar(&flagBranch, "branch", "", "Branch READMEs and changelogs are read from")
	pf.StringVar(&flagAPIURL, "api-url", "", "GitHub API base URL")
	pf.StringVar(&flagRawURL, "raw-url", "", "Raw-content base URL")
	pf.StringVar(&flagFormat, "format", "", "Output format (text, json, html)")
	pf.StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	pf.IntVar(&flagTimeout, "timeout", 0, "HTTP timeout in seconds")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagRepo != "" {
		m["repo"] = flagRepo
	}
	if flagBranch != "" {
		m["branch"] = flagBranch
	}
	if flagAPIURL != "" {
		m["apiUrl"] = flagAPIURL
	}
	if flagRawURL != "" {
		m["rawUrl"] = flagRawURL
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagTimeout > 0 {
		m["timeoutSeconds"] = strconv.Itoa(flagTimeout)
	}
	return m
}

// newContentClient builds the cache and the GitHub client every command
// fetches through.
func newContentClient(cfg config.Config) (*cache.Cache, *github.Client) {
	httpClient := &http.Client{Timeout: cfg.Timeout()}
	c := cache.New(httpClient,
		cache.WithHeader("User-Agent", cfg.UserAgent),
		cache.WithHeader("Accept", "application/vnd.github+json"),
	)
	return c, github.NewClient(c, cfg.APIURL, cfg.RawURL)
}

// loadConfig loads the effective configuration and splits the program
// repository. On failure it reports the error and sets the exit code.
func loadConfig() (config.Config, string, string, bool) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return cfg, "", "", false
	}
	owner, repo, err := github.ParseRepo(cfg.Repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = ExitUsageError
		return cfg, "", "", false
	}
	return cfg, owner, repo, true
}

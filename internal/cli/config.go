package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/compsite/internal/config"
	"github.com/dshills/compsite/internal/github"
	"github.com/dshills/compsite/internal/output"
)

var flagInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the site's repositories, endpoints and defaults",
	Long: "Settings live in $XDG_CONFIG_HOME/compsite/config.json. " +
		"COMPSITE_* environment variables and command-line flags override the file.",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file pointing at the Comp-V5 and Vex-SDK repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil && !flagInitForce {
			fmt.Fprintf(os.Stderr, "%s already exists; use --force to reset it\n", path)
			return nil
		}

		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting in the config file",
	Long: "Keys: addr, repo, branch, sdkRepo, apiUrl, rawUrl, userAgent, " +
		"timeoutSeconds, releasesPerPage, format.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := checkSetting(key, value); err != nil {
			return err
		}

		cfg, err := config.LoadFile()
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		// No file yet: unset keys start from the defaults, not from zero.
		if cfg == (config.Config{}) {
			cfg = config.Default()
		}
		if err := config.SetField(&cfg, key, value); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Fprintf(os.Stdout, "%s = %s\n", key, value)
		return nil
	},
}

// checkSetting rejects values the site could not start with.
func checkSetting(key, value string) error {
	switch key {
	case "repo", "sdkRepo":
		if _, _, err := github.ParseRepo(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case "format":
		if _, err := output.GetWriter(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings after env and flag overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		if cfg.Format == "json" {
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			return writeOut(string(data) + "\n")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "addr\t%s\n", cfg.Addr)
		fmt.Fprintf(tw, "repo\t%s@%s\n", cfg.Repo, cfg.Branch)
		fmt.Fprintf(tw, "sdkRepo\t%s\n", cfg.SDKRepo)
		fmt.Fprintf(tw, "apiUrl\t%s\n", orDefault(cfg.APIURL, "https://api.github.com"))
		fmt.Fprintf(tw, "rawUrl\t%s\n", orDefault(cfg.RawURL, "https://raw.githubusercontent.com"))
		fmt.Fprintf(tw, "userAgent\t%s\n", cfg.UserAgent)
		fmt.Fprintf(tw, "timeout\t%s\n", cfg.Timeout())
		fmt.Fprintf(tw, "releasesPerPage\t%d\n", cfg.ReleasesPerPage)
		fmt.Fprintf(tw, "format\t%s\n", cfg.Format)
		return tw.Flush()
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	configInitCmd.Flags().BoolVar(&flagInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}

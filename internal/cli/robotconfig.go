package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/dshills/compsite/internal/robotcfg"
)

var (
	flagFields     []string
	flagCfgVersion string
	flagCopy       bool
	flagValidate   bool
)

var robotConfigCmd = &cobra.Command{
	Use:   "robot-config",
	Short: "Generate and check robot configuration blocks",
}

var robotConfigGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a config block from form fields",
	Long: "Generate a config block the way the config page does. Fields use the form names, e.g.\n" +
		"  --field front_left_port=1 --field front_left_reversed=on --field rear_bumper_port=A\n" +
		"VERSION is the latest release tag unless --version is given.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		form, err := parseFields(flagFields)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		tag, ok := configVersion(cmd.Context())
		if !ok {
			return nil
		}
		cfg := robotcfg.FromForm(form, tag)
		if flagValidate {
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid config:\n%v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
		}
		emitBlock(cfg)
		return nil
	},
}

var robotConfigDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the factory config block",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, ok := configVersion(cmd.Context())
		if !ok {
			return nil
		}
		emitBlock(robotcfg.Default(tag))
		return nil
	},
}

var robotConfigParseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse and validate a config block (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Only the key=value block is pasteable into the robot's config file.
		if flagCopy && flagFormat == "json" {
			fmt.Fprintln(os.Stderr, "Error: --copy copies the config block and cannot be used with --format json")
			exitCode = ExitUsageError
			return nil
		}

		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitUsageError
				return nil
			}
			defer f.Close()
			r = f
		}

		cfg, err := robotcfg.Parse(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid config:\n%v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if flagFormat == "json" {
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			return writeOut(string(data) + "\n")
		}
		emitBlock(cfg)
		return nil
	},
}

// parseFields turns name=value pairs into form values. A bare name is a
// checked checkbox.
func parseFields(fields []string) (url.Values, error) {
	form := make(url.Values)
	for _, f := range fields {
		name, value, _ := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid field %q, want name=value", f)
		}
		form.Add(name, value)
	}
	return form, nil
}

// configVersion returns --version, or the latest release tag of the
// program repository.
func configVersion(ctx context.Context) (string, bool) {
	if flagCfgVersion != "" {
		return flagCfgVersion, true
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, owner, repo, ok := loadConfig()
	if !ok {
		return "", false
	}
	_, client := newContentClient(cfg)
	tag, err := client.LatestTag(ctx, owner, repo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nUse --version to set VERSION manually.\n", err)
		exitCode = ExitRuntimeError
		return "", false
	}
	return tag, true
}

func emitBlock(cfg robotcfg.Config) {
	block := cfg.String()
	if err := writeOut(block + "\n"); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if flagCopy {
		if err := clipboard.WriteAll(block); err != nil {
			fmt.Fprintf(os.Stderr, "Error copying to clipboard: %v\n", err)
			exitCode = ExitRuntimeError
			return
		}
		fmt.Fprintln(os.Stderr, "Config copied to clipboard.")
	}
}

// writeOut writes s to --out, or stdout.
func writeOut(s string) error {
	if flagOut == "" {
		_, err := io.WriteString(os.Stdout, s)
		return err
	}
	return os.WriteFile(flagOut, []byte(s), 0o644)
}

func init() {
	robotConfigGenerateCmd.Flags().StringArrayVar(&flagFields, "field", nil, "Form field as name=value (repeatable)")
	robotConfigGenerateCmd.Flags().BoolVar(&flagValidate, "validate", false, "Reject values the robot would not accept")

	for _, cmd := range []*cobra.Command{robotConfigGenerateCmd, robotConfigDefaultCmd} {
		cmd.Flags().StringVar(&flagCfgVersion, "version", "", "VERSION value (default: latest release tag)")
		cmd.Flags().BoolVar(&flagCopy, "copy", false, "Also copy the block to the clipboard")
	}
	robotConfigParseCmd.Flags().BoolVar(&flagCopy, "copy", false, "Also copy the normalised block to the clipboard")

	robotConfigCmd.AddCommand(robotConfigGenerateCmd)
	robotConfigCmd.AddCommand(robotConfigDefaultCmd)
	robotConfigCmd.AddCommand(robotConfigParseCmd)
}

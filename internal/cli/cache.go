package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/compsite/internal/cache"
)

var flagServer string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the cache of a running server",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(serverURL("/api/cache"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: server returned %s\n", resp.Status)
			exitCode = ExitRuntimeError
			return nil
		}

		var stats cache.Stats
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error: reading cache stats: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if flagFormat == "json" {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			return writeOut(string(data) + "\n")
		}
		return writeOut(fmt.Sprintf("Entries:  %s\nHits:     %s\nMisses:   %s\nFetches:  %s\nFailures: %s\n",
			humanize.Comma(int64(stats.Entries)), humanize.Comma(stats.Hits), humanize.Comma(stats.Misses),
			humanize.Comma(stats.Fetches), humanize.Comma(stats.Failures)))
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the server cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{
			Timeout: 10 * time.Second,
			// The redirect back to the home page would refill the cache.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		resp, err := client.Post(serverURL("/clear-site-data"), "", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			fmt.Fprintf(os.Stderr, "Error: server returned %s\n", resp.Status)
			exitCode = ExitRuntimeError
			return nil
		}
		fmt.Fprintln(os.Stdout, "Cache cleared.")
		return nil
	},
}

func serverURL(path string) string {
	return strings.TrimRight(flagServer, "/") + path
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "Base URL of the running server")
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
}

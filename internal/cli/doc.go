// Package cli wires together the Cobra command tree for the compsite binary.
//
// It defines the root command and all subcommands (serve, readme,
// changelog, releases, robot-config, build, cache, config, version), reads
// configuration, builds the shared cache and content client, and returns
// deterministic exit codes.
package cli

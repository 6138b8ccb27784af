// Package config loads and merges compsite configuration from multiple
// sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (COMPSITE_ADDR, COMPSITE_REPO, COMPSITE_BRANCH, etc.)
//  3. Config file ($XDG_CONFIG_HOME/compsite/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write a config file,
// and [SetField] to update a single key.
package config

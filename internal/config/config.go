package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the compsite configuration.
type Config struct {
	Addr            string `json:"addr"`
	Repo            string `json:"repo"`
	Branch          string `json:"branch"`
	SDKRepo         string `json:"sdkRepo"`
	APIURL          string `json:"apiUrl,omitempty"`
	RawURL          string `json:"rawUrl,omitempty"`
	UserAgent       string `json:"userAgent"`
	TimeoutSeconds  int    `json:"timeoutSeconds"`
	ReleasesPerPage int    `json:"releasesPerPage"`
	Format          string `json:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Addr:            ":8080",
		Repo:            "RanchoDVT/Comp-V5",
		Branch:          "dev",
		SDKRepo:         "RanchoDVT/Vex-SDK",
		UserAgent:       "compsite",
		TimeoutSeconds:  30,
		ReleasesPerPage: 10,
		Format:          "text",
	}
}

// Timeout returns the HTTP client timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConfigDir returns the platform-appropriate config directory for compsite.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "compsite"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "compsite"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "compsite"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "compsite"), nil
	default:
		return filepath.Join(home, ".config", "compsite"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	merge(&cfg, fileCfg)
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// merge copies every non-zero field of src into dst.
func merge(dst *Config, src Config) {
	if src.Addr != "" {
		dst.Addr = src.Addr
	}
	if src.Repo != "" {
		dst.Repo = src.Repo
	}
	if src.Branch != "" {
		dst.Branch = src.Branch
	}
	if src.SDKRepo != "" {
		dst.SDKRepo = src.SDKRepo
	}
	if src.APIURL != "" {
		dst.APIURL = src.APIURL
	}
	if src.RawURL != "" {
		dst.RawURL = src.RawURL
	}
	if src.UserAgent != "" {
		dst.UserAgent = src.UserAgent
	}
	if src.TimeoutSeconds > 0 {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	if src.ReleasesPerPage > 0 {
		dst.ReleasesPerPage = src.ReleasesPerPage
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
}

// envConfig mirrors Config for environment variables.
type envConfig struct {
	Addr            string `env:"COMPSITE_ADDR"`
	Repo            string `env:"COMPSITE_REPO"`
	Branch          string `env:"COMPSITE_BRANCH"`
	SDKRepo         string `env:"COMPSITE_SDK_REPO"`
	APIURL          string `env:"COMPSITE_API_URL"`
	RawURL          string `env:"COMPSITE_RAW_URL"`
	UserAgent       string `env:"COMPSITE_USER_AGENT"`
	TimeoutSeconds  int    `env:"COMPSITE_TIMEOUT_SECONDS"`
	ReleasesPerPage int    `env:"COMPSITE_RELEASES_PER_PAGE"`
	Format          string `env:"COMPSITE_FORMAT"`
}

func mergeEnv(cfg *Config) error {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	merge(cfg, Config(e))
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := SetField(cfg, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "addr":
		cfg.Addr = value
	case "repo":
		cfg.Repo = value
	case "branch":
		cfg.Branch = value
	case "sdkRepo":
		cfg.SDKRepo = value
	case "apiUrl":
		cfg.APIURL = value
	case "rawUrl":
		cfg.RawURL = value
	case "userAgent":
		cfg.UserAgent = value
	case "timeoutSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("timeoutSeconds must be an integer: %w", err)
		}
		cfg.TimeoutSeconds = n
	case "releasesPerPage":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("releasesPerPage must be an integer: %w", err)
		}
		cfg.ReleasesPerPage = n
	case "format":
		cfg.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

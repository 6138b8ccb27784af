package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/compsite/internal/config"
	"github.com/dshills/compsite/internal/output"
	"github.com/dshills/compsite/internal/robotcfg"
)

// resetFlags resets all package-level flag variables to their zero values.
func resetFlags() {
	flagRepo = ""
	flagBranch = ""
	flagAPIURL = ""
	flagRawURL = ""
	flagFormat = ""
	flagOut = ""
	flagTimeout = 0
	flagReleasesRepo = ""
	flagAddr = ""
	flagBuildDir = "dist"
	flagNoGzip = false
	flagFields = nil
	flagCfgVersion = ""
	flagCopy = false
	flagValidate = false
	flagServer = ""
	flagInitForce = false
}

// setup isolates the config file, resets flags and the exit code, and
// returns a path for --out.
func setup(t *testing.T) string {
	t.Helper()
	resetFlags()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	savedExitCode := exitCode
	t.Cleanup(func() { exitCode = savedExitCode })
	exitCode = ExitSuccess

	return filepath.Join(tmpDir, "out")
}

// fakeGitHub serves a small program repository.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	bodies := map[string]string{
		"/api/repos/o/prog/releases/latest": `{"tag_name":"v3.0.0"}`,
		"/api/repos/o/sdk/releases/latest":  `{"tag_name":"s1.0"}`,
		"/api/repos/o/prog/releases":        `[{"tag_name":"v3.0.0","name":"Three"},{"tag_name":"v2.0.0","name":"Two"}]`,
		"/api/repos/o/sdk/releases":         `[{"tag_name":"s1.0","name":"SDK one"}]`,
		"/api/users/o/repos":                `[{"name":"prog"},{"name":"sdk"}]`,
		"/raw/o/prog/dev/README.md":         "# Prog\n\n[docs](docs/index.md)\n",
		"/raw/o/prog/dev/changelog.md":      "## 3.0.0\n- faster\n",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	flagRepo = "o/prog"
	flagAPIURL = server.URL + "/api"
	flagRawURL = server.URL + "/raw"
	t.Setenv("COMPSITE_SDK_REPO", "o/sdk")
	return server
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cannot read %s: %v", path, err)
	}
	return string(data)
}

// --- buildOverrides tests ---

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	m := buildOverrides()
	if len(m) != 0 {
		t.Errorf("buildOverrides() with no flags = %v, want empty map", m)
	}
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	flagRepo = "a/b"
	flagBranch = "main"
	flagAPIURL = "http://api"
	flagRawURL = "http://raw"
	flagFormat = "json"
	flagTimeout = 9

	m := buildOverrides()

	expected := map[string]string{
		"repo":           "a/b",
		"branch":         "main",
		"apiUrl":         "http://api",
		"rawUrl":         "http://raw",
		"format":         "json",
		"timeoutSeconds": "9",
	}
	if len(m) != len(expected) {
		t.Fatalf("buildOverrides() returned %d entries, want %d", len(m), len(expected))
	}
	for k, v := range expected {
		if m[k] != v {
			t.Errorf("buildOverrides()[%q] = %q, want %q", k, m[k], v)
		}
	}
}

func TestBuildOverrides_AreValidConfigKeys(t *testing.T) {
	resetFlags()
	flagRepo = "a/b"
	flagBranch = "main"
	flagAPIURL = "http://api"
	flagRawURL = "http://raw"
	flagFormat = "json"
	flagTimeout = 9

	cfg := config.Default()
	for k, v := range buildOverrides() {
		if err := config.SetField(&cfg, k, v); err != nil {
			t.Errorf("override %q is not a config key: %v", k, err)
		}
	}
}

// --- content command tests ---

func TestReadmeCmd(t *testing.T) {
	out := setup(t)
	server := fakeGitHub(t)
	flagFormat = "json"
	flagOut = out

	readmeCmd.SetArgs([]string{})
	if err := readmeCmd.Execute(); err != nil {
		t.Fatalf("readme returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d, want %d", exitCode, ExitSuccess)
	}

	var doc output.Document
	if err := json.Unmarshal([]byte(readFile(t, out)), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.Source != "o/prog@dev/README.md" {
		t.Errorf("Source = %q", doc.Source)
	}
	wantLink := `href="` + server.URL + `/raw/o/prog/dev/docs/index.md"`
	if !strings.Contains(doc.HTML, wantLink) {
		t.Errorf("HTML = %q, want relative link resolved to %s", doc.HTML, wantLink)
	}
}

func TestChangelogCmd_Text(t *testing.T) {
	out := setup(t)
	fakeGitHub(t)
	flagOut = out

	changelogCmd.SetArgs([]string{})
	if err := changelogCmd.Execute(); err != nil {
		t.Fatalf("changelog returned error: %v", err)
	}
	got := readFile(t, out)
	if !strings.HasPrefix(got, "Changelog (o/prog@dev/changelog.md)\n") {
		t.Errorf("output = %q", got)
	}
	if !strings.Contains(got, "- faster") {
		t.Error("text output should contain the markdown")
	}
}

func TestReadmeCmd_Unavailable(t *testing.T) {
	out := setup(t)
	fakeGitHub(t)
	flagBranch = "missing"
	flagOut = out

	readmeCmd.SetArgs([]string{})
	if err := readmeCmd.Execute(); err != nil {
		t.Fatalf("readme returned error: %v", err)
	}
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d (ExitRuntimeError)", exitCode, ExitRuntimeError)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be written on failure")
	}
}

func TestReadmeCmd_BadRepo(t *testing.T) {
	setup(t)
	flagRepo = "not a repo"

	readmeCmd.SetArgs([]string{})
	if err := readmeCmd.Execute(); err != nil {
		t.Fatalf("readme returned error: %v", err)
	}
	if exitCode != ExitUsageError {
		t.Errorf("exitCode = %d, want %d (ExitUsageError)", exitCode, ExitUsageError)
	}
}

func TestReleasesCmd(t *testing.T) {
	tests := []struct {
		name string
		repo string
		want []string
	}{
		{"program", "", []string{"v3.0.0", "Three", "v2.0.0"}},
		{"sibling", "sdk", []string{"s1.0", "SDK one"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := setup(t)
			fakeGitHub(t)
			flagOut = out

			args := []string{}
			if tt.repo != "" {
				args = append(args, "--name", tt.repo)
			}
			releasesCmd.SetArgs(args)
			if err := releasesCmd.Execute(); err != nil {
				t.Fatalf("releases returned error: %v", err)
			}
			if exitCode != ExitSuccess {
				t.Fatalf("exitCode = %d", exitCode)
			}
			got := readFile(t, out)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
		})
	}
}

// --- robot-config command tests ---

func TestParseFields(t *testing.T) {
	form, err := parseFields([]string{"front_left_port=7", "front_left_reversed", "custom= spaced "})
	if err != nil {
		t.Fatalf("parseFields error: %v", err)
	}
	if got := form.Get("front_left_port"); got != "7" {
		t.Errorf("front_left_port = %q, want 7", got)
	}
	if !form.Has("front_left_reversed") {
		t.Error("bare field should be present")
	}
	if got := form.Get("custom"); got != " spaced " {
		t.Errorf("custom = %q, values must be kept verbatim", got)
	}

	if _, err := parseFields([]string{"=x"}); err == nil {
		t.Error("Expected error for empty field name")
	}
}

func TestRobotConfigGenerate_ExplicitVersion(t *testing.T) {
	out := setup(t)
	flagOut = out

	robotConfigCmd.SetArgs([]string{"generate",
		"--version", "v9",
		"--field", "front_left_port=1",
		"--field", "front_left_gear_ratio=18_1",
		"--field", "front_left_reversed",
		"--field", "print_logo=on",
	})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	got := readFile(t, out)
	for _, want := range []string{"      PORT=1\n", "      REVERSED=true\n", "  PRINTLOGO=true\n", "  LOGTOFILE=false\n", "  VERSION=v9\n}"} {
		if !strings.Contains(got, want) {
			t.Errorf("block missing %q:\n%s", want, got)
		}
	}
}

func TestRobotConfigGenerate_LatestTag(t *testing.T) {
	out := setup(t)
	fakeGitHub(t)
	flagOut = out

	robotConfigCmd.SetArgs([]string{"generate", "--field", "inertial_port=3"})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if got := readFile(t, out); !strings.Contains(got, "VERSION=v3.0.0") {
		t.Errorf("block should carry the latest tag:\n%s", got)
	}
}

func TestRobotConfigGenerate_TagUnavailable(t *testing.T) {
	out := setup(t)
	fakeGitHub(t)
	flagRepo = "o/gone"
	flagOut = out

	robotConfigCmd.SetArgs([]string{"generate"})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d (ExitRuntimeError)", exitCode, ExitRuntimeError)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no block should be written without a version")
	}
}

func TestRobotConfigGenerate_Validate(t *testing.T) {
	setup(t)

	robotConfigCmd.SetArgs([]string{"generate", "--version", "v1", "--validate", "--field", "front_left_port=99"})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("generate returned error: %v", err)
	}
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d (ExitRuntimeError)", exitCode, ExitRuntimeError)
	}
}

func TestRobotConfigDefault(t *testing.T) {
	out := setup(t)
	flagOut = out

	robotConfigCmd.SetArgs([]string{"default", "--version", "v2"})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("default returned error: %v", err)
	}
	if got, want := readFile(t, out), robotcfg.Default("v2").String()+"\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRobotConfigParse(t *testing.T) {
	out := setup(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "config.txt")
	if err := os.WriteFile(in, []byte(robotcfg.Default("v2").String()), 0o644); err != nil {
		t.Fatal(err)
	}
	flagFormat = "json"
	flagOut = out

	robotConfigCmd.SetArgs([]string{"parse", in})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d", exitCode)
	}

	var cfg robotcfg.Config
	if err := json.Unmarshal([]byte(readFile(t, out)), &cfg); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if cfg.FrontRight.Port != "10" || !cfg.FrontRight.Reversed {
		t.Errorf("FrontRight = %+v", cfg.FrontRight)
	}
	if cfg.Version != "v2" {
		t.Errorf("Version = %q, want v2", cfg.Version)
	}
}

func TestRobotConfigParse_Invalid(t *testing.T) {
	setup(t)
	in := filepath.Join(t.TempDir(), "config.txt")
	block := strings.Replace(robotcfg.Default("v2").String(), "PORT=1\n", "PORT=30\n", 1)
	if err := os.WriteFile(in, []byte(block), 0o644); err != nil {
		t.Fatal(err)
	}

	robotConfigCmd.SetArgs([]string{"parse", in})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d (ExitRuntimeError)", exitCode, ExitRuntimeError)
	}
}

func TestRobotConfigParse_MissingFile(t *testing.T) {
	setup(t)

	robotConfigCmd.SetArgs([]string{"parse", filepath.Join(t.TempDir(), "nope.txt")})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if exitCode != ExitUsageError {
		t.Errorf("exitCode = %d, want %d (ExitUsageError)", exitCode, ExitUsageError)
	}
}

func TestRobotConfigParse_JSONWithCopy(t *testing.T) {
	out := setup(t)
	in := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(in, []byte(robotcfg.Default("v2").String()), 0o644); err != nil {
		t.Fatal(err)
	}
	flagFormat = "json"
	flagOut = out

	robotConfigCmd.SetArgs([]string{"parse", "--copy", in})
	if err := robotConfigCmd.Execute(); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if exitCode != ExitUsageError {
		t.Errorf("exitCode = %d, want %d (ExitUsageError)", exitCode, ExitUsageError)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written despite usage error: %v", err)
	}
}

// --- build command tests ---

func TestBuildCmd(t *testing.T) {
	setup(t)
	fakeGitHub(t)
	dir := t.TempDir()

	buildCmd.SetArgs([]string{"--dir", dir})
	if err := buildCmd.Execute(); err != nil {
		t.Fatalf("build returned error: %v", err)
	}
	if exitCode != ExitSuccess {
		t.Fatalf("exitCode = %d", exitCode)
	}
	for _, name := range []string{"index.html", "index.html.gz", "releases.html", "downloads.html.gz"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if page := readFile(t, filepath.Join(dir, "downloads.html")); !strings.Contains(page, "Download Custom sdk s1.0") {
		t.Error("downloads page should use the SDK repository tag")
	}
}

// --- cache command tests ---

func TestCacheShow(t *testing.T) {
	out := setup(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cache" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"entries":3,"hits":1200,"misses":3,"fetches":3,"failures":0}`)
	}))
	defer server.Close()
	flagOut = out

	cacheCmd.SetArgs([]string{"show", "--server", server.URL})
	if err := cacheCmd.Execute(); err != nil {
		t.Fatalf("cache show returned error: %v", err)
	}
	got := readFile(t, out)
	if !strings.Contains(got, "Entries:  3\n") || !strings.Contains(got, "Hits:     1,200\n") {
		t.Errorf("output = %q", got)
	}
}

func TestCacheShow_ServerDown(t *testing.T) {
	setup(t)
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	cacheCmd.SetArgs([]string{"show", "--server", server.URL})
	if err := cacheCmd.Execute(); err != nil {
		t.Fatalf("cache show returned error: %v", err)
	}
	if exitCode != ExitRuntimeError {
		t.Errorf("exitCode = %d, want %d (ExitRuntimeError)", exitCode, ExitRuntimeError)
	}
}

func TestCacheClear(t *testing.T) {
	setup(t)
	var cleared, followed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clear-site-data":
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			cleared = true
			http.Redirect(w, r, "/", http.StatusSeeOther)
		default:
			followed = true
		}
	}))
	defer server.Close()

	cacheCmd.SetArgs([]string{"clear", "--server", server.URL})
	if err := cacheCmd.Execute(); err != nil {
		t.Fatalf("cache clear returned error: %v", err)
	}
	if !cleared {
		t.Error("clear-site-data was not called")
	}
	if followed {
		t.Error("redirect should not be followed")
	}
	if exitCode != ExitSuccess {
		t.Errorf("exitCode = %d", exitCode)
	}
}

// --- config command tests ---

func TestConfigInit_CreatesFile(t *testing.T) {
	resetFlags()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configCmd.SetArgs([]string{"init"})
	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config init returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "compsite", "config.json"))
	if err != nil {
		t.Fatalf("config init did not create config.json: %v", err)
	}
	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config file is not valid JSON: %v", err)
	}
	if cfg.Repo != "RanchoDVT/Comp-V5" {
		t.Errorf("repo = %q, want default", cfg.Repo)
	}
}

func TestConfigInit_AlreadyExists(t *testing.T) {
	resetFlags()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfgDir := filepath.Join(tmpDir, "compsite")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(`{"repo":"me/robot"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	configCmd.SetArgs([]string{"init"})
	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config init with existing file returned error: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(cfgDir, "config.json"))), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Repo != "me/robot" {
		t.Errorf("config init overwrote existing file: repo = %q", cfg.Repo)
	}
}

func TestConfigSet_UpdatesFile(t *testing.T) {
	resetFlags()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configCmd.SetArgs([]string{"set", "branch", "main"})
	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config set returned error: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(tmpDir, "compsite", "config.json"))), &cfg); err != nil {
		t.Fatalf("config file is not valid JSON: %v", err)
	}
	if cfg.Branch != "main" {
		t.Errorf("branch = %q, want main", cfg.Branch)
	}
	if cfg.Repo != "RanchoDVT/Comp-V5" {
		t.Errorf("repo = %q, unset keys should start from defaults", cfg.Repo)
	}
}

func TestConfigSet_InvalidKey(t *testing.T) {
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configCmd.SetArgs([]string{"set", "unknownKey", "value"})
	if err := configCmd.Execute(); err == nil {
		t.Error("config set with invalid key should return error")
	}
}

func TestConfigInit_Force(t *testing.T) {
	resetFlags()
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfgDir := filepath.Join(tmpDir, "compsite")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(`{"repo":"me/robot"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	configCmd.SetArgs([]string{"init", "--force"})
	if err := configCmd.Execute(); err != nil {
		t.Fatalf("config init --force returned error: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(cfgDir, "config.json"))), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Repo != "RanchoDVT/Comp-V5" {
		t.Errorf("repo = %q, --force should reset to defaults", cfg.Repo)
	}
}

func TestConfigSet_RejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"repo", "no-slash"},
		{"sdkRepo", "a/b/c"},
		{"format", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resetFlags()
			tmpDir := t.TempDir()
			t.Setenv("XDG_CONFIG_HOME", tmpDir)

			configCmd.SetArgs([]string{"set", tt.key, tt.value})
			if err := configCmd.Execute(); err == nil {
				t.Errorf("config set %s %q should return error", tt.key, tt.value)
			}
			if _, err := os.Stat(filepath.Join(tmpDir, "compsite", "config.json")); !os.IsNotExist(err) {
				t.Errorf("config file written for rejected value: %v", err)
			}
		})
	}
}

func TestConfigSet_MissingArgs(t *testing.T) {
	resetFlags()

	configCmd.SetArgs([]string{"set", "repo"})
	if err := configCmd.Execute(); err == nil {
		t.Error("config set with 1 arg should return error (requires 2)")
	}
}

func TestConfigShow_Execute(t *testing.T) {
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configCmd.SetArgs([]string{"show"})
	if err := configCmd.Execute(); err != nil {
		t.Errorf("config show returned error: %v", err)
	}
}

// --- version command tests ---

func TestVersionCmd_Execute(t *testing.T) {
	// versionCmd writes to os.Stdout directly, but we can verify it runs without error.
	if err := versionCmd.Execute(); err != nil {
		t.Errorf("version command returned error: %v", err)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		code int
		want int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitUsageError", ExitUsageError, 2},
		{"ExitRuntimeError", ExitRuntimeError, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.want)
			}
		})
	}
}

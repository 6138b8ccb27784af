package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/compsite/internal/cache"
)

const (
	defaultAPIURL = "https://api.github.com"
	defaultRawURL = "https://raw.githubusercontent.com"
	webURL        = "https://github.com"
)

// ErrUnavailable is wrapped by every error caused by a failed fetch.
var ErrUnavailable = errors.New("resource unavailable")

// Client provides read access to GitHub content.
type Client struct {
	apiURL  string
	rawURL  string
	cache   *cache.Cache
	version string
}

// NewClient creates a Client fetching through c. Empty URLs select the
// public GitHub endpoints.
func NewClient(c *cache.Cache, apiURL, rawURL string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if rawURL == "" {
		rawURL = defaultRawURL
	}
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		rawURL: strings.TrimRight(rawURL, "/"),
		cache:  c,
	}
}

// WithVersion returns a copy of the client that appends v=<tag> to every
// raw-content URL. The tag becomes part of the cache key, so a new release
// tag forces fresh copies of READMEs and changelogs.
func (c *Client) WithVersion(tag string) *Client {
	cp := *c
	cp.version = tag
	return &cp
}

// Version returns the cache-busting tag, if any.
func (c *Client) Version() string {
	return c.version
}

// RawURL returns the raw-content URL of path at ref.
func (c *Client) RawURL(owner, repo, ref, path string) string {
	u := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawURL, owner, repo, ref, strings.TrimLeft(path, "/"))
	if c.version != "" {
		u += "?v=" + url.QueryEscape(c.version)
	}
	return u
}

// RawBase returns the directory URL that relative links inside a file at
// ref resolve against.
func (c *Client) RawBase(owner, repo, ref string) string {
	return fmt.Sprintf("%s/%s/%s/%s/", c.rawURL, owner, repo, ref)
}

// RawFile fetches a file from the raw-content host.
func (c *Client) RawFile(ctx context.Context, owner, repo, ref, path string) (string, error) {
	u := c.RawURL(owner, repo, ref, path)
	text, ok := cache.FetchText(ctx, c.cache, u)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, u)
	}
	return text, nil
}

// Release is a published GitHub release.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	DownloadCount int    `json:"download_count"`
	DownloadURL   string `json:"browser_download_url"`
}

func (c *Client) latestReleaseURL(owner, repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.apiURL, owner, repo)
}

// latestReleaseDoc returns the raw JSON of the latest release. LatestRelease
// and LatestTag share it so both hit the same cache entry.
func (c *Client) latestReleaseDoc(ctx context.Context, owner, repo string) ([]byte, error) {
	u := c.latestReleaseURL(owner, repo)
	b, ok := cache.FetchBytes(ctx, c.cache, u)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, u)
	}
	return b, nil
}

// LatestRelease fetches the most recent non-draft, non-prerelease release.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (Release, error) {
	b, err := c.latestReleaseDoc(ctx, owner, repo)
	if err != nil {
		return Release{}, err
	}
	var r Release
	if err := json.Unmarshal(b, &r); err != nil {
		return Release{}, fmt.Errorf("parsing latest release of %s/%s: %w", owner, repo, err)
	}
	return r, nil
}

// LatestTag returns the tag name of the latest release.
func (c *Client) LatestTag(ctx context.Context, owner, repo string) (string, error) {
	b, err := c.latestReleaseDoc(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	tag := gjson.GetBytes(b, "tag_name")
	if !tag.Exists() || tag.String() == "" {
		return "", fmt.Errorf("latest release of %s/%s has no tag_name", owner, repo)
	}
	return tag.String(), nil
}

// Releases fetches up to perPage releases, newest first.
func (c *Client) Releases(ctx context.Context, owner, repo string, perPage int) ([]Release, error) {
	if perPage <= 0 {
		perPage = 30
	}
	u := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.apiURL, owner, repo, perPage)
	releases, ok := cache.FetchJSON[[]Release](ctx, c.cache, u)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, u)
	}
	return releases, nil
}

// Repository is a public repository of a user.
type Repository struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	HTMLURL       string    `json:"html_url"`
	DefaultBranch string    `json:"default_branch"`
	Fork          bool      `json:"fork"`
	PushedAt      time.Time `json:"pushed_at"`
}

// Repos lists the public repositories of owner, most recently pushed first.
func (c *Client) Repos(ctx context.Context, owner string) ([]Repository, error) {
	u := fmt.Sprintf("%s/users/%s/repos?sort=pushed", c.apiURL, owner)
	repos, ok := cache.FetchJSON[[]Repository](ctx, c.cache, u)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, u)
	}
	return repos, nil
}

// ArchiveURL returns the zip download link of a branch, or of a tag when
// tag is true.
func ArchiveURL(owner, repo, ref string, tag bool) string {
	kind := "heads"
	if tag {
		kind = "tags"
	}
	return fmt.Sprintf("%s/%s/%s/archive/refs/%s/%s.zip", webURL, owner, repo, kind, ref)
}

var (
	shortRepoRe   = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// ParseRepo extracts owner/repo from "owner/repo" or a clone URL.
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".git")

	if m := shortRepoRe.FindStringSubmatch(s); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := httpsRemoteRe.FindStringSubmatch(s); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(s); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from %q", s)
}

package site

import (
	"context"
	"fmt"
	"html/template"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dshills/compsite/internal/github"
	"github.com/dshills/compsite/internal/markdown"
)

const (
	repoProgram = "program"
	repoSDK     = "sdk"

	refBranch = "branch"
	refLatest = "latest"
)

type catalogueEntry struct {
	Order int    `yaml:"order"`
	Title string `yaml:"title"`
	Repo  string `yaml:"repo"`
	Ref   string `yaml:"ref"`
	Text  string `yaml:"text"`
}

type catalogue map[string]catalogueEntry

func parseCatalogue(raw []byte) (catalogue, error) {
	var c catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing downloads: %w", err)
	}
	for kind, e := range c {
		if e.Repo != repoProgram && e.Repo != repoSDK {
			return nil, fmt.Errorf("download %s: unknown repo %q", kind, e.Repo)
		}
		if e.Ref != refBranch && e.Ref != refLatest {
			return nil, fmt.Errorf("download %s: unknown ref %q", kind, e.Ref)
		}
	}
	return c, nil
}

func (c catalogue) kinds() []string {
	kinds := make([]string, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return c[kinds[i]].Order < c[kinds[j]].Order
	})
	return kinds
}

// Download is the content of a download popup.
type Download struct {
	Kind  string        `json:"kind"`
	Title string        `json:"title"`
	Text  template.HTML `json:"text"`
	Link  string        `json:"link"`
	Err   string        `json:"-"`
}

type errUnknownKind string

func (e errUnknownKind) Error() string {
	return fmt.Sprintf("unknown download %q", string(e))
}

// resolveDownload fills in the archive link of kind. Release downloads
// need the latest tag of their repository.
func (s *Server) resolveDownload(ctx context.Context, client *github.Client, kind string) (Download, error) {
	e, ok := s.downloads[kind]
	if !ok {
		return Download{}, errUnknownKind(kind)
	}

	owner, repo := s.opts.Owner, s.opts.Repo
	if e.Repo == repoSDK {
		owner, repo = s.opts.SDKOwner, s.opts.SDKRepo
	}

	d := Download{
		Kind:  kind,
		Title: e.Title,
		Text:  template.HTML(markdown.Sanitise([]byte(e.Text))),
	}
	if e.Ref == refBranch {
		d.Link = github.ArchiveURL(owner, repo, s.opts.Branch, false)
		return d, nil
	}

	tag, err := client.LatestTag(ctx, owner, repo)
	if err != nil {
		return Download{}, err
	}
	d.Title += " " + tag
	d.Link = github.ArchiveURL(owner, repo, tag, true)
	return d, nil
}

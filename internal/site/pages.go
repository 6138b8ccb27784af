package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/compsite/internal/github"
	"github.com/dshills/compsite/internal/markdown"
	"github.com/dshills/compsite/internal/output"
	"github.com/dshills/compsite/internal/robotcfg"
)

const (
	panelReadme    = "readme"
	panelChangelog = "changelog"
	panelReleases  = "releases"
	panelRepos     = "repos"
	panelDownloads = "downloads"
)

// placeholders are shown in place of a panel whose fetch failed.
var placeholders = map[string]string{
	panelReadme:    "Unable to load README.",
	panelChangelog: "Unable to load changelog.",
	panelReleases:  "Unable to load releases.",
	panelRepos:     "Unable to load repositories.",
	panelDownloads: "Unable to load downloads.",
}

type page struct {
	// Name is the template file and the navbar data-page value.
	Name   string
	Paths  []string
	Title  string
	Panels []string
}

var pages = []page{
	{Name: "index.html", Paths: []string{"/", "/index.html"}, Title: "Comp-V5", Panels: []string{panelReadme}},
	{Name: "changelog.html", Paths: []string{"/changelog.html"}, Title: "Changelog", Panels: []string{panelChangelog}},
	{Name: "config.html", Paths: []string{"/config.html"}, Title: "Config generator"},
	{Name: "downloads.html", Paths: []string{"/downloads.html"}, Title: "Downloads", Panels: []string{panelDownloads}},
	{Name: "releases.html", Paths: []string{"/releases.html"}, Title: "Releases", Panels: []string{panelRepos, panelReleases}},
}

// Pages returns the names of every page the site renders.
func Pages() []string {
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Name
	}
	return names
}

func lookupPage(name string) (page, bool) {
	for _, p := range pages {
		if p.Name == name {
			return p, true
		}
	}
	return page{}, false
}

// Panel is one independently loaded region of a page.
type Panel struct {
	HTML      template.HTML
	Repos     []github.Repository
	Downloads []Download
	Selected  string
	Err       string
}

type pageData struct {
	Title   string
	Page    string
	Version string
	Navbar  template.HTML
	Panels  map[string]Panel
	Motors  []robotcfg.MotorField
}

// panelFunc loads a panel. query holds the page's URL parameters.
type panelFunc func(ctx context.Context, client *github.Client, query url.Values) (Panel, error)

func (s *Server) panelFuncs() map[string]panelFunc {
	return map[string]panelFunc{
		panelReadme:    s.documentPanel("README.md"),
		panelChangelog: s.documentPanel("changelog.md"),
		panelReleases:  s.releasesPanel,
		panelRepos:     s.reposPanel,
		panelDownloads: s.downloadsPanel,
	}
}

// loadPanels fetches every panel of p concurrently. A failing panel gets
// its placeholder and does not affect the others.
func (s *Server) loadPanels(ctx context.Context, p page, client *github.Client, query url.Values) map[string]Panel {
	funcs := s.panelFuncs()
	results := make([]Panel, len(p.Panels))

	var g errgroup.Group
	for i, name := range p.Panels {
		i, name := i, name
		fn := funcs[name]
		g.Go(func() error {
			panel, err := fn(ctx, client, query)
			if err != nil {
				log.WithError(err).WithField("panel", name).Warn("panel failed")
				panel = Panel{Err: placeholders[name]}
			}
			results[i] = panel
			return nil
		})
	}
	_ = g.Wait()

	panels := make(map[string]Panel, len(p.Panels))
	for i, name := range p.Panels {
		panels[name] = results[i]
	}
	return panels
}

// RenderPage writes the named page to w, fetching its panels through the
// cache. version, when set, busts the cache of raw-content fetches.
func (s *Server) RenderPage(ctx context.Context, w io.Writer, name, version string, query url.Values) error {
	p, ok := lookupPage(name)
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return s.render(ctx, w, p, version, query)
}

func (s *Server) render(ctx context.Context, w io.Writer, p page, version string, query url.Values) error {
	client := s.client
	if version != "" {
		client = client.WithVersion(version)
	}

	data := pageData{
		Title:   p.Title,
		Page:    p.Name,
		Version: version,
		Navbar:  s.navbars[p.Name],
		Panels:  s.loadPanels(ctx, p, client, query),
		Motors:  robotcfg.MotorFields(),
	}

	// Render to a buffer so a template error never leaves half a page.
	var buf bytes.Buffer
	if err := s.templates[p.Name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("rendering %s: %w", p.Name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) pageHandler(p page) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.render(r.Context(), w, p, versionFrom(r.Context()), r.URL.Query()); err != nil {
			log.WithError(err).WithField("page", p.Name).Error("render failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	})
}

// document fetches a markdown file of the program repository and renders
// it with relative links resolved against its raw-content location.
func (s *Server) document(ctx context.Context, client *github.Client, path string) (output.Document, error) {
	src, err := client.RawFile(ctx, s.opts.Owner, s.opts.Repo, s.opts.Branch, path)
	if err != nil {
		return output.Document{}, err
	}
	base := client.RawBase(s.opts.Owner, s.opts.Repo, s.opts.Branch)
	return output.Document{
		Title:    path,
		Source:   fmt.Sprintf("%s/%s@%s/%s", s.opts.Owner, s.opts.Repo, s.opts.Branch, path),
		Markdown: src,
		HTML:     string(markdown.Render([]byte(src), base)),
	}, nil
}

func (s *Server) documentPanel(path string) panelFunc {
	return func(ctx context.Context, client *github.Client, _ url.Values) (Panel, error) {
		doc, err := s.document(ctx, client, path)
		if err != nil {
			return Panel{}, err
		}
		return Panel{HTML: template.HTML(doc.HTML)}, nil
	}
}

// selectedRepo returns the repository named by the repo query parameter,
// or the program repository.
func (s *Server) selectedRepo(query url.Values) string {
	name := query.Get("repo")
	if name == "" {
		return s.opts.Repo
	}
	if _, repo, err := github.ParseRepo(s.opts.Owner + "/" + name); err == nil {
		return repo
	}
	return s.opts.Repo
}

func (s *Server) releasesPanel(ctx context.Context, client *github.Client, query url.Values) (Panel, error) {
	repo := s.selectedRepo(query)
	releases, err := client.Releases(ctx, s.opts.Owner, repo, s.opts.ReleasesPerPage)
	if err != nil {
		return Panel{}, err
	}
	var buf bytes.Buffer
	if err := (&output.HTMLWriter{}).WriteReleases(&buf, releases); err != nil {
		return Panel{}, err
	}
	return Panel{HTML: template.HTML(buf.String()), Selected: repo}, nil
}

func (s *Server) reposPanel(ctx context.Context, client *github.Client, query url.Values) (Panel, error) {
	repos, err := client.Repos(ctx, s.opts.Owner)
	if err != nil {
		return Panel{}, err
	}
	return Panel{Repos: repos, Selected: s.selectedRepo(query)}, nil
}

// downloadsPanel resolves every download on its own; one that fails shows
// its placeholder while the others keep their links.
func (s *Server) downloadsPanel(ctx context.Context, client *github.Client, _ url.Values) (Panel, error) {
	var downloads []Download
	for _, kind := range s.downloads.kinds() {
		d, err := s.resolveDownload(ctx, client, kind)
		if err != nil {
			log.WithError(err).WithField("kind", kind).Warn("download failed")
			d = Download{
				Kind:  kind,
				Title: s.downloads[kind].Title,
				Err:   fmt.Sprintf("Unable to load %s download.", kind),
			}
		}
		downloads = append(downloads, d)
	}
	return Panel{Downloads: downloads}, nil
}

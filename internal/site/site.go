package site

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gorilla/mux"

	"github.com/dshills/compsite/internal/cache"
	"github.com/dshills/compsite/internal/github"
)

//go:embed templates/*.html navbar.html downloads.yaml
var assets embed.FS

const shutdownTimeout = 5 * time.Second

// Options selects the repositories the site presents.
type Options struct {
	Owner           string
	Repo            string
	Branch          string
	SDKOwner        string
	SDKRepo         string
	ReleasesPerPage int
}

// Server renders the site.
type Server struct {
	opts      Options
	cache     *cache.Cache
	client    *github.Client
	templates map[string]*template.Template
	navbars   map[string]template.HTML
	downloads catalogue
	router    *mux.Router
}

// New creates a Server. client must fetch through c so that
// clear-site-data drops everything the site has downloaded.
func New(c *cache.Cache, client *github.Client, opts Options) (*Server, error) {
	if c == nil || client == nil {
		return nil, errors.New("site: cache and client are required")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, errors.New("site: owner and repo are required")
	}
	if opts.Branch == "" {
		opts.Branch = "dev"
	}
	if opts.SDKOwner == "" {
		opts.SDKOwner = opts.Owner
	}

	s := &Server{
		opts:      opts,
		cache:     c,
		client:    client,
		templates: make(map[string]*template.Template, len(pages)),
		navbars:   make(map[string]template.HTML, len(pages)),
	}

	navbar, err := assets.ReadFile("navbar.html")
	if err != nil {
		return nil, fmt.Errorf("reading navbar: %w", err)
	}
	for _, p := range pages {
		t, err := template.ParseFS(assets, "templates/layout.html", "templates/"+p.Name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", p.Name, err)
		}
		s.templates[p.Name] = t

		nav, err := markActive(navbar, p.Name)
		if err != nil {
			return nil, fmt.Errorf("marking navbar for %s: %w", p.Name, err)
		}
		s.navbars[p.Name] = template.HTML(nav)
	}

	raw, err := assets.ReadFile("downloads.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading downloads: %w", err)
	}
	if s.downloads, err = parseCatalogue(raw); err != nil {
		return nil, err
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)

	for _, p := range pages {
		for _, path := range p.Paths {
			r.Handle(path, s.withVersion(s.pageHandler(p))).Methods(http.MethodGet, http.MethodHead)
		}
	}

	r.HandleFunc("/config", s.handleConfig).Methods(http.MethodPost)
	r.HandleFunc("/download/{kind}", s.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/api/readme", s.handleDocument(panelReadme)).Methods(http.MethodGet)
	r.HandleFunc("/api/changelog", s.handleDocument(panelChangelog)).Methods(http.MethodGet)
	r.HandleFunc("/api/cache", s.handleCacheStats).Methods(http.MethodGet)
	r.HandleFunc("/clear-site-data", s.handleClearSiteData).Methods(http.MethodGet, http.MethodPost)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves the site on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	log.WithField("addr", addr).Info("site listening")
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Round(time.Millisecond),
		}).Debug("request")
	})
}

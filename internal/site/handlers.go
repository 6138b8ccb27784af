package site

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gorilla/mux"

	"github.com/dshills/compsite/internal/robotcfg"
)

const (
	// VersionCookie holds the release tag the browser last loaded.
	VersionCookie = "version"
	// VersionParam is the cache-busting query parameter.
	VersionParam = "v"
)

type versionKey struct{}

func versionFrom(ctx context.Context) string {
	v, _ := ctx.Value(versionKey{}).(string)
	return v
}

// withVersion compares the version cookie against the latest release tag.
// On a mismatch it stores the tag and reloads the page with v=<tag> so
// neither the browser nor the cache serves content of an older release.
//
// The latest-tag lookup is itself cached, so a running server keeps the tag
// it first saw until clear-site-data empties the cache.
func (s *Server) withVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, err := s.client.LatestTag(r.Context(), s.opts.Owner, s.opts.Repo)
		if err != nil {
			// Without a tag the page still renders; only cache busting is lost.
			log.WithError(err).Warn("latest tag unavailable")
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(VersionCookie)
		if err != nil || cookie.Value != tag {
			http.SetCookie(w, &http.Cookie{
				Name:     VersionCookie,
				Value:    tag,
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
			})
			if r.URL.Query().Get(VersionParam) != tag {
				u := *r.URL
				q := u.Query()
				q.Set(VersionParam, tag)
				u.RawQuery = q.Encode()
				log.WithField("version", tag).Info("version changed, reloading")
				http.Redirect(w, r, u.RequestURI(), http.StatusFound)
				return
			}
		}

		ctx := context.WithValue(r.Context(), versionKey{}, tag)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleConfig generates the config block from the submitted form. VERSION
// is the latest release tag; without it no block is produced.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	tag, err := s.client.LatestTag(r.Context(), s.opts.Owner, s.opts.Repo)
	if err != nil {
		log.WithError(err).Error("config generation failed")
		http.Error(w, "Unable to load latest release.", http.StatusBadGateway)
		return
	}

	cfg := robotcfg.FromForm(r.PostForm, tag)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="config.txt"`)
	if _, err := cfg.WriteTo(w); err != nil {
		log.WithError(err).Warn("writing config block")
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	d, err := s.resolveDownload(r.Context(), s.client, kind)
	var unknown errUnknownKind
	switch {
	case errors.As(err, &unknown):
		http.NotFound(w, r)
		return
	case err != nil:
		log.WithError(err).WithField("kind", kind).Error("download unavailable")
		http.Error(w, placeholders[panelDownloads], http.StatusBadGateway)
		return
	}
	writeJSON(w, d)
}

// handleDocument serves a rendered markdown panel as an HTML fragment.
func (s *Server) handleDocument(panel string) http.HandlerFunc {
	path := "README.md"
	if panel == panelChangelog {
		path = "changelog.md"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		// The v parameter is only a hint; the server's own tag decides the
		// cache key so arbitrary values cannot grow the cache.
		client := s.client
		if tag, err := s.client.LatestTag(r.Context(), s.opts.Owner, s.opts.Repo); err == nil {
			client = client.WithVersion(tag)
		}
		doc, err := s.document(r.Context(), client, path)
		if err != nil {
			log.WithError(err).WithField("panel", panel).Error("document unavailable")
			http.Error(w, placeholders[panel], http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(doc.HTML))
	}
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.cache.GetStats())
}

// handleClearSiteData empties the cache, expires every cookie the browser
// sent and sends it back to the home page.
func (s *Server) handleClearSiteData(w http.ResponseWriter, r *http.Request) {
	n := s.cache.Len()
	s.cache.Clear()

	for _, c := range r.Cookies() {
		http.SetCookie(w, &http.Cookie{
			Name:   c.Name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
	w.Header().Set("Clear-Site-Data", `"cache", "cookies", "storage"`)
	log.WithField("entries", n).Info("site data cleared")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("writing JSON response")
	}
}

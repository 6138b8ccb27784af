package output

import (
	"html"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dshills/compsite/internal/github"
)

// HTMLWriter outputs HTML fragments. Document HTML is expected to be
// sanitised already; every other string is escaped.
type HTMLWriter struct {
	// Now is the reference time for release ages. Zero uses time.Now.
	Now func() time.Time
}

func (h *HTMLWriter) WriteDocument(w io.Writer, doc Document) error {
	ew := &errWriter{w: w}
	ew.printf("<article class=\"markdown-body\" data-source=\"%s\">\n", html.EscapeString(doc.Source))
	ew.println(doc.HTML)
	ew.println("</article>")
	return ew.err
}

func (h *HTMLWriter) WriteReleases(w io.Writer, releases []github.Release) error {
	ew := &errWriter{w: w}
	if len(releases) == 0 {
		ew.println(`<p class="empty">No releases published.</p>`)
		return ew.err
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}

	ew.println(`<ul class="releases">`)
	for _, r := range releases {
		ew.printf(`<li><a href="%s">%s</a> <span class="tag">%s</span>`,
			html.EscapeString(r.HTMLURL), html.EscapeString(releaseName(r)), html.EscapeString(r.TagName))
		if r.Prerelease {
			ew.printf(` <span class="badge">pre-release</span>`)
		}
		if !r.PublishedAt.IsZero() {
			ew.printf(` <time datetime="%s">%s</time>`,
				r.PublishedAt.UTC().Format(time.RFC3339), humanize.RelTime(r.PublishedAt, now, "ago", "from now"))
		}
		for _, a := range r.Assets {
			ew.printf(` <a class="asset" href="%s">%s (%s)</a>`,
				html.EscapeString(a.DownloadURL), html.EscapeString(a.Name), humanize.Bytes(uint64(a.Size)))
		}
		ew.println("</li>")
	}
	ew.println("</ul>")
	return ew.err
}

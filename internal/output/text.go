package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dshills/compsite/internal/github"
)

// TextWriter outputs human-readable text.
type TextWriter struct {
	// Now is the reference time for release ages. Zero uses time.Now.
	Now func() time.Time
}

func (t *TextWriter) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *TextWriter) WriteDocument(w io.Writer, doc Document) error {
	ew := &errWriter{w: w}
	ew.printf("%s (%s)\n", doc.Title, doc.Source)
	ew.println(strings.Repeat("─", 60))
	ew.println(strings.TrimRight(doc.Markdown, "\n"))
	return ew.err
}

func (t *TextWriter) WriteReleases(w io.Writer, releases []github.Release) error {
	ew := &errWriter{w: w}
	if len(releases) == 0 {
		ew.println("No releases published.")
		return ew.err
	}

	now := t.now()
	for _, r := range releases {
		ew.printf("%-12s %s", r.TagName, releaseName(r))
		if r.Prerelease {
			ew.printf(" [pre-release]")
		}
		ew.println("")
		if !r.PublishedAt.IsZero() {
			ew.printf("    published %s\n", humanize.RelTime(r.PublishedAt, now, "ago", "from now"))
		}
		for _, a := range r.Assets {
			ew.printf("    %s (%s, %s downloads)\n", a.Name, humanize.Bytes(uint64(a.Size)), humanize.Comma(int64(a.DownloadCount)))
		}
	}
	return ew.err
}

func releaseName(r github.Release) string {
	if r.Name != "" {
		return r.Name
	}
	return r.TagName
}

// errWriter wraps an io.Writer and captures the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

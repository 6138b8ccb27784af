package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/compsite/internal/github"
)

// JSONWriter outputs content as indented JSON.
type JSONWriter struct{}

func (j *JSONWriter) WriteDocument(w io.Writer, doc Document) error {
	return writeJSON(w, doc)
}

func (j *JSONWriter) WriteReleases(w io.Writer, releases []github.Release) error {
	if releases == nil {
		releases = []github.Release{}
	}
	return writeJSON(w, releases)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

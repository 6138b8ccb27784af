package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/compsite/internal/github"
)

// Document is a fetched markdown file and its rendered HTML.
type Document struct {
	Title    string `json:"title"`
	Source   string `json:"source"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Writer writes content in a specific format.
type Writer interface {
	WriteDocument(w io.Writer, doc Document) error
	WriteReleases(w io.Writer, releases []github.Release) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "html":
		return &HTMLWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteDocument writes doc to the specified output (file path or stdout).
func WriteDocument(doc Document, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	return withOutput(outPath, func(w io.Writer) error {
		return writer.WriteDocument(w, doc)
	})
}

// WriteReleases writes releases to the specified output (file path or stdout).
func WriteReleases(releases []github.Release, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	return withOutput(outPath, func(w io.Writer) error {
		return writer.WriteReleases(w, releases)
	})
}

func withOutput(outPath string, fn func(io.Writer) error) error {
	if outPath == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return fn(f)
}

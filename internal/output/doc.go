// Package output formats fetched site content for display or machine
// consumption.
//
// Three formats are supported:
//   - text: human-readable terminal output (default)
//   - json: structured JSON
//   - html: fragments ready to embed in a page; the site uses these for
//     its panels
//
// Use [GetWriter] to obtain a [Writer] for a given format string.
// [WriteDocument] and [WriteReleases] handle destination selection.
package output

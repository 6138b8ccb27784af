// Package markdown turns README and changelog markdown into HTML that is
// safe to embed in a page.
//
// Newlines inside a paragraph become line breaks, matching how the project
// writes its changelog. Relative links and images are resolved against the
// raw-content location of the document, and the result is always passed
// through an allow-list sanitiser as the final step.
package markdown

package markdown

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	htmlPolicy = newHTMLPolicy()
	textPolicy = bluemonday.StripTagsPolicy()

	codeLanguage = regexp.MustCompile(`^language-[\w+-]+$`)
)

func newHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.RequireNoFollowOnFullyQualifiedLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").Matching(codeLanguage).OnElements("code")
	return p
}

// Render converts markdown to sanitised HTML. base, when not empty, is the
// URL relative links and images are resolved against.
func Render(src []byte, base string) []byte {
	out := ToHTML(src)
	if base != "" {
		out = RewriteRelative(out, base)
	}
	// Sanitising must stay the last step.
	return Sanitise(out)
}

// ToHTML wraps blackfriday with the settings used across the site. The
// output is not sanitised.
func ToHTML(src []byte) []byte {
	extensions := 0
	extensions |= blackfriday.EXTENSION_AUTOLINK
	extensions |= blackfriday.EXTENSION_FENCED_CODE
	// a single newline is a <br>, like the old marked({breaks: true})
	extensions |= blackfriday.EXTENSION_HARD_LINE_BREAK
	extensions |= blackfriday.EXTENSION_NO_INTRA_EMPHASIS
	extensions |= blackfriday.EXTENSION_SPACE_HEADERS
	extensions |= blackfriday.EXTENSION_STRIKETHROUGH
	extensions |= blackfriday.EXTENSION_TABLES
	extensions |= blackfriday.EXTENSION_NO_EMPTY_LINE_BEFORE_BLOCK
	extensions |= blackfriday.EXTENSION_AUTO_HEADER_IDS

	htmlFlags := 0
	htmlFlags |= blackfriday.HTML_USE_XHTML

	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")
	return blackfriday.Markdown(src, renderer, extensions)
}

// Sanitise strips any HTML not on the user-generated-content allow list.
// Fully qualified links open in a new tab and carry rel="nofollow".
func Sanitise(src []byte) []byte {
	return htmlPolicy.SanitizeBytes(src)
}

// PlainText strips all tags from s.
func PlainText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// RewriteRelative resolves relative href and src attributes in an HTML
// fragment against base. Fragment-only links and absolute URLs are left
// alone. On any parse failure src is returned unchanged.
func RewriteRelative(src []byte, base string) []byte {
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return src
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(src), context)
	if err != nil {
		return src
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for i, a := range n.Attr {
				if a.Namespace == "" && (a.Key == "href" || a.Key == "src") {
					n.Attr[i].Val = resolve(baseURL, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	var b bytes.Buffer
	for _, n := range nodes {
		walk(n)
		if err := html.Render(&b, n); err != nil {
			return src
		}
	}
	return b.Bytes()
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ref
	}
	return base.ResolveReference(u).String()
}

package docparse

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func (p *Parser) htmlCascade() []strategy {
	return []strategy{
		{name: "sanitize-markdown", run: extractHTMLMarkdown},
		{name: "dom-walk", run: extractHTMLDomWalk},
		{name: "raw-utf8", run: extractRawUTF8},
	}
}

// htmlSanitizer strips scripts, event handlers and embedded junk while
// keeping the structural tags the markdown converter turns into headings.
var htmlSanitizer = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6", "table", "thead", "tbody", "tr", "td", "th")
	return p
}()

// extractHTMLMarkdown converts sanitised HTML to markdown. Markdown keeps
// `#` headings, which the chapter segmenter picks up directly. Invisible
// subtrees are pruned first so CSS-hidden text never reaches the output.
func extractHTMLMarkdown(_ context.Context, doc SourceDocument) (string, error) {
	source := string(doc.Data)
	if root, err := html.Parse(bytes.NewReader(doc.Data)); err == nil {
		pruneInvisible(root)
		var buf bytes.Buffer
		if err := html.Render(&buf, root); err == nil {
			source = buf.String()
		}
	}
	clean := htmlSanitizer.Sanitize(source)
	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return md, nil
}

// pruneInvisible removes subtrees a reader never sees: scripts, styles,
// head, iframes, navigation chrome, and elements hidden by inline CSS.
func pruneInvisible(n *html.Node) {
	var doomed []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Iframe, atom.Nav, atom.Footer:
				doomed = append(doomed, c)
				continue
			}
			if hasHiddenStyle(c) {
				doomed = append(doomed, c)
				continue
			}
		}
		pruneInvisible(c)
	}
	for _, c := range doomed {
		n.RemoveChild(c)
	}
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0[^1-9]`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0[^.]`),
}

func hasHiddenStyle(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// extractHTMLDomWalk walks the parsed DOM collecting visible text, skipping
// boilerplate containers and hidden elements. Headings and block elements
// end up on their own lines.
func extractHTMLDomWalk(_ context.Context, doc SourceDocument) (string, error) {
	root, err := html.Parse(bytes.NewReader(doc.Data))
	if err != nil {
		return "", fmt.Errorf("html parse: %w", err)
	}
	text := collectVisibleText(root)
	if text == "" {
		return "", fmt.Errorf("no visible text in document")
	}
	return text, nil
}

// collectVisibleText renders the subtree's visible text with block-level
// line breaks.
func collectVisibleText(root *html.Node) string {
	var sb strings.Builder
	var lastByte byte
	write := func(s string) {
		sb.WriteString(s)
		if s != "" {
			lastByte = s[len(s)-1]
		}
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Iframe, atom.Nav, atom.Footer:
				return
			}
			if hasHiddenStyle(n) {
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 && lastByte != '\n' {
					write(" ")
				}
				write(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.P, atom.Div, atom.Br, atom.Li, atom.Tr,
				atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				if sb.Len() > 0 && lastByte != '\n' {
					write("\n")
				}
			}
		}
	}
	walk(root)
	return strings.TrimSpace(sb.String())
}

// internal/research/fetch/extract.go
package fetch

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	ExtractorText        = "text"
	ExtractorReadability = "readability"
	ExtractorSanitize    = "sanitize"
)

// Extractor turns a decoded HTML document into plain text.
type Extractor interface {
	Extract(doc string, pageURL *url.URL) (string, error)
}

// ExtractorByName returns the extractor configured under research.extractor.
// An empty name selects the text extractor.
func ExtractorByName(name string) (Extractor, error) {
	switch name {
	case "", ExtractorText:
		return TextExtractor{}, nil
	case ExtractorReadability:
		return ReadabilityExtractor{}, nil
	case ExtractorSanitize:
		return SanitizeExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q", name)
}

// ExtractorNames lists the accepted extractor names.
func ExtractorNames() []string {
	return []string{ExtractorText, ExtractorReadability, ExtractorSanitize}
}

var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
	atom.Iframe:   true,
	atom.Svg:      true,
	atom.Canvas:   true,
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true, atom.Table: true,
	atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true, atom.Title: true,
}

// TextExtractor keeps every visible text node. Block elements start a new
// line and whitespace runs collapse to one space. The document is parsed into
// a tree first, so optional end tags such as </head> are implied.
type TextExtractor struct{}

func (TextExtractor) Extract(doc string, _ *url.URL) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeText(&b, root)
	return collapseWhitespace(b.String()), nil
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// ReadabilityExtractor keeps the main article body and falls back to the
// text extractor when no article can be found.
type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(doc string, pageURL *url.URL) (string, error) {
	if pageURL == nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(doc), pageURL)
	if err == nil {
		if text := collapseWhitespace(article.TextContent); text != "" {
			return text, nil
		}
	}
	return TextExtractor{}.Extract(doc, pageURL)
}

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func strictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeExtractor strips every element with a strict bluemonday policy.
type SanitizeExtractor struct{}

func (SanitizeExtractor) Extract(doc string, _ *url.URL) (string, error) {
	cleaned := strictHTMLPolicy().Sanitize(doc)
	return collapseWhitespace(html.UnescapeString(cleaned)), nil
}

// collapseWhitespace trims each line, squeezes inner whitespace and drops
// blank lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if fields := strings.Fields(line); len(fields) > 0 {
			out = append(out, strings.Join(fields, " "))
		}
	}
	return strings.Join(out, "\n")
}

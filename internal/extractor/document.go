package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func parseDocument(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func cleanText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// findText returns the first text node, trimmed, that starts with prefix.
func findText(doc *goquery.Document, prefix string) (string, bool) {
	var walk func(n *html.Node) (string, bool)
	walk = func(n *html.Node) (string, bool) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); strings.HasPrefix(text, prefix) {
				return text, true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if text, ok := walk(c); ok {
				return text, true
			}
		}
		return "", false
	}

	for _, n := range doc.Nodes {
		if text, ok := walk(n); ok {
			return text, true
		}
	}
	return "", false
}

// hasHiddenStyle reports whether a style attribute contains display:none.
func hasHiddenStyle(style string) bool {
	compact := strings.ToLower(strings.Join(strings.Fields(style), ""))
	return strings.Contains(compact, "display:none")
}

package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CollapseSpace trims s and folds every whitespace run into one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Text returns the whitespace-collapsed text content of a selection.
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	return CollapseSpace(sel.Text())
}

// Attr gets an attribute value from an element node.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// TextNodes returns the trimmed, non-empty text nodes below sel in document
// order, skipping script and style content.
func TextNodes(sel *goquery.Selection) []string {
	var out []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := CollapseSpace(n.Data); text != "" {
				out = append(out, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// XPath returns an absolute, fully indexed XPath for an element node, for
// example /html[1]/body[1]/div[3]. The live page resolves it with
// document.evaluate, which is how snapshot nodes are mapped back to
// elements the browser can scroll.
func XPath(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}

	var parts []string
	for node := n; node != nil && node.Type == html.ElementNode; node = node.Parent {
		idx := 1
		for sib := node.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == node.Data {
				idx++
			}
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", node.Data, idx))
	}

	// Collected leaf-first.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

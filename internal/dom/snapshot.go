// Package dom turns a serialized rendered document into an immutable,
// queryable Snapshot. Every element receives a document-order ordinal while
// the tree is walked, so later stages can reason about "what came before
// what" without asking the browser for layout coordinates.
package dom

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// UnknownPosition is the ordinal reported for nodes that do not belong to a
// snapshot. Real elements are numbered from 1.
const UnknownPosition = 0

// Snapshot is one immutable reading of the rendered document.
type Snapshot struct {
	doc      *goquery.Document
	ordinals map[*html.Node]int
	count    int
	takenAt  time.Time
}

// Parse reads an HTML document and builds a Snapshot from it.
func Parse(r io.Reader) (*Snapshot, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromNode(root), nil
}

// ParseString is Parse for an in-memory document.
func ParseString(content string) (*Snapshot, error) {
	return Parse(strings.NewReader(content))
}

// FromNode wraps an already parsed tree. Ordinals are assigned in a
// pre-order walk over element nodes.
func FromNode(root *html.Node) *Snapshot {
	s := &Snapshot{
		doc:      goquery.NewDocumentFromNode(root),
		ordinals: make(map[*html.Node]int),
		takenAt:  time.Now(),
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			s.count++
			s.ordinals[n] = s.count
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return s
}

// Find runs a CSS selector against the whole document. An invalid selector
// matches nothing.
func (s *Snapshot) Find(selector string) *goquery.Selection {
	return s.doc.Find(selector)
}

// Root returns the document selection.
func (s *Snapshot) Root() *goquery.Selection {
	return s.doc.Selection
}

// Position returns the document-order rank of n, or UnknownPosition when n
// is nil or was not produced by this snapshot.
func (s *Snapshot) Position(n *html.Node) int {
	if n == nil {
		return UnknownPosition
	}
	return s.ordinals[n]
}

// PositionOf returns the rank of the first node in sel.
func (s *Snapshot) PositionOf(sel *goquery.Selection) int {
	if sel == nil || sel.Length() == 0 {
		return UnknownPosition
	}
	return s.Position(sel.Get(0))
}

// Elements is the number of element nodes in the snapshot.
func (s *Snapshot) Elements() int {
	return s.count
}

// TakenAt is when the snapshot was built.
func (s *Snapshot) TakenAt() time.Time {
	return s.takenAt
}

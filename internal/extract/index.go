package extract

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/model"
)

// Boundary is a category heading: its document-order position and label.
type Boundary struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
}

// Index is the ordered set of category boundaries of one snapshot. It is
// read-only once built.
type Index struct {
	boundaries []Boundary
}

// NewIndex builds an index from boundaries in any order. Positions at or
// below zero are kept and sort first.
func NewIndex(boundaries []Boundary) *Index {
	sorted := make([]Boundary, len(boundaries))
	copy(sorted, boundaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	return &Index{boundaries: sorted}
}

// Boundaries returns a copy of the boundaries, ascending by position.
func (ix *Index) Boundaries() []Boundary {
	out := make([]Boundary, len(ix.boundaries))
	copy(out, ix.boundaries)
	return out
}

// Len is the number of boundaries.
func (ix *Index) Len() int {
	return len(ix.boundaries)
}

// Names lists boundary labels in position order.
func (ix *Index) Names() []string {
	names := make([]string, len(ix.boundaries))
	for i, b := range ix.boundaries {
		names[i] = b.Name
	}
	return names
}

// IndexBuilder derives a category index from heading nodes
type IndexBuilder struct {
	selector string
	minLen   int
	generic  map[string]bool
}

// NewIndexBuilder creates a builder using the heading selector and
// noise filters from cfg.
func NewIndexBuilder(cfg model.ExtractConfig) *IndexBuilder {
	generic := make(map[string]bool, len(cfg.GenericTitles))
	for _, title := range cfg.GenericTitles {
		generic[strings.ToLower(dom.CollapseSpace(title))] = true
	}
	return &IndexBuilder{
		selector: cfg.HeadingSelector,
		minLen:   cfg.MinLabelLength,
		generic:  generic,
	}
}

// Build scans snap for headings. Empty, short and generic labels are
// structural noise and are skipped.
func (b *IndexBuilder) Build(snap *dom.Snapshot) *Index {
	var boundaries []Boundary

	headings := snap.Find(b.selector)
	for i, n := range headings.Nodes {
		label := dom.Text(headings.Eq(i))
		if !b.usable(label) {
			continue
		}
		boundaries = append(boundaries, Boundary{
			Position: snap.Position(n),
			Name:     label,
		})
	}

	return NewIndex(boundaries)
}

func (b *IndexBuilder) usable(label string) bool {
	if label == "" {
		return false
	}
	if utf8.RuneCountInString(label) < b.minLen {
		return false
	}
	return !b.generic[strings.ToLower(label)]
}

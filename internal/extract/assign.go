package extract

import (
	"sort"

	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/model"
)

// Assigner maps a document position to the category that most recently
// preceded it.
type Assigner struct {
	index *Index
}

// NewAssigner creates an assigner over index. A nil index behaves as empty.
func NewAssigner(index *Index) *Assigner {
	if index == nil {
		index = NewIndex(nil)
	}
	return &Assigner{index: index}
}

// Assign returns the name of the boundary with the greatest position not
// after pos. Positions before every boundary, and the unknown position,
// resolve to the first boundary. An empty index yields model.Uncategorized.
func (a *Assigner) Assign(pos int) string {
	b := a.index.boundaries
	if len(b) == 0 {
		return model.Uncategorized
	}
	if pos <= dom.UnknownPosition {
		// Unknown positions come from nodes rendered inside the first
		// carousel, so they are anchored to the first category.
		return b[0].Name
	}

	i := sort.Search(len(b), func(i int) bool {
		return b[i].Position > pos
	})
	if i == 0 {
		return b[0].Name
	}
	return b[i-1].Name
}

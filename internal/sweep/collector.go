package sweep

import (
	"github.com/ppiankov/menusweep/internal/extract"
	"github.com/ppiankov/menusweep/internal/model"
)

// Collector is the shared accumulation state of one discovery: the ledger
// plus the category mapping. Every sweeper of a discovery absorbs into the
// same collector, one at a time.
type Collector struct {
	ledger   *Ledger
	assigner *extract.Assigner
	menu     *model.Menu
}

// NewCollector creates an empty collector attributing items with assigner.
func NewCollector(assigner *extract.Assigner) *Collector {
	if assigner == nil {
		assigner = extract.NewAssigner(nil)
	}
	return &Collector{
		ledger:   NewLedger(),
		assigner: assigner,
		menu:     model.NewMenu(),
	}
}

// Absorb adds every candidate whose identity is new and returns how many
// were added. Candidates already in the ledger are ignored even when they
// carry richer data; the first sighting wins.
func (c *Collector) Absorb(candidates []extract.Candidate) int {
	added := 0
	for _, cand := range candidates {
		if cand.Key == "" || c.ledger.Has(cand.Key) {
			continue
		}
		c.menu.Add(cand.Item(c.assigner.Assign(cand.Position)))
		c.ledger.Record(cand.Key)
		added++
	}
	return added
}

// Menu is the accumulated category mapping.
func (c *Collector) Menu() *model.Menu {
	return c.menu
}

// Ledger is the identity set backing the collector.
func (c *Collector) Ledger() *Ledger {
	return c.ledger
}

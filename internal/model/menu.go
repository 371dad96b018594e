package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Uncategorized labels items discovered on a page with no usable headings.
const Uncategorized = "Uncategorized"

// CategorizedItem is one catalog entry attributed to a category
type CategorizedItem struct {
	Category string   `json:"category"`
	Name     string   `json:"name"`
	Price    string   `json:"price,omitempty"`
	MediaRef string   `json:"image,omitempty"`
	Rating   string   `json:"rating,omitempty"` // e.g. "84% liked by 175 people"
	Tags     []string `json:"tags,omitempty"`   // e.g. "#1 Most liked"
}

// Menu maps category names to items. Categories and the items within each
// category keep first-seen order, and that order survives a JSON round trip.
type Menu struct {
	order []string
	items map[string][]CategorizedItem
}

// NewMenu returns an empty menu.
func NewMenu() *Menu {
	return &Menu{items: make(map[string][]CategorizedItem)}
}

// Add appends item to its category, creating the category on first use.
func (m *Menu) Add(item CategorizedItem) {
	if m.items == nil {
		m.items = make(map[string][]CategorizedItem)
	}
	if _, ok := m.items[item.Category]; !ok {
		m.order = append(m.order, item.Category)
	}
	m.items[item.Category] = append(m.items[item.Category], item)
}

// Categories returns category names in first-seen order.
func (m *Menu) Categories() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Items returns the items of one category in first-seen order.
func (m *Menu) Items(category string) []CategorizedItem {
	items := m.items[category]
	out := make([]CategorizedItem, len(items))
	copy(out, items)
	return out
}

// All flattens the menu in category order.
func (m *Menu) All() []CategorizedItem {
	var out []CategorizedItem
	for _, name := range m.order {
		out = append(out, m.items[name]...)
	}
	return out
}

// Len is the number of categories.
func (m *Menu) Len() int {
	return len(m.order)
}

// ItemCount is the number of items across all categories.
func (m *Menu) ItemCount() int {
	n := 0
	for _, items := range m.items {
		n += len(items)
	}
	return n
}

// MarshalJSON writes the menu as an object whose keys follow first-seen order.
func (m Menu) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("marshal category name: %w", err)
		}
		val, err := json.Marshal(m.items[name])
		if err != nil {
			return nil, fmt.Errorf("marshal category %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a menu, keeping the key order of the document.
func (m *Menu) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("menu: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("menu: expected object, got %v", tok)
	}

	*m = Menu{items: make(map[string][]CategorizedItem)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("menu: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("menu: expected category name, got %v", tok)
		}

		var items []CategorizedItem
		if err := dec.Decode(&items); err != nil {
			return fmt.Errorf("menu: category %q: %w", name, err)
		}
		if len(items) == 0 {
			// keep the key so the order survives
			if _, seen := m.items[name]; !seen {
				m.order = append(m.order, name)
				m.items[name] = nil
			}
			continue
		}
		for _, item := range items {
			item.Category = name
			m.Add(item)
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("menu: %w", err)
	}
	return nil
}

// RestaurantInfo describes the storefront itself
type RestaurantInfo struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Cuisine string `json:"cuisine,omitempty"`
}

// Review is one customer review card
type Review struct {
	Reviewer string `json:"reviewer_name,omitempty"`
	Posted   string `json:"post_date,omitempty"`
	Rating   string `json:"rating,omitempty"`
}

// RatingsSummary is the store-level rating plus any visible review cards
type RatingsSummary struct {
	OverallRating string   `json:"overall_rating"`
	ReviewCount   int      `json:"review_count"`
	Reviews       []Review `json:"individual_reviews,omitempty"`
}

// SweepOutcome is the terminal state an axis sweeper reached
type SweepOutcome string

const (
	SweepSaturated SweepOutcome = "saturated" // no more content, confirmed twice
	SweepAborted   SweepOutcome = "aborted"   // step ceiling reached first
)

// SweepStat records how one axis sweep ended
type SweepStat struct {
	Axis        string        `json:"axis"` // "vertical" or the panel XPath
	Outcome     SweepOutcome  `json:"outcome"`
	Steps       int           `json:"steps"`
	ItemsAdded  int           `json:"items_added"`
	FinalExtent float64       `json:"final_extent"`
	Duration    time.Duration `json:"duration_ns"`
}

// DiscoveryResult is everything one discovery produced for a storefront
type DiscoveryResult struct {
	RestaurantInfo RestaurantInfo `json:"restaurant_info"`
	Categories     *Menu          `json:"categories"`
	Headings       []string       `json:"headings,omitempty"` // category index, in position order
	Ratings        RatingsSummary `json:"ratings_summary"`
	Sweeps         []SweepStat    `json:"sweeps,omitempty"`
	PanelsFound    int            `json:"panels_found"`
}

// ItemCount is a nil-safe shortcut for Categories.ItemCount.
func (r *DiscoveryResult) ItemCount() int {
	if r == nil || r.Categories == nil {
		return 0
	}
	return r.Categories.ItemCount()
}

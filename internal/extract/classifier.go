package extract

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/menusweep/internal/dom"
)

var (
	// ErrNoMatch reports that a classifier does not apply to a node.
	ErrNoMatch = errors.New("no classifier matched")

	// ErrNoIdentity reports a node that looks like an item but has no
	// usable name, so it cannot be deduplicated.
	ErrNoIdentity = errors.New("item has no usable label")
)

// Classifier turns one candidate node into an item candidate. It returns
// ErrNoMatch when the node is not its kind of item.
type Classifier interface {
	// Name identifies the strategy in logs
	Name() string

	// Classify extracts a candidate from node
	Classify(node *goquery.Selection) (Candidate, error)
}

// Registry holds classifiers in rank order
type Registry struct {
	classifiers []Classifier
}

// NewRegistry creates a registry with the built-in strategies: the
// accessible-label classifier first, the item-card classifier second.
func NewRegistry() *Registry {
	registry := &Registry{
		classifiers: make([]Classifier, 0, 2),
	}

	registry.Register(NewLabelClassifier())
	registry.Register(NewCardClassifier())

	return registry
}

// Register appends a classifier with the lowest rank so far
func (r *Registry) Register(c Classifier) {
	r.classifiers = append(r.classifiers, c)
}

// Classify tries each classifier in rank order. The first definitive answer
// wins, whether it is a candidate or an error other than ErrNoMatch.
func (r *Registry) Classify(node *goquery.Selection) (cand Candidate, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("classify node: malformed structure: %v", p)
		}
	}()

	for _, c := range r.classifiers {
		cand, err := c.Classify(node)
		if errors.Is(err, ErrNoMatch) {
			continue
		}
		if err != nil {
			return Candidate{}, fmt.Errorf("%s: %w", c.Name(), err)
		}
		cand.Classifier = c.Name()
		return cand, nil
	}
	return Candidate{}, ErrNoMatch
}

// labelClassifier reads items that carry their name in aria-label, such as
// "Big Mac $5.49".
type labelClassifier struct{}

// NewLabelClassifier creates the aria-label strategy.
func NewLabelClassifier() Classifier {
	return labelClassifier{}
}

func (labelClassifier) Name() string { return "label" }

func (labelClassifier) Classify(node *goquery.Selection) (Candidate, error) {
	label, ok := node.Attr("aria-label")
	if !ok {
		return Candidate{}, ErrNoMatch
	}
	name := SplitName(label)
	if name == "" {
		return Candidate{}, ErrNoIdentity
	}
	return fillDetails(node, name, label), nil
}

// cardClassifier reads items whose name sits in a child element of the
// card rather than on the card itself.
type cardClassifier struct {
	nameSelectors []string
}

// NewCardClassifier creates the item-card strategy.
func NewCardClassifier() Classifier {
	return cardClassifier{
		nameSelectors: []string{
			`[data-testid="menu-item-name"]`,
			"h3",
			"h4",
			`[class*="ItemName"]`,
			`[class*="item-name"]`,
		},
	}
}

func (cardClassifier) Name() string { return "card" }

func (c cardClassifier) Classify(node *goquery.Selection) (Candidate, error) {
	label := firstText(node, c.nameSelectors)
	if label == "" {
		return Candidate{}, ErrNoMatch
	}
	name := SplitName(label)
	if name == "" {
		return Candidate{}, ErrNoIdentity
	}
	return fillDetails(node, name, label), nil
}

// fillDetails completes a candidate. When the node text carries no price,
// the one trailing the label is used.
func fillDetails(node *goquery.Selection, name, label string) Candidate {
	price := findPrice(node)
	if price == "" {
		price = currencyAmount.FindString(dom.CollapseSpace(label))
	}
	return Candidate{
		Key:      NormalizeKey(name),
		Name:     name,
		Price:    price,
		MediaRef: findMedia(node),
		Rating:   findRating(node),
		Tags:     findTags(node),
	}
}

// firstText returns the text of the first selector in the chain that
// matches something non-empty below node.
func firstText(node *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		found := node.Find(selector)
		for i := range found.Nodes {
			if text := dom.Text(found.Eq(i)); text != "" {
				return text
			}
		}
	}
	return ""
}

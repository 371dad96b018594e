package extract

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/model"
	"github.com/sirupsen/logrus"
)

var (
	// currencyStart marks where a price fragment begins inside a label.
	currencyStart = regexp.MustCompile(`[$€£¥₹]\s?\d`)

	// currencyAmount is a complete price such as "$5.49" or "€ 12,50".
	currencyAmount = regexp.MustCompile(`[$€£¥₹]\s?\d[\d,]*(?:\.\d+)?\+?`)

	likedPattern = regexp.MustCompile(`(?i)\d+%|liked`)
)

// Candidate is one item observed in one snapshot.
type Candidate struct {
	Key        string // identity used for deduplication
	Name       string
	Price      string
	MediaRef   string
	Rating     string
	Tags       []string
	Position   int    // document-order rank in the snapshot it came from
	Classifier string // strategy that produced it
}

// Item drops the identity and attaches the category.
func (c Candidate) Item(category string) model.CategorizedItem {
	return model.CategorizedItem{
		Category: category,
		Name:     c.Name,
		Price:    c.Price,
		MediaRef: c.MediaRef,
		Rating:   c.Rating,
		Tags:     c.Tags,
	}
}

// Sampler extracts item candidates from a snapshot
type Sampler struct {
	selector string
	registry *Registry
	base     *url.URL
	logger   logrus.FieldLogger
}

// NewSampler creates a sampler over cfg.ItemSelector. A nil registry gets
// the built-in classifiers.
func NewSampler(cfg model.ExtractConfig, registry *Registry, logger logrus.FieldLogger) *Sampler {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Sampler{
		selector: cfg.ItemSelector,
		registry: registry,
		logger:   logger.WithField("component", "sampler"),
	}
}

// WithBaseURL makes relative media references absolute against pageURL.
func (s *Sampler) WithBaseURL(pageURL string) *Sampler {
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		s.base = u
	}
	return s
}

// Sample returns one candidate per qualifying node, in document order. A
// node that fails classification is dropped and sampling continues.
func (s *Sampler) Sample(snap *dom.Snapshot) []Candidate {
	nodes := snap.Find(s.selector)
	candidates := make([]Candidate, 0, nodes.Length())

	for i, n := range nodes.Nodes {
		cand, err := s.registry.Classify(nodes.Eq(i))
		if err != nil {
			if !errors.Is(err, ErrNoMatch) {
				s.logger.WithFields(logrus.Fields{
					"position": snap.Position(n),
					"error":    err,
				}).Debug("Dropped item node")
			}
			continue
		}

		cand.Position = snap.Position(n)
		if s.base != nil && cand.MediaRef != "" {
			cand.MediaRef = resolveURL(s.base, cand.MediaRef)
		}
		candidates = append(candidates, cand)
	}

	return candidates
}

// NormalizeKey derives the identity key of an item name: lower-cased with
// whitespace runs folded.
func NormalizeKey(name string) string {
	return strings.ToLower(dom.CollapseSpace(name))
}

// SplitName cuts a label at its first price fragment and returns the clean
// name, so "Big Mac $5.49" becomes "Big Mac".
func SplitName(label string) string {
	label = dom.CollapseSpace(label)
	if loc := currencyStart.FindStringIndex(label); loc != nil {
		label = label[:loc[0]]
	}
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(label), ",-–•·"))
}

// findPrice returns the first currency amount among the node's text nodes.
func findPrice(node *goquery.Selection) string {
	for _, text := range dom.TextNodes(node) {
		if m := currencyAmount.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// findMedia returns the first image reference below node.
func findMedia(node *goquery.Selection) string {
	img := node.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" && !strings.HasPrefix(src, "data:") {
		return src
	}
	if src := strings.TrimSpace(img.AttrOr("data-src", "")); src != "" {
		return src
	}
	if srcset := strings.TrimSpace(img.AttrOr("srcset", "")); srcset != "" {
		first := strings.TrimSpace(strings.Split(srcset, ",")[0])
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

var ratingSelectors = []string{
	`[class*="rating"]`,
	`[class*="Rating"]`,
	`[class*="like"]`,
	`[class*="Like"]`,
	`span[class*="percentage"]`,
}

// findRating returns popularity text such as "84% liked by 175 people".
func findRating(node *goquery.Selection) string {
	for _, selector := range ratingSelectors {
		found := node.Find(selector)
		for i := range found.Nodes {
			text := dom.Text(found.Eq(i))
			if likedPattern.MatchString(text) {
				return text
			}
		}
	}
	for _, text := range dom.TextNodes(node) {
		if strings.Contains(text, "%") && strings.Contains(strings.ToLower(text), "liked") {
			return text
		}
	}
	return ""
}

var tagSelectors = []string{
	`[class*="tag"]`,
	`[class*="Tag"]`,
	`[class*="badge"]`,
	`[class*="Badge"]`,
	`span[class*="label"]`,
}

// findTags collects badges such as "#1 Most liked".
func findTags(node *goquery.Selection) []string {
	var tags []string
	seen := make(map[string]bool)
	add := func(text string) {
		if text == "" || seen[text] {
			return
		}
		lower := strings.ToLower(text)
		if strings.HasPrefix(text, "#") || strings.Contains(lower, "most ") {
			seen[text] = true
			tags = append(tags, text)
		}
	}

	for _, selector := range tagSelectors {
		found := node.Find(selector)
		for i := range found.Nodes {
			add(dom.Text(found.Eq(i)))
		}
	}
	if len(tags) == 0 {
		for _, text := range dom.TextNodes(node) {
			add(text)
		}
	}
	return tags
}

// resolveURL resolves a media reference against the page URL
func resolveURL(base *url.URL, ref string) string {
	if strings.HasPrefix(ref, "data:") {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}

	resolved := base.ResolveReference(parsed)

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	return resolved.String()
}

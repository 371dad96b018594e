package extract

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/menusweep/internal/dom"
	"github.com/ppiankov/menusweep/internal/model"
)

// UnknownName is reported when the store name cannot be found.
const UnknownName = "Unknown"

// NoRating is reported when no overall rating is visible.
const NoRating = "None"

var (
	wholeRating  = regexp.MustCompile(`^\d\.\d$`)
	outOfFive    = regexp.MustCompile(`\d+(?:\.\d+)?\s*/\s*5\b`)
	reviewCount  = regexp.MustCompile(`(?i)(\d[\d,]*)\+?\s*(?:ratings|reviews)`)
	looksNumeric = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

var (
	storeNameSelectors = []string{
		`h1[data-testid="store-name"]`,
		`[data-testid="store-header-name"]`,
		"h1",
		".store-name",
	}
	cuisineSelectors = []string{
		`[data-testid="store-cuisine"]`,
		".cuisine",
		`[class*="cuisine"]`,
	}
	reviewCardSelectors = []string{
		`[data-testid="review"]`,
		`[class*="ReviewCard"]`,
		`[class*="review-card"]`,
		`[class*="ReviewItem"]`,
	}
	reviewerSelectors = []string{
		`[data-testid="reviewer-name"]`,
		`[class*="name"]`,
		`[class*="Name"]`,
		`span[class*="author"]`,
	}
	reviewDateSelectors = []string{
		`[data-testid="review-date"]`,
		`[class*="date"]`,
		`[class*="Date"]`,
		"time",
	}
	reviewRatingSelectors = []string{
		`[data-testid="review-rating"]`,
		`[class*="rating"]`,
		`[class*="star"]`,
	}
)

// ExtractInfo reads the store header from snap. The cuisine is only
// reported when it is short enough to be a label.
func ExtractInfo(snap *dom.Snapshot, pageURL string) model.RestaurantInfo {
	root := snap.Root()

	info := model.RestaurantInfo{
		Name: firstText(root, storeNameSelectors),
		URL:  pageURL,
	}
	if info.Name == "" {
		info.Name = UnknownName
	}
	if cuisine := firstText(root, cuisineSelectors); len(cuisine) < 60 {
		info.Cuisine = cuisine
	}
	return info
}

// ExtractRatings reads the overall rating, the review count and any visible
// review cards.
func ExtractRatings(snap *dom.Snapshot) model.RatingsSummary {
	summary := model.RatingsSummary{OverallRating: NoRating}

	spans := snap.Find("span")
	for i := range spans.Nodes {
		if text := dom.Text(spans.Eq(i)); wholeRating.MatchString(text) {
			summary.OverallRating = text
			break
		}
	}
	if summary.OverallRating == NoRating {
		if text := dom.Text(snap.Find(`[data-testid="store-rating"]`).First()); text != "" {
			summary.OverallRating = text
		}
	}

	texts := dom.TextNodes(snap.Root())
	for _, text := range texts {
		if summary.OverallRating != NoRating {
			break
		}
		if m := outOfFive.FindString(text); m != "" {
			summary.OverallRating = m
		}
	}
	for _, text := range texts {
		if m := reviewCount.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
			if err == nil {
				summary.ReviewCount = n
				break
			}
		}
	}

	for _, selector := range reviewCardSelectors {
		cards := snap.Find(selector)
		if cards.Length() == 0 {
			continue
		}
		for i := range cards.Nodes {
			card := cards.Eq(i)
			review := model.Review{
				Reviewer: firstText(card, reviewerSelectors),
				Posted:   shortText(firstText(card, reviewDateSelectors), 50),
			}
			if rating := firstText(card, reviewRatingSelectors); looksNumeric.MatchString(rating) || strings.Contains(strings.ToLower(rating), "star") {
				review.Rating = rating
			}
			if review.Reviewer != "" || review.Rating != "" {
				summary.Reviews = append(summary.Reviews, review)
			}
		}
		break
	}

	return summary
}

// SubjectFromURL derives a readable label from a store URL, used when the
// page had no name. "/store/mcdonalds-davis-720446/1025484/" gives
// "mcdonalds-davis-720446".
func SubjectFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if part == "store" && i+1 < len(parts) {
			if name, err := url.PathUnescape(parts[i+1]); err == nil {
				return name
			}
			return parts[i+1]
		}
	}
	if base := path.Base(u.Path); base != "." && base != "/" {
		return base
	}
	return u.Host
}

func shortText(s string, limit int) string {
	if len(s) >= limit {
		return ""
	}
	return s
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/menusweep/internal/model"
)

// Renderer writes reports as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter bool
	out           io.Writer
	policy        *bluemonday.Policy
}

// NewRenderer creates a renderer whose summary goes to stderr
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{
		includeFooter: includeFooter,
		out:           os.Stderr,
		policy:        bluemonday.StrictPolicy(),
	}
}

// RenderJSON writes the report as indented JSON. "-" writes to stdout.
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	data = append(data, '\n')
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return writeFile(path, data)
}

// RenderMarkdown writes the Markdown report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// RenderLLMMarkdown writes an already rendered digest to path
func (r *Renderer) RenderLLMMarkdown(md string, path string) error {
	if md == "" {
		return nil
	}
	return writeFile(path, []byte(md))
}

// Markdown renders the report. Scraped text is stripped of markup and
// table-breaking characters.
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	res := report.Result

	fmt.Fprintf(&b, "# Menu: %s\n\n", r.text(report.Subject))
	fmt.Fprintf(&b, "**Source:** %s  \n", report.SourceURL)
	fmt.Fprintf(&b, "**Scanned:** %s (%s)", report.FetchedAt.Format(time.RFC3339), report.Duration.Round(time.Second))
	if report.Cached {
		b.WriteString(" _cached_")
	}
	b.WriteString("  \n")
	if res.RestaurantInfo.Cuisine != "" {
		fmt.Fprintf(&b, "**Cuisine:** %s  \n", r.text(res.RestaurantInfo.Cuisine))
	}
	fmt.Fprintf(&b, "**Rating:** %s (%d reviews)\n\n", r.text(res.Ratings.OverallRating), res.Ratings.ReviewCount)

	fmt.Fprintf(&b, "## Completeness: %d/100 (%s confidence)\n\n", report.Diagnostics.Index, report.Diagnostics.Confidence)
	if len(report.Diagnostics.Signals) > 0 {
		b.WriteString("| Signal | Severity | Description |\n|---|---|---|\n")
		for _, s := range report.Diagnostics.Signals {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Type, s.Severity, r.cell(s.Description))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Menu (%d items)\n\n", res.ItemCount())
	if res.Categories == nil || res.Categories.Len() == 0 {
		b.WriteString("_No items were discovered._\n\n")
	} else {
		for _, cat := range res.Categories.Categories() {
			items := res.Categories.Items(cat)
			fmt.Fprintf(&b, "### %s (%d)\n\n", r.text(cat), len(items))
			if len(items) == 0 {
				b.WriteString("_Empty._\n\n")
				continue
			}
			b.WriteString("| Item | Price | Rating | Tags |\n|---|---|---|---|\n")
			for _, it := range items {
				fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
					r.cell(it.Name), r.cell(it.Price), r.cell(it.Rating), r.cell(strings.Join(it.Tags, ", ")))
			}
			b.WriteString("\n")
		}
	}

	if len(res.Sweeps) > 0 {
		fmt.Fprintf(&b, "## Sweeps (%d panels found)\n\n", res.PanelsFound)
		b.WriteString("| Axis | Outcome | Steps | Items added | Final extent |\n|---|---|---|---|---|\n")
		for _, s := range res.Sweeps {
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %.0f |\n", r.cell(s.Axis), s.Outcome, s.Steps, s.ItemsAdded, s.FinalExtent)
		}
		b.WriteString("\n")
	}

	if len(res.Ratings.Reviews) > 0 {
		b.WriteString("## Reviews\n\n")
		for _, rv := range res.Ratings.Reviews {
			fmt.Fprintf(&b, "- %s, %s: %s\n", r.text(rv.Reviewer), r.text(rv.Posted), r.text(rv.Rating))
		}
		b.WriteString("\n")
	}

	if len(report.MediaChecks) > 0 {
		ok, dead := 0, 0
		for _, m := range report.MediaChecks {
			if m.IsAccessible {
				ok++
			}
			if m.IsDead {
				dead++
			}
		}
		fmt.Fprintf(&b, "## Media\n\n%d of %d images load, %d dead.\n\n", ok, len(report.MediaChecks), dead)
		for _, m := range report.MediaChecks {
			if m.IsDead {
				fmt.Fprintf(&b, "- %s (%d)\n", m.URL, m.StatusCode)
			}
		}
		if dead > 0 {
			b.WriteString("\n")
		}
	}

	if r.includeFooter {
		b.WriteString("---\n_Generated by menusweep. Prices and availability reflect the page at scan time._\n")
	}
	return b.String()
}

// RenderSummary prints a short summary of the report
func (r *Renderer) RenderSummary(report *model.Report) {
	res := report.Result
	categories := 0
	if res.Categories != nil {
		categories = res.Categories.Len()
	}
	fmt.Fprintf(r.out, "\n%s\n", r.text(report.Subject))
	fmt.Fprintf(r.out, "  Items:        %d in %d categories\n", res.ItemCount(), categories)
	fmt.Fprintf(r.out, "  Completeness: %d/100 (%s)\n", report.Diagnostics.Index, report.Diagnostics.Confidence)
	fmt.Fprintf(r.out, "  Rating:       %s (%d reviews)\n", r.text(res.Ratings.OverallRating), res.Ratings.ReviewCount)
	if report.Cached {
		fmt.Fprintln(r.out, "  (served from cache)")
	}
	for _, s := range report.Diagnostics.Signals {
		if s.Severity != model.SeverityInfo {
			fmt.Fprintf(r.out, "  ! %s\n", s.Description)
		}
	}
}

func (r *Renderer) text(s string) string {
	s = strings.TrimSpace(html.UnescapeString(r.policy.Sanitize(s)))
	if s == "" {
		return "-"
	}
	return s
}

func (r *Renderer) cell(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = r.text(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/menusweep/internal/pipeline"
	"github.com/ppiankov/menusweep/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan many storefronts listed in a file",
	Long: `Batch scans every URL in a file (one per line, # comments allowed):
- Navigations to the same domain share one rate limit
- Crawl-delay from robots.txt tightens that limit
- One report pair (JSON + Markdown) is written per store

Stores are scanned one at a time by default. Storefronts are quick to
flag parallel sessions, so raise --concurrency with care.

Example:
  menusweep batch stores.txt
  menusweep batch stores.txt --output-dir ./menus --timeout 2h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "stores scanned at once (0 = config, default 1)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./menusweep-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for the batch")
	addBrowserFlags(batchCmd.Flags())
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig(cmd.Flags())
	if err != nil {
		return err
	}
	workers := cfg.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}
	if workers <= 0 {
		workers = 1
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"file":    file,
		"workers": workers,
		"output":  outputDir,
		"rps":     cfg.RateLimiting.RequestsPerSecond,
	}).Info("Starting batch")

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	p, cleanup, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	p.WithLimiter(limiter)

	processor := worker.NewBatchProcessor(p, workers, limiter, logger)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	written := make(map[string]int)
	succeeded := 0
	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.URL, result.Error)
			continue
		}

		slug := uniqueSlug(written, sanitizeFilename(result.Report.Subject))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.URL, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.URL, err)
			continue
		}

		succeeded++
		fmt.Fprintf(os.Stderr, "✓ %s: %d items (completeness %d/100)\n",
			result.Report.Subject, result.Report.Result.ItemCount(), result.Report.Diagnostics.Index)
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d of %d stores captured, reports in %s\n",
		succeeded, len(results), outputDir)
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a store name into a safe file name
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	s = filenameReplacer.Replace(s)
	s = strings.Trim(s, ".-_")
	if s == "" {
		s = "store"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return strings.ToLower(s)
}

// uniqueSlug suffixes repeated slugs so two stores never share a report file
func uniqueSlug(seen map[string]int, slug string) string {
	seen[slug]++
	if n := seen[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}

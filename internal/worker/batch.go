package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/menusweep/internal/model"
)

// ErrNotRun marks URLs whose scan never started because the batch was cancelled
var ErrNotRun = errors.New("scan not run")

// Scanner scans one storefront URL
type Scanner interface {
	ScanURL(ctx context.Context, url string) (*model.Report, error)
}

// ScanJob scans a single URL once the host limiter lets it through
type ScanJob struct {
	URL     string
	Scanner Scanner
	Limiter *Limiter
}

// Execute executes the scan job
func (j *ScanJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.URL); err != nil {
			return &ScanResult{URL: j.URL, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}
	report, err := j.Scanner.ScanURL(ctx, j.URL)
	return &ScanResult{URL: j.URL, Report: report, Error: err}
}

// ScanResult is the outcome of one scan in a batch
type ScanResult struct {
	URL    string
	Report *model.Report
	Error  error
}

// GetError returns the error from the scan result
func (r *ScanResult) GetError() error {
	return r.Error
}

// BatchProcessor scans many storefronts on a worker pool
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
	limiter     *Limiter
	logger      logrus.FieldLogger
}

// NewBatchProcessor creates a new batch processor. limiter may be nil.
func NewBatchProcessor(scanner Scanner, concurrency int, limiter *Limiter, logger logrus.FieldLogger) *BatchProcessor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logger.WithField("component", "batch"),
	}
}

// ProcessURLs scans urls and returns one result per URL in input order
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*ScanResult {
	if len(urls) == 0 {
		return []*ScanResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, u := range urls {
		pool.Submit(&ScanJob{URL: u, Scanner: b.scanner, Limiter: b.limiter})
	}

	results := pool.Wait()

	out := make([]*ScanResult, len(urls))
	failed := 0
	for i, u := range urls {
		var sr *ScanResult
		if i < len(results) {
			sr, _ = results[i].(*ScanResult)
		}
		if sr == nil {
			sr = &ScanResult{URL: u, Error: ErrNotRun}
		}
		if sr.Error != nil {
			failed++
			b.logger.WithFields(logrus.Fields{"url": sr.URL}).WithError(sr.Error).Warn("Scan failed")
		}
		out[i] = sr
	}

	b.logger.WithFields(logrus.Fields{"total": len(urls), "failed": failed}).Info("Batch complete")
	return out
}

// ProcessFile reads URLs from a file and scans them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ScanResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}
	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file, one per line. Blank lines and #
// comments are skipped and duplicates dropped.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return urls, nil
}

package feed

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 5
	DefaultTimeout     = 30 * time.Second
)

// Runner drives fetch, parse and extract for a batch of feeds. Feeds are
// independent: a failing feed yields an error status and no items, and never
// affects its siblings.
type Runner struct {
	fetcher          *Fetcher
	parser           *Parser
	extractor        *Extractor
	contentExtractor *ContentExtractor
	concurrency      int
	timeout          time.Duration
	now              func() time.Time
}

func NewRunner(fetcher *Fetcher, parser *Parser, extractor *Extractor, contentExtractor *ContentExtractor, concurrency int, timeout time.Duration) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		fetcher:          fetcher,
		parser:           parser,
		extractor:        extractor,
		contentExtractor: contentExtractor,
		concurrency:      concurrency,
		timeout:          timeout,
		now:              time.Now,
	}
}

// Run never fails as a whole. Items keep per-feed entry order and are
// concatenated in config order; statuses follow config order. Nil configs
// are skipped.
func (r *Runner) Run(ctx context.Context, configs []*Config) Result {
	configs = slices.DeleteFunc(slices.Clone(configs), func(c *Config) bool {
		return c == nil
	})

	perFeed := make([][]ThreatItem, len(configs))
	statuses := make([]FeedStatus, len(configs))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, feedConfig := range configs {
		g.Go(func() error {
			perFeed[i], statuses[i] = r.runFeed(ctx, feedConfig)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, items := range perFeed {
		total += len(items)
	}
	result := Result{
		Items:    make([]ThreatItem, 0, total),
		Statuses: statuses,
	}
	for _, items := range perFeed {
		result.Items = append(result.Items, items...)
	}

	return result
}

func (r *Runner) runFeed(ctx context.Context, feedConfig *Config) (items []ThreatItem, status FeedStatus) {
	defer func() {
		if p := recover(); p != nil {
			items = nil
			status = errorStatus(feedConfig.FeedID, fmt.Errorf("feed processing panicked: %v", p))
		}
	}()

	parsed, err := r.process(ctx, feedConfig)
	if err != nil {
		return nil, errorStatus(feedConfig.FeedID, err)
	}

	severity := feedConfig.DefaultSeverity
	if !severity.Valid() {
		severity = SeverityLow
	}

	fetchedAt := parsed.FetchedAt
	return r.extractor.ExtractAll(parsed, severity), FeedStatus{
		FeedID:     feedConfig.FeedID,
		Status:     StateActive,
		LastUpdate: &fetchedAt,
	}
}

func (r *Runner) process(ctx context.Context, feedConfig *Config) (*ParsedFeed, error) {
	timeout := feedConfig.GetTimeout()
	if timeout == 0 {
		timeout = r.timeout
	}

	data, err := r.fetcher.Fetch(ctx, feedConfig.URL, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	fetchedAt := r.now().UTC()

	parsed, err := r.parser.Parse(data, feedConfig.FeedID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	parsed.FetchedAt = fetchedAt

	if feedConfig.Settings.ExtractContent && r.contentExtractor != nil {
		parsed = r.contentExtractor.Enrich(ctx, r.fetcher, parsed, timeout)
	}

	return parsed, nil
}

func errorStatus(feedID string, err error) FeedStatus {
	return FeedStatus{
		FeedID: feedID,
		Status: StateError,
		Error:  err.Error(),
	}
}

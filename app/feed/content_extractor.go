package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run returns the readable text of an HTML page.
func (e *ContentExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	var base *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			base = u
		}
	}

	article, err := readability.FromReader(bytes.NewReader(data), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	return text, nil
}

// Enrich returns a copy of parsed in which entries without rich content carry
// the readable text of their linked article. Entries whose page cannot be
// fetched or extracted are left as they were.
func (e *ContentExtractor) Enrich(ctx context.Context, fetcher *Fetcher, parsed *ParsedFeed, timeout time.Duration) *ParsedFeed {
	enriched := *parsed
	enriched.Entries = make([]RawEntry, len(parsed.Entries))

	for i, entry := range parsed.Entries {
		enriched.Entries[i] = entry
		if entry.RichContent != "" || entry.Link == "" {
			continue
		}
		if ctx.Err() != nil {
			continue
		}

		data, contentType, err := fetcher.FetchPage(ctx, entry.Link, timeout)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(contentType), "text/html") {
			continue
		}

		text, err := e.Run(data, entry.Link)
		if err != nil {
			continue
		}
		enriched.Entries[i].RichContent = text
	}

	return &enriched
}

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	feedAccept  = "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8"
	pageAccept  = "text/html, application/xhtml+xml;q=0.9, */*;q=0.8"
	maxFeedSize = 10 << 20
)

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func NewFetcher(httpClient *http.Client, userAgent string) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Fetch performs a single GET for a feed document. A zero timeout leaves the
// deadline to ctx. No retries are attempted.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	data, _, err := f.get(ctx, url, timeout, feedAccept)
	return data, err
}

// FetchPage fetches an HTML page and returns its body and Content-Type.
func (f *Fetcher) FetchPage(ctx context.Context, url string, timeout time.Duration) ([]byte, string, error) {
	return f.get(ctx, url, timeout, pageAccept)
}

func (f *Fetcher) get(ctx context.Context, url string, timeout time.Duration, accept string) ([]byte, string, error) {
	timeoutCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		timeoutCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", f.classify(ctx, timeoutCtx, url, timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return nil, "", f.classify(ctx, timeoutCtx, url, timeout, err)
	}
	if len(data) > maxFeedSize {
		return nil, "", &FetchError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status,
			Err: fmt.Errorf("response body exceeds %d bytes", maxFeedSize)}
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) classify(parent, timeoutCtx context.Context, url string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("fetch %s: %w", url, parent.Err())
	}
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return &FetchTimeoutError{URL: url, Timeout: timeout}
	}
	return &FetchError{URL: url, Err: err}
}

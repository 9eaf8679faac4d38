package videosource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// DefaultMaxBytes bounds a single in-memory video download.
const DefaultMaxBytes int64 = 512 << 20

// Fetcher downloads source videos over plain HTTP GET.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

func NewFetcher(timeout time.Duration, maxBytes int64) repository.IVideoSource {
	return NewFetcherWithHTTP(&http.Client{Timeout: timeout}, maxBytes)
}

func NewFetcherWithHTTP(httpClient *http.Client, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{httpClient: httpClient, maxBytes: maxBytes}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("get video: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("get video: %d bytes exceeds limit %d", resp.ContentLength, f.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("get video: body exceeds limit %d", f.maxBytes)
	}
	logger.GetLogger().WithField("bytes", len(data)).Debug("Fetched source video")
	return data, nil
}

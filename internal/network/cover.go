package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Since client 3.0 the album cover is no longer embedded in every NCM file;
// the metadata still names the picture URL, so fetching it is the one network
// touch in the whole pipeline.

const maxCoverSize = 16 * 1024 * 1024

// CoverFetcher downloads album pictures with a tuned shared client.
type CoverFetcher struct {
	client *http.Client
}

// NewCoverFetcher 创建封面下载器
func NewCoverFetcher() *CoverFetcher {
	return &CoverFetcher{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
	}
}

// Fetch downloads the picture at url. The body is capped at 16 MiB; anything
// larger is not cover art.
func (cf *CoverFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "ncmdump/1.0")

	resp, err := cf.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover fetch: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))
	if err != nil {
		return nil, fmt.Errorf("cover fetch: read body: %w", err)
	}
	return data, nil
}

var (
	defaultFetcher *CoverFetcher
	fetcherOnce    sync.Once
)

// FetchCover downloads url with the shared default fetcher.
func FetchCover(ctx context.Context, url string) ([]byte, error) {
	fetcherOnce.Do(func() {
		defaultFetcher = NewCoverFetcher()
	})
	return defaultFetcher.Fetch(ctx, url)
}

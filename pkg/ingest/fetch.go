package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxFileBytes caps a fetched file at 50 MB.
const maxFileBytes = 50 << 20

// fetchWithRetry downloads one file, retrying transient failures a bounded
// number of times with a fixed delay. It returns the body and the response
// Content-Type.
func (p *Pipeline) fetchWithRetry(ctx context.Context, fileURL string) ([]byte, string, error) {
	var lastErr error

	for attempt := 0; attempt < p.config.FetchRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("fetch failed, retrying",
				"url", fileURL,
				"attempt", attempt,
				"retries", p.config.FetchRetries,
				"wait", p.config.FetchRetryWait,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, "", fmt.Errorf("fetch canceled: %w", ctx.Err())
			case <-time.After(p.config.FetchRetryWait):
			}
		}

		body, contentType, err := p.fetchOnce(ctx, fileURL)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err
	}

	return nil, "", fmt.Errorf("fetch %s after %d attempts: %w", fileURL, p.config.FetchRetries, lastErr)
}

func (p *Pipeline) fetchOnce(ctx context.Context, fileURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("received status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}

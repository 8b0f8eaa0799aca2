// Package download fetches remote media over HTTP with progress reporting.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ProgressFunc receives download progress. Percent and total are -1 and 0
// respectively when the server does not announce a content length.
type ProgressFunc func(percent float64, written, total int64)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client downloads files into a working directory.
type Client struct {
	httpClient *http.Client
}

// New constructs a download client. timeout bounds the full transfer; zero
// means no limit beyond context cancellation.
func New(timeout time.Duration, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch downloads url into destPath, creating parent directories as needed.
// The file is written to a temporary sibling first and renamed on success so
// a cancelled or failed transfer never leaves a partial file at destPath.
func (c *Client) Fetch(ctx context.Context, url, destPath string, onProgress ProgressFunc) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("download: empty url")
	}
	if strings.TrimSpace(destPath) == "" {
		return errors.New("download: empty destination")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	tmpPath := destPath + ".partial"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmpPath, err)
	}

	counter := &progressWriter{
		total:      resp.ContentLength,
		onProgress: onProgress,
	}
	_, copyErr := io.Copy(io.MultiWriter(out, counter), resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("download %s: %w", url, copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, closeErr)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize %s: %w", destPath, err)
	}
	counter.finish()
	return nil
}

type progressWriter struct {
	total      int64
	written    int64
	onProgress ProgressFunc
	lastReport time.Time
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	if w.onProgress == nil {
		return len(p), nil
	}
	now := time.Now()
	if now.Sub(w.lastReport) < 250*time.Millisecond {
		return len(p), nil
	}
	w.lastReport = now
	w.onProgress(w.percent(), w.written, w.announcedTotal())
	return len(p), nil
}

func (w *progressWriter) finish() {
	if w.onProgress == nil {
		return
	}
	if w.total > 0 {
		w.onProgress(100, w.written, w.total)
		return
	}
	w.onProgress(-1, w.written, 0)
}

// announcedTotal normalizes the unknown-length sentinel (-1) to zero.
func (w *progressWriter) announcedTotal() int64 {
	if w.total > 0 {
		return w.total
	}
	return 0
}

func (w *progressWriter) percent() float64 {
	if w.total <= 0 {
		return -1
	}
	percent := float64(w.written) / float64(w.total) * 100
	if percent > 100 {
		percent = 100
	}
	return percent
}

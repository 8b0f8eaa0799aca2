package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subforge/internal/jobs"
)

// Client talks to a running daemon's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for the daemon listening at bind, given as
// host:port or a full URL.
func NewClient(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit enqueues a job from remote video and subtitle sources.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/submit", "application/json", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// SubmitWithFile enqueues a job with a locally uploaded subtitle file.
func (c *Client) SubmitWithFile(ctx context.Context, req SubmitRequest, subtitlePath string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("video_url", req.VideoURL); err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	if err := writer.WriteField("soft", fmt.Sprintf("%t", req.Soft)); err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	for _, label := range req.Resolutions {
		if err := writer.WriteField("resolutions", label); err != nil {
			return "", fmt.Errorf("encode form: %w", err)
		}
	}

	file, err := os.Open(subtitlePath)
	if err != nil {
		return "", fmt.Errorf("open subtitle: %w", err)
	}
	defer file.Close()
	part, err := writer.CreateFormFile("subtitle", filepath.Base(subtitlePath))
	if err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}

	var resp SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/submit/upload", writer.FormDataContentType(), &buf, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// Job fetches one job by id.
func (c *Client) Job(ctx context.Context, id string) (*jobs.Job, error) {
	var resp JobResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Job, nil
}

// Jobs fetches the full job listing, newest first.
func (c *Client) Jobs(ctx context.Context) ([]*jobs.Job, error) {
	var resp JobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Cancel requests cancellation of a job.
func (c *Client) Cancel(ctx context.Context, id string) error {
	var resp CancelResponse
	return c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", "", nil, &resp)
}

// LogsQuery selects which part of the daemon log to fetch. A negative Offset
// requests the last Limit lines.
type LogsQuery struct {
	Offset int64
	Limit  int
	Follow bool
}

// Logs fetches daemon log lines. With Follow set the daemon holds the
// request open briefly waiting for new lines.
func (c *Client) Logs(ctx context.Context, q LogsQuery) (LogTailResponse, error) {
	values := url.Values{}
	values.Set("offset", strconv.FormatInt(q.Offset, 10))
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	var resp LogTailResponse
	err := c.do(ctx, http.MethodGet, "/api/logs?"+values.Encode(), "", nil, &resp)
	return resp, err
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", "", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

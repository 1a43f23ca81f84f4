// Package fal is a minimal client for the fal.ai queue API, used to render
// marketing videos from text prompts or animate customer photos.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ModelTextToVideo  = "fal-ai/wan-2.1-t2v-1.3b"
	ModelImageToVideo = "fal-ai/wan-2.1-i2v-1.3b"

	maxResponseSizeBytes = 2 << 20
)

// Canned URLs returned in test mode so the pipeline can run without spending
// render minutes.
const (
	testTextVideoURL  = "https://videos.pexels.com/video-files/855564/855564-hd_1920_1080_25fps.mp4"
	testImageVideoURL = "https://videos.pexels.com/video-files/4763826/4763826-uhd_2560_1440_24fps.mp4"
)

type Config struct {
	URL          string        `split_words:"true" default:"https://queue.fal.run"`
	Key          string        `split_words:"true" required:"true"`
	Timeout      time.Duration `split_words:"true" default:"15s"`
	PollInterval time.Duration `split_words:"true" default:"2s"`
	PollDeadline time.Duration `split_words:"true" default:"3m"`
	TestMode     bool          `split_words:"true" default:"false"`
}

type Client struct {
	baseURL      string
	key          string
	httpClient   *http.Client
	pollInterval time.Duration
	pollDeadline time.Duration
	testMode     bool
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("fal url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	if !cfg.TestMode && strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("fal key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	pollDeadline := cfg.PollDeadline
	if pollDeadline <= 0 {
		pollDeadline = 3 * time.Minute
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		key:          strings.TrimSpace(cfg.Key),
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
		pollDeadline: pollDeadline,
		testMode:     cfg.TestMode,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type renderResult struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}

// Render submits args to the given model and blocks until the queue reports
// completion, returning the hosted video URL.
func (c *Client) Render(ctx context.Context, model string, args map[string]any) (string, error) {
	if c.testMode {
		if model == ModelImageToVideo {
			return testImageVideoURL, nil
		}
		return testTextVideoURL, nil
	}

	submitted, err := c.submit(ctx, model, args)
	if err != nil {
		return "", err
	}

	deadline := time.NewTimer(c.pollDeadline)
	defer deadline.Stop()
	tick := time.NewTicker(c.pollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("fal render timed out after %s (request_id=%s)", c.pollDeadline, submitted.RequestID)
		case <-tick.C:
		}

		var status statusResponse
		if err := c.getJSON(ctx, submitted.StatusURL, &status); err != nil {
			return "", err
		}
		switch status.Status {
		case "COMPLETED":
			var result renderResult
			if err := c.getJSON(ctx, submitted.ResponseURL, &result); err != nil {
				return "", err
			}
			if strings.TrimSpace(result.Video.URL) == "" {
				return "", errors.New("fal result has no video url")
			}
			return result.Video.URL, nil
		case "FAILED":
			return "", fmt.Errorf("fal render failed (request_id=%s)", submitted.RequestID)
		}
	}
}

func (c *Client) submit(ctx context.Context, model string, args map[string]any) (*submitResponse, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal fal arguments: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+strings.TrimLeft(model, "/"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build fal request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit fal request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read fal response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fal http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed submitResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode fal submit response: %w", err)
	}
	if parsed.StatusURL == "" || parsed.ResponseURL == "" {
		return nil, errors.New("fal submit response missing queue urls")
	}
	return &parsed, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build fal poll request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("poll fal queue: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read fal poll response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("fal http status=%d body=%s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode fal poll response: %w", err)
	}
	return nil
}

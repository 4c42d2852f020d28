// Package video drives asynchronous video generation jobs and keeps a
// per-creator history of every job it has seen.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/upb/llm-tenant-gateway/services/providers"
)

const (
	DefaultDuration = 5
	DefaultModel    = "sora-1"
)

// Job states reported by the provider
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var (
	ErrNoVideo        = errors.New("provider returned no video")
	ErrURLUnavailable = errors.New("video URL not available, wait for generation to complete")
)

// Options configures a Creator. Zero values select the defaults.
type Options struct {
	Duration   int
	Model      string
	HTTPClient *http.Client
}

// Result is the creator's view of one generation job
type Result struct {
	ID     string `json:"id"`
	URL    string `json:"url,omitempty"`
	Status string `json:"status"`
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Creator submits generation jobs and downloads their output
type Creator struct {
	provider providers.VideoProvider
	duration int
	model    string
	client   *http.Client

	mu      sync.Mutex
	order   []string
	results map[string]Result
}

func New(provider providers.VideoProvider, opts Options) *Creator {
	c := &Creator{
		provider: provider,
		duration: opts.Duration,
		model:    opts.Model,
		client:   opts.HTTPClient,
		results:  make(map[string]Result),
	}
	if c.duration <= 0 {
		c.duration = DefaultDuration
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 5 * time.Minute}
	}
	return c
}

// Create submits a new job. duration and model override the creator's
// defaults when non-zero.
func (c *Creator) Create(ctx context.Context, prompt string, duration int, model string) (*Result, error) {
	if duration <= 0 {
		duration = c.duration
	}
	if model == "" {
		model = c.model
	}

	resp, err := c.provider.CreateVideo(ctx, &providers.VideoRequest{
		Model:    model,
		Prompt:   prompt,
		Duration: duration,
	})
	if err != nil {
		return nil, fmt.Errorf("video creation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].ID == "" {
		return nil, fmt.Errorf("video creation failed: %w", ErrNoVideo)
	}

	v := resp.Data[0]
	result := Result{
		ID:     v.ID,
		URL:    v.URL,
		Status: normalizeStatus(v.Status),
		Model:  model,
		Prompt: prompt,
	}
	c.remember(result)
	return &result, nil
}

// Status fetches the current state of a job
func (c *Creator) Status(ctx context.Context, id string) (*Result, error) {
	v, err := c.provider.GetVideo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get video status failed: %w", err)
	}

	result := Result{
		ID:     v.ID,
		URL:    v.URL,
		Status: normalizeStatus(v.Status),
		Model:  v.Model,
		Prompt: v.Prompt,
	}
	if result.ID == "" {
		result.ID = id
	}
	if result.Model == "" {
		result.Model = c.model
	}
	c.remember(result)
	return &result, nil
}

// Download writes the finished video to path, creating parent directories
// as needed, and returns the absolute path written.
func (c *Creator) Download(ctx context.Context, id, path string) (string, error) {
	result, err := c.Status(ctx, id)
	if err != nil {
		return "", fmt.Errorf("video download failed: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("video download failed: %w", ErrURLUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		return "", fmt.Errorf("video download failed: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("video download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("video download failed: unexpected status %d", resp.StatusCode)
	}

	full, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("video download failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("video download failed: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("video download failed: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("video download failed: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("video download failed: %w", err)
	}
	return full, nil
}

// History returns every job seen so far, in the order first observed
func (c *Creator) History() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Result, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.results[id])
	}
	return out
}

func (c *Creator) remember(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.results[r.ID]; !ok {
		c.order = append(c.order, r.ID)
	}
	c.results[r.ID] = r
}

func normalizeStatus(s string) string {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return s
	default:
		return StatusPending
	}
}

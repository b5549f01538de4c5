// Package leonardo submits image generation jobs to the Leonardo.AI REST API.
// Completion arrives later through the webhook.
package leonardo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultModelID     = "1dd50843-d653-4516-a8e3-f0238ee453ff" // Flux Schnell
	DefaultPresetStyle = "DYNAMIC"
	DefaultWidth       = 664
	DefaultHeight      = 1184
	DefaultNumImages   = 1
	DefaultContrast    = 3.5
)

// Options are the fixed generation parameters applied to every prompt.
type Options struct {
	ModelID     string
	PresetStyle string
	Width       int
	Height      int
	NumImages   int
	Contrast    float64
}

func DefaultOptions() Options {
	return Options{
		ModelID:     DefaultModelID,
		PresetStyle: DefaultPresetStyle,
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		NumImages:   DefaultNumImages,
		Contrast:    DefaultContrast,
	}
}

type Client struct {
	baseURL    string
	apiKey     string
	opts       Options
	httpClient *http.Client
	backoffs   []time.Duration
}

type GenerationRequest struct {
	ModelID       string  `json:"modelId"`
	Prompt        string  `json:"prompt"`
	Contrast      float64 `json:"contrast,omitempty"`
	PresetStyle   string  `json:"presetStyle,omitempty"`
	NumImages     int     `json:"num_images"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	EnhancePrompt bool    `json:"enhancePrompt"`
	Public        bool    `json:"public"`
	Ultra         bool    `json:"ultra"`
}

type GenerationResponse struct {
	SDGenerationJob *struct {
		GenerationID  string `json:"generationId"`
		APICreditCost int    `json:"apiCreditCost,omitempty"`
	} `json:"sdGenerationJob"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("leonardo: status %d, body: %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt could succeed: transport errors,
// rate limiting and server errors.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func NewClient(baseURL, apiKey string, opts Options) *Client {
	defaults := DefaultOptions()
	if opts.ModelID == "" {
		opts.ModelID = defaults.ModelID
	}
	if opts.PresetStyle == "" {
		opts.PresetStyle = defaults.PresetStyle
	}
	if opts.Width == 0 {
		opts.Width = defaults.Width
	}
	if opts.Height == 0 {
		opts.Height = defaults.Height
	}
	if opts.NumImages == 0 {
		opts.NumImages = defaults.NumImages
	}
	if opts.Contrast == 0 {
		opts.Contrast = defaults.Contrast
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		opts:    opts,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithBackoffs replaces the retry schedule. An empty schedule disables retries.
func (c *Client) WithBackoffs(backoffs ...time.Duration) *Client {
	c.backoffs = backoffs
	return c
}

// SubmitImageGeneration starts a generation job for prompt and returns the
// provider's generation id.
func (c *Client) SubmitImageGeneration(ctx context.Context, prompt string) (string, error) {
	var generationID string
	err := c.RetryWithBackoff(ctx, func() error {
		id, err := c.createGeneration(ctx, prompt)
		if err != nil {
			return err
		}
		generationID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return generationID, nil
}

func (c *Client) createGeneration(ctx context.Context, prompt string) (string, error) {
	requestBody := GenerationRequest{
		ModelID:     c.opts.ModelID,
		Prompt:      prompt,
		Contrast:    c.opts.Contrast,
		PresetStyle: c.opts.PresetStyle,
		NumImages:   c.opts.NumImages,
		Width:       c.opts.Width,
		Height:      c.opts.Height,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/generations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result GenerationResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}

	if result.SDGenerationJob == nil || result.SDGenerationJob.GenerationID == "" {
		return "", fmt.Errorf("generationId is empty in response, body: %s", string(body))
	}

	return result.SDGenerationJob.GenerationID, nil
}

// RetryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error, or the backoff schedule is exhausted.
func (c *Client) RetryWithBackoff(ctx context.Context, fn func() error) error {
	attempts := len(c.backoffs) + 1

	var lastErr error
	tried := 0
	for i := 0; i < attempts; i++ {
		tried++
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-time.After(c.backoffs[i]):
		}
	}

	if tried == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", tried, lastErr)
}

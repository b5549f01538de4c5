// Package elevenlabs converts narration scripts to mp3 audio through the
// ElevenLabs text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultOutputFormat = "mp3_44100_128"

type VoiceSettings struct {
	Speed           float64 `json:"speed"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type textToSpeechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

type Client struct {
	baseURL    string
	apiKey     string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, voiceID, modelID string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: modelID,
		httpClient: &http.Client{
			// Long scripts take a while to synthesize.
			Timeout: 2 * time.Minute,
		},
	}
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Synthesize returns the mp3 rendering of text.
func (c *Client) Synthesize(ctx context.Context, text string, settings VoiceSettings) ([]byte, error) {
	jsonData, err := json.Marshal(textToSpeechRequest{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimSuffix(c.baseURL, "/") + "/text-to-speech/" + url.PathEscape(c.voiceID) +
		"?output_format=" + DefaultOutputFormat
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("text to speech failed: status %d, body: %s", resp.StatusCode, detailMessage(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("text to speech returned no audio")
	}

	return body, nil
}

// detailMessage pulls detail.message out of an ElevenLabs error body, falling
// back to the raw body.
func detailMessage(body []byte) string {
	var payload struct {
		Detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail.Message != "" {
		if payload.Detail.Status != "" {
			return payload.Detail.Status + ": " + payload.Detail.Message
		}
		return payload.Detail.Message
	}
	return string(body)
}

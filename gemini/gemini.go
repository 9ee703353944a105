package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"

	"skin-diagnosis-service/llm"
	"skin-diagnosis-service/retry"
)

const baseURL = "https://generativelanguage.googleapis.com"

const requestTimeout = 120 * time.Second

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client talks to the Google Generative Language API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	policy  retry.Policy
}

// NewClient creates a Gemini client with the default overload retry
// schedule (30s, 60s, 90s).
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		policy: retry.Policy{
			MaxAttempts: 3,
			Backoff:     []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second},
			Retryable:   isOverloaded,
		},
	}, nil
}

func (c *Client) SourceName() string {
	return "Gemini"
}

// Diagnose sends the fixed prompt and the image inline. Overload responses
// are retried on the backoff schedule before being surfaced as unavailable.
func (c *Client) Diagnose(ctx context.Context, imageData []byte) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: llm.Prompt},
					{InlineData: &inlineData{
						MimeType: "image/jpeg",
						Data:     base64.StdEncoding.EncodeToString(imageData),
					}},
				},
			},
		},
	}

	var text string
	err := c.policy.Do(ctx, func() error {
		var attemptErr error
		text, attemptErr = c.generateContent(ctx, reqBody)
		if attemptErr != nil && isOverloaded(attemptErr) {
			log.WithError(attemptErr).Warn("Gemini overloaded, will retry")
		}
		return attemptErr
	})
	if err != nil {
		if isOverloaded(err) {
			return "", fmt.Errorf("%w: Gemini is temporarily overloaded, please try again in a few minutes", llm.ErrUnavailable)
		}
		return "", err
	}
	return text, nil
}

// generateContent tries the v1beta endpoint first and falls back to v1,
// since model availability differs between the two API versions.
func (c *Client) generateContent(ctx context.Context, body generateRequest) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoints := []string{
		fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey),
		fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey),
	}

	var lastErr error
	for _, ep := range endpoints {
		text, err := c.post(ctx, ep, data)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, endpoint string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to reach Gemini: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", llm.ErrBackend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: Gemini status %d: %s", llm.ErrBackend, resp.StatusCode, string(body))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("%w: failed to parse response envelope: %v", llm.ErrBackend, err)
	}
	if len(gr.Candidates) == 0 {
		return "", fmt.Errorf("%w: Gemini returned no candidates", llm.ErrBackend)
	}

	for _, p := range gr.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text, nil
		}
	}
	return "", llm.ErrEmptyResponse
}

// isOverloaded matches the transient signals Gemini emits under load.
func isOverloaded(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "status 503") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded")
}

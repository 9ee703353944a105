package fireworks

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"skin-diagnosis-service/llm"
)

const defaultEndpoint = "https://api.fireworks.ai/inference/v1/chat/completions"

// Vision models answer slowly; keep this well above a text-model timeout.
const requestTimeout = 120 * time.Second

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageURL struct {
	URL string `json:"url"`
}

type imageContent struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model            string    `json:"model"`
	MaxTokens        int       `json:"max_tokens"`
	TopP             float64   `json:"top_p"`
	TopK             int       `json:"top_k"`
	PresencePenalty  float64   `json:"presence_penalty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	Temperature      float64   `json:"temperature"`
	Messages         []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client talks to the Fireworks AI chat-completions API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a Fireworks client. The key is required; the model is
// expected to be a vision-capable account path.
func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("fireworks API key is required")
	}
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}, nil
}

// SourceName identifies this provider in logs and metrics.
func (c *Client) SourceName() string {
	return "Fireworks"
}

// Diagnose sends the fixed prompt and the image as an inline data URL and
// returns the model's raw text completion.
func (c *Client) Diagnose(ctx context.Context, imageData []byte) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		MaxTokens:   1000,
		TopP:        1,
		TopK:        40,
		Temperature: 0.6,
		Messages: []message{
			{
				Role: "user",
				Content: []any{
					textContent{Type: "text", Text: llm.Prompt},
					imageContent{
						Type:     "image_url",
						ImageURL: imageURL{URL: dataURL(imageData)},
					},
				},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to reach Fireworks: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", llm.ErrBackend, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: Fireworks status %d: %s", llm.ErrBackend, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response envelope: %v", llm.ErrBackend, err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: Fireworks returned no choices", llm.ErrBackend)
	}

	content := chatResp.Choices[0].Message.Content
	if content == "" {
		return "", llm.ErrEmptyResponse
	}

	return content, nil
}

func dataURL(imageData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)
}

package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"skin-diagnosis-service/llm"
)

const requestTimeout = 60 * time.Second

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

var refinedConfidencePattern = regexp.MustCompile(`(?i)REFINED_CONFIDENCE:\s*([0-9]*\.?[0-9]+)`)

// Client talks to a local Ollama server. A vision model produces the
// primary diagnosis; a second text-only model optionally refines the
// disease confidence.
type Client struct {
	visionModel string
	textModel   string
	baseURL     string
	client      *http.Client
}

// NewClient creates an Ollama client and verifies the server is reachable,
// so a dead local daemon is reported at startup rather than on the first
// diagnosis.
func NewClient(baseURL, visionModel, textModel string) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	c := &Client{
		visionModel: visionModel,
		textModel:   textModel,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: requestTimeout},
	}
	if err := c.checkConnection(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) SourceName() string {
	return "Ollama"
}

func (c *Client) checkConnection() error {
	resp, err := c.client.Get(c.baseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Ollama at %s, is it running? %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama at %s answered status %d", c.baseURL, resp.StatusCode)
	}
	return nil
}

// Diagnose sends the fixed prompt plus the image to the vision model.
func (c *Client) Diagnose(ctx context.Context, imageData []byte) (string, error) {
	reqBody := chatRequest{
		Model: c.visionModel,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: llm.Prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(imageData)},
			},
		},
		Stream: false,
	}
	return c.chat(ctx, reqBody)
}

// RefineConfidence asks the text model to re-assess the vision model's
// finding. Any failure is swallowed: the caller keeps the original
// confidence when ok is false.
func (c *Client) RefineConfidence(ctx context.Context, disease string, confidence float64) (float64, bool) {
	prompt := fmt.Sprintf(`You are a medical AI assistant. A vision model has diagnosed: %s with %.1f%% confidence.

Please refine this diagnosis by:
1. Confirming if this is a reasonable diagnosis for skin conditions
2. Providing a more precise confidence score based on your medical knowledge
3. Suggesting if this could be a different condition

Respond with:
REFINED_CONFIDENCE: [adjusted confidence 0.0-1.0]
REASONING: [brief explanation]
`, disease, confidence*100)

	reqBody := chatRequest{
		Model: c.textModel,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Stream: false,
	}

	text, err := c.chat(ctx, reqBody)
	if err != nil {
		log.WithError(err).Warn("Confidence refinement failed, keeping vision model confidence")
		return 0, false
	}

	m := refinedConfidencePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	refined, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return refined, true
}

func (c *Client) chat(ctx context.Context, body chatRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to reach Ollama: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", llm.ErrBackend, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: Ollama status %d: %s", llm.ErrBackend, resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("%w: failed to parse response envelope: %v", llm.ErrBackend, err)
	}

	if cr.Message.Content == "" {
		return "", llm.ErrEmptyResponse
	}
	return cr.Message.Content, nil
}

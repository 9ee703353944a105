package huggingface

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

	"skin-diagnosis-service/llm"
)

const baseURL = "https://api-inference.huggingface.co/models/"

const requestTimeout = 60 * time.Second

type vqaInputs struct {
	Question string `json:"question"`
	Image    string `json:"image"`
}

type vqaRequest struct {
	Inputs vqaInputs `json:"inputs"`
}

type vqaResult struct {
	GeneratedText string `json:"generated_text"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client talks to the Hugging Face Inference API using the VQA task shape:
// the fixed prompt rides along as the "question".
type Client struct {
	apiToken string
	model    string
	baseURL  string
	client   *http.Client
}

func NewClient(apiToken, model string) (*Client, error) {
	if apiToken == "" {
		return nil, fmt.Errorf("hugging face API token is required")
	}
	return &Client{
		apiToken: apiToken,
		model:    model,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: requestTimeout},
	}, nil
}

func (c *Client) SourceName() string {
	return "HuggingFace"
}

func (c *Client) Diagnose(ctx context.Context, imageData []byte) (string, error) {
	reqBody := vqaRequest{
		Inputs: vqaInputs{
			Question: llm.Prompt,
			Image:    base64.StdEncoding.EncodeToString(imageData),
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// wait_for_model blocks until cold models finish loading instead of
	// answering 503.
	endpoint := c.baseURL + c.model + "?wait_for_model=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to reach Hugging Face: %v", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", llm.ErrBackend, err)
	}

	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && strings.Contains(ae.Error, "currently loading") {
			return "", fmt.Errorf("%w: model is loading, please try again in 20 seconds", llm.ErrUnavailable)
		}
		return "", fmt.Errorf("%w: Hugging Face status %d: %s", llm.ErrBackend, resp.StatusCode, string(body))
	}

	var results []vqaResult
	if err := json.Unmarshal(body, &results); err != nil || len(results) == 0 {
		return "", fmt.Errorf("%w: unexpected Hugging Face response: %s", llm.ErrBackend, string(body))
	}

	text := results[0].GeneratedText
	// LLaVA-style models echo the prompt back; keep only the completion.
	if idx := strings.LastIndex(text, llm.Prompt); idx != -1 {
		text = text[idx+len(llm.Prompt):]
	}
	text = strings.TrimSpace(text)

	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

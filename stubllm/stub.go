package stubllm

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// Client is a deterministic, no-network backend intended for CI and local
// end-to-end tests. Its replies are valid completions, so parsing and
// validation exercise the full diagnosis path.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

// Diagnose returns a canned diagnosis keyed on the image hash so the same
// input always produces the same result.
func (c *Client) Diagnose(ctx context.Context, imageData []byte) (string, error) {
	sum := sha256.Sum256(imageData)
	if sum[0]%2 == 0 {
		return "STATUS: healthy\nCONFIDENCE: 0.95\nDISEASE: None\nDISEASE_CONFIDENCE: 0.0", nil
	}
	confidence := 0.5 + float64(sum[1])/512.0
	return fmt.Sprintf("STATUS: unhealthy\nCONFIDENCE: %.2f\nDISEASE: Stub Dermatitis\nDISEASE_CONFIDENCE: %.2f",
		confidence, confidence-0.1), nil
}

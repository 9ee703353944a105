package llm

import (
	"context"
	"errors"
)

// Prompt is the fixed instruction sent with every image. The STATUS /
// CONFIDENCE / DISEASE / DISEASE_CONFIDENCE lines are a contract with the
// parser package; do not reword them without updating the field patterns.
const Prompt = `You are a specialized medical AI dermatologist. Analyze the provided image of a skin condition.
Respond *only* in the following format, with no other text:
STATUS: [healthy/unhealthy]
CONFIDENCE: [a float number between 0.0 and 1.0]
DISEASE: [Name of disease, or "None"]
DISEASE_CONFIDENCE: [a float number between 0.0 and 1.0, or 0.0]
`

// Failure classes shared by every provider. Adapters wrap these so callers
// can map them to HTTP statuses with errors.Is.
var (
	// ErrUnavailable reports a connection-level failure or a provider that
	// stayed overloaded through all retries.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrBackend reports a non-success status or a malformed response envelope.
	ErrBackend = errors.New("backend error")
	// ErrEmptyResponse reports a well-formed envelope with no usable text.
	ErrEmptyResponse = errors.New("backend returned an empty response")
)

// Client abstracts one vision-model provider.
// Implementations must be safe for concurrent use.
type Client interface {
	// Diagnose sends the fixed prompt plus the (already normalized) image
	// to the provider and returns the model's raw text completion.
	Diagnose(ctx context.Context, imageData []byte) (string, error)
	// SourceName returns a short provider label for logs and metrics
	// (e.g., "Fireworks", "Gemini").
	SourceName() string
}

// Refiner is the optional second stage some providers support: a text-only
// model re-assesses the confidence of a disease the vision model named.
// Implementations must swallow their own failures and report ok=false, so
// a broken refinement never fails the overall diagnosis.
type Refiner interface {
	RefineConfidence(ctx context.Context, disease string, confidence float64) (refined float64, ok bool)
}

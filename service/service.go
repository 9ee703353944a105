package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"

	"skin-diagnosis-service/config"
	"skin-diagnosis-service/fireworks"
	"skin-diagnosis-service/gemini"
	"skin-diagnosis-service/huggingface"
	"skin-diagnosis-service/image"
	"skin-diagnosis-service/llm"
	"skin-diagnosis-service/metrics"
	"skin-diagnosis-service/models"
	"skin-diagnosis-service/ollama"
	"skin-diagnosis-service/parser"
	"skin-diagnosis-service/stubllm"
)

// ErrNotConfigured reports that no usable backend client exists, typically
// because a credential was missing at startup. The process keeps serving;
// only /diagnose is unavailable.
var ErrNotConfigured = errors.New("diagnosis service is not configured")

// Service composes image normalization, one backend adapter and response
// parsing into a single diagnosis call. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	client      llm.Client
	budgetBytes int
}

// New creates a diagnosis service around an already-constructed backend
// client. A nil client produces a service that reports ErrNotConfigured on
// every call rather than one that panics mid-request.
func New(client llm.Client, budgetBytes int) *Service {
	if budgetBytes <= 0 {
		budgetBytes = image.DefaultBudgetBytes
	}
	return &Service{client: client, budgetBytes: budgetBytes}
}

// NewFromConfig builds the backend selected by cfg.Backend and wraps it in
// a service. The error describes why the backend could not be constructed;
// callers may still serve traffic with New(nil, ...) in that case.
func NewFromConfig(cfg *config.Config) (*Service, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	log.Infof("Diagnosis backend initialized: %s", client.SourceName())
	return New(client, cfg.ImageBudgetKB*1024), nil
}

func newClient(cfg *config.Config) (llm.Client, error) {
	switch cfg.Backend {
	case config.BackendFireworks:
		return fireworks.NewClient(cfg.FireworksAPIKey, cfg.FireworksModel)
	case config.BackendGemini:
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.BackendOllama:
		return ollama.NewClient(cfg.OllamaURL, cfg.OllamaVisionModel, cfg.OllamaTextModel)
	case config.BackendHuggingFace:
		return huggingface.NewClient(cfg.HuggingFaceToken, cfg.HuggingFaceModel)
	case config.BackendStub:
		return stubllm.NewClient(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Ready reports whether a backend client is available.
func (s *Service) Ready() bool {
	return s.client != nil
}

// SourceName returns the active backend label, or "none".
func (s *Service) SourceName() string {
	if s.client == nil {
		return "none"
	}
	return s.client.SourceName()
}

// Diagnose runs the full pipeline: normalize the upload, send it to the
// backend, parse the completion and validate the result. When the backend
// also implements llm.Refiner and named a disease, the refined confidence
// overrides the vision model's value; refinement failures keep the
// original.
func (s *Service) Diagnose(ctx context.Context, imageData []byte) (*models.DiagnosisResult, error) {
	if s.client == nil {
		return nil, ErrNotConfigured
	}

	normalized, err := image.Normalize(imageData, s.budgetBytes)
	if err != nil {
		return nil, err
	}
	metrics.NormalizedImageBytes.Observe(float64(len(normalized)))

	rawText, err := s.client.Diagnose(ctx, normalized)
	if err != nil {
		return nil, err
	}

	result, err := parser.ParseDiagnosis(rawText)
	if err != nil {
		return nil, err
	}

	if refiner, ok := s.client.(llm.Refiner); ok &&
		result.Status == models.StatusUnhealthy && result.Disease != models.NoDisease {
		if refined, ok := refiner.RefineConfidence(ctx, result.Disease, result.DiseaseConfidence); ok {
			result.DiseaseConfidence = refined
		}
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

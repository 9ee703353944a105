package models

import (
	"fmt"
	"strings"
)

// Diagnosis status values returned by the vision backends.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// NoDisease is the sentinel disease name used when the image is healthy or
// the backend did not name a condition.
const NoDisease = "None"

// DiagnosisResult is the structured outcome of a single skin image analysis.
type DiagnosisResult struct {
	Status            string  `json:"status"`
	Confidence        float64 `json:"confidence"`
	Disease           string  `json:"disease"`
	DiseaseConfidence float64 `json:"disease_confidence"`
}

// Validate normalizes a result in place and reports whether it is usable.
// Out-of-range confidences are clamped rather than rejected because the
// backends occasionally return values like 1.2 or -0.1. A healthy status or
// a disease name of "none" (any casing) forces the disease to the sentinel,
// and the sentinel forces the disease confidence to zero.
func (r *DiagnosisResult) Validate() error {
	if r.Status != StatusHealthy && r.Status != StatusUnhealthy {
		return fmt.Errorf("invalid status %q, want %q or %q", r.Status, StatusHealthy, StatusUnhealthy)
	}

	r.Confidence = clamp01(r.Confidence)
	r.DiseaseConfidence = clamp01(r.DiseaseConfidence)

	if r.Status == StatusHealthy || strings.EqualFold(strings.TrimSpace(r.Disease), NoDisease) {
		r.Disease = NoDisease
	}
	if r.Disease == NoDisease {
		r.DiseaseConfidence = 0.0
	}

	return nil
}

func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"skin-diagnosis-service/models"
)

// ErrParse reports a fault inside the extraction machinery itself (e.g. a
// numeric token that cannot be converted). Merely absent fields never
// produce it; they fall back to defaults.
var ErrParse = errors.New("failed to parse diagnosis response")

// thinkMarker delimits a reasoning model's internal monologue. Everything
// up to and including its last occurrence is discarded before scanning.
const thinkMarker = "</think>"

// defaultDisease is reported when the model flags a condition without
// naming one.
const defaultDisease = "Not Specified"

var (
	statusPattern = regexp.MustCompile(`(?i)STATUS:\s*(healthy|unhealthy)`)
	// Matches both CONFIDENCE and DISEASE_CONFIDENCE lines; the optional
	// qualifier group tells them apart, since RE2 has no lookbehind.
	confidencePattern = regexp.MustCompile(`(?i)(DISEASE_)?CONFIDENCE:\s*([0-9]*\.?[0-9]+)`)
	// "DISEASE_CONFIDENCE:" cannot match here: the colon must follow
	// "DISEASE" directly.
	diseasePattern = regexp.MustCompile(`(?i)DISEASE:\s*([^\n]+)`)
)

// ParseDiagnosis extracts a DiagnosisResult from a model's raw completion.
// Models repeat the structured block while thinking aloud, so for every
// field the last occurrence wins. Missing fields fall back to safe
// defaults: an absent status reads as unhealthy rather than silently
// clearing a possible condition.
func ParseDiagnosis(raw string) (*models.DiagnosisResult, error) {
	text := raw
	if idx := strings.LastIndex(text, thinkMarker); idx != -1 {
		text = strings.TrimSpace(text[idx+len(thinkMarker):])
	}

	status := models.StatusUnhealthy
	if m := statusPattern.FindAllStringSubmatch(text, -1); len(m) > 0 {
		status = strings.ToLower(m[len(m)-1][1])
	}

	confidence := 0.0
	diseaseConfidence := 0.0
	for _, m := range confidencePattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad numeric value %q in %q: %v", ErrParse, m[2], raw, err)
		}
		if m[1] == "" {
			confidence = v
		} else {
			diseaseConfidence = v
		}
	}

	diseaseName := defaultDisease
	if m := diseasePattern.FindAllStringSubmatch(text, -1); len(m) > 0 {
		diseaseName = cleanDiseaseName(m[len(m)-1][1])
	}

	disease := models.NoDisease
	if status == models.StatusUnhealthy && !strings.EqualFold(diseaseName, models.NoDisease) {
		disease = diseaseName
	}

	return &models.DiagnosisResult{
		Status:            status,
		Confidence:        clamp01(confidence),
		Disease:           disease,
		DiseaseConfidence: clamp01(diseaseConfidence),
	}, nil
}

// clamp01 bounds out-of-range numeric text from a backend; the models
// layer clamps again at the service boundary, but parsed values should
// already be sane for direct callers.
func clamp01(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

// cleanDiseaseName trims a captured disease line, dropping a trailing
// DISEASE_CONFIDENCE field when the model put both on one line.
func cleanDiseaseName(s string) string {
	if idx := strings.Index(strings.ToUpper(s), "DISEASE_CONFIDENCE"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultDisease
	}
	return s
}

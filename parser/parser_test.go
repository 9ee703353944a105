package parser

import (
	"errors"
	"testing"

	"skin-diagnosis-service/models"
)

func TestParseDiagnosis(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected models.DiagnosisResult
	}{
		{
			name:     "well-formed single instance",
			response: "STATUS: unhealthy\nCONFIDENCE: 0.82\nDISEASE: Eczema\nDISEASE_CONFIDENCE: 0.77",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.82,
				Disease:           "Eczema",
				DiseaseConfidence: 0.77,
			},
		},
		{
			name: "repeated fields take the last occurrence",
			response: "Let me look closer.\n" +
				"STATUS: healthy\nCONFIDENCE: 0.3\nDISEASE: None\nDISEASE_CONFIDENCE: 0.0\n" +
				"Actually, on reflection:\n" +
				"STATUS: unhealthy\nCONFIDENCE: 0.9\nDISEASE: Psoriasis\nDISEASE_CONFIDENCE: 0.85\n",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.9,
				Disease:           "Psoriasis",
				DiseaseConfidence: 0.85,
			},
		},
		{
			name:     "disease confidence alone must not set confidence",
			response: "STATUS: unhealthy\nDISEASE: Acne\nDISEASE_CONFIDENCE: 0.9",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.0,
				Disease:           "Acne",
				DiseaseConfidence: 0.9,
			},
		},
		{
			name:     "healthy status forces disease to None",
			response: "STATUS: healthy\nCONFIDENCE: 0.92\nDISEASE: Melanoma\nDISEASE_CONFIDENCE: 0.4",
			expected: models.DiagnosisResult{
				Status:            "healthy",
				Confidence:        0.92,
				Disease:           "None",
				DiseaseConfidence: 0.4,
			},
		},
		{
			name: "text before the last think marker is discarded",
			response: "<think>STATUS: unhealthy\nCONFIDENCE: 0.99\nDISEASE: Rosacea\n" +
				"DISEASE_CONFIDENCE: 0.98</think>\n" +
				"STATUS: healthy\nCONFIDENCE: 0.88\nDISEASE: None\nDISEASE_CONFIDENCE: 0.0",
			expected: models.DiagnosisResult{
				Status:            "healthy",
				Confidence:        0.88,
				Disease:           "None",
				DiseaseConfidence: 0.0,
			},
		},
		{
			name:     "status alone yields safe defaults",
			response: "STATUS: healthy",
			expected: models.DiagnosisResult{
				Status:            "healthy",
				Confidence:        0.0,
				Disease:           "None",
				DiseaseConfidence: 0.0,
			},
		},
		{
			name:     "missing status defaults to unhealthy",
			response: "The image shows a small lesion on the forearm.",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.0,
				Disease:           "Not Specified",
				DiseaseConfidence: 0.0,
			},
		},
		{
			name:     "disease none is case-insensitive",
			response: "STATUS: unhealthy\nCONFIDENCE: 0.6\nDISEASE: none\nDISEASE_CONFIDENCE: 0.2",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.6,
				Disease:           "None",
				DiseaseConfidence: 0.2,
			},
		},
		{
			name:     "fields on one line",
			response: "STATUS: unhealthy CONFIDENCE: 0.7 DISEASE: Contact Dermatitis DISEASE_CONFIDENCE: 0.65",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.7,
				Disease:           "Contact Dermatitis",
				DiseaseConfidence: 0.65,
			},
		},
		{
			name:     "out-of-range values are clamped",
			response: "STATUS: unhealthy\nCONFIDENCE: 1.7\nDISEASE: Eczema\nDISEASE_CONFIDENCE: 2.3",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        1.0,
				Disease:           "Eczema",
				DiseaseConfidence: 1.0,
			},
		},
		{
			name:     "mixed case field names",
			response: "status: Unhealthy\nconfidence: 0.5\ndisease: Vitiligo\ndisease_confidence: 0.45",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.5,
				Disease:           "Vitiligo",
				DiseaseConfidence: 0.45,
			},
		},
		{
			name:     "empty input",
			response: "",
			expected: models.DiagnosisResult{
				Status:            "unhealthy",
				Confidence:        0.0,
				Disease:           "Not Specified",
				DiseaseConfidence: 0.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDiagnosis(tt.response)
			if err != nil {
				t.Fatalf("ParseDiagnosis() unexpected error: %v", err)
			}

			if result.Status != tt.expected.Status {
				t.Errorf("ParseDiagnosis() status = %v, want %v", result.Status, tt.expected.Status)
			}
			if result.Confidence != tt.expected.Confidence {
				t.Errorf("ParseDiagnosis() confidence = %v, want %v", result.Confidence, tt.expected.Confidence)
			}
			if result.Disease != tt.expected.Disease {
				t.Errorf("ParseDiagnosis() disease = %v, want %v", result.Disease, tt.expected.Disease)
			}
			if result.DiseaseConfidence != tt.expected.DiseaseConfidence {
				t.Errorf("ParseDiagnosis() disease_confidence = %v, want %v", result.DiseaseConfidence, tt.expected.DiseaseConfidence)
			}
		})
	}
}

func TestParseDiagnosisNumericFault(t *testing.T) {
	// A numeric token too large for float64 makes ParseFloat fail with a
	// range error; that is an extraction fault, not a missing field.
	huge := "STATUS: unhealthy\nCONFIDENCE: " + bigNumber() + "\nDISEASE: Eczema\nDISEASE_CONFIDENCE: 0.5"

	_, err := ParseDiagnosis(huge)
	if err == nil {
		t.Fatal("ParseDiagnosis() expected error for unconvertible numeric token")
	}
	if !errors.Is(err, ErrParse) {
		t.Errorf("ParseDiagnosis() error = %v, want ErrParse", err)
	}
}

func bigNumber() string {
	digits := make([]byte, 400)
	for i := range digits {
		digits[i] = '9'
	}
	return string(digits)
}

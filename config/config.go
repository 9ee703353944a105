package config

import (
	"os"
	"strconv"
)

// Backend identifiers accepted in the BACKEND environment variable.
const (
	BackendFireworks   = "fireworks"
	BackendGemini      = "gemini"
	BackendOllama      = "ollama"
	BackendHuggingFace = "huggingface"
	BackendStub        = "stub"
)

// Config holds all configuration for the skin diagnosis service.
// It is loaded once at startup and treated as immutable afterwards.
type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins string

	// Active backend selection
	Backend string

	// Fireworks configuration
	FireworksAPIKey string
	FireworksModel  string

	// Gemini configuration
	GeminiAPIKey string
	GeminiModel  string

	// Hugging Face configuration
	HuggingFaceToken string
	HuggingFaceModel string

	// Ollama configuration
	OllamaURL         string
	OllamaVisionModel string
	OllamaTextModel   string

	// Upload validation
	MaxUploadMB int

	// Image normalization budget
	ImageBudgetKB int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server defaults
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		// Backend defaults
		Backend: getEnv("BACKEND", BackendFireworks),

		// Fireworks defaults
		FireworksAPIKey: getEnv("FIREWORKS_API_KEY", ""),
		FireworksModel:  getEnv("FIREWORKS_MODEL", "accounts/fireworks/models/qwen3-vl-30b-a3b-thinking"),

		// Gemini defaults
		GeminiAPIKey: getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		// Hugging Face defaults
		HuggingFaceToken: getEnv("HF_API_TOKEN", ""),
		HuggingFaceModel: getEnv("HF_MODEL", "llava-hf/llava-1.5-7b-hf"),

		// Ollama defaults
		OllamaURL:         getEnv("OLLAMA_URL", "http://127.0.0.1:11434"),
		OllamaVisionModel: getEnv("OLLAMA_VISION_MODEL", "qwen3-vl:2b"),
		OllamaTextModel:   getEnv("OLLAMA_TEXT_MODEL", "llama3.2:3b"),

		// Upload defaults
		MaxUploadMB: getIntEnv("MAX_UPLOAD_MB", 10),

		// Normalization defaults
		ImageBudgetKB: getIntEnv("IMAGE_BUDGET_KB", 500),
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

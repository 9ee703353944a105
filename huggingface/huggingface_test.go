package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skin-diagnosis-service/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-token", "test/model")
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	c.baseURL = srv.URL + "/"
	return c
}

func TestDiagnoseSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("wait_for_model"); got != "true" {
			t.Errorf("wait_for_model = %q, want true", got)
		}
		w.Write([]byte(`[{"generated_text":"STATUS: healthy\nCONFIDENCE: 0.9\nDISEASE: None\nDISEASE_CONFIDENCE: 0.0"}]`))
	})

	text, err := c.Diagnose(context.Background(), []byte{1, 2})
	if err != nil {
		t.Fatalf("Diagnose() unexpected error: %v", err)
	}
	if !strings.Contains(text, "STATUS: healthy") {
		t.Errorf("Diagnose() = %q", text)
	}
}

func TestDiagnoseStripsEchoedPrompt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reply := []map[string]string{
			{"generated_text": llm.Prompt + "STATUS: unhealthy\nCONFIDENCE: 0.6\nDISEASE: Acne\nDISEASE_CONFIDENCE: 0.5"},
		}
		json.NewEncoder(w).Encode(reply)
	})

	text, err := c.Diagnose(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("Diagnose() unexpected error: %v", err)
	}
	if strings.Contains(text, "specialized medical AI") {
		t.Errorf("Diagnose() = %q, prompt echo should be stripped", text)
	}
	if !strings.HasPrefix(text, "STATUS: unhealthy") {
		t.Errorf("Diagnose() = %q, want completion only", text)
	}
}

func TestDiagnoseModelLoading(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model test/model is currently loading"}`))
	})

	_, err := c.Diagnose(context.Background(), []byte{1})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("Diagnose() error = %v, want ErrUnavailable", err)
	}
}

func TestDiagnoseUnexpectedShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"generated_text":"not a list"}`))
	})

	_, err := c.Diagnose(context.Background(), []byte{1})
	if !errors.Is(err, llm.ErrBackend) {
		t.Errorf("Diagnose() error = %v, want ErrBackend", err)
	}
}

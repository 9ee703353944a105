package fireworks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skin-diagnosis-service/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", "test-model")
	if err != nil {
		t.Fatalf("NewClient() unexpected error: %v", err)
	}
	c.endpoint = srv.URL
	return c, srv
}

func TestDiagnoseSuccess(t *testing.T) {
	var gotAuth string
	var gotBody []byte

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "STATUS: healthy\nCONFIDENCE: 0.9\nDISEASE: None\nDISEASE_CONFIDENCE: 0.0"}},
			},
		})
	})

	text, err := c.Diagnose(context.Background(), []byte{0xFF, 0xD8, 0xFF})
	if err != nil {
		t.Fatalf("Diagnose() unexpected error: %v", err)
	}
	if !strings.Contains(text, "STATUS: healthy") {
		t.Errorf("Diagnose() = %q, want completion text", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization header = %q, want bearer key", gotAuth)
	}

	body := string(gotBody)
	if !strings.Contains(body, "specialized medical AI") {
		t.Error("request payload does not contain the instruction prompt")
	}
	if !strings.Contains(body, "data:image/jpeg;base64,") {
		t.Error("request payload does not embed the image as a data URL")
	}
	if !strings.Contains(body, `"model":"test-model"`) {
		t.Error("request payload does not name the configured model")
	}
}

func TestDiagnoseNonSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.Diagnose(context.Background(), []byte{1})
	if !errors.Is(err, llm.ErrBackend) {
		t.Errorf("Diagnose() error = %v, want ErrBackend", err)
	}
}

func TestDiagnoseNoChoices(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Diagnose(context.Background(), []byte{1})
	if !errors.Is(err, llm.ErrBackend) {
		t.Errorf("Diagnose() error = %v, want ErrBackend", err)
	}
}

func TestDiagnoseMalformedEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	})

	_, err := c.Diagnose(context.Background(), []byte{1})
	if !errors.Is(err, llm.ErrBackend) {
		t.Errorf("Diagnose() error = %v, want ErrBackend", err)
	}
}

func TestDiagnoseBlankContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	})

	_, err := c.Diagnose(context.Background(), []byte{1})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("Diagnose() error = %v, want ErrEmptyResponse", err)
	}
}

func TestDiagnoseConnectionFailure(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.Diagnose(context.Background(), []byte{1})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("Diagnose() error = %v, want ErrUnavailable", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", "model"); err == nil {
		t.Error("NewClient() expected error for missing API key")
	}
}

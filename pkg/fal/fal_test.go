package fal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "", Key: "k"}); err == nil {
		t.Fatal("empty url must be rejected")
	}
	if _, err := NewClient(Config{URL: "https://queue.fal.run", Key: ""}); err == nil {
		t.Fatal("missing key must be rejected outside test mode")
	}
	if _, err := NewClient(Config{URL: "https://queue.fal.run", TestMode: true}); err != nil {
		t.Fatalf("test mode must not require a key: %v", err)
	}
}

func TestRenderTestMode(t *testing.T) {
	t.Parallel()

	client := MustNew(Config{URL: "https://queue.fal.run", TestMode: true})

	url, err := client.Render(context.Background(), ModelTextToVideo, map[string]any{"prompt": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(url, "pexels.com") {
		t.Fatalf("expected canned test url, got %q", url)
	}

	imgURL, err := client.Render(context.Background(), ModelImageToVideo, map[string]any{"image_url": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imgURL == url {
		t.Fatal("text and image test renders must differ")
	}
}

func TestRenderQueueFlow(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var srv *httptest.Server

	polls := 0
	mux.HandleFunc("/fal-ai/wan-2.1-t2v-1.3b", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Key secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"request_id":   "req_1",
			"status_url":   srv.URL + "/status",
			"response_url": srv.URL + "/result",
		})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := "IN_QUEUE"
		if polls >= 2 {
			status = "COMPLETED"
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	mux.HandleFunc("/result", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"video": map[string]string{"url": "https://fal.media/files/abc/video.mp4"}})
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := MustNew(Config{
		URL:          srv.URL,
		Key:          "secret",
		PollInterval: time.Millisecond,
		PollDeadline: time.Second,
	})

	url, err := client.Render(context.Background(), ModelTextToVideo, map[string]any{"prompt": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://fal.media/files/abc/video.mp4" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestRenderQueueFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/fal-ai/wan-2.1-t2v-1.3b", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"request_id":   "req_1",
			"status_url":   srv.URL + "/status",
			"response_url": srv.URL + "/result",
		})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "FAILED"})
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := MustNew(Config{
		URL:          srv.URL,
		Key:          "secret",
		PollInterval: time.Millisecond,
		PollDeadline: time.Second,
	})

	if _, err := client.Render(context.Background(), ModelTextToVideo, map[string]any{"prompt": "x"}); err == nil {
		t.Fatal("expected failure status to surface as an error")
	}
}

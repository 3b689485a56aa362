package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss-curator/app/feed"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
}

func newOpenAIServer(t *testing.T, summary, tags string, requests *[]chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if requests != nil {
			*requests = append(*requests, req)
		}

		if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
			writeCompletion(w, tags)
			return
		}
		writeCompletion(w, summary)
	}))
}

func TestClient_Enrich(t *testing.T) {
	var requests []chatRequest
	server := newOpenAIServer(t, "  A compact summary.  ",
		`{"aigc":1,"digital_human":0,"neural_rendering":"1","computer_graphics":false,"computer_vision":true,"robotics":0,"consumer_electronics":0}`,
		&requests)
	defer server.Close()

	client := NewClient("test-key", server.URL+"/v1", "test-model", 10, nil, testLogger())

	result, err := client.Enrich(context.Background(), Request{
		Title:   "Gaussian splatting",
		Content: "0123456789ABCDEF",
		Noisy:   true,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.Summary != "A compact summary." {
		t.Errorf("Expected trimmed summary, got %q", result.Summary)
	}

	expected := map[string]bool{
		feed.TagAIGC:                true,
		feed.TagDigitalHuman:        false,
		feed.TagNeuralRendering:     true,
		feed.TagComputerGraphics:    false,
		feed.TagComputerVision:      true,
		feed.TagRobotics:            false,
		feed.TagConsumerElectronics: false,
	}
	for label, flag := range expected {
		if result.Tags[label] != flag {
			t.Errorf("Expected %s=%t, got %t", label, flag, result.Tags[label])
		}
	}

	if len(requests) != 2 {
		t.Fatalf("Expected 2 calls, got %d", len(requests))
	}
	if requests[0].Model != "test-model" {
		t.Errorf("Expected model 'test-model', got %q", requests[0].Model)
	}

	user := requests[0].Messages[1].Content
	if !strings.Contains(user, "0123456789") || strings.Contains(user, "ABCDEF") {
		t.Errorf("Expected content truncated to 10 characters, got %q", user)
	}
	if !strings.Contains(user, noiseNote) {
		t.Error("Expected noise note for noisy content")
	}
}

func TestClient_EnrichErrors(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		tags    string
		errPart string
	}{
		{
			name:    "empty summary",
			summary: "   ",
			tags:    `{}`,
			errPart: "empty summary",
		},
		{
			name:    "unparseable tags",
			summary: "ok",
			tags:    "aigc: yes",
			errPart: "failed to parse tags response",
		},
		{
			name:    "missing label",
			summary: "ok",
			tags:    `{"aigc":1}`,
			errPart: "missing label",
		},
		{
			name:    "invalid flag",
			summary: "ok",
			tags:    `{"aigc":2,"digital_human":0,"neural_rendering":0,"computer_graphics":0,"computer_vision":0,"robotics":0,"consumer_electronics":0}`,
			errPart: "invalid value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newOpenAIServer(t, tt.summary, tt.tags, nil)
			defer server.Close()

			client := NewClient("test-key", server.URL+"/v1", "test-model", 1200, nil, testLogger())
			_, err := client.Enrich(context.Background(), Request{Title: "t", Content: "c"})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestClient_EnrichHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"rate_limit"}}`)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL+"/v1", "test-model", 1200, nil, testLogger())
	_, err := client.Enrich(context.Background(), Request{Title: "t", Content: "c"})
	if err == nil {
		t.Fatal("Expected error for HTTP 429")
	}
	if !strings.Contains(err.Error(), "failed to generate summary") {
		t.Errorf("Expected summary stage in error, got %v", err)
	}
}

func TestClient_GateIntegration(t *testing.T) {
	server := newOpenAIServer(t, "summary",
		"```json\n{\"aigc\":0,\"digital_human\":0,\"neural_rendering\":0,\"computer_graphics\":1,\"computer_vision\":0,\"robotics\":0,\"consumer_electronics\":1}\n```",
		nil)
	defer server.Close()

	client := NewClient("test-key", server.URL+"/v1", "test-model", 1200, nil, testLogger())
	gate := NewGate(client, DefaultRelevance(), 5*time.Second, testLogger())

	outcome := gate.Process(context.Background(), []feed.Item{{Title: "phone GPU", Link: "https://example.com/p"}})

	if outcome.Failed != 0 {
		t.Fatalf("Expected fenced JSON to be accepted, got %d failures", outcome.Failed)
	}
	if outcome.Irrelevant != 1 {
		t.Errorf("Expected consumer electronics item to be filtered, got %+v", outcome)
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		value    any
		expected bool
		wantErr  bool
	}{
		{true, true, false},
		{false, false, false},
		{float64(1), true, false},
		{float64(0), false, false},
		{"1", true, false},
		{" TRUE ", true, false},
		{"0", false, false},
		{float64(0.5), false, true},
		{"maybe", false, true},
		{nil, false, true},
	}

	for _, tt := range tests {
		got, err := parseFlag(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFlag(%v): expected error %t, got %v", tt.value, tt.wantErr, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("parseFlag(%v): expected %t, got %t", tt.value, tt.expected, got)
		}
	}
}

func TestTrimText(t *testing.T) {
	if got := trimText("  数字人与神经渲染  ", 3); got != "数字人" {
		t.Errorf("Expected rune-based truncation, got %q", got)
	}
	if got := trimText("short", 100); got != "short" {
		t.Errorf("Expected text unchanged, got %q", got)
	}
	if got := trimText("unbounded", 0); got != "unbounded" {
		t.Errorf("Expected no truncation for max 0, got %q", got)
	}
}

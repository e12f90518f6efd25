package triage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"api-conformance/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var failures = []types.CaseResult{
	{Module: "orders", Method: types.MethodPatch, Path: "/orders/advanced/test-id/status", Status: 401, Outcome: types.OutcomeFail, Message: "Expected 200-series for PATCH /orders/advanced/test-id/status"},
	{Module: "security", Method: types.MethodPatch, Template: "${this.baseURL}/security/settings", Outcome: types.OutcomeError, Message: "malformed path template"},
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(failures, 0)
	assert.Contains(t, p, "2 endpoint checks")
	assert.Contains(t, p, "- [orders] PATCH /orders/advanced/test-id/status -> 401")
	assert.Contains(t, p, "- [security] PATCH ${this.baseURL}/security/settings -> no response")

	p = BuildPrompt(failures, 1)
	assert.Contains(t, p, "... and 1 more")
	assert.NotContains(t, p, "[security]")
}

func TestTriage(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  - Orders PATCH rejects the admin token.\n"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18}
		}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1", MaxTokens: 200}, quietLogger())
	note, err := c.Triage(context.Background(), failures)
	require.NoError(t, err)

	assert.Equal(t, "- Orders PATCH rejects the admin token.", note)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 200, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.True(t, strings.Contains(got.Messages[1].Content, "/orders/advanced/test-id/status"))
}

func TestTriageNoFailuresSkipsCall(t *testing.T) {
	c := NewClient(Config{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1"}, quietLogger())
	note, err := c.Triage(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, note)
}

func TestTriageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-bad", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"}, quietLogger())
	_, err := c.Triage(context.Background(), failures)
	assert.ErrorContains(t, err, "OpenAI API error")
}

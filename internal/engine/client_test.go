package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/gauge-bench/internal/config"
	"github.com/daryltucker/gauge-bench/internal/model"
)

var testImage = Image{Filename: "g1.png", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OpenAI = config.Endpoint{BaseURL: baseURL, APIKey: "sk-openai"}
	cfg.OpenRouter = config.Endpoint{BaseURL: baseURL, APIKey: "sk-or"}
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func TestChatClientQuery(t *testing.T) {
	var got map[string]any
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"reading_value\": 3}"}}]}`)
	}))
	defer srv.Close()

	e := New(testConfig(srv.URL + "/"))
	adapter, err := e.Adapter(model.APIOpenRouter)
	require.NoError(t, err)
	assert.Equal(t, model.APIOpenRouter, adapter.API())

	text, err := adapter.Query(context.Background(), "openai/gpt-4o", testImage, "read it")
	require.NoError(t, err)
	assert.Equal(t, `{"reading_value": 3}`, text)

	assert.Equal(t, "Bearer sk-or", headers.Get("Authorization"))
	assert.Equal(t, "gauge-bench", headers.Get("X-Title"))
	assert.Equal(t, "openai/gpt-4o", got["model"])
	assert.EqualValues(t, 300, got["max_tokens"])
	assert.NotContains(t, got, "max_completion_tokens")

	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "read it", parts[0].(map[string]any)["text"])
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)
}

func TestOpenAIUsesCompletionTokenField(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		assert.Equal(t, "Bearer sk-openai", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Title"))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	adapter, err := New(testConfig(srv.URL)).Adapter(model.APIOpenAI)
	require.NoError(t, err)
	_, err = adapter.Query(context.Background(), "gpt-4o", testImage, "p")
	require.NoError(t, err)
	assert.EqualValues(t, 300, got["max_completion_tokens"])
	assert.NotContains(t, got, "max_tokens")
}

func TestChatClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "429"},
		{"invalid json", http.StatusOK, `<html>`, "invalid JSON"},
		{"api error body", http.StatusOK, `{"error":{"message":"model not found","code":404}}`, "model not found"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			adapter, err := New(testConfig(srv.URL)).Adapter(model.APIOpenRouter)
			require.NoError(t, err)
			_, err = adapter.Query(context.Background(), "m", testImage, "p")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdapterRequiresKey(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.OpenAI.APIKey = ""
	_, err := New(cfg).Adapter(model.APIOpenAI)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)

	_, err = New(cfg).Adapter("anthropic")
	assert.Error(t, err)
}

/*
PURPOSE:
  Core engine for talking to vision model APIs.
  Sends one gauge image plus the fixed prompt, returns the raw reply text.

REQUIREMENTS:
  User-specified:
  - Two API families: OpenAI and OpenRouter.
  - The family is chosen by configuration, not by branching in the executor.
  - One attempt per image. No retries, no streaming.

  Implementation-discovered:
  - Both families speak the OpenAI chat-completions dialect; the image goes
    in as a data: URL content part.
  - Needs http.Client with timeouts; a hung request must not stall a run.
  - OpenAI's newer models reject max_tokens and want max_completion_tokens.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine.Executor
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Network errors, non-2xx statuses, API error bodies and empty choices
    are returned as errors; the executor turns them into null predictions.

IMPLEMENTATION RULES:
  - Use net/http.
  - Enforce timeouts.
  - Log connection tracing at debug level only.

USAGE:
  e := engine.New(cfg)
  adapter, err := e.Adapter("openrouter")
  text, err := adapter.Query(ctx, "openai/gpt-4o", img, engine.GaugePrompt)

SELF-HEALING INSTRUCTIONS:
  - If the chat-completions schema changes, update chatMessage/chatResponse.

RELATED FILES:
  - internal/config/config.go
  - internal/engine/runner.go

MAINTENANCE:
  - Add new API families as new Adapter constructors.
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/daryltucker/gauge-bench/internal/config"
	"github.com/daryltucker/gauge-bench/internal/model"
	"github.com/daryltucker/gauge-bench/internal/output"
)

// HTTPDoer abstracts HTTP clients used by adapters.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Adapter queries one API family with an image and a prompt.
type Adapter interface {
	// API returns the family name recorded in run metadata.
	API() string
	Query(ctx context.Context, modelID string, img Image, prompt string) (string, error)
}

// Engine holds the resolved configuration and the shared HTTP client.
type Engine struct {
	Config *config.Config
	Client *http.Client
}

// New creates a new Engine.
func New(cfg *config.Config) *Engine {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Vision requests spend most of their time before the first header byte.
	transport.ResponseHeaderTimeout = cfg.RequestTimeout

	return &Engine{
		Config: cfg,
		Client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// Adapter returns the adapter for an API family. It fails when the family
// is unknown or has no API key.
func (e *Engine) Adapter(api string) (Adapter, error) {
	ep, err := e.Config.Endpoint(api)
	if err != nil {
		return nil, err
	}
	key, err := e.Config.APIKey(api)
	if err != nil {
		return nil, err
	}
	chat := &ChatClient{
		Family:    api,
		BaseURL:   strings.TrimRight(ep.BaseURL, "/"),
		APIKey:    key,
		Client:    e.Client,
		MaxTokens: e.Config.MaxTokens,
	}
	switch api {
	case model.APIOpenAI:
		chat.TokenField = "max_completion_tokens"
	case model.APIOpenRouter:
		chat.TokenField = "max_tokens"
		chat.Headers = map[string]string{
			"HTTP-Referer": "https://github.com/daryltucker/gauge-bench",
			"X-Title":      "gauge-bench",
		}
	}
	return chat, nil
}

// ChatClient implements Adapter over an OpenAI-compatible chat endpoint.
type ChatClient struct {
	Family     string
	BaseURL    string
	APIKey     string
	Client     HTTPDoer
	MaxTokens  int
	TokenField string
	Headers    map[string]string
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// API implements Adapter.
func (c *ChatClient) API() string { return c.Family }

// Query sends a single chat completion with the image attached.
func (c *ChatClient) Query(ctx context.Context, modelID string, img Image, prompt string) (string, error) {
	payload := map[string]any{
		"model": modelID,
		"messages": []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: img.DataURL()}},
			},
		}},
		"temperature": 0,
	}
	if c.MaxTokens > 0 && c.TokenField != "" {
		payload[c.TokenField] = c.MaxTokens
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "api", c.Family, "reused", info.Reused)
		},
		GotFirstResponseByte: func() {
			output.Logger.Debug("Network: First Byte Received", "model", modelID, "file", img.Filename, "after", time.Since(start))
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.Family, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s server error (%s): %s", c.Family, resp.Status, strings.TrimSpace(string(body)))
	}

	var data chatResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("%s returned invalid JSON: %w", c.Family, err)
	}
	if data.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.Family, data.Error.Message)
	}
	if len(data.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.Family)
	}
	return data.Choices[0].Message.Content, nil
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"tyr/internal/engine"
)

// ErrNoCredential means the remote backend's API key environment
// variable is unset; per spec §4.5 this is treated identically to any
// other provider error (abstain), never a process-level failure.
var ErrNoCredential = errors.New("provider: remote LLM credential not configured")

// HTTPBackend adjudicates via a hosted chat-completions API, addressed
// at {Endpoint}/chat/completions per spec §6's wire shape.
type HTTPBackend struct {
	Endpoint   string
	Model      string
	Timeout    time.Duration
	CanDeny    bool
	APIKeyEnv  string // defaults to OPENROUTER_API_KEY
	HTTPClient *http.Client
}

// Name identifies this backend in logs and cache rows.
func (b *HTTPBackend) Name() string { return "llm-http" }

// ModelName identifies the model asked to adjudicate, for a
// verbose-logging side row.
func (b *HTTPBackend) ModelName() string { return b.Model }

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Adjudicate implements Backend.
func (b *HTTPBackend) Adjudicate(ctx context.Context, p Prompt) (engine.Verdict, string, string, error) {
	envKey := b.APIKeyEnv
	if envKey == "" {
		envKey = "OPENROUTER_API_KEY"
	}
	apiKey := os.Getenv(envKey)
	if apiKey == "" {
		return engine.Abstain, "", "", ErrNoCredential
	}

	p.CanDeny = b.CanDeny
	text, err := buildPromptText(p)
	if err != nil {
		return engine.Abstain, "", "", err
	}

	reqBody := chatCompletionRequest{
		Model:       b.Model,
		Messages:    []chatMessage{{Role: "user", Content: text}},
		Temperature: 0,
		MaxTokens:   256,
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return engine.Abstain, "", "", err
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, b.Endpoint+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return engine.Abstain, "", "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := b.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return engine.Abstain, "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return engine.Abstain, "", "", errors.New("provider: remote LLM returned non-2xx status")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return engine.Abstain, "", "", err
	}
	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return engine.Abstain, "", "", err
	}
	if len(parsed.Choices) == 0 {
		return engine.Abstain, "", "", errors.New("provider: remote LLM returned no choices")
	}

	verdict, reason, err := ParseModelResponse(parsed.Choices[0].Message.Content, b.CanDeny)
	return verdict, reason, text, err
}

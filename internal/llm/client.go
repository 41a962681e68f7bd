// Package llm provides the chat-completion client used for summarization.
// It speaks the OpenAI-compatible chat completions JSON protocol, which both
// OpenAI and local Ollama endpoints serve.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Backend base endpoints. The ollama endpoint is its OpenAI-compatible
// facade.
var backendBaseURLs = map[string]string{
	"openai": "https://api.openai.com/v1",
	"ollama": "http://localhost:11434/v1",
}

// ModelRef identifies a backend and a model name, parsed from a model URL.
// The scheme selects the backend: "openai" and "ollama" pick that backend's
// default endpoint with the model as host ("ollama://llama3"), while "http"
// and "https" point at an explicit OpenAI-compatible endpoint with the model
// in the user component ("http://llama3@localhost:8080/v1"). For backend
// URLs, a tag after the model name is carried in the user component
// ("ollama://8b@llama3" means model "llama3:8b") because a bare colon would
// not survive URL parsing.
type ModelRef struct {
	Backend string
	Model   string
	// BaseURL is set only for explicit http/https endpoints.
	BaseURL string
}

// ParseModelURL splits a model URL into backend, model name, and, for
// explicit endpoints, the base URL.
func ParseModelURL(raw string) (ModelRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ModelRef{}, fmt.Errorf("invalid model URL: %w", err)
	}
	backend := strings.ToLower(u.Scheme)
	if backend == "http" || backend == "https" {
		model := u.User.Username()
		if model == "" {
			return ModelRef{}, fmt.Errorf(
				"endpoint URL %q names no model; specify it as %s://model@host", raw, backend)
		}
		if u.Host == "" {
			return ModelRef{}, fmt.Errorf("endpoint URL %q has no host", raw)
		}
		endpoint := url.URL{Scheme: backend, Host: u.Host, Path: u.Path}
		return ModelRef{
			Backend: backend,
			Model:   model,
			BaseURL: strings.TrimRight(endpoint.String(), "/"),
		}, nil
	}
	if _, ok := backendBaseURLs[backend]; !ok {
		return ModelRef{}, fmt.Errorf("unsupported LLM backend %q", u.Scheme)
	}
	model := u.Hostname()
	if model == "" {
		return ModelRef{}, fmt.Errorf("model URL %q names no model; specify it as the host", raw)
	}
	if user := u.User.Username(); user != "" {
		model = model + ":" + user
	}
	return ModelRef{Backend: backend, Model: model}, nil
}

// Client calls a chat-completion endpoint.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewClient builds a Client for ref. baseURL overrides the endpoint when
// non-empty; otherwise the ref's explicit endpoint or the backend default
// applies. apiKey may be empty for local backends.
func NewClient(ref ModelRef, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = ref.BaseURL
	}
	if baseURL == "" {
		baseURL = backendBaseURLs[ref.Backend]
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   ref.Model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat sends the ordered message list and returns the first choice's
// content.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	blob, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat endpoint returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

package rewriter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultOpenAIBaseURL is the API root used when none is configured
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// DefaultOpenAIModel is used when no model is configured
const DefaultOpenAIModel = "gpt-3.5-turbo"

// OpenAI calls an OpenAI-compatible chat completion endpoint
type OpenAI struct {
	BaseURL   string
	APIKey    string
	ModelName string

	HTTPClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Name returns "openai"
func (c *OpenAI) Name() string {
	return "openai"
}

// Model returns the configured model
func (c *OpenAI) Model() string {
	return c.ModelName
}

// Generate sends one chat completion request
func (c *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if c.ModelName == "" {
		return "", fmt.Errorf("openai: model required")
	}

	messages := []chatMessage{
		{Role: "system", Content: req.System},
		{Role: "user", Content: req.Prompt},
	}
	payload, err := c.send(ctx, chatRequest{
		Model:       c.ModelName,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", ErrEmptyRewrite
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *OpenAI) send(ctx context.Context, body chatRequest) (*chatResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("openai: status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("openai: failed to decode response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("openai error: %s", payload.Error.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("openai: status %d", resp.StatusCode)
	}
	return &payload, nil
}

func (c *OpenAI) endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

func (c *OpenAI) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

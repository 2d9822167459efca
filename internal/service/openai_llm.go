package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ensure OpenAILLM implements the interface.
var _ LLM = (*OpenAILLM)(nil)

// Defaults for chat completions.
const (
	DefaultOpenAIChatModel = "gpt-4o-mini"
	DefaultLLMTimeout      = 60 * time.Second
)

// OpenAILLMConfig holds configuration for an OpenAI-compatible
// /chat/completions endpoint.
type OpenAILLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAILLM sends single-turn prompts to a chat completions endpoint.
type OpenAILLM struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAILLM applies defaults and validates cfg.
func NewOpenAILLM(cfg OpenAILLMConfig) (*OpenAILLM, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.APIKey == "" && cfg.BaseURL == DefaultOpenAIBaseURL {
		return nil, fmt.Errorf("openai llm: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIChatModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &OpenAILLM{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// GenerateResponse returns the first choice's message content.
func (l *OpenAILLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := json.Marshal(chatCompletionRequest{
		Model:       l.model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		Temperature: l.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("llm provider error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm provider error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("llm provider returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Close releases resources.
func (l *OpenAILLM) Close() error {
	return nil
}

package groq

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tradepilot/tradepilot/internal/infrastructure/resilience"
)

// Client calls the Groq OpenAI-compatible chat completions API. It is shared
// by the field extractor and the answer synthesizer.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, operation string, messages []chatMessage, temperature float64, maxTokens int) (string, error) {
	request := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var response chatResponse
	err := c.executor.Execute(ctx, "groq."+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/chat/completions", request, &response, operation)
	}, classifyGroqError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("groq "+operation, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("groq %s returned no choices", operation)
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

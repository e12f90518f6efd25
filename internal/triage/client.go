// Package triage asks a chat model to summarize likely causes of failed cases.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"api-conformance/internal/types"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are an API reliability engineer. Given failing conformance checks against a REST backend, " +
	"group them by likely root cause (auth, missing route, validation, server error) and suggest what to check first. " +
	"Answer in short plain-text bullet points."

// Config represents the configuration for the triage model
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	// MaxCases caps how many failures are included in the prompt.
	MaxCases int
}

// Client implements triage using OpenAI's API
type Client struct {
	client *openai.Client
	config Config
	logger *slog.Logger
}

// NewClient creates a new OpenAI-backed triage client
func NewClient(config Config, logger *slog.Logger) *Client {
	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	if config.MaxCases == 0 {
		config.MaxCases = 50
	}
	return &Client{
		client: openai.NewClientWithConfig(cc),
		config: config,
		logger: logger,
	}
}

// Triage returns a note about the failures. With no failures it returns ""
// without calling the API.
func (c *Client) Triage(ctx context.Context, failures []types.CaseResult) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.config.Model,
			Temperature: c.config.Temperature,
			MaxTokens:   c.config.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: BuildPrompt(failures, c.config.MaxCases),
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	c.logger.Debug("triage completed", "failures", len(failures), "tokens", resp.Usage.TotalTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt lists at most limit failures, one per line.
func BuildPrompt(failures []types.CaseResult, limit int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d endpoint checks did not return a 2xx status:\n", len(failures)))
	for i, f := range failures {
		if limit > 0 && i == limit {
			sb.WriteString(fmt.Sprintf("... and %d more\n", len(failures)-limit))
			break
		}
		status := "no response"
		if f.Status != 0 {
			status = fmt.Sprintf("%d", f.Status)
		}
		sb.WriteString(fmt.Sprintf("- [%s] %s -> %s (%s)\n", f.Module, f.Title(), status, f.Message))
	}
	return sb.String()
}

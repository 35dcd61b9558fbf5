// Package anthropic provides an LLM provider adapter for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-synth/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/sercha-synth/internal/core/domain"
	"github.com/custodia-labs/sercha-synth/internal/core/ports/driven"
)

var _ driven.LLMProvider = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// ProviderName keys the provider's invoker.
const ProviderName = "anthropic"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("anthropic: API key is required")

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService completes chats against /v1/messages.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		api: httpapi.New(ProviderName, cfg.BaseURL, cfg.Timeout, map[string]string{
			"x-api-key":         cfg.APIKey,
			"anthropic-version": anthropicVersion,
		}),
		model: cfg.Model,
	}, nil
}

// Chat sends the conversation and joins the text blocks of the reply.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	system, turns := splitSystem(messages)
	req := messagesRequest{
		Model:       s.model,
		Messages:    turns,
		MaxTokens:   opts.MaxTokens,
		System:      system,
		Temperature: opts.Temperature,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	// max_tokens is mandatory for this API.
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	var resp messagesResponse
	if err := s.api.Post(ctx, "/v1/messages", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: no response content returned")
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	return reply.String(), nil
}

// splitSystem lifts system messages into one system prompt, joined by blank
// lines, and merges consecutive turns of the same role since the API
// requires roles to alternate.
func splitSystem(messages []driven.ChatMessage) (string, []message) {
	var system []string
	turns := make([]message, 0, len(messages))
	for _, msg := range messages {
		switch {
		case msg.Role == driven.RoleSystem:
			system = append(system, msg.Content)
		case len(turns) > 0 && turns[len(turns)-1].Role == msg.Role:
			turns[len(turns)-1].Content += "\n\n" + msg.Content
		default:
			turns = append(turns, message{Role: msg.Role, Content: msg.Content})
		}
	}
	return strings.Join(system, "\n\n"), turns
}

// Name returns the provider identifier.
func (s *LLMService) Name() string {
	return ProviderName
}

// Kind reports that Anthropic is a cloud provider.
func (s *LLMService) Kind() domain.ProviderKind {
	return domain.ProviderCloud
}

// ModelName returns the default model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.api.Get(ctx, "/v1/models", nil); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

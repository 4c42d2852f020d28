package providers

import (
	"context"
	"time"
)

// Provider represents a unified LLM completion provider
type Provider interface {
	// Name returns the provider name (e.g., "openai", "gemini")
	Name() string

	// ChatCompletion performs a chat completion request.
	// Failures are returned once; callers decide whether to retry.
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// IsAvailable checks if the provider is currently reachable
	IsAvailable(ctx context.Context) bool
}

// StreamCallback is called for each chunk in a streaming response
type StreamCallback func(chunk *ChatResponse) error

// StreamingProvider extends Provider with streaming support
type StreamingProvider interface {
	Provider

	// ChatCompletionStream performs a streaming chat completion
	ChatCompletionStream(ctx context.Context, req *ChatRequest, callback StreamCallback) error
}

// ImageProvider generates images from a text prompt
type ImageProvider interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*ImageResponse, error)
}

// VideoProvider creates and retrieves generated videos
type VideoProvider interface {
	CreateVideo(ctx context.Context, req *VideoRequest) (*VideoResponse, error)
	GetVideo(ctx context.Context, id string) (*Video, error)
}

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest represents a unified chat completion request
type ChatRequest struct {
	// Model identifier (e.g., "gpt-3.5-turbo", "gemini-2.5-flash")
	Model string `json:"model"`

	// Messages in the conversation
	Messages []Message `json:"messages"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 to 2.0); nil leaves the upstream default
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling
	TopP float64 `json:"top_p,omitempty"`

	// Stream enables streaming responses
	Stream bool `json:"stream,omitempty"`

	// Stop sequences
	Stop []string `json:"stop,omitempty"`

	// User identifier for abuse monitoring
	User string `json:"user,omitempty"`

	// Metadata for tracking and logging
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	// Role can be "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`

	// Name is an optional identifier for the message sender
	Name string `json:"name,omitempty"`
}

// ChatResponse represents a unified chat completion response
type ChatResponse struct {
	ID       string            `json:"id"`
	Model    string            `json:"model"`
	Choices  []Choice          `json:"choices"`
	Usage    Usage             `json:"usage"`
	Provider string            `json:"provider"`
	Latency  time.Duration     `json:"latency"`
	Created  time.Time         `json:"created"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Content returns the first choice's text, or "" when the provider returned no choices
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Choice represents a completion choice
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`

	// FinishReason indicates why the completion finished
	// Values: "stop", "length", "content_filter"
	FinishReason string `json:"finish_reason"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ImageRequest asks for n images generated from prompt
type ImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size,omitempty"`
	Style   string `json:"style,omitempty"`
	Quality string `json:"quality,omitempty"`
	N       int    `json:"n,omitempty"`
}

// ImageResponse lists the generated images
type ImageResponse struct {
	Created time.Time `json:"created"`
	Data    []Image   `json:"data"`
}

// Image is a single generated image
type Image struct {
	URL           string `json:"url,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// VideoRequest asks for a video generated from prompt
type VideoRequest struct {
	Model    string `json:"model"`
	Prompt   string `json:"prompt"`
	Duration int    `json:"duration,omitempty"`
}

// VideoResponse lists the videos accepted for generation
type VideoResponse struct {
	Data []Video `json:"data"`
}

// Video describes a generation job and, once completed, its download URL
type Video struct {
	ID     string `json:"id"`
	URL    string `json:"url,omitempty"`
	Status string `json:"status,omitempty"`
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout for requests
	Timeout time.Duration

	// Additional headers
	Headers map[string]string

	// OrgID for organization-specific endpoints
	OrgID string
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 60 * time.Second,
		Headers: make(map[string]string),
	}
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable is advisory; nothing in this module retries
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is marked retryable by its provider
func IsRetryable(err error) bool {
	if provErr, ok := err.(*ProviderError); ok {
		return provErr.Retryable
	}
	return false
}

// Float64 returns a pointer to v, for optional sampling parameters
func Float64(v float64) *float64 {
	return &v
}

// Package chatbot keeps a single running conversation with a completion
// provider.
package chatbot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/upb/llm-tenant-gateway/services/providers"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Options configures a Bot. Zero values take the package defaults; a nil
// Temperature means DefaultTemperature, so an explicit 0 is honoured.
type Options struct {
	SystemPrompt string
	Model        string
	Temperature  *float64
	MaxTokens    int
}

// Bot is a conversation with history. Calls are serialized so that each
// exchange sees the previous one.
type Bot struct {
	provider    providers.Provider
	model       string
	temperature float64
	maxTokens   int

	mu       sync.Mutex
	messages []providers.Message
}

// New creates a Bot, seeding the history with the system prompt if one is set
func New(provider providers.Provider, opts Options) *Bot {
	b := &Bot{
		provider:    provider,
		model:       opts.Model,
		temperature: DefaultTemperature,
		maxTokens:   opts.MaxTokens,
	}
	if b.model == "" {
		b.model = DefaultModel
	}
	if opts.Temperature != nil {
		b.temperature = *opts.Temperature
	}
	if b.maxTokens <= 0 {
		b.maxTokens = DefaultMaxTokens
	}
	if opts.SystemPrompt != "" {
		b.messages = append(b.messages, providers.Message{Role: providers.RoleSystem, Content: opts.SystemPrompt})
	}
	return b
}

// Chat appends message to the history, sends the whole conversation and
// records the reply. The user turn stays in history when the call fails.
func (b *Bot) Chat(ctx context.Context, message string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = append(b.messages, providers.Message{Role: providers.RoleUser, Content: message})

	resp, err := b.provider.ChatCompletion(ctx, b.request())
	if err != nil {
		return "", fmt.Errorf("chat failed: %w", err)
	}

	reply := resp.Content()
	b.messages = append(b.messages, providers.Message{Role: providers.RoleAssistant, Content: reply})
	return reply, nil
}

// ChatStream is Chat with the reply delivered fragment by fragment to
// onChunk. Providers without streaming support deliver the reply as one
// fragment.
func (b *Bot) ChatStream(ctx context.Context, message string, onChunk func(string) error) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.messages = append(b.messages, providers.Message{Role: providers.RoleUser, Content: message})
	req := b.request()

	var full strings.Builder
	emit := func(chunk string) error {
		if chunk == "" {
			return nil
		}
		full.WriteString(chunk)
		if onChunk != nil {
			return onChunk(chunk)
		}
		return nil
	}

	streamer, ok := b.provider.(providers.StreamingProvider)
	if ok {
		req.Stream = true
		err := streamer.ChatCompletionStream(ctx, req, func(chunk *providers.ChatResponse) error {
			return emit(chunk.Content())
		})
		if err != nil {
			return "", fmt.Errorf("stream chat failed: %w", err)
		}
	} else {
		resp, err := b.provider.ChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("stream chat failed: %w", err)
		}
		if err := emit(resp.Content()); err != nil {
			return "", fmt.Errorf("stream chat failed: %w", err)
		}
	}

	reply := full.String()
	b.messages = append(b.messages, providers.Message{Role: providers.RoleAssistant, Content: reply})
	return reply, nil
}

// ClearHistory drops every message except the system prompt
func (b *Bot) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.messages[:0]
	for _, m := range b.messages {
		if m.Role == providers.RoleSystem {
			kept = append(kept, m)
			break
		}
	}
	b.messages = kept
}

// History returns a copy of the conversation
func (b *Bot) History() []providers.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]providers.Message(nil), b.messages...)
}

// MessageCount returns the number of messages in the conversation
func (b *Bot) MessageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// request snapshots the history. Callers must hold b.mu.
func (b *Bot) request() *providers.ChatRequest {
	return &providers.ChatRequest{
		Model:       b.model,
		Messages:    append([]providers.Message(nil), b.messages...),
		Temperature: providers.Float64(b.temperature),
		MaxTokens:   b.maxTokens,
	}
}

// Package gemini adapts Google's Gemini API to the providers.Provider contract.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/upb/llm-tenant-gateway/services/providers"
)

const (
	providerName = "gemini"

	// DefaultModel is used when a request does not name a Gemini model
	DefaultModel = "gemini-2.5-flash"
)

// GeminiAdapter sends chat completions through the genai SDK
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

// NewGeminiAdapter creates a Gemini client for the Gemini API backend
func NewGeminiAdapter(ctx context.Context, apiKey, model string) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	if model == "" {
		model = DefaultModel
	}

	return &GeminiAdapter{client: client, model: model}, nil
}

func (a *GeminiAdapter) Name() string {
	return providerName
}

// ChatCompletion maps the conversation onto a single GenerateContent call.
// OpenAI-style model names are ignored in favour of the configured model.
func (a *GeminiAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	start := time.Now()
	model := a.resolveModel(req.Model)

	contents, config := buildContents(req)

	resp, err := a.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, providers.NewProviderError(providerName, "GENERATE_ERROR", "Gemini GenerateContent failed", 0, true, err)
	}

	return convertResponse(resp, model, time.Since(start)), nil
}

// IsAvailable reports whether the configured model can be fetched
func (a *GeminiAdapter) IsAvailable(ctx context.Context) bool {
	_, err := a.client.Models.Get(ctx, a.model, nil)
	return err == nil
}

func (a *GeminiAdapter) resolveModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return a.model
}

// buildContents splits system messages into the system instruction and
// converts the remaining turns, mapping "assistant" to Gemini's "model" role.
func buildContents(req *providers.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}

	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			system = append(system, &genai.Part{Text: msg.Content})
		case providers.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: system}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		config.Temperature = &t
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}

	return contents, config
}

func convertResponse(resp *genai.GenerateContentResponse, model string, latency time.Duration) *providers.ChatResponse {
	out := &providers.ChatResponse{
		Model:    model,
		Provider: providerName,
		Latency:  latency,
		Created:  time.Now(),
	}
	if resp == nil {
		return out
	}

	text := resp.Text()
	finish := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		finish = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	if text != "" || len(resp.Candidates) > 0 {
		out.Choices = []providers.Choice{{
			Message:      providers.Message{Role: providers.RoleAssistant, Content: text},
			FinishReason: finish,
		}}
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = providers.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return out
}

package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/llm-tenant-gateway/services/providers"
)

const (
	// DefaultBaseURL is the hosted OpenAI-compatible endpoint used when no override is configured
	DefaultBaseURL = "https://api.llmshare.network/v1"

	providerName = "openai"
)

// OpenAIAdapter implements the chat, streaming, image and video provider
// interfaces against an OpenAI-compatible REST API.
type OpenAIAdapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client

	// streamClient has no overall deadline; the response headers are bounded
	// by config.Timeout and the body by the caller's context.
	streamClient *http.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = config.Timeout

	return &OpenAIAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
	}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return providerName
}

// ChatCompletion performs a single chat completion request
func (a *OpenAIAdapter) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	startTime := time.Now()

	openaiReq := a.buildOpenAIRequest(req)
	openaiReq.Stream = false

	var openaiResp OpenAIChatResponse
	if err := a.doJSON(ctx, http.MethodPost, "/chat/completions", openaiReq, &openaiResp); err != nil {
		return nil, err
	}

	return a.convertToUnifiedResponse(&openaiResp, req, time.Since(startTime)), nil
}

// ChatCompletionStream performs a streaming chat completion, invoking callback
// once per non-empty content delta.
func (a *OpenAIAdapter) ChatCompletionStream(ctx context.Context, req *providers.ChatRequest, callback providers.StreamCallback) error {
	openaiReq := a.buildOpenAIRequest(req)
	openaiReq.Stream = true

	httpResp, err := a.send(ctx, a.streamClient, http.MethodPost, "/chat/completions", openaiReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		return a.handleErrorResponse(httpResp.StatusCode, body)
	}

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}

		var chunk OpenAIStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal stream chunk", httpResp.StatusCode, false, err)
		}

		unified := a.convertStreamChunk(&chunk)
		if unified.Content() == "" {
			continue
		}
		if err := callback(unified); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return providers.NewProviderError(a.Name(), "READ_ERROR", "Failed to read stream", httpResp.StatusCode, true, err)
	}

	return nil
}

// GenerateImage requests images from the images/generations endpoint
func (a *OpenAIAdapter) GenerateImage(ctx context.Context, req *providers.ImageRequest) (*providers.ImageResponse, error) {
	var openaiResp OpenAIImageResponse
	if err := a.doJSON(ctx, http.MethodPost, "/images/generations", req, &openaiResp); err != nil {
		return nil, err
	}

	resp := &providers.ImageResponse{
		Created: time.Unix(openaiResp.Created, 0),
		Data:    make([]providers.Image, len(openaiResp.Data)),
	}
	for i, img := range openaiResp.Data {
		resp.Data[i] = providers.Image{URL: img.URL, RevisedPrompt: img.RevisedPrompt}
	}

	return resp, nil
}

// CreateVideo submits a video generation job
func (a *OpenAIAdapter) CreateVideo(ctx context.Context, req *providers.VideoRequest) (*providers.VideoResponse, error) {
	var resp providers.VideoResponse
	if err := a.doJSON(ctx, http.MethodPost, "/videos/generations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetVideo retrieves the current state of a video generation job
func (a *OpenAIAdapter) GetVideo(ctx context.Context, id string) (*providers.Video, error) {
	var video providers.Video
	if err := a.doJSON(ctx, http.MethodGet, "/videos/"+url.PathEscape(id), nil, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

// IsAvailable checks if the provider is currently available
func (a *OpenAIAdapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models", nil)
	if err != nil {
		return false
	}

	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// send builds and executes a request. A transport failure is returned as a
// retryable ProviderError; nothing here retries it.
func (a *OpenAIAdapter) send(ctx context.Context, client *http.Client, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
		}
		reader = bytes.NewReader(reqBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reader)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	if a.config.OrgID != "" {
		httpReq.Header.Set("OpenAI-Organization", a.config.OrgID)
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, true, err)
	}

	return httpResp, nil
}

// doJSON sends body and decodes a 200 response into out
func (a *OpenAIAdapter) doJSON(ctx context.Context, method, path string, body, out any) error {
	httpResp, err := a.send(ctx, a.httpClient, method, path, body)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return providers.NewProviderError(a.Name(), "READ_ERROR", "Failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return a.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, false, err)
	}

	return nil
}

// buildOpenAIRequest converts unified request to OpenAI format
func (a *OpenAIAdapter) buildOpenAIRequest(req *providers.ChatRequest) *OpenAIChatRequest {
	openaiReq := &OpenAIChatRequest{
		Model:       req.Model,
		Messages:    make([]OpenAIMessage, len(req.Messages)),
		Temperature: req.Temperature,
	}

	for i, msg := range req.Messages {
		openaiReq.Messages[i] = OpenAIMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		}
	}

	if req.MaxTokens > 0 {
		openaiReq.MaxTokens = &req.MaxTokens
	}
	if req.TopP > 0 {
		openaiReq.TopP = &req.TopP
	}
	if len(req.Stop) > 0 {
		openaiReq.Stop = req.Stop
	}
	if req.User != "" {
		openaiReq.User = &req.User
	}

	return openaiReq
}

// convertToUnifiedResponse converts OpenAI response to unified format
func (a *OpenAIAdapter) convertToUnifiedResponse(openaiResp *OpenAIChatResponse, req *providers.ChatRequest, latency time.Duration) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		ID:       openaiResp.ID,
		Model:    openaiResp.Model,
		Provider: a.Name(),
		Choices:  make([]providers.Choice, len(openaiResp.Choices)),
		Usage: providers.Usage{
			PromptTokens:     openaiResp.Usage.PromptTokens,
			CompletionTokens: openaiResp.Usage.CompletionTokens,
			TotalTokens:      openaiResp.Usage.TotalTokens,
		},
		Latency:  latency,
		Created:  time.Unix(openaiResp.Created, 0),
		Metadata: req.Metadata,
	}

	for i, choice := range openaiResp.Choices {
		resp.Choices[i] = providers.Choice{
			Index: choice.Index,
			Message: providers.Message{
				Role:    choice.Message.Role,
				Content: choice.Message.Content,
				Name:    choice.Message.Name,
			},
			FinishReason: choice.FinishReason,
		}
	}

	return resp
}

// convertStreamChunk maps a streamed delta onto the unified response shape
func (a *OpenAIAdapter) convertStreamChunk(chunk *OpenAIStreamChunk) *providers.ChatResponse {
	resp := &providers.ChatResponse{
		ID:       chunk.ID,
		Model:    chunk.Model,
		Provider: a.Name(),
		Choices:  make([]providers.Choice, len(chunk.Choices)),
		Created:  time.Unix(chunk.Created, 0),
	}
	for i, choice := range chunk.Choices {
		resp.Choices[i] = providers.Choice{
			Index:        choice.Index,
			Message:      providers.Message{Role: providers.RoleAssistant, Content: choice.Delta.Content},
			FinishReason: choice.FinishReason,
		}
	}
	return resp
}

// handleErrorResponse handles OpenAI error responses
func (a *OpenAIAdapter) handleErrorResponse(statusCode int, body []byte) error {
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests

	var errResp OpenAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return providers.NewProviderError(a.Name(), "UNKNOWN_ERROR", fmt.Sprintf("upstream returned %d", statusCode), statusCode, retryable, errors.New(msg))
	}

	return providers.NewProviderError(
		a.Name(),
		errResp.Error.Type,
		errResp.Error.Message,
		statusCode,
		retryable,
		nil,
	)
}

// OpenAI-specific request/response types

type OpenAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	User        *string         `json:"user,omitempty"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type OpenAIChatResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type OpenAIStreamChunk struct {
	ID      string               `json:"id"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []OpenAIStreamChoice `json:"choices"`
}

type OpenAIStreamChoice struct {
	Index        int         `json:"index"`
	Delta        OpenAIDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type OpenAIDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type OpenAIImageResponse struct {
	Created int64             `json:"created"`
	Data    []OpenAIImageData `json:"data"`
}

type OpenAIImageData struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt"`
}

type OpenAIErrorResponse struct {
	Error OpenAIError `json:"error"`
}

type OpenAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

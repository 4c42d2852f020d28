// Package providertest provides testify-backed provider doubles shared by
// the service and handler tests.
package providertest

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/upb/llm-tenant-gateway/services/providers"
)

// MockProvider implements every provider interface in the providers package
type MockProvider struct {
	mock.Mock
	ProviderName string
}

// New returns a MockProvider named name
func New(name string) *MockProvider {
	return &MockProvider{ProviderName: name}
}

func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockProvider) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*providers.ChatResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

// ChatCompletionStream replays the fragments configured through the mock's
// first return value ([]string) before returning its error.
func (m *MockProvider) ChatCompletionStream(ctx context.Context, req *providers.ChatRequest, callback providers.StreamCallback) error {
	args := m.Called(ctx, req)
	if fragments, ok := args.Get(0).([]string); ok {
		for _, f := range fragments {
			if err := callback(Reply(f)); err != nil {
				return err
			}
		}
	}
	return args.Error(1)
}

func (m *MockProvider) GenerateImage(ctx context.Context, req *providers.ImageRequest) (*providers.ImageResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*providers.ImageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) CreateVideo(ctx context.Context, req *providers.VideoRequest) (*providers.VideoResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*providers.VideoResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) GetVideo(ctx context.Context, id string) (*providers.Video, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*providers.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

// BlockingProvider exposes only the Provider methods of a MockProvider
type BlockingProvider struct {
	Mock *MockProvider
}

func (b BlockingProvider) Name() string { return b.Mock.Name() }

func (b BlockingProvider) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	return b.Mock.ChatCompletion(ctx, req)
}

func (b BlockingProvider) IsAvailable(ctx context.Context) bool { return b.Mock.IsAvailable(ctx) }

// Reply builds a single-choice assistant response
func Reply(content string) *providers.ChatResponse {
	return &providers.ChatResponse{
		ID: "chatcmpl-mock",
		Choices: []providers.Choice{
			{
				Message:      providers.Message{Role: providers.RoleAssistant, Content: content},
				FinishReason: "stop",
			},
		},
	}
}

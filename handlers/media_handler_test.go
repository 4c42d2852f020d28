package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/services/imagegen"
	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/services/providers/providertest"
	"github.com/upb/llm-tenant-gateway/services/video"
)

func mediaRouter(t *testing.T, provider *providertest.MockProvider) http.Handler {
	t.Helper()
	var (
		images ImageGenerator
		videos VideoCreator
	)
	if provider != nil {
		gen, err := imagegen.New(provider, imagegen.Options{})
		require.NoError(t, err)
		images = gen
		videos = video.New(provider, video.Options{})
	}

	h := NewMediaHandler(images, videos, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/images", h.HandleGenerateImage)
	r.Post("/videos", h.HandleCreateVideo)
	r.Get("/videos", h.HandleListVideos)
	r.Get("/videos/{id}", h.HandleGetVideo)
	return r
}

func TestMediaHandler_GenerateImage(t *testing.T) {
	provider := providertest.New("mock")
	provider.On("GenerateImage", mock.Anything, mock.MatchedBy(func(req *providers.ImageRequest) bool {
		return req.Prompt == "a lighthouse" && req.Style == "vivid" && req.Size == imagegen.DefaultSize
	})).Return(&providers.ImageResponse{Data: []providers.Image{{URL: "https://img/1.png"}}}, nil)

	w := do(t, mediaRouter(t, provider), http.MethodPost, "/images", `{"prompt":"a lighthouse","style":"vivid"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var result imagegen.Result
	decodeData(t, w, &result)
	assert.Equal(t, "https://img/1.png", result.URL)
	assert.Equal(t, imagegen.DefaultModel, result.Model)
}

func TestMediaHandler_GenerateImageBatch(t *testing.T) {
	provider := providertest.New("mock")
	for _, p := range []string{"cat", "dog"} {
		provider.On("GenerateImage", mock.Anything, mock.MatchedBy(func(req *providers.ImageRequest) bool {
			return req.Prompt == p
		})).Return(&providers.ImageResponse{Data: []providers.Image{{URL: "https://img/" + p}}}, nil)
	}

	w := do(t, mediaRouter(t, provider), http.MethodPost, "/images", `{"prompts":["cat","dog"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var results []imagegen.Result
	decodeData(t, w, &results)
	require.Len(t, results, 2)
	assert.Equal(t, "https://img/cat", results[0].URL)
	assert.Equal(t, "https://img/dog", results[1].URL)
}

func TestMediaHandler_ImageErrors(t *testing.T) {
	provider := providertest.New("mock")
	provider.On("GenerateImage", mock.Anything, mock.Anything).Return(&providers.ImageResponse{}, nil)
	r := mediaRouter(t, provider)

	w := do(t, r, http.MethodPost, "/images", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/images", `{"prompt":"x","size":"640x480"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/images", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = do(t, mediaRouter(t, nil), http.MethodPost, "/images", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMediaHandler_Videos(t *testing.T) {
	provider := providertest.New("mock")
	provider.On("CreateVideo", mock.Anything, &providers.VideoRequest{Model: video.DefaultModel, Prompt: "waves", Duration: 8}).
		Return(&providers.VideoResponse{Data: []providers.Video{{ID: "vid_1"}}}, nil)
	provider.On("GetVideo", mock.Anything, "vid_1").
		Return(&providers.Video{ID: "vid_1", Status: video.StatusCompleted, URL: "https://cdn/vid_1.mp4", Prompt: "waves"}, nil)
	provider.On("GetVideo", mock.Anything, "missing").
		Return(nil, providers.NewProviderError("mock", "not_found", "no such video", 404, false, nil))

	r := mediaRouter(t, provider)

	w := do(t, r, http.MethodPost, "/videos", `{"prompt":"waves","duration":8}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var created video.Result
	decodeData(t, w, &created)
	assert.Equal(t, video.StatusPending, created.Status)

	w = do(t, r, http.MethodGet, "/videos/vid_1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status video.Result
	decodeData(t, w, &status)
	assert.Equal(t, video.StatusCompleted, status.Status)
	assert.Equal(t, "https://cdn/vid_1.mp4", status.URL)

	w = do(t, r, http.MethodGet, "/videos/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/videos", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []video.Result
	decodeData(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, video.StatusCompleted, history[0].Status)

	w = do(t, r, http.MethodPost, "/videos", `{"prompt":"waves","duration":600}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

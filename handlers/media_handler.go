package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/services"
	"github.com/upb/llm-tenant-gateway/services/imagegen"
	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/services/video"
	"github.com/upb/llm-tenant-gateway/utils"
)

// ImageGenerator produces images from prompts
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, opts imagegen.Options) (*imagegen.Result, error)
	GenerateBatch(ctx context.Context, prompts []string, opts imagegen.Options) ([]*imagegen.Result, error)
}

// VideoCreator submits and tracks video generation jobs
type VideoCreator interface {
	Create(ctx context.Context, prompt string, duration int, model string) (*video.Result, error)
	Status(ctx context.Context, id string) (*video.Result, error)
	History() []video.Result
}

// ImageRequest is the body of POST /images. Prompts selects batch mode.
type ImageRequest struct {
	Prompt  string   `json:"prompt" validate:"required_without=Prompts"`
	Prompts []string `json:"prompts,omitempty" validate:"omitempty,max=10,dive,required"`
	imagegen.Options
}

// VideoRequest is the body of POST /videos
type VideoRequest struct {
	Prompt   string `json:"prompt" validate:"required"`
	Duration int    `json:"duration,omitempty" validate:"gte=0,lte=60"`
	Model    string `json:"model,omitempty"`
}

// MediaHandler exposes image and video generation. Either service may be
// nil when the configured provider does not support it.
type MediaHandler struct {
	images ImageGenerator
	videos VideoCreator
	logger *zap.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(images ImageGenerator, videos VideoCreator, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{images: images, videos: videos, logger: logger}
}

// HandleGenerateImage handles POST /images
func (h *MediaHandler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		HandleServiceError(w, services.ErrFeatureUnavailable, h.logger)
		return
	}

	var req ImageRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if len(req.Prompts) > 0 {
		results, err := h.images.GenerateBatch(r.Context(), req.Prompts, req.Options)
		if err != nil {
			h.handleMediaError(w, err)
			return
		}
		_ = utils.WriteCreated(w, results)
		return
	}

	result, err := h.images.Generate(r.Context(), req.Prompt, req.Options)
	if err != nil {
		h.handleMediaError(w, err)
		return
	}
	_ = utils.WriteCreated(w, result)
}

// HandleCreateVideo handles POST /videos
func (h *MediaHandler) HandleCreateVideo(w http.ResponseWriter, r *http.Request) {
	if h.videos == nil {
		HandleServiceError(w, services.ErrFeatureUnavailable, h.logger)
		return
	}

	var req VideoRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	result, err := h.videos.Create(r.Context(), req.Prompt, req.Duration, req.Model)
	if err != nil {
		h.handleMediaError(w, err)
		return
	}
	_ = utils.WriteJSON(w, http.StatusAccepted, utils.SuccessResponse{Data: result})
}

// HandleGetVideo handles GET /videos/{id}
func (h *MediaHandler) HandleGetVideo(w http.ResponseWriter, r *http.Request) {
	if h.videos == nil {
		HandleServiceError(w, services.ErrFeatureUnavailable, h.logger)
		return
	}

	result, err := h.videos.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleMediaError(w, err)
		return
	}
	_ = utils.WriteOK(w, result)
}

// HandleListVideos handles GET /videos
func (h *MediaHandler) HandleListVideos(w http.ResponseWriter, r *http.Request) {
	if h.videos == nil {
		HandleServiceError(w, services.ErrFeatureUnavailable, h.logger)
		return
	}
	_ = utils.WriteOK(w, h.videos.History())
}

func (h *MediaHandler) handleMediaError(w http.ResponseWriter, err error) {
	var provErr *providers.ProviderError
	switch {
	case errors.Is(err, imagegen.ErrNoImage), errors.Is(err, video.ErrNoVideo):
		err = services.WrapExternal("provider returned an empty result", err)
	case errors.As(err, &provErr) && provErr.StatusCode == http.StatusNotFound:
		err = services.NewDomainError(services.ErrorTypeNotFound, "video not found", err)
	}
	HandleServiceError(w, err, h.logger)
}

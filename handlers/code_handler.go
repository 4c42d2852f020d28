package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/services"
	"github.com/upb/llm-tenant-gateway/services/codeassist"
	"github.com/upb/llm-tenant-gateway/utils"
)

// CodeAssistant is the set of code operations exposed over HTTP
type CodeAssistant interface {
	Complete(ctx context.Context, code string) (string, error)
	Explain(ctx context.Context, code string) (string, error)
	Review(ctx context.Context, code string) (*codeassist.ReviewResult, error)
	FixBug(ctx context.Context, code, description string) (string, error)
	GenerateDoc(ctx context.Context, code string, style codeassist.DocStyle) (string, error)
}

// CodeRequest is the body of POST /code/{operation}
type CodeRequest struct {
	Code        string `json:"code" validate:"required"`
	Description string `json:"description,omitempty"`
	Style       string `json:"style,omitempty" validate:"omitempty,oneof=godoc jsdoc tsdoc python"`
}

// CodeResponse carries the text produced by every operation except review
type CodeResponse struct {
	Operation string `json:"operation"`
	Result    string `json:"result"`
}

// CodeHandler dispatches code assistant operations
type CodeHandler struct {
	assistant CodeAssistant
	logger    *zap.Logger
}

// NewCodeHandler creates a new CodeHandler
func NewCodeHandler(assistant CodeAssistant, logger *zap.Logger) *CodeHandler {
	return &CodeHandler{assistant: assistant, logger: logger}
}

// HandleOperation handles POST /code/{operation} where operation is one of
// complete, explain, review, fix or doc.
func (h *CodeHandler) HandleOperation(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "operation")
	switch op {
	case "complete", "explain", "review", "fix", "doc":
	default:
		HandleServiceError(w, services.ErrUnknownOperation, h.logger)
		return
	}

	var req CodeRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	ctx := r.Context()
	var (
		result string
		err    error
	)
	switch op {
	case "complete":
		result, err = h.assistant.Complete(ctx, req.Code)
	case "explain":
		result, err = h.assistant.Explain(ctx, req.Code)
	case "fix":
		result, err = h.assistant.FixBug(ctx, req.Code, req.Description)
	case "doc":
		result, err = h.assistant.GenerateDoc(ctx, req.Code, codeassist.DocStyle(req.Style))
	case "review":
		review, rerr := h.assistant.Review(ctx, req.Code)
		if rerr != nil {
			HandleServiceError(w, rerr, h.logger)
			return
		}
		_ = utils.WriteOK(w, review)
		return
	}

	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, CodeResponse{Operation: op, Result: result})
}

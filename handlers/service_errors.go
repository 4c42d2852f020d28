package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/services"
	"github.com/upb/llm-tenant-gateway/utils"
)

// HandleServiceError maps service and provider errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	err = services.Classify(err)
	details := services.GetErrorDetails(err)

	var status int
	message := err.Error()
	switch {
	case services.IsNotFoundError(err):
		status = http.StatusNotFound
	case services.IsValidationError(err):
		status = http.StatusBadRequest
	case services.IsRateLimitError(err):
		status = http.StatusTooManyRequests
	case services.IsUnavailableError(err):
		status = http.StatusServiceUnavailable
	case services.IsExternalError(err):
		status = http.StatusBadGateway
	default:
		// Internal details stay in the log
		logger.Error("internal server error", zap.Error(err))
		status = http.StatusInternalServerError
		message = "An internal error occurred"
		details = nil
	}

	logger.Debug("handled service error",
		zap.String("type", string(services.GetErrorType(err))),
		zap.Int("status", status),
		zap.Error(err))

	if len(details) == 0 {
		details = nil
	}
	if werr := utils.WriteError(w, status, message, details); werr != nil {
		logger.Error("failed to write error response", zap.Error(werr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		details := make(map[string]interface{})
		for k, v := range utils.GetValidationFields(err) {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// decodeAndValidate reads a JSON body into v and validates it. It writes the
// 400 response itself and reports whether the handler should continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, v); err != nil {
		logger.Debug("failed to parse request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/services/providers"
	"github.com/upb/llm-tenant-gateway/utils"
)

// ChatBot is the conversation driven by the chatbot endpoints
type ChatBot interface {
	Chat(ctx context.Context, message string) (string, error)
	ChatStream(ctx context.Context, message string, onChunk func(string) error) (string, error)
	ClearHistory()
	History() []providers.Message
}

// ChatBotMessageRequest is the body of POST /chatbot/messages
type ChatBotMessageRequest struct {
	Message string `json:"message" validate:"required"`
	Stream  bool   `json:"stream,omitempty"`
}

// ChatBotHistoryResponse lists the conversation so far
type ChatBotHistoryResponse struct {
	Messages []providers.Message `json:"messages"`
	Count    int                 `json:"count"`
}

type streamEvent struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChatBotHandler exposes a single shared conversation over HTTP
type ChatBotHandler struct {
	bot    ChatBot
	logger *zap.Logger
}

// NewChatBotHandler creates a new ChatBotHandler
func NewChatBotHandler(bot ChatBot, logger *zap.Logger) *ChatBotHandler {
	return &ChatBotHandler{bot: bot, logger: logger}
}

// HandleMessage handles POST /chatbot/messages. With stream set the reply
// is sent as server-sent events, one per fragment, ending with [DONE].
func (h *ChatBotHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatBotMessageRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	if req.Stream {
		h.stream(w, r, req.Message)
		return
	}

	reply, err := h.bot.Chat(r.Context(), req.Message)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, TenantChatResponse{Response: reply})
}

// HandleHistory handles GET /chatbot/history
func (h *ChatBotHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history := h.bot.History()
	_ = utils.WriteOK(w, ChatBotHistoryResponse{Messages: history, Count: len(history)})
}

// HandleClear handles DELETE /chatbot/history
func (h *ChatBotHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	h.bot.ClearHistory()
	utils.WriteNoContent(w)
}

func (h *ChatBotHandler) stream(w http.ResponseWriter, r *http.Request, message string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = utils.WriteInternalServerError(w, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(ev streamEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	_, err := h.bot.ChatStream(r.Context(), message, func(chunk string) error {
		return send(streamEvent{Content: chunk})
	})
	if err != nil {
		h.logger.Warn("chatbot stream failed", zap.Error(err))
		_ = send(streamEvent{Error: err.Error()})
	}

	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

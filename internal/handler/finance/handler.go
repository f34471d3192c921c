package finance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/personal-finance-assistant/backend/internal/service/agent"
	"github.com/personal-finance-assistant/backend/internal/service/tools"
	"github.com/personal-finance-assistant/backend/pkg/utils"
)

const processingError = "Error processing request"

// Assistant answers one finance question. *agent.Agent satisfies it.
type Assistant interface {
	Handle(ctx context.Context, question string) (string, error)
}

// Handler 财务助手的HTTP处理器
type Handler struct {
	assistant Assistant
	ws        *WebSocketHandler
}

// New 创建财务助手处理器; allowedOrigins 用于 WebSocket 的来源校验。
func New(assistant Assistant, allowedOrigins []string) *Handler {
	return &Handler{
		assistant: assistant,
		ws:        NewWebSocketHandler(assistant, allowedOrigins),
	}
}

// RegisterRoutes 注册财务助手相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/finance", h.handleQuestion)
	r.Get("/finance/tools", h.handleListTools)
	r.Get("/finance/ws", h.ws.ServeHTTP)
}

type questionRequest struct {
	Question string `json:"question"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// handleQuestion 处理 POST /api/finance
func (h *Handler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "assistant unavailable")
		return
	}

	var payload questionRequest
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Question) == "" {
		utils.RespondError(w, http.StatusBadRequest, "question is required")
		return
	}

	reply, err := h.assistant.Handle(r.Context(), payload.Question)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuestion) {
			utils.RespondError(w, http.StatusBadRequest, "question is required")
			return
		}
		slog.ErrorContext(r.Context(), "error processing request", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, processingError)
		return
	}

	utils.RespondJSON(w, http.StatusOK, replyResponse{Reply: reply})
}

// handleListTools 列出助手可调用的工具
func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, tools.Specs())
}

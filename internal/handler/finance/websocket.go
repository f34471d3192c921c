package finance

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/personal-finance-assistant/backend/internal/service/agent"
	"github.com/personal-finance-assistant/backend/pkg/utils"
)

// WebSocketHandler answers questions over a websocket, one frame in, one frame out.
// Each frame is an independent conversation.
type WebSocketHandler struct {
	assistant Assistant
	upgrader  websocket.Upgrader
}

type socketReply struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(assistant Assistant, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	return &WebSocketHandler{
		assistant: assistant,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if _, ok := allowed["*"]; ok {
					return true
				}
				_, ok := allowed[strings.TrimSuffix(origin, "/")]
				return ok
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		http.Error(w, "assistant unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(utils.MaxBodyBytes)

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "websocket read failed", "error", err)
			}
			return
		}

		var payload questionRequest
		if err := json.Unmarshal(data, &payload); err != nil {
			if !h.write(conn, socketReply{Error: "invalid message"}) {
				return
			}
			continue
		}

		resp := h.answer(r, payload.Question)
		if !h.write(conn, resp) {
			return
		}
	}
}

func (h *WebSocketHandler) answer(r *http.Request, question string) socketReply {
	if strings.TrimSpace(question) == "" {
		return socketReply{Error: "question is required"}
	}

	reply, err := h.assistant.Handle(r.Context(), question)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyQuestion) {
			return socketReply{Error: "question is required"}
		}
		slog.ErrorContext(r.Context(), "error processing websocket question", "error", err)
		return socketReply{Error: processingError}
	}
	return socketReply{Reply: reply}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, resp socketReply) bool {
	if err := conn.WriteJSON(resp); err != nil {
		slog.Warn("websocket write failed", "error", err)
		return false
	}
	return true
}

package finance

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/personal-finance-assistant/backend/pkg/utils"
)

func dialSocket(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/finance/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestWebSocketAnswersEachFrame(t *testing.T) {
	assistant := &stubAssistant{reply: "0 INR"}
	srv := httptest.NewServer(setupRouter(assistant))
	defer srv.Close()

	conn, _, err := dialSocket(t, srv, "http://localhost:3000")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for _, question := range []string{"balance?", "and now?"} {
		if err := conn.WriteJSON(map[string]string{"question": question}); err != nil {
			t.Fatalf("write: %v", err)
		}
		var got socketReply
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.Reply != "0 INR" || got.Error != "" {
			t.Fatalf("unexpected frame: %+v", got)
		}
	}

	if err := conn.WriteJSON(map[string]string{"question": " "}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got socketReply
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Error != "question is required" {
		t.Fatalf("expected validation error, got %+v", got)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Error != "invalid message" {
		t.Fatalf("expected invalid message, got %+v", got)
	}

	if asked := assistant.asked(); len(asked) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(asked))
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv := httptest.NewServer(setupRouter(&stubAssistant{}))
	defer srv.Close()

	_, resp, err := dialSocket(t, srv, "https://evil.example")
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}

func TestWebSocketClosesOnOversizedFrame(t *testing.T) {
	assistant := &stubAssistant{reply: "0 INR"}
	srv := httptest.NewServer(setupRouter(assistant))
	defer srv.Close()

	conn, _, err := dialSocket(t, srv, "")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	question := strings.Repeat("a", utils.MaxBodyBytes)
	// the server may hang up mid-write, only the read outcome matters
	_ = conn.WriteJSON(map[string]string{"question": question})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got socketReply
	err = conn.ReadJSON(&got)
	if err == nil {
		t.Fatalf("expected connection to be closed, got frame %+v", got)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatalf("server kept the connection open: %v", err)
	}
	if asked := assistant.asked(); len(asked) != 0 {
		t.Fatalf("oversized frame reached the assistant: %d questions", len(asked))
	}
}

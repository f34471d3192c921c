package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.3-70b-versatile",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_abc",
        "type": "function",
        "function": {"name": "addExpense", "arguments": "{\"name\":\"tea\",\"amount\":\"20\"}"}
      }]
    }
  }]
}`

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string `json:"role"`
		Content    string `json:"content"`
		ToolCallID string `json:"tool_call_id"`
	} `json:"messages"`
	Tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name       string          `json:"name"`
			Parameters json.RawMessage `json:"parameters"`
		} `json:"function"`
	} `json:"tools"`
	Temperature float32 `json:"temperature"`
}

func newServer(t *testing.T, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func addExpenseInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: "addExpense",
		Desc: "Add new expense entry to the expense database.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"name":   {Type: schema.String, Desc: "Name of the expense."},
			"amount": {Type: schema.String, Desc: "Amount of the expense."},
		}),
	}
}

func TestGenerateSendsToolsAndParsesToolCalls(t *testing.T) {
	var captured capturedRequest
	srv := newServer(t, toolCallResponse, &captured)

	base, err := NewChatModel(Config{APIKey: "test-key", BaseURL: srv.URL + "/", Model: "llama-3.3-70b-versatile"})
	require.NoError(t, err)

	bound, err := base.WithTools([]*schema.ToolInfo{addExpenseInfo(), {Name: "getMoneyBalance", Desc: "Get balance."}})
	require.NoError(t, err)

	msg, err := bound.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You are Josh."),
		schema.UserMessage("I bought tea for 20"),
	})
	require.NoError(t, err)

	assert.Equal(t, "llama-3.3-70b-versatile", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)

	require.Len(t, captured.Tools, 2)
	assert.Equal(t, "function", captured.Tools[0].Type)
	assert.Equal(t, "addExpense", captured.Tools[0].Function.Name)
	assert.Contains(t, string(captured.Tools[0].Function.Parameters), "amount")
	assert.Contains(t, string(captured.Tools[1].Function.Parameters), "object")

	assert.Equal(t, schema.Assistant, msg.Role)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_abc", msg.ToolCalls[0].ID)
	assert.Equal(t, "addExpense", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"name":"tea","amount":"20"}`, msg.ToolCalls[0].Function.Arguments)
}

func TestGenerateReplaysToolMessages(t *testing.T) {
	var captured capturedRequest
	srv := newServer(t, `{"choices":[{"index":0,"message":{"role":"assistant","content":"Done."}}]}`, &captured)

	chatModel, err := NewChatModel(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	assistant := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_1",
		Function: schema.FunctionCall{Name: "getMoneyBalance", Arguments: "{}"},
	}})

	msg, err := chatModel.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("balance?"),
		assistant,
		schema.ToolMessage("100 INR", "call_1"),
	}, model.WithTemperature(0.2), model.WithModel("override"))
	require.NoError(t, err)

	assert.Equal(t, "Done.", msg.Content)
	assert.Empty(t, msg.ToolCalls)
	assert.Equal(t, "override", captured.Model)
	assert.InDelta(t, 0.2, captured.Temperature, 0.0001)
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "tool", captured.Messages[3].Role)
	assert.Equal(t, "call_1", captured.Messages[3].ToolCallID)
	assert.Equal(t, "100 INR", captured.Messages[3].Content)
}

func TestGenerateWithoutChoices(t *testing.T) {
	var captured capturedRequest
	srv := newServer(t, `{"choices":[]}`, &captured)

	chatModel, err := NewChatModel(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = chatModel.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limit","type":"requests"}}`)
	}))
	defer srv.Close()

	chatModel, err := NewChatModel(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = chatModel.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
}

func TestStreamWrapsSingleMessage(t *testing.T) {
	var captured capturedRequest
	srv := newServer(t, `{"choices":[{"index":0,"message":{"role":"assistant","content":"Hello"}}]}`, &captured)

	chatModel, err := NewChatModel(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	reader, err := chatModel.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer reader.Close()

	msg, err := reader.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hello", msg.Content)

	_, err = reader.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewChatModelValidation(t *testing.T) {
	_, err := NewChatModel(Config{Model: "m"})
	assert.Error(t, err)

	_, err = NewChatModel(Config{APIKey: "k"})
	assert.Error(t, err)
}

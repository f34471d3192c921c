package chat

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assistantWithCalls(ids ...string) *schema.Message {
	calls := make([]schema.ToolCall, 0, len(ids))
	for _, id := range ids {
		calls = append(calls, schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: "getMoneyBalance"}})
	}
	return schema.AssistantMessage("", calls)
}

func TestNewTranscriptRequiresSystemPrompt(t *testing.T) {
	_, err := NewTranscript(schema.UserMessage("hi"))
	assert.ErrorIs(t, err, ErrMissingSystemPrompt)

	_, err = NewTranscript(nil)
	assert.ErrorIs(t, err, ErrMissingSystemPrompt)

	tr, err := NewTranscript(schema.SystemMessage("You are Josh."))
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, schema.System, tr.Last().Role)
}

func TestAppendPreservesOrder(t *testing.T) {
	tr, err := NewTranscript(schema.SystemMessage("sys"))
	require.NoError(t, err)

	require.NoError(t, tr.Append(schema.UserMessage("balance?")))
	require.NoError(t, tr.Append(assistantWithCalls("a", "b")))
	require.NoError(t, tr.Append(schema.ToolMessage("1 INR", "a")))
	require.NoError(t, tr.Append(schema.ToolMessage("2 INR", "b")))

	msgs := tr.Messages()
	require.Len(t, msgs, 5)
	roles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.Tool, schema.Tool}
	for i, role := range roles {
		assert.Equal(t, role, msgs[i].Role, "position %d", i)
	}
	assert.Equal(t, "2 INR", tr.Last().Content)

	msgs[0] = nil
	assert.NotNil(t, tr.Messages()[0])
}

func TestAppendRejectsOrphanToolResults(t *testing.T) {
	tr, err := NewTranscript(schema.SystemMessage("sys"))
	require.NoError(t, err)
	require.NoError(t, tr.Append(schema.UserMessage("hi")))

	assert.ErrorIs(t, tr.Append(schema.ToolMessage("x", "a")), ErrOrphanToolResult)

	require.NoError(t, tr.Append(assistantWithCalls("a")))
	assert.ErrorIs(t, tr.Append(schema.ToolMessage("x", "other")), ErrOrphanToolResult)
	assert.ErrorIs(t, tr.Append(schema.ToolMessage("x", "")), ErrOrphanToolResult)

	require.NoError(t, tr.Append(schema.ToolMessage("x", "a")))
	assert.ErrorIs(t, tr.Append(schema.ToolMessage("again", "a")), ErrOrphanToolResult)

	// a newer assistant message closes the earlier call set
	require.NoError(t, tr.Append(assistantWithCalls("b")))
	assert.ErrorIs(t, tr.Append(schema.ToolMessage("late", "a")), ErrOrphanToolResult)
}

func TestAppendRejectsSecondSystemMessage(t *testing.T) {
	tr, err := NewTranscript(schema.SystemMessage("sys"))
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Append(schema.SystemMessage("again")), ErrExtraSystemPrompt)
	assert.ErrorIs(t, tr.Append(nil), ErrNilMessage)
}

func TestTruncateKeepsSystemPrompt(t *testing.T) {
	tr, err := NewTranscript(schema.SystemMessage("sys"))
	require.NoError(t, err)
	require.NoError(t, tr.Append(schema.UserMessage("balance?")))
	require.NoError(t, tr.Append(assistantWithCalls("a")))

	tr.Truncate(2)
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, schema.User, tr.Last().Role)

	tr.Truncate(0)
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, schema.System, tr.Last().Role)

	tr.Truncate(5)
	assert.Equal(t, 1, tr.Len())
}

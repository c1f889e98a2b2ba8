package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserMessageEvent(t *testing.T) {
	ev := NewUserMessageEvent("turn-1", "I want to run every morning")

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "turn-1", ev.TurnID)
	assert.Equal(t, "user", ev.Author)
	require.NotNil(t, ev.Content)
	assert.Equal(t, "user", ev.Content.Role)
	assert.Equal(t, "I want to run every morning", ev.Content.Text())
	assert.True(t, ev.IsFinalReply())
}

func TestNewFunctionResponseEvent(t *testing.T) {
	ev := NewFunctionResponseEvent("turn-1", "momentum", "call_1", "get_account_status", "new_user", nil)

	require.NotNil(t, ev.Content)
	assert.Equal(t, "tool", ev.Content.Role)
	responses := ev.FunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "call_1", responses[0].ID)
	assert.Equal(t, "new_user", responses[0].Response)
	assert.Empty(t, responses[0].Error)
	assert.False(t, ev.IsFinalReply())
}

func TestNewFunctionResponseEventCarriesError(t *testing.T) {
	ev := NewFunctionResponseEvent("turn-1", "momentum", "call_2", "create_commitment", nil,
		errors.New("stake_amount must be positive"))

	responses := ev.FunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "stake_amount must be positive", responses[0].Error)
}

func TestFunctionCallsExtraction(t *testing.T) {
	ev := NewAssistantEvent("turn-1", "momentum", Content{
		Role: "assistant",
		Parts: []Part{
			TextPart{Text: "Checking that for you."},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "call_1", Name: "get_active_commitment", Arguments: `{}`}},
		},
	})

	calls := ev.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "get_active_commitment", calls[0].Name)
	assert.False(t, ev.IsFinalReply())
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

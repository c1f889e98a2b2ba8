package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentJSONRoundTrip(t *testing.T) {
	in := Content{
		Role: "assistant",
		Parts: []Part{
			TextPart{Text: "On it."},
			FunctionCallPart{FunctionCall: FunctionCall{ID: "call_1", Name: "get_account_status", Arguments: `{"address":"whatsapp:+4915112345678"}`}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "call_1", Name: "get_account_status", Response: "new_user"}},
			FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "call_2", Name: "create_commitment", Error: "stake_amount must be positive"}},
		},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Content
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "assistant", out.Role)
	require.Len(t, out.Parts, 4)

	text, ok := out.Parts[0].(TextPart)
	require.True(t, ok)
	assert.Equal(t, "On it.", text.Text)

	call, ok := out.Parts[1].(FunctionCallPart)
	require.True(t, ok)
	assert.Equal(t, "call_1", call.FunctionCall.ID)
	assert.Equal(t, "get_account_status", call.FunctionCall.Name)

	resp, ok := out.Parts[2].(FunctionResponsePart)
	require.True(t, ok)
	assert.Equal(t, "new_user", resp.FunctionResponse.Response)
	assert.Empty(t, resp.FunctionResponse.Error)

	failed, ok := out.Parts[3].(FunctionResponsePart)
	require.True(t, ok)
	assert.Equal(t, "stake_amount must be positive", failed.FunctionResponse.Error)
}

func TestContentUnmarshalUnknownPartDropped(t *testing.T) {
	var c Content
	err := json.Unmarshal([]byte(`{"role":"user","parts":[{"type":"video"},{"type":"text","text":"hi"}]}`), &c)
	require.NoError(t, err)
	require.Len(t, c.Parts, 1)
	assert.Equal(t, TextPart{Text: "hi"}, c.Parts[0])
}

func TestContentText(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "Hello"},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "send_message"}},
		TextPart{Text: "world"},
	}}
	assert.Equal(t, "Helloworld", c.Text())

	empty := Content{Role: "assistant"}
	assert.Equal(t, "", empty.Text())
}

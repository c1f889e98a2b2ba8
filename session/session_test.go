package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentumhq/momentum/core"
)

// Both implementations must present the same transcript contract: insertion
// order preserved, threads isolated, lazy creation on first read.
func forEachStore(t *testing.T, fn func(t *testing.T, st core.SessionStore)) {
	t.Helper()

	t.Run("in_memory", func(t *testing.T) {
		fn(t, NewInMemoryStore())
	})

	t.Run("sqlite", func(t *testing.T) {
		st, err := OpenSQLite(":memory:")
		require.NoError(t, err)
		defer st.Close()
		fn(t, st)
	})
}

func TestGetCreatesEmptySession(t *testing.T) {
	forEachStore(t, func(t *testing.T, st core.SessionStore) {
		sess, err := st.Get("thread:whatsapp:+49151")
		require.NoError(t, err)
		assert.Empty(t, sess.GetEvents())
	})
}

func TestAppendPreservesOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, st core.SessionStore) {
		threadID := "thread:whatsapp:+49151"
		for i := 0; i < 5; i++ {
			ev := core.NewUserMessageEvent("t1", fmt.Sprintf("msg-%d", i))
			require.NoError(t, st.AppendEvent(threadID, ev))
		}

		sess, err := st.Get(threadID)
		require.NoError(t, err)
		events := sess.GetEvents()
		require.Len(t, events, 5)
		for i, ev := range events {
			assert.Equal(t, fmt.Sprintf("msg-%d", i), ev.Content.Text())
		}
	})
}

func TestThreadsAreIsolated(t *testing.T) {
	forEachStore(t, func(t *testing.T, st core.SessionStore) {
		require.NoError(t, st.AppendEvent("thread:a", core.NewUserMessageEvent("t1", "for a")))
		require.NoError(t, st.AppendEvent("thread:b", core.NewUserMessageEvent("t1", "for b")))

		a, err := st.Get("thread:a")
		require.NoError(t, err)
		b, err := st.Get("thread:b")
		require.NoError(t, err)

		require.Len(t, a.GetEvents(), 1)
		require.Len(t, b.GetEvents(), 1)
		assert.Equal(t, "for a", a.GetEvents()[0].Content.Text())
		assert.Equal(t, "for b", b.GetEvents()[0].Content.Text())
	})
}

func TestMixedTurnRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, st core.SessionStore) {
		threadID := "thread:whatsapp:+49151"
		require.NoError(t, st.AppendEvent(threadID, core.NewUserMessageEvent("t1", "hi")))
		require.NoError(t, st.AppendEvent(threadID, core.NewAssistantEvent("t1", "momentum", core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID: "call_1", Name: "get_account_status", Arguments: `{"address":"whatsapp:+49151"}`,
			}}},
		})))
		require.NoError(t, st.AppendEvent(threadID, core.NewFunctionResponseEvent("t1", "momentum", "call_1", "get_account_status", "new_user", nil)))

		sess, err := st.Get(threadID)
		require.NoError(t, err)
		events := sess.GetEvents()
		require.Len(t, events, 3)

		calls := events[1].FunctionCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "get_account_status", calls[0].Name)
		assert.Equal(t, `{"address":"whatsapp:+49151"}`, calls[0].Arguments)

		responses := events[2].FunctionResponses()
		require.Len(t, responses, 1)
		assert.Equal(t, "new_user", responses[0].Response)
	})
}

func TestInMemoryGetReturnsCopy(t *testing.T) {
	st := NewInMemoryStore()
	require.NoError(t, st.AppendEvent("thread:a", core.NewUserMessageEvent("t1", "hi")))

	sess, err := st.Get("thread:a")
	require.NoError(t, err)
	sess.AddEvent(core.NewUserMessageEvent("t2", "local only"))

	again, err := st.Get("thread:a")
	require.NoError(t, err)
	assert.Len(t, again.GetEvents(), 1)
}

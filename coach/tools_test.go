package coach

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentumhq/momentum/core"
	"github.com/momentumhq/momentum/logging"
	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/store"
	"github.com/momentumhq/momentum/tool"
)

const testAddress = "whatsapp:+4915112345678"

func testToolContext() *core.ToolContext {
	return core.NewToolContext(context.Background(), logging.NoOpLogger{}, "call_1")
}

func commitmentArgs() map[string]any {
	return map[string]any{
		"address":             testAddress,
		"goal_description":    "Run 5k three times a week",
		"task_description":    "Run 5k",
		"start_date":          "2026-09-01",
		"end_date":            "2026-09-30",
		"stake_amount":        50.0,
		"stake_type":          "per_missed_period",
		"schedule":            "weekly:mon,wed,fri",
		"verification_method": "photo of the tracker screen",
	}
}

func TestAccountStatusTool(t *testing.T) {
	st := store.NewMemoryStore()
	impl := newAccountStatusTool(st)

	// First contact creates the account and reports the onboarding stage.
	result, err := impl.Call(testToolContext(), map[string]any{"address": testAddress})
	require.NoError(t, err)
	assert.Equal(t, "new_user", result)

	// After the name is recorded the stage moves forward and carries it.
	_, err = st.UpdateAccountName(context.Background(), testAddress, "Alex")
	require.NoError(t, err)
	result, err = impl.Call(testToolContext(), map[string]any{"address": testAddress})
	require.NoError(t, err)
	assert.Equal(t, "user_exists_no_goal:Alex", result)
}

func TestUpdateNameTool(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.EnsureAccount(context.Background(), testAddress)
	require.NoError(t, err)

	impl := newUpdateNameTool(st)
	result, err := impl.Call(testToolContext(), map[string]any{"address": testAddress, "name": "  Alex "})
	require.NoError(t, err)
	assert.Contains(t, result, "Alex")

	acct, err := st.GetAccount(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, "Alex", acct.Name)

	// Whitespace-only names are rejected before touching the store.
	_, err = impl.Call(testToolContext(), map[string]any{"address": testAddress, "name": "   "})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
}

func TestCreateCommitmentToolValidation(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.EnsureAccount(context.Background(), testAddress)
	require.NoError(t, err)
	impl := newCreateCommitmentTool(st)

	for name, mutate := range map[string]func(map[string]any){
		"malformed start date":   func(a map[string]any) { a["start_date"] = "01.09.2026" },
		"end before start":       func(a map[string]any) { a["end_date"] = "2026-08-01" },
		"zero stake":             func(a map[string]any) { a["stake_amount"] = 0.0 },
		"negative stake":         func(a map[string]any) { a["stake_amount"] = -10.0 },
		"unknown stake type":     func(a map[string]any) { a["stake_type"] = "weekly" },
		"empty goal description": func(a map[string]any) { a["goal_description"] = "  " },
	} {
		t.Run(name, func(t *testing.T) {
			args := commitmentArgs()
			mutate(args)
			_, err := impl.Call(testToolContext(), args)
			var toolErr *tool.ToolError
			require.ErrorAs(t, err, &toolErr)
			assert.Equal(t, tool.CodeValidation, toolErr.Code)

			// Nothing may be persisted on a rejected call.
			acct, err := st.GetAccount(context.Background(), testAddress)
			require.NoError(t, err)
			_, err = st.ActiveCommitment(context.Background(), acct.ID)
			assert.Error(t, err)
		})
	}
}

func TestCreateCommitmentToolPersists(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.EnsureAccount(context.Background(), testAddress)
	require.NoError(t, err)
	impl := newCreateCommitmentTool(st)

	result, err := impl.Call(testToolContext(), commitmentArgs())
	require.NoError(t, err)
	assert.Contains(t, result, "Run 5k three times a week")
	assert.Contains(t, result, "$50.00")

	acct, err := st.GetAccount(context.Background(), testAddress)
	require.NoError(t, err)
	c, err := st.ActiveCommitment(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StakePerMissedPeriod, c.StakeType)
	assert.Equal(t, map[string]any{"weekly": []any{"fri", "mon", "wed"}}, c.Schedule)

	// A second commitment for the same account conflicts.
	_, err = impl.Call(testToolContext(), commitmentArgs())
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeConflict, toolErr.Code)
}

func TestCreateCommitmentToolDefaults(t *testing.T) {
	st := store.NewMemoryStore()
	_, _, err := st.EnsureAccount(context.Background(), testAddress)
	require.NoError(t, err)
	impl := newCreateCommitmentTool(st)

	args := commitmentArgs()
	delete(args, "stake_type")
	delete(args, "schedule")
	_, err = impl.Call(testToolContext(), args)
	require.NoError(t, err)

	acct, _ := st.GetAccount(context.Background(), testAddress)
	c, err := st.ActiveCommitment(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StakeOneTimeOnFailure, c.StakeType)
	assert.Equal(t, map[string]any{"daily": true}, c.Schedule)
}

func TestActiveCommitmentTool(t *testing.T) {
	st := store.NewMemoryStore()
	acct, _, err := st.EnsureAccount(context.Background(), testAddress)
	require.NoError(t, err)
	impl := newActiveCommitmentTool(st)

	// No commitment yet.
	_, err = impl.Call(testToolContext(), map[string]any{"address": testAddress})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeNotFound, toolErr.Code)

	_, err = st.CreateCommitment(context.Background(), &store.Commitment{
		AccountID:       acct.ID,
		GoalDescription: "Read 20 pages a day",
		StartDate:       "2026-09-01",
		EndDate:         "2026-09-30",
		StakeAmount:     25,
		StakeType:       store.StakeOneTimeOnFailure,
	})
	require.NoError(t, err)

	result, err := impl.Call(testToolContext(), map[string]any{"address": testAddress})
	require.NoError(t, err)
	text, ok := result.(string)
	require.True(t, ok)
	// Stored fields must be rendered verbatim.
	assert.Contains(t, text, "Read 20 pages a day")
	assert.Contains(t, text, "$25.00")
	assert.Contains(t, text, "2026-09-01")
	assert.Contains(t, text, "2026-09-30")
	assert.Contains(t, text, "Not specified")
}

func TestCreateVerificationTool(t *testing.T) {
	st := store.NewMemoryStore()
	acct, _, err := st.EnsureAccount(context.Background(), testAddress)
	require.NoError(t, err)
	c, err := st.CreateCommitment(context.Background(), &store.Commitment{
		AccountID: acct.ID, GoalDescription: "g", StartDate: "2026-09-01", EndDate: "2026-09-30",
		StakeAmount: 10, StakeType: store.StakeOneTimeOnFailure,
	})
	require.NoError(t, err)
	impl := newCreateVerificationTool(st)

	_, err = impl.Call(testToolContext(), map[string]any{
		"commitment_id":   float64(c.ID), // JSON numbers decode as float64
		"due_date":        "2026-09-02",
		"proof_reference": "https://example.test/proof.jpg",
	})
	require.NoError(t, err)

	recorded := st.Verifications()
	require.Len(t, recorded, 1)
	assert.Equal(t, c.ID, recorded[0].CommitmentID)
	assert.Equal(t, store.VerificationCompletedOnTime, recorded[0].Status)

	// Unknown commitment id.
	_, err = impl.Call(testToolContext(), map[string]any{"commitment_id": 9999.0, "due_date": "2026-09-02"})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeNotFound, toolErr.Code)

	// Malformed date.
	_, err = impl.Call(testToolContext(), map[string]any{"commitment_id": float64(c.ID), "due_date": "tomorrow"})
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
}

func TestSendMessageToolMapsDeliveryFailure(t *testing.T) {
	sender := messaging.NewMemorySender()
	impl := newSendMessageTool(sender)

	result, err := impl.Call(testToolContext(), map[string]any{"address": testAddress, "body": "Reminder!"})
	require.NoError(t, err)
	assert.Contains(t, result, "delivered")

	sender.FailNext(1)
	_, err = impl.Call(testToolContext(), map[string]any{"address": testAddress, "body": "again"})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeDelivery, toolErr.Code)
}

func TestParseSchedule(t *testing.T) {
	assert.Equal(t, map[string]any{"daily": true}, parseSchedule(""))
	assert.Equal(t, map[string]any{"daily": true}, parseSchedule("daily"))
	assert.Equal(t, map[string]any{"daily": true}, parseSchedule("whenever"))
	assert.Equal(t, map[string]any{"weekly": []any{"mon", "wed"}}, parseSchedule("weekly:wed, mon"))
	assert.Equal(t, map[string]any{"weekly": []any{}}, parseSchedule("weekly"))
}

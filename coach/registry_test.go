package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/store"
	"github.com/momentumhq/momentum/tool"
)

func newTestRegistry() *Registry {
	return NewRegistry(store.NewMemoryStore(), messaging.NewMemorySender())
}

func toolNames(tools []tool.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	return names
}

func TestRegistryStageBindings(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t,
		[]string{"get_account_status", "update_account_name", "send_message"},
		toolNames(r.ForStage(StageNewUser)))
	assert.Equal(t,
		[]string{"get_account_status", "create_commitment", "get_active_commitment", "send_message"},
		toolNames(r.ForStage(StageNoGoal)))
	assert.Equal(t,
		[]string{"get_account_status", "get_active_commitment", "create_verification", "send_message"},
		toolNames(r.ForStage(StageActiveGoal)))
}

func TestRegistryLookupRespectsStage(t *testing.T) {
	r := newTestRegistry()

	// In-stage lookup succeeds.
	impl, ok := r.Lookup(StageNoGoal, "create_commitment")
	require.True(t, ok)
	assert.Equal(t, "create_commitment", impl.Name())

	// The same tool is invisible outside its stages.
	_, ok = r.Lookup(StageNewUser, "create_commitment")
	assert.False(t, ok)
	_, ok = r.Lookup(StageActiveGoal, "create_commitment")
	assert.False(t, ok)

	_, ok = r.Lookup(StageNewUser, "create_verification")
	assert.False(t, ok)
	_, ok = r.Lookup(StageNoGoal, "update_account_name")
	assert.False(t, ok)

	// Unknown names resolve to nothing in any stage.
	for _, stage := range []Stage{StageNewUser, StageNoGoal, StageActiveGoal} {
		_, ok := r.Lookup(stage, "drop_tables")
		assert.False(t, ok)
	}
}

func TestRegistryDefinitions(t *testing.T) {
	r := newTestRegistry()
	defs := r.Definitions(StageNewUser)
	require.Len(t, defs, 3)
	for _, def := range defs {
		assert.Equal(t, "function", def.Type)
		assert.NotEmpty(t, def.Function.Name)
		assert.NotEmpty(t, def.Function.Description)
		assert.Equal(t, "object", def.Function.Parameters["type"])
	}
}

func TestErrStageViolation(t *testing.T) {
	err := errStageViolation(StageNewUser, "create_commitment")
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
	assert.Contains(t, toolErr.Message, "not available in stage new_user")
}

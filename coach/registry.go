package coach

import (
	"fmt"

	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/model"
	"github.com/momentumhq/momentum/store"
	"github.com/momentumhq/momentum/tool"
)

// Registry binds each conversation stage to the subset of tools that are
// legal in it. The reasoning loop only ever sees the current stage's subset,
// so a reasoning error cannot produce an out-of-stage side effect: creating a
// commitment during onboarding is structurally impossible, not just
// discouraged by the instructions.
type Registry struct {
	byStage map[Stage][]tool.Tool
}

// NewRegistry builds the full tool set against the given store and sender and
// wires the per-stage bindings.
func NewRegistry(st store.Store, sender messaging.Sender) *Registry {
	status := newAccountStatusTool(st)
	updateName := newUpdateNameTool(st)
	send := newSendMessageTool(sender)
	createCommitment := newCreateCommitmentTool(st)
	activeCommitment := newActiveCommitmentTool(st)
	createVerification := newCreateVerificationTool(st)

	return &Registry{byStage: map[Stage][]tool.Tool{
		StageNewUser:    {status, updateName, send},
		StageNoGoal:     {status, createCommitment, activeCommitment, send},
		StageActiveGoal: {status, activeCommitment, createVerification, send},
	}}
}

// ForStage returns the tools legal in the given stage, in declaration order.
func (r *Registry) ForStage(stage Stage) []tool.Tool {
	return r.byStage[stage]
}

// Lookup resolves a tool by name within a stage's legal subset.
func (r *Registry) Lookup(stage Stage, name string) (tool.Tool, bool) {
	for _, t := range r.byStage[stage] {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Definitions renders a stage's tools as model-facing declarations.
func (r *Registry) Definitions(stage Stage) []model.ToolDefinition {
	tools := r.byStage[stage]
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// errStageViolation is returned when the model requests a tool outside the
// current stage's subset. It flows back into the transcript as a tool error
// so the model can recover, and it is never executed.
func errStageViolation(stage Stage, name string) error {
	return tool.NewToolError(name,
		fmt.Sprintf("tool not available in stage %s", stage),
		tool.CodeValidation)
}

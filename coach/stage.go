package coach

import "github.com/momentumhq/momentum/store"

// Stage is the derived conversation phase. It is computed from persisted
// state on every inbound turn, never stored, so it always reflects what
// actually got committed.
type Stage string

const (
	// StageNewUser covers accounts with no recorded name yet.
	StageNewUser Stage = "new_user"
	// StageNoGoal covers named accounts without an active commitment.
	StageNoGoal Stage = "user_exists_no_goal"
	// StageActiveGoal covers named accounts with an active commitment.
	StageActiveGoal Stage = "user_exists_active_goal"
)

// ResolveStage maps the persisted account snapshot to its conversation stage.
// Deterministic and total: the three cases are disjoint and exhaustive. The
// account is always synthesized before resolution (see Coach.HandleInbound),
// so a nil account never reaches this function in practice; it is treated as
// a brand-new user for robustness.
func ResolveStage(acct *store.Account, hasActiveCommitment bool) Stage {
	if acct == nil || acct.Name == "" {
		return StageNewUser
	}
	if hasActiveCommitment {
		return StageActiveGoal
	}
	return StageNoGoal
}

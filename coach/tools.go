package coach

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/momentumhq/momentum/core"
	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/store"
	"github.com/momentumhq/momentum/tool"
)

// Argument structs drive both the JSON schema shown to the model and the
// validation applied before execution. Pointer fields are optional.

type accountStatusArgs struct {
	Address string `json:"address" description:"The user's address, including the whatsapp: prefix."`
}

type updateNameArgs struct {
	Address string `json:"address" description:"The user's address, including the whatsapp: prefix."`
	Name    string `json:"name" description:"The user's first name to save."`
}

type sendMessageArgs struct {
	Address string `json:"address" description:"The recipient's address."`
	Body    string `json:"body" description:"The message text to deliver."`
}

type createCommitmentArgs struct {
	Address            string   `json:"address" description:"The user's address to identify them."`
	GoalDescription    string   `json:"goal_description" description:"High-level description of the goal."`
	TaskDescription    *string  `json:"task_description,omitempty" description:"Specific task to be done each period."`
	StartDate          string   `json:"start_date" description:"Start date in YYYY-MM-DD format."`
	EndDate            string   `json:"end_date" description:"End date in YYYY-MM-DD format."`
	StakeAmount        float64  `json:"stake_amount" description:"Positive amount the user stakes."`
	StakeType          *string  `json:"stake_type,omitempty" description:"How the stake is charged." enum:"per_missed_period,one_time_on_failure"`
	Schedule           *string  `json:"schedule,omitempty" description:"Frequency descriptor, e.g. daily or weekly:mon,wed."`
	VerificationMethod *string  `json:"verification_method,omitempty" description:"How completion will be verified."`
}

type activeCommitmentArgs struct {
	Address string `json:"address" description:"The user's address to identify them."`
}

type createVerificationArgs struct {
	CommitmentID   int64   `json:"commitment_id" description:"Id of the commitment being verified."`
	DueDate        string  `json:"due_date" description:"Due date for this verification in YYYY-MM-DD format."`
	ProofReference *string `json:"proof_reference,omitempty" description:"Reference to the proof, e.g. a photo URL."`
	Justification  *string `json:"justification,omitempty" description:"Text justification or explanation."`
}

// newAccountStatusTool looks up (and lazily creates) the account for an
// address and reports the resolved conversation stage. Idempotent.
func newAccountStatusTool(st store.Store) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"get_account_status",
		"Look up who you are talking to. Creates the account on first contact and returns their conversation stage.",
		accountStatusArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			address := stringArg(args, "address")
			acct, created, err := st.EnsureAccount(tc.Context(), address)
			if err != nil {
				return nil, storeToolError("get_account_status", err)
			}
			if created {
				tc.Logger().Info("coach.account.created", "address", address)
			}
			hasGoal := false
			if acct.Name != "" {
				if _, err := st.ActiveCommitment(tc.Context(), acct.ID); err == nil {
					hasGoal = true
				} else if !isNotFound(err) {
					return nil, storeToolError("get_account_status", err)
				}
			}
			stage := ResolveStage(acct, hasGoal)
			if stage == StageNewUser {
				return string(stage), nil
			}
			return fmt.Sprintf("%s:%s", stage, acct.Name), nil
		})
}

// newUpdateNameTool records the counterpart's name during onboarding.
func newUpdateNameTool(st store.Store) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"update_account_name",
		"Save the user's first name after they provide it during onboarding.",
		updateNameArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			address := stringArg(args, "address")
			name := strings.TrimSpace(stringArg(args, "name"))
			if name == "" {
				return nil, tool.NewToolError("update_account_name", "name must not be empty", tool.CodeValidation)
			}
			acct, err := st.UpdateAccountName(tc.Context(), address, name)
			if err != nil {
				return nil, storeToolError("update_account_name", err)
			}
			return fmt.Sprintf("Saved the user's name as %s.", acct.Name), nil
		})
}

// newSendMessageTool delegates to the delivery adapter. The side effect is
// externally visible and not reversible.
func newSendMessageTool(sender messaging.Sender) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"send_message",
		"Send an out-of-band message to the user, e.g. a reminder that should go out immediately.",
		sendMessageArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			address := stringArg(args, "address")
			receipt, err := sender.Send(tc.Context(), address, stringArg(args, "body"))
			if err != nil {
				return nil, storeToolError("send_message", err)
			}
			return fmt.Sprintf("Message delivered with id %s.", receipt.MessageID), nil
		})
}

// newCreateCommitmentTool persists a new active commitment once all required
// fields have been collected. Validation here is the enforcement backstop in
// case the model calls early.
func newCreateCommitmentTool(st store.Store) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"create_commitment",
		"Create the user's commitment with goal, dates, stake and verification method. Call only once every required field has been collected.",
		createCommitmentArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			address := stringArg(args, "address")

			start, err := parseDate("create_commitment", "start_date", stringArg(args, "start_date"))
			if err != nil {
				return nil, err
			}
			end, err := parseDate("create_commitment", "end_date", stringArg(args, "end_date"))
			if err != nil {
				return nil, err
			}
			if end.Before(start) {
				return nil, tool.NewToolError("create_commitment", "end_date must not be before start_date", tool.CodeValidation)
			}

			stake := floatArg(args, "stake_amount")
			if stake <= 0 {
				return nil, tool.NewToolError("create_commitment", "stake_amount must be positive", tool.CodeValidation)
			}

			stakeType := store.StakeOneTimeOnFailure
			if raw := stringArg(args, "stake_type"); raw != "" {
				stakeType = store.StakeType(raw)
			}
			if !stakeType.Valid() {
				return nil, tool.NewToolError("create_commitment",
					fmt.Sprintf("stake_type must be %s or %s", store.StakePerMissedPeriod, store.StakeOneTimeOnFailure),
					tool.CodeValidation)
			}

			if strings.TrimSpace(stringArg(args, "goal_description")) == "" {
				return nil, tool.NewToolError("create_commitment", "goal_description must not be empty", tool.CodeValidation)
			}

			acct, err := st.GetAccount(tc.Context(), address)
			if err != nil {
				return nil, storeToolError("create_commitment", err)
			}

			c := &store.Commitment{
				AccountID:          acct.ID,
				GoalDescription:    stringArg(args, "goal_description"),
				TaskDescription:    stringArg(args, "task_description"),
				StartDate:          start.Format(store.DateLayout),
				EndDate:            end.Format(store.DateLayout),
				StakeAmount:        stake,
				StakeType:          stakeType,
				Schedule:           parseSchedule(stringArg(args, "schedule")),
				VerificationMethod: stringArg(args, "verification_method"),
			}
			created, err := st.CreateCommitment(tc.Context(), c)
			if err != nil {
				return nil, storeToolError("create_commitment", err)
			}
			tc.Logger().Info("coach.commitment.created", "address", address, "commitment_id", created.ID)
			return fmt.Sprintf("Commitment %d created. Goal: %s. Stake: $%.2f (%s). Period: %s to %s.",
				created.ID, created.GoalDescription, created.StakeAmount, created.StakeType,
				created.StartDate, created.EndDate), nil
		})
}

// newActiveCommitmentTool formats the active commitment for conversational
// presentation.
func newActiveCommitmentTool(st store.Store) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"get_active_commitment",
		"Retrieve the user's active commitment details.",
		activeCommitmentArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			address := stringArg(args, "address")
			acct, err := st.GetAccount(tc.Context(), address)
			if err != nil {
				return nil, storeToolError("get_active_commitment", err)
			}
			c, err := st.ActiveCommitment(tc.Context(), acct.ID)
			if err != nil {
				return nil, storeToolError("get_active_commitment", err)
			}
			return formatCommitment(c), nil
		})
}

// newCreateVerificationTool appends a proof record to a commitment.
func newCreateVerificationTool(st store.Store) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		"create_verification",
		"Record a proof submission for a commitment. Status defaults to completed on time.",
		createVerificationArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			due, err := parseDate("create_verification", "due_date", stringArg(args, "due_date"))
			if err != nil {
				return nil, err
			}
			v := &store.Verification{
				CommitmentID:   intArg(args, "commitment_id"),
				DueDate:        due.Format(store.DateLayout),
				ProofReference: stringArg(args, "proof_reference"),
				Justification:  stringArg(args, "justification"),
			}
			created, err := st.CreateVerification(tc.Context(), v)
			if err != nil {
				return nil, storeToolError("create_verification", err)
			}
			return fmt.Sprintf("Verification %d recorded for %s.", created.ID, created.DueDate), nil
		})
}

// formatCommitment renders a commitment the way the coach presents it in chat.
func formatCommitment(c *store.Commitment) string {
	task := c.TaskDescription
	if task == "" {
		task = "Not specified"
	}
	verification := c.VerificationMethod
	if verification == "" {
		verification = "Not specified"
	}
	return fmt.Sprintf("Active Goal (id %d): %s\nTask: %s\nStake: $%.2f (%s)\nPeriod: %s to %s\nVerification: %s",
		c.ID, c.GoalDescription, task, c.StakeAmount, c.StakeType, c.StartDate, c.EndDate, verification)
}

// parseSchedule turns a short frequency descriptor into the stored JSON
// shape. Empty or unrecognized input falls back to daily.
func parseSchedule(raw string) map[string]any {
	raw = strings.TrimSpace(strings.ToLower(raw))
	switch {
	case raw == "" || raw == "daily":
		return map[string]any{"daily": true}
	case strings.HasPrefix(raw, "weekly"):
		days := []any{}
		if _, rest, ok := strings.Cut(raw, ":"); ok {
			for _, d := range strings.Split(rest, ",") {
				if d = strings.TrimSpace(d); d != "" {
					days = append(days, d)
				}
			}
		}
		sort.Slice(days, func(i, j int) bool { return days[i].(string) < days[j].(string) })
		return map[string]any{"weekly": days}
	default:
		return map[string]any{"daily": true}
	}
}

func parseDate(toolName, field, value string) (time.Time, error) {
	t, err := time.Parse(store.DateLayout, value)
	if err != nil {
		return time.Time{}, tool.NewToolError(toolName,
			fmt.Sprintf("%s must be an ISO calendar date (YYYY-MM-DD), got %q", field, value),
			tool.CodeValidation)
	}
	return t, nil
}

// storeToolError maps domain errors onto the tool error taxonomy so the
// reasoning loop can phrase the right kind of corrective reply.
func storeToolError(toolName string, err error) error {
	switch e := err.(type) {
	case *store.NotFoundError:
		return tool.NewToolError(toolName, e.Error(), tool.CodeNotFound)
	case *store.ConflictError:
		return tool.NewToolError(toolName, e.Error(), tool.CodeConflict)
	case *messaging.DeliveryError:
		return tool.NewToolError(toolName, e.Error(), tool.CodeDelivery)
	default:
		return err
	}
}

func isNotFound(err error) bool {
	_, ok := err.(*store.NotFoundError)
	return ok
}

// stringArg reads an optional string argument, tolerating absence.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// floatArg reads a numeric argument; JSON decoding yields float64.
func floatArg(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// intArg reads an integer argument.
func intArg(args map[string]any, key string) int64 {
	return int64(floatArg(args, key))
}

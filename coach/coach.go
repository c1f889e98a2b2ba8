// Package coach implements the conversation orchestration core: a
// deterministic stage machine wrapped around a non-deterministic language
// model. Stage transitions are derived from persisted state; the model only
// chooses among the tools legal for the current stage.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/momentumhq/momentum/core"
	"github.com/momentumhq/momentum/logging"
	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/model"
	"github.com/momentumhq/momentum/store"
)

// Options configure a Coach.
type Options struct {
	// Name is the agent author recorded on transcript turns.
	Name string
	// MaxIterations caps model turns per inbound message. When exhausted the
	// coach answers with a fixed fallback instead of erroring.
	MaxIterations int
	// FlowID is the default interactive form reference for proof submission.
	FlowID string
	// Logger receives structured events. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Coach drives one inbound turn end to end: transcript load, stage
// resolution, the bounded model/tool loop and the final reply. Safe for
// concurrent use; turns on the same thread are serialized, threads of
// different accounts proceed independently.
type Coach struct {
	llm      model.Model
	store    store.Store
	sessions core.SessionStore
	sender   messaging.Sender
	registry *Registry

	name          string
	maxIterations int
	flowID        string
	logger        logging.Logger

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

// New constructs a Coach with sensible defaults.
func New(
	llm model.Model,
	st store.Store,
	sessions core.SessionStore,
	sender messaging.Sender,
	optFns ...func(o *Options),
) *Coach {
	opts := Options{
		Name:          "momentum",
		MaxIterations: 8,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Coach{
		llm:           llm,
		store:         st,
		sessions:      sessions,
		sender:        sender,
		registry:      NewRegistry(st, sender),
		name:          opts.Name,
		maxIterations: opts.MaxIterations,
		flowID:        opts.FlowID,
		logger:        opts.Logger,
	}
}

// Registry exposes the stage/tool binding, mainly for tests and diagnostics.
func (c *Coach) Registry() *Registry { return c.registry }

// HandleInbound processes one inbound message and returns the outbound reply.
//
// Protocol per turn: append the inbound turn to the thread transcript,
// resolve the stage from persisted state, then iterate: ask the model for a
// tool call or a final reply, execute requested calls against the stage's
// legal subset, feed results back as tool turns. Tool failures are
// re-injected into the transcript rather than propagated, so the model can
// phrase a corrective reply. If the iteration cap is hit, a fixed fallback
// reply is returned.
func (c *Coach) HandleInbound(ctx context.Context, address, body string) (string, error) {
	threadID := core.DeriveThreadID(address)
	unlock := c.lockThread(threadID)
	defer unlock()

	start := time.Now()
	turnID := core.NewID()

	if err := c.sessions.AppendEvent(threadID, core.NewUserMessageEvent(turnID, body)); err != nil {
		return "", fmt.Errorf("append inbound turn: %w", err)
	}

	// Synthesize the account before resolution so the resolver never
	// observes "no account".
	acct, created, err := c.store.EnsureAccount(ctx, address)
	if err != nil {
		return "", fmt.Errorf("ensure account: %w", err)
	}
	if created {
		c.logger.Info("coach.account.created", "address", address, "thread_id", threadID)
	}

	hasGoal := false
	if acct.Name != "" {
		if _, err := c.store.ActiveCommitment(ctx, acct.ID); err == nil {
			hasGoal = true
		} else if !isNotFound(err) {
			return "", fmt.Errorf("check active commitment: %w", err)
		}
	}
	stage := ResolveStage(acct, hasGoal)
	c.logger.Info("coach.turn.start", "thread_id", threadID, "stage", string(stage))

	instructions := stageInstructions(stage, address, acct)
	defs := c.registry.Definitions(stage)

	sess, err := c.sessions.Get(threadID)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}
	contents := sess.History()

	for i := 0; i < c.maxIterations; i++ {
		resp, err := c.generate(ctx, model.Request{
			Instructions: instructions,
			Contents:     contents,
			Tools:        defs,
		})
		if err != nil {
			return "", fmt.Errorf("model generation: %w", err)
		}

		ev := core.NewAssistantEvent(turnID, c.name, resp.Content)
		if err := c.sessions.AppendEvent(threadID, ev); err != nil {
			return "", fmt.Errorf("append assistant turn: %w", err)
		}
		contents = append(contents, resp.Content)

		calls := ev.FunctionCalls()
		if len(calls) == 0 {
			reply := resp.Content.Text()
			if reply == "" {
				// A contentless final response is useless; give the model
				// another iteration rather than sending an empty message.
				continue
			}
			c.logger.Info("coach.turn.reply", "thread_id", threadID, "iterations", i+1,
				"duration_ms", time.Since(start).Milliseconds())
			return reply, nil
		}

		for _, fc := range calls {
			result, callErr := c.executeCall(ctx, stage, fc)
			respEv := core.NewFunctionResponseEvent(turnID, c.name, fc.ID, fc.Name, result, callErr)
			if err := c.sessions.AppendEvent(threadID, respEv); err != nil {
				return "", fmt.Errorf("append tool turn: %w", err)
			}
			contents = append(contents, *respEv.Content)
		}
	}

	c.logger.Warn("coach.turn.iteration_cap", "thread_id", threadID, "cap", c.maxIterations)
	fallbackEv := core.NewAssistantEvent(turnID, c.name,
		core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: fallbackReply}}})
	if err := c.sessions.AppendEvent(threadID, fallbackEv); err != nil {
		return "", fmt.Errorf("append fallback turn: %w", err)
	}
	return fallbackReply, nil
}

// RequestProofForm sends the interactive proof submission form for the
// account's active commitment. flowID overrides the configured default when
// non-empty.
func (c *Coach) RequestProofForm(ctx context.Context, address, flowID string) (*messaging.Receipt, error) {
	acct, err := c.store.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	commitment, err := c.store.ActiveCommitment(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	if flowID == "" {
		flowID = c.flowID
	}
	prompt := "Submit Proof"
	if commitment.TaskDescription != "" {
		prompt = fmt.Sprintf("Submit proof: %s", commitment.TaskDescription)
	}
	return c.sender.SendFlow(ctx, address, flowID, prompt)
}

// executeCall runs one model-requested tool call against the stage's legal
// subset. Out-of-stage requests are rejected without execution; all failures
// are returned as errors for re-injection, never executed side effects.
func (c *Coach) executeCall(ctx context.Context, stage Stage, fc core.FunctionCall) (any, error) {
	impl, ok := c.registry.Lookup(stage, fc.Name)
	if !ok {
		c.logger.Warn("coach.tool.stage_violation", "tool", fc.Name, "stage", string(stage))
		return nil, errStageViolation(stage, fc.Name)
	}

	args := map[string]any{}
	if fc.Arguments != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			return nil, fmt.Errorf("unmarshal tool arguments: %w", err)
		}
	}

	toolCtx := core.NewToolContext(ctx, c.logger, fc.ID)
	startedAt := time.Now()
	result, err := impl.Call(toolCtx, args)
	c.logger.Info("coach.tool.executed", "tool", fc.Name, "stage", string(stage),
		"duration_ms", time.Since(startedAt).Milliseconds(), "error", err != nil)
	return result, err
}

// generate runs one model call and collects the final (non-partial) response.
func (c *Coach) generate(ctx context.Context, req model.Request) (*model.Response, error) {
	respCh, errCh := c.llm.Generate(ctx, req)

	var final *model.Response
	for resp := range respCh {
		if resp.Partial {
			continue
		}
		r := resp
		final = &r
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if final == nil {
		return nil, fmt.Errorf("model produced no final response")
	}
	return final, nil
}

// lockThread serializes turns for one thread while leaving other threads
// free to proceed.
func (c *Coach) lockThread(threadID string) func() {
	c.mu.Lock()
	if c.threadLocks == nil {
		c.threadLocks = make(map[string]*sync.Mutex)
	}
	lock, ok := c.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		c.threadLocks[threadID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

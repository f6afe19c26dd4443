package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/reasoning"
	"github.com/hupe1980/agentloop/tool"
)

const (
	// thoughtConfidence only says "we are proceeding", not that the engine is right.
	thoughtConfidence  = 0.9
	decisionConfidence = 0.85

	decisionCompleted = "completed analysis"
	decisionFollowUp  = "provided follow-up"
)

// run is the mutable state of one Run or Continue call.
type run struct {
	conv    []core.Message
	tracker *reasoning.Tracker
	flagged []FlaggedItem
	state   State
	rounds  int
	logger  logging.Logger
}

func (r *run) result(err error) RunResult {
	return RunResult{
		Conversation:  r.conv,
		Trace:         r.tracker.Export(),
		Flagged:       r.flagged,
		TerminalState: r.state,
		Rounds:        r.rounds,
		Err:           err,
	}
}

func (r *run) exhaust(err error) RunResult {
	r.state = StateExhausted
	r.logger.Warn("agent.run.exhausted", "rounds", r.rounds, "error", err.Error())
	return r.result(err)
}

func (a *Agent) loop(ctx context.Context, conv []core.Message, text, decision string) RunResult {
	r := &run{
		conv:    conv,
		tracker: reasoning.NewTracker(),
		flagged: []FlaggedItem{},
		state:   StateAwaitingEngine,
		logger:  logging.With(a.logger, "component", "agent"),
	}
	r.logger = logging.With(r.logger, "session_id", r.tracker.SessionID())
	r.tracker.AddStep(reasoning.ActionObservation, fmt.Sprintf("Received user input: %s", text))

	if err := core.CheckConversation(r.conv); err != nil {
		r.tracker.AddStep(reasoning.ActionObservation, fmt.Sprintf("Conversation rejected: %v", err))
		return r.exhaust(err)
	}

	for r.rounds < a.maxRounds {
		if err := ctx.Err(); err != nil {
			r.tracker.AddStep(reasoning.ActionObservation, fmt.Sprintf("Run canceled before round %d: %v", r.rounds+1, err))
			return r.exhaust(err)
		}

		r.rounds++
		r.state = StateAwaitingEngine
		r.logger.Debug("agent.round.start", "round", r.rounds, "messages", len(r.conv))
		r.tracker.AddStep(reasoning.ActionThought,
			fmt.Sprintf("Round %d: consulting the reasoning engine", r.rounds),
			reasoning.WithConfidence(thoughtConfidence))

		resp, err := a.complete(ctx, r)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
			r.conv = append(r.conv, core.SystemMessage(fmt.Sprintf("The reasoning engine failed in round %d: %v", r.rounds, err)))
			r.tracker.AddStep(reasoning.ActionObservation, fmt.Sprintf("Engine call failed: %v", err))
			return r.exhaust(err)
		}

		turn := resp.Message
		if !turn.HasToolCalls() {
			r.conv = append(r.conv, core.AssistantMessage(turn.Text()))
			r.tracker.AddDecision(decision,
				fmt.Sprintf("The reasoning engine answered without requesting tools in round %d", r.rounds),
				reasoning.WithAlternatives("request more tool calls", "ask the user for clarification"),
				reasoning.WithEvidence(fmt.Sprintf("%d round(s)", r.rounds), fmt.Sprintf("%d flagged item(s)", len(r.flagged))),
				reasoning.WithDecisionConfidence(decisionConfidence),
				reasoning.WithRisk(riskNote(len(r.flagged))))
			r.state = StateDone
			r.logger.Info("agent.run.done", "rounds", r.rounds, "flagged", len(r.flagged))
			return r.result(nil)
		}

		calls := assignCallIDs(turn.ToolCalls)
		if err := core.CheckToolCalls(calls); err != nil {
			r.tracker.AddStep(reasoning.ActionObservation, fmt.Sprintf("Engine turn rejected: %v", err))
			return r.exhaust(err)
		}
		r.conv = append(r.conv, core.ToolCallMessage(turn.Content, calls...))

		r.state = StateDispatchingTools
		a.dispatch(ctx, r, calls)
	}

	return r.exhaust(fmt.Errorf("%w: %d", ErrMaxRounds, a.maxRounds))
}

// dispatch runs calls in engine order. Handlers run on a context detached
// from caller cancellation so an accepted call always completes.
func (a *Agent) dispatch(ctx context.Context, r *run, calls []core.ToolCall) {
	toolCtx := context.WithoutCancel(ctx)

	for _, call := range calls {
		r.logger.Debug("agent.tool.dispatch", "round", r.rounds, "tool", call.Name, "call_id", call.ID)
		r.tracker.AddStep(reasoning.ActionAction, fmt.Sprintf("Calling tool %s", call.Name), reasoning.WithTool(call.Name))

		result := a.registry.Dispatch(toolCtx, call)
		r.conv = append(r.conv, core.ToolResultMessage(call.ID, call.Name, tool.Encode(result)))

		switch res := result.(type) {
		case tool.Success:
			r.tracker.AddStep(reasoning.ActionObservation, fmt.Sprintf("Tool %s returned a result", call.Name),
				reasoning.WithTool(call.Name), reasoning.WithToolResult(res.Payload))
		case tool.Failure:
			r.logger.Warn("agent.tool.failed", "tool", call.Name, "call_id", call.ID, "kind", string(res.Kind), "error", res.Message)
			r.tracker.AddStep(reasoning.ActionObservation, fmt.Sprintf("Tool %s failed: %s", call.Name, res.Error()),
				reasoning.WithTool(call.Name), reasoning.WithToolResult(res))
		}

		if a.registry.RoleOf(call.Name) == tool.RoleFlag {
			r.flagged = append(r.flagged, FlaggedItem{CallID: call.ID, Tool: call.Name, Result: result})
		}
	}
}

// complete asks the engine for the next turn. A panicking client is reported
// as an error so the run still ends with a well-formed result.
func (a *Agent) complete(ctx context.Context, r *run) (resp model.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("agent.engine.panic", "round", r.rounds, "recover", fmt.Sprint(rec), "stack", string(debug.Stack()))
			resp = model.Response{}
			err = fmt.Errorf("engine panic: %v", rec)
		}
	}()

	if a.engineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.engineTimeout)
		defer cancel()
	}

	var onPartial func(model.Response)
	if a.onPartial != nil {
		onPartial = func(p model.Response) { a.onPartial(p.Message.Text()) }
	}

	start := time.Now()
	resp, err = model.CompleteStream(ctx, a.model, model.Request{
		Messages: core.CloneMessages(r.conv),
		Tools:    a.registry.Catalog(),
	}, onPartial)
	logging.LogEngineCall(r.logger, a.model.Info().Name, r.rounds, time.Since(start), err)

	return resp, err
}

// assignCallIDs copies calls, filling empty ids so results can be matched.
func assignCallIDs(calls []core.ToolCall) []core.ToolCall {
	out := make([]core.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = core.NewToolCallID()
		}
		out[i] = c
	}
	return out
}

func riskNote(flagged int) string {
	if flagged == 0 {
		return "no clauses flagged for review"
	}
	return fmt.Sprintf("%d item(s) flagged for human review", flagged)
}

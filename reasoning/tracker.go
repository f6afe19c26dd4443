// Package reasoning records the auditable trace of an agent run: an
// append-only sequence of reasoning steps (observation, thought, action) and
// of discrete decisions, with deterministic text summaries and a structured
// export.
package reasoning

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActionType classifies a reasoning step.
type ActionType string

const (
	ActionObservation ActionType = "observation"
	ActionThought     ActionType = "thought"
	ActionAction      ActionType = "action"
)

// Step is one immutable entry of the trace.
type Step struct {
	StepNumber int        `json:"step_number"`
	ActionType ActionType `json:"action_type"`
	Content    string     `json:"content"`
	ToolUsed   string     `json:"tool_used,omitempty"`
	ToolResult any        `json:"tool_result,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Decision is one immutable recorded decision.
type Decision struct {
	Decision               string    `json:"decision"`
	Reasoning              string    `json:"reasoning"`
	AlternativesConsidered []string  `json:"alternatives_considered"`
	Evidence               []string  `json:"evidence"`
	ConfidenceScore        float64   `json:"confidence_score"`
	RiskAssessment         string    `json:"risk_assessment"`
	Timestamp              time.Time `json:"timestamp"`
}

// Tracker is the append-only trace of one run. Step numbers are assigned
// sequentially from 1. The zero value is not usable; call NewTracker.
type Tracker struct {
	mu        sync.Mutex
	sessionID string
	steps     []Step
	decisions []Decision
	now       func() time.Time
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSessionID fixes the session id instead of deriving one.
func WithSessionID(id string) Option {
	return func(t *Tracker) { t.sessionID = id }
}

// NewTracker creates an empty tracker. The session id is derived once from
// the creation time plus a random suffix, so two trackers created in the same
// second still differ.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	for _, o := range opts {
		o(t)
	}
	if t.sessionID == "" {
		t.sessionID = fmt.Sprintf("%s_%s", t.now().Format("20060102_150405"), uuid.NewString()[:8])
	}
	return t
}

// SessionID returns the stable session identifier.
func (t *Tracker) SessionID() string { return t.sessionID }

// StepOption decorates a step before it is appended.
type StepOption func(*Step)

// WithTool names the tool a step refers to.
func WithTool(name string) StepOption {
	return func(s *Step) { s.ToolUsed = name }
}

// WithToolResult attaches a tool result to a step.
func WithToolResult(result any) StepOption {
	return func(s *Step) { s.ToolResult = result }
}

// WithConfidence attaches a confidence, clamped to [0,1].
func WithConfidence(c float64) StepOption {
	return func(s *Step) {
		c = clamp(c)
		s.Confidence = &c
	}
}

// AddStep appends a reasoning step and returns it.
func (t *Tracker) AddStep(actionType ActionType, content string, opts ...StepOption) Step {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Step{
		StepNumber: len(t.steps) + 1,
		ActionType: actionType,
		Content:    content,
		Timestamp:  t.now(),
	}
	for _, o := range opts {
		o(&s)
	}
	t.steps = append(t.steps, s)
	return s
}

// DecisionOption decorates a decision before it is appended.
type DecisionOption func(*Decision)

// WithAlternatives lists rejected alternatives in order.
func WithAlternatives(alts ...string) DecisionOption {
	return func(d *Decision) { d.AlternativesConsidered = append(d.AlternativesConsidered, alts...) }
}

// WithEvidence lists supporting evidence in order.
func WithEvidence(ev ...string) DecisionOption {
	return func(d *Decision) { d.Evidence = append(d.Evidence, ev...) }
}

// WithDecisionConfidence sets the confidence score, clamped to [0,1].
func WithDecisionConfidence(c float64) DecisionOption {
	return func(d *Decision) { d.ConfidenceScore = clamp(c) }
}

// WithRisk sets the risk assessment note.
func WithRisk(note string) DecisionOption {
	return func(d *Decision) { d.RiskAssessment = note }
}

// AddDecision appends a decision and returns it.
func (t *Tracker) AddDecision(decision, reasoning string, opts ...DecisionOption) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := Decision{
		Decision:               decision,
		Reasoning:              reasoning,
		AlternativesConsidered: []string{},
		Evidence:               []string{},
		Timestamp:              t.now(),
	}
	for _, o := range opts {
		o(&d)
	}
	t.decisions = append(t.decisions, d)
	return d
}

// Steps returns a copy of the recorded steps in append order.
func (t *Tracker) Steps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Decisions returns a copy of the recorded decisions in append order.
func (t *Tracker) Decisions() []Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Decision, len(t.decisions))
	for i, d := range t.decisions {
		out[i] = d
		out[i].AlternativesConsidered = append([]string{}, d.AlternativesConsidered...)
		out[i].Evidence = append([]string{}, d.Evidence...)
	}
	return out
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Export is the stable, serializable record of a tracker. Field names are a
// contract for audit and UI layers.
type Export struct {
	SessionID      string     `json:"session_id"`
	TotalSteps     int        `json:"total_steps"`
	TotalDecisions int        `json:"total_decisions"`
	ReasoningSteps []Step     `json:"reasoning_steps"`
	Decisions      []Decision `json:"decisions"`
}

// Export snapshots the tracker.
func (t *Tracker) Export() Export {
	steps := t.Steps()
	decisions := t.Decisions()
	return Export{
		SessionID:      t.sessionID,
		TotalSteps:     len(steps),
		TotalDecisions: len(decisions),
		ReasoningSteps: steps,
		Decisions:      decisions,
	}
}

// JSON renders the export as indented JSON.
func (e Export) JSON() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// YAML renders the export as YAML using the same field names as JSON.
func (e Export) YAML() ([]byte, error) {
	generic, err := toGeneric(e)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

// ParseJSON decodes an export written by JSON.
func ParseJSON(data []byte) (Export, error) {
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return Export{}, fmt.Errorf("decode trace export: %w", err)
	}
	return e, nil
}

// ParseYAML decodes an export written by YAML.
func ParseYAML(data []byte) (Export, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return Export{}, fmt.Errorf("decode trace export: %w", err)
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return Export{}, fmt.Errorf("decode trace export: %w", err)
	}
	return ParseJSON(raw)
}

func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode trace export: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("encode trace export: %w", err)
	}
	return generic, nil
}

// ReasoningSummary renders the steps in order. Timestamps are omitted so the
// text is deterministic for a given trace.
func (t *Tracker) ReasoningSummary() string { return summarizeSteps(t.Steps()) }

// DecisionsSummary renders the decisions in order.
func (t *Tracker) DecisionsSummary() string { return summarizeDecisions(t.Decisions()) }

// Summary concatenates the reasoning and decision summaries.
func (t *Tracker) Summary() string { return t.Export().Summary() }

// Summary renders a stored export the same way Tracker.Summary does.
func (e Export) Summary() string {
	return summarizeSteps(e.ReasoningSteps) + "\n" + summarizeDecisions(e.Decisions)
}

func summarizeSteps(steps []Step) string {
	if len(steps) == 0 {
		return "No reasoning steps recorded."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reasoning Process Summary (%d steps)\n", len(steps))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, s := range steps {
		fmt.Fprintf(&b, "Step %d: %s\n", s.StepNumber, strings.ToUpper(string(s.ActionType)))
		fmt.Fprintf(&b, "  %s\n", s.Content)
		if s.ToolUsed != "" {
			fmt.Fprintf(&b, "  Tool: %s\n", s.ToolUsed)
		}
		if s.Confidence != nil {
			fmt.Fprintf(&b, "  Confidence: %.1f%%\n", *s.Confidence*100)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func summarizeDecisions(decisions []Decision) string {
	if len(decisions) == 0 {
		return "No decisions recorded."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Decisions Made (%d decisions)\n", len(decisions))
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	for i, d := range decisions {
		fmt.Fprintf(&b, "Decision %d: %s\n", i+1, d.Decision)
		fmt.Fprintf(&b, "  Reasoning: %s\n", d.Reasoning)
		fmt.Fprintf(&b, "  Confidence: %.1f%%\n", d.ConfidenceScore*100)
		if len(d.AlternativesConsidered) > 0 {
			fmt.Fprintf(&b, "  Alternatives: %s\n", strings.Join(d.AlternativesConsidered, ", "))
		}
		if len(d.Evidence) > 0 {
			fmt.Fprintf(&b, "  Evidence: %s\n", strings.Join(d.Evidence, "; "))
		}
		if d.RiskAssessment != "" {
			fmt.Fprintf(&b, "  Risk: %s\n", d.RiskAssessment)
		}
		b.WriteString("\n")
	}

	return b.String()
}

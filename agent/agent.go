package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/reasoning"
	"github.com/hupe1980/agentloop/tool"
)

// DefaultMaxRounds bounds a run when Config.MaxRounds is zero.
const DefaultMaxRounds = 10

var (
	// ErrInvalidConfig is returned by New for an unusable Config.
	ErrInvalidConfig = errors.New("invalid agent config")

	// ErrEngineUnavailable marks a failed or timed out engine call.
	ErrEngineUnavailable = errors.New("reasoning engine unavailable")

	// ErrMaxRounds marks a run that used its whole round budget.
	ErrMaxRounds = errors.New("max rounds reached")
)

// State is a state of the agent loop.
type State string

const (
	StateAwaitingEngine   State = "AWAITING_ENGINE"
	StateDispatchingTools State = "DISPATCHING_TOOLS"
	StateDone             State = "DONE"
	StateExhausted        State = "EXHAUSTED"
)

// Config wires an Agent. Model and Registry are required.
type Config struct {
	// Model is the reasoning engine client.
	Model model.Model
	// Registry holds the tools offered to the engine.
	Registry *tool.Registry
	// MaxRounds bounds engine consultations per call. Zero means DefaultMaxRounds.
	MaxRounds int
	// SystemPrompt seeds conversations created by Run. Empty means none.
	SystemPrompt string
	// EngineTimeout bounds a single engine call. Zero means no timeout.
	EngineTimeout time.Duration
	// Logger receives loop events. Nil means logging.NoOpLogger.
	Logger logging.Logger
	// OnPartial, when set, asks the engine to stream and receives each text
	// chunk as it arrives. Chunks from tool-requesting turns are included.
	OnPartial func(text string)
}

// FlaggedItem is the result of a flag-role tool call, kept in dispatch order.
type FlaggedItem struct {
	CallID string      `json:"call_id"`
	Tool   string      `json:"tool"`
	Result tool.Result `json:"result"`
}

// RunResult is the immutable outcome of Run or Continue.
type RunResult struct {
	Conversation  []core.Message   `json:"conversation"`
	Trace         reasoning.Export `json:"trace"`
	Flagged       []FlaggedItem    `json:"flagged"`
	TerminalState State            `json:"terminal_state"`
	Rounds        int              `json:"rounds"`
	// Err is nil for DONE and explains why the run was EXHAUSTED otherwise.
	Err error `json:"-"`
}

// Done reports whether the run ended with a plain answer.
func (r RunResult) Done() bool { return r.TerminalState == StateDone }

// FinalAnswer returns the closing assistant text of a DONE run, or "".
func (r RunResult) FinalAnswer() string {
	if !r.Done() || len(r.Conversation) == 0 {
		return ""
	}
	return r.Conversation[len(r.Conversation)-1].Text()
}

// Agent runs the bounded tool-calling loop.
type Agent struct {
	model         model.Model
	registry      *tool.Registry
	maxRounds     int
	systemPrompt  string
	engineTimeout time.Duration
	logger        logging.Logger
	onPartial     func(string)
}

// New validates cfg and builds an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: tool registry is required", ErrInvalidConfig)
	}
	if cfg.MaxRounds < 0 {
		return nil, fmt.Errorf("%w: max rounds must not be negative, got %d", ErrInvalidConfig, cfg.MaxRounds)
	}
	if cfg.EngineTimeout < 0 {
		return nil, fmt.Errorf("%w: engine timeout must not be negative", ErrInvalidConfig)
	}

	a := &Agent{
		model:         cfg.Model,
		registry:      cfg.Registry,
		maxRounds:     cfg.MaxRounds,
		systemPrompt:  cfg.SystemPrompt,
		engineTimeout: cfg.EngineTimeout,
		logger:        cfg.Logger,
		onPartial:     cfg.OnPartial,
	}
	if a.maxRounds == 0 {
		a.maxRounds = DefaultMaxRounds
	}
	if a.logger == nil {
		a.logger = logging.NoOpLogger{}
	}
	return a, nil
}

// MaxRounds returns the effective round budget.
func (a *Agent) MaxRounds() int { return a.maxRounds }

// Run starts a new conversation from the system prompt and text.
func (a *Agent) Run(ctx context.Context, text string) RunResult {
	conv := make([]core.Message, 0, 2)
	if a.systemPrompt != "" {
		conv = append(conv, core.SystemMessage(a.systemPrompt))
	}
	conv = append(conv, core.UserMessage(text))

	return a.loop(ctx, conv, text, decisionCompleted)
}

// Continue appends text to a copy of conversation and resumes the loop with a
// fresh trace. A conversation whose tool results do not match their calls is
// rejected as a protocol error without consulting the engine.
func (a *Agent) Continue(ctx context.Context, conversation []core.Message, text string) RunResult {
	conv := core.CloneMessages(conversation)
	conv = append(conv, core.UserMessage(text))

	return a.loop(ctx, conv, text, decisionFollowUp)
}

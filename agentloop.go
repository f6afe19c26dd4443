// Package agentloop provides a high-level façade that assembles a contract
// analysis assistant from configuration: the reasoning engine client for the
// configured provider, a tool registry holding the contract tool set, the
// bounded agent loop and an optional trace store. Most applications interact
// with this package by:
//  1. Loading a config.Config (config.Load)
//  2. Creating an Assistant via New (optionally overriding model, store or logger)
//  3. Calling Run for a new conversation and Continue for follow-ups
//
// Every run's trace export is saved to the store when one is configured.
package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/contract"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	anthropicmodel "github.com/hupe1980/agentloop/model/anthropic"
	openaimodel "github.com/hupe1980/agentloop/model/openai"
	"github.com/hupe1980/agentloop/tool"
	"github.com/hupe1980/agentloop/tracestore"
)

// Options overrides parts of what New derives from configuration.
type Options struct {
	// Model replaces the provider client built from config.
	Model model.Model
	// Store replaces the trace store built from config.TraceDir.
	Store tracestore.Store
	// Logger replaces the logger built from config.LogLevel/LogFormat.
	Logger logging.Logger
	// Document names a loaded document for the system prompt.
	Document string
	// Now replaces time.Now for prompt rendering and saved notes.
	Now func() time.Time
	// ExtraTools are registered after the contract tool set.
	ExtraTools []tool.Tool
	// OnPartial streams engine text chunks as they arrive.
	OnPartial func(text string)
}

// Assistant is the assembled contract analysis assistant.
type Assistant struct {
	agent    *agent.Agent
	registry *tool.Registry
	toolset  *contract.Toolset
	store    tracestore.Store
	logger   logging.Logger
}

// New builds an Assistant from cfg.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Assistant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = cfg.Logger()
	}

	m := opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(cfg); err != nil {
			return nil, err
		}
	}

	store := opts.Store
	if store == nil && cfg.TraceDir != "" {
		format, err := tracestore.ParseFormat(cfg.TraceFormat)
		if err != nil {
			return nil, err
		}
		if store, err = tracestore.NewDirStore(cfg.TraceDir, format); err != nil {
			return nil, err
		}
	}

	toolsetOpts := []contract.Option{contract.WithClock(opts.Now)}
	if cfg.DocumentRoot != "" {
		toolsetOpts = append(toolsetOpts, contract.WithRoot(cfg.DocumentRoot))
	}
	toolset := contract.NewToolset(toolsetOpts...)

	registry := tool.NewRegistry(tool.WithLogger(logging.With(opts.Logger, "component", "tool")))
	if err := toolset.Register(registry); err != nil {
		return nil, err
	}
	for _, t := range opts.ExtraTools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	prompt, err := contract.RenderSystemPrompt(cfg.SystemPrompt, opts.Document, opts.Now())
	if err != nil {
		return nil, err
	}

	a, err := agent.New(agent.Config{
		Model:         m,
		Registry:      registry,
		MaxRounds:     cfg.MaxRounds,
		SystemPrompt:  prompt,
		EngineTimeout: cfg.EngineTimeout,
		Logger:        opts.Logger,
		OnPartial:     opts.OnPartial,
	})
	if err != nil {
		return nil, err
	}

	return &Assistant{agent: a, registry: registry, toolset: toolset, store: store, logger: opts.Logger}, nil
}

// NewModel builds the reasoning engine client for cfg.Provider.
func NewModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderMock:
		return model.NewMockModel("mock", config.ProviderMock), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalid, cfg.Provider)
	}
}

// Run starts a new conversation. The returned error only reports a failure to
// persist the trace; the RunResult is complete either way.
func (a *Assistant) Run(ctx context.Context, text string) (agent.RunResult, error) {
	res := a.agent.Run(ctx, text)
	return res, a.save(ctx, res)
}

// Continue resumes conversation with text. Errors are as for Run.
func (a *Assistant) Continue(ctx context.Context, conversation []core.Message, text string) (agent.RunResult, error) {
	res := a.agent.Continue(ctx, conversation, text)
	return res, a.save(ctx, res)
}

// Store returns the trace store, nil when traces are not persisted.
func (a *Assistant) Store() tracestore.Store { return a.store }

// Toolset returns the contract tool set, e.g. to read saved notes.
func (a *Assistant) Toolset() *contract.Toolset { return a.toolset }

// Tools returns the registered tool names in catalog order.
func (a *Assistant) Tools() []string { return a.registry.Names() }

func (a *Assistant) save(ctx context.Context, res agent.RunResult) error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Save(context.WithoutCancel(ctx), res.Trace); err != nil {
		a.logger.Error("trace.save.failed", "session_id", res.Trace.SessionID, "error", err.Error())
		return fmt.Errorf("save trace: %w", err)
	}
	a.logger.Debug("trace.saved", "session_id", res.Trace.SessionID)
	return nil
}

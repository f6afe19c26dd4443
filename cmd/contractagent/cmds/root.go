// Package cmds holds the contractagent command tree.
package cmds

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentloop"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/tracestore"
)

type app struct {
	configPath string
	cfg        *config.Config
}

// NewRootCommand builds the contractagent command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "contractagent",
		Short:        "contractagent reviews contracts with a tool-calling assistant",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			l := config.NewLoader()
			if err := l.BindFlags(cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			cfg, err := l.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	d := config.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./contractagent.yaml or $HOME/.contractagent/contractagent.yaml)")
	pf.String("provider", d.Provider, "reasoning engine provider: openai, anthropic or mock")
	pf.String("model", d.Model, "model name passed to the provider")
	pf.Int("max-rounds", d.MaxRounds, "maximum engine calls per run")
	pf.Duration("engine-timeout", d.EngineTimeout, "timeout for a single engine call, 0 disables it")
	pf.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	pf.String("log-format", d.LogFormat, "log format: text or json")
	pf.String("trace-dir", d.TraceDir, "directory reasoning traces are saved to")
	pf.String("trace-format", d.TraceFormat, "trace file format: json or yaml")
	pf.String("document-root", d.DocumentRoot, "directory read_document and list_documents are confined to")

	root.AddCommand(newRunCommand(a), newChatCommand(a), newDocsCommand(a), newTraceCommand(a))
	return root
}

func (a *app) assistant(document string, optFns ...func(o *agentloop.Options)) (*agentloop.Assistant, error) {
	return agentloop.New(a.cfg, append([]func(o *agentloop.Options){func(o *agentloop.Options) {
		o.Document = document
	}}, optFns...)...)
}

func (a *app) store() (tracestore.Store, error) {
	if a.cfg.TraceDir == "" {
		return nil, errors.New("no trace directory configured, set --trace-dir or trace_dir")
	}
	format, err := tracestore.ParseFormat(a.cfg.TraceFormat)
	if err != nil {
		return nil, err
	}
	return tracestore.NewDirStore(a.cfg.TraceDir, format)
}

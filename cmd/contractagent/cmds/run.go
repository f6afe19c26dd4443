package cmds

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/contract"
	"github.com/hupe1980/agentloop/tool"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		file      string
		document  string
		showTrace bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "run [question]",
		Short: "Ask a single question and print the answer and flagged clauses",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read question file: %w", err)
				}
				text = strings.TrimSpace(text + "\n\n" + string(data))
			}
			if text == "" {
				return errors.New("a question is required, pass it as arguments or with --file")
			}

			asst, err := a.assistant(document)
			if err != nil {
				return err
			}

			res, saveErr := asst.Run(cmd.Context(), text)
			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else {
				writeResult(out, res, showTrace)
			}
			if saveErr != nil {
				return saveErr
			}
			if res.Err != nil {
				return fmt.Errorf("run ended %s: %w", res.TerminalState, res.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the question (or a pasted contract) from a file")
	cmd.Flags().StringVarP(&document, "document", "d", "", "name of the document under review, mentioned in the system prompt")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the reasoning summary after the answer")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full run result as JSON")

	return cmd
}

func writeResult(w io.Writer, res agent.RunResult, showTrace bool) {
	if answer := res.FinalAnswer(); answer != "" {
		fmt.Fprintln(w, answer)
	}
	writeFlagged(w, res.Flagged)
	if showTrace {
		fmt.Fprintln(w)
		fmt.Fprintln(w, res.Trace.Summary())
	}
}

func writeFlagged(w io.Writer, items []agent.FlaggedItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\nFlagged for review (%d):\n", len(items))
	for _, it := range items {
		switch r := it.Result.(type) {
		case tool.Success:
			if fc, ok := r.Payload.(contract.FlaggedClause); ok {
				fmt.Fprintf(w, "  - %s\n    reason: %s\n", fc.Clause, fc.Reason)
				continue
			}
			fmt.Fprintf(w, "  - %s\n", tool.Encode(r))
		case tool.Failure:
			fmt.Fprintf(w, "  - [%s] failed: %s\n", it.CallID, r.Error())
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

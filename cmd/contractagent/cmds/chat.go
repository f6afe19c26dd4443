package cmds

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentloop"
	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
)

func newChatCommand(a *app) *cobra.Command {
	var (
		document string
		stream   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive review session; type exit to leave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

			var (
				optFns   []func(o *agentloop.Options)
				streamed bool
			)
			if stream {
				optFns = append(optFns, func(o *agentloop.Options) {
					o.OnPartial = func(text string) {
						streamed = true
						fmt.Fprint(out, text)
					}
				})
			}
			asst, err := a.assistant(document, optFns...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

			var conversation []core.Message
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}

				var (
					res     agent.RunResult
					saveErr error
				)
				streamed = false
				if conversation == nil {
					res, saveErr = asst.Run(ctx, line)
				} else {
					res, saveErr = asst.Continue(ctx, conversation, line)
				}
				conversation = res.Conversation

				if streamed {
					// The answer was already printed chunk by chunk.
					fmt.Fprintln(out)
					writeFlagged(out, res.Flagged)
				} else {
					writeResult(out, res, false)
				}
				if res.Err != nil {
					fmt.Fprintf(errOut, "run ended %s: %v\n", res.TerminalState, res.Err)
				}
				if saveErr != nil {
					fmt.Fprintln(errOut, saveErr)
				}
			}
		},
	}

	cmd.Flags().StringVarP(&document, "document", "d", "", "name of the document under review, mentioned in the system prompt")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the engine's answer as it is generated")
	return cmd
}

package cmds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentloop/contract"
)

func newDocsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List the documents under the document root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := contract.NewToolset(contract.WithRoot(a.cfg.DocumentRoot)).ListDocuments()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "no documents found")
				return nil
			}
			for i, name := range names {
				fmt.Fprintf(out, "%d. %s\n", i+1, name)
			}
			return nil
		},
	}
}
